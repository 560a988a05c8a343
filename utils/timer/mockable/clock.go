// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mockable

import (
	"sync"
	"time"
)

// Clock reads wall-clock time unless it has been frozen with Set, in which
// case it only moves when told to. The zero value follows wall-clock time and
// is safe for concurrent use.
type Clock struct {
	mu     sync.RWMutex
	frozen bool
	now    time.Time
}

// Set freezes the clock at t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = true
	c.now = t
}

// Advance moves a frozen clock forward by d. It freezes a running clock at
// the current time plus d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.frozen {
		c.frozen = true
		c.now = time.Now()
	}
	c.now = c.now.Add(d)
}

// Sync unfreezes the clock.
func (c *Clock) Sync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = false
}

func (c *Clock) Time() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.frozen {
		return c.now
	}
	return time.Now()
}

// Unix returns whole seconds since the epoch, clamped at zero.
func (c *Clock) Unix() uint64 {
	return uint64(max(c.Time().Unix(), 0))
}
