// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vaultvm

import "context"

// execKey marks a context as running inside a mutating call on one vault.
type execKey struct {
	v *Vault
}

func (v *Vault) executing(ctx context.Context) bool {
	return ctx.Value(execKey{v: v}) != nil
}

// enter serializes a mutating call. A call made with a context that is
// already inside a mutating call on this vault, such as a token hook calling
// back into the vault, is rejected rather than queued behind the lock it
// would otherwise deadlock on.
//
// Collaborators must pass the context they were given through to any
// callback for this to hold.
func (v *Vault) enter(ctx context.Context) (context.Context, func(), error) {
	if v.executing(ctx) {
		return ctx, nil, ErrReentrantCall
	}
	v.lock.Lock()
	return context.WithValue(ctx, execKey{v: v}, struct{}{}), v.lock.Unlock, nil
}

// view serializes a read against concurrent mutating calls. Reads issued from
// inside a mutating call observe its uncommitted writes.
func (v *Vault) view(ctx context.Context) func() {
	if v.executing(ctx) {
		return func() {}
	}
	v.lock.RLock()
	return v.lock.RUnlock
}
