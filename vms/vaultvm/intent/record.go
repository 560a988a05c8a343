// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"encoding/json"
	"fmt"

	"github.com/luxfi/ids"
)

// Direction tells whether the local ledger exported or imported an intent.
type Direction uint8

const (
	Outbound Direction = iota + 1
	Inbound
)

func (d Direction) String() string {
	switch d {
	case Outbound:
		return "outbound"
	case Inbound:
		return "inbound"
	default:
		return "unknown"
	}
}

func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Record is the locally persisted view of an intent.
type Record struct {
	Intent    TransferIntent `serialize:"true" json:"intent"`
	Status    Status         `serialize:"true" json:"status"`
	Direction Direction      `serialize:"true" json:"direction"`
	// RelayID is the transport's handle for the message carrying the intent.
	RelayID   ids.ID `serialize:"true" json:"relayID"`
	CreatedAt uint64 `serialize:"true" json:"createdAt"`
	UpdatedAt uint64 `serialize:"true" json:"updatedAt"`
}

// Advance moves the record forward in its lifecycle. Statuses never move
// backwards and never skip InFlight on the outbound side.
func (r *Record) Advance(to Status, now uint64) error {
	if to <= r.Status {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	if r.Direction == Outbound && r.Status == StatusCreated && to != StatusInFlight {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	r.Status = to
	r.UpdatedAt = now
	return nil
}

func (r *Record) Bytes() ([]byte, error) {
	return Codec.Marshal(CodecVersion, r)
}

// ParseRecord decodes a record and re-derives the embedded intent's ID.
func ParseRecord(b []byte) (*Record, error) {
	r := &Record{}
	if _, err := Codec.Unmarshal(b, r); err != nil {
		return nil, fmt.Errorf("couldn't parse intent record: %w", err)
	}
	if err := r.Intent.initialize(); err != nil {
		return nil, err
	}
	return r, nil
}
