// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package events defines the observable records a vault emits.
//
// Events are written in the same versioned batch as the state change they
// describe, so an aborted operation never leaves an event behind.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/holiman/uint256"

	"github.com/luxfi/codec"
	"github.com/luxfi/codec/linearcodec"
	"github.com/luxfi/ids"
)

const CodecVersion = 0

var (
	Codec codec.Manager

	ErrUnknownKind = errors.New("unknown event kind")
)

func init() {
	Codec = codec.NewManager(math.MaxInt)
	lc := linearcodec.NewDefault()

	err := errors.Join(
		lc.RegisterType(&Event{}),
		Codec.RegisterCodec(CodecVersion, lc),
	)
	if err != nil {
		panic(err)
	}
}

type Kind uint8

const (
	DepositCompleted Kind = iota + 1
	WithdrawWithProfitCompleted
	RebalanceInitiated
	RebalanceCompleted
	TreasuryUpdated
	RoleGranted
	RoleRevoked
	OwnershipTransferred
)

var kindNames = map[Kind]string{
	DepositCompleted:            "deposit-completed",
	WithdrawWithProfitCompleted: "withdraw-with-profit-completed",
	RebalanceInitiated:          "rebalance-initiated",
	RebalanceCompleted:          "rebalance-completed",
	TreasuryUpdated:             "treasury-updated",
	RoleGranted:                 "role-granted",
	RoleRevoked:                 "role-revoked",
	OwnershipTransferred:        "ownership-transferred",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

func (k Kind) Verify() error {
	if _, ok := kindNames[k]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownKind, k)
	}
	return nil
}

// Event is a flat record; fields a kind does not use stay zero.
//
//	DepositCompleted            Caller=depositor Receiver Assets Shares
//	WithdrawWithProfitCompleted Caller Receiver Owner Assets Shares Profit Fee
//	RebalanceInitiated          Caller=rebalancer Ledger=destination Assets IntentID Nonce
//	RebalanceCompleted          Caller=finalizer Receiver Ledger=source Assets IntentID Nonce
//	TreasuryUpdated             Caller Previous Account=new treasury
//	RoleGranted, RoleRevoked    Caller Account Role
//	OwnershipTransferred        Caller=previous owner Account=new owner
type Event struct {
	Seq       uint64      `serialize:"true"`
	Kind      Kind        `serialize:"true"`
	Timestamp uint64      `serialize:"true"`
	Caller    ids.ShortID `serialize:"true"`
	Receiver  ids.ShortID `serialize:"true"`
	Owner     ids.ShortID `serialize:"true"`
	Account   ids.ShortID `serialize:"true"`
	Previous  ids.ShortID `serialize:"true"`
	Role      string      `serialize:"true"`
	Ledger    ids.ID      `serialize:"true"`
	IntentID  ids.ID      `serialize:"true"`
	Nonce     uint64      `serialize:"true"`
	Assets    [32]byte    `serialize:"true"`
	Shares    [32]byte    `serialize:"true"`
	Profit    [32]byte    `serialize:"true"`
	Fee       [32]byte    `serialize:"true"`
}

func Amount(v *uint256.Int) [32]byte {
	if v == nil {
		return [32]byte{}
	}
	return v.Bytes32()
}

func toInt(b [32]byte) *uint256.Int {
	return new(uint256.Int).SetBytes32(b[:])
}

func (e *Event) AssetsAmount() *uint256.Int { return toInt(e.Assets) }
func (e *Event) SharesAmount() *uint256.Int { return toInt(e.Shares) }
func (e *Event) ProfitAmount() *uint256.Int { return toInt(e.Profit) }
func (e *Event) FeeAmount() *uint256.Int    { return toInt(e.Fee) }

func (e *Event) Bytes() ([]byte, error) {
	return Codec.Marshal(CodecVersion, e)
}

func Parse(b []byte) (*Event, error) {
	e := &Event{}
	if _, err := Codec.Unmarshal(b, e); err != nil {
		return nil, fmt.Errorf("couldn't parse event: %w", err)
	}
	return e, e.Kind.Verify()
}

type jsonEvent struct {
	Seq       uint64       `json:"seq"`
	Kind      string       `json:"kind"`
	Timestamp uint64       `json:"timestamp"`
	Caller    *ids.ShortID `json:"caller,omitempty"`
	Receiver  *ids.ShortID `json:"receiver,omitempty"`
	Owner     *ids.ShortID `json:"owner,omitempty"`
	Account   *ids.ShortID `json:"account,omitempty"`
	Previous  *ids.ShortID `json:"previous,omitempty"`
	Role      string       `json:"role,omitempty"`
	Ledger    *ids.ID      `json:"ledger,omitempty"`
	IntentID  *ids.ID      `json:"intentID,omitempty"`
	Nonce     uint64       `json:"nonce,omitempty"`
	Assets    string       `json:"assets,omitempty"`
	Shares    string       `json:"shares,omitempty"`
	Profit    string       `json:"profit,omitempty"`
	Fee       string       `json:"fee,omitempty"`
}

func shortOrNil(id ids.ShortID) *ids.ShortID {
	if id == ids.ShortEmpty {
		return nil
	}
	return &id
}

func idOrNil(id ids.ID) *ids.ID {
	if id == ids.Empty {
		return nil
	}
	return &id
}

func decOrEmpty(b [32]byte) string {
	v := toInt(b)
	if v.IsZero() {
		return ""
	}
	return v.Dec()
}

func (e *Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonEvent{
		Seq:       e.Seq,
		Kind:      e.Kind.String(),
		Timestamp: e.Timestamp,
		Caller:    shortOrNil(e.Caller),
		Receiver:  shortOrNil(e.Receiver),
		Owner:     shortOrNil(e.Owner),
		Account:   shortOrNil(e.Account),
		Previous:  shortOrNil(e.Previous),
		Role:      e.Role,
		Ledger:    idOrNil(e.Ledger),
		IntentID:  idOrNil(e.IntentID),
		Nonce:     e.Nonce,
		Assets:    decOrEmpty(e.Assets),
		Shares:    decOrEmpty(e.Shares),
		Profit:    decOrEmpty(e.Profit),
		Fee:       decOrEmpty(e.Fee),
	})
}
