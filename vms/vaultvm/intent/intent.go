// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package intent defines the record that moves vault assets between ledgers.
//
// A TransferIntent is created by the exporting vault, carried out of band by
// the transport, and consumed at most once by the importing vault. Its ID is
// the SHA3-256 of its canonical encoding, so two intents with equal fields
// are the same intent.
package intent

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	"github.com/luxfi/ids"
)

var (
	ErrZeroAmount   = errors.New("intent amount is zero")
	ErrSameLedger   = errors.New("source and destination ledger are the same")
	ErrEmptyLedger  = errors.New("intent ledger is empty")
	ErrEmptyAddress = errors.New("intent address is empty")
)

// Status is the lifecycle position of an intent as seen by one ledger.
//
// Created -> InFlight -> Finalized. There is no cancelled or expired state:
// an intent that is never finalized stays InFlight and its assets are not
// recoverable by the source ledger.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusCreated
	StatusInFlight
	StatusFinalized
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusInFlight:
		return "in-flight"
	case StatusFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// ParseStatus parses the String form of a Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "created":
		return StatusCreated, nil
	case "in-flight":
		return StatusInFlight, nil
	case "finalized":
		return StatusFinalized, nil
	default:
		return StatusUnknown, fmt.Errorf("unknown intent status %q", s)
	}
}

// TransferIntent is immutable once initialized.
type TransferIntent struct {
	Nonce             uint64      `serialize:"true"`
	Asset             ids.ID      `serialize:"true"`
	SourceLedger      ids.ID      `serialize:"true"`
	DestinationLedger ids.ID      `serialize:"true"`
	Sender            ids.ShortID `serialize:"true"`
	Recipient         ids.ShortID `serialize:"true"`
	RawAmount         [32]byte    `serialize:"true"`

	id    ids.ID
	bytes []byte
}

// New builds and initializes an intent.
func New(
	nonce uint64,
	asset ids.ID,
	source ids.ID,
	destination ids.ID,
	sender ids.ShortID,
	recipient ids.ShortID,
	amount *uint256.Int,
) (*TransferIntent, error) {
	t := &TransferIntent{
		Nonce:             nonce,
		Asset:             asset,
		SourceLedger:      source,
		DestinationLedger: destination,
		Sender:            sender,
		Recipient:         recipient,
		RawAmount:         amount.Bytes32(),
	}
	if err := t.Verify(); err != nil {
		return nil, err
	}
	return t, t.initialize()
}

// Parse decodes and initializes an intent from its canonical bytes.
func Parse(b []byte) (*TransferIntent, error) {
	t := &TransferIntent{}
	if _, err := Codec.Unmarshal(b, t); err != nil {
		return nil, fmt.Errorf("couldn't parse intent: %w", err)
	}
	if err := t.Verify(); err != nil {
		return nil, err
	}
	t.bytes = b
	t.id = hash(b)
	return t, nil
}

func (t *TransferIntent) initialize() error {
	b, err := Codec.Marshal(CodecVersion, t)
	if err != nil {
		return fmt.Errorf("couldn't marshal intent: %w", err)
	}
	t.bytes = b
	t.id = hash(b)
	return nil
}

func hash(b []byte) ids.ID {
	return ids.ID(sha3.Sum256(b))
}

// Verify checks the structural rules every intent obeys.
func (t *TransferIntent) Verify() error {
	switch {
	case t.Amount().IsZero():
		return ErrZeroAmount
	case t.SourceLedger == ids.Empty || t.DestinationLedger == ids.Empty:
		return ErrEmptyLedger
	case t.SourceLedger == t.DestinationLedger:
		return ErrSameLedger
	case t.Sender == ids.ShortEmpty || t.Recipient == ids.ShortEmpty:
		return ErrEmptyAddress
	default:
		return nil
	}
}

func (t *TransferIntent) ID() ids.ID {
	return t.id
}

// Bytes returns the canonical encoding the ID commits to.
func (t *TransferIntent) Bytes() []byte {
	return t.bytes
}

func (t *TransferIntent) Amount() *uint256.Int {
	return new(uint256.Int).SetBytes32(t.RawAmount[:])
}

type jsonIntent struct {
	ID                ids.ID      `json:"id"`
	Nonce             uint64      `json:"nonce"`
	Asset             ids.ID      `json:"asset"`
	SourceLedger      ids.ID      `json:"sourceLedger"`
	DestinationLedger ids.ID      `json:"destinationLedger"`
	Sender            ids.ShortID `json:"sender"`
	Recipient         ids.ShortID `json:"recipient"`
	Amount            string      `json:"amount"`
}

func (t *TransferIntent) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonIntent{
		ID:                t.id,
		Nonce:             t.Nonce,
		Asset:             t.Asset,
		SourceLedger:      t.SourceLedger,
		DestinationLedger: t.DestinationLedger,
		Sender:            t.Sender,
		Recipient:         t.Recipient,
		Amount:            t.Amount().Dec(),
	})
}
