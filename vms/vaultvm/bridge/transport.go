// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bridge describes the cross-ledger message transport a vault hands
// exported assets to, and provides an in-process reference relay.
package bridge

import (
	"context"
	"errors"

	"github.com/holiman/uint256"

	"github.com/luxfi/ids"
	"github.com/luxfi/vault/vms/vaultvm/intent"
)

var (
	ErrUnknownLedger    = errors.New("ledger not registered with relay")
	ErrUnknownIntent    = errors.New("intent was never sent through relay")
	ErrUntrustedSigner  = errors.New("proof signer is not a trusted attester")
	ErrInvalidSignature = errors.New("invalid proof signature")
)

// Transport moves assets between ledgers on the vault's behalf.
//
//go:generate mockgen -package=bridge -destination=mock_transport.go . Transport
type Transport interface {
	// Send takes custody of the intent's amount from its sender on the
	// source ledger, using an allowance the sender granted to the transport's
	// escrow, and returns the transport's handle for the message.
	Send(ctx context.Context, in *intent.TransferIntent) (ids.ID, error)

	// VerifyAndRelay checks proof and delivers the attested amount to the
	// intent's recipient on the destination ledger. It does not remember
	// which proofs it has already relayed.
	VerifyAndRelay(ctx context.Context, proof []byte) (*Receipt, error)
}

// Receipt is the transport's account of a relayed proof.
type Receipt struct {
	Verified bool
	Amount   *uint256.Int
	Sender   ids.ShortID
	IntentID ids.ID
}
