// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vaultvm

import (
	"errors"

	"github.com/luxfi/database"
	"github.com/luxfi/vault/vms/vaultvm/auth"
	"github.com/luxfi/vault/vms/vaultvm/bridge"
	"github.com/luxfi/vault/vms/vaultvm/intent"
	"github.com/luxfi/vault/vms/vaultvm/shares"
	"github.com/luxfi/vault/vms/vaultvm/token"
)

var (
	ErrUnauthorized      = auth.ErrUnauthorized
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrProofInvalid      = errors.New("invalid transfer proof")
	ErrAlreadyFinalized  = errors.New("intent already finalized")
	ErrReentrantCall     = errors.New("reentrant vault call")

	ErrInvalidAmount  = errors.New("amount must be greater than zero")
	ErrZeroShares     = errors.New("deposit mints zero shares")
	ErrUnbackedShares = shares.ErrUnbackedShares
	ErrSameLedger     = errors.New("destination is the local ledger")
	ErrZeroAddress    = errors.New("zero address")
	ErrIntentNotFound = errors.New("intent not found")
	// ErrInvalidArgument wraps malformed input decoded outside the vault.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Kind classifies a vault error for callers that route on outcome rather than
// on the exact sentinel.
type Kind string

const (
	KindNone              Kind = ""
	KindAuthorization     Kind = "authorization"
	KindInsufficientFunds Kind = "insufficient-funds"
	KindProofInvalid      Kind = "proof-invalid"
	KindReplay            Kind = "replay"
	KindReentrantCall     Kind = "reentrant-call"
	KindInvalidArgument   Kind = "invalid-argument"
	KindInternal          Kind = "internal"
)

var kinds = []struct {
	kind Kind
	errs []error
}{
	{KindReentrantCall, []error{ErrReentrantCall}},
	{KindReplay, []error{ErrAlreadyFinalized}},
	{KindAuthorization, []error{auth.ErrUnauthorized, auth.ErrNotInitialized}},
	{KindProofInvalid, []error{
		ErrProofInvalid,
		intent.ErrMalformedProof,
		bridge.ErrUntrustedSigner,
		bridge.ErrInvalidSignature,
	}},
	{KindInsufficientFunds, []error{
		ErrInsufficientFunds,
		token.ErrInsufficientBalance,
		token.ErrInsufficientAllowance,
	}},
	{KindInvalidArgument, []error{
		ErrInvalidAmount,
		ErrZeroShares,
		ErrUnbackedShares,
		ErrSameLedger,
		ErrZeroAddress,
		ErrIntentNotFound,
		ErrInvalidArgument,
		auth.ErrZeroAddress,
		auth.ErrUnknownRole,
		auth.ErrNotSupported,
		auth.ErrLastAdmin,
		token.ErrZeroAddress,
		intent.ErrZeroAmount,
		intent.ErrSameLedger,
		intent.ErrEmptyLedger,
		intent.ErrEmptyAddress,
		database.ErrNotFound,
	}},
}

// KindOf returns the class of err, KindNone for nil, and KindInternal for
// anything unrecognized.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		for _, target := range k.errs {
			if errors.Is(err, target) {
				return k.kind
			}
		}
	}
	return KindInternal
}
