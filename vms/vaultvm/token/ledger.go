// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package token describes the fungible-asset ledger a vault holds its
// backing assets on, and provides an in-memory reference ledger.
package token

import (
	"context"
	"errors"

	"github.com/holiman/uint256"

	"github.com/luxfi/ids"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient token balance")
	ErrInsufficientAllowance = errors.New("insufficient token allowance")
	ErrZeroAddress           = errors.New("zero address")
	ErrSupplyOverflow        = errors.New("token supply overflow")
)

// Ledger is the backing-asset ledger on one chain. The caller identity of
// each operation is explicit: from for Transfer, spender for TransferFrom,
// owner for Approve.
//
//go:generate mockgen -package=token -destination=mock_ledger.go . Ledger
type Ledger interface {
	BalanceOf(ctx context.Context, holder ids.ShortID) (*uint256.Int, error)
	Transfer(ctx context.Context, from, to ids.ShortID, amount *uint256.Int) error
	TransferFrom(ctx context.Context, spender, from, to ids.ShortID, amount *uint256.Int) error
	Approve(ctx context.Context, owner, spender ids.ShortID, amount *uint256.Int) error
	Allowance(ctx context.Context, owner, spender ids.ShortID) (*uint256.Int, error)
}

// Issuer is implemented by ledgers that let a privileged party create and
// destroy supply, as a bridge escrow does.
type Issuer interface {
	Mint(ctx context.Context, to ids.ShortID, amount *uint256.Int) error
	Burn(ctx context.Context, from ids.ShortID, amount *uint256.Int) error
}

// Hook runs before a balance movement is applied and may abort it by
// returning an error. from is empty for mints and to is empty for burns.
// Hooks run without the ledger lock held, so they may call back into
// anything, including the ledger and the vault that triggered them.
type Hook func(ctx context.Context, from, to ids.ShortID, amount *uint256.Int) error
