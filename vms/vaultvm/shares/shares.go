// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package shares implements the exchange rate between vault shares and the
// backing asset, and the stand-in yield applied on withdrawal.
//
// All functions are pure: they take the pool totals observed at call time and
// never mutate their arguments.
package shares

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	safemath "github.com/luxfi/vault/utils/math"
)

// BpsDenominator is the fixed point scale of every rate in this package.
// 10_000 bps == 100%.
const BpsDenominator = 10_000

var (
	ErrUnbackedShares = errors.New("shares outstanding with no backing assets")
	ErrInvalidRate    = errors.New("rate exceeds 100%")

	bpsDenominator = uint256.NewInt(BpsDenominator)
)

// Pool is a snapshot of one ledger's vault totals.
type Pool struct {
	TotalAssets *uint256.Int
	TotalShares *uint256.Int
}

// ToShares converts [assets] to shares at the pool's current rate, rounding in
// the requested direction. An empty pool mints 1:1.
//
// When shares are outstanding but the pool holds no assets (every backing
// asset was rebalanced away) there is no meaningful rate and
// ErrUnbackedShares is returned.
func (p Pool) ToShares(assets *uint256.Int, rounding safemath.Rounding) (*uint256.Int, error) {
	if p.TotalShares.IsZero() {
		return assets.Clone(), nil
	}
	if p.TotalAssets.IsZero() {
		return nil, ErrUnbackedShares
	}
	return safemath.MulDiv(assets, p.TotalShares, p.TotalAssets, rounding)
}

// ToAssets converts [shares] to the assets they are redeemable for.
func (p Pool) ToAssets(shares *uint256.Int, rounding safemath.Rounding) (*uint256.Int, error) {
	if p.TotalShares.IsZero() {
		return shares.Clone(), nil
	}
	return safemath.MulDiv(shares, p.TotalAssets, p.TotalShares, rounding)
}

// SharesForDeposit returns the shares minted for depositing [assets].
// Rounds down so the depositor never receives more than their contribution.
func (p Pool) SharesForDeposit(assets *uint256.Int) (*uint256.Int, error) {
	return p.ToShares(assets, safemath.Floor)
}

// SharesForWithdraw returns the shares burned to release [assets].
// Rounds up so the withdrawer never redeems more than their claim.
func (p Pool) SharesForWithdraw(assets *uint256.Int) (*uint256.Int, error) {
	return p.ToShares(assets, safemath.Ceil)
}

// MaxWithdraw returns the assets [balance] shares can currently redeem.
func (p Pool) MaxWithdraw(balance *uint256.Int) (*uint256.Int, error) {
	return p.ToAssets(balance, safemath.Floor)
}

// Yield is the outcome of applying a YieldModel to a withdrawal.
type Yield struct {
	Profit *uint256.Int
	Fee    *uint256.Int
}

// Payout is what the receiver gets: assets + profit - fee.
func (y Yield) Payout(assets *uint256.Int) (*uint256.Int, error) {
	gross, err := safemath.Add(assets, y.Profit)
	if err != nil {
		return nil, err
	}
	return safemath.Sub(gross, y.Fee)
}

// Outflow is everything leaving the vault: assets + profit.
func (y Yield) Outflow(assets *uint256.Int) (*uint256.Int, error) {
	return safemath.Add(assets, y.Profit)
}

// YieldModel computes the profit credited on a withdrawal of [assets] and the
// treasury's cut of that profit.
type YieldModel interface {
	Yield(assets *uint256.Int) (Yield, error)
}

// FixedRate is a YieldModel paying a constant share of the withdrawn assets
// as profit, of which a constant share goes to the treasury.
type FixedRate struct {
	ProfitBps uint16 `json:"profitBps"`
	FeeBps    uint16 `json:"feeBps"`
}

// NewFixedRate validates and returns a FixedRate.
func NewFixedRate(profitBps, feeBps uint16) (FixedRate, error) {
	if profitBps > BpsDenominator {
		return FixedRate{}, fmt.Errorf("%w: profit %d bps", ErrInvalidRate, profitBps)
	}
	if feeBps > BpsDenominator {
		return FixedRate{}, fmt.Errorf("%w: fee %d bps", ErrInvalidRate, feeBps)
	}
	return FixedRate{ProfitBps: profitBps, FeeBps: feeBps}, nil
}

func (r FixedRate) Yield(assets *uint256.Int) (Yield, error) {
	profit, err := safemath.MulDiv(assets, uint256.NewInt(uint64(r.ProfitBps)), bpsDenominator, safemath.Floor)
	if err != nil {
		return Yield{}, err
	}
	fee, err := safemath.MulDiv(profit, uint256.NewInt(uint64(r.FeeBps)), bpsDenominator, safemath.Floor)
	if err != nil {
		return Yield{}, err
	}
	return Yield{Profit: profit, Fee: fee}, nil
}

// NoYield pays out exactly the withdrawn assets.
type NoYield struct{}

func (NoYield) Yield(*uint256.Int) (Yield, error) {
	return Yield{Profit: new(uint256.Int), Fee: new(uint256.Int)}, nil
}
