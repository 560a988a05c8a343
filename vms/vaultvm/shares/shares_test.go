// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package shares

import (
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func TestEmptyPoolMintsOneToOne(t *testing.T) {
	require := require.New(t)

	pool := Pool{TotalAssets: u(0), TotalShares: u(0)}
	shares, err := pool.SharesForDeposit(u(100))
	require.NoError(err)
	require.Equal(u(100), shares)

	// Stray assets in an empty pool don't change the first depositor's rate.
	pool = Pool{TotalAssets: u(7), TotalShares: u(0)}
	shares, err = pool.SharesForDeposit(u(100))
	require.NoError(err)
	require.Equal(u(100), shares)
}

func TestExchangeRate(t *testing.T) {
	tests := []struct {
		name             string
		assets, shares   uint64
		deposit          uint64
		wantDeposit      uint64
		withdraw         uint64
		wantWithdrawBurn uint64
	}{
		{name: "par", assets: 100, shares: 100, deposit: 50, wantDeposit: 50, withdraw: 50, wantWithdrawBurn: 50},
		{name: "appreciated", assets: 200, shares: 100, deposit: 50, wantDeposit: 25, withdraw: 50, wantWithdrawBurn: 25},
		{name: "rounding", assets: 3, shares: 2, deposit: 2, wantDeposit: 1, withdraw: 2, wantWithdrawBurn: 2},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			pool := Pool{TotalAssets: u(test.assets), TotalShares: u(test.shares)}
			minted, err := pool.SharesForDeposit(u(test.deposit))
			require.NoError(err)
			require.Equal(u(test.wantDeposit), minted)

			burned, err := pool.SharesForWithdraw(u(test.withdraw))
			require.NoError(err)
			require.Equal(u(test.wantWithdrawBurn), burned)
		})
	}
}

func TestUnbackedShares(t *testing.T) {
	pool := Pool{TotalAssets: u(0), TotalShares: u(100)}
	_, err := pool.SharesForDeposit(u(10))
	require.ErrorIs(t, err, ErrUnbackedShares)

	max, err := pool.MaxWithdraw(u(100))
	require.NoError(t, err)
	require.True(t, max.IsZero())
}

// A holder can never redeem more than their proportional claim, whatever
// sequence of deposits and withdrawals preceded the redemption.
func TestRedeemNeverExceedsProportionalClaim(t *testing.T) {
	require := require.New(t)

	rng := rand.New(rand.NewSource(1)) //#nosec G404
	assets, supply := u(0), u(0)
	for i := 0; i < 1_000; i++ {
		pool := Pool{TotalAssets: assets, TotalShares: supply}
		if supply.IsZero() || rng.Intn(2) == 0 {
			amount := u(uint64(rng.Intn(1_000_000) + 1))
			minted, err := pool.SharesForDeposit(amount)
			require.NoError(err)
			if minted.IsZero() {
				continue
			}
			assets = new(uint256.Int).Add(assets, amount)
			supply = new(uint256.Int).Add(supply, minted)
			continue
		}

		holding := new(uint256.Int).Div(supply, u(uint64(rng.Intn(4)+1)))
		max, err := pool.MaxWithdraw(holding)
		require.NoError(err)
		if max.IsZero() {
			continue
		}
		burned, err := pool.SharesForWithdraw(max)
		require.NoError(err)
		require.False(burned.Gt(holding), "burn %s exceeds holding %s", burned, holding)

		// assets/supply before must be >= assets/supply after, i.e. the
		// remaining holders' claim per share never decreases.
		nextAssets := new(uint256.Int).Sub(assets, max)
		nextSupply := new(uint256.Int).Sub(supply, burned)
		lhs := new(uint256.Int).Mul(nextAssets, supply)
		rhs := new(uint256.Int).Mul(assets, nextSupply)
		require.False(lhs.Lt(rhs))

		assets, supply = nextAssets, nextSupply
	}
}

func TestFixedRate(t *testing.T) {
	require := require.New(t)

	rate, err := NewFixedRate(1_000, 1_000)
	require.NoError(err)

	y, err := rate.Yield(u(100))
	require.NoError(err)
	require.Equal(u(10), y.Profit)
	require.Equal(u(1), y.Fee)

	payout, err := y.Payout(u(100))
	require.NoError(err)
	require.Equal(u(109), payout)

	outflow, err := y.Outflow(u(100))
	require.NoError(err)
	require.Equal(u(110), outflow)

	_, err = NewFixedRate(BpsDenominator+1, 0)
	require.ErrorIs(err, ErrInvalidRate)
	_, err = NewFixedRate(0, BpsDenominator+1)
	require.ErrorIs(err, ErrInvalidRate)
}

func TestNoYield(t *testing.T) {
	y, err := NoYield{}.Yield(u(100))
	require.NoError(t, err)
	require.True(t, y.Profit.IsZero())
	require.True(t, y.Fee.IsZero())
}
