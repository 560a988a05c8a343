// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vaultvm

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
)

func TestTokenHookCannotReenter(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	env := newTestEnv(t)
	alice := ids.GenerateTestShortID()
	env.a.deposit(t, alice, 100)
	require.NoError(env.a.token.Mint(ctx, env.vaultAddr, uint256.NewInt(100)))
	_, proof := env.export(t, env.rebalancer, 10)

	var (
		calls          int
		withdrawErr    error
		completeErr    error
		depositErr     error
		balanceSeen    *uint256.Int
		otherVaultSeen *uint256.Int
	)
	env.a.token.AddHook(func(ctx context.Context, from, _ ids.ShortID, _ *uint256.Int) error {
		if from != env.vaultAddr || calls > 0 {
			return nil
		}
		calls++

		_, withdrawErr = env.a.vault.Withdraw(ctx, alice, uint256.NewInt(1), alice, alice)
		completeErr = env.a.vault.CompleteRebalance(ctx, env.rebalancer, uint256.NewInt(10), alice, proof.Bytes())
		_, depositErr = env.a.vault.Deposit(ctx, alice, uint256.NewInt(1), alice)

		var err error
		balanceSeen, err = env.a.vault.BalanceOf(ctx, alice)
		if err != nil {
			return err
		}
		// Other vaults are not affected by this one's call.
		otherVaultSeen, err = env.b.vault.TotalSupply(ctx)
		return err
	})

	burned, err := env.a.vault.Withdraw(ctx, alice, uint256.NewInt(100), alice, alice)
	require.NoError(err)
	require.Equal(1, calls)

	require.ErrorIs(withdrawErr, ErrReentrantCall)
	require.Equal(KindReentrantCall, KindOf(withdrawErr))
	require.ErrorIs(completeErr, ErrReentrantCall)
	require.ErrorIs(depositErr, ErrReentrantCall)

	// The callback observes the burn that preceded the transfer.
	remaining := new(uint256.Int).Sub(uint256.NewInt(100), burned)
	require.Equal(remaining, balanceSeen)
	require.True(otherVaultSeen.IsZero())

	env.a.requireShares(t, alice, remaining.Uint64())

	// The lock was released: later calls on the same vault proceed.
	require.NoError(env.a.vault.Transfer(ctx, alice, env.owner, uint256.NewInt(1)))
}

func TestTokenHookFailureRevertsCall(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	env := newTestEnv(t)
	alice := ids.GenerateTestShortID()
	receiver := ids.GenerateTestShortID()
	env.a.deposit(t, alice, 100)
	require.NoError(env.a.token.Mint(ctx, env.vaultAddr, uint256.NewInt(100)))

	errBlocked := errors.New("receiver blocked")
	env.a.token.AddHook(func(_ context.Context, _, to ids.ShortID, _ *uint256.Int) error {
		if to == receiver {
			return errBlocked
		}
		return nil
	})

	before := env.a.snapshot(t)
	_, err := env.a.vault.Withdraw(ctx, alice, uint256.NewInt(100), receiver, alice)
	require.ErrorIs(err, errBlocked)
	require.Equal(KindInternal, KindOf(err))

	// The fee leg had already moved before the payout was refused. The vault's
	// own books are untouched.
	after := env.a.snapshot(t)
	require.Equal(before.totalShares, after.totalShares)
	require.Equal(before.events, after.events)
	require.Equal(before.movedAssets, after.movedAssets)
	env.a.requireShares(t, alice, 100)
	env.a.requireAssets(t, receiver, 0)
	env.a.requireAssets(t, env.treasury, 1)
}
