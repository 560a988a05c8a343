// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vaultvm

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel/attribute"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/vault/vms/vaultvm/events"

	safemath "github.com/luxfi/vault/utils/math"
)

// Deposit pulls assets from caller, which must have approved the vault on the
// token ledger, and mints the corresponding shares to receiver. Shares are
// priced from the totals observed before the pull.
func (v *Vault) Deposit(ctx context.Context, caller ids.ShortID, assets *uint256.Int, receiver ids.ShortID) (_ *uint256.Int, err error) {
	if assets == nil || assets.IsZero() {
		return nil, ErrInvalidAmount
	}
	ctx, finish, err := v.startOp(ctx, "deposit",
		attribute.Stringer("caller", caller),
		attribute.String("assets", assets.Dec()),
	)
	if err != nil {
		return nil, err
	}
	defer finish(&err)

	if caller == ids.ShortEmpty || receiver == ids.ShortEmpty {
		return nil, ErrZeroAddress
	}

	p, err := v.pool(ctx)
	if err != nil {
		return nil, err
	}
	minted, err := p.SharesForDeposit(assets)
	if err != nil {
		return nil, err
	}
	if minted.IsZero() {
		return nil, fmt.Errorf("%w: %s assets at %s assets / %s shares", ErrZeroShares, assets.Dec(), p.TotalAssets.Dec(), p.TotalShares.Dec())
	}
	if err := v.mint(receiver, minted); err != nil {
		return nil, err
	}
	err = v.emit(&events.Event{
		Kind:     events.DepositCompleted,
		Caller:   caller,
		Receiver: receiver,
		Assets:   events.Amount(assets),
		Shares:   events.Amount(minted),
	})
	if err != nil {
		return nil, err
	}

	if err := v.ledger.TransferFrom(ctx, v.cfg.VaultAddress, caller, v.cfg.VaultAddress, assets); err != nil {
		return nil, fmt.Errorf("couldn't pull deposit: %w", err)
	}
	if err := v.state.Commit(); err != nil {
		return nil, err
	}

	v.log.Info("deposit completed",
		log.Stringer("caller", caller),
		log.Stringer("receiver", receiver),
		log.String("assets", assets.Dec()),
		log.String("shares", minted.Dec()),
	)
	return minted, nil
}

// Withdraw burns owner's shares for assets and pays receiver assets plus the
// yield model's profit, minus the treasury's fee. A caller other than owner
// spends owner's share allowance.
//
// The burn is written before any asset leaves the vault, so a callback from
// the token ledger observes the reduced balance.
func (v *Vault) Withdraw(ctx context.Context, caller ids.ShortID, assets *uint256.Int, receiver, owner ids.ShortID) (_ *uint256.Int, err error) {
	if assets == nil || assets.IsZero() {
		return nil, ErrInvalidAmount
	}
	ctx, finish, err := v.startOp(ctx, "withdraw",
		attribute.Stringer("caller", caller),
		attribute.Stringer("owner", owner),
		attribute.String("assets", assets.Dec()),
	)
	if err != nil {
		return nil, err
	}
	defer finish(&err)

	if receiver == ids.ShortEmpty || owner == ids.ShortEmpty {
		return nil, ErrZeroAddress
	}

	p, err := v.pool(ctx)
	if err != nil {
		return nil, err
	}
	balance, err := v.state.ShareBalance(owner)
	if err != nil {
		return nil, err
	}
	redeemable, err := p.MaxWithdraw(balance)
	if err != nil {
		return nil, err
	}
	if assets.Gt(redeemable) {
		return nil, fmt.Errorf("%w: %s can redeem %s, requested %s", ErrInsufficientFunds, owner, redeemable.Dec(), assets.Dec())
	}
	burned, err := p.SharesForWithdraw(assets)
	if err != nil {
		return nil, err
	}

	if caller != owner {
		if err := v.spendAllowance(owner, caller, burned); err != nil {
			return nil, err
		}
	}

	yield, err := v.yield.Yield(assets)
	if err != nil {
		return nil, err
	}
	outflow, err := yield.Outflow(assets)
	if err != nil {
		return nil, err
	}
	payout, err := yield.Payout(assets)
	if err != nil {
		return nil, err
	}
	if outflow.Gt(p.TotalAssets) {
		return nil, fmt.Errorf("%w: vault holds %s, withdrawal needs %s", ErrInsufficientFunds, p.TotalAssets.Dec(), outflow.Dec())
	}
	treasury, err := v.state.Treasury()
	if err != nil {
		return nil, err
	}

	if err := v.burn(owner, burned); err != nil {
		return nil, err
	}
	err = v.emit(&events.Event{
		Kind:     events.WithdrawWithProfitCompleted,
		Caller:   caller,
		Receiver: receiver,
		Owner:    owner,
		Assets:   events.Amount(assets),
		Shares:   events.Amount(burned),
		Profit:   events.Amount(yield.Profit),
		Fee:      events.Amount(yield.Fee),
	})
	if err != nil {
		return nil, err
	}

	if !yield.Fee.IsZero() {
		if err := v.ledger.Transfer(ctx, v.cfg.VaultAddress, treasury, yield.Fee); err != nil {
			return nil, fmt.Errorf("couldn't pay withdrawal fee: %w", err)
		}
	}
	if !payout.IsZero() {
		if err := v.ledger.Transfer(ctx, v.cfg.VaultAddress, receiver, payout); err != nil {
			return nil, fmt.Errorf("couldn't pay withdrawal: %w", err)
		}
	}
	if err := v.state.Commit(); err != nil {
		return nil, err
	}

	v.log.Info("withdraw completed",
		log.Stringer("caller", caller),
		log.Stringer("owner", owner),
		log.Stringer("receiver", receiver),
		log.String("assets", assets.Dec()),
		log.String("shares", burned.Dec()),
		log.String("profit", yield.Profit.Dec()),
		log.String("fee", yield.Fee.Dec()),
	)
	return burned, nil
}

// Approve sets spender's allowance over owner's shares.
func (v *Vault) Approve(ctx context.Context, owner, spender ids.ShortID, amount *uint256.Int) (err error) {
	_, finish, err := v.startOp(ctx, "approve", attribute.Stringer("owner", owner))
	if err != nil {
		return err
	}
	defer finish(&err)

	if owner == ids.ShortEmpty || spender == ids.ShortEmpty {
		return ErrZeroAddress
	}
	if err := v.state.SetShareAllowance(owner, spender, amount); err != nil {
		return err
	}
	return v.state.Commit()
}

// Transfer moves shares between holders on this ledger.
func (v *Vault) Transfer(ctx context.Context, from, to ids.ShortID, amount *uint256.Int) (err error) {
	_, finish, err := v.startOp(ctx, "transfer", attribute.Stringer("from", from))
	if err != nil {
		return err
	}
	defer finish(&err)

	if err := v.moveShares(from, to, amount); err != nil {
		return err
	}
	return v.state.Commit()
}

// TransferFrom moves shares on from's behalf, spending spender's allowance.
func (v *Vault) TransferFrom(ctx context.Context, spender, from, to ids.ShortID, amount *uint256.Int) (err error) {
	_, finish, err := v.startOp(ctx, "transferFrom", attribute.Stringer("spender", spender))
	if err != nil {
		return err
	}
	defer finish(&err)

	if err := v.spendAllowance(from, spender, amount); err != nil {
		return err
	}
	if err := v.moveShares(from, to, amount); err != nil {
		return err
	}
	return v.state.Commit()
}

func (v *Vault) mint(to ids.ShortID, amount *uint256.Int) error {
	total, err := v.state.TotalShares()
	if err != nil {
		return err
	}
	newTotal, err := safemath.Add(total, amount)
	if err != nil {
		return err
	}
	balance, err := v.state.ShareBalance(to)
	if err != nil {
		return err
	}
	newBalance, err := safemath.Add(balance, amount)
	if err != nil {
		return err
	}
	if err := v.state.SetTotalShares(newTotal); err != nil {
		return err
	}
	return v.state.SetShareBalance(to, newBalance)
}

func (v *Vault) burn(from ids.ShortID, amount *uint256.Int) error {
	balance, err := v.state.ShareBalance(from)
	if err != nil {
		return err
	}
	newBalance, err := safemath.Sub(balance, amount)
	if err != nil {
		return fmt.Errorf("%w: %s holds %s shares, burning %s", ErrInsufficientFunds, from, balance.Dec(), amount.Dec())
	}
	total, err := v.state.TotalShares()
	if err != nil {
		return err
	}
	newTotal, err := safemath.Sub(total, amount)
	if err != nil {
		return err
	}
	if err := v.state.SetShareBalance(from, newBalance); err != nil {
		return err
	}
	return v.state.SetTotalShares(newTotal)
}

func (v *Vault) moveShares(from, to ids.ShortID, amount *uint256.Int) error {
	if from == ids.ShortEmpty || to == ids.ShortEmpty {
		return ErrZeroAddress
	}
	fromBalance, err := v.state.ShareBalance(from)
	if err != nil {
		return err
	}
	newFrom, err := safemath.Sub(fromBalance, amount)
	if err != nil {
		return fmt.Errorf("%w: %s holds %s shares, moving %s", ErrInsufficientFunds, from, fromBalance.Dec(), amount.Dec())
	}
	if err := v.state.SetShareBalance(from, newFrom); err != nil {
		return err
	}
	toBalance, err := v.state.ShareBalance(to)
	if err != nil {
		return err
	}
	newTo, err := safemath.Add(toBalance, amount)
	if err != nil {
		return err
	}
	return v.state.SetShareBalance(to, newTo)
}

func (v *Vault) spendAllowance(owner, spender ids.ShortID, amount *uint256.Int) error {
	allowance, err := v.state.ShareAllowance(owner, spender)
	if err != nil {
		return err
	}
	remaining, err := safemath.Sub(allowance, amount)
	if err != nil {
		return fmt.Errorf("%w: %s may spend %s of %s's shares, needs %s", ErrUnauthorized, spender, allowance.Dec(), owner, amount.Dec())
	}
	return v.state.SetShareAllowance(owner, spender, remaining)
}
