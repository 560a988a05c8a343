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
	"github.com/luxfi/vault/vms/vaultvm/auth"
	"github.com/luxfi/vault/vms/vaultvm/config"
	"github.com/luxfi/vault/vms/vaultvm/events"
	"github.com/luxfi/vault/vms/vaultvm/intent"

	safemath "github.com/luxfi/vault/utils/math"
)

// RebalanceWithdraw exports assets from this ledger to destination by
// handing them to the transport. Only a rebalancer may call it.
//
// The export may take any of the vault's balance, not only the part backing
// shares. movedAssets is reduced first, on the assumption that previously
// imported assets leave before share-backing ones. No shares are minted or
// burned. If the transport refuses the hand-off nothing changes.
//
// Once this returns, the assets belong to no vault until the destination
// finalizes the returned intent, and nothing here can recover them.
func (v *Vault) RebalanceWithdraw(ctx context.Context, caller ids.ShortID, assets *uint256.Int, destination ids.ID) (_ *intent.TransferIntent, err error) {
	ctx, finish, err := v.startOp(ctx, "rebalanceWithdraw",
		attribute.Stringer("caller", caller),
		attribute.Stringer("destination", destination),
	)
	if err != nil {
		return nil, err
	}
	defer finish(&err)

	if err := v.gate.Authorize(caller, auth.RoleRebalancer); err != nil {
		v.log.Warn("rejected rebalance export",
			log.Stringer("caller", caller),
			log.Err(err),
		)
		return nil, err
	}
	if assets == nil || assets.IsZero() {
		return nil, ErrInvalidAmount
	}
	if destination == v.cfg.LedgerID {
		return nil, fmt.Errorf("%w: %s", ErrSameLedger, destination)
	}

	held, err := v.ledger.BalanceOf(ctx, v.cfg.VaultAddress)
	if err != nil {
		return nil, fmt.Errorf("couldn't read vault balance: %w", err)
	}
	if assets.Gt(held) {
		return nil, fmt.Errorf("%w: vault holds %s, exporting %s", ErrInsufficientFunds, held.Dec(), assets.Dec())
	}

	moved, err := v.state.MovedAssets()
	if err != nil {
		return nil, err
	}
	if err := v.state.SetMovedAssets(safemath.SubFloor(moved, assets)); err != nil {
		return nil, err
	}
	nonce, err := v.state.NextNonce()
	if err != nil {
		return nil, err
	}
	in, err := intent.New(
		nonce,
		v.cfg.AssetID,
		v.cfg.LedgerID,
		destination,
		v.cfg.VaultAddress,
		v.cfg.VaultAddress,
		assets,
	)
	if err != nil {
		return nil, err
	}
	now := v.clock.Unix()
	record := &intent.Record{
		Intent:    *in,
		Status:    intent.StatusCreated,
		Direction: intent.Outbound,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = v.emit(&events.Event{
		Kind:     events.RebalanceInitiated,
		Caller:   caller,
		Ledger:   destination,
		IntentID: in.ID(),
		Nonce:    nonce,
		Assets:   events.Amount(assets),
	})
	if err != nil {
		return nil, err
	}

	relayID, err := v.handOff(ctx, in)
	if err != nil {
		return nil, err
	}
	record.RelayID = relayID
	if err := record.Advance(intent.StatusInFlight, now); err != nil {
		return nil, err
	}
	if err := v.state.PutIntent(record); err != nil {
		return nil, err
	}
	if err := v.state.Commit(); err != nil {
		return nil, err
	}

	v.metrics.AddInFlight(1)
	v.log.Info("rebalance initiated",
		log.Stringer("intentID", in.ID()),
		log.Stringer("destination", destination),
		log.Uint64("nonce", nonce),
		log.String("assets", assets.Dec()),
	)
	return in, nil
}

// handOff approves the transport escrow for the intent amount and asks the
// transport to take it. A failed send leaves no allowance behind.
func (v *Vault) handOff(ctx context.Context, in *intent.TransferIntent) (ids.ID, error) {
	if err := v.ledger.Approve(ctx, v.cfg.VaultAddress, v.escrow, in.Amount()); err != nil {
		return ids.Empty, fmt.Errorf("couldn't approve transport escrow: %w", err)
	}
	relayID, err := v.transport.Send(ctx, in)
	if err == nil {
		return relayID, nil
	}
	if resetErr := v.ledger.Approve(ctx, v.cfg.VaultAddress, v.escrow, new(uint256.Int)); resetErr != nil {
		v.log.Error("couldn't reset transport escrow allowance",
			log.Stringer("intentID", in.ID()),
			log.Err(resetErr),
		)
	}
	return ids.Empty, fmt.Errorf("transport refused intent: %w", err)
}

// CompleteRebalance imports the assets attested by proof into this ledger.
//
// The proof must name this ledger, this vault and exactly assets. Each intent
// is finalized at most once; a replay fails with ErrAlreadyFinalized. The
// transport must verify the proof and the vault's balance must grow by at
// least assets, or nothing is recorded. No shares are minted: receiver is
// recorded for audit only, since the shares these assets back live on the
// source ledger.
func (v *Vault) CompleteRebalance(ctx context.Context, caller ids.ShortID, assets *uint256.Int, receiver ids.ShortID, proof []byte) (err error) {
	ctx, finish, err := v.startOp(ctx, "completeRebalance",
		attribute.Stringer("caller", caller),
	)
	if err != nil {
		return err
	}
	defer finish(&err)

	if v.cfg.FinalizeAuthorization == config.FinalizeByRebalancer {
		if err := v.gate.Authorize(caller, auth.RoleRebalancer); err != nil {
			v.log.Warn("rejected rebalance finalization",
				log.Stringer("caller", caller),
				log.Err(err),
			)
			return err
		}
	}
	if assets == nil || assets.IsZero() {
		return ErrInvalidAmount
	}

	p, err := intent.ParseProof(proof)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProofInvalid, err)
	}
	in := p.Intent()
	intentID := in.ID()
	switch {
	case in.DestinationLedger != v.cfg.LedgerID:
		return fmt.Errorf("%w: intent %s targets ledger %s", ErrProofInvalid, intentID, in.DestinationLedger)
	case in.Recipient != v.cfg.VaultAddress:
		return fmt.Errorf("%w: intent %s pays %s", ErrProofInvalid, intentID, in.Recipient)
	case in.Asset != v.cfg.AssetID:
		return fmt.Errorf("%w: intent %s moves asset %s", ErrProofInvalid, intentID, in.Asset)
	case !in.Amount().Eq(assets):
		return fmt.Errorf("%w: intent %s carries %s, claimed %s", ErrProofInvalid, intentID, in.Amount().Dec(), assets.Dec())
	}

	consumed, err := v.state.IsConsumed(intentID)
	if err != nil {
		return err
	}
	if consumed {
		return fmt.Errorf("%w: %s", ErrAlreadyFinalized, intentID)
	}
	if err := v.state.MarkConsumed(intentID); err != nil {
		return err
	}

	moved, err := v.state.MovedAssets()
	if err != nil {
		return err
	}
	newMoved, err := safemath.Add(moved, assets)
	if err != nil {
		return err
	}
	if err := v.state.SetMovedAssets(newMoved); err != nil {
		return err
	}
	now := v.clock.Unix()
	err = v.state.PutIntent(&intent.Record{
		Intent:    *in,
		Status:    intent.StatusFinalized,
		Direction: intent.Inbound,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return err
	}
	err = v.emit(&events.Event{
		Kind:     events.RebalanceCompleted,
		Caller:   caller,
		Receiver: receiver,
		Ledger:   in.SourceLedger,
		IntentID: intentID,
		Nonce:    in.Nonce,
		Assets:   events.Amount(assets),
	})
	if err != nil {
		return err
	}

	before, err := v.ledger.BalanceOf(ctx, v.cfg.VaultAddress)
	if err != nil {
		return fmt.Errorf("couldn't read vault balance: %w", err)
	}
	receipt, err := v.transport.VerifyAndRelay(ctx, proof)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProofInvalid, err)
	}
	switch {
	case receipt == nil || !receipt.Verified:
		return fmt.Errorf("%w: transport did not verify intent %s", ErrProofInvalid, intentID)
	case receipt.IntentID != intentID:
		return fmt.Errorf("%w: transport relayed %s for intent %s", ErrProofInvalid, receipt.IntentID, intentID)
	case receipt.Amount == nil || !receipt.Amount.Eq(assets):
		return fmt.Errorf("%w: transport relayed a different amount for intent %s", ErrProofInvalid, intentID)
	}
	after, err := v.ledger.BalanceOf(ctx, v.cfg.VaultAddress)
	if err != nil {
		return fmt.Errorf("couldn't read vault balance: %w", err)
	}
	expected, err := safemath.Add(before, assets)
	if err != nil {
		return err
	}
	if after.Lt(expected) {
		return fmt.Errorf("%w: balance went from %s to %s, expected at least %s", ErrInsufficientFunds, before.Dec(), after.Dec(), expected.Dec())
	}
	if err := v.state.Commit(); err != nil {
		return err
	}

	v.log.Info("rebalance completed",
		log.Stringer("intentID", intentID),
		log.Stringer("source", in.SourceLedger),
		log.Stringer("receiver", receiver),
		log.String("assets", assets.Dec()),
	)
	return nil
}
