// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vaultvm implements a share vault whose backing assets can be moved
// between independent ledgers.
//
// One Vault instance runs per ledger. Shares are minted and burned against
// the assets the instance holds on its own ledger and never leave it. Assets
// leave through RebalanceWithdraw, which hands them to a bridge.Transport,
// and arrive through CompleteRebalance, which consumes the transport's proof.
// The two halves run on different ledgers with no coordination; in between,
// the assets are in flight and counted by neither vault.
package vaultvm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/version"
	"github.com/luxfi/vault/utils/timer/mockable"
	"github.com/luxfi/vault/vms/vaultvm/auth"
	"github.com/luxfi/vault/vms/vaultvm/bridge"
	"github.com/luxfi/vault/vms/vaultvm/config"
	"github.com/luxfi/vault/vms/vaultvm/events"
	"github.com/luxfi/vault/vms/vaultvm/intent"
	"github.com/luxfi/vault/vms/vaultvm/metrics"
	"github.com/luxfi/vault/vms/vaultvm/shares"
	"github.com/luxfi/vault/vms/vaultvm/state"
	"github.com/luxfi/vault/vms/vaultvm/token"

	oteltrace "go.opentelemetry.io/otel/trace"

	safemath "github.com/luxfi/vault/utils/math"
)

const tracerName = "github.com/luxfi/vault/vms/vaultvm"

var (
	Version = &version.Semantic{
		Major: 1,
		Minor: 0,
		Patch: 0,
	}

	errMissingLedger    = errors.New("vault requires a token ledger")
	errMissingTransport = errors.New("vault requires a transport")
	errMissingEscrow    = errors.New("vault requires the transport escrow address")
)

// Params are the collaborators and settings of one Vault.
type Params struct {
	Config config.Config
	DB     database.Database

	Ledger    token.Ledger
	Transport bridge.Transport
	// Escrow is the transport's account on this ledger. Exported assets are
	// approved to it before the transport is asked to send.
	Escrow ids.ShortID

	Log     log.Logger
	Metrics metrics.Metrics
	// Yield defaults to a FixedRate built from the config.
	Yield shares.YieldModel
	Clock *mockable.Clock
}

type Vault struct {
	cfg    config.Config
	log    log.Logger
	clock  *mockable.Clock
	tracer oteltrace.Tracer

	ledger    token.Ledger
	transport bridge.Transport
	escrow    ids.ShortID

	gate    auth.Gate
	state   *state.State
	yield   shares.YieldModel
	metrics metrics.Metrics

	lock sync.RWMutex
}

// New opens the vault state in p.DB, installing the configured owner,
// rebalancers and treasury on first use.
func New(p Params) (*Vault, error) {
	if err := p.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vault config: %w", err)
	}
	switch {
	case p.Ledger == nil:
		return nil, errMissingLedger
	case p.Transport == nil:
		return nil, errMissingTransport
	case p.Escrow == ids.ShortEmpty:
		return nil, errMissingEscrow
	}

	v := &Vault{
		cfg:       p.Config,
		log:       p.Log,
		clock:     p.Clock,
		tracer:    otel.Tracer(tracerName),
		ledger:    p.Ledger,
		transport: p.Transport,
		escrow:    p.Escrow,
		state:     state.New(p.DB),
		yield:     p.Yield,
		metrics:   p.Metrics,
	}
	if v.log == nil {
		v.log = log.NoLog{}
	}
	if v.clock == nil {
		v.clock = &mockable.Clock{}
	}
	if v.metrics == nil {
		v.metrics = metrics.NewNoop()
	}
	if v.yield == nil {
		rate, err := shares.NewFixedRate(p.Config.ProfitBps, p.Config.FeeBps)
		if err != nil {
			return nil, err
		}
		v.yield = rate
	}

	gate, err := auth.New(p.Config.Authorization, v.state)
	if err != nil {
		return nil, err
	}
	v.gate = gate

	if err := v.bootstrap(); err != nil {
		return nil, fmt.Errorf("couldn't initialize vault state: %w", err)
	}

	v.log.Info("vault initialized",
		log.Stringer("ledger", v.cfg.LedgerID),
		log.Stringer("address", v.cfg.VaultAddress),
		log.Stringer("asset", v.cfg.AssetID),
		log.String("authorization", string(gate.Policy())),
		log.String("finalizeAuthorization", string(v.cfg.FinalizeAuthorization)),
	)
	return v, nil
}

func (v *Vault) bootstrap() error {
	defer v.state.Abort()

	if err := v.gate.Initialize(v.cfg.Owner, v.cfg.Rebalancers); err != nil {
		return err
	}
	treasury, err := v.state.Treasury()
	if err != nil {
		return err
	}
	if treasury == ids.ShortEmpty {
		if err := v.state.SetTreasury(v.cfg.Treasury); err != nil {
			return err
		}
	}
	return v.state.Commit()
}

func (v *Vault) LedgerID() ids.ID {
	return v.cfg.LedgerID
}

func (v *Vault) Address() ids.ShortID {
	return v.cfg.VaultAddress
}

func (v *Vault) Asset() ids.ID {
	return v.cfg.AssetID
}

func (v *Vault) Config() config.Config {
	return v.cfg
}

// Close releases the vault's state. Pending uncommitted writes are dropped.
func (v *Vault) Close() error {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.state.Close()
}

// startOp opens a traced, serialized mutating call. The returned finish must
// be deferred with a pointer to the call's named error.
func (v *Vault) startOp(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error), error) {
	ctx, span := v.tracer.Start(ctx, "vault."+op, oteltrace.WithAttributes(
		append(attrs, attribute.Stringer("ledger", v.cfg.LedgerID))...,
	))
	ctx, unlock, err := v.enter(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		v.metrics.MarkFailure(op, string(KindOf(err)))
		return ctx, nil, err
	}

	start := v.clock.Time()
	return ctx, func(errp *error) {
		defer span.End()
		defer unlock()

		// Nothing a failed call wrote survives it.
		v.state.Abort()

		if err := *errp; err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			v.metrics.MarkFailure(op, string(KindOf(err)))
			v.log.Debug("vault call rejected",
				log.String("op", op),
				log.String("kind", string(KindOf(err))),
				log.Err(err),
			)
			return
		}
		v.metrics.MarkSuccess(op, v.clock.Time().Sub(start))
		v.publishTotals()
	}, nil
}

func (v *Vault) publishTotals() {
	total, err := v.state.TotalShares()
	if err != nil {
		return
	}
	moved, err := v.state.MovedAssets()
	if err != nil {
		return
	}
	v.metrics.SetTotals(total, moved)
}

func (v *Vault) emit(e *events.Event) error {
	e.Timestamp = v.clock.Unix()
	return v.state.AppendEvent(e)
}

// pool snapshots the live totals the exchange rate is computed from.
func (v *Vault) pool(ctx context.Context) (shares.Pool, error) {
	assets, err := v.ledger.BalanceOf(ctx, v.cfg.VaultAddress)
	if err != nil {
		return shares.Pool{}, fmt.Errorf("couldn't read vault balance: %w", err)
	}
	total, err := v.state.TotalShares()
	if err != nil {
		return shares.Pool{}, err
	}
	return shares.Pool{TotalAssets: assets, TotalShares: total}, nil
}

// TotalAssets is the vault's live balance on the backing ledger.
func (v *Vault) TotalAssets(ctx context.Context) (*uint256.Int, error) {
	return v.ledger.BalanceOf(ctx, v.cfg.VaultAddress)
}

func (v *Vault) TotalSupply(ctx context.Context) (*uint256.Int, error) {
	defer v.view(ctx)()
	return v.state.TotalShares()
}

func (v *Vault) BalanceOf(ctx context.Context, account ids.ShortID) (*uint256.Int, error) {
	defer v.view(ctx)()
	return v.state.ShareBalance(account)
}

func (v *Vault) Allowance(ctx context.Context, owner, spender ids.ShortID) (*uint256.Int, error) {
	defer v.view(ctx)()
	return v.state.ShareAllowance(owner, spender)
}

// MovedAssets is the advisory net of assets imported minus assets exported,
// floored at zero.
func (v *Vault) MovedAssets(ctx context.Context) (*uint256.Int, error) {
	defer v.view(ctx)()
	return v.state.MovedAssets()
}

func (v *Vault) Treasury(ctx context.Context) (ids.ShortID, error) {
	defer v.view(ctx)()
	return v.state.Treasury()
}

func (v *Vault) Owner(ctx context.Context) (ids.ShortID, error) {
	defer v.view(ctx)()
	return v.gate.Owner()
}

func (v *Vault) Members(ctx context.Context, role auth.Role) ([]ids.ShortID, error) {
	defer v.view(ctx)()
	return v.gate.Members(role)
}

func (v *Vault) ConvertToShares(ctx context.Context, assets *uint256.Int) (*uint256.Int, error) {
	defer v.view(ctx)()
	p, err := v.pool(ctx)
	if err != nil {
		return nil, err
	}
	return p.ToShares(assets, safemath.Floor)
}

func (v *Vault) ConvertToAssets(ctx context.Context, amount *uint256.Int) (*uint256.Int, error) {
	defer v.view(ctx)()
	p, err := v.pool(ctx)
	if err != nil {
		return nil, err
	}
	return p.ToAssets(amount, safemath.Floor)
}

// PreviewDeposit returns the shares Deposit would mint for assets right now.
func (v *Vault) PreviewDeposit(ctx context.Context, assets *uint256.Int) (*uint256.Int, error) {
	defer v.view(ctx)()
	p, err := v.pool(ctx)
	if err != nil {
		return nil, err
	}
	return p.SharesForDeposit(assets)
}

// PreviewWithdraw returns the shares Withdraw would burn for assets right now.
func (v *Vault) PreviewWithdraw(ctx context.Context, assets *uint256.Int) (*uint256.Int, error) {
	defer v.view(ctx)()
	p, err := v.pool(ctx)
	if err != nil {
		return nil, err
	}
	return p.SharesForWithdraw(assets)
}

// MaxWithdraw returns the assets owner's shares can currently redeem.
func (v *Vault) MaxWithdraw(ctx context.Context, owner ids.ShortID) (*uint256.Int, error) {
	defer v.view(ctx)()
	p, err := v.pool(ctx)
	if err != nil {
		return nil, err
	}
	balance, err := v.state.ShareBalance(owner)
	if err != nil {
		return nil, err
	}
	return p.MaxWithdraw(balance)
}

// Intent returns the local record of an intent this vault exported or
// imported.
func (v *Vault) Intent(ctx context.Context, intentID ids.ID) (*intent.Record, error) {
	defer v.view(ctx)()
	r, err := v.state.GetIntent(intentID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrIntentNotFound, intentID)
	}
	return r, err
}

// Intents lists local intent records in status, or all of them for
// StatusUnknown.
func (v *Vault) Intents(ctx context.Context, status intent.Status) ([]*intent.Record, error) {
	defer v.view(ctx)()
	return v.state.Intents(status)
}

// Events returns up to limit events starting at sequence number from.
func (v *Vault) Events(ctx context.Context, from uint64, limit int) ([]*events.Event, error) {
	defer v.view(ctx)()
	return v.state.Events(from, limit)
}
