// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package reconcile matches the intents each ledger's vault exported with
// the ones other ledgers finalized, and reports what is still in flight.
//
// Reconciliation only observes. It never retries, cancels or finalizes an
// intent.
package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/btree"
	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/vault/utils/timer/mockable"
	"github.com/luxfi/vault/vms/vaultvm/intent"
)

const defaultTreeDegree = 2

var (
	ErrNoSources        = errors.New("no ledgers to reconcile")
	ErrDuplicateSource  = errors.New("ledger registered twice")
	ErrInvalidThreshold = errors.New("stuck threshold must be positive")
	ErrInvalidInterval  = errors.New("reconcile interval must be positive")
)

// Source is one ledger's view, as exposed by its vault.
type Source interface {
	LedgerID() ids.ID
	Intents(ctx context.Context, status intent.Status) ([]*intent.Record, error)
	TotalAssets(ctx context.Context) (*uint256.Int, error)
	MovedAssets(ctx context.Context) (*uint256.Int, error)
}

type Config struct {
	// StuckAfter is the age past which a pending transfer is reported stuck.
	StuckAfter time.Duration
	// Interval between runs of Dispatch.
	Interval time.Duration
}

// Transfer is one intent as seen from both of its ledgers.
type Transfer struct {
	IntentID    ids.ID
	Source      ids.ID
	Destination ids.ID
	Nonce       uint64
	Amount      *uint256.Int
	CreatedAt   time.Time
	Age         time.Duration
}

func (t *Transfer) MarshalJSON() ([]byte, error) {
	type transfer struct {
		IntentID    ids.ID    `json:"intentID"`
		Source      ids.ID    `json:"source"`
		Destination ids.ID    `json:"destination"`
		Nonce       uint64    `json:"nonce"`
		Amount      string    `json:"amount"`
		CreatedAt   time.Time `json:"createdAt"`
		Age         string    `json:"age"`
	}
	return json.Marshal(transfer{
		IntentID:    t.IntentID,
		Source:      t.Source,
		Destination: t.Destination,
		Nonce:       t.Nonce,
		Amount:      t.Amount.Dec(),
		CreatedAt:   t.CreatedAt,
		Age:         t.Age.String(),
	})
}

// older orders transfers oldest first.
func older(a, b *Transfer) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return bytes.Compare(a.IntentID[:], b.IntentID[:]) < 0
}

// LedgerSummary is one ledger's share of the report.
type LedgerSummary struct {
	LedgerID    ids.ID
	TotalAssets *uint256.Int
	MovedAssets *uint256.Int
	// PendingOut is what this ledger exported that no observed ledger has
	// finalized yet.
	PendingOut   *uint256.Int
	PendingCount int
}

func (s *LedgerSummary) MarshalJSON() ([]byte, error) {
	type summary struct {
		LedgerID     ids.ID `json:"ledgerID"`
		TotalAssets  string `json:"totalAssets"`
		MovedAssets  string `json:"movedAssets"`
		PendingOut   string `json:"pendingOut"`
		PendingCount int    `json:"pendingCount"`
	}
	return json.Marshal(summary{
		LedgerID:     s.LedgerID,
		TotalAssets:  s.TotalAssets.Dec(),
		MovedAssets:  s.MovedAssets.Dec(),
		PendingOut:   s.PendingOut.Dec(),
		PendingCount: s.PendingCount,
	})
}

type Report struct {
	At        time.Time        `json:"at"`
	Ledgers   []*LedgerSummary `json:"ledgers"`
	Delivered int              `json:"delivered"`
	// Pending transfers were exported but not finalized by any observed
	// ledger, oldest first.
	Pending []*Transfer `json:"pending"`
	// Stuck is the prefix of Pending older than the configured threshold.
	Stuck []*Transfer `json:"stuck"`
	// Orphaned transfers were finalized on a destination but their source,
	// though observed, holds no record of exporting them.
	Orphaned []*Transfer `json:"orphaned"`
}

// InFlight sums the pending amounts across every ledger.
func (r *Report) InFlight() *uint256.Int {
	total := new(uint256.Int)
	for _, l := range r.Ledgers {
		total.Add(total, l.PendingOut)
	}
	return total
}

type Reconciler struct {
	cfg     Config
	log     log.Logger
	clock   *mockable.Clock
	metrics *Metrics
	sources []Source
}

func New(
	cfg Config,
	logger log.Logger,
	clock *mockable.Clock,
	m *Metrics,
	sources ...Source,
) (*Reconciler, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	if cfg.StuckAfter <= 0 {
		return nil, ErrInvalidThreshold
	}
	seen := make(map[ids.ID]struct{}, len(sources))
	for _, s := range sources {
		id := s.LedgerID()
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSource, id)
		}
		seen[id] = struct{}{}
	}
	if logger == nil {
		logger = log.NoLog{}
	}
	if clock == nil {
		clock = &mockable.Clock{}
	}
	return &Reconciler{
		cfg:     cfg,
		log:     logger,
		clock:   clock,
		metrics: m,
		sources: sources,
	}, nil
}

type scan struct {
	ledger  ids.ID
	records []*intent.Record
	total   *uint256.Int
	moved   *uint256.Int
}

func (r *Reconciler) scan(ctx context.Context) ([]scan, error) {
	scans := make([]scan, len(r.sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, source := range r.sources {
		g.Go(func() error {
			records, err := source.Intents(ctx, intent.StatusUnknown)
			if err != nil {
				return fmt.Errorf("couldn't list intents of %s: %w", source.LedgerID(), err)
			}
			total, err := source.TotalAssets(ctx)
			if err != nil {
				return fmt.Errorf("couldn't read assets of %s: %w", source.LedgerID(), err)
			}
			moved, err := source.MovedAssets(ctx)
			if err != nil {
				return fmt.Errorf("couldn't read moved assets of %s: %w", source.LedgerID(), err)
			}
			scans[i] = scan{
				ledger:  source.LedgerID(),
				records: records,
				total:   total,
				moved:   moved,
			}
			return nil
		})
	}
	return scans, g.Wait()
}

// Reconcile scans every source once and matches their intents.
func (r *Reconciler) Reconcile(ctx context.Context) (*Report, error) {
	scans, err := r.scan(ctx)
	if err != nil {
		r.metrics.markFailure()
		return nil, err
	}

	now := r.clock.Time()
	report := &Report{At: now}

	observed := make(map[ids.ID]*LedgerSummary, len(scans))
	exported := make(map[ids.ID]struct{})
	finalized := make(map[ids.ID]*intent.Record)
	for _, s := range scans {
		summary := &LedgerSummary{
			LedgerID:    s.ledger,
			TotalAssets: s.total,
			MovedAssets: s.moved,
			PendingOut:  new(uint256.Int),
		}
		report.Ledgers = append(report.Ledgers, summary)
		observed[s.ledger] = summary

		for _, record := range s.records {
			switch record.Direction {
			case intent.Outbound:
				exported[record.Intent.ID()] = struct{}{}
			case intent.Inbound:
				if record.Status == intent.StatusFinalized {
					finalized[record.Intent.ID()] = record
				}
			}
		}
	}

	pending := btree.NewG(defaultTreeDegree, older)
	for _, s := range scans {
		for _, record := range s.records {
			if record.Direction != intent.Outbound || record.Status != intent.StatusInFlight {
				continue
			}
			id := record.Intent.ID()
			if _, ok := finalized[id]; ok {
				report.Delivered++
				continue
			}
			t := r.transfer(record, now)
			pending.ReplaceOrInsert(t)

			summary := observed[s.ledger]
			summary.PendingOut.Add(summary.PendingOut, t.Amount)
			summary.PendingCount++
		}
	}
	pending.Ascend(func(t *Transfer) bool {
		report.Pending = append(report.Pending, t)
		if t.Age >= r.cfg.StuckAfter {
			report.Stuck = append(report.Stuck, t)
		}
		return true
	})

	for id, record := range finalized {
		if _, ok := observed[record.Intent.SourceLedger]; !ok {
			continue
		}
		if _, ok := exported[id]; ok {
			continue
		}
		report.Orphaned = append(report.Orphaned, r.transfer(record, now))
	}

	r.metrics.observe(report)
	r.log.Debug("reconciled ledgers",
		log.Int("ledgers", len(report.Ledgers)),
		log.Int("delivered", report.Delivered),
		log.Int("pending", len(report.Pending)),
		log.Int("stuck", len(report.Stuck)),
		log.Int("orphaned", len(report.Orphaned)),
	)
	for _, t := range report.Stuck {
		r.log.Warn("transfer stuck in flight",
			log.Stringer("intentID", t.IntentID),
			log.Stringer("source", t.Source),
			log.Stringer("destination", t.Destination),
			log.Duration("age", t.Age),
		)
	}
	for _, t := range report.Orphaned {
		r.log.Error("finalized transfer has no export record",
			log.Stringer("intentID", t.IntentID),
			log.Stringer("source", t.Source),
			log.Stringer("destination", t.Destination),
		)
	}
	return report, nil
}

func (r *Reconciler) transfer(record *intent.Record, now time.Time) *Transfer {
	in := &record.Intent
	createdAt := time.Unix(int64(record.CreatedAt), 0)
	age := now.Sub(createdAt)
	if age < 0 {
		age = 0
	}
	return &Transfer{
		IntentID:    in.ID(),
		Source:      in.SourceLedger,
		Destination: in.DestinationLedger,
		Nonce:       in.Nonce,
		Amount:      in.Amount(),
		CreatedAt:   createdAt,
		Age:         age,
	}
}

// Dispatch reconciles every Interval until ctx is done. A failed run is
// logged and retried on the next tick.
func (r *Reconciler) Dispatch(ctx context.Context) error {
	if r.cfg.Interval <= 0 {
		return ErrInvalidInterval
	}
	t := time.NewTicker(r.cfg.Interval)
	defer t.Stop()

	for {
		if _, err := r.Reconcile(ctx); err != nil && ctx.Err() == nil {
			r.log.Warn("reconciliation failed",
				log.Err(err),
			)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
