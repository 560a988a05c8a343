// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"time"

	"github.com/holiman/uint256"

	"github.com/luxfi/metric"

	utilmetric "github.com/luxfi/vault/utils/metric"
)

const (
	opLabel     = "op"
	kindLabel   = "kind"
	ledgerLabel = "ledger"
)

var (
	_ Metrics = (*ledgerMetrics)(nil)
	_ Metrics = noop{}
)

// Metrics observes vault operations on one ledger.
type Metrics interface {
	// MarkSuccess records a committed operation and how long it took.
	MarkSuccess(op string, took time.Duration)
	// MarkFailure records a rejected operation by error kind.
	MarkFailure(op string, kind string)
	// SetTotals publishes the vault's latest share supply and moved assets.
	SetTotals(totalShares, movedAssets *uint256.Int)
	// AddInFlight adjusts the count of outbound intents exported by this
	// instance.
	AddInFlight(delta float64)
}

// Set holds the collectors shared by every vault registered in one process.
// Each vault reports through ForLedger so that ledgers differ only by label.
type Set struct {
	ops      metric.CounterVec
	failures metric.CounterVec
	latency  utilmetric.Averager

	totalShares metric.GaugeVec
	movedAssets metric.GaugeVec
	inFlight    metric.GaugeVec
}

// New registers the vault collectors under [namespace].
func New(namespace string, registry metric.Registry) *Set {
	metricsInstance := metric.NewWithRegistry(namespace, registry)

	return &Set{
		ops: metricsInstance.NewCounterVec(
			"ops_committed",
			"Number of committed vault operations",
			[]string{ledgerLabel, opLabel},
		),
		failures: metricsInstance.NewCounterVec(
			"ops_failed",
			"Number of rejected vault operations",
			[]string{ledgerLabel, opLabel, kindLabel},
		),
		latency: utilmetric.NewAverager(
			namespace,
			"op_duration",
			"time spent in committed vault operations in nanoseconds",
			registry,
		),
		totalShares: metricsInstance.NewGaugeVec(
			"total_shares",
			"Outstanding vault shares",
			[]string{ledgerLabel},
		),
		movedAssets: metricsInstance.NewGaugeVec(
			"moved_assets",
			"Net assets imported through rebalances",
			[]string{ledgerLabel},
		),
		inFlight: metricsInstance.NewGaugeVec(
			"intents_exported",
			"Outbound intents exported by this vault",
			[]string{ledgerLabel},
		),
	}
}

// ForLedger returns the Metrics a single vault instance reports through.
func (s *Set) ForLedger(ledger string) Metrics {
	return &ledgerMetrics{set: s, ledger: ledger}
}

type ledgerMetrics struct {
	set    *Set
	ledger string
}

func (m *ledgerMetrics) MarkSuccess(op string, took time.Duration) {
	m.set.ops.With(metric.Labels{ledgerLabel: m.ledger, opLabel: op}).Inc()
	m.set.latency.Observe(float64(took))
}

func (m *ledgerMetrics) MarkFailure(op string, kind string) {
	m.set.failures.With(metric.Labels{ledgerLabel: m.ledger, opLabel: op, kindLabel: kind}).Inc()
}

func (m *ledgerMetrics) SetTotals(totalShares, movedAssets *uint256.Int) {
	labels := metric.Labels{ledgerLabel: m.ledger}
	m.set.totalShares.With(labels).Set(totalShares.Float64())
	m.set.movedAssets.With(labels).Set(movedAssets.Float64())
}

func (m *ledgerMetrics) AddInFlight(delta float64) {
	m.set.inFlight.With(metric.Labels{ledgerLabel: m.ledger}).Add(delta)
}

type noop struct{}

// NewNoop returns Metrics that record nothing.
func NewNoop() Metrics {
	return noop{}
}

func (noop) MarkSuccess(string, time.Duration)    {}
func (noop) MarkFailure(string, string)           {}
func (noop) SetTotals(*uint256.Int, *uint256.Int) {}
func (noop) AddInFlight(float64)                  {}
