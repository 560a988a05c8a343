// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reconcile

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const ledgerLabel = "ledger"

// Metrics publishes the latest report. A nil *Metrics records nothing.
type Metrics struct {
	runs          prometheus.Counter
	failures      prometheus.Counter
	lastRun       prometheus.Gauge
	delivered     prometheus.Gauge
	stuck         prometheus.Gauge
	orphaned      prometheus.Gauge
	pending       *prometheus.GaugeVec
	pendingAssets *prometheus.GaugeVec
}

func NewMetrics(namespace string, registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_runs",
			Help:      "Number of completed reconciliation runs",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_failures",
			Help:      "Number of reconciliation runs that could not scan every ledger",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_last_run_timestamp",
			Help:      "Unix time of the last completed reconciliation run",
		}),
		delivered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_delivered",
			Help:      "Exported intents finalized on their destination",
		}),
		stuck: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_stuck",
			Help:      "Pending intents older than the stuck threshold",
		}),
		orphaned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_orphaned",
			Help:      "Finalized intents with no export record on their source",
		}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_pending",
			Help:      "Exported intents not yet finalized, by source ledger",
		}, []string{ledgerLabel}),
		pendingAssets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_pending_assets",
			Help:      "Assets exported but not yet finalized, by source ledger",
		}, []string{ledgerLabel}),
	}

	err := errors.Join(
		registerer.Register(m.runs),
		registerer.Register(m.failures),
		registerer.Register(m.lastRun),
		registerer.Register(m.delivered),
		registerer.Register(m.stuck),
		registerer.Register(m.orphaned),
		registerer.Register(m.pending),
		registerer.Register(m.pendingAssets),
	)
	return m, err
}

func (m *Metrics) markFailure() {
	if m == nil {
		return
	}
	m.failures.Inc()
}

func (m *Metrics) observe(r *Report) {
	if m == nil {
		return
	}
	m.runs.Inc()
	m.lastRun.Set(float64(r.At.Unix()))
	m.delivered.Set(float64(r.Delivered))
	m.stuck.Set(float64(len(r.Stuck)))
	m.orphaned.Set(float64(len(r.Orphaned)))
	for _, l := range r.Ledgers {
		ledger := l.LedgerID.String()
		m.pending.WithLabelValues(ledger).Set(float64(l.PendingCount))
		m.pendingAssets.WithLabelValues(ledger).Set(l.PendingOut.Float64())
	}
}
