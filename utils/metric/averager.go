// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package utilmetric

import (
	"strings"

	metric "github.com/luxfi/metric"
)

// Averager tracks the count and sum of observations so that a dashboard can
// derive their mean.
type Averager interface {
	Observe(float64)
}

type averager struct {
	count metric.Counter
	sum   metric.Gauge
}

func NewAverager(namespace, name, desc string, registry metric.Registry) Averager {
	metricsInstance := metric.NewWithRegistry(namespace, registry)

	return &averager{
		count: metricsInstance.NewCounter(
			AppendNamespace(name, "count"),
			"Total # of observations of "+desc,
		),
		sum: metricsInstance.NewGauge(
			AppendNamespace(name, "sum"),
			"Sum of "+desc,
		),
	}
}

func (a *averager) Observe(v float64) {
	a.count.Inc()
	a.sum.Add(v)
}

// AppendNamespace joins non-empty name segments with underscores.
func AppendNamespace(prefix, suffix string) string {
	switch {
	case len(prefix) == 0:
		return suffix
	case len(suffix) == 0:
		return prefix
	default:
		return strings.Join([]string{prefix, suffix}, "_")
	}
}
