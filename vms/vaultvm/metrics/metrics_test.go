// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/metric"
)

func TestLedgersShareCollectors(t *testing.T) {
	set := New("vault", metric.NewRegistry())

	require.NotPanics(t, func() {
		for _, ledger := range []string{"a", "b"} {
			m := set.ForLedger(ledger)
			m.MarkSuccess("deposit", time.Millisecond)
			m.MarkFailure("withdraw", "insufficient-funds")
			m.SetTotals(uint256.NewInt(10), uint256.NewInt(0))
			m.AddInFlight(1)
		}
	})
}
