// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reconcile

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/log"
)

type report struct {
	Delivered int `json:"delivered"`
	Pending   []struct {
		Amount string `json:"amount"`
	} `json:"pending"`
	Stuck    []json.RawMessage `json:"stuck"`
	Orphaned []json.RawMessage `json:"orphaned"`
	Ledgers  []struct {
		PendingOut   string `json:"pendingOut"`
		PendingCount int    `json:"pendingCount"`
	} `json:"ledgers"`
}

func run(t *testing.T, args ...string) *report {
	t.Helper()
	require := require.New(t)

	c := Command(log.NoLog{})
	out := &bytes.Buffer{}
	c.SetOut(out)
	c.SetArgs(args)
	require.NoError(c.Execute())

	r := &report{}
	require.NoError(json.Unmarshal(out.Bytes(), r))
	return r
}

func TestReconcileDelivered(t *testing.T) {
	require := require.New(t)

	r := run(t, "--deposit", "300")
	require.Equal(1, r.Delivered)
	require.Empty(r.Pending)
	require.Empty(r.Stuck)
	require.Empty(r.Orphaned)
	require.Len(r.Ledgers, 2)
	require.Equal("0", r.Ledgers[0].PendingOut)
}

func TestReconcileHeldIntent(t *testing.T) {
	require := require.New(t)

	r := run(t, "--deposit", "300", "--rebalance", "120", "--hold", "--stuck-after", "30m")
	require.Zero(r.Delivered)
	require.Len(r.Pending, 1)
	require.Equal("120", r.Pending[0].Amount)
	require.Empty(r.Stuck)
	require.Equal("120", r.Ledgers[0].PendingOut)
	require.Equal(1, r.Ledgers[0].PendingCount)

	r = run(t, "--deposit", "300", "--rebalance", "120", "--hold", "--stuck-after", "30m", "--age", "1h")
	require.Len(r.Stuck, 1)
}

func TestReconcileWritesOutputFile(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "report.json")
	c := Command(log.NoLog{})
	out := &bytes.Buffer{}
	c.SetOut(out)
	c.SetArgs([]string{"--output", path})
	require.NoError(c.Execute())
	require.Zero(out.Len())

	data, err := os.ReadFile(path)
	require.NoError(err)
	r := &report{}
	require.NoError(json.Unmarshal(data, r))
	require.Equal(1, r.Delivered)
}
