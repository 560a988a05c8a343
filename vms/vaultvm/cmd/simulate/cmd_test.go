// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package simulate

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/vault/utils/compression"
)

func TestSimulateExportsEvents(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "events.zst")
	c := Command(log.NoLog{})
	out := &bytes.Buffer{}
	c.SetOut(out)
	c.SetArgs([]string{
		"--ledgers", "3",
		"--deposit", "500",
		"--rebalance", "200",
		"--to", "2",
		"--export", path,
	})
	require.NoError(c.Execute())

	var result struct {
		IntentID ids.ID `json:"intentID"`
		Shares   string `json:"shares"`
	}
	require.NoError(json.Unmarshal(out.Bytes(), &result))
	require.Equal("500", result.Shares)

	compressed, err := os.ReadFile(path)
	require.NoError(err)
	decompressor, err := compression.NewZstdCompressor(maxExportSize)
	require.NoError(err)
	data, err := decompressor.Decompress(compressed)
	require.NoError(err)

	var logs []struct {
		LedgerID ids.ID `json:"ledgerID"`
		Events   []struct {
			Kind     string `json:"kind"`
			IntentID ids.ID `json:"intentID"`
		} `json:"events"`
	}
	require.NoError(json.Unmarshal(data, &logs))
	require.Len(logs, 3)

	require.Len(logs[0].Events, 2)
	require.Equal("deposit-completed", logs[0].Events[0].Kind)
	require.Equal("rebalance-initiated", logs[0].Events[1].Kind)
	require.Equal(result.IntentID, logs[0].Events[1].IntentID)
	require.Empty(logs[1].Events)
	require.Len(logs[2].Events, 1)
	require.Equal("rebalance-completed", logs[2].Events[0].Kind)
	require.Equal(result.IntentID, logs[2].Events[0].IntentID)
}

func TestSimulateRejectsBadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{
			name: "one ledger",
			args: []string{"--ledgers", "1"},
		},
		{
			name: "destination out of range",
			args: []string{"--to", "2"},
		},
		{
			name: "negative deposit",
			args: []string{"--deposit=-1"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := Command(log.NoLog{})
			c.SetOut(&bytes.Buffer{})
			c.SetErr(&bytes.Buffer{})
			c.SetArgs(test.args)
			require.Error(t, c.Execute()) //nolint:forbidigo // flag errors are not sentinels
		})
	}
}
