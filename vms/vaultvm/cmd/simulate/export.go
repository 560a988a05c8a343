// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package simulate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/renameio/v2"

	"github.com/luxfi/ids"
	"github.com/luxfi/vault/utils/compression"
	"github.com/luxfi/vault/vms/vaultvm"
	"github.com/luxfi/vault/vms/vaultvm/events"
)

const (
	maxExportSize = 64 << 20
	eventPageSize = 256
)

// LedgerEvents is one ledger's event log as written to an export.
type LedgerEvents struct {
	LedgerID ids.ID          `json:"ledgerID"`
	Events   []*events.Event `json:"events"`
}

// Collect reads the full event log of every vault.
func Collect(ctx context.Context, vaults []*vaultvm.Vault) ([]LedgerEvents, error) {
	logs := make([]LedgerEvents, 0, len(vaults))
	for _, v := range vaults {
		l := LedgerEvents{LedgerID: v.LedgerID()}
		var next uint64
		for {
			page, err := v.Events(ctx, next, eventPageSize)
			if err != nil {
				return nil, fmt.Errorf("couldn't read events of %s: %w", v.LedgerID(), err)
			}
			l.Events = append(l.Events, page...)
			if len(page) < eventPageSize {
				break
			}
			next = page[len(page)-1].Seq + 1
		}
		logs = append(logs, l)
	}
	return logs, nil
}

// Export atomically replaces [path] with the zstd-compressed JSON encoding of
// [logs].
func Export(path string, logs []LedgerEvents) error {
	data, err := json.Marshal(logs)
	if err != nil {
		return err
	}
	c, err := compression.NewZstdCompressor(maxExportSize)
	if err != nil {
		return err
	}
	compressed, err := c.Compress(data)
	if err != nil {
		return fmt.Errorf("couldn't compress event log: %w", err)
	}
	return renameio.WriteFile(path, compressed, 0o644)
}
