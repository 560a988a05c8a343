// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
	"github.com/luxfi/vault/vms/vaultvm/auth"
	"github.com/luxfi/vault/vms/vaultvm/shares"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.LedgerID = ids.GenerateTestID()
	cfg.AssetID = ids.GenerateTestID()
	cfg.VaultAddress = ids.GenerateTestShortID()
	cfg.Owner = ids.GenerateTestShortID()
	cfg.Treasury = ids.GenerateTestShortID()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		expectedErr error
	}{
		{
			name:   "valid",
			modify: func(*Config) {},
		},
		{
			name:        "missing ledger",
			modify:      func(c *Config) { c.LedgerID = ids.Empty },
			expectedErr: ErrMissingLedger,
		},
		{
			name:        "missing treasury",
			modify:      func(c *Config) { c.Treasury = ids.ShortEmpty },
			expectedErr: ErrMissingTreasury,
		},
		{
			name:        "unknown policy",
			modify:      func(c *Config) { c.Authorization = "committee" },
			expectedErr: auth.ErrUnknownPolicy,
		},
		{
			name:        "unknown finalize gate",
			modify:      func(c *Config) { c.FinalizeAuthorization = "anyone" },
			expectedErr: ErrInvalidFinalizeGate,
		},
		{
			name:        "fee above 100%",
			modify:      func(c *Config) { c.FeeBps = shares.BpsDenominator + 1 },
			expectedErr: shares.ErrInvalidRate,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := validConfig()
			test.modify(&cfg)
			require.ErrorIs(t, cfg.Validate(), test.expectedErr)
		})
	}
}

func TestParseConfigKeepsDefaults(t *testing.T) {
	require := require.New(t)

	cfg, err := ParseConfig(nil)
	require.NoError(err)
	require.Equal(DefaultConfig(), cfg)

	want := validConfig()
	want.Authorization = auth.PolicySingleOwner
	b, err := json.Marshal(map[string]any{
		"ledgerID":      want.LedgerID,
		"assetID":       want.AssetID,
		"vaultAddress":  want.VaultAddress,
		"owner":         want.Owner,
		"treasury":      want.Treasury,
		"authorization": want.Authorization,
	})
	require.NoError(err)

	cfg, err = ParseConfig(b)
	require.NoError(err)
	require.Equal(want, cfg)
	require.NoError(cfg.Validate())

	_, err = ParseConfig([]byte("{"))
	require.Error(err)
}

func TestServerConfig(t *testing.T) {
	require := require.New(t)

	cfg, err := ParseServerConfig([]byte(`{"ledgers":3}`))
	require.NoError(err)
	require.Equal(3, cfg.Ledgers)
	require.NoError(cfg.Validate())

	cfg.Ledgers = 1
	require.ErrorIs(cfg.Validate(), ErrInvalidLedgerCount)

	cfg = DefaultServerConfig()
	cfg.StuckAfter = 0
	require.ErrorIs(cfg.Validate(), ErrInvalidInterval)
}
