// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package serve

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/vault/utils/profiler"
	"github.com/luxfi/vault/vms/vaultvm/config"
)

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	AddFlags(flags)
	return flags
}

func TestParseFlagsDefaults(t *testing.T) {
	require := require.New(t)

	cfg, err := ParseFlags(newFlags(), nil)
	require.NoError(err)
	require.Equal(config.DefaultServerConfig(), *cfg)
}

func TestParseFlagsOverridesFile(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "vaultd.json")
	require.NoError(os.WriteFile(path, []byte(`{
		"listenAddress": "127.0.0.1:1234",
		"jwtSecret": "from-file",
		"ledgers": 4,
		"vault": {"symbol": "lvX", "feeBps": 500}
	}`), 0o600))

	cfg, err := ParseFlags(newFlags(), []string{
		"--config-file", path,
		"--ledgers", "3",
		"--stuck-after", "1m",
	})
	require.NoError(err)
	require.Equal("127.0.0.1:1234", cfg.ListenAddress)
	require.Equal("from-file", cfg.JWTSecret)
	require.Equal(3, cfg.Ledgers)
	require.Equal(time.Minute, cfg.StuckAfter)
	require.Equal("lvX", cfg.Vault.Symbol)
	require.Equal(uint16(500), cfg.Vault.FeeBps)
	require.Equal(config.DefaultConfig().ProfitBps, cfg.Vault.ProfitBps)
}

func TestParseFlagsValidates(t *testing.T) {
	_, err := ParseFlags(newFlags(), []string{"--ledgers", "1"})
	require.ErrorIs(t, err, config.ErrInvalidLedgerCount)

	_, err = ParseFlags(newFlags(), []string{"--reconcile-interval", "0s"})
	require.ErrorIs(t, err, config.ErrInvalidInterval)
}

func TestParseProfilerFlags(t *testing.T) {
	require := require.New(t)

	flags := newFlags()
	_, err := ParseFlags(flags, nil)
	require.NoError(err)
	cfg, err := ParseProfilerFlags(flags)
	require.NoError(err)
	require.Nil(cfg)

	dir := t.TempDir()
	flags = newFlags()
	_, err = ParseFlags(flags, []string{
		"--profile-dir", dir,
		"--profile-freq", "1m",
		"--profile-max-files", "2",
	})
	require.NoError(err)
	cfg, err = ParseProfilerFlags(flags)
	require.NoError(err)
	require.Equal(&profiler.Config{
		Dir:         dir,
		Freq:        time.Minute,
		MaxNumFiles: 2,
	}, cfg)
}
