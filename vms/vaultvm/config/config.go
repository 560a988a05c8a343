// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines the per-ledger vault configuration and the
// settings of the vaultd server.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/ids"
	"github.com/luxfi/vault/vms/vaultvm/auth"
	"github.com/luxfi/vault/vms/vaultvm/shares"
)

// FinalizeGate selects who may call CompleteRebalance.
type FinalizeGate string

const (
	// FinalizeByRebalancer requires the rebalancer role.
	FinalizeByRebalancer FinalizeGate = "rebalancer"
	// FinalizeByProof lets anyone holding a valid proof finalize.
	FinalizeByProof FinalizeGate = "proof"
)

var (
	ErrMissingLedger       = errors.New("ledger ID is required")
	ErrMissingAsset        = errors.New("asset ID is required")
	ErrMissingAddress      = errors.New("vault address is required")
	ErrMissingOwner        = errors.New("owner is required")
	ErrMissingTreasury     = errors.New("treasury is required")
	ErrInvalidFinalizeGate = errors.New("invalid finalize authorization")
	ErrInvalidLedgerCount  = errors.New("devnet needs at least two ledgers")
	ErrInvalidInterval     = errors.New("intervals must be positive")
)

// Config holds the parameters of one vault instance.
type Config struct {
	// Identity on this ledger
	LedgerID     ids.ID      `json:"ledgerID"`
	VaultAddress ids.ShortID `json:"vaultAddress"`
	AssetID      ids.ID      `json:"assetID"`

	// Share token metadata
	Name   string `json:"name"`
	Symbol string `json:"symbol"`

	// Authorization
	Authorization         auth.Policy   `json:"authorization"`
	FinalizeAuthorization FinalizeGate  `json:"finalizeAuthorization"`
	Owner                 ids.ShortID   `json:"owner"`
	Rebalancers           []ids.ShortID `json:"rebalancers"`
	Treasury              ids.ShortID   `json:"treasury"`

	// Yield stand-in, in basis points
	ProfitBps uint16 `json:"profitBps"`
	FeeBps    uint16 `json:"feeBps"`
}

// DefaultConfig returns a config with default values. Identities are left
// empty and must be provided.
func DefaultConfig() Config {
	return Config{
		Name:                  "Lux Vault Share",
		Symbol:                "lvUSD",
		Authorization:         auth.PolicyRoleBased,
		FinalizeAuthorization: FinalizeByRebalancer,
		ProfitBps:             1_000, // 10%
		FeeBps:                1_000, // 10% of profit
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch {
	case c.LedgerID == ids.Empty:
		return ErrMissingLedger
	case c.AssetID == ids.Empty:
		return ErrMissingAsset
	case c.VaultAddress == ids.ShortEmpty:
		return ErrMissingAddress
	case c.Owner == ids.ShortEmpty:
		return ErrMissingOwner
	case c.Treasury == ids.ShortEmpty:
		return ErrMissingTreasury
	}

	switch c.Authorization {
	case auth.PolicySingleOwner, auth.PolicyRoleBased:
	default:
		return fmt.Errorf("%w: %q", auth.ErrUnknownPolicy, c.Authorization)
	}

	switch c.FinalizeAuthorization {
	case FinalizeByRebalancer, FinalizeByProof:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFinalizeGate, c.FinalizeAuthorization)
	}

	_, err := shares.NewFixedRate(c.ProfitBps, c.FeeBps)
	return err
}

// ParseConfig parses configuration from JSON bytes over the defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(data) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse vault config: %w", err)
	}
	return cfg, nil
}

// ServerConfig holds the settings of the vaultd dev server.
type ServerConfig struct {
	ListenAddress  string   `json:"listenAddress"`
	AllowedOrigins []string `json:"allowedOrigins"`
	// JWTSecret signs and verifies API bearer tokens. Empty disables
	// authenticated calls.
	JWTSecret string `json:"jwtSecret"`

	// Ledgers is the number of in-process ledgers the devnet runs.
	Ledgers int `json:"ledgers"`

	ReconcileInterval time.Duration `json:"reconcileInterval"`
	// StuckAfter is how long an intent may stay in flight before the
	// reconciler reports it.
	StuckAfter time.Duration `json:"stuckAfter"`

	Vault Config `json:"vault"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddress:     "127.0.0.1:9660",
		AllowedOrigins:    []string{"*"},
		Ledgers:           2,
		ReconcileInterval: 30 * time.Second,
		StuckAfter:        10 * time.Minute,
		Vault:             DefaultConfig(),
	}
}

// Validate checks the server settings. The embedded vault config is
// validated per ledger once identities are assigned.
func (c *ServerConfig) Validate() error {
	if c.Ledgers < 2 {
		return ErrInvalidLedgerCount
	}
	if c.ReconcileInterval <= 0 || c.StuckAfter <= 0 {
		return ErrInvalidInterval
	}
	return nil
}

func ParseServerConfig(data []byte) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if len(data) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse server config: %w", err)
	}
	return cfg, nil
}
