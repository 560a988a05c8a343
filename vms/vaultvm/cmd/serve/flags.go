// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package serve

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/luxfi/vault/utils/profiler"
	"github.com/luxfi/vault/vms/vaultvm/config"
)

const (
	ConfigFileKey        = "config-file"
	ListenAddressKey     = "listen-address"
	AllowedOriginsKey    = "allowed-origins"
	JWTSecretKey         = "jwt-secret"
	LedgersKey           = "ledgers"
	ReconcileIntervalKey = "reconcile-interval"
	StuckAfterKey        = "stuck-after"
	ProfileDirKey        = "profile-dir"
	ProfileFreqKey       = "profile-freq"
	ProfileMaxFilesKey   = "profile-max-files"
)

func AddFlags(flags *pflag.FlagSet) {
	defaults := config.DefaultServerConfig()
	flags.String(ConfigFileKey, "", "JSON file holding the server config; flags override it")
	flags.String(ListenAddressKey, defaults.ListenAddress, "Address the API listens on")
	flags.StringSlice(AllowedOriginsKey, defaults.AllowedOrigins, "Origins allowed to make cross-origin requests")
	flags.String(JWTSecretKey, "", "Secret signing API bearer tokens. Empty disables mutating calls")
	flags.Int(LedgersKey, defaults.Ledgers, "Number of in-process ledgers")
	flags.Duration(ReconcileIntervalKey, defaults.ReconcileInterval, "Time between reconciliation runs")
	flags.Duration(StuckAfterKey, defaults.StuckAfter, "Age past which an in-flight intent is reported stuck")
	flags.String(ProfileDirKey, "", "Directory for continuous profiles. Empty disables profiling")
	flags.Duration(ProfileFreqKey, 15*time.Minute, "Length of each profiling window")
	flags.Int(ProfileMaxFilesKey, 5, "Number of rotated profiles kept per kind")
}

// ParseProfilerFlags returns the profiler config, or nil when profiling is
// disabled.
func ParseProfilerFlags(flags *pflag.FlagSet) (*profiler.Config, error) {
	dir, err := flags.GetString(ProfileDirKey)
	if err != nil || dir == "" {
		return nil, err
	}
	freq, err := flags.GetDuration(ProfileFreqKey)
	if err != nil {
		return nil, err
	}
	maxFiles, err := flags.GetInt(ProfileMaxFilesKey)
	if err != nil {
		return nil, err
	}
	return &profiler.Config{
		Dir:         dir,
		Freq:        freq,
		MaxNumFiles: maxFiles,
	}, nil
}

// ParseFlags reads the config file, if any, and applies the flags the user
// set on top of it.
func ParseFlags(flags *pflag.FlagSet, args []string) (*config.ServerConfig, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	path, err := flags.GetString(ConfigFileKey)
	if err != nil {
		return nil, err
	}
	var data []byte
	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("couldn't read config file: %w", err)
		}
	}
	cfg, err := config.ParseServerConfig(data)
	if err != nil {
		return nil, err
	}

	if flags.Changed(ListenAddressKey) {
		if cfg.ListenAddress, err = flags.GetString(ListenAddressKey); err != nil {
			return nil, err
		}
	}
	if flags.Changed(AllowedOriginsKey) {
		if cfg.AllowedOrigins, err = flags.GetStringSlice(AllowedOriginsKey); err != nil {
			return nil, err
		}
	}
	if flags.Changed(JWTSecretKey) {
		if cfg.JWTSecret, err = flags.GetString(JWTSecretKey); err != nil {
			return nil, err
		}
	}
	if flags.Changed(LedgersKey) {
		if cfg.Ledgers, err = flags.GetInt(LedgersKey); err != nil {
			return nil, err
		}
	}
	if flags.Changed(ReconcileIntervalKey) {
		if cfg.ReconcileInterval, err = flags.GetDuration(ReconcileIntervalKey); err != nil {
			return nil, err
		}
	}
	if flags.Changed(StuckAfterKey) {
		if cfg.StuckAfter, err = flags.GetDuration(StuckAfterKey); err != nil {
			return nil, err
		}
	}
	return &cfg, cfg.Validate()
}
