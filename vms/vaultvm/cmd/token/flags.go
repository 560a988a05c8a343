// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/luxfi/ids"
	"github.com/luxfi/vault/vms/vaultvm/api"
	"github.com/luxfi/vault/vms/vaultvm/devnet"
)

const (
	JWTSecretKey = "jwt-secret"
	CallerKey    = "caller"
	IdentityKey  = "identity"
	TTLKey       = "ttl"
)

var (
	errMissingSecret = errors.New("--jwt-secret is required")
	errMissingCaller = errors.New("one of --caller or --identity is required")
	errBothCallers   = errors.New("--caller and --identity are mutually exclusive")
	errUnknownIdent  = errors.New("unknown devnet identity")
)

func AddFlags(flags *pflag.FlagSet) {
	flags.String(JWTSecretKey, "", "Secret the API server verifies tokens with (required)")
	flags.String(CallerKey, "", "Address the token names as caller")
	flags.String(IdentityKey, "", "Devnet identity to name as caller: owner, rebalancer or treasury")
	flags.Duration(TTLKey, 24*time.Hour, "How long the token stays valid")
}

type Config struct {
	Secret string
	Caller ids.ShortID
	TTL    time.Duration
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	secret, err := flags.GetString(JWTSecretKey)
	if err != nil {
		return nil, err
	}
	if secret == "" {
		return nil, errMissingSecret
	}

	callerStr, err := flags.GetString(CallerKey)
	if err != nil {
		return nil, err
	}
	identity, err := flags.GetString(IdentityKey)
	if err != nil {
		return nil, err
	}

	var caller ids.ShortID
	switch {
	case callerStr != "" && identity != "":
		return nil, errBothCallers
	case callerStr != "":
		caller, err = api.ParseAddress(callerStr)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s: %w", CallerKey, err)
		}
	case identity != "":
		caller, err = devnetIdentity(identity)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errMissingCaller
	}

	ttl, err := flags.GetDuration(TTLKey)
	if err != nil {
		return nil, err
	}
	return &Config{
		Secret: secret,
		Caller: caller,
		TTL:    ttl,
	}, nil
}

func devnetIdentity(name string) (ids.ShortID, error) {
	identities := devnet.DefaultIdentities()
	switch name {
	case "owner":
		return identities.Owner, nil
	case "rebalancer":
		return identities.Rebalancer, nil
	case "treasury":
		return identities.Treasury, nil
	default:
		return ids.ShortEmpty, fmt.Errorf("%w: %q", errUnknownIdent, name)
	}
}
