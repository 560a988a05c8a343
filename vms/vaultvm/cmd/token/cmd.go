// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luxfi/vault/vms/vaultvm/api"
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "token",
		Short: "Issues an API bearer token for a caller",
		RunE:  tokenFunc,
	}
	AddFlags(c.Flags())
	return c
}

func tokenFunc(c *cobra.Command, args []string) error {
	config, err := ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}

	token, err := api.NewAuthenticator(config.Secret, nil).Issue(config.Caller, config.TTL)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.OutOrStdout(), token)
	return err
}
