// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/log"
	"github.com/luxfi/vault/vms/vaultvm"
	"github.com/luxfi/vault/vms/vaultvm/cmd/reconcile"
	"github.com/luxfi/vault/vms/vaultvm/cmd/serve"
	"github.com/luxfi/vault/vms/vaultvm/cmd/simulate"
	"github.com/luxfi/vault/vms/vaultvm/cmd/token"
)

func main() {
	logger := log.NewLogger("vaultd")

	cmd := &cobra.Command{
		Use:     "vaultd",
		Short:   "Runs and exercises cross-ledger share vaults",
		Version: vaultvm.Version.String(),
	}
	cmd.AddCommand(
		serve.Command(logger),
		simulate.Command(logger),
		reconcile.Command(logger),
		token.Command(),
	)
	cmd.SilenceUsage = true

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "command failed %v\n", err)
		os.Exit(1)
	}
}
