// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package simulate

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/luxfi/log"
	"github.com/luxfi/vault/vms/vaultvm/devnet"
)

func Command(logger log.Logger) *cobra.Command {
	c := &cobra.Command{
		Use:   "simulate",
		Short: "Deposits on one ledger, rebalances to another and prints the totals",
		RunE: func(c *cobra.Command, args []string) error {
			return simulateFunc(c, args, logger)
		},
	}
	AddFlags(c.Flags())
	return c
}

func simulateFunc(c *cobra.Command, args []string, logger log.Logger) error {
	config, err := ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}

	network, err := devnet.New(devnet.Config{
		Ledgers: config.Ledgers,
		Vault:   config.Vault,
		Log:     logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := network.Close(); err != nil {
			logger.Error("failed to close devnet", log.Err(err))
		}
	}()

	ctx := c.Context()
	ledgers := network.Ledgers()
	result, err := network.Run(ctx, devnet.Scenario{
		Depositor: devnet.DeriveAddress(config.Depositor),
		Deposit:   config.Deposit,
		Rebalance: config.Rebalance,
		From:      ledgers[config.From].ID,
		To:        ledgers[config.To].ID,
		Hold:      config.Hold,
	})
	if err != nil {
		return err
	}

	if config.Export != "" {
		logs, err := Collect(ctx, network.Vaults())
		if err != nil {
			return err
		}
		if err := Export(config.Export, logs); err != nil {
			return err
		}
		logger.Info("exported event log",
			log.String("path", config.Export),
			log.Int("ledgers", len(logs)),
		)
	}

	encoder := json.NewEncoder(c.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
