// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reconcile

import (
	"encoding/json"
	"time"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/luxfi/log"
	"github.com/luxfi/vault/utils/timer/mockable"
	"github.com/luxfi/vault/vms/vaultvm/cmd/simulate"
	"github.com/luxfi/vault/vms/vaultvm/devnet"
	"github.com/luxfi/vault/vms/vaultvm/reconcile"
)

func Command(logger log.Logger) *cobra.Command {
	c := &cobra.Command{
		Use:   "reconcile",
		Short: "Plays a rebalance on a devnet and prints the reconciliation report",
		RunE: func(c *cobra.Command, args []string) error {
			return reconcileFunc(c, args, logger)
		},
	}
	AddFlags(c.Flags())
	return c
}

func reconcileFunc(c *cobra.Command, args []string, logger log.Logger) error {
	config, err := ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}

	clock := &mockable.Clock{}
	clock.Set(time.Now())
	network, err := devnet.New(devnet.Config{
		Ledgers: config.Scenario.Ledgers,
		Vault:   config.Scenario.Vault,
		Log:     logger,
		Clock:   clock,
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
	_, err = network.Run(ctx, devnet.Scenario{
		Depositor: devnet.DeriveAddress(config.Scenario.Depositor),
		Deposit:   config.Scenario.Deposit,
		Rebalance: config.Scenario.Rebalance,
		From:      ledgers[config.Scenario.From].ID,
		To:        ledgers[config.Scenario.To].ID,
		Hold:      config.Scenario.Hold,
	})
	if err != nil {
		return err
	}
	if config.Scenario.Export != "" {
		logs, err := simulate.Collect(ctx, network.Vaults())
		if err != nil {
			return err
		}
		if err := simulate.Export(config.Scenario.Export, logs); err != nil {
			return err
		}
	}
	clock.Set(clock.Time().Add(config.Age))

	sources := make([]reconcile.Source, 0, len(ledgers))
	for _, v := range network.Vaults() {
		sources = append(sources, v)
	}
	reconciler, err := reconcile.New(
		reconcile.Config{StuckAfter: config.StuckAfter},
		logger,
		clock,
		nil,
		sources...,
	)
	if err != nil {
		return err
	}
	report, err := reconciler.Reconcile(ctx)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if config.Output == "" {
		_, err = c.OutOrStdout().Write(data)
		return err
	}
	return renameio.WriteFile(config.Output, data, 0o644)
}
