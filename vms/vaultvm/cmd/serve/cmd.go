// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/luxfi/vault/utils/profiler"
	"github.com/luxfi/vault/utils/timer/mockable"
	"github.com/luxfi/vault/vms/vaultvm/api"
	"github.com/luxfi/vault/vms/vaultvm/devnet"
	"github.com/luxfi/vault/vms/vaultvm/metrics"
	"github.com/luxfi/vault/vms/vaultvm/reconcile"

	utilmetric "github.com/luxfi/vault/utils/metric"
)

const (
	namespace       = "vault"
	shutdownTimeout = 10 * time.Second
	httpTimeout     = 30 * time.Second
)

func Command(logger log.Logger) *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Runs a devnet of vaults behind the JSON-RPC API",
		RunE: func(c *cobra.Command, args []string) error {
			return serveFunc(c, args, logger)
		},
	}
	AddFlags(c.Flags())
	return c
}

func serveFunc(c *cobra.Command, args []string, logger log.Logger) error {
	cfg, err := ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}
	profilerConfig, err := ParseProfilerFlags(c.Flags())
	if err != nil {
		return err
	}
	var continuous *profiler.Continuous
	if profilerConfig != nil {
		if continuous, err = profiler.NewContinuous(*profilerConfig); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := &mockable.Clock{}
	vaultRegistry := metric.NewRegistry()
	network, err := devnet.New(devnet.Config{
		Ledgers: cfg.Ledgers,
		Vault:   cfg.Vault,
		Log:     logger,
		Metrics: metrics.New(namespace, vaultRegistry),
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

	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return err
	}
	reconcileMetrics, err := reconcile.NewMetrics(namespace, registry)
	if err != nil {
		return err
	}
	sources := make([]reconcile.Source, 0, cfg.Ledgers)
	for _, v := range network.Vaults() {
		sources = append(sources, v)
	}
	reconciler, err := reconcile.New(
		reconcile.Config{
			StuckAfter: cfg.StuckAfter,
			Interval:   cfg.ReconcileInterval,
		},
		logger,
		clock,
		reconcileMetrics,
		sources...,
	)
	if err != nil {
		return err
	}

	server := api.NewServer(
		logger,
		api.ServerConfig{
			AllowedOrigins:  cfg.AllowedOrigins,
			ShutdownTimeout: shutdownTimeout,
			ReadTimeout:     httpTimeout,
			WriteTimeout:    httpTimeout,
			IdleTimeout:     2 * httpTimeout,
		},
		utilmetric.NewAPIInterceptor(namespace, vaultRegistry),
		registry,
		func(ctx context.Context) error {
			for _, v := range network.Vaults() {
				if _, err := v.TotalAssets(ctx); err != nil {
					return fmt.Errorf("ledger %s: %w", v.LedgerID(), err)
				}
			}
			return nil
		},
	)
	authenticator := api.NewAuthenticator(cfg.JWTSecret, clock)
	if !authenticator.Enabled() {
		logger.Warn("no JWT secret configured, mutating calls are disabled")
	}
	for _, v := range network.Vaults() {
		if err := server.RegisterVault(v, authenticator); err != nil {
			return err
		}
	}
	if err := server.RegisterDev(api.NewDevService(network, logger)); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("couldn't listen on %s: %w", cfg.ListenAddress, err)
	}
	logger.Info("serving vault API",
		log.String("address", listener.Addr().String()),
		log.Int("ledgers", cfg.Ledgers),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Dispatch(listener)
	})
	g.Go(func() error {
		return reconciler.Dispatch(ctx)
	})
	if continuous != nil {
		logger.Info("profiling", log.String("dir", profilerConfig.Dir))
		g.Go(func() error {
			return continuous.Dispatch(ctx)
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		err := server.Shutdown()
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("API shutdown timed out", log.Duration("timeout", shutdownTimeout))
			return nil
		}
		return err
	})
	return g.Wait()
}
