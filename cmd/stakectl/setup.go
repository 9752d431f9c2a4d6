package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"stakeledger/core/genesis"
	"stakeledger/crypto"
	"stakeledger/observability/metrics"
)

func (c *cli) newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration file, operator keypair and ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withLedger(func(l *ledger) error {
				fmt.Fprintf(c.out, "config:   %s\n", c.configPath)
				fmt.Fprintf(c.out, "data dir: %s\n", l.cfg.DataDir)
				fmt.Fprintf(c.out, "operator: %s\n", l.operator())
				return nil
			})
		},
	}
}

func (c *cli) newKeygenCommand() *cobra.Command {
	var (
		outPath string
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Write a new solana-keygen compatible keypair file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(outPath) == "" {
				return fmt.Errorf("--out is required")
			}
			if !force {
				if _, err := os.Stat(outPath); err == nil {
					return fmt.Errorf("keypair file %s already exists (use --force to overwrite)", outPath)
				} else if !os.IsNotExist(err) {
					return err
				}
			}
			key, err := crypto.GenerateKeypair()
			if err != nil {
				return err
			}
			if err := crypto.SaveKeygenFile(outPath, key); err != nil {
				return err
			}
			fmt.Fprintln(c.out, key.PublicKey())
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "Output path for the keypair file")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing keypair file")
	return cmd
}

func (c *cli) newGenesisCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "genesis [file]",
		Short: "Apply a YAML genesis file to an empty ledger",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLedger(func(l *ledger) error {
				path := l.cfg.GenesisFile
				if len(args) == 1 {
					path = args[0]
				}
				spec, err := genesis.Load(path)
				if err != nil {
					return err
				}
				result, err := genesis.Apply(cmd.Context(), l.rt, spec)
				if err != nil {
					return err
				}
				l.logger.Info("genesis applied",
					"mints", len(result.Mints),
					"pools", len(result.Pools),
					"events", result.Events)
				for name, addr := range result.Mints {
					fmt.Fprintf(c.out, "mint %s: %s\n", name, addr)
				}
				for _, pool := range result.Pools {
					fmt.Fprintf(c.out, "pool: %s\n", pool.Pool)
				}
				if !result.Registry.IsZero() {
					fmt.Fprintf(c.out, "registry: %s\n", result.Registry)
				}
				return nil
			})
		},
	}
}

func (c *cli) newServeMetricsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve-metrics",
		Short: "Expose the Prometheus /metrics endpoint until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := c.loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Metrics.Enabled {
				return fmt.Errorf("metrics are disabled in %s", c.configPath)
			}
			metrics.Ledger()

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{
				Addr:              cfg.Metrics.ListenAddress,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			logger.Info("metrics endpoint listening", "address", cfg.Metrics.ListenAddress)

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
