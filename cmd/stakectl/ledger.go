package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gagliardetto/solana-go"

	"stakeledger/config"
	"stakeledger/core/runtime"
	"stakeledger/core/state"
	"stakeledger/crypto"
	"stakeledger/observability/logging"
	"stakeledger/observability/metrics"
	"stakeledger/storage"
)

// ledger is an opened data directory plus the operator keypair.
type ledger struct {
	cli      *cli
	cfg      *config.Config
	logger   *slog.Logger
	db       storage.Database
	rt       *runtime.Runtime
	programs state.Programs
	key      *crypto.Keypair
	cosigner []*crypto.Keypair
}

func (c *cli) loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	env := strings.TrimSpace(c.env)
	if env == "" {
		env = strings.TrimSpace(os.Getenv(envVariable))
	}
	logger := logging.Setup("stakectl", env, cfg.LoggingOptions())
	return cfg, logger, nil
}

func (c *cli) open() (*ledger, error) {
	cfg, logger, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	programs, err := cfg.Programs()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadKeygenFile(cfg.KeypairPath)
	if err != nil {
		return nil, fmt.Errorf("load keypair: %w", err)
	}
	cosigners := make([]*crypto.Keypair, 0, len(c.signerPaths))
	for _, path := range c.signerPaths {
		kp, err := crypto.LoadKeygenFile(path)
		if err != nil {
			return nil, fmt.Errorf("load signer %s: %w", logging.MaskValue(path), err)
		}
		cosigners = append(cosigners, kp)
	}

	dbPath := filepath.Join(cfg.DataDir, "ledger")
	db, err := storage.NewLevelDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", dbPath, err)
	}
	if err := state.EnsureStateVersion(db, false); err != nil {
		db.Close()
		return nil, err
	}

	opts := []runtime.Option{
		runtime.WithLogger(logger),
		runtime.WithStakingParams(cfg.StakingParams()),
		runtime.WithVestingParams(cfg.VestingParams()),
		runtime.WithProgramIDs(programs),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, runtime.WithMetrics(metrics.Ledger()))
	}
	rt, err := runtime.New(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("ledger opened",
		slog.String("dataDir", cfg.DataDir),
		slog.String("operator", key.PublicKey().String()),
		logging.MaskField("keypair", cfg.KeypairPath))
	return &ledger{
		cli:      c,
		cfg:      cfg,
		logger:   logger,
		db:       db,
		rt:       rt,
		programs: programs,
		key:      key,
		cosigner: cosigners,
	}, nil
}

// withLedger opens the ledger for the duration of fn.
func (c *cli) withLedger(fn func(*ledger) error) error {
	l, err := c.open()
	if err != nil {
		return err
	}
	defer l.db.Close()
	return fn(l)
}

func (l *ledger) operator() solana.PublicKey { return l.key.PublicKey() }

// timestamp returns the --now override or the ledger clock.
func (l *ledger) timestamp() int64 {
	if l.cli.now != 0 {
		return l.cli.now
	}
	return l.rt.Now()
}

// submit signs ixs with the operator and every co-signer, then commits them
// as one transaction.
func (l *ledger) submit(ctx context.Context, ixs ...solana.Instruction) error {
	tx, err := solana.NewTransaction(ixs, solana.Hash{}, solana.TransactionPayer(l.operator()))
	if err != nil {
		return fmt.Errorf("build transaction: %w", err)
	}
	keys := append([]*crypto.Keypair{l.key}, l.cosigner...)
	if _, err := tx.Sign(crypto.Signer(keys...)); err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	receipt, err := l.rt.Submit(ctx, tx)
	if err != nil {
		return err
	}
	l.logger.Info("transaction committed",
		slog.String("signature", receipt.Signature.String()),
		slog.Int("instructions", receipt.Instructions),
		slog.Int("events", len(receipt.Events)))
	printReceipt(l.cli.out, receipt)
	return nil
}

func printReceipt(out io.Writer, receipt *runtime.Receipt) {
	fmt.Fprintf(out, "signature: %s\n", receipt.Signature)
	for _, evt := range receipt.Events {
		keys := make([]string, 0, len(evt.Attributes))
		for k := range evt.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+evt.Attributes[k])
		}
		fmt.Fprintf(out, "  %s %s\n", evt.Type, strings.Join(parts, " "))
	}
}

// parseKey resolves a base58 address flag; empty falls back to def.
func parseKey(name, value string, def solana.PublicKey) (solana.PublicKey, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		if def.IsZero() {
			return solana.PublicKey{}, fmt.Errorf("--%s is required", name)
		}
		return def, nil
	}
	pk, err := crypto.ParsePublicKey(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("--%s: %w", name, err)
	}
	return pk, nil
}
