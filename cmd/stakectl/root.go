package main

import (
	"io"

	"github.com/spf13/cobra"
)

const (
	defaultConfig = "./config.toml"
	envVariable   = "STAKELEDGER_ENV"
)

// cli carries the persistent flags shared by every subcommand.
type cli struct {
	configPath  string
	env         string
	signerPaths []string
	now         int64
	out         io.Writer
}

func newRootCommand(out io.Writer) *cobra.Command {
	c := &cli{out: out}
	root := &cobra.Command{
		Use:           "stakectl",
		Short:         "Operate a local staking and vesting ledger.",
		Long:          "stakectl drives the staking, merchant and vesting programs against a local leveldb ledger.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", defaultConfig, "Path to the configuration file")
	flags.StringVar(&c.env, "env", "", "Deployment environment attached to log lines (defaults to $"+envVariable+")")
	flags.StringArrayVar(&c.signerPaths, "signer", nil, "Additional solana-keygen file that co-signs transactions (repeatable)")
	flags.Int64Var(&c.now, "now", 0, "Unix timestamp passed to time-dependent instructions (defaults to the ledger clock; must sit within ClockToleranceSeconds unless ReplayClock is set)")

	root.AddCommand(
		c.newInitCommand(),
		c.newKeygenCommand(),
		c.newGenesisCommand(),
		c.newTokenCommand(),
		c.newPoolCommand(),
		c.newUserCommand(),
		c.newMerchantCommand(),
		c.newVestingCommand(),
		c.newShowCommand(),
		c.newServeMetricsCommand(),
	)
	return root
}
