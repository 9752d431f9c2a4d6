package config

import (
	"strings"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/state"
	"stakeledger/native/staking"
	"stakeledger/native/vesting"
	"stakeledger/observability/logging"
)

// Log controls the structured logger.
type Log struct {
	Level      string `toml:"Level"`
	Format     string `toml:"Format"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
	Compress   bool   `toml:"Compress"`
}

// Metrics controls the Prometheus endpoint.
type Metrics struct {
	Enabled       bool   `toml:"Enabled"`
	ListenAddress string `toml:"ListenAddress"`
}

// Staking overrides the staking program bounds.
type Staking struct {
	MinRewardDuration uint64 `toml:"MinRewardDuration"`
	BehalfLockSeconds int64  `toml:"BehalfLockSeconds"`
	MaxUsers          int    `toml:"MaxUsers"`
	MaxMerchants      int    `toml:"MaxMerchants"`
	MaxPassiveStakers int    `toml:"MaxPassiveStakers"`
	MaxMerchantUsers  int    `toml:"MaxMerchantUsers"`
	MaxTranches       int    `toml:"MaxTranches"`
	MaxFunders        int    `toml:"MaxFunders"`
}

// Vesting overrides the vesting policy.
type Vesting struct {
	DurationSeconds       int64  `toml:"DurationSeconds"`
	WithdrawPeriodSeconds int64  `toml:"WithdrawPeriodSeconds"`
	UpfrontBps            uint64 `toml:"UpfrontBps"`
	MaxInvestors          int    `toml:"MaxInvestors"`
}

// Default returns the configuration written on first start.
func Default() *Config {
	sp := staking.DefaultParams()
	vp := vesting.DefaultParams()
	return &Config{
		DataDir:               "./stakeledger-data",
		StakingProgramID:      staking.DefaultProgramID.String(),
		VestingProgramID:      vesting.DefaultProgramID.String(),
		ClockToleranceSeconds: sp.ClockToleranceSeconds,
		Log: Log{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Metrics: Metrics{ListenAddress: "127.0.0.1:9464"},
		Staking: Staking{
			MinRewardDuration: sp.MinRewardDuration,
			BehalfLockSeconds: sp.BehalfLockSeconds,
			MaxUsers:          sp.MaxUsers,
			MaxMerchants:      sp.MaxMerchants,
			MaxPassiveStakers: sp.MaxPassiveStakers,
			MaxMerchantUsers:  sp.MaxMerchantUsers,
			MaxTranches:       sp.MaxTranches,
			MaxFunders:        sp.MaxFunders,
		},
		Vesting: Vesting{
			DurationSeconds:       vp.DurationSeconds,
			WithdrawPeriodSeconds: vp.WithdrawPeriodSeconds,
			UpfrontBps:            vp.UpfrontBps,
			MaxInvestors:          vp.MaxInvestors,
		},
	}
}

// LoggingOptions maps the log section onto the logger options.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}

// StakingParams returns the staking program parameters.
func (c *Config) StakingParams() staking.Params {
	p := staking.DefaultParams()
	p.MinRewardDuration = c.Staking.MinRewardDuration
	p.BehalfLockSeconds = c.Staking.BehalfLockSeconds
	p.MaxUsers = c.Staking.MaxUsers
	p.MaxMerchants = c.Staking.MaxMerchants
	p.MaxPassiveStakers = c.Staking.MaxPassiveStakers
	p.MaxMerchantUsers = c.Staking.MaxMerchantUsers
	p.MaxTranches = c.Staking.MaxTranches
	p.MaxFunders = c.Staking.MaxFunders
	p.ClockToleranceSeconds = c.ClockToleranceSeconds
	p.ReplayClock = c.ReplayClock
	return p
}

// VestingParams returns the vesting program parameters.
func (c *Config) VestingParams() vesting.Params {
	p := vesting.DefaultParams()
	p.DurationSeconds = c.Vesting.DurationSeconds
	p.WithdrawPeriodSeconds = c.Vesting.WithdrawPeriodSeconds
	p.UpfrontBps = c.Vesting.UpfrontBps
	p.MaxInvestors = c.Vesting.MaxInvestors
	p.ClockToleranceSeconds = c.ClockToleranceSeconds
	p.ReplayClock = c.ReplayClock
	return p
}

// Programs resolves the configured program addresses.
func (c *Config) Programs() (state.Programs, error) {
	programs := state.DefaultPrograms()
	if id := strings.TrimSpace(c.StakingProgramID); id != "" {
		pk, err := solana.PublicKeyFromBase58(id)
		if err != nil {
			return programs, err
		}
		programs.Staking = pk
	}
	if id := strings.TrimSpace(c.VestingProgramID); id != "" {
		pk, err := solana.PublicKeyFromBase58(id)
		if err != nil {
			return programs, err
		}
		programs.Vesting = pk
	}
	return programs, nil
}
