package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"stakeledger/crypto"
	"stakeledger/native/staking"
)

func TestLoadCreatesDefaultWithKeypair(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "id.json"), cfg.KeypairPath)
	require.FileExists(t, path)

	key, err := crypto.LoadKeygenFile(cfg.KeypairPath)
	require.NoError(t, err)
	require.False(t, key.PublicKey().IsZero())

	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLoadParsesSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	keypair := filepath.Join(dir, "ops.json")
	key, err := crypto.GenerateKeypair()
	require.NoError(t, err)
	require.NoError(t, crypto.SaveKeygenFile(keypair, key))

	contents := `DataDir = "./ledger"
KeypairPath = "` + filepath.ToSlash(keypair) + `"
ClockToleranceSeconds = 120

[log]
Level = "debug"
Format = "text"

[metrics]
Enabled = true
ListenAddress = "0.0.0.0:9100"

[staking]
MinRewardDuration = 60
BehalfLockSeconds = 3600
MaxUsers = 10
MaxMerchants = 2
MaxPassiveStakers = 10
MaxMerchantUsers = 5
MaxTranches = 3
MaxFunders = 1

[vesting]
DurationSeconds = 86400
WithdrawPeriodSeconds = 600
UpfrontBps = 2500
MaxInvestors = 8
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "./ledger", cfg.DataDir)
	require.Equal(t, "debug", cfg.LoggingOptions().Level)
	require.True(t, cfg.Metrics.Enabled)

	sp := cfg.StakingParams()
	require.Equal(t, uint64(60), sp.MinRewardDuration)
	require.Equal(t, int64(3600), sp.BehalfLockSeconds)
	require.Equal(t, int64(120), sp.ClockToleranceSeconds)
	require.Equal(t, staking.DefaultMaxNameLength, sp.MaxNameLength)

	vp := cfg.VestingParams()
	require.Equal(t, uint64(2500), vp.UpfrontBps)
	require.Equal(t, int64(600), vp.WithdrawPeriodSeconds)
	require.Equal(t, 8, vp.MaxInvestors)

	programs, err := cfg.Programs()
	require.NoError(t, err)
	require.Equal(t, staking.DefaultProgramID, programs.Staking)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("DataDir = \"x\"\nListenAddress = \":6001\"\n"), 0o644))
	_, err := Load(path)
	require.ErrorContains(t, err, "ListenAddress")
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("STAKELEDGER_LOG_LEVEL=warn\n"), 0o644))
	t.Setenv("STAKELEDGER_DATA_DIR", "/var/lib/stakeledger")
	t.Setenv("STAKELEDGER_CLOCK_TOLERANCE_SECONDS", "30")
	t.Cleanup(func() { os.Unsetenv("STAKELEDGER_LOG_LEVEL") })

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/stakeledger", cfg.DataDir)
	require.Equal(t, int64(30), cfg.ClockToleranceSeconds)
	require.Equal(t, "warn", cfg.Log.Level)

	bad := Default()
	err = applyEnv(bad, func(name string) (string, bool) {
		if name == EnvPrefix+"METRICS_ENABLED" {
			return "maybe", true
		}
		return "", false
	})
	require.Error(t, err)
}

func TestClockToleranceDefaults(t *testing.T) {
	cfg := Default()
	require.Equal(t, staking.DefaultClockToleranceSeconds, cfg.ClockToleranceSeconds)
	require.Equal(t, cfg.ClockToleranceSeconds, cfg.StakingParams().ClockToleranceSeconds)
	require.Equal(t, cfg.ClockToleranceSeconds, cfg.VestingParams().ClockToleranceSeconds)
	require.False(t, cfg.StakingParams().ReplayClock)

	cfg.ClockToleranceSeconds = 0
	require.Error(t, cfg.Validate())
	cfg.ReplayClock = true
	require.NoError(t, cfg.Validate())
	require.True(t, cfg.StakingParams().ReplayClock)
	require.True(t, cfg.VestingParams().ReplayClock)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = " " }},
		{"negative tolerance", func(c *Config) { c.ClockToleranceSeconds = -1 }},
		{"zero tolerance", func(c *Config) { c.ClockToleranceSeconds = 0 }},
		{"bad program", func(c *Config) { c.StakingProgramID = "not-base58!" }},
		{"same programs", func(c *Config) { c.VestingProgramID = c.StakingProgramID }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"metrics address", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.ListenAddress = "nope" }},
		{"upfront bps", func(c *Config) { c.Vesting.UpfrontBps = 10_001 }},
		{"zero duration", func(c *Config) { c.Staking.MinRewardDuration = 0 }},
	}
	require.NoError(t, Default().Validate())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
