package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"stakeledger/crypto"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STAKELEDGER_"

// Config is the on-disk ledger configuration.
type Config struct {
	DataDir               string  `toml:"DataDir"`
	GenesisFile           string  `toml:"GenesisFile"`
	KeypairPath           string  `toml:"KeypairPath"`
	StakingProgramID      string  `toml:"StakingProgramID"`
	VestingProgramID      string  `toml:"VestingProgramID"`
	ClockToleranceSeconds int64   `toml:"ClockToleranceSeconds"`
	ReplayClock           bool    `toml:"ReplayClock"`
	Log                   Log     `toml:"log"`
	Metrics               Metrics `toml:"metrics"`
	Staking               Staking `toml:"staking"`
	Vesting               Vesting `toml:"vesting"`
}

// Load loads the configuration from path, creating a default file and a
// signing keypair when none exist. A .env file next to the config and the
// process environment override file values.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	var cfg *Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err = createDefault(path)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else {
		cfg = Default()
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s: unknown key %s", path, undecoded[0])
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := ensureKeypair(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func ensureKeypair(configPath string, cfg *Config) error {
	keypairPath := cfg.KeypairPath
	if keypairPath == "" {
		keypairPath = defaultKeypairPath(configPath)
	}
	if _, err := os.Stat(keypairPath); os.IsNotExist(err) {
		key, genErr := crypto.GenerateKeypair()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveKeygenFile(keypairPath, key); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	if cfg.KeypairPath != keypairPath {
		cfg.KeypairPath = keypairPath
		return persist(configPath, cfg)
	}
	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	cfg.KeypairPath = defaultKeypairPath(path)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path in TOML.
func Save(path string, cfg *Config) error {
	return persist(path, cfg)
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeypairPath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "id.json")
}

// applyEnv overlays STAKELEDGER_* variables resolved through lookup.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(name string, dst *int64) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}

	str("DATA_DIR", &cfg.DataDir)
	str("GENESIS_FILE", &cfg.GenesisFile)
	str("KEYPAIR", &cfg.KeypairPath)
	str("STAKING_PROGRAM_ID", &cfg.StakingProgramID)
	str("VESTING_PROGRAM_ID", &cfg.VestingProgramID)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("LOG_FILE", &cfg.Log.File)
	str("METRICS_ADDRESS", &cfg.Metrics.ListenAddress)
	if err := integer("CLOCK_TOLERANCE_SECONDS", &cfg.ClockToleranceSeconds); err != nil {
		return err
	}
	if err := boolean("REPLAY_CLOCK", &cfg.ReplayClock); err != nil {
		return err
	}
	return boolean("METRICS_ENABLED", &cfg.Metrics.Enabled)
}
