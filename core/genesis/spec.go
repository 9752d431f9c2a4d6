package genesis

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"
)

// Spec describes the initial ledger contents.
type Spec struct {
	GenesisTime string        `yaml:"genesisTime"`
	Mints       []MintSpec    `yaml:"mints"`
	Balances    []BalanceSpec `yaml:"balances"`
	Pools       []PoolSpec    `yaml:"pools"`
	Vesting     *VestingSpec  `yaml:"vesting,omitempty"`

	genesisTimestamp time.Time
}

// MintSpec declares a token mint. When Address is empty the mint lives at
// CreateWithSeed(authority, name, token program).
type MintSpec struct {
	Name      string `yaml:"name"`
	Address   string `yaml:"address,omitempty"`
	Authority string `yaml:"authority"`
	Decimals  uint8  `yaml:"decimals"`
}

// BalanceSpec credits the associated token account of Owner.
type BalanceSpec struct {
	Owner  string `yaml:"owner"`
	Mint   string `yaml:"mint"`
	Amount uint64 `yaml:"amount"`
}

// PoolSpec opens a staking pool and optionally funds it from the
// authority's associated token account.
type PoolSpec struct {
	Authority      string   `yaml:"authority"`
	StakingMint    string   `yaml:"stakingMint"`
	RewardMint     string   `yaml:"rewardMint,omitempty"`
	RewardDuration Duration `yaml:"rewardDuration"`
	Fund           uint64   `yaml:"fund,omitempty"`
}

// VestingSpec opens the investor registry.
type VestingSpec struct {
	Owner string `yaml:"owner"`
}

// Duration is a time.Duration written as a Go duration string.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses strings such as "720h".
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML renders the duration string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Seconds returns the whole number of seconds.
func (d Duration) Seconds() uint64 {
	if d.Duration <= 0 {
		return 0
	}
	return uint64(d.Duration / time.Second)
}

// Load reads and validates a YAML genesis file.
func Load(path string) (*Spec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// Parse decodes and validates a YAML genesis document.
func Parse(raw []byte) (*Spec, error) {
	var spec Spec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// GenesisTimestamp returns the parsed genesis time.
func (s *Spec) GenesisTimestamp() time.Time { return s.genesisTimestamp }

func (s *Spec) validate() error {
	ts, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = ts

	mints := make(map[string]struct{}, len(s.Mints))
	for i, m := range s.Mints {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return fmt.Errorf("mints[%d]: name must be provided", i)
		}
		if len(name) > solana.MaxSeedLength {
			return fmt.Errorf("mints[%d]: name longer than %d bytes", i, solana.MaxSeedLength)
		}
		if _, dup := mints[name]; dup {
			return fmt.Errorf("mints[%d]: duplicate name %q", i, name)
		}
		mints[name] = struct{}{}
		if _, err := parseKey(m.Authority); err != nil {
			return fmt.Errorf("mints[%d] authority: %w", i, err)
		}
		if strings.TrimSpace(m.Address) != "" {
			if _, err := parseKey(m.Address); err != nil {
				return fmt.Errorf("mints[%d] address: %w", i, err)
			}
		}
	}
	for i, b := range s.Balances {
		if _, err := parseKey(b.Owner); err != nil {
			return fmt.Errorf("balances[%d] owner: %w", i, err)
		}
		if _, ok := mints[strings.TrimSpace(b.Mint)]; !ok {
			return fmt.Errorf("balances[%d]: unknown mint %q", i, b.Mint)
		}
	}
	for i, p := range s.Pools {
		if _, err := parseKey(p.Authority); err != nil {
			return fmt.Errorf("pools[%d] authority: %w", i, err)
		}
		if _, ok := mints[strings.TrimSpace(p.StakingMint)]; !ok {
			return fmt.Errorf("pools[%d]: unknown staking mint %q", i, p.StakingMint)
		}
		if rm := strings.TrimSpace(p.RewardMint); rm != "" {
			if _, ok := mints[rm]; !ok {
				return fmt.Errorf("pools[%d]: unknown reward mint %q", i, p.RewardMint)
			}
		}
		if p.RewardDuration.Seconds() == 0 {
			return fmt.Errorf("pools[%d]: rewardDuration must be at least one second", i)
		}
	}
	if s.Vesting != nil {
		if _, err := parseKey(s.Vesting.Owner); err != nil {
			return fmt.Errorf("vesting owner: %w", err)
		}
	}
	return nil
}

func parseKey(value string) (solana.PublicKey, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return solana.PublicKey{}, fmt.Errorf("address must be provided")
	}
	return solana.PublicKeyFromBase58(trimmed)
}

func parseGenesisTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("genesisTime must be provided")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid genesisTime %q", value)
}
