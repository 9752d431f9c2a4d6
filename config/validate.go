package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate rejects configurations the ledger cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if c.ClockToleranceSeconds < 0 {
		return fmt.Errorf("config: ClockToleranceSeconds must not be negative")
	}
	if c.ClockToleranceSeconds == 0 && !c.ReplayClock {
		return fmt.Errorf("config: ClockToleranceSeconds must be positive unless ReplayClock is set")
	}
	programs, err := c.Programs()
	if err != nil {
		return fmt.Errorf("config: program id: %w", err)
	}
	if programs.Staking.Equals(programs.Vesting) {
		return fmt.Errorf("config: staking and vesting programs must differ")
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Format)) {
	case "", "json", "text":
	default:
		return fmt.Errorf("config: log format %q must be json or text", c.Log.Format)
	}
	if c.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(c.Metrics.ListenAddress); err != nil {
			return fmt.Errorf("config: metrics address %q: %w", c.Metrics.ListenAddress, err)
		}
	}
	if err := c.StakingParams().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.VestingParams().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
