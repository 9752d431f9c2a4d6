package staking

import "fmt"

const (
	// DefaultBehalfLockSeconds is how long an admin-directed tranche stays locked.
	DefaultBehalfLockSeconds int64 = 2 * 365 * 86400
	// DefaultMaxNameLength caps merchant names in bytes.
	DefaultMaxNameLength = 64
	// DefaultClockToleranceSeconds bounds caller timestamps against the
	// ledger clock.
	DefaultClockToleranceSeconds int64 = 300
)

// Params bounds the staking program. List capacities model the fixed size of
// the on-ledger accounts.
type Params struct {
	MinRewardDuration     uint64
	BehalfLockSeconds     int64
	MaxUsers              int
	MaxMerchants          int
	MaxPassiveStakers     int
	MaxMerchantUsers      int
	MaxTranches           int
	MaxFunders            int
	MaxNameLength         int
	ClockToleranceSeconds int64
	// ReplayClock accepts caller timestamps verbatim. Only for replaying a
	// recorded history.
	ReplayClock           bool
}

// DefaultParams returns production defaults.
func DefaultParams() Params {
	return Params{
		MinRewardDuration: 1,
		BehalfLockSeconds: DefaultBehalfLockSeconds,
		MaxUsers:          256,
		MaxMerchants:      64,
		MaxPassiveStakers: 256,
		MaxMerchantUsers:  128,
		MaxTranches:       64,
		MaxFunders:        4,
		MaxNameLength:     DefaultMaxNameLength,

		ClockToleranceSeconds: DefaultClockToleranceSeconds,
	}
}

// Validate rejects unusable parameter sets.
func (p Params) Validate() error {
	if p.MinRewardDuration == 0 {
		return fmt.Errorf("staking params: min reward duration must be positive")
	}
	if p.BehalfLockSeconds < 0 {
		return fmt.Errorf("staking params: behalf lock must not be negative")
	}
	if p.ClockToleranceSeconds <= 0 && !p.ReplayClock {
		return fmt.Errorf("staking params: clock tolerance must be positive")
	}
	for name, v := range map[string]int{
		"max users":           p.MaxUsers,
		"max merchants":       p.MaxMerchants,
		"max passive stakers": p.MaxPassiveStakers,
		"max merchant users":  p.MaxMerchantUsers,
		"max tranches":        p.MaxTranches,
		"max name length":     p.MaxNameLength,
	} {
		if v <= 0 {
			return fmt.Errorf("staking params: %s must be positive", name)
		}
	}
	if p.MaxFunders < 0 {
		return fmt.Errorf("staking params: max funders must not be negative")
	}
	return nil
}
