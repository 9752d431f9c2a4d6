package vesting

import "fmt"

const (
	day = int64(86400)

	// BasisPoints is the denominator of UpfrontBps.
	BasisPoints = 10_000

	// DefaultClockToleranceSeconds bounds caller timestamps against the
	// ledger clock.
	DefaultClockToleranceSeconds int64 = 300
)

// Params is the vesting policy applied to newly created schedules.
type Params struct {
	DurationSeconds       int64
	WithdrawPeriodSeconds int64
	UpfrontBps            uint64
	MaxInvestors          int
	MaxNameLength         int
	ClockToleranceSeconds int64
	// ReplayClock accepts caller timestamps verbatim.
	ReplayClock           bool
}

// DefaultParams returns production defaults: 720 days of linear release,
// monthly withdrawals and 10% upfront.
func DefaultParams() Params {
	return Params{
		DurationSeconds:       720 * day,
		WithdrawPeriodSeconds: 30 * day,
		UpfrontBps:            1_000,
		MaxInvestors:          128,
		MaxNameLength:         64,
		ClockToleranceSeconds: DefaultClockToleranceSeconds,
	}
}

// Validate rejects unusable parameter sets.
func (p Params) Validate() error {
	if p.DurationSeconds <= 0 {
		return fmt.Errorf("vesting params: duration must be positive")
	}
	if p.WithdrawPeriodSeconds < 0 {
		return fmt.Errorf("vesting params: withdraw period must not be negative")
	}
	if p.UpfrontBps > BasisPoints {
		return fmt.Errorf("vesting params: upfront %d bps exceeds %d", p.UpfrontBps, BasisPoints)
	}
	if p.MaxInvestors <= 0 {
		return fmt.Errorf("vesting params: max investors must be positive")
	}
	if p.MaxNameLength <= 0 {
		return fmt.Errorf("vesting params: max name length must be positive")
	}
	if p.ClockToleranceSeconds <= 0 && !p.ReplayClock {
		return fmt.Errorf("vesting params: clock tolerance must be positive")
	}
	return nil
}
