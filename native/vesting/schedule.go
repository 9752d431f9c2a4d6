package vesting

import (
	"github.com/holiman/uint256"

	"stakeledger/core/errors"
)

func mulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, errors.ErrMathOverflow
	}
	v := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	v.Div(v, uint256.NewInt(d))
	if !v.IsUint64() {
		return 0, errors.ErrMathOverflow
	}
	return v.Uint64(), nil
}

// UpfrontPortion is the share of total released by the one-off upfront.
func UpfrontPortion(total, bps uint64) (uint64, error) {
	return mulDiv(total, bps, BasisPoints)
}

// LinearVested is the linear share released by now, excluding the upfront
// portion. It is zero before the cliff and complete after cliff+duration.
func LinearVested(acct *Account, bps uint64, now int64) (uint64, error) {
	upfront, err := UpfrontPortion(acct.TotalDepositedAmount, bps)
	if err != nil {
		return 0, err
	}
	base := acct.TotalDepositedAmount - upfront
	if acct.Duration <= 0 {
		return base, nil
	}
	elapsed := now - acct.CliffTs
	switch {
	case elapsed <= 0:
		return 0, nil
	case elapsed >= acct.Duration:
		return base, nil
	}
	return mulDiv(base, uint64(elapsed), uint64(acct.Duration))
}

// Releasable is what a withdraw at now would pay.
func Releasable(acct *Account, bps uint64, now int64) (uint64, error) {
	vested, err := LinearVested(acct, bps, now)
	if err != nil {
		return 0, err
	}
	linearReleased := acct.ReleasedAmount - acct.UpfrontReleased
	if vested <= linearReleased {
		return 0, nil
	}
	delta := vested - linearReleased
	if locked := acct.Locked(); delta > locked {
		delta = locked
	}
	return delta, nil
}
