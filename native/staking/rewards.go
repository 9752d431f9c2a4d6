package staking

import (
	"math"

	"github.com/holiman/uint256"

	"stakeledger/core/errors"
)

// precision scales the reward-per-token accumulator.
var precision = uint256.NewInt(math.MaxUint64)

// Precision returns a copy of the accumulator scale.
func Precision() *uint256.Int { return new(uint256.Int).Set(precision) }

// lastTimeRewardApplicable caps now at the end of the funded period.
func lastTimeRewardApplicable(pool *Pool, now int64) int64 {
	if now > pool.RewardDurationEnd {
		return pool.RewardDurationEnd
	}
	return now
}

// accrue advances the pool accumulator to now. The accumulator only grows
// while something is staked and LastUpdateTime never moves backwards.
func accrue(pool *Pool, now int64) error {
	applicable := lastTimeRewardApplicable(pool, now)
	if applicable <= pool.LastUpdateTime {
		return nil
	}
	if pool.TotalStaked > 0 && pool.RewardRate > 0 {
		delta, err := rewardPerTokenDelta(uint64(applicable-pool.LastUpdateTime), pool.RewardRate, pool.TotalStaked)
		if err != nil {
			return err
		}
		if _, overflow := pool.RewardPerTokenStored.AddOverflow(&pool.RewardPerTokenStored, delta); overflow {
			return errors.ErrMathOverflow
		}
	}
	pool.LastUpdateTime = applicable
	return nil
}

func rewardPerTokenDelta(elapsed, rate, total uint64) (*uint256.Int, error) {
	v := new(uint256.Int).Mul(uint256.NewInt(elapsed), uint256.NewInt(rate))
	if _, overflow := v.MulOverflow(v, precision); overflow {
		return nil, errors.ErrMathOverflow
	}
	return v.Div(v, uint256.NewInt(total)), nil
}

// earned returns balance × (rpt − paid) / precision + pending.
func earned(balance uint64, rpt, paid *uint256.Int, pending uint64) (uint64, error) {
	if rpt.Lt(paid) {
		return 0, errors.ErrMathOverflow
	}
	diff := new(uint256.Int).Sub(rpt, paid)
	if _, overflow := diff.MulOverflow(diff, uint256.NewInt(balance)); overflow {
		return 0, errors.ErrMathOverflow
	}
	diff.Div(diff, precision)
	diff.Add(diff, uint256.NewInt(pending))
	if !diff.IsUint64() {
		return 0, errors.ErrMathOverflow
	}
	return diff.Uint64(), nil
}

// settleUser checkpoints a user record against the pool accumulator.
func settleUser(pool *Pool, user *User) error {
	amount, err := earned(user.BalanceStaked, &pool.RewardPerTokenStored, &user.RewardPerTokenPaid, user.RewardPending)
	if err != nil {
		return err
	}
	user.RewardPending = amount
	user.RewardPerTokenPaid.Set(&pool.RewardPerTokenStored)
	return nil
}

// settleMerchant checkpoints a merchant against the pool accumulator.
func settleMerchant(pool *Pool, merchant *Merchant) error {
	amount, err := earned(merchant.BalanceStaked, &pool.RewardPerTokenStored, &merchant.RewardPerTokenPaid, merchant.RewardPending)
	if err != nil {
		return err
	}
	merchant.RewardPending = amount
	merchant.RewardPerTokenPaid.Set(&pool.RewardPerTokenStored)
	return nil
}

// nextRewardRate computes the rate after funding amount at now, carrying the
// undistributed remainder of the running period into the new one.
func nextRewardRate(pool *Pool, amount uint64, now int64) (uint64, error) {
	total := uint256.NewInt(amount)
	if now < pool.RewardDurationEnd {
		remaining := new(uint256.Int).Mul(uint256.NewInt(uint64(pool.RewardDurationEnd-now)), uint256.NewInt(pool.RewardRate))
		total.Add(total, remaining)
	}
	total.Div(total, uint256.NewInt(pool.RewardDuration))
	if !total.IsUint64() {
		return 0, errors.ErrMathOverflow
	}
	return total.Uint64(), nil
}
