package staking

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/errors"
)

// BehalfAccounts lists the accounts touched by StakeOnBehalf. Source is a
// staking-mint token account owned by the authority.
type BehalfAccounts struct {
	Pool         solana.PublicKey
	Authority    solana.PublicKey
	Target       solana.PublicKey
	User         solana.PublicKey
	Source       solana.PublicKey
	StakingVault solana.PublicKey
}

// StakeOnBehalf lets the pool authority stake a locked tranche for Target.
// The tranche unlocks BehalfLockSeconds after now, independent of the
// target's own lock.
func (e *Engine) StakeOnBehalf(acc BehalfAccounts, amount uint64, now int64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := requirePositive(amount); err != nil {
		return err
	}
	if err := e.checkClock(now); err != nil {
		return err
	}
	pool, err := e.loadPool(acc.Pool)
	if err != nil {
		return err
	}
	if !pool.Authority.Equals(acc.Authority) {
		return fmt.Errorf("pool %s: %w", acc.Pool, errors.ErrUnauthorized)
	}
	if err := requireUnpaused(pool); err != nil {
		return err
	}
	if err := expectAddress("staking vault", acc.StakingVault, pool.StakingVault); err != nil {
		return err
	}
	user, err := e.ensureUser(UserAccounts{Pool: acc.Pool, User: acc.User, Owner: acc.Target}, pool, now)
	if err != nil {
		return err
	}
	if err := requireCapacity("tranche", len(user.Tranches), e.params.MaxTranches); err != nil {
		return err
	}
	passive := containsKey(pool.PassiveStakers, acc.User)
	if !passive {
		if err := requireCapacity("passive staker", len(pool.PassiveStakers), e.params.MaxPassiveStakers); err != nil {
			return err
		}
	}

	if err := accrue(pool, now); err != nil {
		return err
	}
	if err := settleUser(pool, user); err != nil {
		return err
	}
	balance, err := addChecked(user.BalanceStaked, amount)
	if err != nil {
		return err
	}
	total, err := addChecked(pool.TotalStaked, amount)
	if err != nil {
		return err
	}
	if err := e.tokens.Transfer(acc.Source, pool.StakingVault, acc.Authority, amount); err != nil {
		return err
	}

	if user.StakedCount == 0 {
		user.FirstStakedAt = now
	}
	if user.BalanceStaked == 0 {
		user.LastClaimedAt = now
	}
	user.Tranches = append(user.Tranches, Tranche{Amount: amount, StakedAt: now})
	user.BalanceStaked = balance
	user.LastStakedAt = now
	user.StakedCount++
	pool.TotalStaked = total
	if !passive {
		pool.PassiveStakers = append(pool.PassiveStakers, acc.User)
	}

	if err := e.state.StakingUserPut(acc.User, user); err != nil {
		return err
	}
	if err := e.state.StakingPoolPut(acc.Pool, pool); err != nil {
		return err
	}
	index := len(user.Tranches) - 1
	e.emit(TrancheEvent(EventTypeBehalfStaked, acc.Pool, acc.User, acc.Target, index, amount, now+e.params.BehalfLockSeconds))
	return nil
}

// WithdrawAccounts lists the accounts touched by Withdraw.
type WithdrawAccounts struct {
	Pool         solana.PublicKey
	User         solana.PublicKey
	Owner        solana.PublicKey
	Destination  solana.PublicKey
	StakingVault solana.PublicKey
}

// Withdraw releases one matured tranche to the record owner.
func (e *Engine) Withdraw(acc WithdrawAccounts, index uint32, now int64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.checkClock(now); err != nil {
		return err
	}
	pool, err := e.loadPool(acc.Pool)
	if err != nil {
		return err
	}
	if err := requireUnpaused(pool); err != nil {
		return err
	}
	if err := expectAddress("staking vault", acc.StakingVault, pool.StakingVault); err != nil {
		return err
	}
	user, err := e.loadUser(acc.Pool, acc.User, acc.Owner)
	if err != nil {
		return err
	}
	if int(index) >= len(user.Tranches) {
		return fmt.Errorf("tranche %d of %d: %w", index, len(user.Tranches), errors.ErrTrancheNotFound)
	}
	tranche := user.Tranches[index]
	if tranche.Withdrawn {
		return fmt.Errorf("tranche %d: %w", index, errors.ErrAlreadyClaimed)
	}
	if tranche.Amount == 0 {
		return fmt.Errorf("tranche %d: %w", index, errors.ErrInvalidAmount)
	}
	unlockAt := tranche.StakedAt + e.params.BehalfLockSeconds
	if now < unlockAt {
		return fmt.Errorf("tranche %d unlocks at %d: %w", index, unlockAt, errors.ErrLockNotExpired)
	}

	if err := accrue(pool, now); err != nil {
		return err
	}
	if err := settleUser(pool, user); err != nil {
		return err
	}
	signer, err := e.poolSigner(acc.Pool, pool)
	if err != nil {
		return err
	}
	if err := e.tokens.Transfer(pool.StakingVault, acc.Destination, signer, tranche.Amount); err != nil {
		return err
	}
	user.Tranches[index].Withdrawn = true
	user.BalanceStaked -= tranche.Amount
	pool.TotalStaked -= tranche.Amount

	if err := e.state.StakingUserPut(acc.User, user); err != nil {
		return err
	}
	if err := e.state.StakingPoolPut(acc.Pool, pool); err != nil {
		return err
	}
	e.emit(TrancheEvent(EventTypeBehalfWithdrawn, acc.Pool, acc.User, acc.Owner, int(index), tranche.Amount, unlockAt))
	return nil
}
