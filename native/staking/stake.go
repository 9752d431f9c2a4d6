package staking

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/errors"
)

// UserAccounts identifies a stake record and its owner.
type UserAccounts struct {
	Pool  solana.PublicKey
	User  solana.PublicKey
	Owner solana.PublicKey
}

// CreateUser opens the stake record of owner. nonce must be the canonical
// bump of the record address.
func (e *Engine) CreateUser(acc UserAccounts, nonce uint8, now int64) error {
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
	_, bump, err := e.addrs.UserAddress(acc.Owner, acc.Pool)
	if err != nil {
		return err
	}
	if err := expectBump("user", nonce, bump); err != nil {
		return err
	}
	if _, err := e.createUser(acc, pool, now); err != nil {
		return err
	}
	return e.state.StakingPoolPut(acc.Pool, pool)
}

// createUser appends a fresh record to the pool. The caller persists pool.
func (e *Engine) createUser(acc UserAccounts, pool *Pool, now int64) (*User, error) {
	addr, bump, err := e.addrs.UserAddress(acc.Owner, acc.Pool)
	if err != nil {
		return nil, err
	}
	if err := expectAddress("user", acc.User, addr); err != nil {
		return nil, err
	}
	if _, ok, err := e.state.StakingUserGet(acc.User); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("user %s: %w", acc.User, errors.ErrAlreadyInitialized)
	}
	if err := requireCapacity("user", len(pool.Users), e.params.MaxUsers); err != nil {
		return nil, err
	}
	user := &User{
		Pool:         acc.Pool,
		Owner:        acc.Owner,
		Nonce:        bump,
		RegisteredAt: now,
	}
	user.RewardPerTokenPaid.Set(&pool.RewardPerTokenStored)
	if err := e.state.StakingUserPut(acc.User, user); err != nil {
		return nil, err
	}
	pool.Users = append(pool.Users, acc.User)
	pool.UserStakeCount++
	e.emit(RecordEvent(EventTypeUserCreated, acc.Pool, acc.User, acc.Owner))
	return user, nil
}

// ensureUser loads the record of owner or opens it on first interaction.
func (e *Engine) ensureUser(acc UserAccounts, pool *Pool, now int64) (*User, error) {
	user, ok, err := e.state.StakingUserGet(acc.User)
	if err != nil {
		return nil, err
	}
	if !ok {
		return e.createUser(acc, pool, now)
	}
	if !user.Pool.Equals(acc.Pool) {
		return nil, fmt.Errorf("user %s belongs to pool %s: %w", acc.User, user.Pool, errors.ErrInvalidAccount)
	}
	if !user.Owner.Equals(acc.Owner) {
		return nil, fmt.Errorf("user %s: %w", acc.User, errors.ErrUnauthorized)
	}
	return user, nil
}

// StakeAccounts lists the accounts touched by Stake and Unstake. Source is the
// owner's staking-mint token account; Unstake pays back into it.
type StakeAccounts struct {
	Pool         solana.PublicKey
	User         solana.PublicKey
	Owner        solana.PublicKey
	Source       solana.PublicKey
	StakingVault solana.PublicKey
}

// Stake moves amount from the owner into the staking vault and extends the
// lock to now+lockPeriod when that is later than the current lock end.
func (e *Engine) Stake(acc StakeAccounts, amount uint64, now int64, lockPeriod int64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := requirePositive(amount); err != nil {
		return err
	}
	if err := e.checkClock(now); err != nil {
		return err
	}
	if err := checkLockPeriod(now, lockPeriod); err != nil {
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
	user, err := e.ensureUser(UserAccounts{Pool: acc.Pool, User: acc.User, Owner: acc.Owner}, pool, now)
	if err != nil {
		return err
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
	if err := e.tokens.Transfer(acc.Source, pool.StakingVault, acc.Owner, amount); err != nil {
		return err
	}

	if user.StakedCount == 0 {
		user.FirstStakedAt = now
	}
	if user.BalanceStaked == 0 {
		user.LastClaimedAt = now
	}
	if end := now + lockPeriod; end > user.LockEnd {
		user.LockEnd = end
	}
	user.BalanceStaked = balance
	user.LastStakedAt = now
	user.StakedCount++
	pool.TotalStaked = total

	if err := e.state.StakingUserPut(acc.User, user); err != nil {
		return err
	}
	if err := e.state.StakingPoolPut(acc.Pool, pool); err != nil {
		return err
	}
	e.emit(StakeEvent(EventTypeStaked, acc.Pool, acc.User, acc.Owner, amount, user.BalanceStaked, user.LockEnd))
	return nil
}

// Unstake returns self-staked tokens once the lock has expired. Tranches
// staked on the owner's behalf are excluded; they leave through Withdraw.
func (e *Engine) Unstake(acc StakeAccounts, amount uint64, now int64) error {
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
	if now < user.LockEnd {
		return fmt.Errorf("locked until %d: %w", user.LockEnd, errors.ErrLockNotExpired)
	}
	if self := user.SelfStaked(); self < amount {
		return fmt.Errorf("self staked %d < %d: %w", self, amount, errors.ErrInsufficientBalance)
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
	if err := e.tokens.Transfer(pool.StakingVault, acc.Source, signer, amount); err != nil {
		return err
	}
	user.BalanceStaked -= amount
	pool.TotalStaked -= amount

	if err := e.state.StakingUserPut(acc.User, user); err != nil {
		return err
	}
	if err := e.state.StakingPoolPut(acc.Pool, pool); err != nil {
		return err
	}
	e.emit(StakeEvent(EventTypeUnstaked, acc.Pool, acc.User, acc.Owner, amount, user.BalanceStaked, user.LockEnd))
	return nil
}

// ClaimAccounts lists the accounts touched by Claim.
type ClaimAccounts struct {
	Pool        solana.PublicKey
	User        solana.PublicKey
	Owner       solana.PublicKey
	RewardVault solana.PublicKey
	Destination solana.PublicKey
}

// Claim pays out accrued rewards. Payouts are capped at the reward vault
// balance and any shortfall stays pending.
func (e *Engine) Claim(acc ClaimAccounts, now int64) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := e.checkClock(now); err != nil {
		return 0, err
	}
	pool, err := e.loadPool(acc.Pool)
	if err != nil {
		return 0, err
	}
	if err := requireUnpaused(pool); err != nil {
		return 0, err
	}
	if err := expectAddress("reward vault", acc.RewardVault, pool.RewardVault); err != nil {
		return 0, err
	}
	user, err := e.loadUser(acc.Pool, acc.User, acc.Owner)
	if err != nil {
		return 0, err
	}
	if err := accrue(pool, now); err != nil {
		return 0, err
	}
	if err := settleUser(pool, user); err != nil {
		return 0, err
	}
	if user.BalanceStaked == 0 && user.RewardPending == 0 {
		return 0, fmt.Errorf("nothing staked: %w", errors.ErrInsufficientBalance)
	}

	paid, err := e.payReward(acc.Pool, pool, acc.Destination, &user.RewardPending)
	if err != nil {
		return 0, err
	}
	if paid > 0 {
		user.LastClaimedAt = now
		user.ClaimedCount++
	}
	if err := e.state.StakingUserPut(acc.User, user); err != nil {
		return 0, err
	}
	if err := e.state.StakingPoolPut(acc.Pool, pool); err != nil {
		return 0, err
	}
	e.emit(ClaimedEvent(EventTypeClaimed, acc.Pool, acc.User, acc.Owner, paid, user.RewardPending))
	return paid, nil
}

// payReward transfers min(pending, vault balance) and leaves the rest pending.
func (e *Engine) payReward(poolAddr solana.PublicKey, pool *Pool, dest solana.PublicKey, pending *uint64) (uint64, error) {
	if *pending == 0 {
		return 0, nil
	}
	vaultBalance, err := e.tokens.Balance(pool.RewardVault)
	if err != nil {
		return 0, err
	}
	pay := *pending
	if vaultBalance < pay {
		pay = vaultBalance
	}
	if pay == 0 {
		return 0, nil
	}
	signer, err := e.poolSigner(poolAddr, pool)
	if err != nil {
		return 0, err
	}
	if err := e.tokens.Transfer(pool.RewardVault, dest, signer, pay); err != nil {
		return 0, err
	}
	*pending -= pay
	return pay, nil
}

// CloseUser removes an empty stake record from the pool.
func (e *Engine) CloseUser(acc UserAccounts) error {
	if err := e.ready(); err != nil {
		return err
	}
	pool, err := e.loadPool(acc.Pool)
	if err != nil {
		return err
	}
	user, err := e.loadUser(acc.Pool, acc.User, acc.Owner)
	if err != nil {
		return err
	}
	if user.BalanceStaked != 0 || user.RewardPending != 0 {
		return fmt.Errorf("balance %d pending %d: %w", user.BalanceStaked, user.RewardPending, errors.ErrNonZeroBalance)
	}
	if err := e.state.StakingUserDelete(acc.User); err != nil {
		return err
	}
	pool.Users = removeKey(pool.Users, acc.User)
	pool.PassiveStakers = removeKey(pool.PassiveStakers, acc.User)
	if pool.UserStakeCount > 0 {
		pool.UserStakeCount--
	}
	if err := e.state.StakingPoolPut(acc.Pool, pool); err != nil {
		return err
	}
	e.emit(RecordEvent(EventTypeUserClosed, acc.Pool, acc.User, acc.Owner))
	return nil
}

// PendingReward reports what user could claim at now without mutating state.
func (e *Engine) PendingReward(poolAddr, userAddr solana.PublicKey, now int64) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	pool, err := e.loadPool(poolAddr)
	if err != nil {
		return 0, err
	}
	user, ok, err := e.state.StakingUserGet(userAddr)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("user %s: %w", userAddr, errors.ErrAccountNotFound)
	}
	if err := accrue(pool, now); err != nil {
		return 0, err
	}
	return earned(user.BalanceStaked, &pool.RewardPerTokenStored, &user.RewardPerTokenPaid, user.RewardPending)
}

// MerchantPendingReward reports what the merchant could claim at now.
func (e *Engine) MerchantPendingReward(poolAddr, merchantAddr solana.PublicKey, now int64) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	pool, err := e.loadPool(poolAddr)
	if err != nil {
		return 0, err
	}
	merchant, err := e.loadMerchant(poolAddr, merchantAddr)
	if err != nil {
		return 0, err
	}
	if err := accrue(pool, now); err != nil {
		return 0, err
	}
	return earned(merchant.BalanceStaked, &pool.RewardPerTokenStored, &merchant.RewardPerTokenPaid, merchant.RewardPending)
}
