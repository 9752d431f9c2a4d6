package staking

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/errors"
)

// MerchantAccounts identifies a merchant pool and the signer acting on it.
type MerchantAccounts struct {
	Pool     solana.PublicKey
	Merchant solana.PublicKey
	Owner    solana.PublicKey
}

// InitializeMerchant opens the merchant pool of owner. At most one merchant
// exists per owner and pool.
func (e *Engine) InitializeMerchant(acc MerchantAccounts, name string, nonce uint8, now int64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.checkClock(now); err != nil {
		return err
	}
	if len(name) > e.params.MaxNameLength {
		return fmt.Errorf("name is %d bytes: %w", len(name), errors.ErrNameTooLong)
	}
	pool, err := e.loadPool(acc.Pool)
	if err != nil {
		return err
	}
	if err := requireUnpaused(pool); err != nil {
		return err
	}
	addr, bump, err := e.addrs.MerchantAddress(acc.Owner, acc.Pool)
	if err != nil {
		return err
	}
	if err := expectAddress("merchant", acc.Merchant, addr); err != nil {
		return err
	}
	if err := expectBump("merchant", nonce, bump); err != nil {
		return err
	}
	if _, ok, err := e.state.StakingMerchantGet(acc.Merchant); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("merchant %s: %w", acc.Merchant, errors.ErrAlreadyInitialized)
	}
	if err := requireCapacity("merchant", len(pool.Merchants), e.params.MaxMerchants); err != nil {
		return err
	}

	merchant := &Merchant{
		Pool:          acc.Pool,
		Owner:         acc.Owner,
		Nonce:         bump,
		Name:          name,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	merchant.RewardPerTokenPaid.Set(&pool.RewardPerTokenStored)
	pool.Merchants = append(pool.Merchants, acc.Merchant)
	pool.MerchantCount++
	if err := e.state.StakingMerchantPut(acc.Merchant, merchant); err != nil {
		return err
	}
	if err := e.state.StakingPoolPut(acc.Pool, pool); err != nil {
		return err
	}
	e.emit(MerchantCreatedEvent(acc.Pool, acc.Merchant, acc.Owner, name))
	return nil
}

// MerchantUserAccounts identifies a stake record under a merchant.
type MerchantUserAccounts struct {
	Pool         solana.PublicKey
	Merchant     solana.PublicKey
	MerchantUser solana.PublicKey
	Owner        solana.PublicKey
}

// CreateMerchantUser opens the merchant stake record of owner.
func (e *Engine) CreateMerchantUser(acc MerchantUserAccounts, nonce uint8, now int64) error {
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
	merchant, err := e.loadMerchant(acc.Pool, acc.Merchant)
	if err != nil {
		return err
	}
	if merchant.Paused {
		return errors.ErrMerchantPaused
	}
	_, bump, err := e.addrs.MerchantUserAddress(acc.Owner, acc.Merchant, acc.Pool)
	if err != nil {
		return err
	}
	if err := expectBump("merchant user", nonce, bump); err != nil {
		return err
	}
	if _, err := e.createMerchantUser(acc, merchant, now); err != nil {
		return err
	}
	return e.state.StakingMerchantPut(acc.Merchant, merchant)
}

func (e *Engine) createMerchantUser(acc MerchantUserAccounts, merchant *Merchant, now int64) (*MerchantUser, error) {
	addr, bump, err := e.addrs.MerchantUserAddress(acc.Owner, acc.Merchant, acc.Pool)
	if err != nil {
		return nil, err
	}
	if err := expectAddress("merchant user", acc.MerchantUser, addr); err != nil {
		return nil, err
	}
	if _, ok, err := e.state.StakingMerchantUserGet(acc.MerchantUser); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("merchant user %s: %w", acc.MerchantUser, errors.ErrAlreadyInitialized)
	}
	if err := requireCapacity("merchant user", len(merchant.Users), e.params.MaxMerchantUsers); err != nil {
		return nil, err
	}
	mu := &MerchantUser{
		Pool:         acc.Pool,
		Merchant:     acc.Merchant,
		Owner:        acc.Owner,
		Nonce:        bump,
		RegisteredAt: now,
	}
	if err := e.state.StakingMerchantUserPut(acc.MerchantUser, mu); err != nil {
		return nil, err
	}
	merchant.Users = append(merchant.Users, acc.MerchantUser)
	merchant.UserStakeCount++
	e.emit(RecordEvent(EventTypeMerchantUserCreated, acc.Pool, acc.MerchantUser, acc.Owner))
	return mu, nil
}

func (e *Engine) loadMerchantUser(acc MerchantUserAccounts) (*MerchantUser, bool, error) {
	mu, ok, err := e.state.StakingMerchantUserGet(acc.MerchantUser)
	if err != nil || !ok {
		return nil, ok, err
	}
	if !mu.Merchant.Equals(acc.Merchant) || !mu.Pool.Equals(acc.Pool) {
		return nil, true, fmt.Errorf("merchant user %s: %w", acc.MerchantUser, errors.ErrInvalidAccount)
	}
	if !mu.Owner.Equals(acc.Owner) {
		return nil, true, fmt.Errorf("merchant user %s: %w", acc.MerchantUser, errors.ErrUnauthorized)
	}
	return mu, true, nil
}

// MerchantStakeAccounts lists the accounts touched by merchant staking.
type MerchantStakeAccounts struct {
	Pool         solana.PublicKey
	Merchant     solana.PublicKey
	MerchantUser solana.PublicKey
	Owner        solana.PublicKey
	Source       solana.PublicKey
	StakingVault solana.PublicKey
}

func (a MerchantStakeAccounts) record() MerchantUserAccounts {
	return MerchantUserAccounts{Pool: a.Pool, Merchant: a.Merchant, MerchantUser: a.MerchantUser, Owner: a.Owner}
}

func (e *Engine) loadMerchantContext(acc MerchantStakeAccounts, now int64) (*Pool, *Merchant, error) {
	if err := e.ready(); err != nil {
		return nil, nil, err
	}
	if err := e.checkClock(now); err != nil {
		return nil, nil, err
	}
	pool, err := e.loadPool(acc.Pool)
	if err != nil {
		return nil, nil, err
	}
	if err := requireUnpaused(pool); err != nil {
		return nil, nil, err
	}
	if err := expectAddress("staking vault", acc.StakingVault, pool.StakingVault); err != nil {
		return nil, nil, err
	}
	merchant, err := e.loadMerchant(acc.Pool, acc.Merchant)
	if err != nil {
		return nil, nil, err
	}
	if merchant.Paused {
		return nil, nil, errors.ErrMerchantPaused
	}
	return pool, merchant, nil
}

// StakeToMerchant stakes into a merchant pool. The merchant's aggregate
// balance earns rewards from the shared pool accumulator.
func (e *Engine) StakeToMerchant(acc MerchantStakeAccounts, amount uint64, now int64, lockPeriod int64) error {
	if err := requirePositive(amount); err != nil {
		return err
	}
	pool, merchant, err := e.loadMerchantContext(acc, now)
	if err != nil {
		return err
	}
	if err := checkLockPeriod(now, lockPeriod); err != nil {
		return err
	}
	mu, ok, err := e.loadMerchantUser(acc.record())
	if err != nil {
		return err
	}
	if !ok {
		if mu, err = e.createMerchantUser(acc.record(), merchant, now); err != nil {
			return err
		}
	}

	if err := accrue(pool, now); err != nil {
		return err
	}
	if err := settleMerchant(pool, merchant); err != nil {
		return err
	}
	userBalance, err := addChecked(mu.BalanceStaked, amount)
	if err != nil {
		return err
	}
	merchantBalance, err := addChecked(merchant.BalanceStaked, amount)
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

	if merchant.BalanceStaked == 0 {
		merchant.LastUpdatedAt = now
	}
	if mu.StakedCount == 0 {
		mu.FirstStakedAt = now
	}
	if mu.BalanceStaked == 0 {
		mu.LastClaimedAt = now
	}
	if end := now + lockPeriod; end > mu.LockEnd {
		mu.LockEnd = end
	}
	mu.BalanceStaked = userBalance
	mu.LastStakedAt = now
	mu.StakedCount++
	merchant.BalanceStaked = merchantBalance
	pool.TotalStaked = total

	if err := e.persistMerchant(acc, pool, merchant, mu); err != nil {
		return err
	}
	e.emit(StakeEvent(EventTypeMerchantStaked, acc.Pool, acc.MerchantUser, acc.Owner, amount, mu.BalanceStaked, mu.LockEnd))
	return nil
}

// UnstakeFromMerchant returns merchant-staked tokens once the lock expired.
func (e *Engine) UnstakeFromMerchant(acc MerchantStakeAccounts, amount uint64, now int64) error {
	if err := requirePositive(amount); err != nil {
		return err
	}
	pool, merchant, err := e.loadMerchantContext(acc, now)
	if err != nil {
		return err
	}
	mu, ok, err := e.loadMerchantUser(acc.record())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("merchant user %s: %w", acc.MerchantUser, errors.ErrAccountNotFound)
	}
	if now < mu.LockEnd {
		return fmt.Errorf("locked until %d: %w", mu.LockEnd, errors.ErrLockNotExpired)
	}
	if mu.BalanceStaked < amount {
		return fmt.Errorf("staked %d < %d: %w", mu.BalanceStaked, amount, errors.ErrInsufficientBalance)
	}

	if err := accrue(pool, now); err != nil {
		return err
	}
	if err := settleMerchant(pool, merchant); err != nil {
		return err
	}
	signer, err := e.poolSigner(acc.Pool, pool)
	if err != nil {
		return err
	}
	if err := e.tokens.Transfer(pool.StakingVault, acc.Source, signer, amount); err != nil {
		return err
	}
	mu.BalanceStaked -= amount
	merchant.BalanceStaked -= amount
	pool.TotalStaked -= amount

	if err := e.persistMerchant(acc, pool, merchant, mu); err != nil {
		return err
	}
	e.emit(StakeEvent(EventTypeMerchantUnstaked, acc.Pool, acc.MerchantUser, acc.Owner, amount, mu.BalanceStaked, mu.LockEnd))
	return nil
}

func (e *Engine) persistMerchant(acc MerchantStakeAccounts, pool *Pool, merchant *Merchant, mu *MerchantUser) error {
	if err := e.state.StakingMerchantUserPut(acc.MerchantUser, mu); err != nil {
		return err
	}
	if err := e.state.StakingMerchantPut(acc.Merchant, merchant); err != nil {
		return err
	}
	return e.state.StakingPoolPut(acc.Pool, pool)
}

func (e *Engine) loadMerchantForAdmin(acc MerchantAccounts) (*Merchant, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	pool, err := e.loadPool(acc.Pool)
	if err != nil {
		return nil, err
	}
	merchant, err := e.loadMerchant(acc.Pool, acc.Merchant)
	if err != nil {
		return nil, err
	}
	if !merchant.Owner.Equals(acc.Owner) && !pool.Authority.Equals(acc.Owner) {
		return nil, fmt.Errorf("merchant %s: %w", acc.Merchant, errors.ErrUnauthorized)
	}
	return merchant, nil
}

// PauseMerchant pauses a merchant. The merchant owner or the pool authority
// may sign; acc.Owner carries the signer.
func (e *Engine) PauseMerchant(acc MerchantAccounts) error {
	merchant, err := e.loadMerchantForAdmin(acc)
	if err != nil {
		return err
	}
	if merchant.Paused {
		return errors.ErrMerchantPaused
	}
	merchant.Paused = true
	if err := e.state.StakingMerchantPut(acc.Merchant, merchant); err != nil {
		return err
	}
	e.emit(MerchantToggleEvent(EventTypeMerchantPaused, acc.Merchant, acc.Owner))
	return nil
}

// UnpauseMerchant resumes a paused merchant.
func (e *Engine) UnpauseMerchant(acc MerchantAccounts) error {
	merchant, err := e.loadMerchantForAdmin(acc)
	if err != nil {
		return err
	}
	if !merchant.Paused {
		return errors.ErrMerchantNotPaused
	}
	merchant.Paused = false
	if err := e.state.StakingMerchantPut(acc.Merchant, merchant); err != nil {
		return err
	}
	e.emit(MerchantToggleEvent(EventTypeMerchantUnpaused, acc.Merchant, acc.Owner))
	return nil
}

// MerchantClaimAccounts lists the accounts touched by ClaimMerchantReward.
type MerchantClaimAccounts struct {
	Pool        solana.PublicKey
	Merchant    solana.PublicKey
	Owner       solana.PublicKey
	RewardVault solana.PublicKey
	Destination solana.PublicKey
}

// ClaimMerchantReward pays the rewards earned by the merchant's aggregate
// balance to its owner.
func (e *Engine) ClaimMerchantReward(acc MerchantClaimAccounts, now int64) (uint64, error) {
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
	merchant, err := e.loadMerchant(acc.Pool, acc.Merchant)
	if err != nil {
		return 0, err
	}
	if !merchant.Owner.Equals(acc.Owner) {
		return 0, fmt.Errorf("merchant %s: %w", acc.Merchant, errors.ErrUnauthorized)
	}
	if err := accrue(pool, now); err != nil {
		return 0, err
	}
	if err := settleMerchant(pool, merchant); err != nil {
		return 0, err
	}
	if merchant.BalanceStaked == 0 && merchant.RewardPending == 0 {
		return 0, fmt.Errorf("merchant has nothing staked: %w", errors.ErrInsufficientBalance)
	}
	paid, err := e.payReward(acc.Pool, pool, acc.Destination, &merchant.RewardPending)
	if err != nil {
		return 0, err
	}
	if paid > 0 {
		merchant.ClaimedCount++
		merchant.LastUpdatedAt = now
	}
	if err := e.state.StakingMerchantPut(acc.Merchant, merchant); err != nil {
		return 0, err
	}
	if err := e.state.StakingPoolPut(acc.Pool, pool); err != nil {
		return 0, err
	}
	e.emit(ClaimedEvent(EventTypeMerchantClaimed, acc.Pool, acc.Merchant, acc.Owner, paid, merchant.RewardPending))
	return paid, nil
}
