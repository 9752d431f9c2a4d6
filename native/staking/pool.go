package staking

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/errors"
)

// InitPoolAccounts lists the accounts touched by InitializePool.
type InitPoolAccounts struct {
	Authority    solana.PublicKey
	Pool         solana.PublicKey
	PoolSigner   solana.PublicKey
	StakingMint  solana.PublicKey
	RewardMint   solana.PublicKey
	StakingVault solana.PublicKey
	RewardVault  solana.PublicKey
}

// InitializePool creates the main pool and opens both vaults under the pool
// signer's custody.
func (e *Engine) InitializePool(acc InitPoolAccounts, bump uint8, rewardDuration uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if rewardDuration < e.params.MinRewardDuration {
		return fmt.Errorf("duration %d below %d: %w", rewardDuration, e.params.MinRewardDuration, errors.ErrDurationTooShort)
	}
	poolAddr, _, err := e.addrs.PoolAddress(acc.Authority, acc.StakingMint)
	if err != nil {
		return err
	}
	if err := expectAddress("pool", acc.Pool, poolAddr); err != nil {
		return err
	}
	signer, signerBump, err := e.addrs.PoolSigner(acc.Pool)
	if err != nil {
		return err
	}
	if err := expectAddress("pool signer", acc.PoolSigner, signer); err != nil {
		return err
	}
	if err := expectBump("pool signer", bump, signerBump); err != nil {
		return err
	}
	stakingVault, rewardVault, err := e.addrs.Vaults(acc.Authority, acc.StakingMint)
	if err != nil {
		return err
	}
	if err := expectAddress("staking vault", acc.StakingVault, stakingVault); err != nil {
		return err
	}
	if err := expectAddress("reward vault", acc.RewardVault, rewardVault); err != nil {
		return err
	}

	if _, ok, err := e.state.StakingPoolGet(acc.Pool); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("pool %s: %w", acc.Pool, errors.ErrAlreadyInitialized)
	}
	if err := e.tokens.InitializeAccount(stakingVault, acc.StakingMint, signer); err != nil {
		return fmt.Errorf("staking vault: %w", err)
	}
	if err := e.tokens.InitializeAccount(rewardVault, acc.RewardMint, signer); err != nil {
		return fmt.Errorf("reward vault: %w", err)
	}

	pool := &Pool{
		Authority:      acc.Authority,
		Nonce:          bump,
		StakingMint:    acc.StakingMint,
		StakingVault:   stakingVault,
		RewardMint:     acc.RewardMint,
		RewardVault:    rewardVault,
		RewardDuration: rewardDuration,
	}
	if err := e.state.StakingPoolPut(acc.Pool, pool); err != nil {
		return err
	}
	e.emit(PoolCreatedEvent(acc.Pool, pool))
	return nil
}

// FundAccounts lists the accounts touched by Fund.
type FundAccounts struct {
	Pool        solana.PublicKey
	Funder      solana.PublicKey
	Source      solana.PublicKey
	RewardVault solana.PublicKey
}

// Fund deposits reward tokens and restarts the reward period at the ledger
// clock. Any undistributed remainder of the running period is carried over.
func (e *Engine) Fund(acc FundAccounts, amount uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := requirePositive(amount); err != nil {
		return err
	}
	pool, err := e.loadPool(acc.Pool)
	if err != nil {
		return err
	}
	if err := requireUnpaused(pool); err != nil {
		return err
	}
	if !pool.IsFunder(acc.Funder) {
		return fmt.Errorf("funder %s: %w", acc.Funder, errors.ErrUnauthorized)
	}
	if err := expectAddress("reward vault", acc.RewardVault, pool.RewardVault); err != nil {
		return err
	}

	now := e.now()
	if err := accrue(pool, now); err != nil {
		return err
	}
	rate, err := nextRewardRate(pool, amount, now)
	if err != nil {
		return err
	}
	if err := e.tokens.Transfer(acc.Source, pool.RewardVault, acc.Funder, amount); err != nil {
		return err
	}
	pool.RewardRate = rate
	pool.LastUpdateTime = now
	pool.RewardDurationEnd = now + int64(pool.RewardDuration)
	if err := e.state.StakingPoolPut(acc.Pool, pool); err != nil {
		return err
	}
	e.emit(PoolFundedEvent(acc.Pool, acc.Funder, amount, pool))
	return nil
}

// PoolAdminAccounts identifies the pool and its signing authority.
type PoolAdminAccounts struct {
	Pool      solana.PublicKey
	Authority solana.PublicKey
}

func (e *Engine) loadAdminPool(acc PoolAdminAccounts) (*Pool, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	pool, err := e.loadPool(acc.Pool)
	if err != nil {
		return nil, err
	}
	if !pool.Authority.Equals(acc.Authority) {
		return nil, fmt.Errorf("pool %s: %w", acc.Pool, errors.ErrUnauthorized)
	}
	return pool, nil
}

// Pause stops every stake-moving operation on the pool.
func (e *Engine) Pause(acc PoolAdminAccounts) error {
	pool, err := e.loadAdminPool(acc)
	if err != nil {
		return err
	}
	if pool.Paused {
		return errors.ErrPoolPaused
	}
	pool.Paused = true
	if err := e.state.StakingPoolPut(acc.Pool, pool); err != nil {
		return err
	}
	e.emit(PoolToggleEvent(EventTypePoolPaused, acc.Pool, acc.Authority))
	return nil
}

// Unpause resumes a paused pool.
func (e *Engine) Unpause(acc PoolAdminAccounts) error {
	pool, err := e.loadAdminPool(acc)
	if err != nil {
		return err
	}
	if !pool.Paused {
		return errors.ErrPoolNotPaused
	}
	pool.Paused = false
	if err := e.state.StakingPoolPut(acc.Pool, pool); err != nil {
		return err
	}
	e.emit(PoolToggleEvent(EventTypePoolUnpaused, acc.Pool, acc.Authority))
	return nil
}

// AuthorizeFunder lets funder deposit rewards.
func (e *Engine) AuthorizeFunder(acc PoolAdminAccounts, funder solana.PublicKey) error {
	pool, err := e.loadAdminPool(acc)
	if err != nil {
		return err
	}
	if funder.Equals(pool.Authority) {
		return errors.ErrCannotDeauthorizeAuthority
	}
	if containsKey(pool.Funders, funder) {
		return errors.ErrFunderAlreadyAuthorized
	}
	if err := requireCapacity("funder", len(pool.Funders), e.params.MaxFunders); err != nil {
		return err
	}
	pool.Funders = append(pool.Funders, funder)
	if err := e.state.StakingPoolPut(acc.Pool, pool); err != nil {
		return err
	}
	e.emit(FunderEvent(EventTypeFunderAuthorized, acc.Pool, funder))
	return nil
}

// DeauthorizeFunder removes funder from the pool.
func (e *Engine) DeauthorizeFunder(acc PoolAdminAccounts, funder solana.PublicKey) error {
	pool, err := e.loadAdminPool(acc)
	if err != nil {
		return err
	}
	if funder.Equals(pool.Authority) {
		return errors.ErrCannotDeauthorizeAuthority
	}
	if !containsKey(pool.Funders, funder) {
		return errors.ErrFunderNotFound
	}
	pool.Funders = removeKey(pool.Funders, funder)
	if err := e.state.StakingPoolPut(acc.Pool, pool); err != nil {
		return err
	}
	e.emit(FunderEvent(EventTypeFunderDeauthorized, acc.Pool, funder))
	return nil
}

// ClosePoolAccounts lists the accounts touched by ClosePool.
type ClosePoolAccounts struct {
	Pool            solana.PublicKey
	Authority       solana.PublicKey
	StakingVault    solana.PublicKey
	RewardVault     solana.PublicKey
	StakingRefundee solana.PublicKey
	RewardRefundee  solana.PublicKey
}

// ClosePool sweeps both vaults to the authority and removes the pool. The
// pool must be paused with no stake, no user records and no merchant holding
// stake or unclaimed reward. Drained merchant records go with the pool.
func (e *Engine) ClosePool(acc ClosePoolAccounts) error {
	pool, err := e.loadAdminPool(PoolAdminAccounts{Pool: acc.Pool, Authority: acc.Authority})
	if err != nil {
		return err
	}
	if !pool.Paused {
		return errors.ErrPoolNotPaused
	}
	if pool.TotalStaked != 0 {
		return fmt.Errorf("pool holds %d staked: %w", pool.TotalStaked, errors.ErrNonZeroBalance)
	}
	if len(pool.Users) != 0 {
		return fmt.Errorf("pool has %d user records: %w", len(pool.Users), errors.ErrPoolNotEmpty)
	}
	if err := expectAddress("staking vault", acc.StakingVault, pool.StakingVault); err != nil {
		return err
	}
	if err := expectAddress("reward vault", acc.RewardVault, pool.RewardVault); err != nil {
		return err
	}
	if err := accrue(pool, e.now()); err != nil {
		return err
	}
	merchants := make([]*Merchant, 0, len(pool.Merchants))
	for _, merchantAddr := range pool.Merchants {
		merchant, ok, err := e.state.StakingMerchantGet(merchantAddr)
		if err != nil {
			return err
		}
		if !ok {
			merchants = append(merchants, nil)
			continue
		}
		if err := settleMerchant(pool, merchant); err != nil {
			return err
		}
		if merchant.BalanceStaked != 0 || merchant.RewardPending != 0 {
			return fmt.Errorf("merchant %s holds %d staked, %d unclaimed: %w",
				merchantAddr, merchant.BalanceStaked, merchant.RewardPending, errors.ErrPoolNotEmpty)
		}
		merchants = append(merchants, merchant)
	}
	signer, err := e.poolSigner(acc.Pool, pool)
	if err != nil {
		return err
	}

	stakingRefund, err := e.sweep(pool.StakingVault, acc.StakingRefundee, signer)
	if err != nil {
		return fmt.Errorf("staking vault: %w", err)
	}
	rewardRefund, err := e.sweep(pool.RewardVault, acc.RewardRefundee, signer)
	if err != nil {
		return fmt.Errorf("reward vault: %w", err)
	}

	for i, merchantAddr := range pool.Merchants {
		merchant := merchants[i]
		if merchant == nil {
			continue
		}
		for _, mu := range merchant.Users {
			if err := e.state.StakingMerchantUserDelete(mu); err != nil {
				return err
			}
		}
		if err := e.state.StakingMerchantDelete(merchantAddr); err != nil {
			return err
		}
	}
	if err := e.state.StakingPoolDelete(acc.Pool); err != nil {
		return err
	}
	e.emit(PoolClosedEvent(acc.Pool, rewardRefund, stakingRefund))
	return nil
}

func (e *Engine) sweep(vault, dest, signer solana.PublicKey) (uint64, error) {
	balance, err := e.tokens.Balance(vault)
	if err != nil {
		return 0, err
	}
	if balance > 0 {
		if err := e.tokens.Transfer(vault, dest, signer, balance); err != nil {
			return 0, err
		}
	}
	if err := e.tokens.CloseAccount(vault, signer); err != nil {
		return 0, err
	}
	return balance, nil
}
