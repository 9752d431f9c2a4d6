package runtime

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/errors"
	"stakeledger/core/state"
	"stakeledger/native/staking"
	"stakeledger/native/token"
	"stakeledger/native/vesting"
)

// lookup reads one typed account from committed state.
func lookup[T any](r *Runtime, kind string, addr solana.PublicKey, get func(*state.Manager, solana.PublicKey) (*T, bool, error)) (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok, err := get(state.NewManager(r.db, r.programs), addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", kind, addr, errors.ErrAccountNotFound)
	}
	return v, nil
}

// Pool returns the committed pool at addr.
func (r *Runtime) Pool(addr solana.PublicKey) (*staking.Pool, error) {
	return lookup(r, "pool", addr, (*state.Manager).StakingPoolGet)
}

// User returns the committed stake record at addr.
func (r *Runtime) User(addr solana.PublicKey) (*staking.User, error) {
	return lookup(r, "user", addr, (*state.Manager).StakingUserGet)
}

// Merchant returns the committed merchant pool at addr.
func (r *Runtime) Merchant(addr solana.PublicKey) (*staking.Merchant, error) {
	return lookup(r, "merchant", addr, (*state.Manager).StakingMerchantGet)
}

// MerchantUser returns the committed merchant stake record at addr.
func (r *Runtime) MerchantUser(addr solana.PublicKey) (*staking.MerchantUser, error) {
	return lookup(r, "merchant user", addr, (*state.Manager).StakingMerchantUserGet)
}

// InvestorRegistry returns the committed investor registry at addr.
func (r *Runtime) InvestorRegistry(addr solana.PublicKey) (*vesting.Registry, error) {
	return lookup(r, "registry", addr, (*state.Manager).VestingRegistryGet)
}

// Vesting returns the committed vesting account at addr.
func (r *Runtime) Vesting(addr solana.PublicKey) (*vesting.Account, error) {
	return lookup(r, "vesting", addr, (*state.Manager).VestingAccountGet)
}

// TokenAccount returns the committed token account at addr.
func (r *Runtime) TokenAccount(addr solana.PublicKey) (*token.Account, error) {
	return lookup(r, "token account", addr, (*state.Manager).TokenAccountGet)
}

// Mint returns the committed mint at addr.
func (r *Runtime) Mint(addr solana.PublicKey) (*token.Mint, error) {
	return lookup(r, "mint", addr, (*state.Manager).TokenMintGet)
}

// Balance returns the amount held by a token account.
func (r *Runtime) Balance(addr solana.PublicKey) (uint64, error) {
	acct, err := r.TokenAccount(addr)
	if err != nil {
		return 0, err
	}
	return acct.Amount, nil
}

// PendingReward previews the reward claimable by a stake record at now.
func (r *Runtime) PendingReward(pool, user solana.PublicKey, now int64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.newBatch(r.db, nil)
	return b.staking.PendingReward(pool, user, now)
}

// MerchantPendingReward previews the reward claimable by a merchant at now.
func (r *Runtime) MerchantPendingReward(pool, merchant solana.PublicKey, now int64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.newBatch(r.db, nil)
	return b.staking.MerchantPendingReward(pool, merchant, now)
}

// Releasable previews what a vesting withdraw would pay at now.
func (r *Runtime) Releasable(addr solana.PublicKey, now int64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.newBatch(r.db, nil)
	return b.vesting.Releasable(addr, now)
}

// TokenAccounts lists every token account owned by the token program.
func (r *Runtime) TokenAccounts() ([]state.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := state.NewManager(r.db, r.programs)
	return m.AccountsOfKind(r.programs.Token, state.TokenAccountDiscriminator)
}
