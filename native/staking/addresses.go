package staking

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/errors"
	"stakeledger/crypto"
)

const (
	PoolSeed         = "main-pool"
	MerchantSeed     = "merchant-pool"
	StakingVaultSeed = "staking-vault"
	RewardVaultSeed  = "reward-vault"
)

// DefaultProgramID is the deployed staking program address.
var DefaultProgramID = solana.MustPublicKeyFromBase58("6RwUKAHuSbadG6sQzcfEYKh6UGvPvCXB1nq7BPEyn5Jg")

// Addresses derives every account of the staking program for one program ID.
type Addresses struct {
	ProgramID solana.PublicKey
}

// PoolAddress derives the pool for an authority and staking mint.
func (a Addresses) PoolAddress(authority, stakingMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return crypto.FindProgramAddress(a.ProgramID, []byte(PoolSeed), authority.Bytes(), stakingMint.Bytes())
}

// PoolSigner derives the custody authority of the pool vaults.
func (a Addresses) PoolSigner(pool solana.PublicKey) (solana.PublicKey, uint8, error) {
	return crypto.FindProgramAddress(a.ProgramID, pool.Bytes())
}

// Vaults derives the staking and reward vaults. Both are seeded by the
// authority's associated token account for the staking mint.
func (a Addresses) Vaults(authority, stakingMint solana.PublicKey) (stakingVault, rewardVault solana.PublicKey, err error) {
	poolToken, err := crypto.AssociatedTokenAddress(authority, stakingMint)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	stakingVault, _, err = crypto.FindProgramAddress(a.ProgramID, []byte(StakingVaultSeed), poolToken.Bytes())
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	rewardVault, _, err = crypto.FindProgramAddress(a.ProgramID, []byte(RewardVaultSeed), poolToken.Bytes())
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	return stakingVault, rewardVault, nil
}

// UserAddress derives the stake record of owner in pool.
func (a Addresses) UserAddress(owner, pool solana.PublicKey) (solana.PublicKey, uint8, error) {
	return crypto.FindProgramAddress(a.ProgramID, owner.Bytes(), pool.Bytes())
}

// MerchantAddress derives the merchant pool of owner under pool.
func (a Addresses) MerchantAddress(owner, pool solana.PublicKey) (solana.PublicKey, uint8, error) {
	return crypto.FindProgramAddress(a.ProgramID, []byte(MerchantSeed), owner.Bytes(), pool.Bytes())
}

// MerchantUserAddress derives the stake record of owner under merchant.
func (a Addresses) MerchantUserAddress(owner, merchant, pool solana.PublicKey) (solana.PublicKey, uint8, error) {
	return crypto.FindProgramAddress(a.ProgramID, owner.Bytes(), merchant.Bytes(), pool.Bytes())
}

func expectAddress(kind string, got, want solana.PublicKey) error {
	if !got.Equals(want) {
		return fmt.Errorf("%s %s does not match derived %s: %w", kind, got, want, errors.ErrInvalidAccount)
	}
	return nil
}

func expectBump(kind string, got, want uint8) error {
	if got != want {
		return fmt.Errorf("%s bump %d does not match canonical %d: %w", kind, got, want, errors.ErrInvalidAccount)
	}
	return nil
}
