package staking

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/types"
	"stakeledger/native/staking"
)

// Instruction names. The on-ledger discriminator is the first eight bytes of
// sha256("global:<name>").
const (
	InstructionInitializePool      = "initialize_main_pool"
	InstructionFund                = "fund"
	InstructionStake               = "stake"
	InstructionUnstake             = "unstake"
	InstructionClaim               = "claim"
	InstructionStakeOnBehalf       = "stake_on_behalf"
	InstructionWithdraw            = "withdraw"
	InstructionPause               = "pause"
	InstructionUnpause             = "unpause"
	InstructionCreateUser          = "create_user"
	InstructionCloseUser           = "close_user"
	InstructionClosePool           = "close_pool"
	InstructionAuthorizeFunder     = "authorize_funder"
	InstructionDeauthorizeFunder   = "deauthorize_funder"
	InstructionInitializeMerchant  = "initialize_merchant_pool"
	InstructionCreateMerchantUser  = "create_merchant_user"
	InstructionStakeToMerchant     = "stake_token_to_merchant"
	InstructionUnstakeFromMerchant = "unstake_token_to_merchant"
	InstructionPauseMerchant       = "pause_merchant"
	InstructionUnpauseMerchant     = "unpause_merchant"
	InstructionClaimMerchantReward = "claim_reward_for_merchant"
)

// Instructions lists every staking instruction name.
var Instructions = []string{
	InstructionInitializePool, InstructionFund, InstructionStake, InstructionUnstake,
	InstructionClaim, InstructionStakeOnBehalf, InstructionWithdraw, InstructionPause,
	InstructionUnpause, InstructionCreateUser, InstructionCloseUser, InstructionClosePool,
	InstructionAuthorizeFunder, InstructionDeauthorizeFunder, InstructionInitializeMerchant,
	InstructionCreateMerchantUser, InstructionStakeToMerchant, InstructionUnstakeFromMerchant,
	InstructionPauseMerchant, InstructionUnpauseMerchant, InstructionClaimMerchantReward,
}

// InitializePoolArgs is the borsh payload of initialize_main_pool.
type InitializePoolArgs struct {
	Bump           uint8
	RewardDuration uint64
}

// AmountArgs is the payload of fund.
type AmountArgs struct {
	Amount uint64
}

// FunderArgs is the payload of authorize_funder and deauthorize_funder.
type FunderArgs struct {
	Funder solana.PublicKey
}

// CreateUserArgs is the payload of create_user and create_merchant_user.
type CreateUserArgs struct {
	Nonce uint8
	Now   int64
}

// StakeArgs is the payload of stake and stake_token_to_merchant.
type StakeArgs struct {
	Amount     uint64
	Now        int64
	LockPeriod int64
}

// UnstakeArgs is the payload of unstake, unstake_token_to_merchant and
// stake_on_behalf.
type UnstakeArgs struct {
	Amount uint64
	Now    int64
}

// ClockArgs is the payload of claim and claim_reward_for_merchant.
type ClockArgs struct {
	Now int64
}

// WithdrawArgs is the payload of withdraw.
type WithdrawArgs struct {
	Index uint32
	Now   int64
}

// InitializeMerchantArgs is the payload of initialize_merchant_pool.
type InitializeMerchantArgs struct {
	Name  string
	Nonce uint8
	Now   int64
}

// PoolKeys holds the derived addresses of one pool.
type PoolKeys struct {
	Pool         solana.PublicKey
	Signer       solana.PublicKey
	SignerBump   uint8
	Authority    solana.PublicKey
	StakingMint  solana.PublicKey
	RewardMint   solana.PublicKey
	StakingVault solana.PublicKey
	RewardVault  solana.PublicKey
}

// Builder assembles staking instructions for one program deployment.
type Builder struct {
	addrs staking.Addresses
}

// NewBuilder returns a builder targeting programID.
func NewBuilder(programID solana.PublicKey) *Builder {
	return &Builder{addrs: staking.Addresses{ProgramID: programID}}
}

// ProgramID returns the targeted program.
func (b *Builder) ProgramID() solana.PublicKey { return b.addrs.ProgramID }

// Pool derives the accounts of the pool owned by authority for stakingMint.
func (b *Builder) Pool(authority, stakingMint, rewardMint solana.PublicKey) (PoolKeys, error) {
	pool, _, err := b.addrs.PoolAddress(authority, stakingMint)
	if err != nil {
		return PoolKeys{}, err
	}
	signer, bump, err := b.addrs.PoolSigner(pool)
	if err != nil {
		return PoolKeys{}, err
	}
	stakingVault, rewardVault, err := b.addrs.Vaults(authority, stakingMint)
	if err != nil {
		return PoolKeys{}, err
	}
	return PoolKeys{
		Pool:         pool,
		Signer:       signer,
		SignerBump:   bump,
		Authority:    authority,
		StakingMint:  stakingMint,
		RewardMint:   rewardMint,
		StakingVault: stakingVault,
		RewardVault:  rewardVault,
	}, nil
}

// User derives the stake record of owner and its bump.
func (b *Builder) User(pk PoolKeys, owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return b.addrs.UserAddress(owner, pk.Pool)
}

// Merchant derives the merchant pool of owner and its bump.
func (b *Builder) Merchant(pk PoolKeys, owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return b.addrs.MerchantAddress(owner, pk.Pool)
}

// MerchantUser derives the merchant stake record of owner and its bump.
func (b *Builder) MerchantUser(pk PoolKeys, merchant, owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return b.addrs.MerchantUserAddress(owner, merchant, pk.Pool)
}

func (b *Builder) build(name string, args interface{}, metas ...*solana.AccountMeta) (solana.Instruction, error) {
	data, err := types.EncodeInstruction(name, args)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(b.addrs.ProgramID, metas, data), nil
}

// InitializePool creates the pool and its vaults. The authority signs.
func (b *Builder) InitializePool(pk PoolKeys, rewardDuration uint64) (solana.Instruction, error) {
	return b.build(InstructionInitializePool, InitializePoolArgs{Bump: pk.SignerBump, RewardDuration: rewardDuration},
		solana.Meta(pk.Authority).SIGNER().WRITE(),
		solana.Meta(pk.Pool).WRITE(),
		solana.Meta(pk.Signer),
		solana.Meta(pk.StakingMint),
		solana.Meta(pk.RewardMint),
		solana.Meta(pk.StakingVault).WRITE(),
		solana.Meta(pk.RewardVault).WRITE(),
	)
}

// Fund moves amount from source into the reward vault. Funder signs.
func (b *Builder) Fund(pk PoolKeys, funder, source solana.PublicKey, amount uint64) (solana.Instruction, error) {
	if amount == 0 {
		return nil, fmt.Errorf("fund amount must be positive")
	}
	return b.build(InstructionFund, AmountArgs{Amount: amount},
		solana.Meta(pk.Pool).WRITE(),
		solana.Meta(funder).SIGNER(),
		solana.Meta(source).WRITE(),
		solana.Meta(pk.RewardVault).WRITE(),
	)
}

func (b *Builder) admin(name string, pk PoolKeys, args interface{}) (solana.Instruction, error) {
	return b.build(name, args,
		solana.Meta(pk.Pool).WRITE(),
		solana.Meta(pk.Authority).SIGNER(),
	)
}

// Pause halts staking activity on the pool.
func (b *Builder) Pause(pk PoolKeys) (solana.Instruction, error) {
	return b.admin(InstructionPause, pk, nil)
}

// Unpause resumes a paused pool.
func (b *Builder) Unpause(pk PoolKeys) (solana.Instruction, error) {
	return b.admin(InstructionUnpause, pk, nil)
}

// AuthorizeFunder allows funder to top up rewards.
func (b *Builder) AuthorizeFunder(pk PoolKeys, funder solana.PublicKey) (solana.Instruction, error) {
	return b.admin(InstructionAuthorizeFunder, pk, FunderArgs{Funder: funder})
}

// DeauthorizeFunder revokes a funder.
func (b *Builder) DeauthorizeFunder(pk PoolKeys, funder solana.PublicKey) (solana.Instruction, error) {
	return b.admin(InstructionDeauthorizeFunder, pk, FunderArgs{Funder: funder})
}

// ClosePool sweeps both vaults to the refundees and deletes the pool.
func (b *Builder) ClosePool(pk PoolKeys, stakingRefundee, rewardRefundee solana.PublicKey) (solana.Instruction, error) {
	return b.build(InstructionClosePool, nil,
		solana.Meta(pk.Pool).WRITE(),
		solana.Meta(pk.Authority).SIGNER(),
		solana.Meta(pk.StakingVault).WRITE(),
		solana.Meta(pk.RewardVault).WRITE(),
		solana.Meta(stakingRefundee).WRITE(),
		solana.Meta(rewardRefundee).WRITE(),
	)
}

// CreateUser opens the stake record of owner. The nonce is the record bump.
func (b *Builder) CreateUser(pk PoolKeys, owner solana.PublicKey, now int64) (solana.Instruction, error) {
	user, bump, err := b.User(pk, owner)
	if err != nil {
		return nil, err
	}
	return b.build(InstructionCreateUser, CreateUserArgs{Nonce: bump, Now: now},
		solana.Meta(pk.Pool).WRITE(),
		solana.Meta(user).WRITE(),
		solana.Meta(owner).SIGNER(),
	)
}

// CloseUser deletes an empty stake record.
func (b *Builder) CloseUser(pk PoolKeys, owner solana.PublicKey) (solana.Instruction, error) {
	user, _, err := b.User(pk, owner)
	if err != nil {
		return nil, err
	}
	return b.build(InstructionCloseUser, nil,
		solana.Meta(pk.Pool).WRITE(),
		solana.Meta(user).WRITE(),
		solana.Meta(owner).SIGNER(),
	)
}

func (b *Builder) userStake(name string, pk PoolKeys, owner, source solana.PublicKey, args interface{}) (solana.Instruction, error) {
	user, _, err := b.User(pk, owner)
	if err != nil {
		return nil, err
	}
	return b.build(name, args,
		solana.Meta(pk.Pool).WRITE(),
		solana.Meta(user).WRITE(),
		solana.Meta(owner).SIGNER(),
		solana.Meta(source).WRITE(),
		solana.Meta(pk.StakingVault).WRITE(),
	)
}

// Stake moves amount from source into the staking vault.
func (b *Builder) Stake(pk PoolKeys, owner, source solana.PublicKey, amount uint64, now, lockPeriod int64) (solana.Instruction, error) {
	return b.userStake(InstructionStake, pk, owner, source, StakeArgs{Amount: amount, Now: now, LockPeriod: lockPeriod})
}

// Unstake returns amount from the staking vault to source.
func (b *Builder) Unstake(pk PoolKeys, owner, source solana.PublicKey, amount uint64, now int64) (solana.Instruction, error) {
	return b.userStake(InstructionUnstake, pk, owner, source, UnstakeArgs{Amount: amount, Now: now})
}

// Claim pays accrued rewards of owner to destination.
func (b *Builder) Claim(pk PoolKeys, owner, destination solana.PublicKey, now int64) (solana.Instruction, error) {
	user, _, err := b.User(pk, owner)
	if err != nil {
		return nil, err
	}
	return b.build(InstructionClaim, ClockArgs{Now: now},
		solana.Meta(pk.Pool).WRITE(),
		solana.Meta(user).WRITE(),
		solana.Meta(owner).SIGNER(),
		solana.Meta(pk.RewardVault).WRITE(),
		solana.Meta(destination).WRITE(),
	)
}

// StakeOnBehalf stakes a locked tranche for target from the authority's source.
func (b *Builder) StakeOnBehalf(pk PoolKeys, target, source solana.PublicKey, amount uint64, now int64) (solana.Instruction, error) {
	user, _, err := b.User(pk, target)
	if err != nil {
		return nil, err
	}
	return b.build(InstructionStakeOnBehalf, UnstakeArgs{Amount: amount, Now: now},
		solana.Meta(pk.Pool).WRITE(),
		solana.Meta(pk.Authority).SIGNER(),
		solana.Meta(target),
		solana.Meta(user).WRITE(),
		solana.Meta(source).WRITE(),
		solana.Meta(pk.StakingVault).WRITE(),
	)
}

// Withdraw releases a matured tranche to destination.
func (b *Builder) Withdraw(pk PoolKeys, owner, destination solana.PublicKey, index uint32, now int64) (solana.Instruction, error) {
	user, _, err := b.User(pk, owner)
	if err != nil {
		return nil, err
	}
	return b.build(InstructionWithdraw, WithdrawArgs{Index: index, Now: now},
		solana.Meta(pk.Pool).WRITE(),
		solana.Meta(user).WRITE(),
		solana.Meta(owner).SIGNER(),
		solana.Meta(destination).WRITE(),
		solana.Meta(pk.StakingVault).WRITE(),
	)
}

// InitializeMerchant opens a merchant pool owned by owner.
func (b *Builder) InitializeMerchant(pk PoolKeys, owner solana.PublicKey, name string, now int64) (solana.Instruction, error) {
	merchant, bump, err := b.Merchant(pk, owner)
	if err != nil {
		return nil, err
	}
	return b.build(InstructionInitializeMerchant, InitializeMerchantArgs{Name: name, Nonce: bump, Now: now},
		solana.Meta(pk.Pool).WRITE(),
		solana.Meta(merchant).WRITE(),
		solana.Meta(owner).SIGNER(),
	)
}

// CreateMerchantUser opens the record of owner under merchant.
func (b *Builder) CreateMerchantUser(pk PoolKeys, merchant, owner solana.PublicKey, now int64) (solana.Instruction, error) {
	record, bump, err := b.MerchantUser(pk, merchant, owner)
	if err != nil {
		return nil, err
	}
	return b.build(InstructionCreateMerchantUser, CreateUserArgs{Nonce: bump, Now: now},
		solana.Meta(pk.Pool).WRITE(),
		solana.Meta(merchant).WRITE(),
		solana.Meta(record).WRITE(),
		solana.Meta(owner).SIGNER(),
	)
}

func (b *Builder) merchantStake(name string, pk PoolKeys, merchant, owner, source solana.PublicKey, args interface{}) (solana.Instruction, error) {
	record, _, err := b.MerchantUser(pk, merchant, owner)
	if err != nil {
		return nil, err
	}
	return b.build(name, args,
		solana.Meta(pk.Pool).WRITE(),
		solana.Meta(merchant).WRITE(),
		solana.Meta(record).WRITE(),
		solana.Meta(owner).SIGNER(),
		solana.Meta(source).WRITE(),
		solana.Meta(pk.StakingVault).WRITE(),
	)
}

// StakeToMerchant stakes amount through merchant.
func (b *Builder) StakeToMerchant(pk PoolKeys, merchant, owner, source solana.PublicKey, amount uint64, now, lockPeriod int64) (solana.Instruction, error) {
	return b.merchantStake(InstructionStakeToMerchant, pk, merchant, owner, source, StakeArgs{Amount: amount, Now: now, LockPeriod: lockPeriod})
}

// UnstakeFromMerchant returns amount staked through merchant.
func (b *Builder) UnstakeFromMerchant(pk PoolKeys, merchant, owner, source solana.PublicKey, amount uint64, now int64) (solana.Instruction, error) {
	return b.merchantStake(InstructionUnstakeFromMerchant, pk, merchant, owner, source, UnstakeArgs{Amount: amount, Now: now})
}

// PauseMerchant is signed by the merchant owner or the pool authority.
func (b *Builder) PauseMerchant(pk PoolKeys, merchant, signer solana.PublicKey) (solana.Instruction, error) {
	return b.build(InstructionPauseMerchant, nil,
		solana.Meta(pk.Pool),
		solana.Meta(merchant).WRITE(),
		solana.Meta(signer).SIGNER(),
	)
}

// UnpauseMerchant is signed by the merchant owner or the pool authority.
func (b *Builder) UnpauseMerchant(pk PoolKeys, merchant, signer solana.PublicKey) (solana.Instruction, error) {
	return b.build(InstructionUnpauseMerchant, nil,
		solana.Meta(pk.Pool),
		solana.Meta(merchant).WRITE(),
		solana.Meta(signer).SIGNER(),
	)
}

// ClaimMerchantReward pays the merchant's accrued rewards to destination.
func (b *Builder) ClaimMerchantReward(pk PoolKeys, owner, destination solana.PublicKey, now int64) (solana.Instruction, error) {
	merchant, _, err := b.Merchant(pk, owner)
	if err != nil {
		return nil, err
	}
	return b.build(InstructionClaimMerchantReward, ClockArgs{Now: now},
		solana.Meta(pk.Pool).WRITE(),
		solana.Meta(merchant).WRITE(),
		solana.Meta(owner).SIGNER(),
		solana.Meta(pk.RewardVault).WRITE(),
		solana.Meta(destination).WRITE(),
	)
}
