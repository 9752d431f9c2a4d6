package state

import (
	"github.com/gagliardetto/solana-go"

	"stakeledger/core/types"
	"stakeledger/native/staking"
	"stakeledger/native/token"
	"stakeledger/native/vesting"
)

var (
	MintDiscriminator         = types.AccountDiscriminator("Mint")
	TokenAccountDiscriminator = types.AccountDiscriminator("TokenAccount")
	PoolDiscriminator         = types.AccountDiscriminator("Pool")
	UserDiscriminator         = types.AccountDiscriminator("User")
	MerchantDiscriminator     = types.AccountDiscriminator("Merchant")
	MerchantUserDiscriminator = types.AccountDiscriminator("MerchantUser")
	RegistryDiscriminator     = types.AccountDiscriminator("InvestorAccount")
	VestingDiscriminator      = types.AccountDiscriminator("VestingAccount")
)

func (m *Manager) TokenMintGet(addr solana.PublicKey) (*token.Mint, bool, error) {
	return getTyped[token.Mint](m, addr, m.programs.Token, MintDiscriminator)
}

func (m *Manager) TokenMintPut(addr solana.PublicKey, mint *token.Mint) error {
	return putTyped(m, addr, m.programs.Token, MintDiscriminator, mint)
}

func (m *Manager) TokenAccountGet(addr solana.PublicKey) (*token.Account, bool, error) {
	return getTyped[token.Account](m, addr, m.programs.Token, TokenAccountDiscriminator)
}

func (m *Manager) TokenAccountPut(addr solana.PublicKey, acct *token.Account) error {
	return putTyped(m, addr, m.programs.Token, TokenAccountDiscriminator, acct)
}

func (m *Manager) TokenAccountDelete(addr solana.PublicKey) error {
	return m.DeleteAccount(addr)
}

func (m *Manager) StakingPoolGet(addr solana.PublicKey) (*staking.Pool, bool, error) {
	return getTyped[staking.Pool](m, addr, m.programs.Staking, PoolDiscriminator)
}

func (m *Manager) StakingPoolPut(addr solana.PublicKey, pool *staking.Pool) error {
	return putTyped(m, addr, m.programs.Staking, PoolDiscriminator, pool)
}

func (m *Manager) StakingPoolDelete(addr solana.PublicKey) error {
	return m.DeleteAccount(addr)
}

func (m *Manager) StakingUserGet(addr solana.PublicKey) (*staking.User, bool, error) {
	return getTyped[staking.User](m, addr, m.programs.Staking, UserDiscriminator)
}

func (m *Manager) StakingUserPut(addr solana.PublicKey, user *staking.User) error {
	return putTyped(m, addr, m.programs.Staking, UserDiscriminator, user)
}

func (m *Manager) StakingUserDelete(addr solana.PublicKey) error {
	return m.DeleteAccount(addr)
}

func (m *Manager) StakingMerchantGet(addr solana.PublicKey) (*staking.Merchant, bool, error) {
	return getTyped[staking.Merchant](m, addr, m.programs.Staking, MerchantDiscriminator)
}

func (m *Manager) StakingMerchantPut(addr solana.PublicKey, merchant *staking.Merchant) error {
	return putTyped(m, addr, m.programs.Staking, MerchantDiscriminator, merchant)
}

func (m *Manager) StakingMerchantDelete(addr solana.PublicKey) error {
	return m.DeleteAccount(addr)
}

func (m *Manager) StakingMerchantUserGet(addr solana.PublicKey) (*staking.MerchantUser, bool, error) {
	return getTyped[staking.MerchantUser](m, addr, m.programs.Staking, MerchantUserDiscriminator)
}

func (m *Manager) StakingMerchantUserPut(addr solana.PublicKey, mu *staking.MerchantUser) error {
	return putTyped(m, addr, m.programs.Staking, MerchantUserDiscriminator, mu)
}

func (m *Manager) StakingMerchantUserDelete(addr solana.PublicKey) error {
	return m.DeleteAccount(addr)
}

func (m *Manager) VestingRegistryGet(addr solana.PublicKey) (*vesting.Registry, bool, error) {
	return getTyped[vesting.Registry](m, addr, m.programs.Vesting, RegistryDiscriminator)
}

func (m *Manager) VestingRegistryPut(addr solana.PublicKey, registry *vesting.Registry) error {
	return putTyped(m, addr, m.programs.Vesting, RegistryDiscriminator, registry)
}

func (m *Manager) VestingAccountGet(addr solana.PublicKey) (*vesting.Account, bool, error) {
	return getTyped[vesting.Account](m, addr, m.programs.Vesting, VestingDiscriminator)
}

func (m *Manager) VestingAccountPut(addr solana.PublicKey, acct *vesting.Account) error {
	return putTyped(m, addr, m.programs.Vesting, VestingDiscriminator, acct)
}
