package vesting

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/errors"
	"stakeledger/crypto"
)

const (
	RegistrySeed       = "investor-account"
	VaultSeed          = "token-vault"
	VaultAuthoritySeed = "vault-authority"
)

// DefaultProgramID is the deployed vesting program address.
var DefaultProgramID = solana.MustPublicKeyFromBase58("A61XuzXmCHwTcaHEiQ1wJgpp3crMMdoxRY3hXau7LnRP")

// Addresses derives the vesting program accounts.
type Addresses struct {
	ProgramID solana.PublicKey
}

// Registry derives the singleton investor registry.
func (a Addresses) Registry() (solana.PublicKey, uint8, error) {
	return crypto.FindProgramAddress(a.ProgramID, []byte(RegistrySeed))
}

// VaultAuthority derives the signer that owns every vesting vault.
func (a Addresses) VaultAuthority() (solana.PublicKey, uint8, error) {
	return crypto.FindProgramAddress(a.ProgramID, []byte(VaultAuthoritySeed))
}

// Schedule derives the vesting account and vault of beneficiary for mint.
// Both are seeded by the beneficiary's associated token account.
type Schedule struct {
	BeneficiaryToken solana.PublicKey
	Vesting          solana.PublicKey
	VestingBump      uint8
	Vault            solana.PublicKey
}

// Schedule derives the per-beneficiary accounts.
func (a Addresses) Schedule(beneficiary, mint solana.PublicKey) (Schedule, error) {
	ata, err := crypto.AssociatedTokenAddress(beneficiary, mint)
	if err != nil {
		return Schedule{}, err
	}
	vesting, bump, err := crypto.FindProgramAddress(a.ProgramID, ata.Bytes())
	if err != nil {
		return Schedule{}, err
	}
	vault, _, err := crypto.FindProgramAddress(a.ProgramID, []byte(VaultSeed), ata.Bytes())
	if err != nil {
		return Schedule{}, err
	}
	return Schedule{BeneficiaryToken: ata, Vesting: vesting, VestingBump: bump, Vault: vault}, nil
}

func expectAddress(kind string, got, want solana.PublicKey) error {
	if !got.Equals(want) {
		return fmt.Errorf("%s %s does not match derived %s: %w", kind, got, want, errors.ErrInvalidAccount)
	}
	return nil
}
