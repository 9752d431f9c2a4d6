package crypto

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// FindProgramAddress derives the canonical program-derived address for the
// supplied seeds together with its bump.
func FindProgramAddress(programID solana.PublicKey, seeds ...[]byte) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive program address: %w", err)
	}
	return addr, bump, nil
}

// MustFindProgramAddress panics when no valid bump exists. Only use with
// static seeds.
func MustFindProgramAddress(programID solana.PublicKey, seeds ...[]byte) (solana.PublicKey, uint8) {
	addr, bump, err := FindProgramAddress(programID, seeds...)
	if err != nil {
		panic(err)
	}
	return addr, bump
}

// AssociatedTokenAddress returns the associated token account of wallet for mint.
func AssociatedTokenAddress(wallet, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive associated token address: %w", err)
	}
	return addr, nil
}
