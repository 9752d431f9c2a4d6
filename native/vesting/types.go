package vesting

import "github.com/gagliardetto/solana-go"

// Registry lists every beneficiary enrolled by the vesting owner.
type Registry struct {
	Owner     solana.PublicKey
	Investors []solana.PublicKey
}

// Clone returns a deep copy of the registry.
func (r *Registry) Clone() *Registry {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Investors = append([]solana.PublicKey(nil), r.Investors...)
	return &clone
}

// Contains reports whether beneficiary is enrolled.
func (r *Registry) Contains(beneficiary solana.PublicKey) bool {
	for _, k := range r.Investors {
		if k.Equals(beneficiary) {
			return true
		}
	}
	return false
}

// Account is the vesting schedule of one beneficiary.
type Account struct {
	Beneficiary          solana.PublicKey
	Owner                solana.PublicKey
	Mint                 solana.PublicKey
	Vault                solana.PublicKey
	Nonce                uint8
	TotalDepositedAmount uint64
	ReleasedAmount       uint64
	UpfrontReleased      uint64
	StartTs              int64
	WithdrawTs           int64
	CliffTs              int64
	Duration             int64
	Revocable            bool
	Revoked              bool
	Approved             bool
	Upfronted            bool
	ClaimedCount         uint32
	Name                 string
}

// Clone returns a copy of the vesting account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// Locked is what the vault still owes the beneficiary.
func (a *Account) Locked() uint64 {
	if a.ReleasedAmount >= a.TotalDepositedAmount {
		return 0
	}
	return a.TotalDepositedAmount - a.ReleasedAmount
}
