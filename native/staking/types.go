package staking

import (
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// Pool is the main staking pool. All merchant sub-pools share its vaults.
type Pool struct {
	Authority            solana.PublicKey
	Nonce                uint8
	Paused               bool
	StakingMint          solana.PublicKey
	StakingVault         solana.PublicKey
	RewardMint           solana.PublicKey
	RewardVault          solana.PublicKey
	RewardDuration       uint64
	RewardDurationEnd    int64
	LastUpdateTime       int64
	RewardRate           uint64
	RewardPerTokenStored uint256.Int
	TotalStaked          uint64
	UserStakeCount       uint32
	MerchantCount        uint32
	Users                []solana.PublicKey
	Merchants            []solana.PublicKey
	PassiveStakers       []solana.PublicKey
	Funders              []solana.PublicKey
}

// Tranche is one admin-directed stake held on a user's behalf.
type Tranche struct {
	Amount    uint64
	StakedAt  int64
	Withdrawn bool
}

// User is a per-owner stake record in the main pool.
type User struct {
	Pool               solana.PublicKey
	Owner              solana.PublicKey
	Nonce              uint8
	BalanceStaked      uint64
	RegisteredAt       int64
	FirstStakedAt      int64
	LastStakedAt       int64
	LockEnd            int64
	StakedCount        uint32
	LastClaimedAt      int64
	ClaimedCount       uint32
	RewardPerTokenPaid uint256.Int
	RewardPending      uint64
	Tranches           []Tranche
}

// Merchant is a staking sub-ledger scoped to one business. Rewards accrue to
// the merchant as a whole against its aggregate balance.
type Merchant struct {
	Pool               solana.PublicKey
	Owner              solana.PublicKey
	Nonce              uint8
	Name               string
	BalanceStaked      uint64
	UserStakeCount     uint32
	CreatedAt          int64
	LastUpdatedAt      int64
	Paused             bool
	ClaimedCount       uint32
	RewardPerTokenPaid uint256.Int
	RewardPending      uint64
	Users              []solana.PublicKey
}

// MerchantUser is a per-owner stake record under a merchant.
type MerchantUser struct {
	Pool          solana.PublicKey
	Merchant      solana.PublicKey
	Owner         solana.PublicKey
	Nonce         uint8
	BalanceStaked uint64
	RegisteredAt  int64
	FirstStakedAt int64
	LastStakedAt  int64
	LockEnd       int64
	StakedCount   uint32
	ClaimedCount  uint32
	LastClaimedAt int64
}

// SelfStaked is the part of the balance that was not staked on the user's
// behalf, i.e. balance minus every tranche still held.
func (u *User) SelfStaked() uint64 {
	if u == nil {
		return 0
	}
	var locked uint64
	for _, tr := range u.Tranches {
		if !tr.Withdrawn {
			locked += tr.Amount
		}
	}
	if locked >= u.BalanceStaked {
		return 0
	}
	return u.BalanceStaked - locked
}

// Clone returns a deep copy of the pool.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Users = append([]solana.PublicKey(nil), p.Users...)
	clone.Merchants = append([]solana.PublicKey(nil), p.Merchants...)
	clone.PassiveStakers = append([]solana.PublicKey(nil), p.PassiveStakers...)
	clone.Funders = append([]solana.PublicKey(nil), p.Funders...)
	return &clone
}

// Clone returns a deep copy of the user record.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Tranches = append([]Tranche(nil), u.Tranches...)
	return &clone
}

// Clone returns a deep copy of the merchant.
func (m *Merchant) Clone() *Merchant {
	if m == nil {
		return nil
	}
	clone := *m
	clone.Users = append([]solana.PublicKey(nil), m.Users...)
	return &clone
}

// Clone returns a copy of the merchant user record.
func (m *MerchantUser) Clone() *MerchantUser {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

// IsFunder reports whether key may fund the pool.
func (p *Pool) IsFunder(key solana.PublicKey) bool {
	if p.Authority.Equals(key) {
		return true
	}
	return containsKey(p.Funders, key)
}

func containsKey(list []solana.PublicKey, key solana.PublicKey) bool {
	for _, k := range list {
		if k.Equals(key) {
			return true
		}
	}
	return false
}

func removeKey(list []solana.PublicKey, key solana.PublicKey) []solana.PublicKey {
	out := list[:0]
	for _, k := range list {
		if !k.Equals(key) {
			out = append(out, k)
		}
	}
	return out
}
