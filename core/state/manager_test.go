package state

import (
	stderrors "errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"stakeledger/core/errors"
	"stakeledger/native/staking"
	"stakeledger/native/token"
	"stakeledger/native/vesting"
	"stakeledger/storage"
)

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key.PublicKey()
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewManager(db, DefaultPrograms())
}

func TestPoolRoundTrip(t *testing.T) {
	m := newManager(t)
	addr := newKey(t)
	pool := &staking.Pool{
		Authority:      newKey(t),
		Nonce:          254,
		StakingMint:    newKey(t),
		RewardDuration: 86400,
		RewardRate:     42,
		TotalStaked:    1_000,
		Users:          []solana.PublicKey{newKey(t), newKey(t)},
		Funders:        []solana.PublicKey{newKey(t)},
	}
	pool.RewardPerTokenStored.Mul(staking.Precision(), uint256.NewInt(7))

	if err := m.StakingPoolPut(addr, pool); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := m.StakingPoolGet(addr)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.RewardPerTokenStored.Cmp(&pool.RewardPerTokenStored) != 0 {
		t.Fatalf("accumulator mismatch: %s vs %s", got.RewardPerTokenStored.Dec(), pool.RewardPerTokenStored.Dec())
	}
	if !got.Authority.Equals(pool.Authority) || got.Nonce != 254 || len(got.Users) != 2 || !got.Funders[0].Equals(pool.Funders[0]) {
		t.Fatalf("unexpected pool: %+v", got)
	}

	if err := m.StakingPoolDelete(addr); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, err := m.StakingPoolGet(addr); err != nil || ok {
		t.Fatalf("expected pool removed: ok=%v err=%v", ok, err)
	}
}

func TestUserTranchesRoundTrip(t *testing.T) {
	m := newManager(t)
	addr := newKey(t)
	user := &staking.User{
		Owner:         newKey(t),
		BalanceStaked: 300,
		LockEnd:       -1,
		Tranches: []staking.Tranche{
			{Amount: 100, StakedAt: 10},
			{Amount: 200, StakedAt: 20, Withdrawn: true},
		},
	}
	if err := m.StakingUserPut(addr, user); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := m.StakingUserGet(addr)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.LockEnd != -1 || len(got.Tranches) != 2 || !got.Tranches[1].Withdrawn || got.Tranches[0].StakedAt != 10 {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestDiscriminatorAndOwnerChecked(t *testing.T) {
	m := newManager(t)
	addr := newKey(t)
	if err := m.StakingMerchantPut(addr, &staking.Merchant{Name: "shop"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, _, err := m.StakingPoolGet(addr); !stderrors.Is(err, errors.ErrInvalidAccount) {
		t.Fatalf("expected discriminator mismatch, got %v", err)
	}
	if _, _, err := m.VestingAccountGet(addr); !stderrors.Is(err, errors.ErrInvalidAccount) {
		t.Fatalf("expected owner mismatch, got %v", err)
	}
	merchant, ok, err := m.StakingMerchantGet(addr)
	if err != nil || !ok || merchant.Name != "shop" {
		t.Fatalf("merchant: %+v ok=%v err=%v", merchant, ok, err)
	}
}

func TestAccountsByOwner(t *testing.T) {
	m := newManager(t)
	mint := newKey(t)
	if err := m.TokenMintPut(mint, &token.Mint{Decimals: 9, IsInitialized: true}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := m.TokenAccountPut(newKey(t), &token.Account{Mint: mint, Owner: newKey(t), Amount: uint64(i)}); err != nil {
			t.Fatalf("token account: %v", err)
		}
	}
	registry := newKey(t)
	if err := m.VestingRegistryPut(registry, &vesting.Registry{Owner: newKey(t)}); err != nil {
		t.Fatalf("registry: %v", err)
	}

	tokens, err := m.Accounts(m.Programs().Token)
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if len(tokens) != 4 {
		t.Fatalf("token program owns %d accounts, want 4", len(tokens))
	}
	holders, err := m.AccountsOfKind(m.Programs().Token, TokenAccountDiscriminator)
	if err != nil {
		t.Fatalf("accounts of kind: %v", err)
	}
	if len(holders) != 3 {
		t.Fatalf("found %d token accounts, want 3", len(holders))
	}
	vestings, err := m.Accounts(m.Programs().Vesting)
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if len(vestings) != 1 || !vestings[0].Address.Equals(registry) {
		t.Fatalf("unexpected vesting accounts: %+v", vestings)
	}
}

func TestStateVersion(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	if err := EnsureStateVersion(db, false); err != nil {
		t.Fatalf("stamp: %v", err)
	}
	m := NewManager(db, DefaultPrograms())
	version, ok, err := m.StateVersion()
	if err != nil || !ok || version != StateVersion {
		t.Fatalf("version=%d ok=%v err=%v", version, ok, err)
	}
	if err := m.SetStateVersion(StateVersion + 1); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := EnsureStateVersion(db, false); !stderrors.Is(err, ErrStateVersionMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if err := EnsureStateVersion(db, true); err != nil {
		t.Fatalf("migrate allowed: %v", err)
	}
}
