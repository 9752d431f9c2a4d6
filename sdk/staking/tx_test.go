package staking

import (
	"bytes"
	"testing"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/types"
	"stakeledger/native/staking"
)

func testPoolKeys(t *testing.T, b *Builder) PoolKeys {
	t.Helper()
	authority := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	pk, err := b.Pool(authority, mint, mint)
	if err != nil {
		t.Fatalf("derive pool: %v", err)
	}
	return pk
}

func TestStakeInstructionLayout(t *testing.T) {
	b := NewBuilder(staking.DefaultProgramID)
	pk := testPoolKeys(t, b)
	owner := solana.NewWallet().PublicKey()
	source := solana.NewWallet().PublicKey()

	ix, err := b.Stake(pk, owner, source, 42, 1_000, 60)
	if err != nil {
		t.Fatalf("build stake: %v", err)
	}
	if !ix.ProgramID().Equals(staking.DefaultProgramID) {
		t.Fatalf("unexpected program %s", ix.ProgramID())
	}
	metas := ix.Accounts()
	if len(metas) != 5 {
		t.Fatalf("expected 5 accounts, got %d", len(metas))
	}
	user, _, err := b.User(pk, owner)
	if err != nil {
		t.Fatalf("derive user: %v", err)
	}
	want := []solana.PublicKey{pk.Pool, user, owner, source, pk.StakingVault}
	for i, key := range want {
		if !metas[i].PublicKey.Equals(key) {
			t.Fatalf("account %d: got %s want %s", i, metas[i].PublicKey, key)
		}
		if metas[i].IsSigner != (i == 2) {
			t.Fatalf("account %d signer flag %v", i, metas[i].IsSigner)
		}
	}

	data, err := ix.Data()
	if err != nil {
		t.Fatalf("data: %v", err)
	}
	disc := types.InstructionDiscriminator(InstructionStake)
	if !bytes.Equal(data[:8], disc[:]) {
		t.Fatalf("discriminator mismatch")
	}
	var args StakeArgs
	if err := types.DecodeArgs(data[8:], &args); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if args != (StakeArgs{Amount: 42, Now: 1_000, LockPeriod: 60}) {
		t.Fatalf("unexpected args %+v", args)
	}
}

func TestInitializePoolCarriesSignerBump(t *testing.T) {
	b := NewBuilder(staking.DefaultProgramID)
	pk := testPoolKeys(t, b)
	ix, err := b.InitializePool(pk, 600)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	data, _ := ix.Data()
	var args InitializePoolArgs
	if err := types.DecodeArgs(data[8:], &args); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if args.Bump != pk.SignerBump || args.RewardDuration != 600 {
		t.Fatalf("unexpected args %+v", args)
	}
	if !ix.Accounts()[0].IsSigner || !ix.Accounts()[0].PublicKey.Equals(pk.Authority) {
		t.Fatalf("authority must sign first")
	}
}

func TestInstructionNamesAreDistinct(t *testing.T) {
	set := types.NewInstructionSet(Instructions...)
	if len(set) != len(Instructions) {
		t.Fatalf("discriminator collision among %d instructions", len(Instructions))
	}
	b := NewBuilder(staking.DefaultProgramID)
	if _, err := b.Fund(testPoolKeys(t, b), solana.PublicKey{}, solana.PublicKey{}, 0); err == nil {
		t.Fatalf("expected zero fund to be rejected")
	}
}
