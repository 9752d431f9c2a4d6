package vesting

import (
	"testing"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/types"
	"stakeledger/native/vesting"
)

func TestInitializeLayout(t *testing.T) {
	b := NewBuilder(vesting.DefaultProgramID)
	owner := solana.NewWallet().PublicKey()
	beneficiary := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	source := solana.NewWallet().PublicKey()

	ix, err := b.Initialize(owner, beneficiary, mint, source, 1_000, "advisor", 500, true)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	sched, err := b.Schedule(beneficiary, mint)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	registry, err := b.Registry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	want := []solana.PublicKey{registry, owner, beneficiary, mint, sched.BeneficiaryToken, sched.Vesting, sched.Vault, source}
	metas := ix.Accounts()
	if len(metas) != len(want) {
		t.Fatalf("expected %d accounts, got %d", len(want), len(metas))
	}
	for i, key := range want {
		if !metas[i].PublicKey.Equals(key) {
			t.Fatalf("account %d: got %s want %s", i, metas[i].PublicKey, key)
		}
	}
	data, _ := ix.Data()
	var args InitializeArgs
	if err := types.DecodeArgs(data[8:], &args); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if args.Amount != 1_000 || args.Name != "advisor" || args.StartTs != 500 || !args.Revocable {
		t.Fatalf("unexpected args %+v", args)
	}
	if _, err := b.Initialize(owner, beneficiary, mint, source, 1, "  ", 0, false); err == nil {
		t.Fatalf("expected blank name to be rejected")
	}
}

func TestReleaseSignedByBeneficiary(t *testing.T) {
	b := NewBuilder(vesting.DefaultProgramID)
	beneficiary := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	for _, build := range []func(solana.PublicKey, solana.PublicKey, int64) (solana.Instruction, error){b.Upfront, b.Withdraw} {
		ix, err := build(beneficiary, mint, 10)
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		metas := ix.Accounts()
		if !metas[1].IsSigner || !metas[1].PublicKey.Equals(beneficiary) {
			t.Fatalf("beneficiary must sign")
		}
	}
	if len(types.NewInstructionSet(Instructions...)) != len(Instructions) {
		t.Fatalf("discriminator collision")
	}
}
