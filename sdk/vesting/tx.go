package vesting

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/types"
	"stakeledger/native/vesting"
)

// Instruction names of the vesting program.
const (
	InstructionInitializeVesting = "initialize_vesting"
	InstructionInitialize        = "initialize"
	InstructionUpfront           = "upfront"
	InstructionWithdraw          = "withdraw"
	InstructionRevoke            = "revoke"
	InstructionEnableAccount     = "enable_account"
	InstructionDisableAccount    = "disable_account"
	InstructionRenameAccount     = "rename_account"
	InstructionAddTokenToVesting = "add_token_to_vesting"
)

// Instructions lists every vesting instruction name.
var Instructions = []string{
	InstructionInitializeVesting, InstructionInitialize, InstructionUpfront,
	InstructionWithdraw, InstructionRevoke, InstructionEnableAccount,
	InstructionDisableAccount, InstructionRenameAccount, InstructionAddTokenToVesting,
}

// InitializeArgs is the borsh payload of initialize.
type InitializeArgs struct {
	Amount    uint64
	Name      string
	StartTs   int64
	Revocable bool
}

// ClockArgs is the payload of upfront and withdraw.
type ClockArgs struct {
	Now int64
}

// RenameArgs is the payload of rename_account.
type RenameArgs struct {
	Name string
}

// AmountArgs is the payload of add_token_to_vesting.
type AmountArgs struct {
	Amount uint64
}

// Builder assembles vesting instructions.
type Builder struct {
	addrs vesting.Addresses
}

// NewBuilder returns a builder targeting programID.
func NewBuilder(programID solana.PublicKey) *Builder {
	return &Builder{addrs: vesting.Addresses{ProgramID: programID}}
}

// ProgramID returns the targeted program.
func (b *Builder) ProgramID() solana.PublicKey { return b.addrs.ProgramID }

// Registry derives the investor registry address.
func (b *Builder) Registry() (solana.PublicKey, error) {
	addr, _, err := b.addrs.Registry()
	return addr, err
}

// Schedule derives the vesting accounts of beneficiary for mint.
func (b *Builder) Schedule(beneficiary, mint solana.PublicKey) (vesting.Schedule, error) {
	return b.addrs.Schedule(beneficiary, mint)
}

func (b *Builder) build(name string, args interface{}, metas ...*solana.AccountMeta) (solana.Instruction, error) {
	data, err := types.EncodeInstruction(name, args)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(b.addrs.ProgramID, metas, data), nil
}

// InitializeVesting opens the registry with owner as its administrator.
func (b *Builder) InitializeVesting(owner solana.PublicKey) (solana.Instruction, error) {
	registry, err := b.Registry()
	if err != nil {
		return nil, err
	}
	return b.build(InstructionInitializeVesting, nil,
		solana.Meta(registry).WRITE(),
		solana.Meta(owner).SIGNER().WRITE(),
	)
}

// Initialize enrolls beneficiary, funding the vault from source.
func (b *Builder) Initialize(owner, beneficiary, mint, source solana.PublicKey, amount uint64, name string, startTs int64, revocable bool) (solana.Instruction, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("vesting name required")
	}
	registry, err := b.Registry()
	if err != nil {
		return nil, err
	}
	sched, err := b.Schedule(beneficiary, mint)
	if err != nil {
		return nil, err
	}
	return b.build(InstructionInitialize, InitializeArgs{Amount: amount, Name: name, StartTs: startTs, Revocable: revocable},
		solana.Meta(registry).WRITE(),
		solana.Meta(owner).SIGNER().WRITE(),
		solana.Meta(beneficiary),
		solana.Meta(mint),
		solana.Meta(sched.BeneficiaryToken),
		solana.Meta(sched.Vesting).WRITE(),
		solana.Meta(sched.Vault).WRITE(),
		solana.Meta(source).WRITE(),
	)
}

func (b *Builder) release(name string, beneficiary, mint solana.PublicKey, now int64) (solana.Instruction, error) {
	sched, err := b.Schedule(beneficiary, mint)
	if err != nil {
		return nil, err
	}
	return b.build(name, ClockArgs{Now: now},
		solana.Meta(sched.Vesting).WRITE(),
		solana.Meta(beneficiary).SIGNER(),
		solana.Meta(sched.Vault).WRITE(),
		solana.Meta(sched.BeneficiaryToken).WRITE(),
	)
}

// Upfront releases the upfront portion to the beneficiary's token account.
func (b *Builder) Upfront(beneficiary, mint solana.PublicKey, now int64) (solana.Instruction, error) {
	return b.release(InstructionUpfront, beneficiary, mint, now)
}

// Withdraw releases the linearly vested amount.
func (b *Builder) Withdraw(beneficiary, mint solana.PublicKey, now int64) (solana.Instruction, error) {
	return b.release(InstructionWithdraw, beneficiary, mint, now)
}

// Revoke refunds the vault to refundee and freezes the schedule.
func (b *Builder) Revoke(owner, beneficiary, mint, refundee solana.PublicKey) (solana.Instruction, error) {
	sched, err := b.Schedule(beneficiary, mint)
	if err != nil {
		return nil, err
	}
	return b.build(InstructionRevoke, nil,
		solana.Meta(sched.Vesting).WRITE(),
		solana.Meta(owner).SIGNER(),
		solana.Meta(sched.Vault).WRITE(),
		solana.Meta(refundee).WRITE(),
	)
}

func (b *Builder) owned(name string, owner, beneficiary, mint solana.PublicKey, args interface{}) (solana.Instruction, error) {
	sched, err := b.Schedule(beneficiary, mint)
	if err != nil {
		return nil, err
	}
	return b.build(name, args,
		solana.Meta(sched.Vesting).WRITE(),
		solana.Meta(owner).SIGNER(),
	)
}

// EnableAccount approves the schedule for releases.
func (b *Builder) EnableAccount(owner, beneficiary, mint solana.PublicKey) (solana.Instruction, error) {
	return b.owned(InstructionEnableAccount, owner, beneficiary, mint, nil)
}

// DisableAccount blocks releases until re-enabled.
func (b *Builder) DisableAccount(owner, beneficiary, mint solana.PublicKey) (solana.Instruction, error) {
	return b.owned(InstructionDisableAccount, owner, beneficiary, mint, nil)
}

// RenameAccount changes the display name of the schedule.
func (b *Builder) RenameAccount(owner, beneficiary, mint solana.PublicKey, name string) (solana.Instruction, error) {
	return b.owned(InstructionRenameAccount, owner, beneficiary, mint, RenameArgs{Name: name})
}

// AddTokenToVesting tops the vault up from source.
func (b *Builder) AddTokenToVesting(owner, beneficiary, mint, source solana.PublicKey, amount uint64) (solana.Instruction, error) {
	sched, err := b.Schedule(beneficiary, mint)
	if err != nil {
		return nil, err
	}
	return b.build(InstructionAddTokenToVesting, AmountArgs{Amount: amount},
		solana.Meta(sched.Vesting).WRITE(),
		solana.Meta(owner).SIGNER(),
		solana.Meta(sched.Vault).WRITE(),
		solana.Meta(source).WRITE(),
	)
}
