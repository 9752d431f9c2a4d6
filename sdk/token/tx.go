package token

import (
	"github.com/gagliardetto/solana-go"

	"stakeledger/core/types"
	"stakeledger/crypto"
)

// Instruction names understood by the token ledger.
const (
	InstructionInitializeMint          = "initialize_mint"
	InstructionInitializeAccount       = "initialize_account"
	InstructionCreateAssociatedAccount = "create_associated_account"
	InstructionMintTo                  = "mint_to"
	InstructionTransfer                = "transfer"
)

// Instructions lists every token instruction name.
var Instructions = []string{
	InstructionInitializeMint, InstructionInitializeAccount,
	InstructionCreateAssociatedAccount, InstructionMintTo, InstructionTransfer,
}

// InitializeMintArgs is the payload of initialize_mint.
type InitializeMintArgs struct {
	Decimals uint8
}

// AmountArgs is the payload of mint_to and transfer.
type AmountArgs struct {
	Amount uint64
}

// Builder assembles token ledger instructions.
type Builder struct {
	programID solana.PublicKey
}

// NewBuilder returns a builder targeting programID.
func NewBuilder(programID solana.PublicKey) *Builder {
	return &Builder{programID: programID}
}

// ProgramID returns the targeted program.
func (b *Builder) ProgramID() solana.PublicKey { return b.programID }

func (b *Builder) build(name string, args interface{}, metas ...*solana.AccountMeta) (solana.Instruction, error) {
	data, err := types.EncodeInstruction(name, args)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(b.programID, metas, data), nil
}

// InitializeMint creates mint with authority as its minting authority.
func (b *Builder) InitializeMint(mint, authority solana.PublicKey, decimals uint8) (solana.Instruction, error) {
	return b.build(InstructionInitializeMint, InitializeMintArgs{Decimals: decimals},
		solana.Meta(mint).WRITE(),
		solana.Meta(authority).SIGNER(),
	)
}

// InitializeAccount opens a token account at addr.
func (b *Builder) InitializeAccount(addr, mint, owner solana.PublicKey) (solana.Instruction, error) {
	return b.build(InstructionInitializeAccount, nil,
		solana.Meta(addr).WRITE(),
		solana.Meta(mint),
		solana.Meta(owner),
	)
}

// CreateAssociatedAccount opens the associated token account of wallet and
// returns its address.
func (b *Builder) CreateAssociatedAccount(wallet, mint solana.PublicKey) (solana.Instruction, solana.PublicKey, error) {
	ata, err := crypto.AssociatedTokenAddress(wallet, mint)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	ix, err := b.build(InstructionCreateAssociatedAccount, nil,
		solana.Meta(wallet),
		solana.Meta(mint),
		solana.Meta(ata).WRITE(),
	)
	return ix, ata, err
}

// MintTo credits dest with newly minted tokens.
func (b *Builder) MintTo(mint, dest, authority solana.PublicKey, amount uint64) (solana.Instruction, error) {
	return b.build(InstructionMintTo, AmountArgs{Amount: amount},
		solana.Meta(mint).WRITE(),
		solana.Meta(dest).WRITE(),
		solana.Meta(authority).SIGNER(),
	)
}

// Transfer moves amount from from to to. The authority owns from.
func (b *Builder) Transfer(from, to, authority solana.PublicKey, amount uint64) (solana.Instruction, error) {
	return b.build(InstructionTransfer, AmountArgs{Amount: amount},
		solana.Meta(from).WRITE(),
		solana.Meta(to).WRITE(),
		solana.Meta(authority).SIGNER(),
	)
}
