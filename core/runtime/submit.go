package runtime

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/errors"
)

// Submit verifies every signature of tx and executes its instructions as one
// batch. The signer set is the signed prefix of the message account keys.
func (r *Runtime) Submit(ctx context.Context, tx *solana.Transaction) (*Receipt, error) {
	if tx == nil {
		return nil, fmt.Errorf("runtime: nil transaction")
	}
	header := tx.Message.Header
	keys := tx.Message.AccountKeys
	required := int(header.NumRequiredSignatures)
	if required == 0 || required > len(keys) || len(tx.Signatures) != required {
		return nil, fmt.Errorf("transaction carries %d of %d signatures: %w", len(tx.Signatures), required, errors.ErrMissingSignature)
	}
	if err := tx.VerifySignatures(); err != nil {
		return nil, fmt.Errorf("verify signatures: %v: %w", err, errors.ErrMissingSignature)
	}
	ixs, err := resolveInstructions(tx)
	if err != nil {
		return nil, err
	}
	signers := make([]solana.PublicKey, required)
	copy(signers, keys[:required])
	receipt, err := r.Execute(ctx, signers, ixs...)
	if err != nil {
		return nil, err
	}
	receipt.Signature = tx.Signatures[0]
	return receipt, nil
}

// resolveInstructions expands compiled instructions against the message
// account table. Writability follows the message header layout.
func resolveInstructions(tx *solana.Transaction) ([]solana.Instruction, error) {
	msg := tx.Message
	keys := msg.AccountKeys
	header := msg.Header
	signed := int(header.NumRequiredSignatures)
	writableSigned := signed - int(header.NumReadonlySignedAccounts)
	writableUnsigned := len(keys) - int(header.NumReadonlyUnsignedAccounts)

	meta := func(idx int) *solana.AccountMeta {
		writable := idx < writableSigned || (idx >= signed && idx < writableUnsigned)
		return &solana.AccountMeta{
			PublicKey:  keys[idx],
			IsSigner:   idx < signed,
			IsWritable: writable,
		}
	}

	out := make([]solana.Instruction, 0, len(msg.Instructions))
	for i, ci := range msg.Instructions {
		if int(ci.ProgramIDIndex) >= len(keys) {
			return nil, fmt.Errorf("instruction %d program index %d out of range: %w", i, ci.ProgramIDIndex, errors.ErrInvalidAccount)
		}
		metas := make([]*solana.AccountMeta, 0, len(ci.Accounts))
		for _, idx := range ci.Accounts {
			if int(idx) >= len(keys) {
				return nil, fmt.Errorf("instruction %d account index %d out of range: %w", i, idx, errors.ErrInvalidAccount)
			}
			metas = append(metas, meta(int(idx)))
		}
		out = append(out, solana.NewInstruction(keys[ci.ProgramIDIndex], metas, []byte(ci.Data)))
	}
	return out, nil
}
