package runtime

import (
	"fmt"

	"stakeledger/core/errors"
	sdktoken "stakeledger/sdk/token"
)

func (b *batch) execToken(name string, c *call) error {
	switch name {
	case sdktoken.InstructionInitializeMint:
		keys, err := c.load(2, 1)
		if err != nil {
			return err
		}
		var args sdktoken.InitializeMintArgs
		if err := c.args(&args); err != nil {
			return err
		}
		return b.tokens.InitializeMint(keys[0], keys[1], args.Decimals)

	case sdktoken.InstructionInitializeAccount:
		keys, err := c.load(3)
		if err != nil {
			return err
		}
		if err := c.args(nil); err != nil {
			return err
		}
		return b.tokens.InitializeAccount(keys[0], keys[1], keys[2])

	case sdktoken.InstructionCreateAssociatedAccount:
		keys, err := c.load(3)
		if err != nil {
			return err
		}
		if err := c.args(nil); err != nil {
			return err
		}
		ata, err := b.tokens.CreateAssociatedAccount(keys[0], keys[1])
		if err != nil {
			return err
		}
		if !ata.Equals(keys[2]) {
			return fmt.Errorf("associated account %s does not match derived %s: %w", keys[2], ata, errors.ErrInvalidAccount)
		}
		return nil

	case sdktoken.InstructionMintTo:
		keys, err := c.load(3, 2)
		if err != nil {
			return err
		}
		var args sdktoken.AmountArgs
		if err := c.args(&args); err != nil {
			return err
		}
		return b.tokens.MintTo(keys[0], keys[1], keys[2], args.Amount)

	case sdktoken.InstructionTransfer:
		keys, err := c.load(3, 2)
		if err != nil {
			return err
		}
		var args sdktoken.AmountArgs
		if err := c.args(&args); err != nil {
			return err
		}
		return b.tokens.Transfer(keys[0], keys[1], keys[2], args.Amount)
	}
	return fmt.Errorf("token %s: %w", name, errors.ErrUnknownInstruction)
}
