package runtime

import (
	"fmt"

	"stakeledger/core/errors"
	"stakeledger/native/vesting"
	sdkvesting "stakeledger/sdk/vesting"
)

func (b *batch) execVesting(name string, c *call) error {
	switch name {
	case sdkvesting.InstructionInitializeVesting:
		keys, err := c.load(2, 1)
		if err != nil {
			return err
		}
		if err := c.args(nil); err != nil {
			return err
		}
		return b.vesting.InitializeVesting(vesting.RegistryAccounts{Registry: keys[0], Owner: keys[1]})

	case sdkvesting.InstructionInitialize:
		keys, err := c.load(8, 1)
		if err != nil {
			return err
		}
		var args sdkvesting.InitializeArgs
		if err := c.args(&args); err != nil {
			return err
		}
		return b.vesting.Initialize(vesting.InitializeAccounts{
			Registry:         keys[0],
			Owner:            keys[1],
			Beneficiary:      keys[2],
			Mint:             keys[3],
			BeneficiaryToken: keys[4],
			Vesting:          keys[5],
			Vault:            keys[6],
			Source:           keys[7],
		}, args.Amount, args.Name, args.StartTs, args.Revocable)

	case sdkvesting.InstructionUpfront, sdkvesting.InstructionWithdraw:
		keys, err := c.load(4, 1)
		if err != nil {
			return err
		}
		var args sdkvesting.ClockArgs
		if err := c.args(&args); err != nil {
			return err
		}
		acc := vesting.ReleaseAccounts{
			Vesting:     keys[0],
			Beneficiary: keys[1],
			Vault:       keys[2],
			Destination: keys[3],
		}
		if name == sdkvesting.InstructionUpfront {
			_, err = b.vesting.Upfront(acc, args.Now)
		} else {
			_, err = b.vesting.Withdraw(acc, args.Now)
		}
		return err

	case sdkvesting.InstructionRevoke:
		keys, err := c.load(4, 1)
		if err != nil {
			return err
		}
		if err := c.args(nil); err != nil {
			return err
		}
		_, err = b.vesting.Revoke(vesting.RevokeAccounts{
			Vesting:  keys[0],
			Owner:    keys[1],
			Vault:    keys[2],
			Refundee: keys[3],
		})
		return err

	case sdkvesting.InstructionEnableAccount, sdkvesting.InstructionDisableAccount:
		keys, err := c.load(2, 1)
		if err != nil {
			return err
		}
		if err := c.args(nil); err != nil {
			return err
		}
		acc := vesting.OwnerAccounts{Vesting: keys[0], Owner: keys[1]}
		if name == sdkvesting.InstructionEnableAccount {
			return b.vesting.EnableAccount(acc)
		}
		return b.vesting.DisableAccount(acc)

	case sdkvesting.InstructionRenameAccount:
		keys, err := c.load(2, 1)
		if err != nil {
			return err
		}
		var args sdkvesting.RenameArgs
		if err := c.args(&args); err != nil {
			return err
		}
		return b.vesting.RenameAccount(vesting.OwnerAccounts{Vesting: keys[0], Owner: keys[1]}, args.Name)

	case sdkvesting.InstructionAddTokenToVesting:
		keys, err := c.load(4, 1)
		if err != nil {
			return err
		}
		var args sdkvesting.AmountArgs
		if err := c.args(&args); err != nil {
			return err
		}
		return b.vesting.AddTokenToVesting(vesting.TopUpAccounts{
			Vesting: keys[0],
			Owner:   keys[1],
			Vault:   keys[2],
			Source:  keys[3],
		}, args.Amount)
	}
	return fmt.Errorf("vesting %s: %w", name, errors.ErrUnknownInstruction)
}
