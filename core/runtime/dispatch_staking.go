package runtime

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/errors"
	"stakeledger/native/staking"
	sdkstaking "stakeledger/sdk/staking"
)

func (b *batch) execStaking(name string, c *call) error {
	switch name {
	case sdkstaking.InstructionInitializePool:
		keys, err := c.load(7, 0)
		if err != nil {
			return err
		}
		var args sdkstaking.InitializePoolArgs
		if err := c.args(&args); err != nil {
			return err
		}
		return b.staking.InitializePool(staking.InitPoolAccounts{
			Authority:    keys[0],
			Pool:         keys[1],
			PoolSigner:   keys[2],
			StakingMint:  keys[3],
			RewardMint:   keys[4],
			StakingVault: keys[5],
			RewardVault:  keys[6],
		}, args.Bump, args.RewardDuration)

	case sdkstaking.InstructionFund:
		keys, err := c.load(4, 1)
		if err != nil {
			return err
		}
		var args sdkstaking.AmountArgs
		if err := c.args(&args); err != nil {
			return err
		}
		return b.staking.Fund(staking.FundAccounts{
			Pool:        keys[0],
			Funder:      keys[1],
			Source:      keys[2],
			RewardVault: keys[3],
		}, args.Amount)

	case sdkstaking.InstructionPause, sdkstaking.InstructionUnpause:
		keys, err := c.load(2, 1)
		if err != nil {
			return err
		}
		if err := c.args(nil); err != nil {
			return err
		}
		acc := staking.PoolAdminAccounts{Pool: keys[0], Authority: keys[1]}
		if name == sdkstaking.InstructionPause {
			return b.staking.Pause(acc)
		}
		return b.staking.Unpause(acc)

	case sdkstaking.InstructionAuthorizeFunder, sdkstaking.InstructionDeauthorizeFunder:
		keys, err := c.load(2, 1)
		if err != nil {
			return err
		}
		var args sdkstaking.FunderArgs
		if err := c.args(&args); err != nil {
			return err
		}
		acc := staking.PoolAdminAccounts{Pool: keys[0], Authority: keys[1]}
		if name == sdkstaking.InstructionAuthorizeFunder {
			return b.staking.AuthorizeFunder(acc, args.Funder)
		}
		return b.staking.DeauthorizeFunder(acc, args.Funder)

	case sdkstaking.InstructionClosePool:
		keys, err := c.load(6, 1)
		if err != nil {
			return err
		}
		if err := c.args(nil); err != nil {
			return err
		}
		return b.staking.ClosePool(staking.ClosePoolAccounts{
			Pool:            keys[0],
			Authority:       keys[1],
			StakingVault:    keys[2],
			RewardVault:     keys[3],
			StakingRefundee: keys[4],
			RewardRefundee:  keys[5],
		})

	case sdkstaking.InstructionCreateUser:
		keys, err := c.load(3, 2)
		if err != nil {
			return err
		}
		var args sdkstaking.CreateUserArgs
		if err := c.args(&args); err != nil {
			return err
		}
		return b.staking.CreateUser(staking.UserAccounts{Pool: keys[0], User: keys[1], Owner: keys[2]}, args.Nonce, args.Now)

	case sdkstaking.InstructionCloseUser:
		keys, err := c.load(3, 2)
		if err != nil {
			return err
		}
		if err := c.args(nil); err != nil {
			return err
		}
		return b.staking.CloseUser(staking.UserAccounts{Pool: keys[0], User: keys[1], Owner: keys[2]})

	case sdkstaking.InstructionStake:
		keys, err := c.load(5, 2)
		if err != nil {
			return err
		}
		var args sdkstaking.StakeArgs
		if err := c.args(&args); err != nil {
			return err
		}
		return b.staking.Stake(stakeAccounts(keys), args.Amount, args.Now, args.LockPeriod)

	case sdkstaking.InstructionUnstake:
		keys, err := c.load(5, 2)
		if err != nil {
			return err
		}
		var args sdkstaking.UnstakeArgs
		if err := c.args(&args); err != nil {
			return err
		}
		return b.staking.Unstake(stakeAccounts(keys), args.Amount, args.Now)

	case sdkstaking.InstructionClaim:
		keys, err := c.load(5, 2)
		if err != nil {
			return err
		}
		var args sdkstaking.ClockArgs
		if err := c.args(&args); err != nil {
			return err
		}
		_, err = b.staking.Claim(staking.ClaimAccounts{
			Pool:        keys[0],
			User:        keys[1],
			Owner:       keys[2],
			RewardVault: keys[3],
			Destination: keys[4],
		}, args.Now)
		return err

	case sdkstaking.InstructionStakeOnBehalf:
		keys, err := c.load(6, 1)
		if err != nil {
			return err
		}
		var args sdkstaking.UnstakeArgs
		if err := c.args(&args); err != nil {
			return err
		}
		return b.staking.StakeOnBehalf(staking.BehalfAccounts{
			Pool:         keys[0],
			Authority:    keys[1],
			Target:       keys[2],
			User:         keys[3],
			Source:       keys[4],
			StakingVault: keys[5],
		}, args.Amount, args.Now)

	case sdkstaking.InstructionWithdraw:
		keys, err := c.load(5, 2)
		if err != nil {
			return err
		}
		var args sdkstaking.WithdrawArgs
		if err := c.args(&args); err != nil {
			return err
		}
		return b.staking.Withdraw(staking.WithdrawAccounts{
			Pool:         keys[0],
			User:         keys[1],
			Owner:        keys[2],
			Destination:  keys[3],
			StakingVault: keys[4],
		}, args.Index, args.Now)

	case sdkstaking.InstructionInitializeMerchant:
		keys, err := c.load(3, 2)
		if err != nil {
			return err
		}
		var args sdkstaking.InitializeMerchantArgs
		if err := c.args(&args); err != nil {
			return err
		}
		return b.staking.InitializeMerchant(staking.MerchantAccounts{Pool: keys[0], Merchant: keys[1], Owner: keys[2]}, args.Name, args.Nonce, args.Now)

	case sdkstaking.InstructionCreateMerchantUser:
		keys, err := c.load(4, 3)
		if err != nil {
			return err
		}
		var args sdkstaking.CreateUserArgs
		if err := c.args(&args); err != nil {
			return err
		}
		return b.staking.CreateMerchantUser(staking.MerchantUserAccounts{
			Pool:         keys[0],
			Merchant:     keys[1],
			MerchantUser: keys[2],
			Owner:        keys[3],
		}, args.Nonce, args.Now)

	case sdkstaking.InstructionStakeToMerchant:
		keys, err := c.load(6, 3)
		if err != nil {
			return err
		}
		var args sdkstaking.StakeArgs
		if err := c.args(&args); err != nil {
			return err
		}
		return b.staking.StakeToMerchant(merchantStakeAccounts(keys), args.Amount, args.Now, args.LockPeriod)

	case sdkstaking.InstructionUnstakeFromMerchant:
		keys, err := c.load(6, 3)
		if err != nil {
			return err
		}
		var args sdkstaking.UnstakeArgs
		if err := c.args(&args); err != nil {
			return err
		}
		return b.staking.UnstakeFromMerchant(merchantStakeAccounts(keys), args.Amount, args.Now)

	case sdkstaking.InstructionPauseMerchant, sdkstaking.InstructionUnpauseMerchant:
		keys, err := c.load(3, 2)
		if err != nil {
			return err
		}
		if err := c.args(nil); err != nil {
			return err
		}
		acc := staking.MerchantAccounts{Pool: keys[0], Merchant: keys[1], Owner: keys[2]}
		if name == sdkstaking.InstructionPauseMerchant {
			return b.staking.PauseMerchant(acc)
		}
		return b.staking.UnpauseMerchant(acc)

	case sdkstaking.InstructionClaimMerchantReward:
		keys, err := c.load(5, 2)
		if err != nil {
			return err
		}
		var args sdkstaking.ClockArgs
		if err := c.args(&args); err != nil {
			return err
		}
		_, err = b.staking.ClaimMerchantReward(staking.MerchantClaimAccounts{
			Pool:        keys[0],
			Merchant:    keys[1],
			Owner:       keys[2],
			RewardVault: keys[3],
			Destination: keys[4],
		}, args.Now)
		return err
	}
	return fmt.Errorf("staking %s: %w", name, errors.ErrUnknownInstruction)
}

func stakeAccounts(keys []solana.PublicKey) staking.StakeAccounts {
	return staking.StakeAccounts{
		Pool:         keys[0],
		User:         keys[1],
		Owner:        keys[2],
		Source:       keys[3],
		StakingVault: keys[4],
	}
}

func merchantStakeAccounts(keys []solana.PublicKey) staking.MerchantStakeAccounts {
	return staking.MerchantStakeAccounts{
		Pool:         keys[0],
		Merchant:     keys[1],
		MerchantUser: keys[2],
		Owner:        keys[3],
		Source:       keys[4],
		StakingVault: keys[5],
	}
}
