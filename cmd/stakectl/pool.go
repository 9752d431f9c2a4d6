package main

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"stakeledger/crypto"
	sdkstaking "stakeledger/sdk/staking"
)

// poolFlags identify a pool by its authority and mints.
type poolFlags struct {
	authority   string
	stakingMint string
	rewardMint  string
}

func (f *poolFlags) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&f.authority, "authority", "", "Pool authority (defaults to the operator)")
	flags.StringVar(&f.stakingMint, "staking-mint", "", "Staking mint address")
	flags.StringVar(&f.rewardMint, "reward-mint", "", "Reward mint address (defaults to the staking mint)")
}

func (f *poolFlags) resolve(l *ledger) (*sdkstaking.Builder, sdkstaking.PoolKeys, error) {
	builder := sdkstaking.NewBuilder(l.programs.Staking)
	authority, err := parseKey("authority", f.authority, l.operator())
	if err != nil {
		return nil, sdkstaking.PoolKeys{}, err
	}
	stakingMint, err := parseKey("staking-mint", f.stakingMint, solana.PublicKey{})
	if err != nil {
		return nil, sdkstaking.PoolKeys{}, err
	}
	rewardMint, err := parseKey("reward-mint", f.rewardMint, stakingMint)
	if err != nil {
		return nil, sdkstaking.PoolKeys{}, err
	}
	keys, err := builder.Pool(authority, stakingMint, rewardMint)
	return builder, keys, err
}

// poolAction wraps a builder call into a RunE that submits one instruction.
func (c *cli) poolAction(f *poolFlags, build func(*ledger, *sdkstaking.Builder, sdkstaking.PoolKeys) (solana.Instruction, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return c.withLedger(func(l *ledger) error {
			builder, keys, err := f.resolve(l)
			if err != nil {
				return err
			}
			ix, err := build(l, builder, keys)
			if err != nil {
				return err
			}
			return l.submit(cmd.Context(), ix)
		})
	}
}

func (c *cli) newPoolCommand() *cobra.Command {
	f := &poolFlags{}
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Administer a staking pool",
	}
	f.register(cmd)

	var (
		duration time.Duration
		amount   uint64
		source   string
		funder   string
		stakeTo  string
		rewardTo string
	)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the pool, its signer and vaults",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(_ *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			return b.InitializePool(pk, uint64(duration/time.Second))
		}),
	}
	initCmd.Flags().DurationVar(&duration, "reward-duration", 30*24*time.Hour, "Window over which each funding is paid out")

	fund := &cobra.Command{
		Use:   "fund",
		Short: "Deposit rewards and restart the reward window",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(l *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			src, err := l.tokenAccount("source", source, pk.RewardMint)
			if err != nil {
				return nil, err
			}
			return b.Fund(pk, l.operator(), src, amount)
		}),
	}
	fund.Flags().Uint64Var(&amount, "amount", 0, "Reward amount in base units")
	fund.Flags().StringVar(&source, "source", "", "Reward token account (defaults to the operator's associated account)")

	pause := &cobra.Command{
		Use:   "pause",
		Short: "Pause staking and claims",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(_ *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			return b.Pause(pk)
		}),
	}
	unpause := &cobra.Command{
		Use:   "unpause",
		Short: "Resume a paused pool",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(_ *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			return b.Unpause(pk)
		}),
	}

	authorize := &cobra.Command{
		Use:   "authorize-funder",
		Short: "Allow another wallet to fund the pool",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(_ *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			key, err := parseKey("funder", funder, solana.PublicKey{})
			if err != nil {
				return nil, err
			}
			return b.AuthorizeFunder(pk, key)
		}),
	}
	deauthorize := &cobra.Command{
		Use:   "deauthorize-funder",
		Short: "Revoke a funder",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(_ *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			key, err := parseKey("funder", funder, solana.PublicKey{})
			if err != nil {
				return nil, err
			}
			return b.DeauthorizeFunder(pk, key)
		}),
	}
	for _, sub := range []*cobra.Command{authorize, deauthorize} {
		sub.Flags().StringVar(&funder, "funder", "", "Funder wallet")
	}

	closeCmd := &cobra.Command{
		Use:   "close",
		Short: "Close a paused, empty pool and sweep its vaults",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(l *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			stakingRefundee, err := l.tokenAccount("staking-refundee", stakeTo, pk.StakingMint)
			if err != nil {
				return nil, err
			}
			rewardRefundee, err := l.tokenAccount("reward-refundee", rewardTo, pk.RewardMint)
			if err != nil {
				return nil, err
			}
			return b.ClosePool(pk, stakingRefundee, rewardRefundee)
		}),
	}
	closeCmd.Flags().StringVar(&stakeTo, "staking-refundee", "", "Receives the staking vault balance")
	closeCmd.Flags().StringVar(&rewardTo, "reward-refundee", "", "Receives the reward vault balance")

	cmd.AddCommand(initCmd, fund, pause, unpause, authorize, deauthorize, closeCmd)
	return cmd
}

func (c *cli) newUserCommand() *cobra.Command {
	f := &poolFlags{}
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Stake as the operator wallet",
	}
	f.register(cmd)

	var (
		amount uint64
		lock   time.Duration
		index  uint32
		target string
	)

	create := &cobra.Command{
		Use:   "create",
		Short: "Open the operator's user record in the pool",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(l *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			return b.CreateUser(pk, l.operator(), l.timestamp())
		}),
	}
	closeCmd := &cobra.Command{
		Use:   "close",
		Short: "Close an empty user record",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(l *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			return b.CloseUser(pk, l.operator())
		}),
	}
	stake := &cobra.Command{
		Use:   "stake",
		Short: "Stake from the operator's associated account",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(l *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			src, err := crypto.AssociatedTokenAddress(l.operator(), pk.StakingMint)
			if err != nil {
				return nil, err
			}
			return b.Stake(pk, l.operator(), src, amount, l.timestamp(), int64(lock/time.Second))
		}),
	}
	stake.Flags().DurationVar(&lock, "lock", 0, "Lock period for the staked amount")
	unstake := &cobra.Command{
		Use:   "unstake",
		Short: "Unstake unlocked tokens back to the operator",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(l *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			dst, err := crypto.AssociatedTokenAddress(l.operator(), pk.StakingMint)
			if err != nil {
				return nil, err
			}
			return b.Unstake(pk, l.operator(), dst, amount, l.timestamp())
		}),
	}
	for _, sub := range []*cobra.Command{stake, unstake} {
		sub.Flags().Uint64Var(&amount, "amount", 0, "Amount in base units")
	}
	claim := &cobra.Command{
		Use:   "claim",
		Short: "Claim accrued rewards",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(l *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			dst, err := crypto.AssociatedTokenAddress(l.operator(), pk.RewardMint)
			if err != nil {
				return nil, err
			}
			return b.Claim(pk, l.operator(), dst, l.timestamp())
		}),
	}
	behalf := &cobra.Command{
		Use:   "stake-on-behalf",
		Short: "Stake the operator's tokens into another user's locked tranche",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(l *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			key, err := parseKey("target", target, solana.PublicKey{})
			if err != nil {
				return nil, err
			}
			src, err := crypto.AssociatedTokenAddress(l.operator(), pk.StakingMint)
			if err != nil {
				return nil, err
			}
			return b.StakeOnBehalf(pk, key, src, amount, l.timestamp())
		}),
	}
	behalf.Flags().StringVar(&target, "target", "", "Wallet whose user record receives the stake")
	behalf.Flags().Uint64Var(&amount, "amount", 0, "Amount in base units")
	withdraw := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw an unlocked behalf tranche",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(l *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			dst, err := crypto.AssociatedTokenAddress(l.operator(), pk.StakingMint)
			if err != nil {
				return nil, err
			}
			return b.Withdraw(pk, l.operator(), dst, index, l.timestamp())
		}),
	}
	withdraw.Flags().Uint32Var(&index, "index", 0, "Tranche index")

	cmd.AddCommand(create, closeCmd, stake, unstake, claim, behalf, withdraw)
	return cmd
}

func (c *cli) newMerchantCommand() *cobra.Command {
	f := &poolFlags{}
	cmd := &cobra.Command{
		Use:   "merchant",
		Short: "Operate merchant sub-pools",
	}
	f.register(cmd)

	var (
		name     string
		merchant string
		amount   uint64
		lock     time.Duration
	)
	merchantKey := func(l *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.PublicKey, error) {
		if merchant != "" {
			return parseKey("merchant", merchant, solana.PublicKey{})
		}
		addr, _, err := b.Merchant(pk, l.operator())
		return addr, err
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Register the operator as a merchant",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(l *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			return b.InitializeMerchant(pk, l.operator(), name, l.timestamp())
		}),
	}
	initCmd.Flags().StringVar(&name, "name", "", "Merchant display name")

	join := &cobra.Command{
		Use:   "join",
		Short: "Open the operator's record under a merchant",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(l *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			m, err := merchantKey(l, b, pk)
			if err != nil {
				return nil, err
			}
			return b.CreateMerchantUser(pk, m, l.operator(), l.timestamp())
		}),
	}
	stake := &cobra.Command{
		Use:   "stake",
		Short: "Stake toward a merchant",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(l *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			m, err := merchantKey(l, b, pk)
			if err != nil {
				return nil, err
			}
			src, err := crypto.AssociatedTokenAddress(l.operator(), pk.StakingMint)
			if err != nil {
				return nil, err
			}
			return b.StakeToMerchant(pk, m, l.operator(), src, amount, l.timestamp(), int64(lock/time.Second))
		}),
	}
	stake.Flags().DurationVar(&lock, "lock", 0, "Lock period for the staked amount")
	unstake := &cobra.Command{
		Use:   "unstake",
		Short: "Unstake from a merchant",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(l *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			m, err := merchantKey(l, b, pk)
			if err != nil {
				return nil, err
			}
			dst, err := crypto.AssociatedTokenAddress(l.operator(), pk.StakingMint)
			if err != nil {
				return nil, err
			}
			return b.UnstakeFromMerchant(pk, m, l.operator(), dst, amount, l.timestamp())
		}),
	}
	for _, sub := range []*cobra.Command{stake, unstake} {
		sub.Flags().Uint64Var(&amount, "amount", 0, "Amount in base units")
	}
	pause := &cobra.Command{
		Use:   "pause",
		Short: "Pause a merchant (merchant owner or pool authority)",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(l *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			m, err := merchantKey(l, b, pk)
			if err != nil {
				return nil, err
			}
			return b.PauseMerchant(pk, m, l.operator())
		}),
	}
	unpause := &cobra.Command{
		Use:   "unpause",
		Short: "Resume a paused merchant",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(l *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			m, err := merchantKey(l, b, pk)
			if err != nil {
				return nil, err
			}
			return b.UnpauseMerchant(pk, m, l.operator())
		}),
	}
	claim := &cobra.Command{
		Use:   "claim",
		Short: "Claim the operator's merchant rewards",
		Args:  cobra.NoArgs,
		RunE: c.poolAction(f, func(l *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) (solana.Instruction, error) {
			dst, err := crypto.AssociatedTokenAddress(l.operator(), pk.RewardMint)
			if err != nil {
				return nil, err
			}
			return b.ClaimMerchantReward(pk, l.operator(), dst, l.timestamp())
		}),
	}
	cmd.PersistentFlags().StringVar(&merchant, "merchant", "", "Merchant record address (defaults to the operator's merchant)")

	cmd.AddCommand(initCmd, join, stake, unstake, pause, unpause, claim)
	return cmd
}
