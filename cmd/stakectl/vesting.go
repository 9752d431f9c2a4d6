package main

import (
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	sdkvesting "stakeledger/sdk/vesting"
)

// scheduleFlags identify one vesting schedule.
type scheduleFlags struct {
	beneficiary string
	mint        string
}

func (f *scheduleFlags) resolve(l *ledger) (solana.PublicKey, solana.PublicKey, error) {
	beneficiary, err := parseKey("beneficiary", f.beneficiary, l.operator())
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	mint, err := parseKey("mint", f.mint, solana.PublicKey{})
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	return beneficiary, mint, nil
}

func (c *cli) vestingAction(f *scheduleFlags, build func(*ledger, *sdkvesting.Builder, solana.PublicKey, solana.PublicKey) (solana.Instruction, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return c.withLedger(func(l *ledger) error {
			beneficiary, mint, err := f.resolve(l)
			if err != nil {
				return err
			}
			ix, err := build(l, sdkvesting.NewBuilder(l.programs.Vesting), beneficiary, mint)
			if err != nil {
				return err
			}
			return l.submit(cmd.Context(), ix)
		})
	}
}

func (c *cli) newVestingCommand() *cobra.Command {
	f := &scheduleFlags{}
	cmd := &cobra.Command{
		Use:   "vesting",
		Short: "Manage investor vesting schedules",
	}
	cmd.PersistentFlags().StringVar(&f.beneficiary, "beneficiary", "", "Beneficiary wallet (defaults to the operator)")
	cmd.PersistentFlags().StringVar(&f.mint, "mint", "", "Vested mint address")

	var (
		amount    uint64
		name      string
		startTs   int64
		revocable bool
		refundee  string
	)

	initRegistry := &cobra.Command{
		Use:   "init-registry",
		Short: "Create the investor registry owned by the operator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withLedger(func(l *ledger) error {
				ix, err := sdkvesting.NewBuilder(l.programs.Vesting).InitializeVesting(l.operator())
				if err != nil {
					return err
				}
				return l.submit(cmd.Context(), ix)
			})
		},
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Enroll a beneficiary and fund the schedule from the operator",
		Args:  cobra.NoArgs,
		RunE: c.vestingAction(f, func(l *ledger, b *sdkvesting.Builder, beneficiary, mint solana.PublicKey) (solana.Instruction, error) {
			src, err := l.tokenAccount("source", "", mint)
			if err != nil {
				return nil, err
			}
			start := startTs
			if start == 0 {
				start = l.timestamp()
			}
			return b.Initialize(l.operator(), beneficiary, mint, src, amount, name, start, revocable)
		}),
	}
	create.Flags().Uint64Var(&amount, "amount", 0, "Total vested amount in base units")
	create.Flags().StringVar(&name, "name", "", "Investor display name")
	create.Flags().Int64Var(&startTs, "start", 0, "Vesting start as a unix timestamp (defaults to now)")
	create.Flags().BoolVar(&revocable, "revocable", true, "Allow the registry owner to revoke the schedule")

	upfront := &cobra.Command{
		Use:   "upfront",
		Short: "Release the upfront share to the beneficiary",
		Args:  cobra.NoArgs,
		RunE: c.vestingAction(f, func(l *ledger, b *sdkvesting.Builder, beneficiary, mint solana.PublicKey) (solana.Instruction, error) {
			return b.Upfront(beneficiary, mint, l.timestamp())
		}),
	}
	withdraw := &cobra.Command{
		Use:   "withdraw",
		Short: "Release everything vested so far",
		Args:  cobra.NoArgs,
		RunE: c.vestingAction(f, func(l *ledger, b *sdkvesting.Builder, beneficiary, mint solana.PublicKey) (solana.Instruction, error) {
			return b.Withdraw(beneficiary, mint, l.timestamp())
		}),
	}
	revoke := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke a schedule and refund the unreleased balance",
		Args:  cobra.NoArgs,
		RunE: c.vestingAction(f, func(l *ledger, b *sdkvesting.Builder, beneficiary, mint solana.PublicKey) (solana.Instruction, error) {
			dst, err := l.tokenAccount("refundee", refundee, mint)
			if err != nil {
				return nil, err
			}
			return b.Revoke(l.operator(), beneficiary, mint, dst)
		}),
	}
	revoke.Flags().StringVar(&refundee, "refundee", "", "Refund token account (defaults to the operator's associated account)")
	enable := &cobra.Command{
		Use:   "enable",
		Short: "Allow top-ups of a schedule",
		Args:  cobra.NoArgs,
		RunE: c.vestingAction(f, func(l *ledger, b *sdkvesting.Builder, beneficiary, mint solana.PublicKey) (solana.Instruction, error) {
			return b.EnableAccount(l.operator(), beneficiary, mint)
		}),
	}
	disable := &cobra.Command{
		Use:   "disable",
		Short: "Forbid top-ups of a schedule",
		Args:  cobra.NoArgs,
		RunE: c.vestingAction(f, func(l *ledger, b *sdkvesting.Builder, beneficiary, mint solana.PublicKey) (solana.Instruction, error) {
			return b.DisableAccount(l.operator(), beneficiary, mint)
		}),
	}
	rename := &cobra.Command{
		Use:   "rename",
		Short: "Change the investor display name",
		Args:  cobra.NoArgs,
		RunE: c.vestingAction(f, func(l *ledger, b *sdkvesting.Builder, beneficiary, mint solana.PublicKey) (solana.Instruction, error) {
			return b.RenameAccount(l.operator(), beneficiary, mint, name)
		}),
	}
	rename.Flags().StringVar(&name, "name", "", "New display name")
	topUp := &cobra.Command{
		Use:   "top-up",
		Short: "Add tokens to an enabled schedule",
		Args:  cobra.NoArgs,
		RunE: c.vestingAction(f, func(l *ledger, b *sdkvesting.Builder, beneficiary, mint solana.PublicKey) (solana.Instruction, error) {
			src, err := l.tokenAccount("source", "", mint)
			if err != nil {
				return nil, err
			}
			return b.AddTokenToVesting(l.operator(), beneficiary, mint, src, amount)
		}),
	}
	topUp.Flags().Uint64Var(&amount, "amount", 0, "Amount in base units")

	cmd.AddCommand(initRegistry, create, upfront, withdraw, revoke, enable, disable, rename, topUp)
	return cmd
}
