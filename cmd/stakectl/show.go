package main

import (
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	sdkstaking "stakeledger/sdk/staking"
	sdkvesting "stakeledger/sdk/vesting"
)

func (c *cli) printJSON(v interface{}) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, string(payload))
	return nil
}

func (c *cli) newShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Inspect ledger records",
	}
	f := &poolFlags{}
	var (
		owner       string
		merchant    string
		beneficiary string
		mint        string
	)

	// withPool runs fn with the pool selected by the pool flags.
	withPool := func(fn func(*ledger, *sdkstaking.Builder, sdkstaking.PoolKeys) error) func(*cobra.Command, []string) error {
		return func(*cobra.Command, []string) error {
			return c.withLedger(func(l *ledger) error {
				b, pk, err := f.resolve(l)
				if err != nil {
					return err
				}
				return fn(l, b, pk)
			})
		}
	}
	ownerKey := func(l *ledger) (solana.PublicKey, error) {
		return parseKey("owner", owner, l.operator())
	}

	pool := &cobra.Command{
		Use:   "pool",
		Short: "Show a staking pool",
		Args:  cobra.NoArgs,
		RunE: withPool(func(l *ledger, _ *sdkstaking.Builder, pk sdkstaking.PoolKeys) error {
			record, err := l.rt.Pool(pk.Pool)
			if err != nil {
				return err
			}
			return c.printJSON(map[string]interface{}{"address": pk.Pool, "pool": record})
		}),
	}
	user := &cobra.Command{
		Use:   "user",
		Short: "Show a user record and its pending reward",
		Args:  cobra.NoArgs,
		RunE: withPool(func(l *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) error {
			key, err := ownerKey(l)
			if err != nil {
				return err
			}
			addr, _, err := b.User(pk, key)
			if err != nil {
				return err
			}
			record, err := l.rt.User(addr)
			if err != nil {
				return err
			}
			pending, err := l.rt.PendingReward(pk.Pool, addr, l.timestamp())
			if err != nil {
				return err
			}
			return c.printJSON(map[string]interface{}{"address": addr, "user": record, "pendingReward": pending})
		}),
	}
	merchantCmd := &cobra.Command{
		Use:   "merchant",
		Short: "Show a merchant record and its pending reward",
		Args:  cobra.NoArgs,
		RunE: withPool(func(l *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) error {
			key, err := ownerKey(l)
			if err != nil {
				return err
			}
			addr, _, err := b.Merchant(pk, key)
			if err != nil {
				return err
			}
			record, err := l.rt.Merchant(addr)
			if err != nil {
				return err
			}
			pending, err := l.rt.MerchantPendingReward(pk.Pool, addr, l.timestamp())
			if err != nil {
				return err
			}
			return c.printJSON(map[string]interface{}{"address": addr, "merchant": record, "pendingReward": pending})
		}),
	}
	merchantUser := &cobra.Command{
		Use:   "merchant-user",
		Short: "Show a wallet's record under a merchant",
		Args:  cobra.NoArgs,
		RunE: withPool(func(l *ledger, b *sdkstaking.Builder, pk sdkstaking.PoolKeys) error {
			key, err := ownerKey(l)
			if err != nil {
				return err
			}
			m, err := parseKey("merchant", merchant, solana.PublicKey{})
			if err != nil {
				return err
			}
			addr, _, err := b.MerchantUser(pk, m, key)
			if err != nil {
				return err
			}
			record, err := l.rt.MerchantUser(addr)
			if err != nil {
				return err
			}
			return c.printJSON(map[string]interface{}{"address": addr, "merchantUser": record})
		}),
	}
	merchantUser.Flags().StringVar(&merchant, "merchant", "", "Merchant record address")
	for _, sub := range []*cobra.Command{pool, user, merchantCmd, merchantUser} {
		f.register(sub)
	}
	for _, sub := range []*cobra.Command{user, merchantCmd, merchantUser} {
		sub.Flags().StringVar(&owner, "owner", "", "Owner wallet (defaults to the operator)")
	}

	registry := &cobra.Command{
		Use:   "registry",
		Short: "Show the investor registry",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return c.withLedger(func(l *ledger) error {
				addr, err := sdkvesting.NewBuilder(l.programs.Vesting).Registry()
				if err != nil {
					return err
				}
				record, err := l.rt.InvestorRegistry(addr)
				if err != nil {
					return err
				}
				return c.printJSON(map[string]interface{}{"address": addr, "registry": record})
			})
		},
	}
	vestingCmd := &cobra.Command{
		Use:   "vesting",
		Short: "Show a vesting schedule and its releasable amount",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return c.withLedger(func(l *ledger) error {
				sf := scheduleFlags{beneficiary: beneficiary, mint: mint}
				who, mintKey, err := sf.resolve(l)
				if err != nil {
					return err
				}
				sched, err := sdkvesting.NewBuilder(l.programs.Vesting).Schedule(who, mintKey)
				if err != nil {
					return err
				}
				record, err := l.rt.Vesting(sched.Vesting)
				if err != nil {
					return err
				}
				releasable, err := l.rt.Releasable(sched.Vesting, l.timestamp())
				if err != nil {
					return err
				}
				return c.printJSON(map[string]interface{}{"address": sched.Vesting, "vesting": record, "releasable": releasable})
			})
		},
	}
	vestingCmd.Flags().StringVar(&beneficiary, "beneficiary", "", "Beneficiary wallet (defaults to the operator)")
	vestingCmd.Flags().StringVar(&mint, "mint", "", "Vested mint address")

	balance := &cobra.Command{
		Use:   "balance <token-account>",
		Short: "Show a token account balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return c.withLedger(func(l *ledger) error {
				addr, err := parseKey("account", args[0], solana.PublicKey{})
				if err != nil {
					return err
				}
				amount, err := l.rt.Balance(addr)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.out, amount)
				return nil
			})
		},
	}
	accounts := &cobra.Command{
		Use:   "accounts",
		Short: "List every token account",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return c.withLedger(func(l *ledger) error {
				entries, err := l.rt.TokenAccounts()
				if err != nil {
					return err
				}
				for _, entry := range entries {
					acct, err := l.rt.TokenAccount(entry.Address)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.out, "%s mint=%s owner=%s amount=%d\n", entry.Address, acct.Mint, acct.Owner, acct.Amount)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(pool, user, merchantCmd, merchantUser, registry, vestingCmd, balance, accounts)
	return cmd
}
