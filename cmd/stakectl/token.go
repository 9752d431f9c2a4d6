package main

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"stakeledger/crypto"
	sdktoken "stakeledger/sdk/token"
)

func (c *cli) newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint and move tokens held by the operator",
	}

	var (
		mint     string
		owner    string
		to       string
		amount   uint64
		decimals uint8
	)

	createMint := &cobra.Command{
		Use:   "create-mint",
		Short: "Create a mint with the operator as mint authority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withLedger(func(l *ledger) error {
				kp, err := crypto.GenerateKeypair()
				if err != nil {
					return err
				}
				tokens := sdktoken.NewBuilder(l.programs.Token)
				ix, err := tokens.InitializeMint(kp.PublicKey(), l.operator(), decimals)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "mint: %s\n", kp.PublicKey())
				return l.submit(cmd.Context(), ix)
			})
		},
	}
	createMint.Flags().Uint8Var(&decimals, "decimals", 9, "Mint decimals")

	createAccount := &cobra.Command{
		Use:   "create-account",
		Short: "Open the associated token account of a wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withLedger(func(l *ledger) error {
				mintKey, err := parseKey("mint", mint, solana.PublicKey{})
				if err != nil {
					return err
				}
				wallet, err := parseKey("owner", owner, l.operator())
				if err != nil {
					return err
				}
				ix, ata, err := sdktoken.NewBuilder(l.programs.Token).CreateAssociatedAccount(wallet, mintKey)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "account: %s\n", ata)
				return l.submit(cmd.Context(), ix)
			})
		},
	}
	createAccount.Flags().StringVar(&mint, "mint", "", "Mint address")
	createAccount.Flags().StringVar(&owner, "owner", "", "Wallet address (defaults to the operator)")

	mintTo := &cobra.Command{
		Use:   "mint",
		Short: "Mint tokens into a token account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withLedger(func(l *ledger) error {
				mintKey, err := parseKey("mint", mint, solana.PublicKey{})
				if err != nil {
					return err
				}
				dest, err := l.tokenAccount("to", to, mintKey)
				if err != nil {
					return err
				}
				ix, err := sdktoken.NewBuilder(l.programs.Token).MintTo(mintKey, dest, l.operator(), amount)
				if err != nil {
					return err
				}
				return l.submit(cmd.Context(), ix)
			})
		},
	}

	transfer := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer tokens from the operator's associated account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withLedger(func(l *ledger) error {
				mintKey, err := parseKey("mint", mint, solana.PublicKey{})
				if err != nil {
					return err
				}
				source, err := crypto.AssociatedTokenAddress(l.operator(), mintKey)
				if err != nil {
					return err
				}
				dest, err := l.tokenAccount("to", to, mintKey)
				if err != nil {
					return err
				}
				ix, err := sdktoken.NewBuilder(l.programs.Token).Transfer(source, dest, l.operator(), amount)
				if err != nil {
					return err
				}
				return l.submit(cmd.Context(), ix)
			})
		},
	}
	for _, sub := range []*cobra.Command{mintTo, transfer} {
		sub.Flags().StringVar(&mint, "mint", "", "Mint address")
		sub.Flags().StringVar(&to, "to", "", "Destination token account, or a wallet whose associated account receives the tokens")
		sub.Flags().Uint64Var(&amount, "amount", 0, "Amount in base units")
	}

	cmd.AddCommand(createMint, createAccount, mintTo, transfer)
	return cmd
}

// tokenAccount resolves value to a token account. Wallet addresses map to
// their associated account for mint; empty means the operator's.
func (l *ledger) tokenAccount(flag, value string, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, err := parseKey(flag, value, l.operator())
	if err != nil {
		return solana.PublicKey{}, err
	}
	if _, err := l.rt.TokenAccount(addr); err == nil {
		return addr, nil
	}
	return crypto.AssociatedTokenAddress(addr, mint)
}
