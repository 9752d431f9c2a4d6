package genesis

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/runtime"
	sdkstaking "stakeledger/sdk/staking"
	sdktoken "stakeledger/sdk/token"
	sdkvesting "stakeledger/sdk/vesting"
)

// Result lists the addresses created by Apply.
type Result struct {
	Mints    map[string]solana.PublicKey
	Accounts map[string][]solana.PublicKey
	Pools    []sdkstaking.PoolKeys
	Registry solana.PublicKey
	Events   int
}

type planner struct {
	tokens  *sdktoken.Builder
	staking *sdkstaking.Builder
	vesting *sdkvesting.Builder

	ixs     []solana.Instruction
	signers map[solana.PublicKey]struct{}
	atas    map[[2]solana.PublicKey]solana.PublicKey
	result  *Result
}

// MintAddress resolves the address of a declared mint.
func MintAddress(m MintSpec, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	if addr := strings.TrimSpace(m.Address); addr != "" {
		return solana.PublicKeyFromBase58(addr)
	}
	authority, err := parseKey(m.Authority)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.CreateWithSeed(authority, strings.TrimSpace(m.Name), tokenProgram)
}

// Apply writes the genesis contents into rt as a single atomic batch. The
// declared authorities are treated as signers.
func Apply(ctx context.Context, rt *runtime.Runtime, spec *Spec) (*Result, error) {
	if rt == nil {
		return nil, fmt.Errorf("genesis: runtime required")
	}
	if spec == nil {
		return nil, fmt.Errorf("genesis: spec required")
	}
	programs := rt.Programs()
	p := &planner{
		tokens:  sdktoken.NewBuilder(programs.Token),
		staking: sdkstaking.NewBuilder(programs.Staking),
		vesting: sdkvesting.NewBuilder(programs.Vesting),
		signers: make(map[solana.PublicKey]struct{}),
		atas:    make(map[[2]solana.PublicKey]solana.PublicKey),
		result: &Result{
			Mints:    make(map[string]solana.PublicKey, len(spec.Mints)),
			Accounts: make(map[string][]solana.PublicKey),
		},
	}
	if err := p.plan(spec); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}
	if len(p.ixs) == 0 {
		return p.result, nil
	}

	signers := make([]solana.PublicKey, 0, len(p.signers))
	for key := range p.signers {
		signers = append(signers, key)
	}
	receipt, err := rt.Execute(ctx, signers, p.ixs...)
	if err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}
	p.result.Events = len(receipt.Events)
	return p.result, nil
}

func (p *planner) plan(spec *Spec) error {
	authorities := make(map[string]solana.PublicKey, len(spec.Mints))
	for _, m := range spec.Mints {
		name := strings.TrimSpace(m.Name)
		addr, err := MintAddress(m, p.tokens.ProgramID())
		if err != nil {
			return fmt.Errorf("mint %s: %w", name, err)
		}
		authority, err := parseKey(m.Authority)
		if err != nil {
			return fmt.Errorf("mint %s: %w", name, err)
		}
		ix, err := p.tokens.InitializeMint(addr, authority, m.Decimals)
		if err != nil {
			return err
		}
		p.add(ix, authority)
		p.result.Mints[name] = addr
		authorities[name] = authority
	}

	for _, b := range spec.Balances {
		name := strings.TrimSpace(b.Mint)
		owner, err := parseKey(b.Owner)
		if err != nil {
			return err
		}
		mint := p.result.Mints[name]
		ata, err := p.ata(owner, mint, name)
		if err != nil {
			return err
		}
		if b.Amount == 0 {
			continue
		}
		ix, err := p.tokens.MintTo(mint, ata, authorities[name], b.Amount)
		if err != nil {
			return err
		}
		p.add(ix, authorities[name])
	}

	for i, ps := range spec.Pools {
		authority, err := parseKey(ps.Authority)
		if err != nil {
			return err
		}
		stakingMint := p.result.Mints[strings.TrimSpace(ps.StakingMint)]
		rewardName := strings.TrimSpace(ps.RewardMint)
		if rewardName == "" {
			rewardName = strings.TrimSpace(ps.StakingMint)
		}
		rewardMint := p.result.Mints[rewardName]

		keys, err := p.staking.Pool(authority, stakingMint, rewardMint)
		if err != nil {
			return fmt.Errorf("pool %d: %w", i, err)
		}
		ix, err := p.staking.InitializePool(keys, ps.RewardDuration.Seconds())
		if err != nil {
			return fmt.Errorf("pool %d: %w", i, err)
		}
		p.add(ix, authority)
		if ps.Fund > 0 {
			source, err := p.ata(authority, rewardMint, rewardName)
			if err != nil {
				return err
			}
			fund, err := p.staking.Fund(keys, authority, source, ps.Fund)
			if err != nil {
				return fmt.Errorf("pool %d: %w", i, err)
			}
			p.add(fund, authority)
		}
		p.result.Pools = append(p.result.Pools, keys)
	}

	if spec.Vesting != nil {
		owner, err := parseKey(spec.Vesting.Owner)
		if err != nil {
			return err
		}
		ix, err := p.vesting.InitializeVesting(owner)
		if err != nil {
			return err
		}
		p.add(ix, owner)
		registry, err := p.vesting.Registry()
		if err != nil {
			return err
		}
		p.result.Registry = registry
	}
	return nil
}

func (p *planner) add(ix solana.Instruction, signers ...solana.PublicKey) {
	p.ixs = append(p.ixs, ix)
	for _, s := range signers {
		p.signers[s] = struct{}{}
	}
}

// ata queues creation of the associated token account once per wallet and
// mint.
func (p *planner) ata(wallet, mint solana.PublicKey, mintName string) (solana.PublicKey, error) {
	key := [2]solana.PublicKey{wallet, mint}
	if addr, ok := p.atas[key]; ok {
		return addr, nil
	}
	ix, addr, err := p.tokens.CreateAssociatedAccount(wallet, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	p.add(ix)
	p.atas[key] = addr
	p.result.Accounts[mintName] = append(p.result.Accounts[mintName], addr)
	return addr, nil
}
