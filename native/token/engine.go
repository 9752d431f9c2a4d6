package token

import (
	"fmt"
	"math"
	"strconv"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/errors"
	"stakeledger/core/events"
	"stakeledger/core/types"
	"stakeledger/crypto"
)

type engineState interface {
	TokenMintGet(addr solana.PublicKey) (*Mint, bool, error)
	TokenMintPut(addr solana.PublicKey, mint *Mint) error
	TokenAccountGet(addr solana.PublicKey) (*Account, bool, error)
	TokenAccountPut(addr solana.PublicKey, account *Account) error
	TokenAccountDelete(addr solana.PublicKey) error
}

// Engine implements the token ledger used for program custody.
type Engine struct {
	state   engineState
	emitter events.Emitter
}

// NewEngine constructs a token engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return fmt.Errorf("token engine: state not configured")
	}
	return nil
}

// InitializeMint registers a new mint.
func (e *Engine) InitializeMint(addr, authority solana.PublicKey, decimals uint8) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, ok, err := e.state.TokenMintGet(addr); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("mint %s: %w", addr, errors.ErrAlreadyInitialized)
	}
	return e.state.TokenMintPut(addr, &Mint{MintAuthority: authority, Decimals: decimals, IsInitialized: true})
}

// InitializeAccount opens a token account for owner at addr.
func (e *Engine) InitializeAccount(addr, mint, owner solana.PublicKey) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, ok, err := e.state.TokenMintGet(mint); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("mint %s: %w", mint, errors.ErrAccountNotFound)
	}
	if _, ok, err := e.state.TokenAccountGet(addr); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("token account %s: %w", addr, errors.ErrAlreadyInitialized)
	}
	return e.state.TokenAccountPut(addr, &Account{Mint: mint, Owner: owner})
}

// CreateAssociatedAccount opens the associated token account of wallet for
// mint. Existing accounts with a matching owner and mint are accepted as is.
func (e *Engine) CreateAssociatedAccount(wallet, mint solana.PublicKey) (solana.PublicKey, error) {
	if err := e.ready(); err != nil {
		return solana.PublicKey{}, err
	}
	addr, err := crypto.AssociatedTokenAddress(wallet, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	existing, ok, err := e.state.TokenAccountGet(addr)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if ok {
		if !existing.Owner.Equals(wallet) || !existing.Mint.Equals(mint) {
			return solana.PublicKey{}, fmt.Errorf("associated account %s: %w", addr, errors.ErrInvalidAccount)
		}
		return addr, nil
	}
	if err := e.InitializeAccount(addr, mint, wallet); err != nil {
		return solana.PublicKey{}, err
	}
	return addr, nil
}

// MintTo creates amount new tokens in dest. Only the mint authority may mint.
func (e *Engine) MintTo(mintAddr, dest, authority solana.PublicKey, amount uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	mint, ok, err := e.state.TokenMintGet(mintAddr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("mint %s: %w", mintAddr, errors.ErrAccountNotFound)
	}
	if !mint.MintAuthority.Equals(authority) {
		return fmt.Errorf("mint %s: %w", mintAddr, errors.ErrUnauthorized)
	}
	acct, err := e.account(dest)
	if err != nil {
		return err
	}
	if !acct.Mint.Equals(mintAddr) {
		return fmt.Errorf("token account %s: mint mismatch: %w", dest, errors.ErrInvalidAccount)
	}
	if mint.Supply > math.MaxUint64-amount || acct.Amount > math.MaxUint64-amount {
		return errors.ErrMathOverflow
	}
	mint.Supply += amount
	acct.Amount += amount
	if err := e.state.TokenMintPut(mintAddr, mint); err != nil {
		return err
	}
	if err := e.state.TokenAccountPut(dest, acct); err != nil {
		return err
	}
	e.emit(MintedEvent(mintAddr, dest, amount))
	return nil
}

// Transfer moves amount between two accounts of the same mint. authority must
// be the owner of the source account.
func (e *Engine) Transfer(from, to, authority solana.PublicKey, amount uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if from.Equals(to) {
		return fmt.Errorf("transfer %s to itself: %w", from, errors.ErrInvalidAccount)
	}
	src, err := e.account(from)
	if err != nil {
		return err
	}
	dst, err := e.account(to)
	if err != nil {
		return err
	}
	if !src.Owner.Equals(authority) {
		return fmt.Errorf("token account %s: %w", from, errors.ErrUnauthorized)
	}
	if !src.Mint.Equals(dst.Mint) {
		return fmt.Errorf("transfer %s -> %s: mint mismatch: %w", from, to, errors.ErrInvalidAccount)
	}
	if amount == 0 {
		return nil
	}
	if src.Amount < amount {
		return fmt.Errorf("token account %s: %w", from, errors.ErrInsufficientBalance)
	}
	if dst.Amount > math.MaxUint64-amount {
		return errors.ErrMathOverflow
	}
	src.Amount -= amount
	dst.Amount += amount
	if err := e.state.TokenAccountPut(from, src); err != nil {
		return err
	}
	if err := e.state.TokenAccountPut(to, dst); err != nil {
		return err
	}
	e.emit(TransferEvent(from, to, amount))
	return nil
}

// CloseAccount removes an empty token account.
func (e *Engine) CloseAccount(addr, authority solana.PublicKey) error {
	if err := e.ready(); err != nil {
		return err
	}
	acct, err := e.account(addr)
	if err != nil {
		return err
	}
	if !acct.Owner.Equals(authority) {
		return fmt.Errorf("token account %s: %w", addr, errors.ErrUnauthorized)
	}
	if acct.Amount != 0 {
		return fmt.Errorf("token account %s holds %d: %w", addr, acct.Amount, errors.ErrNonZeroBalance)
	}
	return e.state.TokenAccountDelete(addr)
}

// Balance returns the amount held by addr.
func (e *Engine) Balance(addr solana.PublicKey) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	acct, err := e.account(addr)
	if err != nil {
		return 0, err
	}
	return acct.Amount, nil
}

// Account returns a copy of the token account at addr.
func (e *Engine) Account(addr solana.PublicKey) (*Account, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.account(addr)
}

// Exists reports whether a token account is open at addr.
func (e *Engine) Exists(addr solana.PublicKey) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	_, ok, err := e.state.TokenAccountGet(addr)
	return ok, err
}

func (e *Engine) account(addr solana.PublicKey) (*Account, error) {
	acct, ok, err := e.state.TokenAccountGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("token account %s: %w", addr, errors.ErrAccountNotFound)
	}
	return acct, nil
}

func formatAmount(v uint64) string { return strconv.FormatUint(v, 10) }
