package vesting

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/errors"
	"stakeledger/core/events"
	"stakeledger/core/types"
)

type engineState interface {
	VestingRegistryGet(addr solana.PublicKey) (*Registry, bool, error)
	VestingRegistryPut(addr solana.PublicKey, registry *Registry) error
	VestingAccountGet(addr solana.PublicKey) (*Account, bool, error)
	VestingAccountPut(addr solana.PublicKey, acct *Account) error
}

type tokenLedger interface {
	InitializeAccount(addr, mint, owner solana.PublicKey) error
	Transfer(from, to, authority solana.PublicKey, amount uint64) error
	Balance(addr solana.PublicKey) (uint64, error)
}

// Engine runs the vesting program against the configured state and custody
// ledger.
type Engine struct {
	state   engineState
	tokens  tokenLedger
	emitter events.Emitter
	nowFn   func() int64
	params  Params
	addrs   Addresses
}

// NewEngine constructs a vesting engine bound to programID.
func NewEngine(programID solana.PublicKey) *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
		params:  DefaultParams(),
		addrs:   Addresses{ProgramID: programID},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTokenLedger configures the custody ledger.
func (e *Engine) SetTokenLedger(tokens tokenLedger) { e.tokens = tokens }

// SetParams replaces the vesting policy.
func (e *Engine) SetParams(params Params) { e.params = params }

// Params returns the active policy.
func (e *Engine) Params() Params { return e.params }

// Addresses returns the address derivation helper for this program.
func (e *Engine) Addresses() Addresses { return e.addrs }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the ledger clock.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil || e.tokens == nil {
		return fmt.Errorf("vesting engine: not configured")
	}
	return nil
}

func (e *Engine) checkClock(ts int64) error {
	if e.params.ReplayClock {
		return nil
	}
	tol := e.params.ClockToleranceSeconds
	ledger := e.now()
	diff := ts - ledger
	if diff < 0 {
		diff = -diff
	}
	if diff > tol {
		return fmt.Errorf("timestamp %d vs ledger %d: %w", ts, ledger, errors.ErrClockSkew)
	}
	return nil
}

func (e *Engine) loadRegistry(addr, owner solana.PublicKey) (*Registry, error) {
	want, _, err := e.addrs.Registry()
	if err != nil {
		return nil, err
	}
	if err := expectAddress("registry", addr, want); err != nil {
		return nil, err
	}
	registry, ok, err := e.state.VestingRegistryGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("registry %s: %w", addr, errors.ErrAccountNotFound)
	}
	if !registry.Owner.Equals(owner) {
		return nil, fmt.Errorf("registry %s: %w", addr, errors.ErrUnauthorized)
	}
	return registry, nil
}

func (e *Engine) loadAccount(addr solana.PublicKey) (*Account, error) {
	acct, ok, err := e.state.VestingAccountGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("vesting %s: %w", addr, errors.ErrAccountNotFound)
	}
	return acct, nil
}

// loadOwned loads a schedule and checks that owner administers it.
func (e *Engine) loadOwned(addr, owner solana.PublicKey) (*Account, error) {
	acct, err := e.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	if !acct.Owner.Equals(owner) {
		return nil, fmt.Errorf("vesting %s: %w", addr, errors.ErrUnauthorized)
	}
	return acct, nil
}

func (e *Engine) vaultAuthority() (solana.PublicKey, error) {
	authority, _, err := e.addrs.VaultAuthority()
	return authority, err
}

func requireActive(acct *Account) error {
	if acct.Revoked {
		return errors.ErrAlreadyRevoked
	}
	if !acct.Approved {
		return errors.ErrNotApproved
	}
	return nil
}

// Releasable reports what a withdraw of the schedule at addr would pay at now.
func (e *Engine) Releasable(addr solana.PublicKey, now int64) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	acct, err := e.loadAccount(addr)
	if err != nil {
		return 0, err
	}
	if acct.Revoked {
		return 0, nil
	}
	return Releasable(acct, e.params.UpfrontBps, now)
}
