package staking

import (
	"fmt"
	"math"
	"time"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/errors"
	"stakeledger/core/events"
	"stakeledger/core/types"
)

type engineState interface {
	StakingPoolGet(addr solana.PublicKey) (*Pool, bool, error)
	StakingPoolPut(addr solana.PublicKey, pool *Pool) error
	StakingPoolDelete(addr solana.PublicKey) error
	StakingUserGet(addr solana.PublicKey) (*User, bool, error)
	StakingUserPut(addr solana.PublicKey, user *User) error
	StakingUserDelete(addr solana.PublicKey) error
	StakingMerchantGet(addr solana.PublicKey) (*Merchant, bool, error)
	StakingMerchantPut(addr solana.PublicKey, merchant *Merchant) error
	StakingMerchantDelete(addr solana.PublicKey) error
	StakingMerchantUserGet(addr solana.PublicKey) (*MerchantUser, bool, error)
	StakingMerchantUserPut(addr solana.PublicKey, user *MerchantUser) error
	StakingMerchantUserDelete(addr solana.PublicKey) error
}

// tokenLedger moves custody funds. Transfers out of a vault are authorised
// by the pool signer.
type tokenLedger interface {
	InitializeAccount(addr, mint, owner solana.PublicKey) error
	Transfer(from, to, authority solana.PublicKey, amount uint64) error
	Balance(addr solana.PublicKey) (uint64, error)
	CloseAccount(addr, authority solana.PublicKey) error
	Exists(addr solana.PublicKey) (bool, error)
}

// Engine wires the staking program business logic with persistence, custody
// and event emission.
type Engine struct {
	state   engineState
	tokens  tokenLedger
	emitter events.Emitter
	nowFn   func() int64
	params  Params
	addrs   Addresses
}

// NewEngine constructs a staking engine bound to programID.
func NewEngine(programID solana.PublicKey) *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
		params: DefaultParams(),
		addrs:  Addresses{ProgramID: programID},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTokenLedger configures the custody ledger.
func (e *Engine) SetTokenLedger(tokens tokenLedger) { e.tokens = tokens }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the ledger clock used for tolerance checks and funding.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetParams replaces the program parameters.
func (e *Engine) SetParams(params Params) { e.params = params }

// Params returns the active parameters.
func (e *Engine) Params() Params { return e.params }

// Addresses returns the address derivation helper for this program.
func (e *Engine) Addresses() Addresses { return e.addrs }

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
		return fmt.Errorf("staking engine: not configured")
	}
	return nil
}

// checkClock bounds a caller-supplied timestamp against the ledger clock.
func (e *Engine) checkClock(ts int64) error {
	if e.params.ReplayClock {
		return nil
	}
	tol := e.params.ClockToleranceSeconds
	diff := ts - e.now()
	if diff < 0 {
		diff = -diff
	}
	if diff > tol {
		return fmt.Errorf("timestamp %d vs ledger %d: %w", ts, e.now(), errors.ErrClockSkew)
	}
	return nil
}

func (e *Engine) loadPool(addr solana.PublicKey) (*Pool, error) {
	pool, ok, err := e.state.StakingPoolGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("pool %s: %w", addr, errors.ErrAccountNotFound)
	}
	return pool, nil
}

func (e *Engine) loadUser(pool, addr, owner solana.PublicKey) (*User, error) {
	user, ok, err := e.state.StakingUserGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("user %s: %w", addr, errors.ErrAccountNotFound)
	}
	if !user.Pool.Equals(pool) {
		return nil, fmt.Errorf("user %s belongs to pool %s: %w", addr, user.Pool, errors.ErrInvalidAccount)
	}
	if !user.Owner.Equals(owner) {
		return nil, fmt.Errorf("user %s: %w", addr, errors.ErrUnauthorized)
	}
	return user, nil
}

func (e *Engine) loadMerchant(pool, addr solana.PublicKey) (*Merchant, error) {
	merchant, ok, err := e.state.StakingMerchantGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("merchant %s: %w", addr, errors.ErrAccountNotFound)
	}
	if !merchant.Pool.Equals(pool) {
		return nil, fmt.Errorf("merchant %s belongs to pool %s: %w", addr, merchant.Pool, errors.ErrInvalidAccount)
	}
	return merchant, nil
}

// poolSigner rebuilds the custody authority from the stored bump.
func (e *Engine) poolSigner(poolAddr solana.PublicKey, pool *Pool) (solana.PublicKey, error) {
	signer, err := solana.CreateProgramAddress([][]byte{poolAddr.Bytes(), {pool.Nonce}}, e.addrs.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("pool signer: %w", err)
	}
	return signer, nil
}

func requirePositive(amount uint64) error {
	if amount == 0 {
		return errors.ErrInvalidAmount
	}
	return nil
}

// checkLockPeriod rejects negative periods and lock ends past the int64 range.
func checkLockPeriod(now, lockPeriod int64) error {
	if lockPeriod < 0 || (now > 0 && lockPeriod > math.MaxInt64-now) {
		return fmt.Errorf("lock period %d: %w", lockPeriod, errors.ErrInvalidAmount)
	}
	return nil
}

func requireUnpaused(pool *Pool) error {
	if pool.Paused {
		return errors.ErrPoolPaused
	}
	return nil
}

func addChecked(a, b uint64) (uint64, error) {
	if a+b < a {
		return 0, errors.ErrMathOverflow
	}
	return a + b, nil
}

func requireCapacity(kind string, current, limit int) error {
	if current >= limit {
		return fmt.Errorf("%s list holds %d entries: %w", kind, current, errors.ErrCapacityExceeded)
	}
	return nil
}
