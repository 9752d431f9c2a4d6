package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/errors"
	"stakeledger/core/events"
	"stakeledger/core/state"
	"stakeledger/core/types"
	"stakeledger/native/staking"
	"stakeledger/native/token"
	"stakeledger/native/vesting"
	"stakeledger/observability/metrics"
	sdkstaking "stakeledger/sdk/staking"
	sdktoken "stakeledger/sdk/token"
	sdkvesting "stakeledger/sdk/vesting"
	"stakeledger/storage"
)

const (
	programToken   = "token"
	programStaking = "staking"
	programVesting = "vesting"
)

// Receipt describes a committed batch of instructions.
type Receipt struct {
	Instructions int
	Events       []types.Event
	Signature    solana.Signature
}

// Runtime executes instructions against the ledger. Batches run serially and
// atomically: every write of a batch lands in one commit or not at all.
type Runtime struct {
	mu sync.Mutex

	db            storage.Database
	logger        *slog.Logger
	clock         func() time.Time
	emitter       events.Emitter
	metrics       *metrics.LedgerMetrics
	stakingParams staking.Params
	vestingParams vesting.Params
	programs      state.Programs

	tokenSet   types.InstructionSet
	stakingSet types.InstructionSet
	vestingSet types.InstructionSet
}

// Option customises a Runtime.
type Option func(*Runtime)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the ledger clock used to bound caller timestamps.
func WithClock(clock func() time.Time) Option {
	return func(r *Runtime) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithEmitter receives events of committed batches.
func WithEmitter(emitter events.Emitter) Option {
	return func(r *Runtime) {
		if emitter != nil {
			r.emitter = emitter
		}
	}
}

// WithMetrics records execution metrics. A nil set disables them.
func WithMetrics(m *metrics.LedgerMetrics) Option {
	return func(r *Runtime) { r.metrics = m }
}

// WithStakingParams overrides the staking program parameters.
func WithStakingParams(p staking.Params) Option {
	return func(r *Runtime) { r.stakingParams = p }
}

// WithVestingParams overrides the vesting program parameters.
func WithVestingParams(p vesting.Params) Option {
	return func(r *Runtime) { r.vestingParams = p }
}

// WithClockTolerance bounds caller-supplied timestamps for both programs.
func WithClockTolerance(seconds int64) Option {
	return func(r *Runtime) {
		r.stakingParams.ClockToleranceSeconds = seconds
		r.vestingParams.ClockToleranceSeconds = seconds
	}
}

// WithReplayClock accepts caller-supplied timestamps verbatim, for replaying
// a recorded history against a fresh ledger.
func WithReplayClock() Option {
	return func(r *Runtime) {
		r.stakingParams.ReplayClock = true
		r.vestingParams.ReplayClock = true
	}
}

// WithProgramIDs overrides the deployed program addresses.
func WithProgramIDs(p state.Programs) Option {
	return func(r *Runtime) { r.programs = p }
}

// New constructs a runtime over db.
func New(db storage.Database, opts ...Option) (*Runtime, error) {
	if db == nil {
		return nil, fmt.Errorf("runtime: database required")
	}
	r := &Runtime{
		db:            db,
		logger:        slog.Default(),
		clock:         time.Now,
		emitter:       events.NoopEmitter{},
		stakingParams: staking.DefaultParams(),
		vestingParams: vesting.DefaultParams(),
		programs:      state.DefaultPrograms(),
		tokenSet:      types.NewInstructionSet(sdktoken.Instructions...),
		stakingSet:    types.NewInstructionSet(sdkstaking.Instructions...),
		vestingSet:    types.NewInstructionSet(sdkvesting.Instructions...),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if err := r.stakingParams.Validate(); err != nil {
		return nil, err
	}
	if err := r.vestingParams.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Programs returns the program addresses the runtime dispatches on.
func (r *Runtime) Programs() state.Programs { return r.programs }

// Now returns the ledger clock in unix seconds.
func (r *Runtime) Now() int64 { return r.clock().Unix() }

// batch binds the engines to one uncommitted overlay.
type batch struct {
	rt      *Runtime
	state   *state.Manager
	tokens  *token.Engine
	staking *staking.Engine
	vesting *vesting.Engine
	buffer  *events.Buffer
	signers map[solana.PublicKey]struct{}
}

func (r *Runtime) newBatch(db storage.Database, signers []solana.PublicKey) *batch {
	manager := state.NewManager(db, r.programs)
	buffer := &events.Buffer{}
	nowFn := r.Now

	tokens := token.NewEngine()
	tokens.SetState(manager)
	tokens.SetEmitter(buffer)

	stakingEngine := staking.NewEngine(r.programs.Staking)
	stakingEngine.SetState(manager)
	stakingEngine.SetTokenLedger(tokens)
	stakingEngine.SetEmitter(buffer)
	stakingEngine.SetNowFunc(nowFn)
	stakingEngine.SetParams(r.stakingParams)

	vestingEngine := vesting.NewEngine(r.programs.Vesting)
	vestingEngine.SetState(manager)
	vestingEngine.SetTokenLedger(tokens)
	vestingEngine.SetEmitter(buffer)
	vestingEngine.SetNowFunc(nowFn)
	vestingEngine.SetParams(r.vestingParams)

	set := make(map[solana.PublicKey]struct{}, len(signers))
	for _, s := range signers {
		set[s] = struct{}{}
	}
	return &batch{
		rt:      r,
		state:   manager,
		tokens:  tokens,
		staking: stakingEngine,
		vesting: vestingEngine,
		buffer:  buffer,
		signers: set,
	}
}

// Execute runs ixs in order as one atomic unit on behalf of signers. The
// first failing instruction rejects the whole batch.
func (r *Runtime) Execute(ctx context.Context, signers []solana.PublicKey, ixs ...solana.Instruction) (*Receipt, error) {
	if len(ixs) == 0 {
		return nil, fmt.Errorf("runtime: empty instruction batch")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	overlay := storage.NewCacheDB(r.db)
	b := r.newBatch(overlay, signers)
	for i, ix := range ixs {
		if err := ctx.Err(); err != nil {
			overlay.Discard()
			r.metrics.ObserveExecute(start, err)
			return nil, err
		}
		program, name, err := b.execute(ix)
		r.metrics.ObserveInstruction(program, name, err)
		if err != nil {
			overlay.Discard()
			b.buffer.Reset()
			r.metrics.ObserveExecute(start, err)
			r.logger.Warn("instruction rejected",
				slog.Int("index", i),
				slog.String("program", program),
				slog.String("instruction", name),
				slog.Uint64("code", uint64(errors.CodeOf(err))),
				slog.String("error", err.Error()))
			return nil, fmt.Errorf("instruction %d (%s.%s): %w", i, program, name, err)
		}
		r.logger.Debug("instruction executed",
			slog.Int("index", i),
			slog.String("program", program),
			slog.String("instruction", name))
	}
	if err := overlay.Commit(); err != nil {
		b.buffer.Reset()
		r.metrics.ObserveExecute(start, err)
		return nil, fmt.Errorf("runtime: commit: %w", err)
	}
	flat := events.Flatten(b.buffer.Flush(r.emitter))
	for _, evt := range flat {
		amount, _ := strconv.ParseUint(evt.Attributes["amount"], 10, 64)
		r.metrics.ObserveEvent(evt.Type, amount)
	}
	r.metrics.ObserveExecute(start, nil)
	return &Receipt{Instructions: len(ixs), Events: flat}, nil
}

func (b *batch) execute(ix solana.Instruction) (string, string, error) {
	if ix == nil {
		return "", "", fmt.Errorf("nil instruction")
	}
	programID := ix.ProgramID()
	var (
		program string
		set     types.InstructionSet
		handle  func(string, *call) error
	)
	switch {
	case programID.Equals(b.rt.programs.Token):
		program, set, handle = programToken, b.rt.tokenSet, b.execToken
	case programID.Equals(b.rt.programs.Staking):
		program, set, handle = programStaking, b.rt.stakingSet, b.execStaking
	case programID.Equals(b.rt.programs.Vesting):
		program, set, handle = programVesting, b.rt.vestingSet, b.execVesting
	default:
		return programID.String(), "", fmt.Errorf("program %s: %w", programID, errors.ErrUnknownInstruction)
	}
	data, err := ix.Data()
	if err != nil {
		return program, "", fmt.Errorf("instruction data: %w", err)
	}
	name, payload, ok := set.Lookup(data)
	if !ok {
		return program, "", fmt.Errorf("%s: %w", program, errors.ErrUnknownInstruction)
	}
	c := &call{name: name, metas: ix.Accounts(), payload: payload, signers: b.signers}
	return program, name, handle(name, c)
}
