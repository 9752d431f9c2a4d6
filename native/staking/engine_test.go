package staking

import (
	stderrors "errors"
	"math"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/errors"
	"stakeledger/core/events"
	"stakeledger/native/token"
)

type mockState struct {
	mints         map[solana.PublicKey]*token.Mint
	tokenAccounts map[solana.PublicKey]*token.Account
	pools         map[solana.PublicKey]*Pool
	users         map[solana.PublicKey]*User
	merchants     map[solana.PublicKey]*Merchant
	merchantUsers map[solana.PublicKey]*MerchantUser
}

func newMockState() *mockState {
	return &mockState{
		mints:         make(map[solana.PublicKey]*token.Mint),
		tokenAccounts: make(map[solana.PublicKey]*token.Account),
		pools:         make(map[solana.PublicKey]*Pool),
		users:         make(map[solana.PublicKey]*User),
		merchants:     make(map[solana.PublicKey]*Merchant),
		merchantUsers: make(map[solana.PublicKey]*MerchantUser),
	}
}

func (m *mockState) TokenMintGet(addr solana.PublicKey) (*token.Mint, bool, error) {
	mint, ok := m.mints[addr]
	if !ok {
		return nil, false, nil
	}
	return mint.Clone(), true, nil
}

func (m *mockState) TokenMintPut(addr solana.PublicKey, mint *token.Mint) error {
	m.mints[addr] = mint.Clone()
	return nil
}

func (m *mockState) TokenAccountGet(addr solana.PublicKey) (*token.Account, bool, error) {
	acct, ok := m.tokenAccounts[addr]
	if !ok {
		return nil, false, nil
	}
	return acct.Clone(), true, nil
}

func (m *mockState) TokenAccountPut(addr solana.PublicKey, acct *token.Account) error {
	m.tokenAccounts[addr] = acct.Clone()
	return nil
}

func (m *mockState) TokenAccountDelete(addr solana.PublicKey) error {
	delete(m.tokenAccounts, addr)
	return nil
}

func (m *mockState) StakingPoolGet(addr solana.PublicKey) (*Pool, bool, error) {
	pool, ok := m.pools[addr]
	if !ok {
		return nil, false, nil
	}
	return pool.Clone(), true, nil
}

func (m *mockState) StakingPoolPut(addr solana.PublicKey, pool *Pool) error {
	m.pools[addr] = pool.Clone()
	return nil
}

func (m *mockState) StakingPoolDelete(addr solana.PublicKey) error {
	delete(m.pools, addr)
	return nil
}

func (m *mockState) StakingUserGet(addr solana.PublicKey) (*User, bool, error) {
	user, ok := m.users[addr]
	if !ok {
		return nil, false, nil
	}
	return user.Clone(), true, nil
}

func (m *mockState) StakingUserPut(addr solana.PublicKey, user *User) error {
	m.users[addr] = user.Clone()
	return nil
}

func (m *mockState) StakingUserDelete(addr solana.PublicKey) error {
	delete(m.users, addr)
	return nil
}

func (m *mockState) StakingMerchantGet(addr solana.PublicKey) (*Merchant, bool, error) {
	merchant, ok := m.merchants[addr]
	if !ok {
		return nil, false, nil
	}
	return merchant.Clone(), true, nil
}

func (m *mockState) StakingMerchantPut(addr solana.PublicKey, merchant *Merchant) error {
	m.merchants[addr] = merchant.Clone()
	return nil
}

func (m *mockState) StakingMerchantDelete(addr solana.PublicKey) error {
	delete(m.merchants, addr)
	return nil
}

func (m *mockState) StakingMerchantUserGet(addr solana.PublicKey) (*MerchantUser, bool, error) {
	mu, ok := m.merchantUsers[addr]
	if !ok {
		return nil, false, nil
	}
	return mu.Clone(), true, nil
}

func (m *mockState) StakingMerchantUserPut(addr solana.PublicKey, mu *MerchantUser) error {
	m.merchantUsers[addr] = mu.Clone()
	return nil
}

func (m *mockState) StakingMerchantUserDelete(addr solana.PublicKey) error {
	delete(m.merchantUsers, addr)
	return nil
}

type captureEmitter struct{ events []events.Event }

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func (c *captureEmitter) count(kind string) int {
	n := 0
	for _, evt := range c.events {
		if evt.EventType() == kind {
			n++
		}
	}
	return n
}

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key.PublicKey()
}

type fixture struct {
	t            *testing.T
	state        *mockState
	tokens       *token.Engine
	engine       *Engine
	emitter      *captureEmitter
	clock        int64
	authority    solana.PublicKey
	stakingMint  solana.PublicKey
	rewardMint   solana.PublicKey
	pool         solana.PublicKey
	stakingVault solana.PublicKey
	rewardVault  solana.PublicKey
}

func newFixture(t *testing.T, duration uint64) *fixture {
	t.Helper()
	f := &fixture{
		t:           t,
		state:       newMockState(),
		emitter:     &captureEmitter{},
		clock:       1_000,
		authority:   newKey(t),
		stakingMint: newKey(t),
		rewardMint:  newKey(t),
	}
	f.tokens = token.NewEngine()
	f.tokens.SetState(f.state)
	f.engine = NewEngine(DefaultProgramID)
	f.engine.SetState(f.state)
	f.engine.SetTokenLedger(f.tokens)
	f.engine.SetEmitter(f.emitter)
	f.engine.SetNowFunc(func() int64 { return f.clock })

	for _, mint := range []solana.PublicKey{f.stakingMint, f.rewardMint} {
		if err := f.tokens.InitializeMint(mint, f.authority, 9); err != nil {
			t.Fatalf("init mint: %v", err)
		}
	}
	addrs := f.engine.Addresses()
	pool, _, err := addrs.PoolAddress(f.authority, f.stakingMint)
	if err != nil {
		t.Fatalf("pool address: %v", err)
	}
	signer, bump, err := addrs.PoolSigner(pool)
	if err != nil {
		t.Fatalf("pool signer: %v", err)
	}
	stakingVault, rewardVault, err := addrs.Vaults(f.authority, f.stakingMint)
	if err != nil {
		t.Fatalf("vaults: %v", err)
	}
	f.pool, f.stakingVault, f.rewardVault = pool, stakingVault, rewardVault
	err = f.engine.InitializePool(InitPoolAccounts{
		Authority:    f.authority,
		Pool:         pool,
		PoolSigner:   signer,
		StakingMint:  f.stakingMint,
		RewardMint:   f.rewardMint,
		StakingVault: stakingVault,
		RewardVault:  rewardVault,
	}, bump, duration)
	if err != nil {
		t.Fatalf("init pool: %v", err)
	}
	return f
}

// wallet opens a token account of owner for mint holding amount.
func (f *fixture) wallet(owner, mint solana.PublicKey, amount uint64) solana.PublicKey {
	f.t.Helper()
	addr, err := f.tokens.CreateAssociatedAccount(owner, mint)
	if err != nil {
		f.t.Fatalf("create account: %v", err)
	}
	if amount > 0 {
		if err := f.tokens.MintTo(mint, addr, f.authority, amount); err != nil {
			f.t.Fatalf("mint: %v", err)
		}
	}
	return addr
}

func (f *fixture) balance(addr solana.PublicKey) uint64 {
	f.t.Helper()
	amount, err := f.tokens.Balance(addr)
	if err != nil {
		f.t.Fatalf("balance %s: %v", addr, err)
	}
	return amount
}

func (f *fixture) fund(amount uint64) {
	f.t.Helper()
	src := f.wallet(f.authority, f.rewardMint, amount)
	if err := f.engine.Fund(FundAccounts{Pool: f.pool, Funder: f.authority, Source: src, RewardVault: f.rewardVault}, amount); err != nil {
		f.t.Fatalf("fund: %v", err)
	}
}

type staker struct {
	owner  solana.PublicKey
	user   solana.PublicKey
	source solana.PublicKey
	reward solana.PublicKey
}

func (f *fixture) newStaker(tokens uint64) staker {
	f.t.Helper()
	owner := newKey(f.t)
	user, _, err := f.engine.Addresses().UserAddress(owner, f.pool)
	if err != nil {
		f.t.Fatalf("user address: %v", err)
	}
	return staker{
		owner:  owner,
		user:   user,
		source: f.wallet(owner, f.stakingMint, tokens),
		reward: f.wallet(owner, f.rewardMint, 0),
	}
}

func (f *fixture) stakeAccounts(s staker) StakeAccounts {
	return StakeAccounts{Pool: f.pool, User: s.user, Owner: s.owner, Source: s.source, StakingVault: f.stakingVault}
}

func (f *fixture) claimAccounts(s staker) ClaimAccounts {
	return ClaimAccounts{Pool: f.pool, User: s.user, Owner: s.owner, RewardVault: f.rewardVault, Destination: s.reward}
}

func (f *fixture) poolRecord() *Pool {
	f.t.Helper()
	pool, ok := f.state.pools[f.pool]
	if !ok {
		f.t.Fatalf("pool missing")
	}
	return pool
}

func expectCode(t *testing.T, err error, want error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", want)
	}
	if !stderrors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestInitializePoolRejectsWrongBump(t *testing.T) {
	f := newFixture(t, 10)
	authority := newKey(t)
	addrs := f.engine.Addresses()
	pool, _, _ := addrs.PoolAddress(authority, f.stakingMint)
	signer, bump, _ := addrs.PoolSigner(pool)
	stakingVault, rewardVault, _ := addrs.Vaults(authority, f.stakingMint)
	acc := InitPoolAccounts{
		Authority:    authority,
		Pool:         pool,
		PoolSigner:   signer,
		StakingMint:  f.stakingMint,
		RewardMint:   f.rewardMint,
		StakingVault: stakingVault,
		RewardVault:  rewardVault,
	}
	expectCode(t, f.engine.InitializePool(acc, bump+1, 10), errors.ErrInvalidAccount)
	expectCode(t, f.engine.InitializePool(acc, bump, 0), errors.ErrDurationTooShort)
	if err := f.engine.InitializePool(acc, bump, 10); err != nil {
		t.Fatalf("init: %v", err)
	}
	expectCode(t, f.engine.InitializePool(acc, bump, 10), errors.ErrAlreadyInitialized)
}

func TestStakeUnstakeConservesBalances(t *testing.T) {
	f := newFixture(t, 10)
	s := f.newStaker(1_000)
	acc := f.stakeAccounts(s)

	if err := f.engine.Stake(acc, 100, f.clock, 0); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := f.engine.Stake(acc, 200, f.clock, 0); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := f.engine.Unstake(acc, 50, f.clock); err != nil {
		t.Fatalf("unstake: %v", err)
	}
	user := f.state.users[s.user]
	if user.BalanceStaked != 250 || user.StakedCount != 2 {
		t.Fatalf("unexpected user record: %+v", user)
	}
	if got := f.poolRecord().TotalStaked; got != 250 {
		t.Fatalf("total staked %d, want 250", got)
	}
	if got := f.balance(f.stakingVault); got != 250 {
		t.Fatalf("vault holds %d, want 250", got)
	}
	if got := f.balance(s.source); got != 750 {
		t.Fatalf("wallet holds %d, want 750", got)
	}
	if f.emitter.count(EventTypeUserCreated) != 1 || f.emitter.count(EventTypeStaked) != 2 {
		t.Fatalf("unexpected events: %d created, %d staked", f.emitter.count(EventTypeUserCreated), f.emitter.count(EventTypeStaked))
	}
	expectCode(t, f.engine.Unstake(acc, 251, f.clock), errors.ErrInsufficientBalance)
	expectCode(t, f.engine.Stake(acc, 0, f.clock, 0), errors.ErrInvalidAmount)
}

func TestUnstakeRespectsLock(t *testing.T) {
	f := newFixture(t, 10)
	s := f.newStaker(150)
	acc := f.stakeAccounts(s)
	if err := f.engine.Stake(acc, 100, f.clock, 100); err != nil {
		t.Fatalf("stake: %v", err)
	}
	// A shorter lock never shortens the existing one.
	if err := f.engine.Stake(acc, 50, f.clock, 0); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if end := f.state.users[s.user].LockEnd; end != f.clock+100 {
		t.Fatalf("lock end %d, want %d", end, f.clock+100)
	}
	expectCode(t, f.engine.Unstake(acc, 150, f.clock+50), errors.ErrLockNotExpired)
	if err := f.engine.Unstake(acc, 150, f.clock+100); err != nil {
		t.Fatalf("unstake after lock: %v", err)
	}
}

func TestFullPeriodRewardsSingleStaker(t *testing.T) {
	f := newFixture(t, 10)
	s := f.newStaker(100_000_000)
	if err := f.engine.Stake(f.stakeAccounts(s), 100_000_000, f.clock, 0); err != nil {
		t.Fatalf("stake: %v", err)
	}
	f.fund(1_000_000_000)
	if rate := f.poolRecord().RewardRate; rate != 100_000_000 {
		t.Fatalf("reward rate %d", rate)
	}

	f.clock += 10
	pending, err := f.engine.PendingReward(f.pool, s.user, f.clock)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending != 1_000_000_000 {
		t.Fatalf("pending %d, want 1e9", pending)
	}
	paid, err := f.engine.Claim(f.claimAccounts(s), f.clock)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if paid != 1_000_000_000 || f.balance(s.reward) != 1_000_000_000 {
		t.Fatalf("paid %d, wallet %d", paid, f.balance(s.reward))
	}

	// Accrual stops at the period end.
	f.clock += 100
	paid, err = f.engine.Claim(f.claimAccounts(s), f.clock)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if paid != 0 {
		t.Fatalf("paid %d after period end", paid)
	}
}

func TestClaimOrderIndependence(t *testing.T) {
	run := func(reverse bool) (uint64, uint64) {
		f := newFixture(t, 10)
		a := f.newStaker(100_000_000)
		b := f.newStaker(100_000_000)
		for _, s := range []staker{a, b} {
			if err := f.engine.Stake(f.stakeAccounts(s), 100_000_000, f.clock, 0); err != nil {
				t.Fatalf("stake: %v", err)
			}
		}
		f.fund(1_000_000_000)
		f.clock += 10
		order := []staker{a, b}
		if reverse {
			order = []staker{b, a}
		}
		for _, s := range order {
			if _, err := f.engine.Claim(f.claimAccounts(s), f.clock); err != nil {
				t.Fatalf("claim: %v", err)
			}
		}
		return f.balance(a.reward), f.balance(b.reward)
	}
	a1, b1 := run(false)
	a2, b2 := run(true)
	if a1 != a2 || b1 != b2 {
		t.Fatalf("order dependent payouts: %d/%d vs %d/%d", a1, b1, a2, b2)
	}
	if a1 != 500_000_000 || b1 != 500_000_000 {
		t.Fatalf("unexpected split %d/%d", a1, b1)
	}
}

func TestClaimCappedAtVaultBalance(t *testing.T) {
	f := newFixture(t, 10)
	s := f.newStaker(100_000_000)
	if err := f.engine.Stake(f.stakeAccounts(s), 100_000_000, f.clock, 0); err != nil {
		t.Fatalf("stake: %v", err)
	}
	f.fund(1_000_000_000)
	vault := f.state.tokenAccounts[f.rewardVault]
	vault.Amount = 400_000_000

	f.clock += 10
	paid, err := f.engine.Claim(f.claimAccounts(s), f.clock)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if paid != 400_000_000 {
		t.Fatalf("paid %d, want 4e8", paid)
	}
	if pending := f.state.users[s.user].RewardPending; pending != 600_000_000 {
		t.Fatalf("pending %d, want 6e8", pending)
	}

	if err := f.tokens.MintTo(f.rewardMint, f.rewardVault, f.authority, 600_000_000); err != nil {
		t.Fatalf("top up: %v", err)
	}
	paid, err = f.engine.Claim(f.claimAccounts(s), f.clock)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if paid != 600_000_000 || f.state.users[s.user].RewardPending != 0 {
		t.Fatalf("paid %d pending %d", paid, f.state.users[s.user].RewardPending)
	}
}

func TestClaimRequiresStakeOrPending(t *testing.T) {
	f := newFixture(t, 10)
	s := f.newStaker(10)
	acc := f.stakeAccounts(s)
	if err := f.engine.Stake(acc, 10, f.clock, 0); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := f.engine.Unstake(acc, 10, f.clock); err != nil {
		t.Fatalf("unstake: %v", err)
	}
	_, err := f.engine.Claim(f.claimAccounts(s), f.clock)
	expectCode(t, err, errors.ErrInsufficientBalance)
}

func TestFundCarriesOverRemainder(t *testing.T) {
	f := newFixture(t, 10)
	f.fund(1_000)
	f.clock += 5
	f.fund(1_000)
	pool := f.poolRecord()
	// 5 seconds at 100/s remain: (1000 + 500) / 10.
	if pool.RewardRate != 150 {
		t.Fatalf("rate %d, want 150", pool.RewardRate)
	}
	if pool.RewardDurationEnd != f.clock+10 || pool.LastUpdateTime != f.clock {
		t.Fatalf("period not restarted: %+v", pool)
	}
}

func TestFundersManagement(t *testing.T) {
	f := newFixture(t, 10)
	admin := PoolAdminAccounts{Pool: f.pool, Authority: f.authority}
	funder := newKey(t)
	src := f.wallet(funder, f.rewardMint, 100)
	fundAcc := FundAccounts{Pool: f.pool, Funder: funder, Source: src, RewardVault: f.rewardVault}

	expectCode(t, f.engine.Fund(fundAcc, 100), errors.ErrUnauthorized)
	if err := f.engine.AuthorizeFunder(admin, funder); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if err := f.engine.Fund(fundAcc, 100); err != nil {
		t.Fatalf("fund as funder: %v", err)
	}
	expectCode(t, f.engine.AuthorizeFunder(admin, funder), errors.ErrFunderAlreadyAuthorized)
	expectCode(t, f.engine.AuthorizeFunder(admin, f.authority), errors.ErrCannotDeauthorizeAuthority)
	expectCode(t, f.engine.DeauthorizeFunder(admin, f.authority), errors.ErrCannotDeauthorizeAuthority)
	expectCode(t, f.engine.DeauthorizeFunder(admin, newKey(t)), errors.ErrFunderNotFound)
	expectCode(t, f.engine.AuthorizeFunder(PoolAdminAccounts{Pool: f.pool, Authority: funder}, newKey(t)), errors.ErrUnauthorized)

	for i := 0; i < 3; i++ {
		if err := f.engine.AuthorizeFunder(admin, newKey(t)); err != nil {
			t.Fatalf("authorize %d: %v", i, err)
		}
	}
	expectCode(t, f.engine.AuthorizeFunder(admin, newKey(t)), errors.ErrCapacityExceeded)

	if err := f.engine.DeauthorizeFunder(admin, funder); err != nil {
		t.Fatalf("deauthorize: %v", err)
	}
	expectCode(t, f.engine.Fund(fundAcc, 1), errors.ErrUnauthorized)
}

func TestPauseBlocksStaking(t *testing.T) {
	f := newFixture(t, 10)
	admin := PoolAdminAccounts{Pool: f.pool, Authority: f.authority}
	s := f.newStaker(100)

	expectCode(t, f.engine.Pause(PoolAdminAccounts{Pool: f.pool, Authority: s.owner}), errors.ErrUnauthorized)
	expectCode(t, f.engine.Unpause(admin), errors.ErrPoolNotPaused)
	if err := f.engine.Pause(admin); err != nil {
		t.Fatalf("pause: %v", err)
	}
	expectCode(t, f.engine.Pause(admin), errors.ErrPoolPaused)
	expectCode(t, f.engine.Stake(f.stakeAccounts(s), 10, f.clock, 0), errors.ErrPoolPaused)
	expectCode(t, f.engine.Fund(FundAccounts{Pool: f.pool, Funder: f.authority, RewardVault: f.rewardVault}, 10), errors.ErrPoolPaused)
	if err := f.engine.Unpause(admin); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if err := f.engine.Stake(f.stakeAccounts(s), 10, f.clock, 0); err != nil {
		t.Fatalf("stake after unpause: %v", err)
	}
	if f.emitter.count(EventTypePoolPaused) != 1 || f.emitter.count(EventTypePoolUnpaused) != 1 {
		t.Fatalf("unexpected toggle events")
	}
}

func TestStakeOnBehalfTranches(t *testing.T) {
	f := newFixture(t, 10)
	params := f.engine.Params()
	params.BehalfLockSeconds = 100
	f.engine.SetParams(params)

	target := f.newStaker(50)
	src := f.wallet(f.authority, f.stakingMint, 1_000)
	behalf := BehalfAccounts{
		Pool:         f.pool,
		Authority:    f.authority,
		Target:       target.owner,
		User:         target.user,
		Source:       src,
		StakingVault: f.stakingVault,
	}
	expectCode(t, f.engine.StakeOnBehalf(BehalfAccounts{
		Pool: f.pool, Authority: target.owner, Target: target.owner, User: target.user, Source: target.source, StakingVault: f.stakingVault,
	}, 10, f.clock), errors.ErrUnauthorized)
	if err := f.engine.StakeOnBehalf(behalf, 300, f.clock); err != nil {
		t.Fatalf("stake on behalf: %v", err)
	}
	if err := f.engine.Stake(f.stakeAccounts(target), 50, f.clock, 0); err != nil {
		t.Fatalf("self stake: %v", err)
	}
	user := f.state.users[target.user]
	if user.BalanceStaked != 350 || user.SelfStaked() != 50 || len(user.Tranches) != 1 {
		t.Fatalf("unexpected record: %+v", user)
	}
	if pool := f.poolRecord(); len(pool.PassiveStakers) != 1 || !pool.PassiveStakers[0].Equals(target.user) {
		t.Fatalf("passive stakers %v", pool.PassiveStakers)
	}

	expectCode(t, f.engine.Unstake(f.stakeAccounts(target), 51, f.clock), errors.ErrInsufficientBalance)

	withdraw := WithdrawAccounts{Pool: f.pool, User: target.user, Owner: target.owner, Destination: target.source, StakingVault: f.stakingVault}
	expectCode(t, f.engine.Withdraw(withdraw, 0, f.clock+99), errors.ErrLockNotExpired)
	expectCode(t, f.engine.Withdraw(withdraw, 3, f.clock+100), errors.ErrTrancheNotFound)
	if err := f.engine.Withdraw(withdraw, 0, f.clock+100); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	expectCode(t, f.engine.Withdraw(withdraw, 0, f.clock+100), errors.ErrAlreadyClaimed)

	user = f.state.users[target.user]
	if user.BalanceStaked != 50 || user.SelfStaked() != 50 {
		t.Fatalf("unexpected record after withdraw: %+v", user)
	}
	if got := f.balance(target.source); got != 300 {
		t.Fatalf("target wallet %d, want 300", got)
	}
	if f.poolRecord().TotalStaked != 50 {
		t.Fatalf("total staked %d", f.poolRecord().TotalStaked)
	}
}

func TestCloseUserAndPool(t *testing.T) {
	f := newFixture(t, 10)
	admin := PoolAdminAccounts{Pool: f.pool, Authority: f.authority}
	s := f.newStaker(100)
	acc := f.stakeAccounts(s)
	userAcc := UserAccounts{Pool: f.pool, User: s.user, Owner: s.owner}
	closeAcc := ClosePoolAccounts{
		Pool:            f.pool,
		Authority:       f.authority,
		StakingVault:    f.stakingVault,
		RewardVault:     f.rewardVault,
		StakingRefundee: f.wallet(f.authority, f.stakingMint, 0),
		RewardRefundee:  f.wallet(f.authority, f.rewardMint, 0),
	}

	if err := f.engine.Stake(acc, 100, f.clock, 0); err != nil {
		t.Fatalf("stake: %v", err)
	}
	f.fund(500)
	expectCode(t, f.engine.CloseUser(userAcc), errors.ErrNonZeroBalance)
	expectCode(t, f.engine.ClosePool(closeAcc), errors.ErrPoolNotPaused)
	if err := f.engine.Pause(admin); err != nil {
		t.Fatalf("pause: %v", err)
	}
	expectCode(t, f.engine.ClosePool(closeAcc), errors.ErrNonZeroBalance)
	if err := f.engine.Unpause(admin); err != nil {
		t.Fatalf("unpause: %v", err)
	}

	if err := f.engine.Unstake(acc, 100, f.clock); err != nil {
		t.Fatalf("unstake: %v", err)
	}
	if err := f.engine.Pause(admin); err != nil {
		t.Fatalf("pause: %v", err)
	}
	expectCode(t, f.engine.ClosePool(closeAcc), errors.ErrPoolNotEmpty)
	if err := f.engine.CloseUser(userAcc); err != nil {
		t.Fatalf("close user: %v", err)
	}
	if _, ok := f.state.users[s.user]; ok {
		t.Fatalf("user record still present")
	}
	if err := f.engine.ClosePool(closeAcc); err != nil {
		t.Fatalf("close pool: %v", err)
	}
	if _, ok := f.state.pools[f.pool]; ok {
		t.Fatalf("pool still present")
	}
	if ok, _ := f.tokens.Exists(f.rewardVault); ok {
		t.Fatalf("reward vault still open")
	}
	if got := f.balance(closeAcc.RewardRefundee); got != 500 {
		t.Fatalf("reward refund %d, want 500", got)
	}
	if f.emitter.count(EventTypePoolClosed) != 1 {
		t.Fatalf("missing close event")
	}
}

type merchantFixture struct {
	*fixture
	owner    solana.PublicKey
	merchant solana.PublicKey
	reward   solana.PublicKey
}

func (f *fixture) newMerchant(name string) merchantFixture {
	f.t.Helper()
	owner := newKey(f.t)
	addr, bump, err := f.engine.Addresses().MerchantAddress(owner, f.pool)
	if err != nil {
		f.t.Fatalf("merchant address: %v", err)
	}
	if err := f.engine.InitializeMerchant(MerchantAccounts{Pool: f.pool, Merchant: addr, Owner: owner}, name, bump, f.clock); err != nil {
		f.t.Fatalf("init merchant: %v", err)
	}
	return merchantFixture{fixture: f, owner: owner, merchant: addr, reward: f.wallet(owner, f.rewardMint, 0)}
}

func (m merchantFixture) stakeAccounts(s staker) MerchantStakeAccounts {
	mu, _, err := m.engine.Addresses().MerchantUserAddress(s.owner, m.merchant, m.pool)
	if err != nil {
		m.t.Fatalf("merchant user address: %v", err)
	}
	return MerchantStakeAccounts{
		Pool:         m.pool,
		Merchant:     m.merchant,
		MerchantUser: mu,
		Owner:        s.owner,
		Source:       s.source,
		StakingVault: m.stakingVault,
	}
}

func TestMerchantLifecycle(t *testing.T) {
	f := newFixture(t, 10)
	m := f.newMerchant("coffee")
	customer := f.newStaker(100_000_000)
	acc := m.stakeAccounts(customer)

	if err := f.engine.StakeToMerchant(acc, 100_000_000, f.clock, 0); err != nil {
		t.Fatalf("stake to merchant: %v", err)
	}
	merchant := f.state.merchants[m.merchant]
	if merchant.BalanceStaked != 100_000_000 || len(merchant.Users) != 1 || merchant.UserStakeCount != 1 {
		t.Fatalf("unexpected merchant: %+v", merchant)
	}
	if f.poolRecord().TotalStaked != 100_000_000 {
		t.Fatalf("merchant stake not counted in pool")
	}

	f.fund(1_000_000_000)
	f.clock += 10
	claim := MerchantClaimAccounts{Pool: f.pool, Merchant: m.merchant, Owner: m.owner, RewardVault: f.rewardVault, Destination: m.reward}
	_, err := f.engine.ClaimMerchantReward(MerchantClaimAccounts{
		Pool: f.pool, Merchant: m.merchant, Owner: customer.owner, RewardVault: f.rewardVault, Destination: customer.reward,
	}, f.clock)
	expectCode(t, err, errors.ErrUnauthorized)
	paid, err := f.engine.ClaimMerchantReward(claim, f.clock)
	if err != nil {
		t.Fatalf("claim merchant: %v", err)
	}
	if paid != 1_000_000_000 {
		t.Fatalf("merchant paid %d, want 1e9", paid)
	}
	if f.state.merchants[m.merchant].ClaimedCount != 1 {
		t.Fatalf("claimed count not bumped")
	}

	if err := f.engine.UnstakeFromMerchant(acc, 40_000_000, f.clock); err != nil {
		t.Fatalf("unstake from merchant: %v", err)
	}
	if f.state.merchants[m.merchant].BalanceStaked != 60_000_000 || f.poolRecord().TotalStaked != 60_000_000 {
		t.Fatalf("balances not reduced")
	}
	expectCode(t, f.engine.UnstakeFromMerchant(acc, 60_000_001, f.clock), errors.ErrInsufficientBalance)
}

func TestMerchantPause(t *testing.T) {
	f := newFixture(t, 10)
	m := f.newMerchant("books")
	customer := f.newStaker(100)
	acc := m.stakeAccounts(customer)
	ownerAcc := MerchantAccounts{Pool: f.pool, Merchant: m.merchant, Owner: m.owner}

	expectCode(t, f.engine.PauseMerchant(MerchantAccounts{Pool: f.pool, Merchant: m.merchant, Owner: customer.owner}), errors.ErrUnauthorized)
	expectCode(t, f.engine.UnpauseMerchant(ownerAcc), errors.ErrMerchantNotPaused)
	if err := f.engine.PauseMerchant(ownerAcc); err != nil {
		t.Fatalf("pause merchant: %v", err)
	}
	expectCode(t, f.engine.PauseMerchant(ownerAcc), errors.ErrMerchantPaused)
	expectCode(t, f.engine.StakeToMerchant(acc, 10, f.clock, 0), errors.ErrMerchantPaused)

	if err := f.engine.UnpauseMerchant(MerchantAccounts{Pool: f.pool, Merchant: m.merchant, Owner: f.authority}); err != nil {
		t.Fatalf("authority unpause: %v", err)
	}
	if err := f.engine.StakeToMerchant(acc, 10, f.clock, 0); err != nil {
		t.Fatalf("stake after unpause: %v", err)
	}

	if err := f.engine.Pause(PoolAdminAccounts{Pool: f.pool, Authority: f.authority}); err != nil {
		t.Fatalf("pause pool: %v", err)
	}
	expectCode(t, f.engine.StakeToMerchant(acc, 10, f.clock, 0), errors.ErrPoolPaused)
}

func TestMerchantInitValidation(t *testing.T) {
	f := newFixture(t, 10)
	owner := newKey(t)
	addr, bump, err := f.engine.Addresses().MerchantAddress(owner, f.pool)
	if err != nil {
		t.Fatalf("merchant address: %v", err)
	}
	acc := MerchantAccounts{Pool: f.pool, Merchant: addr, Owner: owner}
	expectCode(t, f.engine.InitializeMerchant(acc, strings.Repeat("x", 65), bump, f.clock), errors.ErrNameTooLong)
	expectCode(t, f.engine.InitializeMerchant(acc, "shop", bump^1, f.clock), errors.ErrInvalidAccount)
	expectCode(t, f.engine.InitializeMerchant(MerchantAccounts{Pool: f.pool, Merchant: newKey(t), Owner: owner}, "shop", bump, f.clock), errors.ErrInvalidAccount)
	if err := f.engine.InitializeMerchant(acc, "shop", bump, f.clock); err != nil {
		t.Fatalf("init merchant: %v", err)
	}
	expectCode(t, f.engine.InitializeMerchant(acc, "shop", bump, f.clock), errors.ErrAlreadyInitialized)
	if f.poolRecord().MerchantCount != 1 {
		t.Fatalf("merchant count not bumped")
	}
}

func TestClockTolerance(t *testing.T) {
	f := newFixture(t, 10)
	params := f.engine.Params()
	params.ClockToleranceSeconds = 5
	f.engine.SetParams(params)
	s := f.newStaker(10)
	expectCode(t, f.engine.Stake(f.stakeAccounts(s), 10, f.clock+6, 0), errors.ErrClockSkew)
	if err := f.engine.Stake(f.stakeAccounts(s), 10, f.clock+5, 0); err != nil {
		t.Fatalf("stake within tolerance: %v", err)
	}
}

func TestDefaultParamsRejectFutureTimestamps(t *testing.T) {
	f := newFixture(t, 10)
	s := f.newStaker(1_000)
	acc := f.stakeAccounts(s)
	const year = int64(365 * 86400)
	if err := f.engine.Stake(acc, 1_000, f.clock, year); err != nil {
		t.Fatalf("stake: %v", err)
	}
	expectCode(t, f.engine.Unstake(acc, 1_000, f.clock+year), errors.ErrClockSkew)
	if got := f.balance(s.source); got != 0 {
		t.Fatalf("wallet holds %d after skewed unstake", got)
	}

	// Replay mode trusts the caller and leaves only the lock check.
	params := f.engine.Params()
	params.ReplayClock = true
	f.engine.SetParams(params)
	expectCode(t, f.engine.Unstake(acc, 1_000, f.clock+year-1), errors.ErrLockNotExpired)
	if err := f.engine.Unstake(acc, 1_000, f.clock+year); err != nil {
		t.Fatalf("replayed unstake: %v", err)
	}
}

func TestParamsRequireClockTolerance(t *testing.T) {
	params := DefaultParams()
	if params.ClockToleranceSeconds != DefaultClockToleranceSeconds {
		t.Fatalf("default tolerance %d", params.ClockToleranceSeconds)
	}
	params.ClockToleranceSeconds = 0
	if err := params.Validate(); err == nil {
		t.Fatalf("zero tolerance accepted")
	}
	params.ReplayClock = true
	if err := params.Validate(); err != nil {
		t.Fatalf("replay params: %v", err)
	}
}

func TestLockPeriodOverflowRejected(t *testing.T) {
	f := newFixture(t, 10)
	s := f.newStaker(100)
	acc := f.stakeAccounts(s)
	expectCode(t, f.engine.Stake(acc, 10, f.clock, math.MaxInt64), errors.ErrInvalidAmount)
	expectCode(t, f.engine.Stake(acc, 10, f.clock, math.MaxInt64-f.clock+1), errors.ErrInvalidAmount)
	expectCode(t, f.engine.Stake(acc, 10, f.clock, -1), errors.ErrInvalidAmount)
	if err := f.engine.Stake(acc, 10, f.clock, math.MaxInt64-f.clock); err != nil {
		t.Fatalf("stake with maximal lock: %v", err)
	}
	if end := f.state.users[s.user].LockEnd; end != math.MaxInt64 {
		t.Fatalf("lock end %d", end)
	}

	m := f.newMerchant("kiosk")
	customer := f.newStaker(100)
	expectCode(t, f.engine.StakeToMerchant(m.stakeAccounts(customer), 10, f.clock, math.MaxInt64), errors.ErrInvalidAmount)
	if got := f.balance(customer.source); got != 100 {
		t.Fatalf("customer wallet %d", got)
	}
}

func TestVaultCannotReceiveItsOwnPayout(t *testing.T) {
	f := newFixture(t, 10)
	s := f.newStaker(100_000_000)
	acc := f.stakeAccounts(s)
	if err := f.engine.Stake(acc, 100_000_000, f.clock, 0); err != nil {
		t.Fatalf("stake: %v", err)
	}
	f.fund(1_000_000_000)
	f.clock += 5

	intoVault := acc
	intoVault.Source = f.stakingVault
	expectCode(t, f.engine.Unstake(intoVault, 100_000_000, f.clock), errors.ErrInvalidAccount)
	if user := f.state.users[s.user]; user.BalanceStaked != 100_000_000 {
		t.Fatalf("user balance %d", user.BalanceStaked)
	}
	if f.poolRecord().TotalStaked != 100_000_000 || f.balance(f.stakingVault) != 100_000_000 {
		t.Fatalf("pool books moved without tokens")
	}

	claim := f.claimAccounts(s)
	claim.Destination = f.rewardVault
	_, err := f.engine.Claim(claim, f.clock)
	expectCode(t, err, errors.ErrInvalidAccount)
	paid, err := f.engine.Claim(f.claimAccounts(s), f.clock)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if paid != 500_000_000 || f.balance(s.reward) != paid {
		t.Fatalf("claimed %d, wallet %d", paid, f.balance(s.reward))
	}
}

func TestClosePoolKeepsUnclaimedMerchantReward(t *testing.T) {
	f := newFixture(t, 10)
	admin := PoolAdminAccounts{Pool: f.pool, Authority: f.authority}
	m := f.newMerchant("bakery")
	customer := f.newStaker(50_000_000)
	acc := m.stakeAccounts(customer)
	closeAcc := ClosePoolAccounts{
		Pool:            f.pool,
		Authority:       f.authority,
		StakingVault:    f.stakingVault,
		RewardVault:     f.rewardVault,
		StakingRefundee: f.wallet(f.authority, f.stakingMint, 0),
		RewardRefundee:  f.wallet(f.authority, f.rewardMint, 0),
	}

	if err := f.engine.StakeToMerchant(acc, 50_000_000, f.clock, 0); err != nil {
		t.Fatalf("stake to merchant: %v", err)
	}
	f.fund(1_000_000_000)
	f.clock += 10
	if err := f.engine.UnstakeFromMerchant(acc, 50_000_000, f.clock); err != nil {
		t.Fatalf("unstake from merchant: %v", err)
	}
	pending, err := f.engine.MerchantPendingReward(f.pool, m.merchant, f.clock)
	if err != nil {
		t.Fatalf("merchant pending: %v", err)
	}
	if pending != 1_000_000_000 {
		t.Fatalf("merchant pending %d, want 1e9", pending)
	}

	if err := f.engine.Pause(admin); err != nil {
		t.Fatalf("pause: %v", err)
	}
	expectCode(t, f.engine.ClosePool(closeAcc), errors.ErrPoolNotEmpty)
	if _, ok := f.state.pools[f.pool]; !ok {
		t.Fatalf("pool removed")
	}
	if got := f.balance(f.rewardVault); got != 1_000_000_000 {
		t.Fatalf("reward vault %d after rejected close", got)
	}

	if err := f.engine.Unpause(admin); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	claim := MerchantClaimAccounts{Pool: f.pool, Merchant: m.merchant, Owner: m.owner, RewardVault: f.rewardVault, Destination: m.reward}
	if _, err := f.engine.ClaimMerchantReward(claim, f.clock); err != nil {
		t.Fatalf("claim merchant: %v", err)
	}
	if got := f.balance(m.reward); got != 1_000_000_000 {
		t.Fatalf("merchant received %d", got)
	}
	if err := f.engine.Pause(admin); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := f.engine.ClosePool(closeAcc); err != nil {
		t.Fatalf("close pool: %v", err)
	}
	if _, ok := f.state.merchants[m.merchant]; ok {
		t.Fatalf("merchant record still present")
	}
	if _, ok := f.state.merchantUsers[acc.MerchantUser]; ok {
		t.Fatalf("merchant user record still present")
	}
}
