package token

import (
	stderrors "errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/errors"
	"stakeledger/core/events"
)

type mockState struct {
	mints    map[solana.PublicKey]*Mint
	accounts map[solana.PublicKey]*Account
}

func newMockState() *mockState {
	return &mockState{
		mints:    make(map[solana.PublicKey]*Mint),
		accounts: make(map[solana.PublicKey]*Account),
	}
}

func (m *mockState) TokenMintGet(addr solana.PublicKey) (*Mint, bool, error) {
	mint, ok := m.mints[addr]
	if !ok {
		return nil, false, nil
	}
	return mint.Clone(), true, nil
}

func (m *mockState) TokenMintPut(addr solana.PublicKey, mint *Mint) error {
	m.mints[addr] = mint.Clone()
	return nil
}

func (m *mockState) TokenAccountGet(addr solana.PublicKey) (*Account, bool, error) {
	acct, ok := m.accounts[addr]
	if !ok {
		return nil, false, nil
	}
	return acct.Clone(), true, nil
}

func (m *mockState) TokenAccountPut(addr solana.PublicKey, account *Account) error {
	m.accounts[addr] = account.Clone()
	return nil
}

func (m *mockState) TokenAccountDelete(addr solana.PublicKey) error {
	delete(m.accounts, addr)
	return nil
}

type captureEmitter struct{ events []events.Event }

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key.PublicKey()
}

func setup(t *testing.T) (*Engine, solana.PublicKey, solana.PublicKey) {
	t.Helper()
	engine := NewEngine()
	engine.SetState(newMockState())
	mint := newKey(t)
	authority := newKey(t)
	if err := engine.InitializeMint(mint, authority, 6); err != nil {
		t.Fatalf("init mint: %v", err)
	}
	return engine, mint, authority
}

func TestMintAndTransfer(t *testing.T) {
	engine, mint, authority := setup(t)
	emitter := &captureEmitter{}
	engine.SetEmitter(emitter)

	alice, bob := newKey(t), newKey(t)
	aliceATA, err := engine.CreateAssociatedAccount(alice, mint)
	if err != nil {
		t.Fatalf("alice ata: %v", err)
	}
	bobATA, err := engine.CreateAssociatedAccount(bob, mint)
	if err != nil {
		t.Fatalf("bob ata: %v", err)
	}
	if err := engine.MintTo(mint, aliceATA, authority, 1_000); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := engine.Transfer(aliceATA, bobATA, alice, 400); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if bal, _ := engine.Balance(aliceATA); bal != 600 {
		t.Fatalf("alice balance %d", bal)
	}
	if bal, _ := engine.Balance(bobATA); bal != 400 {
		t.Fatalf("bob balance %d", bal)
	}
	if len(emitter.events) != 2 {
		t.Fatalf("expected mint+transfer events, got %d", len(emitter.events))
	}
	if emitter.events[1].EventType() != EventTypeTransfer {
		t.Fatalf("unexpected event %s", emitter.events[1].EventType())
	}
}

func TestTransferRejectsWrongAuthorityAndOverdraft(t *testing.T) {
	engine, mint, authority := setup(t)
	alice, bob := newKey(t), newKey(t)
	aliceATA, _ := engine.CreateAssociatedAccount(alice, mint)
	bobATA, _ := engine.CreateAssociatedAccount(bob, mint)
	if err := engine.MintTo(mint, aliceATA, authority, 10); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := engine.Transfer(aliceATA, bobATA, bob, 1); !stderrors.Is(err, errors.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if err := engine.Transfer(aliceATA, bobATA, alice, 11); !stderrors.Is(err, errors.ErrInsufficientBalance) {
		t.Fatalf("expected InsufficientBalance, got %v", err)
	}
	if err := engine.MintTo(mint, aliceATA, alice, 1); !stderrors.Is(err, errors.ErrUnauthorized) {
		t.Fatalf("expected mint authority rejection, got %v", err)
	}
}

func TestTransferRejectsMintMismatch(t *testing.T) {
	engine, mint, authority := setup(t)
	other := newKey(t)
	if err := engine.InitializeMint(other, authority, 9); err != nil {
		t.Fatalf("init other mint: %v", err)
	}
	owner := newKey(t)
	a, _ := engine.CreateAssociatedAccount(owner, mint)
	b, _ := engine.CreateAssociatedAccount(owner, other)
	_ = engine.MintTo(mint, a, authority, 5)
	if err := engine.Transfer(a, b, owner, 1); !stderrors.Is(err, errors.ErrInvalidAccount) {
		t.Fatalf("expected InvalidAccount, got %v", err)
	}
}

func TestTransferRejectsSelf(t *testing.T) {
	engine, mint, authority := setup(t)
	owner := newKey(t)
	ata, _ := engine.CreateAssociatedAccount(owner, mint)
	if err := engine.MintTo(mint, ata, authority, 5); err != nil {
		t.Fatalf("mint: %v", err)
	}
	for _, amount := range []uint64{0, 5} {
		if err := engine.Transfer(ata, ata, owner, amount); !stderrors.Is(err, errors.ErrInvalidAccount) {
			t.Fatalf("self transfer of %d: expected InvalidAccount, got %v", amount, err)
		}
	}
	if bal, _ := engine.Balance(ata); bal != 5 {
		t.Fatalf("balance %d", bal)
	}
}

func TestCloseAccountRequiresZeroBalance(t *testing.T) {
	engine, mint, authority := setup(t)
	owner := newKey(t)
	ata, _ := engine.CreateAssociatedAccount(owner, mint)
	_ = engine.MintTo(mint, ata, authority, 1)
	if err := engine.CloseAccount(ata, owner); !stderrors.Is(err, errors.ErrNonZeroBalance) {
		t.Fatalf("expected NonZeroBalance, got %v", err)
	}
	sink := newKey(t)
	sinkATA, _ := engine.CreateAssociatedAccount(sink, mint)
	_ = engine.Transfer(ata, sinkATA, owner, 1)
	if err := engine.CloseAccount(ata, owner); err != nil {
		t.Fatalf("close: %v", err)
	}
	if ok, _ := engine.Exists(ata); ok {
		t.Fatalf("account still present")
	}
}

func TestDuplicateInitialisation(t *testing.T) {
	engine, mint, authority := setup(t)
	if err := engine.InitializeMint(mint, authority, 6); !stderrors.Is(err, errors.ErrAlreadyInitialized) {
		t.Fatalf("expected AlreadyInitialized, got %v", err)
	}
	owner := newKey(t)
	first, err := engine.CreateAssociatedAccount(owner, mint)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := engine.CreateAssociatedAccount(owner, mint)
	if err != nil || !first.Equals(second) {
		t.Fatalf("associated account creation should be idempotent: %v", err)
	}
	if err := engine.InitializeAccount(first, mint, owner); !stderrors.Is(err, errors.ErrAlreadyInitialized) {
		t.Fatalf("expected AlreadyInitialized, got %v", err)
	}
}
