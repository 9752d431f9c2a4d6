package state

import (
	stderrors "errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/gagliardetto/solana-go"

	"stakeledger/native/staking"
	"stakeledger/native/vesting"
	"stakeledger/storage"
)

// Programs names the owner recorded on each class of account.
type Programs struct {
	Token   solana.PublicKey
	Staking solana.PublicKey
	Vesting solana.PublicKey
}

// DefaultPrograms returns the deployed program identifiers.
func DefaultPrograms() Programs {
	return Programs{
		Token:   solana.TokenProgramID,
		Staking: staking.DefaultProgramID,
		Vesting: vesting.DefaultProgramID,
	}
}

// Manager reads and writes ledger accounts on top of a key/value store. Every
// account lives under its own hashed key; typed accessors decode the payload
// after checking the owning program and the account discriminator.
type Manager struct {
	db       storage.Database
	programs Programs
}

// NewManager creates a state manager over db.
func NewManager(db storage.Database, programs Programs) *Manager {
	return &Manager{db: db, programs: programs}
}

// Programs returns the program identifiers the manager was built with.
func (m *Manager) Programs() Programs { return m.programs }

var (
	accountPrefix = []byte("acct/")
	kvPrefix      = []byte("kv/")
)

func accountKey(addr solana.PublicKey) []byte {
	hashed := ethcrypto.Keccak256(addr.Bytes())
	key := make([]byte, 0, len(accountPrefix)+len(hashed))
	key = append(key, accountPrefix...)
	return append(key, hashed...)
}

func kvKey(key []byte) []byte {
	hashed := ethcrypto.Keccak256(key)
	out := make([]byte, 0, len(kvPrefix)+len(hashed))
	out = append(out, kvPrefix...)
	return append(out, hashed...)
}

func (m *Manager) get(key []byte) ([]byte, bool, error) {
	if m == nil || m.db == nil {
		return nil, false, fmt.Errorf("state: manager unavailable")
	}
	data, err := m.db.Get(key)
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// KVPut RLP-encodes value and stores it under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(kvKey(key), encoded)
}

// KVGet decodes the value stored under key into out. The boolean reports
// whether the key existed.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, ok, err := m.get(kvKey(key))
	if err != nil || !ok {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}
