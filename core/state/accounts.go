package state

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"stakeledger/core/errors"
	"stakeledger/core/types"
)

// storedAccount is the RLP envelope persisted for every account. Address is
// kept so that prefix scans can recover the key preimage.
type storedAccount struct {
	Address []byte
	Owner   []byte
	Data    []byte
}

// Entry pairs an address with its account.
type Entry struct {
	Address solana.PublicKey
	Account *types.Account
}

// Account returns the raw account at addr.
func (m *Manager) Account(addr solana.PublicKey) (*types.Account, bool, error) {
	data, ok, err := m.get(accountKey(addr))
	if err != nil || !ok {
		return nil, false, err
	}
	stored := new(storedAccount)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false, fmt.Errorf("state: decode account %s: %w", addr, err)
	}
	return &types.Account{
		Owner: solana.PublicKeyFromBytes(stored.Owner),
		Data:  stored.Data,
	}, true, nil
}

// PutAccount stores acct at addr.
func (m *Manager) PutAccount(addr solana.PublicKey, acct *types.Account) error {
	if acct == nil {
		return fmt.Errorf("state: nil account for %s", addr)
	}
	encoded, err := rlp.EncodeToBytes(&storedAccount{
		Address: addr.Bytes(),
		Owner:   acct.Owner.Bytes(),
		Data:    acct.Data,
	})
	if err != nil {
		return err
	}
	return m.db.Put(accountKey(addr), encoded)
}

// DeleteAccount removes the account at addr. Missing accounts are ignored.
func (m *Manager) DeleteAccount(addr solana.PublicKey) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: manager unavailable")
	}
	return m.db.Delete(accountKey(addr))
}

// Accounts lists every account owned by owner, in key order.
func (m *Manager) Accounts(owner solana.PublicKey) ([]Entry, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("state: manager unavailable")
	}
	var (
		out     []Entry
		decoded error
	)
	err := m.db.Iterate(accountPrefix, func(_, value []byte) bool {
		stored := new(storedAccount)
		if err := rlp.DecodeBytes(value, stored); err != nil {
			decoded = err
			return false
		}
		if !bytes.Equal(stored.Owner, owner.Bytes()) {
			return true
		}
		out = append(out, Entry{
			Address: solana.PublicKeyFromBytes(stored.Address),
			Account: &types.Account{Owner: owner, Data: stored.Data},
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	if decoded != nil {
		return nil, fmt.Errorf("state: decode account: %w", decoded)
	}
	return out, nil
}

// AccountsOfKind lists the accounts of owner whose payload carries disc.
func (m *Manager) AccountsOfKind(owner solana.PublicKey, disc types.Discriminator) ([]Entry, error) {
	all, err := m.Accounts(owner)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, entry := range all {
		if bytes.HasPrefix(entry.Account.Data, disc[:]) {
			out = append(out, entry)
		}
	}
	return out, nil
}

func encodePayload(disc types.Discriminator, v interface{}) ([]byte, error) {
	body, err := bin.MarshalBorsh(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, types.DiscriminatorSize+len(body))
	out = append(out, disc[:]...)
	return append(out, body...), nil
}

// DecodePayload checks owner and discriminator, then borsh-decodes the body
// of acct into out.
func DecodePayload(acct *types.Account, owner solana.PublicKey, disc types.Discriminator, out interface{}) error {
	if !acct.Owner.Equals(owner) {
		return fmt.Errorf("account owned by %s, want %s: %w", acct.Owner, owner, errors.ErrInvalidAccount)
	}
	if len(acct.Data) < types.DiscriminatorSize || !bytes.Equal(acct.Data[:types.DiscriminatorSize], disc[:]) {
		return fmt.Errorf("account discriminator mismatch: %w", errors.ErrInvalidAccount)
	}
	return bin.UnmarshalBorsh(out, acct.Data[types.DiscriminatorSize:])
}

func getTyped[T any](m *Manager, addr, owner solana.PublicKey, disc types.Discriminator) (*T, bool, error) {
	acct, ok, err := m.Account(addr)
	if err != nil || !ok {
		return nil, false, err
	}
	out := new(T)
	if err := DecodePayload(acct, owner, disc, out); err != nil {
		return nil, false, fmt.Errorf("account %s: %w", addr, err)
	}
	return out, true, nil
}

func putTyped(m *Manager, addr, owner solana.PublicKey, disc types.Discriminator, v interface{}) error {
	data, err := encodePayload(disc, v)
	if err != nil {
		return fmt.Errorf("state: encode account %s: %w", addr, err)
	}
	return m.PutAccount(addr, &types.Account{Owner: owner, Data: data})
}
