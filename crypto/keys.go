package crypto

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Keypair wraps an ed25519 Solana private key together with its public half.
type Keypair struct {
	private solana.PrivateKey
	public  solana.PublicKey
}

// GenerateKeypair creates a fresh random keypair.
func GenerateKeypair() (*Keypair, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, err
	}
	return &Keypair{private: key, public: key.PublicKey()}, nil
}

// KeypairFromPrivateKey wraps an existing solana private key.
func KeypairFromPrivateKey(key solana.PrivateKey) (*Keypair, error) {
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("crypto: invalid private key: %w", err)
	}
	return &Keypair{private: key, public: key.PublicKey()}, nil
}

// KeypairFromBase58 decodes a base58-encoded 64 byte secret key.
func KeypairFromBase58(secret string) (*Keypair, error) {
	key, err := solana.PrivateKeyFromBase58(secret)
	if err != nil {
		return nil, err
	}
	return KeypairFromPrivateKey(key)
}

// PublicKey returns the public half of the keypair.
func (k *Keypair) PublicKey() solana.PublicKey {
	return k.public
}

// PrivateKey exposes the raw key for transaction signing.
func (k *Keypair) PrivateKey() solana.PrivateKey {
	return k.private
}

// Sign signs payload with the private key.
func (k *Keypair) Sign(payload []byte) (solana.Signature, error) {
	if k == nil || len(k.private) == 0 {
		return solana.Signature{}, errors.New("crypto: nil keypair")
	}
	return k.private.Sign(payload)
}

// Signer returns a lookup usable with solana.Transaction.Sign that resolves
// any of the supplied keypairs.
func Signer(keys ...*Keypair) func(solana.PublicKey) *solana.PrivateKey {
	index := make(map[solana.PublicKey]*solana.PrivateKey, len(keys))
	for _, k := range keys {
		if k == nil {
			continue
		}
		priv := k.private
		index[k.public] = &priv
	}
	return func(pk solana.PublicKey) *solana.PrivateKey {
		return index[pk]
	}
}

// ParsePublicKey decodes a base58 address and rejects the zero key.
func ParsePublicKey(s string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if pk.IsZero() {
		return solana.PublicKey{}, fmt.Errorf("invalid address %q: zero key", s)
	}
	return pk, nil
}
