package types

import (
	"crypto/sha256"

	"github.com/gagliardetto/solana-go"
)

// DiscriminatorSize is the length of the type tag that prefixes every
// program-owned account payload and every instruction payload.
const DiscriminatorSize = 8

// Discriminator is the 8 byte type tag in front of encoded payloads.
type Discriminator [DiscriminatorSize]byte

// AccountDiscriminator returns sha256("account:<name>")[:8].
func AccountDiscriminator(name string) Discriminator {
	return hashTag("account:" + name)
}

// InstructionDiscriminator returns sha256("global:<name>")[:8] where name is
// the snake_case instruction name.
func InstructionDiscriminator(name string) Discriminator {
	return hashTag("global:" + name)
}

func hashTag(preimage string) Discriminator {
	sum := sha256.Sum256([]byte(preimage))
	var d Discriminator
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// Account is the persisted envelope for every ledger account. Owner is the
// program allowed to mutate Data.
type Account struct {
	Owner solana.PublicKey
	Data  []byte
}
