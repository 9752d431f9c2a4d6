package types

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// EncodeInstruction renders the discriminator of name followed by the borsh
// encoding of args. A nil args produces a bare discriminator.
func EncodeInstruction(name string, args interface{}) ([]byte, error) {
	disc := InstructionDiscriminator(name)
	out := append([]byte(nil), disc[:]...)
	if args == nil {
		return out, nil
	}
	body, err := bin.MarshalBorsh(args)
	if err != nil {
		return nil, fmt.Errorf("encode %s args: %w", name, err)
	}
	return append(out, body...), nil
}

// SplitInstruction separates the discriminator from the argument payload.
func SplitInstruction(data []byte) (Discriminator, []byte, error) {
	var disc Discriminator
	if len(data) < DiscriminatorSize {
		return disc, nil, fmt.Errorf("instruction data holds %d bytes", len(data))
	}
	copy(disc[:], data[:DiscriminatorSize])
	return disc, data[DiscriminatorSize:], nil
}

// DecodeArgs borsh-decodes payload into out and rejects trailing bytes.
func DecodeArgs(payload []byte, out interface{}) error {
	dec := bin.NewBorshDecoder(payload)
	if err := dec.Decode(out); err != nil {
		return err
	}
	if dec.HasRemaining() {
		return fmt.Errorf("%d trailing bytes", dec.Remaining())
	}
	return nil
}

// InstructionSet maps discriminators back to instruction names.
type InstructionSet map[Discriminator]string

// NewInstructionSet indexes names by discriminator.
func NewInstructionSet(names ...string) InstructionSet {
	set := make(InstructionSet, len(names))
	for _, name := range names {
		set[InstructionDiscriminator(name)] = name
	}
	return set
}

// Lookup resolves the name of the instruction encoded in data.
func (s InstructionSet) Lookup(data []byte) (string, []byte, bool) {
	disc, payload, err := SplitInstruction(data)
	if err != nil {
		return "", nil, false
	}
	name, ok := s[disc]
	return name, payload, ok
}
