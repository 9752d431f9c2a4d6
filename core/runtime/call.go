package runtime

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/errors"
	"stakeledger/core/types"
)

// call is one decoded instruction: its name, account metas and borsh args.
type call struct {
	name    string
	metas   []*solana.AccountMeta
	payload []byte
	signers map[solana.PublicKey]struct{}
}

// accounts returns the first n account keys, rejecting short meta lists.
func (c *call) accounts(n int) ([]solana.PublicKey, error) {
	if len(c.metas) < n {
		return nil, fmt.Errorf("%s expects %d accounts, got %d: %w", c.name, n, len(c.metas), errors.ErrInvalidAccount)
	}
	keys := make([]solana.PublicKey, n)
	for i := 0; i < n; i++ {
		if c.metas[i] == nil {
			return nil, fmt.Errorf("%s account %d missing: %w", c.name, i, errors.ErrInvalidAccount)
		}
		keys[i] = c.metas[i].PublicKey
	}
	return keys, nil
}

// signed checks that every listed account position carries a verified
// signature.
func (c *call) signed(positions ...int) error {
	for _, i := range positions {
		meta := c.metas[i]
		if !meta.IsSigner {
			return fmt.Errorf("%s account %d (%s) not marked signer: %w", c.name, i, meta.PublicKey, errors.ErrMissingSignature)
		}
		if _, ok := c.signers[meta.PublicKey]; !ok {
			return fmt.Errorf("%s signer %s: %w", c.name, meta.PublicKey, errors.ErrMissingSignature)
		}
	}
	return nil
}

// load fetches n accounts and verifies the signer positions.
func (c *call) load(n int, signers ...int) ([]solana.PublicKey, error) {
	keys, err := c.accounts(n)
	if err != nil {
		return nil, err
	}
	if err := c.signed(signers...); err != nil {
		return nil, err
	}
	return keys, nil
}

// args decodes the borsh payload. Instructions without args must carry an
// empty payload.
func (c *call) args(out interface{}) error {
	if out == nil {
		if len(c.payload) != 0 {
			return fmt.Errorf("%s takes no arguments, got %d bytes", c.name, len(c.payload))
		}
		return nil
	}
	if err := types.DecodeArgs(c.payload, out); err != nil {
		return fmt.Errorf("%s args: %w", c.name, err)
	}
	return nil
}
