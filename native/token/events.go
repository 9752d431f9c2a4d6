package token

import (
	"github.com/gagliardetto/solana-go"

	"stakeledger/core/events"
	"stakeledger/core/types"
)

const (
	// EventTypeTransfer is emitted for every non-empty token movement.
	EventTypeTransfer = "token.transfer"
	// EventTypeMinted is emitted when new supply is created.
	EventTypeMinted = "token.minted"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

// TransferEvent records a movement between two token accounts.
func TransferEvent(from, to solana.PublicKey, amount uint64) *types.Event {
	return &types.Event{
		Type: EventTypeTransfer,
		Attributes: map[string]string{
			"from":   from.String(),
			"to":     to.String(),
			"amount": formatAmount(amount),
		},
	}
}

// MintedEvent records newly minted supply.
func MintedEvent(mint, dest solana.PublicKey, amount uint64) *types.Event {
	return &types.Event{
		Type: EventTypeMinted,
		Attributes: map[string]string{
			"mint":   mint.String(),
			"to":     dest.String(),
			"amount": formatAmount(amount),
		},
	}
}
