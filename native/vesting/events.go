package vesting

import (
	"strconv"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/events"
	"stakeledger/core/types"
)

const (
	// EventTypeRegistryCreated is emitted when the investor registry is opened.
	EventTypeRegistryCreated = "vesting.registry.created"
	// EventTypeCreated is emitted when a beneficiary schedule is funded.
	EventTypeCreated = "vesting.created"
	// EventTypeUpfronted is emitted when the upfront portion is paid.
	EventTypeUpfronted = "vesting.upfronted"
	// EventTypeWithdrawn is emitted for linear releases.
	EventTypeWithdrawn = "vesting.withdrawn"
	// EventTypeRevoked is emitted when the owner reclaims the vault.
	EventTypeRevoked = "vesting.revoked"
	EventTypeEnabled  = "vesting.enabled"
	EventTypeDisabled = "vesting.disabled"
	EventTypeRenamed  = "vesting.renamed"
	// EventTypeToppedUp is emitted when the owner adds to a schedule.
	EventTypeToppedUp = "vesting.topped_up"
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

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

// RegistryCreatedEvent announces the investor registry.
func RegistryCreatedEvent(registry, owner solana.PublicKey) *types.Event {
	return &types.Event{
		Type: EventTypeRegistryCreated,
		Attributes: map[string]string{
			"registry": registry.String(),
			"owner":    owner.String(),
		},
	}
}

// CreatedEvent announces a new schedule.
func CreatedEvent(vesting solana.PublicKey, acct *Account) *types.Event {
	return &types.Event{
		Type: EventTypeCreated,
		Attributes: map[string]string{
			"vesting":     vesting.String(),
			"beneficiary": acct.Beneficiary.String(),
			"mint":        acct.Mint.String(),
			"amount":      u64(acct.TotalDepositedAmount),
			"start":       strconv.FormatInt(acct.StartTs, 10),
			"revocable":   strconv.FormatBool(acct.Revocable),
			"name":        acct.Name,
		},
	}
}

// AmountEvent captures a token movement on a schedule.
func AmountEvent(kind string, vesting solana.PublicKey, acct *Account, amount uint64) *types.Event {
	return &types.Event{
		Type: kind,
		Attributes: map[string]string{
			"vesting":     vesting.String(),
			"beneficiary": acct.Beneficiary.String(),
			"amount":      u64(amount),
			"released":    u64(acct.ReleasedAmount),
			"total":       u64(acct.TotalDepositedAmount),
		},
	}
}

// StatusEvent captures owner-side toggles and renames.
func StatusEvent(kind string, vesting solana.PublicKey, acct *Account) *types.Event {
	return &types.Event{
		Type: kind,
		Attributes: map[string]string{
			"vesting":  vesting.String(),
			"approved": strconv.FormatBool(acct.Approved),
			"name":     acct.Name,
		},
	}
}
