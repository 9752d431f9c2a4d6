package staking

import (
	"strconv"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/events"
	"stakeledger/core/types"
)

const (
	// EventTypePoolCreated is emitted when a main pool is initialised.
	EventTypePoolCreated = "staking.pool.created"
	// EventTypePoolFunded is emitted when rewards are deposited and the rate reset.
	EventTypePoolFunded = "staking.pool.funded"
	// EventTypePoolPaused is emitted when the authority pauses the pool.
	EventTypePoolPaused = "staking.pool.paused"
	// EventTypePoolUnpaused is emitted when the authority resumes the pool.
	EventTypePoolUnpaused = "staking.pool.unpaused"
	// EventTypePoolClosed is emitted when the pool is swept and removed.
	EventTypePoolClosed = "staking.pool.closed"
	// EventTypeUserCreated is emitted when a stake record is opened.
	EventTypeUserCreated = "staking.user.created"
	// EventTypeUserClosed is emitted when a stake record is closed.
	EventTypeUserClosed = "staking.user.closed"
	// EventTypeStaked is emitted for self stakes in the main pool.
	EventTypeStaked = "staking.staked"
	// EventTypeUnstaked is emitted for self unstakes in the main pool.
	EventTypeUnstaked = "staking.unstaked"
	// EventTypeClaimed is emitted when rewards are paid out to a user.
	EventTypeClaimed = "staking.claimed"
	// EventTypeBehalfStaked is emitted when the authority stakes for a user.
	EventTypeBehalfStaked = "staking.behalf.staked"
	// EventTypeBehalfWithdrawn is emitted when a matured tranche is withdrawn.
	EventTypeBehalfWithdrawn = "staking.behalf.withdrawn"
	// EventTypeFunderAuthorized is emitted when a funder is added.
	EventTypeFunderAuthorized = "staking.funder.authorized"
	// EventTypeFunderDeauthorized is emitted when a funder is removed.
	EventTypeFunderDeauthorized = "staking.funder.deauthorized"
	// EventTypeMerchantCreated is emitted when a merchant pool is opened.
	EventTypeMerchantCreated = "staking.merchant.created"
	// EventTypeMerchantUserCreated is emitted when a merchant stake record is opened.
	EventTypeMerchantUserCreated = "staking.merchant.user_created"
	// EventTypeMerchantStaked is emitted for stakes into a merchant pool.
	EventTypeMerchantStaked = "staking.merchant.staked"
	// EventTypeMerchantUnstaked is emitted for unstakes from a merchant pool.
	EventTypeMerchantUnstaked = "staking.merchant.unstaked"
	// EventTypeMerchantPaused is emitted when a merchant is paused.
	EventTypeMerchantPaused = "staking.merchant.paused"
	// EventTypeMerchantUnpaused is emitted when a merchant is resumed.
	EventTypeMerchantUnpaused = "staking.merchant.unpaused"
	// EventTypeMerchantClaimed is emitted when merchant rewards are paid out.
	EventTypeMerchantClaimed = "staking.merchant.claimed"
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

func i64(v int64) string { return strconv.FormatInt(v, 10) }

// PoolCreatedEvent announces a new pool.
func PoolCreatedEvent(pool solana.PublicKey, p *Pool) *types.Event {
	return &types.Event{
		Type: EventTypePoolCreated,
		Attributes: map[string]string{
			"pool":           pool.String(),
			"authority":      p.Authority.String(),
			"stakingMint":    p.StakingMint.String(),
			"rewardMint":     p.RewardMint.String(),
			"rewardDuration": u64(p.RewardDuration),
		},
	}
}

// PoolFundedEvent captures a funding deposit and the resulting rate.
func PoolFundedEvent(pool, funder solana.PublicKey, amount uint64, p *Pool) *types.Event {
	return &types.Event{
		Type: EventTypePoolFunded,
		Attributes: map[string]string{
			"pool":        pool.String(),
			"funder":      funder.String(),
			"amount":      u64(amount),
			"rewardRate":  u64(p.RewardRate),
			"periodEnd":   i64(p.RewardDurationEnd),
			"lastUpdated": i64(p.LastUpdateTime),
		},
	}
}

// PoolToggleEvent captures pause state changes.
func PoolToggleEvent(kind string, pool, authority solana.PublicKey) *types.Event {
	return &types.Event{
		Type: kind,
		Attributes: map[string]string{
			"pool":      pool.String(),
			"authority": authority.String(),
		},
	}
}

// PoolClosedEvent captures the final sweep of a pool.
func PoolClosedEvent(pool solana.PublicKey, rewardRefund, stakingRefund uint64) *types.Event {
	return &types.Event{
		Type: EventTypePoolClosed,
		Attributes: map[string]string{
			"pool":          pool.String(),
			"rewardRefund":  u64(rewardRefund),
			"stakingRefund": u64(stakingRefund),
		},
	}
}

// RecordEvent captures record lifecycle changes (user or merchant user).
func RecordEvent(kind string, pool, record, owner solana.PublicKey) *types.Event {
	return &types.Event{
		Type: kind,
		Attributes: map[string]string{
			"pool":   pool.String(),
			"record": record.String(),
			"owner":  owner.String(),
		},
	}
}

// StakeEvent captures a balance change on a stake record.
func StakeEvent(kind string, pool, record, owner solana.PublicKey, amount, balance uint64, lockEnd int64) *types.Event {
	return &types.Event{
		Type: kind,
		Attributes: map[string]string{
			"pool":    pool.String(),
			"record":  record.String(),
			"owner":   owner.String(),
			"amount":  u64(amount),
			"balance": u64(balance),
			"lockEnd": i64(lockEnd),
		},
	}
}

// ClaimedEvent captures a reward payout and what is still owed.
func ClaimedEvent(kind string, pool, record, owner solana.PublicKey, paid, pending uint64) *types.Event {
	return &types.Event{
		Type: kind,
		Attributes: map[string]string{
			"pool":    pool.String(),
			"record":  record.String(),
			"owner":   owner.String(),
			"amount":  u64(paid),
			"pending": u64(pending),
		},
	}
}

// TrancheEvent captures admin-directed stake activity.
func TrancheEvent(kind string, pool, user, owner solana.PublicKey, index int, amount uint64, unlockAt int64) *types.Event {
	return &types.Event{
		Type: kind,
		Attributes: map[string]string{
			"pool":     pool.String(),
			"record":   user.String(),
			"owner":    owner.String(),
			"index":    strconv.Itoa(index),
			"amount":   u64(amount),
			"unlockAt": i64(unlockAt),
		},
	}
}

// FunderEvent captures funder list changes.
func FunderEvent(kind string, pool, funder solana.PublicKey) *types.Event {
	return &types.Event{
		Type: kind,
		Attributes: map[string]string{
			"pool":   pool.String(),
			"funder": funder.String(),
		},
	}
}

// MerchantCreatedEvent announces a merchant pool.
func MerchantCreatedEvent(pool, merchant, owner solana.PublicKey, name string) *types.Event {
	return &types.Event{
		Type: EventTypeMerchantCreated,
		Attributes: map[string]string{
			"pool":     pool.String(),
			"merchant": merchant.String(),
			"owner":    owner.String(),
			"name":     name,
		},
	}
}

// MerchantToggleEvent captures merchant pause state changes.
func MerchantToggleEvent(kind string, merchant, signer solana.PublicKey) *types.Event {
	return &types.Event{
		Type: kind,
		Attributes: map[string]string{
			"merchant": merchant.String(),
			"signer":   signer.String(),
		},
	}
}
