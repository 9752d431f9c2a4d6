package vesting

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"stakeledger/core/errors"
)

// RegistryAccounts identifies the investor registry and its owner.
type RegistryAccounts struct {
	Registry solana.PublicKey
	Owner    solana.PublicKey
}

// InitializeVesting opens the investor registry with the signer as owner.
func (e *Engine) InitializeVesting(acc RegistryAccounts) error {
	if err := e.ready(); err != nil {
		return err
	}
	want, _, err := e.addrs.Registry()
	if err != nil {
		return err
	}
	if err := expectAddress("registry", acc.Registry, want); err != nil {
		return err
	}
	if _, ok, err := e.state.VestingRegistryGet(acc.Registry); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("registry %s: %w", acc.Registry, errors.ErrAlreadyInitialized)
	}
	if err := e.state.VestingRegistryPut(acc.Registry, &Registry{Owner: acc.Owner}); err != nil {
		return err
	}
	e.emit(RegistryCreatedEvent(acc.Registry, acc.Owner))
	return nil
}

// InitializeAccounts lists the accounts touched by Initialize. Source is the
// owner's token account for Mint.
type InitializeAccounts struct {
	Registry         solana.PublicKey
	Owner            solana.PublicKey
	Beneficiary      solana.PublicKey
	Mint             solana.PublicKey
	BeneficiaryToken solana.PublicKey
	Vesting          solana.PublicKey
	Vault            solana.PublicKey
	Source           solana.PublicKey
}

// Initialize enrolls a beneficiary and escrows amount in a fresh vault.
// The cliff coincides with startTs.
func (e *Engine) Initialize(acc InitializeAccounts, amount uint64, name string, startTs int64, revocable bool) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == 0 {
		return errors.ErrInvalidAmount
	}
	if len(name) > e.params.MaxNameLength {
		return fmt.Errorf("name is %d bytes: %w", len(name), errors.ErrNameTooLong)
	}
	registry, err := e.loadRegistry(acc.Registry, acc.Owner)
	if err != nil {
		return err
	}
	if registry.Contains(acc.Beneficiary) {
		return fmt.Errorf("beneficiary %s: %w", acc.Beneficiary, errors.ErrAlreadyRegistered)
	}
	if len(registry.Investors) >= e.params.MaxInvestors {
		return fmt.Errorf("registry holds %d investors: %w", len(registry.Investors), errors.ErrCapacityExceeded)
	}
	sched, err := e.addrs.Schedule(acc.Beneficiary, acc.Mint)
	if err != nil {
		return err
	}
	if err := expectAddress("beneficiary token", acc.BeneficiaryToken, sched.BeneficiaryToken); err != nil {
		return err
	}
	if err := expectAddress("vesting", acc.Vesting, sched.Vesting); err != nil {
		return err
	}
	if err := expectAddress("vault", acc.Vault, sched.Vault); err != nil {
		return err
	}
	if _, ok, err := e.state.VestingAccountGet(acc.Vesting); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("vesting %s: %w", acc.Vesting, errors.ErrAlreadyInitialized)
	}
	authority, err := e.vaultAuthority()
	if err != nil {
		return err
	}
	if err := e.tokens.InitializeAccount(sched.Vault, acc.Mint, authority); err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	if err := e.tokens.Transfer(acc.Source, sched.Vault, acc.Owner, amount); err != nil {
		return err
	}

	acct := &Account{
		Beneficiary:          acc.Beneficiary,
		Owner:                acc.Owner,
		Mint:                 acc.Mint,
		Vault:                sched.Vault,
		Nonce:                sched.VestingBump,
		TotalDepositedAmount: amount,
		StartTs:              startTs,
		WithdrawTs:           startTs,
		CliffTs:              startTs,
		Duration:             e.params.DurationSeconds,
		Revocable:            revocable,
		Approved:             true,
		Name:                 name,
	}
	registry.Investors = append(registry.Investors, acc.Beneficiary)
	if err := e.state.VestingAccountPut(acc.Vesting, acct); err != nil {
		return err
	}
	if err := e.state.VestingRegistryPut(acc.Registry, registry); err != nil {
		return err
	}
	e.emit(CreatedEvent(acc.Vesting, acct))
	return nil
}

// ReleaseAccounts lists the accounts touched by Upfront and Withdraw. The
// beneficiary signs and Destination must be its associated token account.
type ReleaseAccounts struct {
	Vesting     solana.PublicKey
	Beneficiary solana.PublicKey
	Vault       solana.PublicKey
	Destination solana.PublicKey
}

func (e *Engine) loadRelease(acc ReleaseAccounts, now int64) (*Account, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.checkClock(now); err != nil {
		return nil, err
	}
	acct, err := e.loadAccount(acc.Vesting)
	if err != nil {
		return nil, err
	}
	if !acct.Beneficiary.Equals(acc.Beneficiary) {
		return nil, fmt.Errorf("vesting %s: %w", acc.Vesting, errors.ErrUnauthorized)
	}
	if err := expectAddress("vault", acc.Vault, acct.Vault); err != nil {
		return nil, err
	}
	sched, err := e.addrs.Schedule(acct.Beneficiary, acct.Mint)
	if err != nil {
		return nil, err
	}
	if err := expectAddress("destination", acc.Destination, sched.BeneficiaryToken); err != nil {
		return nil, err
	}
	if err := requireActive(acct); err != nil {
		return nil, err
	}
	return acct, nil
}

func (e *Engine) release(acct *Account, dest solana.PublicKey, amount uint64) error {
	authority, err := e.vaultAuthority()
	if err != nil {
		return err
	}
	return e.tokens.Transfer(acct.Vault, dest, authority, amount)
}

// Upfront pays the one-off upfront portion. It can succeed once per schedule.
func (e *Engine) Upfront(acc ReleaseAccounts, now int64) (uint64, error) {
	acct, err := e.loadRelease(acc, now)
	if err != nil {
		return 0, err
	}
	if acct.Upfronted {
		return 0, errors.ErrAlreadyUpfronted
	}
	if now < acct.StartTs {
		return 0, fmt.Errorf("vesting starts at %d: %w", acct.StartTs, errors.ErrLockNotExpired)
	}
	amount, err := UpfrontPortion(acct.TotalDepositedAmount, e.params.UpfrontBps)
	if err != nil {
		return 0, err
	}
	if locked := acct.Locked(); amount > locked {
		amount = locked
	}
	if err := e.release(acct, acc.Destination, amount); err != nil {
		return 0, err
	}
	acct.ReleasedAmount += amount
	acct.UpfrontReleased = amount
	acct.Upfronted = true
	acct.WithdrawTs = now
	acct.ClaimedCount++
	if err := e.state.VestingAccountPut(acc.Vesting, acct); err != nil {
		return 0, err
	}
	e.emit(AmountEvent(EventTypeUpfronted, acc.Vesting, acct, amount))
	return amount, nil
}

// Withdraw releases the linear share vested since the last release.
func (e *Engine) Withdraw(acc ReleaseAccounts, now int64) (uint64, error) {
	acct, err := e.loadRelease(acc, now)
	if err != nil {
		return 0, err
	}
	if next := acct.WithdrawTs + e.params.WithdrawPeriodSeconds; now < next {
		return 0, fmt.Errorf("next withdraw at %d: %w", next, errors.ErrWithdrawTooSoon)
	}
	delta, err := Releasable(acct, e.params.UpfrontBps, now)
	if err != nil {
		return 0, err
	}
	if delta == 0 {
		return 0, errors.ErrNothingToRelease
	}
	if err := e.release(acct, acc.Destination, delta); err != nil {
		return 0, err
	}
	acct.ReleasedAmount += delta
	acct.WithdrawTs = now
	acct.ClaimedCount++
	if err := e.state.VestingAccountPut(acc.Vesting, acct); err != nil {
		return 0, err
	}
	e.emit(AmountEvent(EventTypeWithdrawn, acc.Vesting, acct, delta))
	return delta, nil
}

// RevokeAccounts lists the accounts touched by Revoke.
type RevokeAccounts struct {
	Vesting  solana.PublicKey
	Owner    solana.PublicKey
	Vault    solana.PublicKey
	Refundee solana.PublicKey
}

// Revoke returns the whole vault to the owner and freezes the schedule.
func (e *Engine) Revoke(acc RevokeAccounts) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	acct, err := e.loadOwned(acc.Vesting, acc.Owner)
	if err != nil {
		return 0, err
	}
	if !acct.Revocable {
		return 0, errors.ErrNotRevocable
	}
	if acct.Revoked {
		return 0, errors.ErrAlreadyRevoked
	}
	if err := expectAddress("vault", acc.Vault, acct.Vault); err != nil {
		return 0, err
	}
	refund, err := e.tokens.Balance(acct.Vault)
	if err != nil {
		return 0, err
	}
	if refund > 0 {
		if err := e.release(acct, acc.Refundee, refund); err != nil {
			return 0, err
		}
	}
	if refund > acct.TotalDepositedAmount {
		acct.TotalDepositedAmount = 0
	} else {
		acct.TotalDepositedAmount -= refund
	}
	acct.Revoked = true
	acct.Approved = false
	if err := e.state.VestingAccountPut(acc.Vesting, acct); err != nil {
		return 0, err
	}
	e.emit(AmountEvent(EventTypeRevoked, acc.Vesting, acct, refund))
	return refund, nil
}

// OwnerAccounts identifies a schedule and its administering owner.
type OwnerAccounts struct {
	Vesting solana.PublicKey
	Owner   solana.PublicKey
}

func (e *Engine) loadForUpdate(acc OwnerAccounts) (*Account, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	acct, err := e.loadOwned(acc.Vesting, acc.Owner)
	if err != nil {
		return nil, err
	}
	if acct.Revoked {
		return nil, errors.ErrAlreadyRevoked
	}
	return acct, nil
}

// EnableAccount re-approves a disabled schedule.
func (e *Engine) EnableAccount(acc OwnerAccounts) error {
	return e.setApproved(acc, true)
}

// DisableAccount suspends releases without touching the vault.
func (e *Engine) DisableAccount(acc OwnerAccounts) error {
	return e.setApproved(acc, false)
}

func (e *Engine) setApproved(acc OwnerAccounts, approved bool) error {
	acct, err := e.loadForUpdate(acc)
	if err != nil {
		return err
	}
	if acct.Approved == approved {
		if approved {
			return errors.ErrAlreadyEnabled
		}
		return errors.ErrAlreadyDisabled
	}
	acct.Approved = approved
	if err := e.state.VestingAccountPut(acc.Vesting, acct); err != nil {
		return err
	}
	kind := EventTypeDisabled
	if approved {
		kind = EventTypeEnabled
	}
	e.emit(StatusEvent(kind, acc.Vesting, acct))
	return nil
}

// RenameAccount updates the display name of a schedule.
func (e *Engine) RenameAccount(acc OwnerAccounts, name string) error {
	if len(name) > e.params.MaxNameLength {
		return fmt.Errorf("name is %d bytes: %w", len(name), errors.ErrNameTooLong)
	}
	acct, err := e.loadForUpdate(acc)
	if err != nil {
		return err
	}
	acct.Name = name
	if err := e.state.VestingAccountPut(acc.Vesting, acct); err != nil {
		return err
	}
	e.emit(StatusEvent(EventTypeRenamed, acc.Vesting, acct))
	return nil
}

// TopUpAccounts lists the accounts touched by AddTokenToVesting.
type TopUpAccounts struct {
	Vesting solana.PublicKey
	Owner   solana.PublicKey
	Vault   solana.PublicKey
	Source  solana.PublicKey
}

// AddTokenToVesting increases the deposit before any release happened.
func (e *Engine) AddTokenToVesting(acc TopUpAccounts, amount uint64) error {
	if amount == 0 {
		return errors.ErrInvalidAmount
	}
	acct, err := e.loadForUpdate(OwnerAccounts{Vesting: acc.Vesting, Owner: acc.Owner})
	if err != nil {
		return err
	}
	if acct.ClaimedCount > 0 {
		return errors.ErrAddTokenNotAllowed
	}
	if err := expectAddress("vault", acc.Vault, acct.Vault); err != nil {
		return err
	}
	if acct.TotalDepositedAmount+amount < acct.TotalDepositedAmount {
		return errors.ErrMathOverflow
	}
	if err := e.tokens.Transfer(acc.Source, acct.Vault, acc.Owner, amount); err != nil {
		return err
	}
	acct.TotalDepositedAmount += amount
	if err := e.state.VestingAccountPut(acc.Vesting, acct); err != nil {
		return err
	}
	e.emit(AmountEvent(EventTypeToppedUp, acc.Vesting, acct, amount))
	return nil
}
