// Package errors defines the numbered error codes surfaced by the staking and
// vesting programs. Codes start at 6000 to line up with Anchor custom errors so
// clients can decode them the same way.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ProgramError is a stable, numbered program failure.
type ProgramError struct {
	Code uint32
	Name string
	Msg  string
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Msg)
}

// Is matches on the numeric code so wrapped copies compare equal.
func (e *ProgramError) Is(target error) bool {
	t, ok := target.(*ProgramError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newError(code uint32, name, msg string) *ProgramError {
	err := &ProgramError{Code: code, Name: name, Msg: msg}
	registry[code] = err
	return err
}

var registry = make(map[uint32]*ProgramError)

var (
	ErrUnauthorized        = newError(6000, "Unauthorized", "signer does not match the stored authority")
	ErrPoolPaused          = newError(6001, "PoolPaused", "pool is paused")
	ErrAlreadyInitialized  = newError(6002, "AlreadyInitialized", "account already initialized")
	ErrAccountNotFound     = newError(6003, "AccountNotFound", "account not found")
	ErrInsufficientBalance = newError(6004, "InsufficientBalance", "insufficient balance")
	ErrLockNotExpired      = newError(6005, "LockNotExpired", "lock period has not elapsed")
	ErrAlreadyRevoked      = newError(6006, "AlreadyRevoked", "vesting already revoked")
	ErrNotApproved         = newError(6007, "NotApproved", "vesting account not approved")
	ErrAlreadyClaimed      = newError(6008, "AlreadyClaimed", "tranche already withdrawn")
	ErrInvalidAmount       = newError(6009, "InvalidAmount", "amount must be greater than zero")

	ErrMerchantPaused             = newError(6010, "MerchantPaused", "merchant is paused")
	ErrAlreadyRegistered          = newError(6011, "AlreadyRegistered", "beneficiary already registered")
	ErrAlreadyUpfronted           = newError(6012, "AlreadyUpfronted", "upfront already released")
	ErrNotRevocable               = newError(6013, "NotRevocable", "vesting account is not revocable")
	ErrWithdrawTooSoon            = newError(6014, "WithdrawTooSoon", "withdraw period has not elapsed")
	ErrNothingToRelease           = newError(6015, "NothingToRelease", "no vested tokens to release")
	ErrAlreadyEnabled             = newError(6016, "AlreadyEnabled", "account already enabled")
	ErrAlreadyDisabled            = newError(6017, "AlreadyDisabled", "account already disabled")
	ErrAddTokenNotAllowed         = newError(6018, "AddTokenNotAllowed", "top-up not allowed after release")
	ErrTrancheNotFound            = newError(6019, "TrancheNotFound", "tranche index out of range")
	ErrPoolNotPaused              = newError(6020, "PoolNotPaused", "pool is not paused")
	ErrInvalidAccount             = newError(6021, "InvalidAccount", "account does not match its derived address or owner")
	ErrClockSkew                  = newError(6022, "ClockSkew", "timestamp outside the ledger clock tolerance")
	ErrCapacityExceeded           = newError(6023, "CapacityExceeded", "list capacity exceeded")
	ErrDurationTooShort           = newError(6024, "DurationTooShort", "reward duration too short")
	ErrFunderAlreadyAuthorized    = newError(6025, "FunderAlreadyAuthorized", "funder already authorized")
	ErrFunderNotFound             = newError(6026, "FunderNotFound", "funder not authorized")
	ErrCannotDeauthorizeAuthority = newError(6027, "CannotDeauthorizeAuthority", "pool authority is always a funder")
	ErrMathOverflow               = newError(6028, "MathOverflow", "arithmetic overflow")
	ErrNameTooLong                = newError(6029, "NameTooLong", "name exceeds maximum length")
	ErrMissingSignature           = newError(6030, "MissingSignature", "required signer missing")
	ErrUnknownInstruction         = newError(6031, "UnknownInstruction", "unknown instruction discriminator")
	ErrPoolNotEmpty               = newError(6032, "PoolNotEmpty", "pool still holds stake records")
	ErrNotAllowed                 = newError(6033, "NotAllowed", "operation not allowed on this account")
	ErrNonZeroBalance             = newError(6034, "NonZeroBalance", "account still holds a balance")
	ErrMerchantNotPaused          = newError(6035, "MerchantNotPaused", "merchant is not paused")
)

// CodeOf extracts the program error code from err. Errors that do not wrap a
// ProgramError report code 0.
func CodeOf(err error) uint32 {
	var pe *ProgramError
	if stderrors.As(err, &pe) {
		return pe.Code
	}
	return 0
}

// NameOf returns the symbolic name of err, or "Internal".
func NameOf(err error) string {
	var pe *ProgramError
	if stderrors.As(err, &pe) {
		return pe.Name
	}
	return "Internal"
}

// Lookup resolves a numeric code back to its error.
func Lookup(code uint32) (*ProgramError, bool) {
	err, ok := registry[code]
	return err, ok
}
