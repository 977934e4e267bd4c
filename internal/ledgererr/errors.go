// Package ledgererr defines the structured error codes returned by the ledger.
// Every rejected instruction surfaces exactly one of these codes; callers match
// them with errors.Is against the exported sentinels.
package ledgererr

import (
	"errors"
	"fmt"
)

// Kind groups error codes by the stage that produced them.
type Kind uint8

const (
	KindValidation Kind = iota + 1
	KindBusinessRule
	KindArithmetic
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindBusinessRule:
		return "business_rule"
	case KindArithmetic:
		return "arithmetic"
	default:
		return "unknown"
	}
}

// Error is a ledger error code. Values are compared by identity, so wrapping
// with fmt.Errorf("...: %w", ErrX) keeps errors.Is working.
type Error struct {
	Code uint32
	Name string
	Kind Kind
}

func (e *Error) Error() string {
	return e.Name
}

func newError(code uint32, name string, kind Kind) *Error {
	e := &Error{Code: code, Name: name, Kind: kind}
	registry[code] = e
	return e
}

var registry = map[uint32]*Error{}

// Validation errors: malformed accounts, signers, payloads or state.
var (
	ErrInvalidInstruction       = newError(6000, "InvalidInstruction", KindValidation)
	ErrInvalidInstructionData   = newError(6001, "InvalidInstructionData", KindValidation)
	ErrNotEnoughAccountKeys     = newError(6002, "NotEnoughAccountKeys", KindValidation)
	ErrMissingRequiredSignature = newError(6003, "MissingRequiredSignature", KindValidation)
	ErrAccountNotWritable       = newError(6004, "AccountNotWritable", KindValidation)
	ErrInvalidAccountOwner      = newError(6005, "InvalidAccountOwner", KindValidation)
	ErrInvalidAccountData       = newError(6006, "InvalidAccountData", KindValidation)
	ErrInvalidSeeds             = newError(6007, "InvalidSeeds", KindValidation)
	ErrAccountMismatch          = newError(6008, "AccountMismatch", KindValidation)
	ErrIncorrectProgramID       = newError(6009, "IncorrectProgramId", KindValidation)
	ErrUninitialized            = newError(6010, "Uninitialized", KindValidation)
	ErrAlreadyInitialized       = newError(6011, "AlreadyInitialized", KindValidation)
	ErrInvalidFeeRate           = newError(6012, "InvalidFeeRate", KindValidation)
	ErrIdenticalMints           = newError(6013, "IdenticalMints", KindValidation)
	ErrZeroAmount               = newError(6014, "ZeroAmount", KindValidation)
	ErrInvalidDuration          = newError(6015, "InvalidDuration", KindValidation)
	ErrInvalidTarget            = newError(6016, "InvalidTarget", KindValidation)
	ErrInvalidTokenAmount       = newError(6017, "InvalidTokenAmount", KindValidation)
	ErrInvalidInput             = newError(6018, "InvalidInput", KindValidation)
	ErrUnauthorized             = newError(6019, "Unauthorized", KindValidation)
	ErrNotLauncher              = newError(6020, "NotLauncher", KindValidation)
	ErrMintMismatch             = newError(6021, "MintMismatch", KindValidation)
	ErrOwnerMismatch            = newError(6022, "OwnerMismatch", KindValidation)
	ErrDuplicateTransaction     = newError(6023, "DuplicateTransaction", KindValidation)
)

// Business-rule errors.
var (
	ErrBelowMinLiquidity           = newError(6100, "BelowMinLiquidity", KindBusinessRule)
	ErrInsufficientLpSupply        = newError(6101, "InsufficientLpSupply", KindBusinessRule)
	ErrWouldDrainPool              = newError(6102, "WouldDrainPool", KindBusinessRule)
	ErrSlippageExceeded            = newError(6103, "SlippageExceeded", KindBusinessRule)
	ErrInvariantViolation          = newError(6104, "InvariantViolation", KindBusinessRule)
	ErrInsufficientFee             = newError(6105, "InsufficientFee", KindBusinessRule)
	ErrLaunchExpired               = newError(6106, "LaunchExpired", KindBusinessRule)
	ErrLaunchFinalized             = newError(6107, "LaunchFinalized", KindBusinessRule)
	ErrAlreadyFinalized            = newError(6108, "AlreadyFinalized", KindBusinessRule)
	ErrTargetNotMet                = newError(6109, "TargetNotMet", KindBusinessRule)
	ErrTargetExceeded              = newError(6110, "TargetExceeded", KindBusinessRule)
	ErrNotFinalizedOrExpired       = newError(6111, "NotFinalizedOrExpired", KindBusinessRule)
	ErrAlreadyClosed               = newError(6112, "AlreadyClosed", KindBusinessRule)
	ErrAlreadySettled              = newError(6113, "AlreadySettled", KindBusinessRule)
	ErrInsufficientFunds           = newError(6114, "InsufficientFunds", KindBusinessRule)
	ErrZeroOutput                  = newError(6115, "ZeroOutput", KindBusinessRule)
	ErrInsufficientLiquidityMinted = newError(6116, "InsufficientLiquidityMinted", KindBusinessRule)
	ErrReserveMismatch             = newError(6117, "ReserveMismatch", KindBusinessRule)
)

// Arithmetic errors.
var (
	ErrArithmeticOverflow = newError(6200, "ArithmeticOverflow", KindArithmetic)
	ErrInvalidReserves    = newError(6201, "InvalidReserves", KindArithmetic)
)

// From extracts the ledger error carried by err, if any.
func From(err error) (*Error, bool) {
	var le *Error
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// Lookup returns the error registered under code.
func Lookup(code uint32) (*Error, bool) {
	e, ok := registry[code]
	return e, ok
}

// Wrap attaches detail to a ledger error without losing its identity.
func Wrap(e *Error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", e, fmt.Sprintf(format, args...))
}
