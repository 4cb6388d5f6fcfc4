package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// Trigger engine errors

var (
	// ErrTriggerNotActive indicates the trigger left ACTIVE between the
	// evaluator's decision and the executor's re-check
	ErrTriggerNotActive = errors.New("trigger is not active")

	// ErrInvalidCondition indicates a malformed smart-condition payload
	ErrInvalidCondition = errors.New("invalid smart condition")

	// ErrPriceUnavailable indicates the oracle could not serve a value this cycle
	ErrPriceUnavailable = errors.New("price unavailable")
)

// Settlement errors

var (
	// ErrBotNotAuthorized indicates the fund owner has not authorized the bot
	ErrBotNotAuthorized = errors.New("bot not authorized by user")

	// ErrInsufficientBalance indicates the ledger balance is below the trigger amount
	ErrInsufficientBalance = errors.New("insufficient ledger balance")

	// ErrSlippageExceeded indicates realized output fell below the slippage bound
	ErrSlippageExceeded = errors.New("slippage tolerance exceeded")

	// ErrNonceConflict indicates an ordering conflict on the bot signing identity
	ErrNonceConflict = errors.New("transaction nonce conflict")

	// ErrSwapReverted indicates the ledger rejected the swap for a non-transient cause
	ErrSwapReverted = errors.New("swap reverted by ledger")

	// ErrUnknownToken indicates a trigger references a token absent from the
	// ledger registry; retrying cannot resolve it
	ErrUnknownToken = errors.New("token not in ledger registry")
)

// IsRetryable reports whether a settlement failure should leave the trigger
// ACTIVE for the next cycle rather than transition it to FAILED.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case Is(err, ErrInsufficientBalance),
		Is(err, ErrSlippageExceeded),
		Is(err, ErrNonceConflict),
		Is(err, ErrPriceUnavailable),
		Is(err, ErrTimeout),
		Is(err, ErrUnavailable):
		return true
	}
	return false
}

// IsTerminal reports whether a settlement failure must transition the
// trigger to FAILED.
func IsTerminal(err error) bool {
	return Is(err, ErrBotNotAuthorized) || Is(err, ErrSwapReverted) || Is(err, ErrUnknownToken)
}

// DomainError wraps an error with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
