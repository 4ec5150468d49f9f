package service

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the inventory and sale core. Callers match them with
// errors.Is; the concrete *Error carries the offending identifier.
var (
	ErrNotFound                = errors.New("not found")
	ErrDuplicateRecord         = errors.New("duplicate record")
	ErrInvalidQuantity         = errors.New("invalid quantity")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrExceedsCentralStock     = errors.New("exceeds central stock")
	ErrInvalidStateTransition  = errors.New("invalid state transition")
	ErrHasDependentSales       = errors.New("has dependent sales")
	ErrArithmeticInconsistency = errors.New("arithmetic inconsistency")
	ErrProductNotFound         = errors.New("product not found")
	ErrNoInventoryForBranch    = errors.New("no inventory for branch")
	ErrValidation              = errors.New("validation failed")
)

// Error is a business-rule violation. Kind is one of the sentinels above.
type Error struct {
	Kind   error
	ID     string
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.ID)
	}
	return e.Detail
}

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

func newError(kind error, id fmt.Stringer, format string, args ...any) *Error {
	var ident string
	if id != nil {
		ident = id.String()
	}
	return &Error{Kind: kind, ID: ident, Detail: fmt.Sprintf(format, args...)}
}

func (e *Error) withCause(err error) *Error {
	e.cause = err
	return e
}

// KindOf returns the sentinel kind carried by err, or nil when err is not a
// business error.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}
