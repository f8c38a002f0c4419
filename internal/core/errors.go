package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies ledger failures so adapters can render them differently.
type ErrorKind string

const (
	KindValidation           ErrorKind = "VALIDATION"
	KindNotFound             ErrorKind = "NOT_FOUND"
	KindInsufficientQuantity ErrorKind = "INSUFFICIENT_QUANTITY"
	KindConflict             ErrorKind = "CONFLICT"
	KindUnexpected           ErrorKind = "UNEXPECTED"
)

// User-presentable error messages.
const (
	ErrMsgQuantityPositive     = "quantity must be a positive integer"
	ErrMsgTenantRequired       = "tenant id is required"
	ErrMsgWorkOrderRequired    = "work order id is required"
	ErrMsgStockSourceRequired  = "stock source id is required"
	ErrMsgLineItemRequired     = "line item id is required"
	ErrMsgUnitCostNegative     = "unit cost cannot be negative"
	ErrMsgWorkOrderNotFound    = "work order not found"
	ErrMsgStockSourceNotFound  = "stock source not found"
	ErrMsgLineItemNotFound     = "line item not found"
	ErrMsgNoReservation        = "no matching reservation found"
	ErrMsgNoIssue              = "no matching issued line item found"
	ErrMsgInsufficientOnHand   = "insufficient on-hand quantity"
	ErrMsgInsufficientReserved = "insufficient reserved quantity"
	ErrMsgInsufficientIssued   = "insufficient issued quantity"
	ErrMsgConcurrentWrite      = "concurrent modification, please retry"
	ErrMsgUnitCostNotAllowed   = "unit cost applies only to reserve and issue"
	ErrMsgUnitCostScale        = "unit cost cannot have more than 4 decimal places"
	ErrMsgUnitCostTooLarge     = "unit cost exceeds the supported range"
	ErrMsgCostTooLarge         = "work order cost exceeds the supported range"
)

// LedgerError is the typed error returned by every ledger operation.
type LedgerError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *LedgerError) Unwrap() error { return e.Err }

// Is matches any LedgerError of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of the message.
func (e *LedgerError) Is(target error) bool {
	t, ok := target.(*LedgerError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation           = &LedgerError{Kind: KindValidation}
	ErrNotFound             = &LedgerError{Kind: KindNotFound}
	ErrInsufficientQuantity = &LedgerError{Kind: KindInsufficientQuantity}
	ErrConflict             = &LedgerError{Kind: KindConflict}
)

func NewValidationError(msg string) error {
	return &LedgerError{Kind: KindValidation, Message: msg}
}

func NewNotFoundError(msg string) error {
	return &LedgerError{Kind: KindNotFound, Message: msg}
}

func NewInsufficientQuantityf(msg string, available, requested int64) error {
	return &LedgerError{
		Kind:    KindInsufficientQuantity,
		Message: fmt.Sprintf("%s: available %d, requested %d", msg, available, requested),
	}
}

// NewConflictError wraps a storage-level write conflict. Stores use it for serialization
// failures, deadlocks and unique violations on lazy line-item creation.
func NewConflictError(err error) error {
	return &LedgerError{Kind: KindConflict, Message: ErrMsgConcurrentWrite, Err: err}
}

// KindOf returns the kind of the first LedgerError in err's chain, or KindUnexpected.
func KindOf(err error) ErrorKind {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUnexpected
}

// IsBusinessError reports whether err is a validation, not-found or insufficient-quantity failure.
func IsBusinessError(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindNotFound, KindInsufficientQuantity:
		return true
	}
	return false
}
