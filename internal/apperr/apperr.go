// Package apperr defines the closed set of domain failures reported by the
// wallet ledger. Transports translate a Kind to their own status codes.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of domain failure.
type Kind string

const (
	InvalidAmount          Kind = "invalid_amount"
	InvalidTransactionType Kind = "invalid_transaction_type"
	CurrencyNotFound       Kind = "currency_not_found"
	CurrencyMismatch       Kind = "currency_mismatch"
	WalletNotFound         Kind = "wallet_not_found"
	InsufficientFunds      Kind = "insufficient_funds"
	DuplicateGlobalID      Kind = "duplicate_global_id"
	MissingField           Kind = "missing_field"
)

// Message templates shared by every component that raises a given kind.
const (
	MsgInvalidAmount          = "'%s' should be a number"
	MsgInvalidTransactionType = "Undefined transactionType %s."
	MsgCurrencyNotFound       = "No currency %s exists in the system."
	MsgCurrencyMismatch       = "Transaction can't be saved. Transaction currency %s differs from wallet currency %s."
	MsgWalletNotFound         = "No wallet with id %s exists in the system."
	MsgInsufficientFunds      = "Wallet %d has not enough funds to perform debit transaction with amount %s"
	MsgDuplicateGlobalID      = "Transaction with globalId=%s already present."
	MsgMissingField           = "Field %s is mandatory. It should be provided and can't be empty."
)

// Error is a domain failure carrying its kind and a user-facing message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is reports whether target is an *Error of the same kind, so the sentinels
// below match any message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidAmount          = &Error{Kind: InvalidAmount}
	ErrInvalidTransactionType = &Error{Kind: InvalidTransactionType}
	ErrCurrencyNotFound       = &Error{Kind: CurrencyNotFound}
	ErrCurrencyMismatch       = &Error{Kind: CurrencyMismatch}
	ErrWalletNotFound         = &Error{Kind: WalletNotFound}
	ErrInsufficientFunds      = &Error{Kind: InsufficientFunds}
	ErrDuplicateGlobalID      = &Error{Kind: DuplicateGlobalID}
	ErrMissingField           = &Error{Kind: MissingField}
)

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err. The second result is false for
// infrastructure errors that carry no domain kind.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
