package wallet

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/wallet_ledger/internal/apperr"
	"github.com/congo-pay/wallet_ledger/internal/currency"
)

// Store persists wallets. ApplyDelta is the only operation allowed to change
// a balance and must be atomic with respect to other callers on the same wallet.
type Store interface {
	FindByID(ctx context.Context, id int64) (Wallet, error)
	FindByUser(ctx context.Context, userID string) ([]Wallet, error)
	ListAll(ctx context.Context) ([]Wallet, error)
	Create(ctx context.Context, userID string, cur currency.Currency, audit Audit) (Wallet, error)
	ApplyDelta(ctx context.Context, id int64, delta decimal.Decimal, audit Audit) (Wallet, error)
}

// NextBalance computes the balance after applying delta to w, rejecting any
// result below zero.
func NextBalance(w Wallet, delta decimal.Decimal) (decimal.Decimal, error) {
	next := w.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Decimal{}, apperr.New(apperr.InsufficientFunds, apperr.MsgInsufficientFunds, w.ID, delta.Abs().String())
	}
	return next, nil
}

// ParseID converts an external wallet identifier. Anything that is not a
// base-10 integer cannot name a wallet and is reported as not found.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, apperr.New(apperr.WalletNotFound, apperr.MsgWalletNotFound, raw)
	}
	return id, nil
}

// NotFound builds the error returned when no wallet has the given id.
func NotFound(id int64) error {
	return apperr.New(apperr.WalletNotFound, apperr.MsgWalletNotFound, strconv.FormatInt(id, 10))
}
