package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/wallet_ledger/internal/apperr"
	"github.com/congo-pay/wallet_ledger/internal/currency"
)

// TransactionType distinguishes credits from debits.
type TransactionType struct {
	ID          string
	Description string
}

var (
	Credit = TransactionType{ID: "C", Description: "Credit"}
	Debit  = TransactionType{ID: "D", Description: "Debit"}
)

// ParseTransactionType accepts "C" or "D" in either case.
func ParseTransactionType(raw string) (TransactionType, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case Credit.ID:
		return Credit, nil
	case Debit.ID:
		return Debit, nil
	}
	return TransactionType{}, apperr.New(apperr.InvalidTransactionType, apperr.MsgInvalidTransactionType, raw)
}

// Signed returns the balance delta for a magnitude m of this type.
func (t TransactionType) Signed(m decimal.Decimal) decimal.Decimal {
	if t.ID == Debit.ID {
		return m.Neg()
	}
	return m
}

// Transaction is an immutable record of one balance change. Amount is always
// the non-negative magnitude; Type gives the direction.
type Transaction struct {
	ID            int64
	GlobalID      string
	Type          TransactionType
	Amount        decimal.Decimal
	WalletID      int64
	Currency      currency.Currency
	Description   string
	LastUpdated   time.Time
	LastUpdatedBy string
}

func duplicateGlobalID(globalID string) error {
	return apperr.New(apperr.DuplicateGlobalID, apperr.MsgDuplicateGlobalID, globalID)
}
