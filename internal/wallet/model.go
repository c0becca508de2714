package wallet

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/wallet_ledger/internal/currency"
)

// Wallet holds a user's balance in a single currency.
type Wallet struct {
	ID            int64
	UserID        string
	Currency      currency.Currency
	Balance       decimal.Decimal
	LastUpdated   time.Time
	LastUpdatedBy string
}

// Audit stamps who changed a record and when.
type Audit struct {
	By string
	At time.Time
}
