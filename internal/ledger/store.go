package ledger

import (
	"context"
	"errors"

	"github.com/congo-pay/wallet_ledger/internal/wallet"
)

// ErrTransactionNotFound is returned by FindByGlobalID on a miss.
var ErrTransactionNotFound = errors.New("transaction not found")

// TransactionStore persists the append-only transaction history.
type TransactionStore interface {
	FindByGlobalID(ctx context.Context, globalID string) (Transaction, error)
	// FindByWallet returns transactions in insertion order.
	FindByWallet(ctx context.Context, walletID int64) ([]Transaction, error)
	// Insert assigns the id. A reused GlobalID fails with DuplicateGlobalID
	// and writes nothing.
	Insert(ctx context.Context, tx Transaction) (Transaction, error)
}

// Repos are the stores bound to one unit of work.
type Repos struct {
	Wallets      wallet.Store
	Transactions TransactionStore
}

// UnitOfWork runs fn atomically. Every write made through the Repos handed to
// fn is discarded when fn returns an error. fn must not use stores other than
// those in Repos.
type UnitOfWork interface {
	Atomic(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}
