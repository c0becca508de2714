// Package ledger applies credits and debits to wallets and records each one
// exactly once in an append-only transaction history.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/wallet_ledger/internal/apperr"
	"github.com/congo-pay/wallet_ledger/internal/currency"
	"github.com/congo-pay/wallet_ledger/internal/notification"
	"github.com/congo-pay/wallet_ledger/internal/validation"
	"github.com/congo-pay/wallet_ledger/internal/wallet"
)

const (
	publishTimeout = 5 * time.Second

	// Amounts are bounded to 38 significant digits with at most 18 after the
	// decimal point.
	maxAmountScale  = 18
	maxAmountDigits = 38
)

// Backend is a storage engine providing every collaborator the ledger needs.
type Backend interface {
	currency.Registry
	wallet.Store
	TransactionStore
	UnitOfWork
	Ping(ctx context.Context) error
	Close() error
}

// Ledger is the transaction engine.
type Ledger struct {
	currencies   currency.Registry
	wallets      wallet.Store
	transactions TransactionStore
	uow          UnitOfWork
	publisher    notification.Publisher
	logger       *slog.Logger
	actor        string
	now          func() time.Time
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used for audit stamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New wires a ledger. actor is recorded as last-updated-by on every wallet
// and transaction it writes.
func New(
	currencies currency.Registry,
	wallets wallet.Store,
	transactions TransactionStore,
	uow UnitOfWork,
	publisher notification.Publisher,
	logger *slog.Logger,
	actor string,
	opts ...Option,
) *Ledger {
	if publisher == nil {
		publisher = notification.Nop{}
	}
	l := &Ledger{
		currencies:   currencies,
		wallets:      wallets,
		transactions: transactions,
		uow:          uow,
		publisher:    publisher,
		logger:       logger,
		actor:        actor,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewWithBackend wires a ledger whose every store is provided by b.
func NewWithBackend(b Backend, publisher notification.Publisher, logger *slog.Logger, actor string, opts ...Option) *Ledger {
	return New(b, b, b, b, publisher, logger, actor, opts...)
}

// CreateTransactionInput carries a proposed transaction as received from a
// client. All values are raw strings and parsed here.
type CreateTransactionInput struct {
	GlobalID          string `json:"globalId" validate:"required"`
	Currency          string `json:"currency" validate:"required"`
	WalletID          string `json:"walletId" validate:"required"`
	TransactionTypeID string `json:"transactionTypeId" validate:"required"`
	Amount            string `json:"amount" validate:"required"`
	Description       string `json:"description"`
}

func (in CreateTransactionInput) trimmed() CreateTransactionInput {
	return CreateTransactionInput{
		GlobalID:          strings.TrimSpace(in.GlobalID),
		Currency:          strings.TrimSpace(in.Currency),
		WalletID:          strings.TrimSpace(in.WalletID),
		TransactionTypeID: strings.TrimSpace(in.TransactionTypeID),
		Amount:            strings.TrimSpace(in.Amount),
		Description:       in.Description,
	}
}

// CreateTransaction validates the input, then in one unit of work loads the
// wallet, applies the signed amount to its balance and records the
// transaction. The amount's sign is ignored; the type decides the direction.
func (l *Ledger) CreateTransaction(ctx context.Context, input CreateTransactionInput) (Transaction, error) {
	in := input.trimmed()
	if err := validation.Required(&in); err != nil {
		return Transaction{}, l.rejected(in, err)
	}

	amount, err := parseAmount(in.Amount)
	if err != nil {
		return Transaction{}, l.rejected(in, err)
	}
	txType, err := ParseTransactionType(in.TransactionTypeID)
	if err != nil {
		return Transaction{}, l.rejected(in, err)
	}
	cur, err := l.currencies.Resolve(ctx, in.Currency)
	if err != nil {
		return Transaction{}, l.rejected(in, err)
	}
	walletID, err := wallet.ParseID(in.WalletID)
	if err != nil {
		return Transaction{}, l.rejected(in, err)
	}

	magnitude := amount.Abs()
	audit := wallet.Audit{By: l.actor, At: l.now().UTC()}

	var (
		created Transaction
		updated wallet.Wallet
	)
	err = l.uow.Atomic(ctx, func(ctx context.Context, repos Repos) error {
		w, err := repos.Wallets.FindByID(ctx, walletID)
		if err != nil {
			return err
		}
		if w.Currency.ID != cur.ID {
			return apperr.New(apperr.CurrencyMismatch, apperr.MsgCurrencyMismatch, cur.Name, w.Currency.Name)
		}

		if _, err := repos.Transactions.FindByGlobalID(ctx, in.GlobalID); err == nil {
			return duplicateGlobalID(in.GlobalID)
		} else if !errors.Is(err, ErrTransactionNotFound) {
			return err
		}

		updated, err = repos.Wallets.ApplyDelta(ctx, w.ID, txType.Signed(magnitude), audit)
		if errors.Is(err, apperr.ErrInsufficientFunds) {
			return apperr.New(apperr.InsufficientFunds, apperr.MsgInsufficientFunds, w.ID, in.Amount)
		}
		if err != nil {
			return err
		}

		created, err = repos.Transactions.Insert(ctx, Transaction{
			GlobalID:      in.GlobalID,
			Type:          txType,
			Amount:        magnitude,
			WalletID:      w.ID,
			Currency:      w.Currency,
			Description:   in.Description,
			LastUpdated:   audit.At,
			LastUpdatedBy: audit.By,
		})
		return err
	})
	if err != nil {
		if _, ok := apperr.KindOf(err); ok {
			return Transaction{}, l.rejected(in, err)
		}
		return Transaction{}, fmt.Errorf("create transaction %s: %w", in.GlobalID, err)
	}

	l.logger.Info("transaction created",
		slog.Int64("transaction_id", created.ID),
		slog.String("global_id", created.GlobalID),
		slog.Int64("wallet_id", created.WalletID),
		slog.String("type", created.Type.ID),
		slog.String("amount", created.Amount.String()),
		slog.String("balance", updated.Balance.String()),
	)
	l.publish(ctx, created, updated)
	return created, nil
}

// ListTransactionsForWallet returns the wallet's history in insertion order.
func (l *Ledger) ListTransactionsForWallet(ctx context.Context, walletID string) ([]Transaction, error) {
	id, err := wallet.ParseID(walletID)
	if err != nil {
		return nil, err
	}
	if _, err := l.wallets.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return l.transactions.FindByWallet(ctx, id)
}

// parseAmount accepts a decimal within the supported precision. Anything else,
// including values whose exponent alone would blow up the balance, is an
// InvalidAmount.
func parseAmount(raw string) (decimal.Decimal, error) {
	invalid := apperr.New(apperr.InvalidAmount, apperr.MsgInvalidAmount, raw)
	if len(raw) > 2*(maxAmountDigits+maxAmountScale) {
		return decimal.Decimal{}, invalid
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, invalid
	}
	exp := amount.Exponent()
	if exp < -maxAmountScale || exp > maxAmountDigits {
		return decimal.Decimal{}, invalid
	}
	if amount.NumDigits()+int(exp) > maxAmountDigits {
		return decimal.Decimal{}, invalid
	}
	return amount, nil
}

func (l *Ledger) rejected(in CreateTransactionInput, err error) error {
	kind, _ := apperr.KindOf(err)
	l.logger.Debug("transaction rejected",
		slog.String("global_id", in.GlobalID),
		slog.String("wallet_id", in.WalletID),
		slog.String("kind", string(kind)),
		slog.String("reason", err.Error()),
	)
	return err
}

func (l *Ledger) publish(ctx context.Context, tx Transaction, w wallet.Wallet) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := notification.Event{
		ID:            uuid.NewString(),
		Kind:          notification.KindTransactionCreated,
		TransactionID: tx.ID,
		GlobalID:      tx.GlobalID,
		WalletID:      tx.WalletID,
		Type:          tx.Type.ID,
		Amount:        tx.Amount.String(),
		Currency:      tx.Currency.Name,
		Balance:       w.Balance.String(),
		OccurredAt:    tx.LastUpdated,
	}
	if err := l.publisher.Publish(ctx, event); err != nil {
		l.logger.Warn("publish transaction event failed",
			slog.String("global_id", tx.GlobalID),
			slog.Any("error", err),
		)
	}
}
