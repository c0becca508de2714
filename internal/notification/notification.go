package notification

import (
	"context"
	"log/slog"
	"time"
)

const (
	// KindTransactionCreated is emitted once per committed ledger transaction.
	KindTransactionCreated = "transaction.created"
)

// Event describes a committed change to a wallet.
type Event struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	TransactionID int64     `json:"transactionId"`
	GlobalID      string    `json:"globalId"`
	WalletID      int64     `json:"walletId"`
	Type          string    `json:"type"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	Balance       string    `json:"balance"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Publisher delivers events to downstream systems. Callers treat delivery as
// best-effort.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LoggerPublisher writes events to the structured logger.
type LoggerPublisher struct {
	logger *slog.Logger
}

// NewLoggerPublisher constructs a logging publisher.
func NewLoggerPublisher(logger *slog.Logger) *LoggerPublisher {
	return &LoggerPublisher{logger: logger}
}

// Publish writes the event to the structured logger.
func (p *LoggerPublisher) Publish(_ context.Context, event Event) error {
	if p == nil || p.logger == nil {
		return nil
	}
	p.logger.Info("event",
		slog.String("kind", event.Kind),
		slog.String("event_id", event.ID),
		slog.Int64("transaction_id", event.TransactionID),
		slog.String("global_id", event.GlobalID),
		slog.Int64("wallet_id", event.WalletID),
		slog.String("type", event.Type),
		slog.String("amount", event.Amount),
		slog.String("currency", event.Currency),
		slog.String("balance", event.Balance),
	)
	return nil
}

// Nop discards every event.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, Event) error { return nil }
