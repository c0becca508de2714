package wallet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/congo-pay/wallet_ledger/internal/currency"
	"github.com/congo-pay/wallet_ledger/internal/validation"
)

// Service exposes wallet provisioning and lookups.
type Service struct {
	repo       Store
	currencies currency.Registry
	actor      string
	now        func() time.Time
}

// NewService builds a wallet service. actor is recorded as the last-modified-by
// tag on wallets it creates.
func NewService(repo Store, currencies currency.Registry, actor string) *Service {
	return &Service{repo: repo, currencies: currencies, actor: actor, now: time.Now}
}

// CreateInput captures data required to create a wallet.
type CreateInput struct {
	UserID   string `json:"userId" validate:"required"`
	Currency string `json:"currency" validate:"required"`
}

// Create provisions an empty wallet for the user in the named currency.
func (s *Service) Create(ctx context.Context, input CreateInput) (Wallet, error) {
	input.UserID = strings.TrimSpace(input.UserID)
	input.Currency = strings.TrimSpace(input.Currency)
	if err := validation.Required(&input); err != nil {
		return Wallet{}, err
	}

	cur, err := s.currencies.Resolve(ctx, input.Currency)
	if err != nil {
		return Wallet{}, err
	}

	w, err := s.repo.Create(ctx, input.UserID, cur, Audit{By: s.actor, At: s.now().UTC()})
	if err != nil {
		return Wallet{}, fmt.Errorf("create wallet: %w", err)
	}
	return w, nil
}

// Get retrieves a wallet by its external identifier.
func (s *Service) Get(ctx context.Context, id string) (Wallet, error) {
	walletID, err := ParseID(id)
	if err != nil {
		return Wallet{}, err
	}
	return s.repo.FindByID(ctx, walletID)
}

// ListByUser returns the user's wallets in creation order.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Wallet, error) {
	userID = strings.TrimSpace(userID)
	in := struct {
		UserID string `json:"userId" validate:"required"`
	}{UserID: userID}
	if err := validation.Required(&in); err != nil {
		return nil, err
	}
	return s.repo.FindByUser(ctx, userID)
}

// List returns every wallet ordered by id.
func (s *Service) List(ctx context.Context) ([]Wallet, error) {
	return s.repo.ListAll(ctx)
}
