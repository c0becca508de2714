package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_ledger/internal/middleware"
)

// Handler exposes transaction HTTP endpoints.
type Handler struct {
	ledger *Ledger
}

// NewHandler builds a transaction HTTP handler.
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// looseString accepts a JSON string or a bare JSON number, keeping numbers
// verbatim so decimal amounts are not rounded through float64. Booleans,
// objects and arrays are rejected.
type looseString string

var errNotStringOrNumber = errors.New("expected a string or a number")

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = ""
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
	case len(b) > 0 && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9')):
		if !json.Valid(b) {
			return errNotStringOrNumber
		}
		*s = looseString(b)
	default:
		return errNotStringOrNumber
	}
	return nil
}

type createRequest struct {
	GlobalID          looseString `json:"globalId"`
	Currency          looseString `json:"currency"`
	WalletID          looseString `json:"walletId"`
	TransactionTypeID looseString `json:"transactionTypeId"`
	Amount            looseString `json:"amount"`
	Description       looseString `json:"description"`
}

type typeResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

type currencyResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type transactionResponse struct {
	ID              int64            `json:"id"`
	GlobalID        string           `json:"globalId"`
	TransactionType typeResponse     `json:"transactionType"`
	Amount          string           `json:"amount"`
	WalletID        int64            `json:"walletId"`
	Currency        currencyResponse `json:"currency"`
	Description     string           `json:"description"`
	LastUpdated     time.Time        `json:"lastUpdated"`
	LastUpdatedBy   string           `json:"lastUpdatedBy"`
}

func toResponse(tx Transaction) transactionResponse {
	return transactionResponse{
		ID:              tx.ID,
		GlobalID:        tx.GlobalID,
		TransactionType: typeResponse{ID: tx.Type.ID, Description: tx.Type.Description},
		Amount:          tx.Amount.String(),
		WalletID:        tx.WalletID,
		Currency:        currencyResponse{ID: tx.Currency.ID, Name: tx.Currency.Name},
		Description:     tx.Description,
		LastUpdated:     tx.LastUpdated,
		LastUpdatedBy:   tx.LastUpdatedBy,
	}
}

// Create records a credit or debit.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	tx, err := h.ledger.CreateTransaction(c.UserContext(), CreateTransactionInput{
		GlobalID:          string(req.GlobalID),
		Currency:          string(req.Currency),
		WalletID:          string(req.WalletID),
		TransactionTypeID: string(req.TransactionTypeID),
		Amount:            string(req.Amount),
		Description:       string(req.Description),
	})
	if err != nil {
		return middleware.ToFiberError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(tx))
}

// ListForWallet returns the history of the wallet named by the walletId param.
func (h *Handler) ListForWallet(c *fiber.Ctx) error {
	txs, err := h.ledger.ListTransactionsForWallet(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return middleware.ToFiberError(err)
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toResponse(tx))
	}
	return c.Status(http.StatusOK).JSON(out)
}
