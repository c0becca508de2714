package wallet

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_ledger/internal/middleware"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	UserID   string `json:"userId"`
	Currency string `json:"currency"`
}

type currencyResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type walletResponse struct {
	ID            int64            `json:"id"`
	UserID        string           `json:"userId"`
	Currency      currencyResponse `json:"currency"`
	Balance       string           `json:"balance"`
	LastUpdated   time.Time        `json:"lastUpdated"`
	LastUpdatedBy string           `json:"lastUpdatedBy"`
}

func toResponse(w Wallet) walletResponse {
	return walletResponse{
		ID:            w.ID,
		UserID:        w.UserID,
		Currency:      currencyResponse{ID: w.Currency.ID, Name: w.Currency.Name},
		Balance:       w.Balance.String(),
		LastUpdated:   w.LastUpdated,
		LastUpdatedBy: w.LastUpdatedBy,
	}
}

func toResponses(ws []Wallet) []walletResponse {
	out := make([]walletResponse, 0, len(ws))
	for _, w := range ws {
		out = append(out, toResponse(w))
	}
	return out
}

// Create provisions a wallet.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.Create(c.UserContext(), CreateInput{UserID: req.UserID, Currency: req.Currency})
	if err != nil {
		return middleware.ToFiberError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(w))
}

// Get returns a single wallet.
func (h *Handler) Get(c *fiber.Ctx) error {
	w, err := h.service.Get(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return middleware.ToFiberError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(w))
}

// ListByUser returns the wallets owned by the userId query parameter.
func (h *Handler) ListByUser(c *fiber.Ctx) error {
	ws, err := h.service.ListByUser(c.UserContext(), c.Query("userId"))
	if err != nil {
		return middleware.ToFiberError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponses(ws))
}

// List returns all wallets.
func (h *Handler) List(c *fiber.Ctx) error {
	ws, err := h.service.List(c.UserContext())
	if err != nil {
		return middleware.ToFiberError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponses(ws))
}
