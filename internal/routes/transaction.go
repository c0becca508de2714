package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_ledger/internal/ledger"
)

// RegisterTransactionRoutes wires transaction creation behind limiter.
func RegisterTransactionRoutes(r fiber.Router, h *ledger.Handler, limiter fiber.Handler) {
	r.Post("/transactions", limiter, h.Create)
}
