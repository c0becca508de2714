package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_ledger/internal/currency"
	"github.com/congo-pay/wallet_ledger/internal/middleware"
)

// RegisterCurrencyRoutes exposes the known currencies.
func RegisterCurrencyRoutes(r fiber.Router, registry currency.Registry) {
	r.Get("/currencies", func(c *fiber.Ctx) error {
		list, err := registry.List(c.UserContext())
		if err != nil {
			return middleware.ToFiberError(err)
		}
		if list == nil {
			list = []currency.Currency{}
		}
		return c.Status(http.StatusOK).JSON(list)
	})
}
