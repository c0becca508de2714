package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_ledger/internal/ledger"
	"github.com/congo-pay/wallet_ledger/internal/wallet"
)

// RegisterWalletRoutes wires wallet-related endpoints. The static /wallets/user
// path is registered before the :walletId pattern.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, tx *ledger.Handler) {
	r.Get("/wallets", h.List)
	r.Get("/wallets/user", h.ListByUser)
	r.Get("/wallets/:walletId", h.Get)
	r.Get("/wallets/:walletId/transactions", tx.ListForWallet)
	r.Post("/wallets", h.Create)
}
