package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/wallet_ledger/internal/config"
	"github.com/congo-pay/wallet_ledger/internal/currency"
	"github.com/congo-pay/wallet_ledger/internal/ledger"
	"github.com/congo-pay/wallet_ledger/internal/middleware"
	"github.com/congo-pay/wallet_ledger/internal/notification"
	"github.com/congo-pay/wallet_ledger/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg       config.Config
	Backend   ledger.Backend
	Cache     *redis.Client
	Publisher notification.Publisher
	Logger    *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Backend == nil {
		return fmt.Errorf("storage backend is required")
	}
	// Memory storage loses every balance on restart.
	if !isDev(d.Cfg.AppEnv) && d.Cfg.StorageDriver == config.DriverMemory {
		return fmt.Errorf("storage driver %s is not allowed when APP_ENV=%s", config.DriverMemory, d.Cfg.AppEnv)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var currencies currency.Registry = d.Backend
	if d.Cache != nil {
		currencies = currency.NewCachedRegistry(d.Backend, d.Cache, d.Cfg.CurrencyCacheTTL, d.Logger)
	}

	walletSvc := wallet.NewService(d.Backend, currencies, d.Cfg.UpdatedBy)
	engine := ledger.New(currencies, d.Backend, d.Backend, d.Backend, d.Publisher, d.Logger, d.Cfg.UpdatedBy)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	txHandler := ledger.NewHandler(engine)

	RegisterCurrencyRoutes(api, currencies)
	RegisterWalletRoutes(api, wallet.NewHandler(walletSvc), txHandler)
	RegisterTransactionRoutes(api, txHandler,
		middleware.RateLimit(d.Cache, "transactions", d.Cfg.RateLimitPerMinute))

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}
