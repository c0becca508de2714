package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_ledger/internal/apperr"
	"github.com/congo-pay/wallet_ledger/internal/logging"
)

func TestStatusForKinds(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.WalletNotFound:         http.StatusNotFound,
		apperr.DuplicateGlobalID:      http.StatusConflict,
		apperr.InsufficientFunds:      http.StatusUnprocessableEntity,
		apperr.InvalidAmount:          http.StatusBadRequest,
		apperr.InvalidTransactionType: http.StatusBadRequest,
		apperr.CurrencyNotFound:       http.StatusBadRequest,
		apperr.CurrencyMismatch:       http.StatusBadRequest,
		apperr.MissingField:           http.StatusBadRequest,
	}
	for kind, want := range cases {
		if got := StatusFor(kind); got != want {
			t.Errorf("%s: expected %d got %d", kind, want, got)
		}
	}
}

func TestErrorHandlerRendersDomainMessage(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.Discard())})
	app.Get("/domain", func(c *fiber.Ctx) error {
		err := fmt.Errorf("wrapped: %w", apperr.New(apperr.WalletNotFound, apperr.MsgWalletNotFound, "7"))
		return ToFiberError(err)
	})
	app.Get("/infra", func(c *fiber.Ctx) error {
		return ToFiberError(errors.New("dial tcp: refused"))
	})

	cases := []struct {
		path    string
		status  int
		message string
	}{
		{"/domain", http.StatusNotFound, "No wallet with id 7 exists in the system."},
		{"/infra", http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, tc.path, nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != tc.status {
			t.Fatalf("%s: expected %d got %d", tc.path, tc.status, resp.StatusCode)
		}
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		var body map[string]string
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["message"] != tc.message {
			t.Fatalf("%s: expected message %q got %q", tc.path, tc.message, body["message"])
		}
	}
}
