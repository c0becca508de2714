package ledger

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/wallet_ledger/internal/logging"
	"github.com/congo-pay/wallet_ledger/internal/middleware"
)

func newHandlerApp(l *Ledger) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(logging.Discard())})
	app.Post("/transactions", NewHandler(l).Create)
	return app
}

func postTransaction(t *testing.T, app *fiber.App, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/transactions", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func TestCreateAcceptsBareNumbers(t *testing.T) {
	b := NewInMemory("EUR")
	w := createWallet(t, b, "user-1", "EUR")
	app := newHandlerApp(newTestLedger(b, nil))

	status, out := postTransaction(t, app, `{"globalId":"tx-1","currency":"EUR","walletId":`+
		jsonInt(w.ID)+`,"transactionTypeId":"C","amount":12.50,"description":"n"}`)
	require.Equal(t, http.StatusCreated, status, out)
	assert.Equal(t, "12.5", out["amount"])
	requireBalance(t, b, w.ID, "12.5")
}

func TestCreateRejectsNonScalarFields(t *testing.T) {
	b := NewInMemory("EUR")
	w := createWallet(t, b, "user-1", "EUR")
	app := newHandlerApp(newTestLedger(b, nil))

	cases := map[string]string{
		"boolean global id": `{"globalId":true,"currency":"EUR","walletId":` + jsonInt(w.ID) + `,"transactionTypeId":"C","amount":"10"}`,
		"object amount":     `{"globalId":"tx-2","currency":"EUR","walletId":` + jsonInt(w.ID) + `,"transactionTypeId":"C","amount":{"v":10}}`,
		"array wallet id":   `{"globalId":"tx-3","currency":"EUR","walletId":[1],"transactionTypeId":"C","amount":"10"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			status, out := postTransaction(t, app, body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "invalid request body", out["message"])
		})
	}

	history, err := b.FindByWallet(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	requireBalance(t, b, w.ID, "0")
}

func jsonInt(v int64) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}
