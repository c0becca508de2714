package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/wallet_ledger/internal/config"
	"github.com/congo-pay/wallet_ledger/internal/ledger"
	"github.com/congo-pay/wallet_ledger/internal/logging"
	"github.com/congo-pay/wallet_ledger/internal/notification"
)

func testConfig() config.Config {
	return config.Config{
		AppName:            "WalletLedger",
		AppEnv:             "test",
		StorageDriver:      config.DriverMemory,
		IdempotencyTTL:     time.Minute,
		UpdatedBy:          "wallet-service",
		Currencies:         []string{"EUR", "USD"},
		CurrencyCacheTTL:   time.Minute,
		EventsSink:         config.SinkRedis,
		EventsStream:       "wallet:transactions",
		RateLimitPerMinute: 0,
	}
}

type harness struct {
	app   *fiber.App
	cache *redis.Client
}

func newHarness(t *testing.T, cfg config.Config) harness {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	logger := logging.Discard()
	backend, err := OpenBackend(context.Background(), cfg, logger)
	require.NoError(t, err)
	publisher, closePublisher, err := NewPublisher(cfg, cache, logger)
	require.NoError(t, err)
	t.Cleanup(func() { closePublisher() })

	srv, err := New(cfg, backend, cache, publisher, logger)
	require.NoError(t, err)
	return harness{app: srv.App(), cache: cache}
}

func (h harness) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func message(t *testing.T, raw []byte) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	msg, _ := body["message"].(string)
	return msg
}

func TestWalletAndTransactionFlow(t *testing.T) {
	h := newHarness(t, testConfig())

	status, raw := h.do(t, http.MethodPost, "/api/v1/wallets", `{"userId":"alice","currency":"EUR"}`)
	require.Equal(t, http.StatusCreated, status, string(raw))
	var created struct {
		ID       int64  `json:"id"`
		Balance  string `json:"balance"`
		Currency struct {
			Name string `json:"name"`
		} `json:"currency"`
	}
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "0", created.Balance)
	assert.Equal(t, "EUR", created.Currency.Name)

	status, raw = h.do(t, http.MethodPost, "/api/v1/transactions",
		`{"globalId":"tx-1","currency":"EUR","walletId":1,"transactionTypeId":"C","amount":100.25,"description":"top up"}`)
	require.Equal(t, http.StatusCreated, status, string(raw))
	var tx struct {
		ID              int64  `json:"id"`
		Amount          string `json:"amount"`
		WalletID        int64  `json:"walletId"`
		TransactionType struct {
			ID string `json:"id"`
		} `json:"transactionType"`
	}
	require.NoError(t, json.Unmarshal(raw, &tx))
	assert.Equal(t, "100.25", tx.Amount)
	assert.Equal(t, int64(1), tx.WalletID)
	assert.Equal(t, "C", tx.TransactionType.ID)

	status, raw = h.do(t, http.MethodPost, "/api/v1/transactions",
		`{"globalId":"tx-2","currency":"EUR","walletId":"1","transactionTypeId":"D","amount":"1000"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "Wallet 1 has not enough funds to perform debit transaction with amount 1000", message(t, raw))

	status, raw = h.do(t, http.MethodPost, "/api/v1/transactions",
		`{"globalId":"tx-1","currency":"EUR","walletId":"1","transactionTypeId":"C","amount":"5"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Transaction with globalId=tx-1 already present.", message(t, raw))

	status, raw = h.do(t, http.MethodPost, "/api/v1/transactions",
		`{"globalId":"tx-3","currency":"EUR","walletId":"1","transactionTypeId":"C"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Field amount is mandatory. It should be provided and can't be empty.", message(t, raw))

	status, raw = h.do(t, http.MethodGet, "/api/v1/wallets/1", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.Equal(t, "100.25", created.Balance)

	status, raw = h.do(t, http.MethodGet, "/api/v1/wallets/1/transactions", "")
	require.Equal(t, http.StatusOK, status)
	var history []map[string]any
	require.NoError(t, json.Unmarshal(raw, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "tx-1", history[0]["globalId"])

	status, raw = h.do(t, http.MethodGet, "/api/v1/wallets/user?userId=alice", "")
	require.Equal(t, http.StatusOK, status)
	var mine []map[string]any
	require.NoError(t, json.Unmarshal(raw, &mine))
	assert.Len(t, mine, 1)

	status, raw = h.do(t, http.MethodGet, "/api/v1/wallets", "")
	require.Equal(t, http.StatusOK, status)
	var all []map[string]any
	require.NoError(t, json.Unmarshal(raw, &all))
	assert.Len(t, all, 1)

	entries, err := h.cache.XRange(context.Background(), "wallet:transactions", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, notification.KindTransactionCreated, entries[0].Values["kind"])
}

func TestErrorStatuses(t *testing.T) {
	h := newHarness(t, testConfig())

	cases := []struct {
		method, path, body string
		status             int
		message            string
	}{
		{http.MethodGet, "/api/v1/wallets/abc", "", http.StatusNotFound, "No wallet with id abc exists in the system."},
		{http.MethodGet, "/api/v1/wallets/9", "", http.StatusNotFound, "No wallet with id 9 exists in the system."},
		{http.MethodGet, "/api/v1/wallets/9/transactions", "", http.StatusNotFound, "No wallet with id 9 exists in the system."},
		{http.MethodGet, "/api/v1/wallets/user", "", http.StatusBadRequest, "Field userId is mandatory. It should be provided and can't be empty."},
		{http.MethodPost, "/api/v1/wallets", `{"userId":"bob","currency":"ZZZ"}`, http.StatusBadRequest, "No currency ZZZ exists in the system."},
		{http.MethodPost, "/api/v1/transactions", `{"globalId":"g","currency":"EUR","walletId":"1","transactionTypeId":"C","amount":"abc"}`, http.StatusBadRequest, "'abc' should be a number"},
	}
	for _, tc := range cases {
		status, raw := h.do(t, tc.method, tc.path, tc.body)
		assert.Equal(t, tc.status, status, tc.path)
		assert.Equal(t, tc.message, message(t, raw), tc.path)
	}

	status, raw := h.do(t, http.MethodGet, "/api/v1/wallets", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestCurrenciesAndHealth(t *testing.T) {
	h := newHarness(t, testConfig())

	status, raw := h.do(t, http.MethodGet, "/api/v1/currencies", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[{"id":1,"name":"EUR"},{"id":2,"name":"USD"}]`, string(raw))

	status, raw = h.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, status)
	var health struct {
		Status map[string]string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(raw, &health))
	assert.Equal(t, "ok", health.Status["memory"])
	assert.Equal(t, "ok", health.Status["redis"])
}

func TestTransactionRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerMinute = 1
	h := newHarness(t, cfg)

	body := `{"globalId":"g1","currency":"EUR","walletId":"1","transactionTypeId":"C","amount":"1"}`
	status, _ := h.do(t, http.MethodPost, "/api/v1/transactions", body)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = h.do(t, http.MethodPost, "/api/v1/transactions", body)
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestMemoryStorageRefusedOutsideDevelopment(t *testing.T) {
	cfg := testConfig()
	cfg.AppEnv = "production"
	cfg.EventsSink = config.SinkNone
	backend := ledger.NewInMemory("EUR")

	_, err := New(cfg, backend, nil, notification.Nop{}, logging.Discard())
	assert.Error(t, err)
}

func TestNewPublisherSelectsSink(t *testing.T) {
	cfg := testConfig()
	logger := logging.Discard()

	cfg.EventsSink = config.SinkLog
	p, _, err := NewPublisher(cfg, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &notification.LoggerPublisher{}, p)

	cfg.EventsSink = config.SinkNone
	p, _, err = NewPublisher(cfg, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, notification.Nop{}, p)

	cfg.EventsSink = config.SinkRedis
	_, _, err = NewPublisher(cfg, nil, logger)
	assert.Error(t, err)

	cfg.EventsSink = config.SinkKafka
	cfg.KafkaBrokers = []string{"localhost:9092"}
	cfg.KafkaTopic = "wallet.transactions"
	p, closeFn, err := NewPublisher(cfg, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &notification.KafkaPublisher{}, p)
	assert.NoError(t, closeFn())
}
