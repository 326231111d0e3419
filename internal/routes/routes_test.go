package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/walletledger/internal/config"
	"github.com/congo-pay/walletledger/internal/logging"
	"github.com/congo-pay/walletledger/internal/metrics"
	"github.com/congo-pay/walletledger/internal/worker"
)

type testAPI struct {
	t   *testing.T
	app *fiber.App
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	pool := worker.NewPool(2, 64)
	t.Cleanup(func() {
		pool.Stop()
		cache.Close()
	})

	cfg := config.Config{
		AppEnv:              "development",
		JWTSecret:           "access",
		RefreshSecret:       "refresh",
		AccessTokenTTL:      15 * time.Minute,
		RefreshTokenTTL:     time.Hour,
		IdempotencyTTL:      time.Minute,
		LoginRateLimitPerM:  5,
		WalletCurrency:      "USD",
		WalletAutoProvision: true,
		SeedPolicy:          config.SeedFixed,
		SeedFixedAmount:     decimal.NewFromInt(100),
		WorkerPoolSize:      2,
		AdminUsernames:      []string{"root"},
	}
	app := fiber.New()
	_, err := Setup(app, Deps{Cfg: cfg, Cache: cache, Logger: logging.Discard(), Metrics: metrics.New(), Pool: pool})
	require.NoError(t, err)
	return &testAPI{t: t, app: app}
}

type call struct {
	method string
	path   string
	token  string
	key    string
	body   any
}

func (a *testAPI) do(c call) (int, map[string]any) {
	a.t.Helper()
	var body io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(a.t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if c.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	if c.key != "" {
		req.Header.Set("Idempotency-Key", c.key)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	out := map[string]any{}
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(a.t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

// signup registers and logs in a user, returning its id and access token.
func (a *testAPI) signup(username string) (string, string) {
	a.t.Helper()
	status, user := a.do(call{method: fiber.MethodPost, path: "/api/v1/auth/register", body: map[string]string{
		"username": username, "email": username + "@example.com", "password": "password123",
	}})
	require.Equal(a.t, fiber.StatusCreated, status)

	status, login := a.do(call{method: fiber.MethodPost, path: "/api/v1/auth/login", body: map[string]string{
		"username": username, "password": "password123",
	}})
	require.Equal(a.t, fiber.StatusOK, status)
	return user["id"].(string), login["access_token"].(string)
}

func TestWalletFlow(t *testing.T) {
	api := newTestAPI(t)
	_, alice := api.signup("alice")
	bobID, bob := api.signup("bob")

	status, w := api.do(call{method: fiber.MethodGet, path: "/api/v1/wallet", token: alice})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "100", w["balance"])
	assert.Equal(t, "Main Wallet", w["name"])

	transfer := call{
		method: fiber.MethodPost, path: "/api/v1/wallet/transfer", token: alice, key: "t-1",
		body: map[string]string{"receiver_id": bobID, "amount": "30.25", "description": "dinner"},
	}
	status, first := api.do(transfer)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "69.75", first["wallet"].(map[string]any)["balance"])

	// Same key: replayed, not re-applied.
	status, second := api.do(transfer)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, first, second)

	_, w = api.do(call{method: fiber.MethodGet, path: "/api/v1/wallet", token: bob})
	assert.Equal(t, "130.25", w["balance"])

	status, history := api.do(call{method: fiber.MethodGet, path: "/api/v1/transactions", token: bob})
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, history["count"])

	txID := first["transaction"].(map[string]any)["id"].(string)
	status, _ = api.do(call{method: fiber.MethodGet, path: "/api/v1/transactions/" + txID, token: bob})
	assert.Equal(t, fiber.StatusOK, status)
}

func TestWalletErrors(t *testing.T) {
	api := newTestAPI(t)
	aliceID, alice := api.signup("alice")
	_, carol := api.signup("carol")

	cases := []struct {
		name string
		c    call
		want int
	}{
		{"no token", call{method: fiber.MethodGet, path: "/api/v1/wallet"}, fiber.StatusUnauthorized},
		{"missing idempotency key", call{method: fiber.MethodPost, path: "/api/v1/wallet/funds", token: alice,
			body: map[string]string{"amount": "10"}}, fiber.StatusBadRequest},
		{"zero amount", call{method: fiber.MethodPost, path: "/api/v1/wallet/funds", token: alice, key: "f-0",
			body: map[string]string{"amount": "0"}}, fiber.StatusBadRequest},
		{"self transfer", call{method: fiber.MethodPost, path: "/api/v1/wallet/transfer", token: alice, key: "s-1",
			body: map[string]string{"receiver_id": aliceID, "amount": "1"}}, fiber.StatusBadRequest},
		{"insufficient funds", call{method: fiber.MethodPost, path: "/api/v1/wallet/withdraw", token: alice, key: "w-1",
			body: map[string]string{"amount": "100.01"}}, fiber.StatusUnprocessableEntity},
		{"bad history type", call{method: fiber.MethodGet, path: "/api/v1/transactions?type=refund", token: alice}, fiber.StatusBadRequest},
		{"unknown transaction", call{method: fiber.MethodGet, path: "/api/v1/transactions/TXN-none", token: alice}, fiber.StatusNotFound},
		{"non admin", call{method: fiber.MethodGet, path: "/api/v1/admin/wallets", token: carol}, fiber.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := api.do(tc.c)
			assert.Equal(t, tc.want, status)
		})
	}

	_, w := api.do(call{method: fiber.MethodGet, path: "/api/v1/wallet", token: alice})
	assert.Equal(t, "100", w["balance"])
}

func TestTransactionHiddenFromOutsiders(t *testing.T) {
	api := newTestAPI(t)
	_, alice := api.signup("alice")
	_, eve := api.signup("eve")

	status, res := api.do(call{method: fiber.MethodPost, path: "/api/v1/wallet/funds", token: alice, key: "f-1",
		body: map[string]string{"amount": "5"}})
	require.Equal(t, fiber.StatusCreated, status)
	txID := res["transaction"].(map[string]any)["id"].(string)

	status, _ = api.do(call{method: fiber.MethodGet, path: "/api/v1/transactions/" + txID, token: eve})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestAdminAndLogout(t *testing.T) {
	api := newTestAPI(t)
	_, alice := api.signup("alice")
	_, root := api.signup("root")

	status, _ := api.do(call{method: fiber.MethodPost, path: "/api/v1/wallet/funds", token: alice, key: "f-1",
		body: map[string]string{"amount": "5"}})
	require.Equal(t, fiber.StatusCreated, status)

	status, wallets := api.do(call{method: fiber.MethodGet, path: "/api/v1/admin/wallets", token: root})
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, wallets["count"])

	status, credits := api.do(call{method: fiber.MethodGet, path: "/api/v1/admin/transactions/type/credit", token: root})
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, credits["count"])

	status, users := api.do(call{method: fiber.MethodGet, path: "/api/v1/admin/users", token: root})
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 2, users["count"])

	status, _ = api.do(call{method: fiber.MethodPost, path: "/api/v1/auth/logout", token: alice, key: "l-1"})
	require.Equal(t, fiber.StatusOK, status)
	status, _ = api.do(call{method: fiber.MethodGet, path: "/api/v1/me", token: alice})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	status, health := api.do(call{method: fiber.MethodGet, path: "/healthz"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, map[string]any{"postgres": "disabled", "redis": "ok"}, health["status"])

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := api.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "http_requests_total")
}
