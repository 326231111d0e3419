package payments

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/walletledger/internal/ledger"
)

func handlerApp(f fixture) *fiber.App {
	h := NewHandler(f.engine)
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", c.Get("X-User"))
		c.Locals("role", c.Get("X-Role"))
		return c.Next()
	})
	app.Post("/wallet/funds", h.AddFunds)
	app.Post("/wallet/withdraw", h.Withdraw)
	app.Post("/wallet/transfer", h.Transfer)
	app.Get("/transactions", h.History)
	app.Get("/transactions/:transactionId", h.Get)
	app.Get("/admin/transactions/type/:type", h.ByType)
	return app
}

func send(t *testing.T, app *fiber.App, method, path, user, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set("X-User", user)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestHandlerStatusMapping(t *testing.T) {
	f := newFixture(t, 100, OmitFailures)
	app := handlerApp(f)

	cases := []struct {
		name   string
		method string
		path   string
		user   string
		body   string
		want   int
	}{
		{"credit", fiber.MethodPost, "/wallet/funds", "USR-a", `{"amount":"10.5"}`, fiber.StatusCreated},
		{"anonymous", fiber.MethodPost, "/wallet/funds", "", `{"amount":"1"}`, fiber.StatusUnauthorized},
		{"malformed body", fiber.MethodPost, "/wallet/funds", "USR-a", `{"amount":`, fiber.StatusBadRequest},
		{"negative", fiber.MethodPost, "/wallet/withdraw", "USR-a", `{"amount":"-1"}`, fiber.StatusBadRequest},
		{"sub-cent", fiber.MethodPost, "/wallet/funds", "USR-a", `{"amount":"0.004"}`, fiber.StatusBadRequest},
		{"huge exponent", fiber.MethodPost, "/wallet/funds", "USR-a", `{"amount":"1e20000000"}`, fiber.StatusBadRequest},
		{"transfer huge exponent", fiber.MethodPost, "/wallet/transfer", "USR-a", `{"receiver_id":"USR-b","amount":"1e20000000"}`, fiber.StatusBadRequest},
		{"overdraw", fiber.MethodPost, "/wallet/withdraw", "USR-a", `{"amount":"1000"}`, fiber.StatusUnprocessableEntity},
		{"no receiver", fiber.MethodPost, "/wallet/transfer", "USR-a", `{"amount":"1"}`, fiber.StatusBadRequest},
		{"self", fiber.MethodPost, "/wallet/transfer", "USR-a", `{"receiver_id":"USR-a","amount":"1"}`, fiber.StatusBadRequest},
		{"long description", fiber.MethodPost, "/wallet/transfer", "USR-a",
			`{"receiver_id":"USR-b","amount":"1","description":"` + strings.Repeat("x", 256) + `"}`, fiber.StatusBadRequest},
		{"transfer", fiber.MethodPost, "/wallet/transfer", "USR-a", `{"receiver_id":"USR-b","amount":"1"}`, fiber.StatusCreated},
		{"bad limit", fiber.MethodGet, "/transactions?limit=0", "USR-a", ``, fiber.StatusBadRequest},
		{"bad type", fiber.MethodGet, "/admin/transactions/type/refund", "USR-a", ``, fiber.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := send(t, app, tc.method, tc.path, tc.user, tc.body)
			assert.Equal(t, tc.want, status)
		})
	}

	status, history := send(t, app, fiber.MethodGet, "/transactions?type=transfer&limit=5", "USR-a", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, history["count"])
}

func TestHandlerReturnsFailedRecordUnderRecordPolicy(t *testing.T) {
	f := newFixture(t, 100, RecordFailures)
	app := handlerApp(f)

	status, body := send(t, app, fiber.MethodPost, "/wallet/transfer", "USR-a", `{"receiver_id":"USR-b","amount":"150"}`)
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	tx, ok := body["transaction"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(ledger.StatusFailed), tx["status"])
	assert.Equal(t, ErrInsufficientFunds.Error(), body["error"])
}

func TestHandlerGetRestrictsToParticipants(t *testing.T) {
	f := newFixture(t, 100, OmitFailures)
	app := handlerApp(f)

	_, res := send(t, app, fiber.MethodPost, "/wallet/transfer", "USR-a", `{"receiver_id":"USR-b","amount":"5"}`)
	id := res["transaction"].(map[string]any)["id"].(string)

	status, _ := send(t, app, fiber.MethodGet, "/transactions/"+id, "USR-b", "")
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = send(t, app, fiber.MethodGet, "/transactions/"+id, "USR-c", "")
	assert.Equal(t, fiber.StatusNotFound, status)

	req := httptest.NewRequest(fiber.MethodGet, "/transactions/"+id, nil)
	req.Header.Set("X-User", "USR-admin")
	req.Header.Set("X-Role", roleAdmin)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
