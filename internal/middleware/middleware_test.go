package middleware

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/walletledger/internal/auth"
	"github.com/congo-pay/walletledger/internal/logging"
	"github.com/congo-pay/walletledger/internal/metrics"
)

type stubVerifier map[string]*auth.Claims

func (s stubVerifier) Verify(_ context.Context, token string) (*auth.Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("bad token")
}

func protectedApp() *fiber.App {
	verifier := stubVerifier{
		"user-token":  {UserID: "USR-1", Role: "user"},
		"admin-token": {UserID: "USR-2", Role: "admin"},
	}
	app := fiber.New()
	app.Use(JWTAuth(verifier))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(localUserID).(string))
	})
	app.Get("/admin", RequireRole("admin"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func get(t *testing.T, app *fiber.App, path, authz string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	if authz != "" {
		req.Header.Set(fiber.HeaderAuthorization, authz)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestJWTAuth(t *testing.T) {
	app := protectedApp()
	cases := []struct {
		name  string
		authz string
		want  int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic abc", fiber.StatusUnauthorized},
		{"unknown token", "Bearer nope", fiber.StatusUnauthorized},
		{"valid token", "Bearer user-token", fiber.StatusOK},
		{"lowercase scheme", "bearer user-token", fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, get(t, app, "/me", tc.authz))
		})
	}
}

func TestRequireRole(t *testing.T) {
	app := protectedApp()
	assert.Equal(t, fiber.StatusForbidden, get(t, app, "/admin", "Bearer user-token"))
	assert.Equal(t, fiber.StatusNoContent, get(t, app, "/admin", "Bearer admin-token"))
}

func TestHTTPMetricsUsesRoutePatternAndErrorStatus(t *testing.T) {
	m := metrics.New()
	app := fiber.New()
	app.Use(HTTPMetrics(m))
	app.Get("/tx/:id", func(c *fiber.Ctx) error {
		if c.Params("id") == "missing" {
			return fiber.NewError(fiber.StatusNotFound, "transaction not found")
		}
		return c.SendStatus(fiber.StatusOK)
	})

	assert.Equal(t, fiber.StatusOK, get(t, app, "/tx/TXN-1", ""))
	assert.Equal(t, fiber.StatusNotFound, get(t, app, "/tx/missing", ""))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/tx/:id", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/tx/:id", "GET", "404")))
}

func TestLoginRateLimit(t *testing.T) {
	app := fiber.New()
	app.Post("/login", LoginRateLimit(newRedis(t), 2, logging.Discard()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	attempt := func(username string) int {
		req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(`{"username":"`+username+`"}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, attempt("alice"))
	assert.Equal(t, fiber.StatusOK, attempt("Alice"))
	assert.Equal(t, fiber.StatusTooManyRequests, attempt("alice"))
	assert.Equal(t, fiber.StatusOK, attempt("bob"))
}

func TestLoginRateLimitWithoutRedisIsNoop(t *testing.T) {
	app := fiber.New()
	app.Post("/login", LoginRateLimit(nil, 1, logging.Discard()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(`{}`))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
}
