package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/walletledger/internal/logging"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })
	return cache
}

func setupIdempotentApp(t *testing.T, status int) (*fiber.App, *int) {
	t.Helper()
	calls := 0
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(localUserID, c.Get("X-User"))
		return c.Next()
	})
	app.Use(Idempotency(newRedis(t), time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error {
		calls++
		return c.Status(status).JSON(fiber.Map{"call": calls})
	})
	return app, &calls
}

func post(t *testing.T, app *fiber.App, user, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/resource", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set("X-User", user)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	app, calls := setupIdempotentApp(t, fiber.StatusCreated)
	status, _ := post(t, app, "USR-1", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Zero(t, *calls)
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls := setupIdempotentApp(t, fiber.StatusCreated)

	status, first := post(t, app, "USR-1", "abc123")
	require.Equal(t, fiber.StatusCreated, status)

	status, second := post(t, app, "USR-1", "abc123")
	assert.Equal(t, fiber.StatusCreated, status)
	assert.JSONEq(t, first, second)
	assert.Equal(t, 1, *calls)
}

func TestIdempotencyKeysAreScopedPerCaller(t *testing.T) {
	app, calls := setupIdempotentApp(t, fiber.StatusCreated)

	post(t, app, "USR-1", "same")
	post(t, app, "USR-2", "same")
	assert.Equal(t, 2, *calls)
}

func TestIdempotencyDoesNotCacheFailures(t *testing.T) {
	app, calls := setupIdempotentApp(t, fiber.StatusUnprocessableEntity)

	post(t, app, "USR-1", "retry-me")
	post(t, app, "USR-1", "retry-me")
	assert.Equal(t, 2, *calls)
}
