package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowPerIP(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	defer rl.Stop()

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	// 各IP独立计数
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	defer rl.Stop()
	assert.EqualValues(t, 10, rl.limit)
	assert.Equal(t, 20, rl.burst)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()
	rl.Allow("10.0.0.1")

	rl.cleanup(time.Now())
	assert.Len(t, rl.visitors, 1)

	rl.cleanup(time.Now().Add(11 * time.Minute))
	assert.Empty(t, rl.visitors)
}

func TestRateLimiter_Stop(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Stop()
	rl.Stop()

	select {
	case <-rl.done:
	case <-time.After(time.Second):
		t.Fatal("清理协程未退出")
	}

	// 停止后仍可限流
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiter_Handler(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()

	app := fiber.New()
	app.Use(rl.Handler())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
