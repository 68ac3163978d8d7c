package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealer_hub/models"
)

func TestLoginFailures(t *testing.T) {
	app, db := newTestApp(t)
	acc := registerAndLogin(t, app)

	status, body := doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"username": acc.Username,
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.EqualValues(t, 4, body["remaining_attempts"])

	status, _ = doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{"username": acc.Username})
	assert.Equal(t, http.StatusBadRequest, status)

	// 停用的账号不能登录
	require.NoError(t, db.Model(&models.Dealer{}).Where("id = ?", acc.ID).Update("is_active", false).Error)
	status, _ = doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"username": acc.Username,
		"password": acc.Password,
	})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestLoginLockout(t *testing.T) {
	app, _ := newTestApp(t)
	acc := registerAndLogin(t, app)

	for i := 0; i < 5; i++ {
		doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
			"username": acc.Username,
			"password": "wrong-password",
		})
	}

	status, body := doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"username": acc.Username,
		"password": acc.Password,
	})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.NotNil(t, body["minutes"])
}

func TestLogoutRevokesToken(t *testing.T) {
	app, _ := newTestApp(t)
	acc := registerAndLogin(t, app)

	status, _ := doJSON(t, app, http.MethodGet, "/api/dealer/hierarchy", acc.Token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/auth/logout", acc.Token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/dealer/hierarchy", acc.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRefreshToken(t *testing.T) {
	app, _ := newTestApp(t)
	acc := registerAndLogin(t, app)

	status, body := doJSON(t, app, http.MethodPost, "/api/auth/refresh", acc.Token, nil)
	require.Equal(t, http.StatusOK, status, body)
	newToken := body["token"].(string)
	assert.NotEqual(t, acc.Token, newToken)

	status, _ = doJSON(t, app, http.MethodGet, "/api/dealer/hierarchy", acc.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/dealer/hierarchy", newToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/auth/refresh", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLoginDevices(t *testing.T) {
	app, _ := newTestApp(t)
	acc := registerAndLogin(t, app)
	second := login(t, app, acc.Username, acc.Password)

	status, body := doJSON(t, app, http.MethodGet, "/api/auth/devices", acc.Token, nil)
	require.Equal(t, http.StatusOK, status)
	devices := body["devices"].([]interface{})
	require.Len(t, devices, 2)

	var otherID float64
	for _, d := range devices {
		device := d.(map[string]interface{})
		if device["current"] == false {
			otherID = device["id"].(float64)
		}
	}
	require.NotZero(t, otherID)

	status, _ = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/auth/devices/%d", int(otherID)), acc.Token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/dealer/hierarchy", second, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/auth/devices/%d", int(otherID)), acc.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
