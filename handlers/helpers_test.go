package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dealer_hub/cache"
	"dealer_hub/database"
	"dealer_hub/routes"
	"dealer_hub/utils"
)

// newTestApp 内存库 + 完整路由
func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, database.AutoMigrate(db))

	prev := database.GetDB()
	database.SetDB(db)
	cache.SetStore(nil)
	utils.InitJWT("handlers-test-secret-0123456789abcdef", "test")

	t.Cleanup(func() {
		database.SetDB(prev)
		sqlDB.Close()
	})

	app := fiber.New()
	routes.SetupRoutes(app)
	return app, db
}

var userSeq int64

// uniqueName 用户名和 slug 在进程内唯一，避免登录限流器串号
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s%d", prefix, atomic.AddInt64(&userSeq, 1))
}

func request(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// doJSON 发送请求并解析 JSON 响应
func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	resp := request(t, app, method, path, token, body)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

type account struct {
	ID       uint
	Username string
	Password string
	Token    string
}

// registerAndLogin 注册顶级经销商并登录
func registerAndLogin(t *testing.T, app *fiber.App) account {
	t.Helper()

	name := uniqueName("root")
	acc := account{Username: name, Password: "secret123"}
	status, body := doJSON(t, app, http.MethodPost, "/api/dealers/register", "", fiber.Map{
		"name":     "Root " + name,
		"slug":     name,
		"username": acc.Username,
		"password": acc.Password,
	})
	require.Equal(t, http.StatusCreated, status, body)
	acc.ID = uint(body["id"].(float64))
	acc.Token = login(t, app, acc.Username, acc.Password)
	return acc
}

// createChild 在 parent 下创建下级并登录
func createChild(t *testing.T, app *fiber.App, parent account, commission fiber.Map) account {
	t.Helper()

	name := uniqueName("child")
	acc := account{Username: name, Password: "secret123"}
	payload := fiber.Map{
		"name":     "Child " + name,
		"slug":     name,
		"username": acc.Username,
		"password": acc.Password,
	}
	if commission != nil {
		payload["commission"] = commission
	}

	status, body := doJSON(t, app, http.MethodPost, "/api/dealer/sub-dealers", parent.Token, payload)
	require.Equal(t, http.StatusCreated, status, body)
	acc.ID = uint(body["id"].(float64))
	acc.Token = login(t, app, acc.Username, acc.Password)
	return acc
}

func login(t *testing.T, app *fiber.App, username, password string) string {
	t.Helper()

	status, body := doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status, body)
	return body["token"].(string)
}

// completedOrder 下单并完成，返回订单ID和计提结果
func completedOrder(t *testing.T, app *fiber.App, dealer account, total float64) (uint, map[string]interface{}) {
	t.Helper()

	status, body := doJSON(t, app, http.MethodPost, "/api/orders", dealer.Token, fiber.Map{"total": total})
	require.Equal(t, http.StatusCreated, status, body)
	orderID := uint(body["id"].(float64))

	status, body = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/orders/%d/complete", orderID), dealer.Token, nil)
	require.Equal(t, http.StatusOK, status, body)
	commission, _ := body["commission"].(map[string]interface{})
	return orderID, commission
}

func requireAmount(t *testing.T, expected string, value interface{}) {
	t.Helper()

	s, ok := value.(string)
	require.True(t, ok, "amount %v is not a string", value)
	require.True(t, decimal.RequireFromString(expected).Equal(decimal.RequireFromString(s)), "expected %s, got %s", expected, s)
}
