package routes

import (
	"github.com/gofiber/fiber/v2"

	"dealer_hub/handlers"
	"dealer_hub/middleware"
)

// SetupAuthRoutes 设置认证相关路由
// 认证采用JWT令牌并在数据库中登记，支持多设备登录和会话管理
func SetupAuthRoutes(api fiber.Router) {
	auth := api.Group("/auth")

	// 登录不需要认证中间件，成功返回令牌和过期时间
	auth.Post("/login", handlers.DealerLogin)

	// 使当前会话的令牌失效
	auth.Post("/logout", middleware.DealerAuthMiddleware(), handlers.DealerLogout)

	// 使用仍然有效的令牌换取新令牌，旧令牌作废
	auth.Post("/refresh", handlers.RefreshToken)

	auth.Get("/devices", middleware.DealerAuthMiddleware(), handlers.GetLoginDevices)     // 登录设备列表
	auth.Delete("/devices/:id", middleware.DealerAuthMiddleware(), handlers.LogoutDevice) // 下线指定设备
}
