package routes

import (
	"github.com/gofiber/fiber/v2"

	"dealer_hub/handlers"
	"dealer_hub/middleware"
)

// SetupOrderRoutes 设置订单路由
func SetupOrderRoutes(api fiber.Router) {
	orders := api.Group("/orders", middleware.DealerAuthMiddleware())

	orders.Post("/", handlers.CreateOrder)
	orders.Get("/", handlers.ListOrders)
	orders.Put("/:id/complete", handlers.CompleteOrder)                 // 完成订单并计提佣金
	orders.Post("/:id/commission", handlers.RecalculateOrderCommission) // 重新计提
}
