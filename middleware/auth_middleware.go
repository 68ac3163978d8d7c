package middleware

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"dealer_hub/database"
	"dealer_hub/models"
	"dealer_hub/utils"
)

// 写入 c.Locals 的键
const (
	LocalDealerID   = "dealer_id"
	LocalDealerName = "dealer_name"
	LocalToken      = "token"
)

// BearerToken 从 Authorization 头中取出令牌
func BearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") || len(authHeader) <= 7 {
		return "", false
	}
	return authHeader[7:], true
}

// DealerAuthMiddleware 验证经销商身份的中间件
// 令牌需签名有效、存在于 dealer_tokens 且未过期，经销商需未删除且启用
// 认证成功后经销商ID写入 c.Locals(LocalDealerID)
func DealerAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := BearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "未提供有效的认证令牌",
			})
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "无效的认证令牌",
			})
		}

		db := database.GetDB().WithContext(c.UserContext())

		// 检查令牌是否存在于数据库，登出或被踢下线的令牌会被删除
		var token models.DealerToken
		if err := db.Where("token = ? AND dealer_id = ?", tokenString, claims.DealerID).First(&token).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "认证令牌不存在",
				})
			}
			log.Printf("认证中间件 - 验证令牌失败: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "验证认证令牌失败",
			})
		}

		if time.Now().After(token.ExpiredAt) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "认证令牌已过期",
			})
		}

		var dealer models.Dealer
		if err := db.Where("id = ? AND is_active = ? AND deleted_at IS NULL", claims.DealerID, true).First(&dealer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "经销商不存在或已被禁用",
				})
			}
			log.Printf("认证中间件 - 验证经销商身份失败: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "验证经销商身份失败",
			})
		}

		c.Locals(LocalDealerID, dealer.ID)
		c.Locals(LocalDealerName, dealer.Name)
		c.Locals(LocalToken, tokenString)

		return c.Next()
	}
}

// CurrentDealerID 返回已认证的经销商ID
func CurrentDealerID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(LocalDealerID).(uint)
	return id, ok && id != 0
}
