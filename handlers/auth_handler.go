package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"dealer_hub/database"
	"dealer_hub/middleware"
	"dealer_hub/models"
	"dealer_hub/utils"
)

// tokenTTL 登录令牌有效期
const tokenTTL = 24 * time.Hour

// issueToken 签发令牌并记录登录设备
func issueToken(c *fiber.Ctx, db *gorm.DB, dealer *models.Dealer, userAgent string) (string, time.Time, error) {
	token, err := utils.GenerateToken(dealer.ID, dealer.Username, tokenTTL)
	if err != nil {
		return "", time.Time{}, err
	}

	expireTime := time.Now().Add(tokenTTL)
	record := models.DealerToken{
		DealerID:  dealer.ID,
		Token:     token,
		UserAgent: userAgent,
		IP:        c.IP(),
		ExpiredAt: expireTime,
	}
	if err := db.Create(&record).Error; err != nil {
		return "", time.Time{}, err
	}
	return token, expireTime, nil
}

// purgeExpiredTokens 懒惰删除：清理该经销商的过期令牌
func purgeExpiredTokens(db *gorm.DB, dealerID uint) {
	if err := db.Where("dealer_id = ? AND expired_at < ?", dealerID, time.Now()).Delete(&models.DealerToken{}).Error; err != nil {
		log.Printf("删除过期令牌失败: %v", err)
	}
}

func handleLoginFailure(c *fiber.Ctx, username string, reason string) error {
	isLocked, minutes := utils.DefaultLoginLimiter.RecordFailedLogin(username)

	log.Printf("登录失败，原因: %s, 用户名: %s", reason, username)

	if isLocked {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "登录尝试次数过多，账号已被临时锁定",
			"minutes": minutes,
		})
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":              "用户名或密码错误",
		"remaining_attempts": utils.DefaultLoginLimiter.GetRemainingAttempts(username),
	})
}

// DealerLogin 经销商登录
// 连续失败5次锁定15分钟，成功后签发24小时有效的令牌
func DealerLogin(c *fiber.Ctx) error {
	var loginData struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&loginData); err != nil {
		return badBody(c)
	}

	if loginData.Username == "" || loginData.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "用户名和密码不能为空",
		})
	}

	if isLocked, remainingMinutes := utils.DefaultLoginLimiter.IsLocked(loginData.Username); isLocked {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":   "登录尝试次数过多，账号已被临时锁定",
			"minutes": remainingMinutes,
		})
	}

	db := database.GetDB().WithContext(c.UserContext())

	var dealer models.Dealer
	if err := db.Where("username = ? AND deleted_at IS NULL", loginData.Username).First(&dealer).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("查询经销商失败: %v", err)
			return serverError(c, "登录失败，请稍后重试")
		}
		// 不泄露用户是否存在
		return handleLoginFailure(c, loginData.Username, "用户名不存在")
	}

	if !dealer.CheckPassword(loginData.Password) {
		return handleLoginFailure(c, loginData.Username, "密码错误")
	}

	if !dealer.IsActive {
		log.Printf("登录失败，账号已停用: %s", loginData.Username)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "账号已被禁用，请联系上级经销商",
		})
	}

	utils.DefaultLoginLimiter.ResetAttempts(loginData.Username)
	purgeExpiredTokens(db, dealer.ID)

	token, expireTime, err := issueToken(c, db, &dealer, c.Get("User-Agent"))
	if err != nil {
		log.Printf("签发令牌失败: %v", err)
		return serverError(c, "登录失败，请稍后重试")
	}

	now := time.Now()
	if err := db.Model(&dealer).Update("last_login_at", now).Error; err != nil {
		log.Printf("更新最后登录时间失败: %v", err)
	}

	log.Printf("经销商登录成功: %s, ID: %d", dealer.Username, dealer.ID)

	return c.JSON(fiber.Map{
		"message":    "登录成功",
		"token":      token,
		"expires_at": expireTime.Unix(),
		"data": fiber.Map{
			"id":              dealer.ID,
			"username":        dealer.Username,
			"name":            dealer.Name,
			"slug":            dealer.Slug,
			"hierarchy_level": dealer.HierarchyLevel,
		},
	})
}

// RefreshToken 刷新认证令牌
// 旧令牌必须仍然有效，新令牌签发后旧令牌立即删除
func RefreshToken(c *fiber.Ctx) error {
	tokenString, ok := middleware.BearerToken(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
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

	var token models.DealerToken
	if err := db.Where("token = ? AND dealer_id = ?", tokenString, claims.DealerID).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "认证令牌不存在",
			})
		}
		log.Printf("查询令牌失败: %v", err)
		return serverError(c, "验证认证令牌失败")
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
		log.Printf("查询经销商失败: %v", err)
		return serverError(c, "验证经销商身份失败")
	}

	purgeExpiredTokens(db, dealer.ID)

	newToken, expireTime, err := issueToken(c, db, &dealer, token.UserAgent)
	if err != nil {
		log.Printf("签发新令牌失败: %v", err)
		return serverError(c, "刷新令牌失败，请稍后重试")
	}

	// 旧令牌作废，防止重放
	if err := db.Delete(&token).Error; err != nil {
		log.Printf("删除旧令牌失败: %v", err)
	}

	return c.JSON(fiber.Map{
		"message":    "刷新令牌成功",
		"token":      newToken,
		"expires_at": expireTime.Unix(),
	})
}

// DealerLogout 删除当前会话的令牌
func DealerLogout(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}
	tokenString, _ := c.Locals(middleware.LocalToken).(string)

	db := database.GetDB().WithContext(c.UserContext())
	if err := db.Where("token = ? AND dealer_id = ?", tokenString, dealerID).Delete(&models.DealerToken{}).Error; err != nil {
		log.Printf("删除令牌失败: %v", err)
		return serverError(c, "登出失败，请稍后重试")
	}

	return c.JSON(fiber.Map{
		"message": "登出成功",
	})
}

// GetLoginDevices 列出当前经销商所有未过期的登录设备
func GetLoginDevices(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}
	currentToken, _ := c.Locals(middleware.LocalToken).(string)

	var tokens []models.DealerToken
	if err := database.GetDB().WithContext(c.UserContext()).
		Where("dealer_id = ? AND expired_at > ?", dealerID, time.Now()).
		Order("created_at DESC").
		Find(&tokens).Error; err != nil {
		log.Printf("查询登录设备失败: %v", err)
		return serverError(c, "查询登录设备失败，请稍后重试")
	}

	devices := make([]fiber.Map, 0, len(tokens))
	for _, token := range tokens {
		devices = append(devices, fiber.Map{
			"id":         token.ID,
			"user_agent": token.UserAgent,
			"ip":         token.IP,
			"current":    token.Token == currentToken,
			"created_at": token.CreatedAt,
			"expired_at": token.ExpiredAt,
		})
	}

	return c.JSON(fiber.Map{
		"devices": devices,
	})
}

// LogoutDevice 使当前经销商的某个登录设备下线
func LogoutDevice(c *fiber.Ctx) error {
	dealerID, ok := middleware.CurrentDealerID(c)
	if !ok {
		return unauthorized(c)
	}

	deviceID, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "设备ID")
	}

	result := database.GetDB().WithContext(c.UserContext()).
		Where("id = ? AND dealer_id = ?", deviceID, dealerID).
		Delete(&models.DealerToken{})
	if result.Error != nil {
		log.Printf("登出设备失败: %v", result.Error)
		return serverError(c, "登出设备失败，请稍后重试")
	}

	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "设备不存在或不属于当前经销商",
		})
	}

	return c.JSON(fiber.Map{
		"message": "设备登出成功",
	})
}
