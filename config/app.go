package config

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"dealer_hub/cache"
	"dealer_hub/database"
	"dealer_hub/middleware"
	"dealer_hub/routes"
	"dealer_hub/utils"
)

// InitApp 初始化整个应用程序
// 该函数是应用程序启动的核心，负责：
// 1. 设置JWT签名密钥
// 2. 初始化数据库连接并执行迁移
// 3. 连接Redis并启用佣金统计缓存
func InitApp(cfg *Config) {
	utils.InitJWT(cfg.JWTSecret, cfg.Env)

	// 如果数据库连接失败，程序将终止
	database.Init(cfg.DB)

	// 确保所有必要的表和结构都存在
	database.Migrate()

	if rdb := ConnectRedis(cfg); rdb != nil {
		cache.SetStore(cache.NewRedisStore(rdb, cfg.StatsCacheTTL))
	}

	log.Println("应用程序初始化完成")
}

// SetupApp 创建并配置Fiber应用实例
// 该函数负责：
// 1. 创建新的Fiber实例
// 2. 配置全局中间件
// 3. 设置路由
// 返回配置完成的Fiber实例
func SetupApp(cfg *Config) *fiber.App {
	app := fiber.New(fiber.Config{
		// 启用案例敏感的路由
		CaseSensitive: true,
		// 服务器名称
		ServerHeader: "Dealer Hub",
		// 限制请求体大小为10MB
		BodyLimit: 10 * 1024 * 1024,
		// 自定义错误处理
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// 默认错误码为500
			code := fiber.StatusInternalServerError

			// 如果是Fiber的错误，使用其状态码
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			return c.Status(code).JSON(fiber.Map{
				"error": true,
				"msg":   err.Error(),
			})
		},
		// 使用标准JSON编解码器，确保正确处理UTF-8字符
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		Immutable:    true,
		AppName:      "Dealer Hub API",
		ReadTimeout:  60 * time.Second, // 读取超时时间，防止慢客户端攻击
		WriteTimeout: 60 * time.Second, // 写入超时时间，导出文件需要留出时间
		IdleTimeout:  60 * time.Second,
	})

	app.Use(logger.New(logger.Config{
		Format:     "${time} ${status} - ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		Output:     os.Stdout,
	}))

	// 防止应用因panic而崩溃
	app.Use(recover.New())

	// 通配来源时浏览器不接受携带凭证
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: cfg.CORSAllowedOrigins != "*",
		ExposeHeaders:    "Content-Disposition",
		MaxAge:           int(12 * time.Hour.Seconds()),
	}))

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	app.Hooks().OnShutdown(func() error {
		limiter.Stop()
		return nil
	})
	app.Use(limiter.Handler())

	// 所有的API路由都以/api为前缀
	routes.SetupRoutes(app)

	log.Println("Fiber应用已创建，路由已设置")

	return app
}
