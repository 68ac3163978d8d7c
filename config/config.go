// Package config 提供应用程序配置和初始化功能
// 该包负责处理应用程序的配置加载、初始化和服务器设置等核心功能
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"dealer_hub/database"
)

// Config 应用配置，启动时从 .env 和环境变量读取一次
type Config struct {
	ServerPort string
	Env        string
	JWTSecret  string

	DB database.Options

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	StatsCacheTTL time.Duration // 佣金统计缓存有效期

	CORSAllowedOrigins string
	RateLimitRPS       float64 // 每个IP每秒请求数
	RateLimitBurst     int
}

// Load 加载 .env 文件并读取配置
// .env 不存在时只打印警告，继续使用系统环境变量
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("警告: 未找到.env文件，将使用系统环境变量: %v", err)
	}

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		Env:        getEnv("ENV", "development"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		DB: database.Options{
			Driver:   getEnv("DB_DRIVER", database.DriverMySQL),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     os.Getenv("DB_PORT"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "dealer_hub"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		StatsCacheTTL:      getEnvDuration("STATS_CACHE_TTL", 5*time.Minute),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		RateLimitRPS:       getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 20),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("环境变量 %s 不是有效整数(%q)，使用默认值 %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("环境变量 %s 不是有效数字(%q)，使用默认值 %v", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("环境变量 %s 不是有效时长(%q)，使用默认值 %s", key, v, fallback)
		return fallback
	}
	return d
}
