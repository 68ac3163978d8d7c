package config

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// ConnectRedis 连接Redis，未配置地址或连接失败时返回 nil
// 返回 nil 时统计缓存退化为空实现
func ConnectRedis(cfg *Config) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Println("未设置REDIS_ADDR，佣金统计缓存已禁用")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("警告: Redis连接失败: %v，佣金统计缓存已禁用", err)
		_ = client.Close()
		return nil
	}

	log.Printf("已连接到Redis: %s", cfg.RedisAddr)
	return client
}
