// Package cache 提供统计数据的读穿缓存
// Redis 不可用时退化为空实现，调用方直接读库
package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// Store 缓存读写接口
type Store interface {
	// Get 读取缓存，未命中时 ok 为 false
	Get(ctx context.Context, key string) (value []byte, ok bool)
	Set(ctx context.Context, key string, value []byte)
	Delete(ctx context.Context, keys ...string)
}

// CommissionStatsKey 上级经销商佣金统计的缓存键
func CommissionStatsKey(parentDealerID uint) string {
	return fmt.Sprintf("commission_stats:%d", parentDealerID)
}

var store Store = NopStore{}

// GetStore 返回全局缓存实例
func GetStore() Store {
	return store
}

// SetStore 设置全局缓存实例，传入 nil 时恢复为空实现
func SetStore(s Store) {
	if s == nil {
		s = NopStore{}
	}
	store = s
}

// NopStore 空缓存，永远未命中
type NopStore struct{}

func (NopStore) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (NopStore) Set(context.Context, string, []byte)        {}
func (NopStore) Delete(context.Context, ...string)          {}

// RedisStore 基于 Redis 的缓存
// 读写失败只记录日志，不影响业务结果
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore 创建 Redis 缓存
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("读取缓存失败 key=%s: %v", key, err)
		}
		return nil, false
	}
	return val, true
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) {
	if err := s.rdb.Set(ctx, key, value, s.ttl).Err(); err != nil {
		log.Printf("写入缓存失败 key=%s: %v", key, err)
	}
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("删除缓存失败 keys=%v: %v", keys, err)
	}
}
