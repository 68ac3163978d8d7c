package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 按客户端IP限流
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewRateLimiter 每个IP每秒 rps 个请求，允许 burst 突发
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = 20
	}
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      10 * time.Minute,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	go rl.cleanupRoutine()

	return rl
}

// Stop 停止清理协程
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *RateLimiter) cleanupRoutine() {
	defer close(r.done)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			r.cleanup(now)
		case <-r.stop:
			return
		}
	}
}

// cleanup 删除长时间没有请求的IP
func (r *RateLimiter) cleanup(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for ip, v := range r.visitors {
		if now.Sub(v.lastSeen) > r.ttl {
			delete(r.visitors, ip)
		}
	}
}

// Allow 判断该IP本次请求是否放行
func (r *RateLimiter) Allow(ip string) bool {
	r.mu.Lock()
	v, exists := r.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	r.mu.Unlock()

	return v.limiter.Allow()
}

// Handler 返回 fiber 中间件
func (r *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !r.Allow(c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "请求过于频繁，请稍后再试",
			})
		}
		return c.Next()
	}
}
