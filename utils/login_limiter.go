package utils

import (
	"sync"
	"time"
)

// LoginAttemptInfo 登录尝试信息
type LoginAttemptInfo struct {
	Count     int       // 尝试次数
	LastTry   time.Time // 最后一次尝试时间
	LockUntil time.Time // 锁定截止时间
}

// LoginLimiter 登录限制器
// 按用户名统计连续失败次数，达到上限后锁定一段时间
type LoginLimiter struct {
	attempts      map[string]*LoginAttemptInfo
	mutex         sync.RWMutex
	maxAttempts   int
	lockDuration  time.Duration
	cleanInterval time.Duration
	now           func() time.Time
	stop          chan struct{}
	stopOnce      sync.Once
}

// NewLoginLimiter 创建登录限制器并启动过期记录清理协程
func NewLoginLimiter(maxAttempts int, lockDuration, cleanInterval time.Duration) *LoginLimiter {
	limiter := &LoginLimiter{
		attempts:      make(map[string]*LoginAttemptInfo),
		maxAttempts:   maxAttempts,
		lockDuration:  lockDuration,
		cleanInterval: cleanInterval,
		now:           time.Now,
		stop:          make(chan struct{}),
	}

	go limiter.cleanupRoutine()

	return limiter
}

// SetClock 替换时间来源，测试中用来模拟锁定到期
func (l *LoginLimiter) SetClock(now func() time.Time) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.now = now
}

// Stop 停止清理协程
func (l *LoginLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *LoginLimiter) cleanupRoutine() {
	ticker := time.NewTicker(l.cleanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stop:
			return
		}
	}
}

// cleanup 锁定已过期且超过24小时没有尝试的记录会被删除
func (l *LoginLimiter) cleanup() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := l.now()
	for username, attempt := range l.attempts {
		if now.After(attempt.LockUntil) && now.Sub(attempt.LastTry) > 24*time.Hour {
			delete(l.attempts, username)
		}
	}
}

// RecordFailedLogin 记录登录失败
// 返回是否被锁定及锁定时长（分钟）
func (l *LoginLimiter) RecordFailedLogin(username string) (bool, int) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := l.now()

	attempt, exists := l.attempts[username]
	if !exists || (!attempt.LockUntil.IsZero() && now.After(attempt.LockUntil)) {
		// 上一轮锁定已结束，重新计数
		attempt = &LoginAttemptInfo{}
		l.attempts[username] = attempt
	}

	attempt.Count++
	attempt.LastTry = now

	if attempt.Count >= l.maxAttempts {
		attempt.LockUntil = now.Add(l.lockDuration)
		return true, int(l.lockDuration.Minutes())
	}

	return false, 0
}

// IsLocked 检查账号是否被锁定
// 返回是否被锁定及锁定剩余时间（分钟）
func (l *LoginLimiter) IsLocked(username string) (bool, int) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	attempt, exists := l.attempts[username]
	if !exists {
		return false, 0
	}

	now := l.now()
	if now.Before(attempt.LockUntil) {
		return true, int(attempt.LockUntil.Sub(now).Minutes()) + 1
	}

	return false, 0
}

// ResetAttempts 登录成功后清除记录
func (l *LoginLimiter) ResetAttempts(username string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	delete(l.attempts, username)
}

// GetRemainingAttempts 获取剩余尝试次数
func (l *LoginLimiter) GetRemainingAttempts(username string) int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	attempt, exists := l.attempts[username]
	if !exists {
		return l.maxAttempts
	}
	if !attempt.LockUntil.IsZero() && l.now().After(attempt.LockUntil) {
		return l.maxAttempts
	}

	remaining := l.maxAttempts - attempt.Count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// DefaultLoginLimiter 默认的登录限制器
// 最多失败5次，锁定15分钟，每小时清理一次
var DefaultLoginLimiter = NewLoginLimiter(5, 15*time.Minute, time.Hour)
