// Package middleware file: internal/transport/http/middleware/limiter.go
package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"GridAegis/internal/core/domain"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL         = 15 * time.Minute
	limiterCleanupInterval = 10 * time.Minute
)

// IPRateLimiter 按客户端 IP 限制请求速率。不活跃的 IP 条目由缓存自动过期清理。
type IPRateLimiter struct {
	limiters *cache.Cache
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewIPRateLimiter 创建一个新的IP速率限制器。RateLimitPerMinute 为 0 时不限制。
func NewIPRateLimiter(setting domain.IPLimitSetting) *IPRateLimiter {
	l := &IPRateLimiter{
		limiters: cache.New(limiterIdleTTL, limiterCleanupInterval),
		rate:     rate.Limit(setting.RateLimitPerMinute / 60.0),
		burst:    setting.BurstSize,
	}
	if setting.RateLimitPerMinute <= 0 {
		l.rate = rate.Inf
	}
	if l.burst <= 0 {
		l.burst = 1
	}
	slog.Info("IP 速率限制器初始化完成", "rate_per_minute", setting.RateLimitPerMinute, "burst", l.burst)
	return l
}

// getLimiter 返回或创建指定IP的速率限制器，每次访问都会刷新过期时间
func (l *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if x, found := l.limiters.Get(ip); found {
		limiter := x.(*rate.Limiter)
		l.limiters.Set(ip, limiter, cache.DefaultExpiration)
		return limiter
	}
	limiter := rate.NewLimiter(l.rate, l.burst)
	l.limiters.Set(ip, limiter, cache.DefaultExpiration)
	return limiter
}

// Middleware 返回 gin 中间件
func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.getLimiter(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "请求过于频繁，请稍后再试。"})
			return
		}
		c.Next()
	}
}
