package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v2"
	"golang.org/x/time/rate"
	"go.uber.org/zap"
)

type RateLimiterConfig struct {
	RequestsPerSecond int
	Burst             int
	// How long an idle client's limiter is kept
	TTL time.Duration
}

type visitors struct {
	mu    sync.Mutex
	cache *ttlcache.Cache
	rps   int
	burst int
}

func (v *visitors) get(ip string) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()

	if l, err := v.cache.Get(ip); err == nil {
		return l.(*rate.Limiter)
	}

	l := rate.NewLimiter(rate.Limit(v.rps), v.burst)
	if err := v.cache.Set(ip, l); err != nil {
		zap.L().Warn("Failed to store rate limiter", zap.String("ip", ip), zap.Error(err))
	}

	return l
}

// RateLimiterMiddleware limits requests per client IP. The returned function
// releases the visitor cache.
func RateLimiterMiddleware(config RateLimiterConfig) (gin.HandlerFunc, func()) {
	if config.TTL == 0 {
		config.TTL = 3 * time.Minute
	}
	if config.Burst == 0 {
		config.Burst = config.RequestsPerSecond * 2
	}

	cache := ttlcache.NewCache()
	cache.SetTTL(config.TTL)

	v := &visitors{
		cache: cache,
		rps:   config.RequestsPerSecond,
		burst: config.Burst,
	}

	return func(c *gin.Context) {
		if !v.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":     "Too many requests",
				"requestID": c.GetString("requestID"),
			})
			return
		}

		c.Next()
	}, func() { cache.Close() }
}
