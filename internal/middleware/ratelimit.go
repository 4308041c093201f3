package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiterConfig holds per-client rate limiting settings.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// ClientIdleTTL is how long an idle client keeps its bucket before
	// eviction.
	ClientIdleTTL time.Duration
}

// DefaultRateLimiterConfig returns the default rate limiting settings.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 10,
		BurstSize:         20,
		ClientIdleTTL:     10 * time.Minute,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter tracks one token bucket per client IP.
type ClientRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	config  RateLimiterConfig
}

// NewClientRateLimiter creates a per-client limiter registry.
func NewClientRateLimiter(config RateLimiterConfig) *ClientRateLimiter {
	if config.ClientIdleTTL <= 0 {
		config.ClientIdleTTL = DefaultRateLimiterConfig().ClientIdleTTL
	}
	return &ClientRateLimiter{
		clients: make(map[string]*clientLimiter),
		config:  config,
	}
}

// GetLimiter returns the bucket for a client, creating one on first sight,
// and refreshes its idle clock.
func (rl *ClientRateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	client, ok := rl.clients[ip]
	if !ok {
		client = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize),
		}
		rl.clients[ip] = client
	}
	client.lastSeen = time.Now()
	return client.limiter
}

// EvictIdle drops buckets idle longer than the TTL and reports how many.
// Without it the map grows by one entry per client ever seen.
func (rl *ClientRateLimiter) EvictIdle() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.config.ClientIdleTTL)
	evicted := 0
	for ip, client := range rl.clients {
		if client.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
			evicted++
		}
	}
	return evicted
}

// RateLimit applies per-client-IP rate limiting with background eviction
// of idle buckets.
func RateLimit(config RateLimiterConfig) gin.HandlerFunc {
	limiter := NewClientRateLimiter(config)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			limiter.EvictIdle()
		}
	}()

	return func(c *gin.Context) {
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// GlobalRateLimit applies one shared bucket to every request through it.
// Used on the import endpoints, where each request is expensive regardless
// of who sends it.
func GlobalRateLimit(requestsPerSecond float64, burstSize int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), burstSize)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
