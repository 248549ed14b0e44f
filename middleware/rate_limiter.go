// middleware/rate_limiter.go
package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type endpointLimit struct {
	limit rate.Limit
	burst int
}

type RateLimiter struct {
	ips            map[string]*rate.Limiter
	blockedIPs     map[string]time.Time
	mu             *sync.RWMutex
	defaultLimit   rate.Limit
	defaultBurst   int
	blockDuration  time.Duration
	endpointLimits map[string]endpointLimit
}

func NewRateLimiter() *RateLimiter {
	limiter := &RateLimiter{
		ips:            make(map[string]*rate.Limiter),
		blockedIPs:     make(map[string]time.Time),
		mu:             &sync.RWMutex{},
		defaultLimit:   rate.Every(100 * time.Millisecond), // 10 requests per second
		defaultBurst:   20,
		blockDuration:  5 * time.Minute,
		endpointLimits: make(map[string]endpointLimit),
	}

	// Webhook deliveries arrive in bursts when the provider flushes its
	// retry queue; allow more headroom there.
	limiter.endpointLimits["/webhooks/billing/invoice-paid"] = endpointLimit{
		limit: rate.Every(20 * time.Millisecond), // 50 requests per second
		burst: 100,
	}

	// Dashboard aggregation queries are more expensive than a point read.
	limiter.endpointLimits["/api/partners/:id/conversion-analytics"] = endpointLimit{
		limit: rate.Every(500 * time.Millisecond), // 2 requests per second
		burst: 5,
	}

	go limiter.cleanupBlockedIPs()

	return limiter
}

func (rl *RateLimiter) cleanupBlockedIPs() {
	for {
		time.Sleep(time.Minute)
		rl.sweepExpiredBlocks(time.Now())
	}
}

// sweepExpiredBlocks unblocks IPs whose penalty has elapsed and drops their
// limiter state. Limiters are keyed by ip+path, so every key carrying the IP
// has to go; the path always starts with "/", which keeps the prefix match
// from catching longer IPs that merely share digits.
func (rl *RateLimiter) sweepExpiredBlocks(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, blockedAt := range rl.blockedIPs {
		if now.Sub(blockedAt) > rl.blockDuration {
			delete(rl.blockedIPs, ip)
			for key := range rl.ips {
				if strings.HasPrefix(key, ip+"/") {
					delete(rl.ips, key)
				}
			}
		}
	}
}

func (rl *RateLimiter) getLimiter(ip, path string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := ip + path
	limiter, exists := rl.ips[key]
	if !exists {
		limit := rl.defaultLimit
		burst := rl.defaultBurst
		if el, ok := rl.endpointLimits[path]; ok {
			limit = el.limit
			burst = el.burst
		}
		limiter = rate.NewLimiter(limit, burst)
		rl.ips[key] = limiter
	}
	return limiter
}

// RateLimit enforces per-IP, per-endpoint limits and temporarily blocks IPs
// that keep hammering after being limited.
func (rl *RateLimiter) RateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			rl.mu.RLock()
			blockedAt, blocked := rl.blockedIPs[ip]
			rl.mu.RUnlock()
			if blocked && time.Since(blockedAt) < rl.blockDuration {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"message": "Too many requests, try again later",
				})
			}

			limiter := rl.getLimiter(ip, c.Path())
			if !limiter.Allow() {
				rl.mu.Lock()
				rl.blockedIPs[ip] = time.Now()
				rl.mu.Unlock()
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"message": "Rate limit exceeded",
				})
			}

			return next(c)
		}
	}
}
