// rate_limiter.go - Per-client rate limiting for the prover daemon
package main

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"shieldedactions/internal/prover"
)

// ClientRateLimiter keeps one token bucket per client key.
type ClientRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientRateLimiter allows perSecond requests per client with the given burst.
// A non-positive perSecond disables limiting.
func NewClientRateLimiter(perSecond float64, burst int) *ClientRateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &ClientRateLimiter{
		limiters: make(map[string]*clientLimiter),
		limit:    limit,
		burst:    burst,
		idleTTL:  10 * time.Minute,
	}
}

// Allow checks if a request from a client is allowed and consumes a token if so
func (rl *ClientRateLimiter) Allow(client string) bool {
	return rl.get(client).Allow()
}

// Tokens returns the tokens currently available to a client
func (rl *ClientRateLimiter) Tokens(client string) float64 {
	rl.mu.Lock()
	cl, exists := rl.limiters[client]
	rl.mu.Unlock()

	if !exists {
		return float64(rl.burst)
	}
	return cl.limiter.Tokens()
}

// Prune drops buckets of clients idle for longer than the TTL
func (rl *ClientRateLimiter) Prune(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	n := 0
	for k, cl := range rl.limiters {
		if now.Sub(cl.lastSeen) > rl.idleTTL {
			delete(rl.limiters, k)
			n++
		}
	}
	return n
}

func (rl *ClientRateLimiter) get(client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, exists := rl.limiters[client]
	if !exists {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[client] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter
}

// Middleware refuses requests over the client's budget with 429. When a limit is set,
// X-RateLimit-Remaining carries the whole tokens left.
func (rl *ClientRateLimiter) Middleware(onLimited func()) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.ClientIP()
		allowed := rl.Allow(client)
		if rl.limit != rate.Inf {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(int(math.Max(0, rl.Tokens(client)))))
		}
		if !allowed {
			if onLimited != nil {
				onLimited()
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, prover.ErrorResponse{Error: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
