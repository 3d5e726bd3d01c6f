package api

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// idle clients are forgotten after this long
const clientLimiterTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type clientLimiters struct {
	mu      sync.Mutex
	rps     int
	clients map[string]*clientLimiter
	swept   time.Time
}

func (l *clientLimiters) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) > clientLimiterTTL {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > clientLimiterTTL {
				delete(l.clients, k)
			}
		}
		l.swept = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(l.rps), l.rps)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter
}

// RateLimitMiddleware gives every client IP its own token bucket of rps requests per
// second. Rejected requests get a 429 with Retry-After in whole seconds.
func RateLimitMiddleware(rps int) gin.HandlerFunc {
	if rps <= 0 {
		rps = 1
	}
	limiters := &clientLimiters{rps: rps, clients: make(map[string]*clientLimiter)}

	return func(c *gin.Context) {
		now := time.Now()
		res := limiters.get(c.ClientIP(), now).ReserveN(now, 1)
		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
