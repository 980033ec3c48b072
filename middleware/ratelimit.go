package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pongarena/server/errcode"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL  = 10 * time.Minute
	limiterSweepGap = 5 * time.Minute
)

type clientLimiter struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// RateLimit applies a per-client token bucket keyed by request IP.
// Limits are generous for normal play; they exist to blunt credential
// stuffing against login and register.
func RateLimit(r rate.Limit, burst int) gin.HandlerFunc {
	var (
		mu      sync.Mutex
		clients = make(map[string]*clientLimiter)
	)

	// Sweep idle clients so the map does not grow with every IP that
	// ever connected.
	go func() {
		for range time.Tick(limiterSweepGap) {
			mu.Lock()
			for ip, cl := range clients {
				if time.Since(cl.lastSeen) > limiterIdleTTL {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		cl, ok := clients[ip]
		if !ok {
			cl = &clientLimiter{bucket: rate.NewLimiter(r, burst)}
			clients[ip] = cl
		}
		cl.lastSeen = time.Now()
		allowed := cl.bucket.Allow()
		mu.Unlock()

		if !allowed {
			abortWith(c, errcode.ErrRateLimited)
			return
		}
		c.Next()
	}
}
