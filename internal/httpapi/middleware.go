package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/lueurxax/support-kpi/internal/platform/observability"
)

const (
	headerRequestID = "X-Request-ID"
	headerAdminKey  = "X-Admin-API-Key"
	bearerPrefix    = "Bearer "

	ctxKeyRequestID = "request_id"

	maxRequestIDLen  = 64
	limiterIdleAfter = 10 * time.Minute
	routeUnmatched   = "unmatched"
)

// requestID keeps a caller supplied X-Request-ID or assigns a new one.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}

		c.Set(ctxKeyRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()

		event := s.logger.Debug()
		if status >= http.StatusInternalServerError {
			event = s.logger.Warn()
		}

		event.
			Str(logFieldRequestID, c.GetString(ctxKeyRequestID)).
			Str(logFieldRoute, routeOf(c)).
			Int(logFieldStatus, status).
			Dur(logFieldLatency, time.Since(start)).
			Str(logFieldClientIP, c.ClientIP()).
			Msg("http request")
	}
}

func (s *Server) countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		observability.HTTPRequests.WithLabelValues(routeOf(c), strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// routeOf returns the route template so metric labels stay bounded.
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}

	return routeUnmatched
}

// requireAdminToken guards admin and reporting routes. Without a configured
// token those routes are unavailable.
func (s *Server) requireAdminToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.AdminAPIToken == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "admin API not configured"})

			return
		}

		token := c.GetHeader(headerAdminKey)
		if token == "" {
			token = strings.TrimPrefix(c.GetHeader("Authorization"), bearerPrefix)
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminAPIToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid or missing API key"})

			return
		}

		c.Next()
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "rate limit exceeded"})

			return
		}

		c.Next()
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client IP. Idle buckets are dropped
// on access so the map stays bounded by active clients.
type ipLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

func newIPLimiter(rps float64, burst int) *ipLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}

	if burst <= 0 {
		burst = 1
	}

	return &ipLimiter{
		limiters:  make(map[string]*limiterEntry),
		limit:     limit,
		burst:     burst,
		lastSweep: time.Now(),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	if now.Sub(l.lastSweep) > limiterIdleAfter {
		for key, e := range l.limiters {
			if now.Sub(e.lastSeen) > limiterIdleAfter {
				delete(l.limiters, key)
			}
		}

		l.lastSweep = now
	}

	e, ok := l.limiters[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = e
	}

	e.lastSeen = now

	return e.limiter.Allow()
}
