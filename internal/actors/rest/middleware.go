package rest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const callerKey = "caller-id"

// authenticate resolves the bearer token into the caller id before any handler runs.
func (s *Server) authenticate(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		token = ""
	}
	callerID, err := s.users.ResolveCaller(c.Request.Context(), strings.TrimSpace(token))
	if err != nil {
		abortWithError(c, "authenticate", err)
		return
	}
	c.Set(callerKey, callerID)
	c.Next()
}

func caller(c *gin.Context) uuid.UUID {
	id, _ := c.Get(callerKey)
	callerID, _ := id.(uuid.UUID)
	return callerID
}

// requestLogger logs one line per request.
func requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	entry := log.WithField("method", c.Request.Method).
		WithField("path", c.FullPath()).
		WithField("status", c.Writer.Status()).
		WithField("latency", time.Since(start).String())
	if c.Writer.Status() >= http.StatusInternalServerError {
		entry.Error("request served")
		return
	}
	entry.Debug("request served")
}

// LimiterConfig configures the per caller token bucket.
type LimiterConfig struct {
	// RPS is the steady refill rate in tokens per second.
	RPS float64

	// Burst is the bucket size.
	Burst int

	// IdleTTL is how long an unused bucket is kept.
	IdleTTL time.Duration
}

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per key in memory.
type rateLimiter struct {
	conf      LimiterConfig
	mu        sync.Mutex
	buckets   map[string]*keyLimiter
	lastSweep time.Time
	nowFunc   func() time.Time
}

func newRateLimiter(conf LimiterConfig, nowFunc func() time.Time) *rateLimiter {
	if conf.IdleTTL <= 0 {
		conf.IdleTTL = 10 * time.Minute
	}
	return &rateLimiter{
		conf:      conf,
		buckets:   make(map[string]*keyLimiter),
		lastSweep: nowFunc(),
		nowFunc:   nowFunc,
	}
}

func (rl *rateLimiter) allow(key string) bool {
	now := rl.nowFunc()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) > rl.conf.IdleTTL {
		for k, v := range rl.buckets {
			if now.Sub(v.lastSeen) > rl.conf.IdleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &keyLimiter{limiter: rate.NewLimiter(rate.Limit(rl.conf.RPS), rl.conf.Burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// throttleJoins refuses joins above the caller's token bucket rate and daily quota. Only successful
// joins count against the quota.
func (s *Server) throttleJoins(c *gin.Context) {
	if isWithdraw(c) {
		c.Next()
		return
	}
	callerID := caller(c)

	if s.limiter != nil && !s.limiter.allow(callerID.String()) {
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: "rate_limited", Message: "too many requests, please try again later"})
		return
	}
	if s.quota == nil {
		c.Next()
		return
	}

	used, allowed, err := s.quota.Take(c.Request.Context(), callerID)
	if err != nil {
		// quota store down: let the join through
		log.WithError(err).WithField("caller-id", callerID).Warn("error checking join quota")
		c.Next()
		return
	}
	if !allowed {
		s.refundJoin(c, callerID)
		c.Header("X-Quota-Used", fmt.Sprintf("%d/%d", s.quota.Limit(), s.quota.Limit()))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: "quota_exceeded", Message: "daily join quota exceeded"})
		return
	}
	c.Header("X-Quota-Used", fmt.Sprintf("%d/%d", used, s.quota.Limit()))
	c.Next()
	if c.Writer.Status() >= http.StatusMultipleChoices {
		s.refundJoin(c, callerID)
	}
}

func (s *Server) refundJoin(c *gin.Context, callerID uuid.UUID) {
	// the refund must land even when the client already went away
	ctx := context.WithoutCancel(c.Request.Context())
	if err := s.quota.Refund(ctx, callerID); err != nil {
		log.WithError(err).WithField("caller-id", callerID).Warn("error refunding join quota")
	}
}

func isWithdraw(c *gin.Context) bool {
	return c.Request.Method == http.MethodDelete || c.Query("is_withdraw") == "true"
}
