package weave

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the built-in "ratelimit" hook.
type RateLimitConfig struct {
	// RequestsPerSecond is the steady-state rate per client.
	RequestsPerSecond float64
	// Burst is the short-term allowance per client.
	Burst int
	// TTL bounds how long an idle client's limiter is remembered.
	TTL time.Duration
}

// DefaultRateLimitConfig allows 10 rps with a burst of 20 per client IP.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		Burst:             20,
		TTL:               10 * time.Minute,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitHook is a per-client token bucket. Exhausted clients get a 429
// and the pipeline halts. Registered under the name "ratelimit".
type RateLimitHook struct {
	mu      sync.Mutex
	config  RateLimitConfig
	clients map[string]*clientLimiter
	sweep   time.Time
}

// NewRateLimitHook creates a rate limit hook with the given config.
func NewRateLimitHook(config RateLimitConfig) *RateLimitHook {
	return &RateLimitHook{
		config:  config,
		clients: make(map[string]*clientLimiter),
		sweep:   time.Now(),
	}
}

// Handle consumes one token for the client, answering 429 and halting when
// the bucket is empty.
func (h *RateLimitHook) Handle(c *Context) error {
	key := clientKey(c)

	h.mu.Lock()
	now := time.Now()
	cl, ok := h.clients[key]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(h.config.RequestsPerSecond), h.config.Burst),
		}
		h.clients[key] = cl
	}
	cl.lastSeen = now

	if now.Sub(h.sweep) > h.config.TTL {
		for k, v := range h.clients {
			if now.Sub(v.lastSeen) > h.config.TTL {
				delete(h.clients, k)
			}
		}
		h.sweep = now
	}
	limiter := cl.limiter
	h.mu.Unlock()

	if !limiter.Allow() {
		c.SetHeader("Retry-After", "1")
		c.StatusWithString(http.StatusTooManyRequests, "429 Too Many Requests")
		c.Halt()
	}
	return nil
}

func clientKey(c *Context) string {
	host, _, err := net.SplitHostPort(c.RemoteIP())
	if err != nil {
		return c.RemoteIP()
	}
	return host
}
