package web

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	appLog "intentcal/internal/log"
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestIDMiddleware reuses a valid incoming X-Request-ID or assigns a
// fresh UUID.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

const (
	// clientIdleTTL is how long an unseen client keeps its limiter.
	clientIdleTTL = 10 * time.Minute
	// maxClients caps tracked addresses; the least recently seen is evicted.
	maxClients = 10000
)

// RateLimiter limits requests per client address.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	every     rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perSecond requests per client with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = 10
	}
	if burst <= 0 {
		burst = 20
	}
	return &RateLimiter{
		clients: make(map[string]*client),
		every:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
	}
}

// getLimiter gets or creates a limiter for the given key, dropping idle
// clients along the way.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= clientIdleTTL/10 {
		rl.sweep(now)
	}

	if c, ok := rl.clients[key]; ok {
		c.lastSeen = now
		return c.limiter
	}
	if len(rl.clients) >= maxClients {
		rl.evictOldest()
	}
	c := &client{limiter: rate.NewLimiter(rl.every, rl.burst), lastSeen: now}
	rl.clients[key] = c
	return c.limiter
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.lastSweep = now
	for key, c := range rl.clients {
		if now.Sub(c.lastSeen) >= clientIdleTTL {
			delete(rl.clients, key)
		}
	}
}

func (rl *RateLimiter) evictOldest() {
	var (
		oldest string
		seen   time.Time
		found  bool
	)
	for key, c := range rl.clients {
		if !found || c.lastSeen.Before(seen) {
			oldest, seen, found = key, c.lastSeen, true
		}
	}
	if found {
		delete(rl.clients, oldest)
	}
}

// Len reports how many clients are tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware rejects requests over the limit with 429. /health is exempt.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		key := clientKey(r)
		if !rl.Allow(key) {
			appLog.Warn("rate limit exceeded", "client", key, "path", r.URL.Path)
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
