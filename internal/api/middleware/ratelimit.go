package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter provides rate limiting functionality using a sliding window algorithm
type RateLimiter struct {
	requests int           // Maximum requests per window
	window   time.Duration // Window duration
	clients  map[string]*clientWindow
	mu       sync.RWMutex
	done     chan struct{}
	once     sync.Once
	now      func() time.Time
}

type clientWindow struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a new rate limiter. Call Stop to end its cleanup goroutine.
func NewRateLimiter(requests int, windowSeconds int) *RateLimiter {
	if requests <= 0 {
		requests = 100
	}
	if windowSeconds <= 0 {
		windowSeconds = 60
	}

	rl := &RateLimiter{
		requests: requests,
		window:   time.Duration(windowSeconds) * time.Second,
		clients:  make(map[string]*clientWindow),
		done:     make(chan struct{}),
		now:      time.Now,
	}

	go rl.cleanup()

	return rl
}

// cleanup removes idle clients periodically
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, client := range rl.clients {
		client.mu.Lock()
		if len(client.timestamps) == 0 || now.Sub(client.timestamps[len(client.timestamps)-1]) > rl.window*2 {
			delete(rl.clients, key)
		}
		client.mu.Unlock()
	}
}

func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

// Allow records a request for key and reports whether it fits in the window, how many
// requests remain and when the window resets.
func (rl *RateLimiter) Allow(key string) (bool, int, time.Time) {
	rl.mu.RLock()
	client, exists := rl.clients[key]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		if client, exists = rl.clients[key]; !exists {
			client = &clientWindow{
				timestamps: make([]time.Time, 0, rl.requests),
			}
			rl.clients[key] = client
		}
		rl.mu.Unlock()
	}

	client.mu.Lock()
	defer client.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.window)

	// Timestamps are appended in order, so everything before the first in-window entry is stale.
	valid := len(client.timestamps)
	for i, ts := range client.timestamps {
		if ts.After(windowStart) {
			valid = i
			break
		}
	}
	client.timestamps = client.timestamps[valid:]

	if len(client.timestamps) >= rl.requests {
		return false, 0, client.timestamps[0].Add(rl.window)
	}

	client.timestamps = append(client.timestamps, now)
	return true, rl.requests - len(client.timestamps), now.Add(rl.window)
}

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// ByIP counts requests per client address.
func ByIP(r *http.Request) string {
	return "ip:" + getClientIP(r)
}

// ByUser counts authenticated requests per user and falls back to the client address.
func ByUser(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != 0 {
		return fmt.Sprintf("user:%d", userID)
	}
	return ByIP(r)
}

// RateLimit rejects requests beyond the limiter's budget for their key with 429.
func RateLimit(limiter *RateLimiter, key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining, resetTime := limiter.Allow(key(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.requests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

			if !allowed {
				w.Header().Set("Retry-After", strconv.FormatInt(int64(time.Until(resetTime).Seconds())+1, 10))
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP keys on the connection address. Forwarding headers are only honored when the
// router runs chi's RealIP in front, which rewrites RemoteAddr for trusted proxies.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
