// Package limits caps concurrent live connections.
package limits

import (
	"net"
	"net/http"
	"sync"
	"sync/atomic"
)

const (
	DefaultMaxPerIP  = 20
	DefaultMaxGlobal = 1000
)

// ConnectionLimiter bounds open connections per client IP and overall.
// A slot is held for the whole lifetime of the wrapped handler, which for a
// live connection is the session.
type ConnectionLimiter struct {
	maxPerIP  int
	maxGlobal int

	mu     sync.Mutex
	perIP  map[string]int
	global int

	blocked atomic.Int64
}

// NewConnectionLimiter creates a limiter. Non-positive limits use the
// defaults.
func NewConnectionLimiter(maxPerIP, maxGlobal int) *ConnectionLimiter {
	if maxPerIP <= 0 {
		maxPerIP = DefaultMaxPerIP
	}
	if maxGlobal <= 0 {
		maxGlobal = DefaultMaxGlobal
	}
	return &ConnectionLimiter{
		maxPerIP:  maxPerIP,
		maxGlobal: maxGlobal,
		perIP:     make(map[string]int),
	}
}

// Acquire takes a slot for ip. It returns false when either limit is
// reached.
func (cl *ConnectionLimiter) Acquire(ip string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.global >= cl.maxGlobal || cl.perIP[ip] >= cl.maxPerIP {
		cl.blocked.Add(1)
		return false
	}
	cl.global++
	cl.perIP[ip]++
	return true
}

// Release gives back a slot taken by Acquire.
func (cl *ConnectionLimiter) Release(ip string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if n := cl.perIP[ip]; n <= 1 {
		delete(cl.perIP, ip)
	} else {
		cl.perIP[ip] = n - 1
	}
	if cl.global > 0 {
		cl.global--
	}
}

// Count returns the open connections for ip.
func (cl *ConnectionLimiter) Count(ip string) int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.perIP[ip]
}

// Total returns all open connections.
func (cl *ConnectionLimiter) Total() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.global
}

// Blocked returns how many connections were refused.
func (cl *ConnectionLimiter) Blocked() int64 {
	return cl.blocked.Load()
}

// Middleware refuses requests over the limit with 429.
func (cl *ConnectionLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		if !cl.Acquire(ip) {
			http.Error(w, "too many connections", http.StatusTooManyRequests)
			return
		}
		defer cl.Release(ip)

		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the host part of RemoteAddr. Proxy headers are expected
// to have been applied upstream.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
