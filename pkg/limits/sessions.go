// Package limits caps how many live sessions a server holds and how fast a
// session may send events.
package limits

import (
	"errors"
	"net"
	"net/http"
	"sync"
)

// Errors returned by SessionLimiter.Acquire.
var (
	ErrServerFull        = errors.New("too many live sessions")
	ErrTooManyFromIP     = errors.New("too many live sessions from this address")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// SessionLimiter bounds concurrent sessions globally and per client
// address. A zero limit disables that bound.
type SessionLimiter struct {
	maxGlobal int
	maxPerIP  int

	mu      sync.Mutex
	total   int
	perIP   map[string]int
	blocked int64
}

// NewSessionLimiter creates a limiter.
func NewSessionLimiter(maxGlobal, maxPerIP int) *SessionLimiter {
	return &SessionLimiter{
		maxGlobal: maxGlobal,
		maxPerIP:  maxPerIP,
		perIP:     make(map[string]int),
	}
}

// Acquire takes a slot for ip. Every successful Acquire must be paired
// with a Release.
func (l *SessionLimiter) Acquire(ip string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.maxGlobal > 0 && l.total >= l.maxGlobal {
		l.blocked++
		return ErrServerFull
	}
	if l.maxPerIP > 0 && l.perIP[ip] >= l.maxPerIP {
		l.blocked++
		return ErrTooManyFromIP
	}
	l.total++
	l.perIP[ip]++
	return nil
}

// Release frees a slot taken for ip.
func (l *SessionLimiter) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, ok := l.perIP[ip]
	if !ok {
		return
	}
	if n <= 1 {
		delete(l.perIP, ip)
	} else {
		l.perIP[ip] = n - 1
	}
	l.total--
}

// Count returns the number of held slots.
func (l *SessionLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// CountIP returns the number of slots held for ip.
func (l *SessionLimiter) CountIP(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}

// Blocked returns how many acquisitions were refused.
func (l *SessionLimiter) Blocked() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.blocked
}

// ClientIP returns the host part of r.RemoteAddr. Proxies are expected to
// be handled by a RealIP middleware ahead of this.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
