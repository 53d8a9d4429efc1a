// Package ratelimit provides per-client-IP request rate limiting. Extraction
// requests fan out to a metered vision model, so the relay limits them much
// more tightly than ordinary staging operations.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxTrackedClients = 10000

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	mu             sync.Mutex
	clients        map[string]*clientEntry
	rate           rate.Limit
	burst          int
	idleTTL        time.Duration
	trustedProxies []*net.IPNet
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter allowing r requests per second with the given burst.
// Entries idle longer than idleTTL are dropped by a background sweep.
// trustedProxies lists CIDR ranges (or bare IPs) of reverse proxies whose
// forwarding headers may be believed; when empty, all proxies are trusted.
func New(r rate.Limit, burst int, idleTTL time.Duration, trustedProxies []string) *IPRateLimiter {
	l := &IPRateLimiter{
		clients: make(map[string]*clientEntry),
		rate:    r,
		burst:   burst,
		idleTTL: idleTTL,
	}
	for _, cidr := range trustedProxies {
		if ipnet := parseCIDROrIP(cidr); ipnet != nil {
			l.trustedProxies = append(l.trustedProxies, ipnet)
		}
	}
	go l.sweep()
	return l
}

// Middleware rejects over-limit requests with 429.
func (l *IPRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(l.clientIP(r)) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *IPRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	entry, ok := l.clients[ip]
	if !ok {
		if len(l.clients) >= maxTrackedClients {
			l.evictOldestLocked()
		}
		entry = &clientEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[ip] = entry
	}
	entry.lastSeen = time.Now()
	l.mu.Unlock()

	return entry.limiter.Allow()
}

func (l *IPRateLimiter) evictOldestLocked() {
	var oldest string
	var oldestSeen time.Time
	for ip, entry := range l.clients {
		if oldest == "" || entry.lastSeen.Before(oldestSeen) {
			oldest, oldestSeen = ip, entry.lastSeen
		}
	}
	if oldest != "" {
		delete(l.clients, oldest)
	}
}

func (l *IPRateLimiter) sweep() {
	ticker := time.NewTicker(l.idleTTL)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-l.idleTTL)
		l.mu.Lock()
		for ip, entry := range l.clients {
			if entry.lastSeen.Before(cutoff) {
				delete(l.clients, ip)
			}
		}
		l.mu.Unlock()
	}
}

// clientIP resolves the originating client address, honoring forwarding
// headers only when the request arrives from a trusted proxy.
func (l *IPRateLimiter) clientIP(r *http.Request) string {
	remote := parseAddr(r.RemoteAddr)

	if len(l.trustedProxies) > 0 && !l.isTrusted(remote) {
		return remote.String()
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip.String()
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return ip.String()
		}
	}
	return remote.String()
}

func (l *IPRateLimiter) isTrusted(ip net.IP) bool {
	for _, ipnet := range l.trustedProxies {
		if ipnet.Contains(ip) {
			return true
		}
	}
	return false
}

func parseCIDROrIP(s string) *net.IPNet {
	if _, ipnet, err := net.ParseCIDR(s); err == nil {
		return ipnet
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil
	}
	mask := "/32"
	if ip.To4() == nil {
		mask = "/128"
	}
	_, ipnet, _ := net.ParseCIDR(s + mask)
	return ipnet
}

func parseAddr(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}
