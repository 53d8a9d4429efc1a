package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func serve(l *IPRateLimiter, remoteAddr string) int {
	h := l.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestBurstExhaustion(t *testing.T) {
	l := New(rate.Limit(1), 2, time.Minute, nil)

	for i := 0; i < 2; i++ {
		if code := serve(l, "10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, code)
		}
	}
	if code := serve(l, "10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Errorf("over-burst request: status = %d, want 429", code)
	}
}

func TestClientsAreIndependent(t *testing.T) {
	l := New(rate.Limit(1), 1, time.Minute, nil)

	if code := serve(l, "10.0.0.1:1234"); code != http.StatusOK {
		t.Fatalf("first client: status = %d, want 200", code)
	}
	if code := serve(l, "10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("first client over limit: status = %d, want 429", code)
	}
	if code := serve(l, "10.0.0.2:1234"); code != http.StatusOK {
		t.Errorf("second client: status = %d, want 200", code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		xff     string
		want    string
	}{
		{"direct connection", nil, "192.0.2.7:5000", "", "192.0.2.7"},
		{"forwarded via trusted proxy", []string{"10.0.0.0/8"}, "10.1.2.3:999", "203.0.113.9", "203.0.113.9"},
		{"forwarded via untrusted proxy", []string{"10.0.0.0/8"}, "192.168.1.5:999", "203.0.113.9", "192.168.1.5"},
		{"no proxy list trusts headers", nil, "192.168.1.5:999", "203.0.113.9", "203.0.113.9"},
		{"garbage header falls back to remote", []string{"10.0.0.0/8"}, "10.1.2.3:999", "not-an-ip", "10.1.2.3"},
		{"first hop wins in chain", nil, "10.1.2.3:999", "203.0.113.9, 10.1.2.3", "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(rate.Limit(1), 1, time.Minute, tt.trusted)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := l.clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
