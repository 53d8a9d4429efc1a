package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testClientID = "client-123.apps.googleusercontent.com"

// newTokenInfoServer serves canned tokeninfo responses keyed by access
// token.
func newTokenInfoServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("access_token")
		body, ok := responses[token]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error_description":"Invalid Value"}`)
			return
		}
		fmt.Fprint(w, body)
	}))
}

func futureExp() string {
	return fmt.Sprintf("%d", time.Now().Add(time.Hour).Unix())
}

func TestVerifyAccessToken(t *testing.T) {
	srv := newTokenInfoServer(t, map[string]string{
		"good": fmt.Sprintf(`{
			"aud": %q,
			"sub": "user-1",
			"email": "alice@example.com",
			"scope": "https://www.googleapis.com/auth/userinfo.email https://www.googleapis.com/auth/calendar",
			"exp": %q
		}`, testClientID, futureExp()),
		"wrong-aud": fmt.Sprintf(`{"aud": "someone-else", "sub": "user-2", "exp": %q}`, futureExp()),
		"expired":   fmt.Sprintf(`{"aud": %q, "sub": "user-3", "exp": "100"}`, testClientID),
	})
	defer srv.Close()

	s := NewService(testClientID, WithTokenInfoURL(srv.URL))

	t.Run("valid token", func(t *testing.T) {
		id, err := s.Verify(context.Background(), "good")
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if id.Subject != "user-1" || id.Email != "alice@example.com" {
			t.Errorf("identity = %+v", id)
		}
		if !id.HasScope(CalendarScope) {
			t.Error("calendar scope not parsed")
		}
		if id.HasScope("https://www.googleapis.com/auth/drive") {
			t.Error("HasScope matched an absent scope")
		}
	})

	t.Run("wrong audience", func(t *testing.T) {
		if _, err := s.Verify(context.Background(), "wrong-aud"); !errors.Is(err, ErrWrongAudience) {
			t.Errorf("err = %v, want ErrWrongAudience", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		if _, err := s.Verify(context.Background(), "expired"); !errors.Is(err, ErrExpiredCredential) {
			t.Errorf("err = %v, want ErrExpiredCredential", err)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		if _, err := s.Verify(context.Background(), "bogus"); !errors.Is(err, ErrInvalidCredential) {
			t.Errorf("err = %v, want ErrInvalidCredential", err)
		}
	})

	t.Run("empty token", func(t *testing.T) {
		if _, err := s.Verify(context.Background(), ""); !errors.Is(err, ErrNoCredential) {
			t.Errorf("err = %v, want ErrNoCredential", err)
		}
	})
}

func TestRequireToken(t *testing.T) {
	srv := newTokenInfoServer(t, map[string]string{
		"good": fmt.Sprintf(`{"aud": %q, "sub": "user-1", "exp": %q, "scope": "openid"}`, testClientID, futureExp()),
	})
	defer srv.Close()

	s := NewService(testClientID, WithTokenInfoURL(srv.URL))

	var gotIdentity *Identity
	handler := s.RequireToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIdentity, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotIdentity = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if gotIdentity == nil || gotIdentity.Subject != "user-1" {
					t.Errorf("identity in context = %+v", gotIdentity)
				}
				if gotIdentity.Token != "good" {
					t.Errorf("raw token not carried: %q", gotIdentity.Token)
				}
			} else if got := rec.Header().Get("Content-Type"); got != "application/json" {
				t.Errorf("error Content-Type = %q", got)
			}
		})
	}
}
