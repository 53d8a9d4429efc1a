// Package auth verifies Google bearer credentials for the relay and staging
// endpoints. Credentials are obtained by the extension via the browser
// identity API; this package only checks them.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

// CalendarScope must be granted for calendar writes.
const CalendarScope = "https://www.googleapis.com/auth/calendar"

const (
	defaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
	defaultIssuerURL    = "https://accounts.google.com"
)

// Credential failures. All of them route the user back to the login state;
// none propagate past the HTTP boundary.
var (
	ErrNoCredential      = errors.New("no valid authorization header")
	ErrWrongAudience     = errors.New("token not issued for this application")
	ErrExpiredCredential = errors.New("token has expired")
	ErrInvalidCredential = errors.New("invalid token")
)

// Identity describes the verified holder of a bearer credential.
type Identity struct {
	Subject string
	Email   string
	Scopes  []string
	Token   string
}

// HasScope reports whether the credential carries the given OAuth scope.
func (id *Identity) HasScope(scope string) bool {
	for _, s := range id.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Service validates Google access tokens against the tokeninfo endpoint and
// Google ID tokens against the OIDC issuer.
type Service struct {
	clientID     string
	tokenInfoURL string
	issuerURL    string
	httpClient   *http.Client

	verifierOnce sync.Once
	verifier     *oidc.IDTokenVerifier
	verifierErr  error
}

// Option adjusts Service construction, mainly for tests.
type Option func(*Service)

func WithTokenInfoURL(u string) Option {
	return func(s *Service) { s.tokenInfoURL = u }
}

func WithIssuerURL(u string) Option {
	return func(s *Service) { s.issuerURL = u }
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

// NewService builds a verifier for tokens issued to clientID.
func NewService(clientID string, opts ...Option) *Service {
	s := &Service{
		clientID:     clientID,
		tokenInfoURL: defaultTokenInfoURL,
		issuerURL:    defaultIssuerURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify checks the bearer credential and returns the identity it proves.
// JWT-shaped tokens are verified as Google ID tokens; everything else goes
// through the tokeninfo endpoint.
func (s *Service) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrNoCredential
	}
	if strings.Count(token, ".") == 2 {
		return s.verifyIDToken(ctx, token)
	}
	return s.verifyAccessToken(ctx, token)
}

type tokenInfo struct {
	Aud       string `json:"aud"`
	Sub       string `json:"sub"`
	Scope     string `json:"scope"`
	Exp       string `json:"exp"`
	Email     string `json:"email"`
	ErrorDesc string `json:"error_description"`
}

func (s *Service) verifyAccessToken(ctx context.Context, token string) (*Identity, error) {
	u := s.tokenInfoURL + "?access_token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build tokeninfo request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrInvalidCredential
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode tokeninfo response: %w", err)
	}
	if info.ErrorDesc != "" {
		return nil, ErrInvalidCredential
	}
	if info.Aud != s.clientID {
		return nil, ErrWrongAudience
	}
	if exp, err := strconv.ParseInt(info.Exp, 10, 64); err != nil || exp < time.Now().Unix() {
		return nil, ErrExpiredCredential
	}

	return &Identity{
		Subject: info.Sub,
		Email:   info.Email,
		Scopes:  strings.Fields(info.Scope),
		Token:   token,
	}, nil
}

func (s *Service) verifyIDToken(ctx context.Context, raw string) (*Identity, error) {
	verifier, err := s.idTokenVerifier(ctx)
	if err != nil {
		return nil, err
	}

	idToken, err := verifier.Verify(ctx, raw)
	if err != nil {
		if strings.Contains(err.Error(), "expired") {
			return nil, ErrExpiredCredential
		}
		return nil, ErrInvalidCredential
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode id token claims: %w", err)
	}

	// ID tokens carry identity but no OAuth scopes; scope-gated routes will
	// reject them.
	return &Identity{
		Subject: idToken.Subject,
		Email:   claims.Email,
		Token:   raw,
	}, nil
}

// idTokenVerifier lazily constructs the OIDC verifier; provider discovery
// performs network I/O and is deferred until the first JWT credential.
func (s *Service) idTokenVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	s.verifierOnce.Do(func() {
		provider, err := oidc.NewProvider(ctx, s.issuerURL)
		if err != nil {
			s.verifierErr = fmt.Errorf("oidc discovery for %s: %w", s.issuerURL, err)
			return
		}
		s.verifier = provider.Verifier(&oidc.Config{ClientID: s.clientID})
	})
	return s.verifier, s.verifierErr
}

// RequireToken rejects requests without a verifiable bearer credential and
// stores the identity in the request context.
func (s *Service) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			unauthorized(w, "Unauthorized: No valid authorization header")
			return
		}

		identity, err := s.Verify(r.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			switch {
			case errors.Is(err, ErrWrongAudience):
				unauthorized(w, "Unauthorized: Token not issued for this application")
			case errors.Is(err, ErrExpiredCredential):
				unauthorized(w, "Unauthorized: Token has expired")
			default:
				unauthorized(w, "Unauthorized: Invalid token")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
	})
}
