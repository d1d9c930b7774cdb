// Package zoho talks to Zoho accounts (OAuth refresh) and the Zoho CRM
// search API.
package zoho

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/sells-group/missedcall/internal/resilience"
)

const defaultTokenURL = "https://accounts.zoho.in/oauth/v2/token"

// Credentials is the long-lived client identity used to mint access tokens.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// RequestBuilder builds a request carrying the given access token. It is
// called once per attempt so the retry gets a fresh request body.
type RequestBuilder func(ctx context.Context, token string) (*http.Request, error)

// TokenOption configures a TokenManager.
type TokenOption func(*TokenManager)

// WithTokenURL overrides the accounts token endpoint.
func WithTokenURL(u string) TokenOption {
	return func(m *TokenManager) {
		m.tokenURL = u
	}
}

// WithTokenHTTPClient sets the HTTP client used for the exchange and for Do.
func WithTokenHTTPClient(hc *http.Client) TokenOption {
	return func(m *TokenManager) {
		m.http = hc
	}
}

// TokenManager owns one access token. The token is never checked for expiry;
// it is replaced only when a request using it comes back 401.
type TokenManager struct {
	creds    Credentials
	tokenURL string
	http     *http.Client

	mu    sync.Mutex
	token string
}

// NewTokenManager creates a manager with no token; the first Acquire or Do
// performs the exchange.
func NewTokenManager(creds Credentials, opts ...TokenOption) *TokenManager {
	m := &TokenManager{
		creds:    creds,
		tokenURL: defaultTokenURL,
		http:     &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire exchanges the refresh token for a new access token and stores it.
func (m *TokenManager) Acquire(ctx context.Context) (string, error) {
	var missing []string
	if m.creds.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if m.creds.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if m.creds.RefreshToken == "" {
		missing = append(missing, "refresh_token")
	}
	if len(missing) > 0 {
		return "", resilience.NewAuthError("missing "+strings.Join(missing, ", "), nil)
	}

	conf := &oauth2.Config{
		ClientID:     m.creds.ClientID,
		ClientSecret: m.creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  m.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	octx := context.WithValue(ctx, oauth2.HTTPClient, m.http)
	tok, err := conf.TokenSource(octx, &oauth2.Token{RefreshToken: m.creds.RefreshToken}).Token()
	if err != nil {
		return "", resilience.NewAuthError("token exchange rejected", err)
	}

	m.mu.Lock()
	m.token = tok.AccessToken
	m.mu.Unlock()

	zap.L().Debug("zoho: access token acquired")
	return tok.AccessToken, nil
}

// Token returns the current access token, empty before the first Acquire.
func (m *TokenManager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Do sends the request built by build with the current token. On a 401 it
// acquires exactly one new token and retries exactly once; a second 401 is
// returned as a ProviderError. Non-401 responses are returned to the caller
// unread.
func (m *TokenManager) Do(ctx context.Context, build RequestBuilder) (*http.Response, error) {
	return resilience.DoVal(ctx, resilience.RetryConfig{
		MaxAttempts: 2,
		ShouldRetry: resilience.IsUnauthorized,
		BeforeRetry: func(ctx context.Context, _ int, _ error) error {
			zap.L().Info("zoho: access token rejected, refreshing")
			_, err := m.Acquire(ctx)
			return err
		},
	}, func(ctx context.Context, _ int) (*http.Response, error) {
		token := m.Token()
		if token == "" {
			var err error
			if token, err = m.Acquire(ctx); err != nil {
				return nil, err
			}
		}

		req, err := build(ctx, token)
		if err != nil {
			return nil, eris.Wrap(err, "zoho: build request")
		}
		resp, err := m.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "zoho: send request")
		}
		if resp.StatusCode == http.StatusUnauthorized {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			return nil, resilience.NewProviderError("zoho", req.Method+" "+req.URL.Path, http.StatusUnauthorized, nil)
		}
		return resp, nil
	})
}
