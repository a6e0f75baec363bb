package shopapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// TokenSource yields the current session token, or "" when anonymous.
type TokenSource interface {
	Token() string
}

// requestIDTransport stamps every outbound request with an X-Request-ID.
type requestIDTransport struct {
	rt http.RoundTripper
}

func (t requestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cl := req.Clone(req.Context())
	if cl.Header.Get(headerRequestID) == "" {
		cl.Header.Set(headerRequestID, uuid.NewString())
	}
	return t.rt.RoundTrip(cl)
}

// AuthScheme selects how the session token is written to the
// Authorization header.
type AuthScheme string

const (
	// AuthRaw sends the bare token, which is what the shop backend decodes.
	AuthRaw AuthScheme = "raw"
	// AuthBearer sends "Bearer <token>".
	AuthBearer AuthScheme = "bearer"
)

// ParseAuthScheme maps a configuration value to a scheme. Empty means raw.
func ParseAuthScheme(s string) (AuthScheme, error) {
	switch AuthScheme(strings.ToLower(strings.TrimSpace(s))) {
	case "", AuthRaw:
		return AuthRaw, nil
	case AuthBearer:
		return AuthBearer, nil
	}
	return "", fmt.Errorf("unknown auth scheme %q", s)
}

// authTransport attaches the session token to authorized requests. With
// no token the request goes out unauthenticated and the backend decides.
type authTransport struct {
	rt     http.RoundTripper
	tokens TokenSource
	scheme AuthScheme
}

func (t authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cl := req.Clone(req.Context())
	if t.tokens != nil {
		if tok := t.tokens.Token(); tok != "" {
			if t.scheme == AuthBearer {
				(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"}).SetAuthHeader(cl)
			} else {
				cl.Header.Set(headerAuthorization, tok)
			}
		}
	}
	return t.rt.RoundTrip(cl)
}

// TokenFunc adapts a plain function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }
