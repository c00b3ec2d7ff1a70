package live

import (
	"net/http"

	"github.com/vetcare/intake/pkg/core"
)

// Session keys filled from the mounting request.
const (
	SessionCSRFToken = "csrf_token"
	SessionCookies   = "cookies"
)

// TokenSource reads the anti-forgery token issued by the clinic backend.
// The token is only relayed; issuing and verifying it happen elsewhere.
type TokenSource struct {
	CookieName string
	HeaderName string
}

// DefaultTokenSource reads the csrf_token cookie, then X-CSRFToken.
func DefaultTokenSource() TokenSource {
	return TokenSource{
		CookieName: "csrf_token",
		HeaderName: "X-CSRFToken",
	}
}

// Token returns the request's anti-forgery token, "" when absent.
func (ts TokenSource) Token(r *http.Request) string {
	if ts.CookieName != "" {
		if c, err := r.Cookie(ts.CookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}
	if ts.HeaderName != "" {
		return r.Header.Get(ts.HeaderName)
	}
	return ""
}

// Session captures the token and the request cookies for a mount.
func (ts TokenSource) Session(r *http.Request) core.Session {
	return core.Session{
		SessionCSRFToken: ts.Token(r),
		SessionCookies:   r.Cookies(),
	}
}
