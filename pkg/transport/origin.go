package transport

import (
	"errors"
	"net/url"
	"strings"
)

// ErrOriginNotAllowed is returned when a cross-site page tries to connect.
var ErrOriginNotAllowed = errors.New("origin not allowed")

// OriginPolicy decides which pages may open a live connection.
type OriginPolicy struct {
	// AllowedOrigins lists extra origins besides the serving host. Entries
	// may be full origins ("https://clinic.example"), bare hosts, "*" or a
	// "*.domain" suffix pattern.
	AllowedOrigins []string

	// InsecureDev accepts every origin. Development only.
	InsecureDev bool
}

// Allowed reports whether origin may connect to requestHost.
func (p OriginPolicy) Allowed(origin, requestHost string) bool {
	if p.InsecureDev {
		return true
	}

	// no Origin header: not a browser cross-site request
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil || originURL.Host == "" {
		return false
	}

	if strings.EqualFold(originURL.Host, requestHost) {
		return true
	}

	for _, allowed := range p.AllowedOrigins {
		switch {
		case allowed == "*":
			return true
		case allowed == origin:
			return true
		case strings.HasPrefix(allowed, "*."):
			if strings.HasSuffix(originURL.Hostname(), allowed[1:]) {
				return true
			}
		case strings.Contains(allowed, "://"):
			if allowedURL, err := url.Parse(allowed); err == nil && allowedURL.Host == originURL.Host {
				return true
			}
		default:
			if strings.EqualFold(allowed, originURL.Host) {
				return true
			}
		}
	}

	return false
}
