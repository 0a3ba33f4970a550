package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/connectrh/core-auth/internal/api/metrics"
	"github.com/connectrh/core-auth/internal/core/domain"
)

// HeaderInternalAPIKey carries the secret shared with the BFF.
const HeaderInternalAPIKey = "X-INTERNAL-API-KEY"

const principalKey = "principal"

// Gate decision labels.
const (
	decisionGranted  = "granted"
	decisionMissing  = "missing"
	decisionMismatch = "mismatch"
)

// InternalKeyConfig configures the internal-access gate.
type InternalKeyConfig struct {
	// Prefix limits the gate to paths at or below it, e.g. "/api/v1/internal".
	Prefix string
	// Secret is the expected header value. An empty secret never matches.
	Secret string
	Log    zerolog.Logger
}

// InternalKey attaches the internal-caller principal to requests under the
// configured prefix that present the shared secret. It never rejects: a
// request without a valid key continues anonymously and is denied later by
// Authorize. Register it with e.Pre so it runs before routing.
func InternalKey(cfg InternalKeyConfig) echo.MiddlewareFunc {
	secret := []byte(cfg.Secret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if !MatchPrefix(cfg.Prefix, path) {
				return next(c)
			}

			decision := decisionMissing
			if presented := c.Request().Header.Values(HeaderInternalAPIKey); len(presented) > 0 {
				decision = decisionMismatch
				if keyMatches(secret, presented[0]) {
					decision = decisionGranted
					SetPrincipal(c, domain.InternalCaller())
				}
			}

			metrics.GateDecisionsTotal.WithLabelValues(decision).Inc()
			cfg.Log.Debug().
				Str("path", path).
				Str("decision", decision).
				Msg("internal gate")

			return next(c)
		}
	}
}

// keyMatches compares in constant time with respect to the presented value.
func keyMatches(secret []byte, presented string) bool {
	if len(secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(secret, []byte(presented)) == 1
}

// MatchPrefix reports whether path equals prefix or lies below it.
// "/" and "" match every path.
func MatchPrefix(prefix, path string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// SetPrincipal attaches p to the current request.
func SetPrincipal(c echo.Context, p *domain.Principal) {
	c.Set(principalKey, p)
}

// PrincipalFrom returns the principal attached to the request, if any.
func PrincipalFrom(c echo.Context) (*domain.Principal, bool) {
	p, ok := c.Get(principalKey).(*domain.Principal)
	return p, ok && p != nil
}
