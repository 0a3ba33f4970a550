package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/connectrh/core-auth/internal/core/domain"
)

// AccessRule requires Authority for every path at or below Prefix.
// An empty Authority permits all requests.
type AccessRule struct {
	Prefix    string
	Authority domain.Authority
}

// Authorize evaluates rules in order; the first rule whose prefix matches the
// request path decides. Paths matched by no rule are permitted.
//
//   - no principal on a protected path   → 401
//   - principal lacking the authority    → 403
func Authorize(rules ...AccessRule) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rule, ok := matchRule(rules, c.Request().URL.Path)
			if !ok || rule.Authority == "" {
				return next(c)
			}

			p, authenticated := PrincipalFrom(c)
			if !authenticated {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}
			if !p.Has(rule.Authority) {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}

func matchRule(rules []AccessRule, path string) (AccessRule, bool) {
	for _, r := range rules {
		if MatchPrefix(r.Prefix, path) {
			return r, true
		}
	}
	return AccessRule{}, false
}
