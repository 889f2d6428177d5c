package auth

import (
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/nz_walks/pkg/logging"
	"github.com/Skotchmaster/nz_walks/pkg/tokens"
)

const (
	CtxUser      = "user"
	CtxAccountID = "account_id"
)

// Verifier checks an access token and returns its claims.
type Verifier interface {
	Verify(token string) (*tokens.AccessClaims, error)
}

// Bearer validates the Authorization: Bearer token and stores the claims
// under CtxUser. Any failure answers 401.
func Bearer(v Verifier) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  CtxUser,
		TokenLookup: "header:Authorization:Bearer ",
		ParseTokenFunc: func(c echo.Context, auth string) (any, error) {
			claims, err := v.Verify(auth)
			if err != nil {
				return nil, err
			}
			c.Set(CtxAccountID, claims.Subject)
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			logging.FromContext(c.Request().Context()).Warn("auth_failed", "status", http.StatusUnauthorized, "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing access token")
		},
	})
}

// Claims returns the verified claims stored by Bearer, or nil.
func Claims(c echo.Context) *tokens.AccessClaims {
	claims, _ := c.Get(CtxUser).(*tokens.AccessClaims)
	return claims
}

// RequireRoles lets the request through when the caller holds at least one
// of the roles. It must run after Bearer.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := Claims(c)
			if claims == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
			}
			if !claims.HasAnyRole(roles...) {
				return echo.NewHTTPError(http.StatusForbidden, "you don't have enough rights to see this page")
			}
			return next(c)
		}
	}
}
