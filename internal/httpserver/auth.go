package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/nz_walks/internal/middleware/auth"
	"github.com/Skotchmaster/nz_walks/internal/service"
	"github.com/Skotchmaster/nz_walks/internal/transport"
	"github.com/Skotchmaster/nz_walks/pkg/logging"
)

const (
	msgInvalidCredentials  = "Username not found and/or password is incorrect!"
	msgInvalidRefreshToken = "Invalid refresh token!"
	msgNotAdmin            = "User cannot be an admin!"
	msgNotCreated          = "User not created!"
	msgRegistered          = "User registered successfully!"
	msgLoggedOut           = "User logged out successfully!"
)

type AuthHTTP struct {
	Svc *service.AuthService
	// Cookies additionally carries the refresh token in an HttpOnly cookie.
	Cookies bool
}

func (h *AuthHTTP) setRefreshCookie(c echo.Context, res *service.LoginResult) {
	if h.Cookies {
		c.SetCookie(CreateCookie(refreshCookieName, res.RefreshToken, "/api/Auth", res.RefreshExp))
	}
}

// refreshTokenFrom reads the refresh token from the body, falling back to the
// cookie when cookies are enabled.
func (h *AuthHTTP) refreshTokenFrom(c echo.Context, req transport.TokenRequest) string {
	if req.RefreshToken != "" || !h.Cookies {
		return req.RefreshToken
	}
	if ck, err := c.Cookie(refreshCookieName); err == nil {
		return ck.Value
	}
	return ""
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.Validate(); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return badRequest(err)
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, msgInvalidCredentials)
		}
		return err
	}

	h.setRefreshCookie(c, res)
	return c.JSON(http.StatusOK, transport.LoginResponse{JWTToken: res.AccessToken, RefreshToken: res.RefreshToken})
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	err := h.Svc.Register(ctx, req)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"message": msgRegistered})
	case errors.Is(err, service.ErrPrivilegeEscalation):
		return echo.NewHTTPError(http.StatusBadRequest, msgNotAdmin)
	case errors.Is(err, service.ErrAccountCreation):
		return echo.NewHTTPError(http.StatusBadRequest, msgNotCreated)
	default:
		return err
	}
}

func (h *AuthHTTP) RefreshToken(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req transport.TokenRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("refresh_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	req.RefreshToken = h.refreshTokenFrom(c, req)
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, msgInvalidRefreshToken)
	}

	res, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) || errors.Is(err, service.ErrAccountNotFound) {
			if h.Cookies {
				c.SetCookie(DeleteCookie(refreshCookieName, "/api/Auth"))
			}
			return echo.NewHTTPError(http.StatusBadRequest, msgInvalidRefreshToken)
		}
		return err
	}

	h.setRefreshCookie(c, res)
	return c.JSON(http.StatusOK, transport.LoginResponse{JWTToken: res.AccessToken, RefreshToken: res.RefreshToken})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	var req transport.TokenRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("logout_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	claims := auth.Claims(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	if err := h.Svc.Logout(ctx, claims.Subject, h.refreshTokenFrom(c, req)); err != nil {
		return err
	}
	if h.Cookies {
		c.SetCookie(DeleteCookie(refreshCookieName, "/api/Auth"))
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msgLoggedOut})
}
