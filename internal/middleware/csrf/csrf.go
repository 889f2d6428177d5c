package csrf

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/nz_walks/pkg/logging"
)

// Config describes a double-submit guard: a readable token cookie that the
// client must echo back in a header.
type Config struct {
	CookieName string
	HeaderName string
	CookiePath string
	Secure     bool
	SameSite   http.SameSite
	MaxAge     time.Duration

	// GuardedCookie is the credential cookie being protected. Unsafe requests
	// that do not carry it authenticate some other way and are let through.
	GuardedCookie string

	EnforceSameOrigin bool
}

func DefaultConfig() Config {
	return Config{
		CookieName:        "XSRF-TOKEN",
		HeaderName:        "X-CSRF-Token",
		CookiePath:        "/",
		Secure:            true,
		SameSite:          http.SameSiteLaxMode,
		MaxAge:            7 * 24 * time.Hour,
		EnforceSameOrigin: true,
	}
}

// Middleware issues the token cookie on safe requests and checks it on unsafe
// requests that carry GuardedCookie.
func Middleware(cfg Config) echo.MiddlewareFunc {
	def := DefaultConfig()
	if cfg.CookieName == "" {
		cfg.CookieName = def.CookieName
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = def.HeaderName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = def.CookiePath
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = def.SameSite
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = def.MaxAge
	}

	guarded := func(r *http.Request) bool {
		if cfg.GuardedCookie == "" {
			return true
		}
		ck, err := r.Cookie(cfg.GuardedCookie)
		return err == nil && ck.Value != ""
	}

	token := middleware.CSRFWithConfig(middleware.CSRFConfig{
		Skipper: func(c echo.Context) bool {
			return !isSafe(c.Request().Method) && !guarded(c.Request())
		},
		TokenLookup:    "header:" + cfg.HeaderName,
		CookieName:     cfg.CookieName,
		CookiePath:     cfg.CookiePath,
		CookieMaxAge:   int(cfg.MaxAge.Seconds()),
		CookieSecure:   cfg.Secure,
		CookieSameSite: cfg.SameSite,
		ErrorHandler: func(err error, c echo.Context) error {
			return reject(c, "invalid csrf token")
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		checked := token(next)
		return func(c echo.Context) error {
			req := c.Request()
			if cfg.EnforceSameOrigin && !isSafe(req.Method) && guarded(req) && !sameOrigin(req) {
				return reject(c, "invalid origin")
			}
			return checked(c)
		}
	}
}

func reject(c echo.Context, reason string) error {
	logging.FromContext(c.Request().Context()).Warn("csrf_rejected", "reason", reason, "path", c.Path())
	return echo.NewHTTPError(http.StatusForbidden, reason)
}

func isSafe(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// sameOrigin accepts requests without Origin or Referer; non-browser clients
// do not send them and cannot be driven cross-site.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = r.Header.Get("Referer")
	}
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, schemeOf(r)) && strings.EqualFold(u.Host, r.Host)
}

func schemeOf(r *http.Request) string {
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		return p
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
