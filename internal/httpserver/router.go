package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/nz_walks/internal/metrics"
	"github.com/Skotchmaster/nz_walks/internal/middleware/auth"
	"github.com/Skotchmaster/nz_walks/internal/middleware/csrf"
	"github.com/Skotchmaster/nz_walks/internal/models"
	"github.com/Skotchmaster/nz_walks/internal/service"
)

type Deps struct {
	Auth         *AuthHTTP
	Regions      *RegionHTTP
	Difficulties *DifficultyHTTP
	Walks        *WalkHTTP
	Images       *ImageHTTP

	Verifier auth.Verifier
	Metrics  *metrics.Metrics
	// Ready reports whether backing stores are reachable.
	Ready     func(ctx context.Context) error
	ImagesDir string
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "error": err.Error()})
			}
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}
	if d.ImagesDir != "" {
		e.Static(service.ImagesPath, d.ImagesDir)
	}

	bearer := auth.Bearer(d.Verifier)
	readers := auth.RequireRoles(models.RoleReader, models.RoleAdmin)
	writers := auth.RequireRoles(models.RoleWriter, models.RoleAdmin)
	admins := auth.RequireRoles(models.RoleAdmin)

	api := e.Group("/api")

	if d.Auth.Cookies {
		api.Use(csrf.Middleware(csrf.Config{GuardedCookie: refreshCookieName}))
	}

	authg := api.Group("/Auth")
	authg.POST("/Login", d.Auth.Login)
	authg.POST("/Register", d.Auth.Register)
	authg.POST("/Refresh-Token", d.Auth.RefreshToken)
	authg.POST("/Logout", d.Auth.Logout, bearer)

	regions := api.Group("/Regions", bearer)
	regions.GET("", d.Regions.List, readers)
	regions.GET("/:id", d.Regions.Get, readers)
	regions.POST("", d.Regions.Create, writers)
	regions.PUT("/:id", d.Regions.Update, writers)
	regions.DELETE("/:id", d.Regions.Delete, writers)

	for _, prefix := range []string{"/Difficulties", "/v1/Difficulties"} {
		g := api.Group(prefix, bearer)
		g.GET("", d.Difficulties.List, readers)
		g.GET("/:id", d.Difficulties.Get, readers)
		g.POST("", d.Difficulties.Create, writers)
		g.PUT("/:id", d.Difficulties.Update, writers)
		g.DELETE("/:id", d.Difficulties.Delete, writers)
	}

	walks := api.Group("/Walks")
	walks.GET("", d.Walks.List)
	if d.Walks.Svc.Search != nil {
		walks.GET("/search", d.Walks.Search)
	}
	walks.GET("/:id", d.Walks.Get)
	walks.POST("", d.Walks.Create, bearer, writers)
	walks.PUT("/:id", d.Walks.Update, bearer, writers)
	walks.DELETE("/:id", d.Walks.Delete, bearer, admins)

	images := api.Group("/Image", bearer)
	images.POST("/Upload", d.Images.Upload, writers)
	images.GET("/:id", d.Images.Get, auth.RequireRoles(models.RoleReader, models.RoleWriter, models.RoleAdmin))
}
