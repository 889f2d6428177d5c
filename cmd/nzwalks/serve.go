package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/Skotchmaster/nz_walks/internal/config"
	"github.com/Skotchmaster/nz_walks/internal/es"
	"github.com/Skotchmaster/nz_walks/internal/httpserver"
	"github.com/Skotchmaster/nz_walks/internal/metrics"
	"github.com/Skotchmaster/nz_walks/internal/mykafka"
	"github.com/Skotchmaster/nz_walks/internal/service"
	"github.com/Skotchmaster/nz_walks/internal/storage"
	loggingmw "github.com/Skotchmaster/nz_walks/pkg/middleware/logging"
	"github.com/Skotchmaster/nz_walks/pkg/tokens"
)

type eventProducer interface {
	service.EventPublisher
	Close() error
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			cfg.MustValidate()
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := newLogger(cfg)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	r, closeDB, err := openRepo(initCtx, cfg, logger)
	cancel()
	if err != nil {
		return err
	}
	defer closeDB()

	var producer eventProducer = mykafka.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		producer = mykafka.NewProducer(cfg.KafkaBrokers)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Error("kafka_close_failed", "error", err)
		}
	}()

	catalog := &service.CatalogService{Repo: r, Events: producer}
	if cfg.ESURL != "" {
		client, err := es.NewClient(es.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword})
		if err != nil {
			return err
		}
		if err := es.Ping(ctx, client); err != nil {
			logger.Warn("elasticsearch_unreachable", "url", cfg.ESURL, "error", err)
		}
		catalog.Search = &es.WalkIndex{Client: client, Index: cfg.ESIndex}
	}

	store, err := storage.NewLocalStore(cfg.ImagesDir)
	if err != nil {
		return err
	}

	m := metrics.New()
	issuer := tokens.NewIssuer(cfg.JWTKey, cfg.JWTIssuer, cfg.JWTAudience, config.AccessTokenTTL)
	authSvc := &service.AuthService{Repo: r, Issuer: issuer, Events: producer, Metrics: m}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpserver.ErrorHandler(logger)
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.Recover(),
		middleware.RequestID(),
		loggingmw.RequestLogger(logger),
		m.Middleware(),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.CORSOrigins,
			AllowCredentials: cfg.AuthCookies,
			ExposeHeaders:    []string{"X-CSRF-Token"},
		}),
		middleware.BodyLimit("12M"),
	)

	httpserver.Register(e, &httpserver.Deps{
		Auth:         &httpserver.AuthHTTP{Svc: authSvc, Cookies: cfg.AuthCookies},
		Regions:      &httpserver.RegionHTTP{Svc: catalog},
		Difficulties: &httpserver.DifficultyHTTP{Svc: catalog},
		Walks:        &httpserver.WalkHTTP{Svc: catalog},
		Images:       &httpserver.ImageHTTP{Svc: &service.ImageService{Repo: r, Store: store, Events: producer}},
		Verifier:     issuer,
		Metrics:      m,
		Ready:        r.Ping,
		ImagesDir:    cfg.ImagesDir,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_server_started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting_down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_shutdown_failed", "error", err)
	}
	logger.Info("shutdown_complete")
	return nil
}
