package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/nz_walks/internal/config"
	"github.com/Skotchmaster/nz_walks/internal/repo"
	pkgdb "github.com/Skotchmaster/nz_walks/pkg/db"
	"github.com/Skotchmaster/nz_walks/pkg/logging"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "nzwalks",
		Short:         "NZ Walks API server and operator tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env is optional; real environment variables win.
			_ = config.LoadEnvFile(envFile)
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file to load")

	cmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		createAdminCmd(),
		deleteAccountCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "nzwalks %s\n", version)
			},
		},
	)
	return cmd
}

// openRepo connects to the configured database and migrates the schema.
func openRepo(ctx context.Context, cfg config.Config, logger *slog.Logger) (*repo.GormRepo, func(), error) {
	db, err := pkgdb.Open(ctx, pkgdb.Options{Driver: cfg.DBDriver, DSN: cfg.DSN(), Silent: cfg.LogLevel != "debug"})
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := pkgdb.Close(db); err != nil {
			logger.Error("db_close_failed", "error", err)
		}
	}

	r := repo.New(db)
	if err := r.AutoMigrate(ctx); err != nil {
		closeDB()
		return nil, nil, err
	}
	return r, closeDB, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)
	return logger
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			cfg.MustValidateDB()
			logger := newLogger(cfg)

			_, closeDB, err := openRepo(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeDB()
			logger.Info("migration_complete", "driver", cfg.DBDriver)
			return nil
		},
	}
}
