package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/nz_walks/internal/config"
	"github.com/Skotchmaster/nz_walks/internal/models"
	"github.com/Skotchmaster/nz_walks/internal/service"
)

// Admin accounts cannot be self-registered over HTTP; operators create them
// here.
func createAdminCmd() *cobra.Command {
	var (
		email, username, password string
		writer                    bool
	)

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an account holding the Admin role",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			cfg.MustValidateDB()
			logger := newLogger(cfg)

			r, closeDB, err := openRepo(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeDB()

			var extra []string
			if writer {
				extra = append(extra, models.RoleWriter)
			}
			svc := &service.AuthService{Repo: r}
			acc, err := svc.ProvisionAdmin(cmd.Context(), username, email, password, extra...)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", acc.Email, acc.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Login email")
	cmd.Flags().StringVar(&username, "username", "", "Display name")
	cmd.Flags().StringVar(&password, "password", "", "Password, at least 6 characters")
	cmd.Flags().BoolVar(&writer, "writer", false, "Also grant the Writer role")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func deleteAccountCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Delete an account and its roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			cfg.MustValidateDB()
			logger := newLogger(cfg)

			r, closeDB, err := openRepo(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeDB()

			svc := &service.AuthService{Repo: r}
			if err := svc.DeleteAccount(cmd.Context(), email); err != nil {
				return fmt.Errorf("delete account: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Login email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
