package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/and161185/signator/internal/migrate"
	"github.com/and161185/signator/internal/model"
	"github.com/and161185/signator/internal/service"
)

func migrateUp(ctx context.Context, dsn string) error     { return migrate.Up(ctx, dsn) }
func migrateStatus(ctx context.Context, dsn string) error { return migrate.Status(ctx, dsn) }

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database migrations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				dsn, err := a.dsn()
				if err != nil {
					return err
				}
				if err := a.migrateUp(cmd.Context(), dsn); err != nil {
					return fmt.Errorf("migrate up: %w", err)
				}
				cmd.Println("migrations applied")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				dsn, err := a.dsn()
				if err != nil {
					return err
				}
				return a.migrateSt(cmd.Context(), dsn)
			},
		},
	)
	return cmd
}

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts directly in the database",
	}

	var (
		name, email, password string
		admin                 bool
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Long:  `Creates an account without going through the API. Use --admin to bootstrap the first administrator.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := service.ValidateSignup(name, email, password); err != nil {
				return err
			}
			users, done, err := a.users(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			role := model.RoleUser
			if admin {
				role = model.RoleAdmin
			}
			id, err := service.CreateUser(cmd.Context(), users, name, email, password, role)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			cmd.Printf("%s %s\n", id, role)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "display name")
	create.Flags().StringVar(&email, "email", "", "email (login)")
	create.Flags().StringVar(&password, "password", "", "password, at least 8 characters")
	create.Flags().BoolVar(&admin, "admin", false, "grant the ADMIN role")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	promote := &cobra.Command{
		Use:   "promote [email]",
		Short: "Grant the ADMIN role to an existing account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, done, err := a.users(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			email := strings.ToLower(strings.TrimSpace(args[0]))
			u, err := users.GetByEmail(cmd.Context(), email)
			if err != nil {
				return fmt.Errorf("find %s: %w", email, err)
			}
			if err := users.SetRole(cmd.Context(), u.ID, model.RoleAdmin); err != nil {
				return fmt.Errorf("promote: %w", err)
			}
			cmd.Printf("%s is now ADMIN\n", u.Email)
			return nil
		},
	}

	cmd.AddCommand(create, promote)
	return cmd
}
