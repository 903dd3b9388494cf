package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bakano/consultancy-backend/internal/app"
	"github.com/bakano/consultancy-backend/internal/config"
	"github.com/bakano/consultancy-backend/internal/database"
	"github.com/bakano/consultancy-backend/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:           "consultancy-admin",
		Short:         "Maintenance tasks for the consultancy backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(checklistsCmd())
	rootCmd.AddCommand(businessesCmd())
	rootCmd.AddCommand(adminsCmd())
	rootCmd.AddCommand(remindersCmd())
	rootCmd.AddCommand(secretsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stderr)
	return logger
}

// withApp loads the configuration, builds the service graph and runs fn
// with a context cancelled on SIGINT or SIGTERM.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	openMigrator := func() (*database.Migrator, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		return database.NewMigrator(cfg.Database.URL)
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, err := openMigrator()
			if err != nil {
				return err
			}
			defer migrator.Close()

			applied, err := migrator.Up()
			if err != nil {
				return err
			}
			if !applied {
				fmt.Println("Schema is already up to date")
				return nil
			}
			fmt.Println("Migrations applied")
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, err := openMigrator()
			if err != nil {
				return err
			}
			defer migrator.Close()

			if err := migrator.Down(steps); err != nil {
				return err
			}
			fmt.Printf("Rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, err := openMigrator()
			if err != nil {
				return err
			}
			defer migrator.Close()

			v, dirty, err := migrator.Version()
			if err != nil {
				return err
			}
			fmt.Printf("version=%d dirty=%t\n", v, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

func checklistsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checklists",
		Short: "Checklist maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Move every checklist to the current template version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				migrated, err := a.Checklists.MigrateAll(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Migrated %d checklist(s)\n", migrated)
				return nil
			})
		},
	})
	return cmd
}

func businessesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "businesses",
		Short: "Business maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "backfill-type",
		Short: "Set UNKNOWN on businesses with a missing or unrecognized type",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				updated, err := a.Businesses.BackfillBusinessType(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Updated %d business(es)\n", updated)
				return nil
			})
		},
	})
	return cmd
}

func adminsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admins",
		Short: "Back-office operator accounts",
	}

	var email, name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an operator account",
		Long: `Create a back-office operator account.

The password is read from ADMIN_PASSWORD so it never lands in shell history.

Example:
  ADMIN_PASSWORD=... consultancy-admin admins create --email ops@bakano.ec --name "Operaciones"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv("ADMIN_PASSWORD")
			if password == "" {
				return fmt.Errorf("ADMIN_PASSWORD is required")
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				admin, err := a.AdminAuth.CreateAdmin(ctx, email, password, name)
				if err != nil {
					return err
				}
				fmt.Printf("Created operator %s (%s)\n", admin.Email, admin.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "operator email")
	create.Flags().StringVar(&name, "name", "", "operator full name")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("name")

	cmd.AddCommand(create)
	return cmd
}

func remindersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Upload reminders",
	}

	var minAge time.Duration
	send := &cobra.Command{
		Use:   "send",
		Short: "Send the pending-upload reminders now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				sent, err := a.Businesses.SendUploadReminders(ctx, minAge)
				if err != nil {
					return err
				}
				fmt.Printf("Sent %d reminder(s)\n", sent)
				return nil
			})
		},
	}
	send.Flags().DurationVar(&minAge, "min-age", 48*time.Hour, "only remind businesses created at least this long ago")

	cmd.AddCommand(send)
	return cmd
}

func secretsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Secret helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Generate the JWT signing secrets",
		RunE: func(cmd *cobra.Command, args []string) error {
			accessSecret, refreshSecret, err := utils.GenerateJWTSecrets()
			if err != nil {
				return fmt.Errorf("failed to generate secrets: %w", err)
			}
			fmt.Printf("JWT_SECRET=%s\n", accessSecret)
			fmt.Printf("JWT_REFRESH_SECRET=%s\n", refreshSecret)
			return nil
		},
	})
	return cmd
}
