package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/moinmakda/ChemoCareAI/internal/config"
	"github.com/moinmakda/ChemoCareAI/internal/domain/identity"
	"github.com/moinmakda/ChemoCareAI/internal/platform/auth"
	"github.com/moinmakda/ChemoCareAI/internal/platform/db"
	"github.com/moinmakda/ChemoCareAI/internal/platform/notification"
	"github.com/moinmakda/ChemoCareAI/migrations"
)

const version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "chemocare-server",
		Short: "ChemoCare oncology API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// migrationSource returns the embedded migrations unless dir points at a
// directory on disk.
func migrationSource(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

// openPool loads config and connects with search_path set to schema, falling
// back to DB_SCHEMA.
func openPool(ctx context.Context, schema string) (*config.Config, *pgxpool.Pool, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, "", err
	}
	if schema == "" {
		schema = cfg.DBSchema
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, schema)
	if err != nil {
		return nil, nil, "", err
	}
	return cfg, pool, schema, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			_, pool, schema, err := openPool(ctx, schema)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrationSource(dir))
			fmt.Printf("Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "", "Target schema (defaults to DB_SCHEMA)")
	upCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			_, pool, schema, err := openPool(ctx, schema)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrationSource(dir))
			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", "", "Target schema (defaults to DB_SCHEMA)")
	statusCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(statusCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is not supported by the built-in runner.")
			fmt.Println("Restore from a backup or write a forward migration that reverts the change.")
			return nil
		},
	})

	return cmd
}

func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage database schemas",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a schema and apply all migrations to it",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			ctx := context.Background()
			_, pool, _, err := openPool(ctx, "")
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Printf("Creating schema: %s\n", name)
			if err := db.CreateSchema(ctx, pool, name, db.NewMigrator(pool, migrations.FS)); err != nil {
				return err
			}
			fmt.Println("Schema created. Point DB_SCHEMA at it to serve from it.")
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Schema name")

	cmd.AddCommand(createCmd)
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	adminCmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a verified admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			if email == "" || name == "" || password == "" {
				return fmt.Errorf("--email, --name and --password (or ADMIN_PASSWORD) are required")
			}

			ctx := context.Background()
			cfg, pool, _, err := openPool(ctx, "")
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := newLogger(cfg.Env)
			revoked := auth.NewMemoryRevocationStore()
			defer revoked.Close()

			svc := identity.NewService(
				identity.NewUserRepoPG(pool),
				identity.NewDoctorRepoPG(pool),
				identity.NewNurseRepoPG(pool),
				auth.NewIssuer(cfg.JWTSecret, cfg.AppName, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL(), cfg.ResetTokenTTL()),
				revoked,
				notification.NewMailer(notification.NewLogEmailSender(logger), notification.NewTemplateEngine()),
				logger,
				identity.Options{AppName: cfg.AppName, FrontendURL: cfg.FrontendURL, ResetTTL: cfg.ResetTokenTTL()},
			)

			u, err := svc.CreateAdmin(ctx, email, name, password)
			if err != nil {
				return err
			}
			fmt.Printf("Created admin %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	adminCmd.Flags().String("email", "", "Admin email")
	adminCmd.Flags().String("name", "", "Admin full name")
	adminCmd.Flags().String("password", "", "Admin password")

	cmd.AddCommand(adminCmd)
	return cmd
}
