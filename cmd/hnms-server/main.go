package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/hnms/hnms/internal/config"
	"github.com/hnms/hnms/internal/domain/hospital"
	"github.com/hnms/hnms/internal/domain/user"
	"github.com/hnms/hnms/internal/platform/auth"
	"github.com/hnms/hnms/internal/platform/db"
	"github.com/hnms/hnms/pkg/pagination"
)

const version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:          "hnms-server",
		Short:        "Hospital Network Management API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(hospitalCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
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

// withPool loads configuration, opens a pool for the duration of fn and
// closes it afterwards.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

func migrationsDir(cmd *cobra.Command, cfg *config.Config) string {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return dir
	}
	return cfg.MigrationsDir
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
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				count, err := db.NewMigrator(pool, migrationsDir(cmd, cfg)).Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				statuses, err := db.NewMigrator(pool, migrationsDir(cmd, cfg)).Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}

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
			})
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func optionalFlag(cmd *cobra.Command, name string) *string {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return nil
	}
	return &v
}

func hospitalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hospital",
		Short: "Manage hospitals",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a hospital",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			return withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
				h := &hospital.Hospital{
					Name:    name,
					Address: optionalFlag(cmd, "address"),
					Phone:   optionalFlag(cmd, "phone"),
					Email:   optionalFlag(cmd, "email"),
				}
				if err := hospital.NewService(hospital.NewRepoPG(pool)).Create(ctx, h); err != nil {
					return err
				}
				fmt.Printf("Created hospital %d: %s\n", h.ID, h.Name)
				return nil
			})
		},
	}
	createCmd.Flags().String("name", "", "Hospital name")
	createCmd.Flags().String("address", "", "Street address")
	createCmd.Flags().String("phone", "", "Contact phone")
	createCmd.Flags().String("email", "", "Contact email")
	cmd.AddCommand(createCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List hospitals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
				items, total, err := hospital.NewService(hospital.NewRepoPG(pool)).List(ctx, pagination.New(1, pagination.MaxLimit))
				if err != nil {
					return err
				}
				fmt.Printf("%-8s %s\n", "ID", "NAME")
				for _, h := range items {
					fmt.Printf("%-8d %s\n", h.ID, h.Name)
				}
				if total > len(items) {
					fmt.Printf("... and %d more\n", total-len(items))
				}
				return nil
			})
		},
	}
	cmd.AddCommand(listCmd)

	return cmd
}

// newUserService builds the user service for command-line use, where no
// tokens are issued and no metrics are collected.
func newUserService(cfg *config.Config, pool *pgxpool.Pool) *user.Service {
	hospitals := hospital.NewService(hospital.NewRepoPG(pool))
	tokens := auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTTTL)
	return user.NewService(user.NewRepoPG(pool), hospitals, auth.NewHasher(cfg.BcryptCost), tokens, nil)
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	superCmd := &cobra.Command{
		Use:   "create-super-admin",
		Short: "Create a SUPER_ADMIN account",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				u, err := newUserService(cfg, pool).CreateSuperAdmin(ctx, name, email, password)
				if err != nil {
					return err
				}
				fmt.Printf("Created super admin %d: %s\n", u.ID, u.Email)
				return nil
			})
		},
	}
	superCmd.Flags().String("name", "Super Admin", "Display name")
	superCmd.Flags().String("email", "", "Login email")
	superCmd.Flags().String("password", "", "Initial password")
	cmd.AddCommand(superCmd)

	for _, c := range []struct {
		use, short string
		active     bool
	}{
		{"deactivate", "Disable login for an account", false},
		{"activate", "Re-enable login for an account", true},
	} {
		active := c.active
		sub := &cobra.Command{
			Use:   c.use,
			Short: c.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				email, _ := cmd.Flags().GetString("email")
				if email == "" {
					return fmt.Errorf("--email is required")
				}
				return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
					if err := newUserService(cfg, pool).SetActive(ctx, email, active); err != nil {
						return err
					}
					fmt.Printf("Updated %s: active=%t\n", email, active)
					return nil
				})
			},
		}
		sub.Flags().String("email", "", "Account email")
		cmd.AddCommand(sub)
	}

	return cmd
}
