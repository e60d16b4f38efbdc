package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ramiqadoumi/go-resume-flow/internal/postgres/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Connect to PostgreSQL and apply the record and transition-log schema.

Reads the DSN from --postgres-dsn flag, POSTGRES_DSN env var, or config file.
Every migration is idempotent, so running it twice is safe.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().String("postgres-dsn", "", "PostgreSQL DSN")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	bindFlag("postgres_dsn", cmd.Flags(), "postgres-dsn")
	_ = viper.BindEnv("postgres_dsn", "POSTGRES_DSN")
	dsn := viper.GetString("postgres_dsn")
	if dsn == "" {
		return fmt.Errorf("postgres_dsn is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	out := cmd.OutOrStdout()
	for _, f := range migrations.Files {
		sql, err := migrations.FS.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("execute migration %s: %w", f, err)
		}
		fmt.Fprintf(out, "applied %s\n", f)
	}

	fmt.Fprintln(out, "migrations complete")
	return nil
}
