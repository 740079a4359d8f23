package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
	"github.com/porthorian/accountgate/pkg/connector/postgres/migrations"
	"github.com/spf13/cobra"
)

// accountSchema owns every accountgate table, the version table included.
const accountSchema = "accountgate"

const defaultMigrationsTable = "schema_migrations"

type migrateConfig struct {
	DatabaseURL     string
	MigrationsTable string
	MigrationsPath  string
}

type migrationStepper interface {
	Steps(n int) error
}

type migrationRunner struct {
	*migrate.Migrate
	source string
}

func (r *migrationRunner) close() error {
	if r == nil || r.Migrate == nil {
		return nil
	}
	sourceErr, databaseErr := r.Migrate.Close()
	return errors.Join(sourceErr, databaseErr)
}

func init() {
	rootCmd.AddCommand(newMigrateCommand())
}

func newMigrateCommand() *cobra.Command {
	var cfg migrateConfig

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the accountgate Postgres schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	migrateCmd.PersistentFlags().StringVar(&cfg.DatabaseURL, "database-url", "", "Postgres connection URL. Can also be set via ACCOUNTGATE_MIGRATE_DATABASE_URL or ACCOUNTGATE_DATABASE_URL.")
	migrateCmd.PersistentFlags().StringVar(&cfg.MigrationsTable, "migrations-table", "", "Version table inside the accountgate schema (default schema_migrations). Can also be set via ACCOUNTGATE_MIGRATE_MIGRATIONS_TABLE.")
	migrateCmd.PersistentFlags().StringVar(&cfg.MigrationsPath, "migrations-path", "", "Directory or source URL that replaces the built-in account schema migrations.")

	withRunner := func(cmd *cobra.Command, fn func(*migrationRunner) error) error {
		runner, err := openMigrationRunner(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := runner.close(); closeErr != nil {
				cmd.PrintErrf("warning: failed to close migration runner cleanly: %v\n", closeErr)
			}
		}()
		return fn(runner)
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up [steps]",
		Short: "Apply pending account schema migrations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, hasSteps, err := parseMigrationStepsArg(args)
			if err != nil {
				return err
			}

			return withRunner(cmd, func(runner *migrationRunner) error {
				if !hasSteps {
					err := runner.Up()
					if isMigrationBoundary(err) {
						cmd.Println("Account schema is up to date.")
						return nil
					}
					if err != nil {
						return fmt.Errorf("apply migrations: %w", err)
					}
					cmd.Printf("Applied all pending migrations from %s\n", runner.source)
					return nil
				}

				applied, err := stepMigrations(runner, steps)
				if err != nil {
					return fmt.Errorf("apply migrations: %w", err)
				}
				cmd.Println(describeSteps("Applied", applied, steps, runner.source))
				return nil
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down <steps>",
		Short: "Roll the account schema back by step count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _, err := parseMigrationStepsArg(args)
			if err != nil {
				return err
			}

			return withRunner(cmd, func(runner *migrationRunner) error {
				rolledBack, err := stepMigrations(runner, -steps)
				if err != nil {
					return fmt.Errorf("rollback migrations: %w", err)
				}
				cmd.Println(describeSteps("Rolled back", rolledBack, steps, runner.source))
				return nil
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Force-set the account schema version (-1 for nil version)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersionArg(args[0])
			if err != nil {
				return err
			}

			return withRunner(cmd, func(runner *migrationRunner) error {
				if err := runner.Force(version); err != nil {
					return fmt.Errorf("force migration version: %w", err)
				}
				if version == -1 {
					cmd.Println("Forced account schema version to -1 (no version).")
					return nil
				}
				cmd.Printf("Forced account schema version to %d.\n", version)
				return nil
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the applied account schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd, func(runner *migrationRunner) error {
				version, dirty, err := runner.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					cmd.Println("Account schema has no migrations applied.")
					return nil
				}
				if err != nil {
					return fmt.Errorf("read migration version: %w", err)
				}
				if dirty {
					cmd.Printf("Account schema at version %d (dirty: fix the schema, then run migrate force %d)\n", version, version)
					return nil
				}
				cmd.Printf("Account schema at version %d\n", version)
				return nil
			})
		},
	})

	return migrateCmd
}

func parseMigrationStepsArg(args []string) (int, bool, error) {
	if len(args) == 0 {
		return 0, false, nil
	}

	steps, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil || steps <= 0 {
		return 0, false, fmt.Errorf("invalid migration steps %q: expected a positive integer", args[0])
	}
	return steps, true, nil
}

func parseForceVersionArg(arg string) (int, error) {
	version, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || version < -1 {
		return 0, fmt.Errorf("invalid force version %q: expected an integer >= -1", arg)
	}
	return version, nil
}

// stepMigrations runs n steps (negative rolls back) and reports how many
// ran before the first or last migration was reached.
func stepMigrations(m migrationStepper, n int) (int, error) {
	requested := n
	if requested < 0 {
		requested = -requested
	}

	err := m.Steps(n)
	if err == nil {
		return requested, nil
	}
	if isMigrationBoundary(err) {
		return 0, nil
	}

	var shortLimit migrate.ErrShortLimit
	if errors.As(err, &shortLimit) {
		return max(requested-int(shortLimit.Short), 0), nil
	}
	return 0, err
}

func describeSteps(verb string, done int, requested int, source string) string {
	switch {
	case done == 0:
		return "No account schema changes."
	case done < requested:
		return fmt.Sprintf("%s %d of %d migration step(s) from %s (reached migration boundary)", verb, done, requested, source)
	default:
		return fmt.Sprintf("%s %d migration step(s) from %s", verb, done, source)
	}
}

// isMigrationBoundary also matches the bare os.ErrNotExist that Steps
// returns when no migration exists in the requested direction.
func isMigrationBoundary(err error) bool {
	return errors.Is(err, migrate.ErrNoChange) || errors.Is(err, os.ErrNotExist)
}

func openMigrationRunner(cfg migrateConfig) (*migrationRunner, error) {
	databaseURL, err := resolveDatabaseURL(cfg.DatabaseURL, "ACCOUNTGATE_MIGRATE_DATABASE_URL", "ACCOUNTGATE_DATABASE_URL")
	if err != nil {
		return nil, err
	}
	table, err := resolveMigrationsTable(cfg.MigrationsTable)
	if err != nil {
		return nil, err
	}

	if err := bootstrapAccountSchema(databaseURL); err != nil {
		return nil, err
	}
	databaseURL, err = withMigrationsTable(databaseURL, table)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.MigrationsPath) != "" {
		sourceURL, err := resolveMigrationsSourceURL(cfg.MigrationsPath)
		if err != nil {
			return nil, err
		}
		m, err := migrate.New(sourceURL, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("create migrate runner: %w", err)
		}
		return &migrationRunner{Migrate: m, source: sourceURL}, nil
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("load built-in migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create migrate runner: %w", err)
	}
	return &migrationRunner{Migrate: m, source: "built-in account schema"}, nil
}

func resolveMigrationsTable(flagValue string) (string, error) {
	table := strings.TrimSpace(flagValue)
	if table == "" {
		table = lookupEnv("ACCOUNTGATE_MIGRATE_MIGRATIONS_TABLE")
	}
	if table == "" {
		return defaultMigrationsTable, nil
	}
	if strings.ContainsAny(table, `."`) {
		return "", fmt.Errorf("invalid migrations table %q: expected a bare table name inside the %s schema", table, accountSchema)
	}
	return table, nil
}

// withMigrationsTable pins the version table inside the account schema
// unless the URL already names one.
func withMigrationsTable(databaseURL string, table string) (string, error) {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parse --database-url: %w", err)
	}

	query := parsed.Query()
	if strings.TrimSpace(query.Get("x-migrations-table")) != "" {
		return databaseURL, nil
	}
	query.Set("x-migrations-table", pq.QuoteIdentifier(accountSchema)+"."+pq.QuoteIdentifier(table))
	query.Set("x-migrations-table-quoted", "true")

	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// bootstrapAccountSchema creates the account schema before golang-migrate
// creates its version table there.
func bootstrapAccountSchema(databaseURL string) error {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("parse --database-url: %w", err)
	}

	db, err := sql.Open("postgres", migrate.FilterCustomQuery(parsed).String())
	if err != nil {
		return fmt.Errorf("open database for schema bootstrap: %w", err)
	}
	defer db.Close()

	return ensureAccountSchema(db)
}

func ensureAccountSchema(db *sql.DB) error {
	if _, err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + pq.QuoteIdentifier(accountSchema)); err != nil {
		return fmt.Errorf("ensure %s schema exists: %w", accountSchema, err)
	}
	return nil
}

func resolveMigrationsSourceURL(pathOrURL string) (string, error) {
	pathOrURL = strings.TrimSpace(pathOrURL)
	if strings.Contains(pathOrURL, "://") {
		return pathOrURL, nil
	}

	absPath, err := filepath.Abs(pathOrURL)
	if err != nil {
		return "", fmt.Errorf("resolve migrations path %q: %w", pathOrURL, err)
	}
	return "file://" + filepath.ToSlash(absPath), nil
}
