package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	ocrypto "github.com/porthorian/accountgate/pkg/crypto"
	"github.com/spf13/cobra"
)

const upsertAccountQuery = `INSERT INTO accountgate.account (username, password_hash, disabled, can_switch_users)
VALUES ($1, $2, $3, $4)
ON CONFLICT (username) DO UPDATE
SET password_hash = EXCLUDED.password_hash,
    disabled = EXCLUDED.disabled,
    can_switch_users = EXCLUDED.can_switch_users`

const undefinedTableCode = "42P01"

type seedConfig struct {
	DatabaseURL    string
	Password       string
	Disabled       bool
	CanSwitchUsers bool
	Timeout        time.Duration
}

type seededAccount struct {
	Username       string
	Password       string
	Disabled       bool
	CanSwitchUsers bool
}

func init() {
	rootCmd.AddCommand(newSeedAccountCommand())
}

func newSeedAccountCommand() *cobra.Command {
	cfg := seedConfig{
		Timeout: 10 * time.Second,
	}

	seedCmd := &cobra.Command{
		Use:   "seed-account <username>",
		Short: "Create or update an account with a hashed password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := cfg.Password
			if password == "" {
				password = lookupEnv("ACCOUNTGATE_SEED_PASSWORD")
			}
			if password == "" {
				return errors.New("missing password: set --password or ACCOUNTGATE_SEED_PASSWORD")
			}

			databaseURL, err := resolveDatabaseURL(cfg.DatabaseURL, "ACCOUNTGATE_DATABASE_URL")
			if err != nil {
				return err
			}

			db, err := sql.Open("pgx", databaseURL)
			if err != nil {
				return fmt.Errorf("open account database: %w", err)
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
			defer cancel()

			account := seededAccount{
				Username:       args[0],
				Password:       password,
				Disabled:       cfg.Disabled,
				CanSwitchUsers: cfg.CanSwitchUsers,
			}
			if err := seedAccount(ctx, db, ocrypto.NewSchemeHasher(nil, nil), account); err != nil {
				return err
			}

			cmd.Printf("Seeded account %s\n", strings.TrimSpace(account.Username))
			return nil
		},
	}

	seedCmd.Flags().StringVar(&cfg.DatabaseURL, "database-url", "", "Postgres connection URL. Can also be set via ACCOUNTGATE_DATABASE_URL.")
	seedCmd.Flags().StringVar(&cfg.Password, "password", "", "Account password. Can also be set via ACCOUNTGATE_SEED_PASSWORD.")
	seedCmd.Flags().BoolVar(&cfg.Disabled, "disabled", false, "Store the account as disabled.")
	seedCmd.Flags().BoolVar(&cfg.CanSwitchUsers, "can-switch-users", false, "Allow the account to act as other accounts.")
	seedCmd.Flags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Deadline for the whole command.")

	return seedCmd
}

// seedAccount upserts account with a fresh hash, so reseeding rotates the
// password and flags.
func seedAccount(ctx context.Context, db *sql.DB, hasher ocrypto.Hasher, account seededAccount) error {
	username := strings.TrimSpace(account.Username)
	if username == "" {
		return errors.New("missing account username")
	}

	hash, err := hasher.Hash(account.Password)
	if err != nil {
		return fmt.Errorf("hash password for %s: %w", username, err)
	}

	if _, err := db.ExecContext(ctx, upsertAccountQuery, username, hash, account.Disabled, account.CanSwitchUsers); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode {
			return fmt.Errorf("seed account %s: account schema missing, run migrate up first: %w", username, err)
		}
		return fmt.Errorf("seed account %s: %w", username, err)
	}
	return nil
}
