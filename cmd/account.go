package cmd

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/porthorian/accountgate"
	"github.com/spf13/cobra"
)

type accountConfig struct {
	DatabaseURL string
	Username    string
	Password    string
	SwitchUser  string
	Verbosity   int
	Timeout     time.Duration
}

func init() {
	rootCmd.AddCommand(newAccountCommands()...)
}

func newAccountCommands() []*cobra.Command {
	cfg := accountConfig{
		Timeout: 10 * time.Second,
	}

	bind := func(c *cobra.Command) *cobra.Command {
		c.Flags().StringVar(&cfg.DatabaseURL, "database-url", "", "Database connection URL. Can also be set via ACCOUNTGATE_DATABASE_URL.")
		c.Flags().StringVar(&cfg.Username, "username", "", "Account to authenticate as.")
		c.Flags().StringVar(&cfg.Password, "password", "", "Account password. Can also be set via ACCOUNTGATE_PASSWORD.")
		c.Flags().StringVar(&cfg.SwitchUser, "switch-user", "", "Account to act as after authenticating.")
		c.Flags().IntVarP(&cfg.Verbosity, "verbose", "v", 0, "Log verbosity.")
		c.Flags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Deadline for the whole command.")
		return c
	}

	login := bind(&cobra.Command{
		Use:   "login",
		Short: "Check account credentials against the account service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, cfg, func(ctx context.Context, client *accountgate.Client, credentials accountgate.Credentials) error {
				if _, err := client.Resolve(ctx, credentials); err != nil {
					return err
				}
				cmd.Printf("Authenticated as %s\n", credentials)
				return nil
			})
		},
	})

	servers := bind(&cobra.Command{
		Use:   "servers",
		Short: "List linux servers visible to the account as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, cfg, func(ctx context.Context, client *accountgate.Client, credentials accountgate.Credentials) error {
				out, err := client.LinuxServers(ctx, credentials)
				if err != nil {
					return err
				}
				return writeJSON(cmd, out)
			})
		},
	})

	acls := bind(&cobra.Command{
		Use:   "acls",
		Short: "List linux daemon ACL entries visible to the account as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, cfg, func(ctx context.Context, client *accountgate.Client, credentials accountgate.Credentials) error {
				out, err := client.LinuxDaemonACLs(ctx, credentials)
				if err != nil {
					return err
				}
				return writeJSON(cmd, out)
			})
		},
	})

	return []*cobra.Command{login, servers, acls}
}

func withClient(cmd *cobra.Command, cfg accountConfig, fn func(context.Context, *accountgate.Client, accountgate.Credentials) error) error {
	databaseURL, err := resolveDatabaseURL(cfg.DatabaseURL, "ACCOUNTGATE_DATABASE_URL")
	if err != nil {
		return err
	}

	password := cfg.Password
	if password == "" {
		password = lookupEnv("ACCOUNTGATE_PASSWORD")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	client, err := accountgate.NewDefault(accountgate.Config{
		Logger: newLogger(cmd, cfg.Verbosity),
		Runtime: accountgate.RuntimeConfig{
			Connector: accountgate.ConnectorConfig{
				Backend: accountgate.ConnectorBackendPostgres,
				Postgres: accountgate.PostgresConfig{
					DSN:          databaseURL,
					MaxOpenConns: 2,
				},
			},
		},
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			cmd.PrintErrf("warning: failed to close client cleanly: %v\n", closeErr)
		}
	}()

	return fn(ctx, client, accountgate.Credentials{
		Username:   cfg.Username,
		Password:   password,
		SwitchUser: cfg.SwitchUser,
	})
}

func newLogger(cmd *cobra.Command, verbosity int) logr.Logger {
	stdr.SetVerbosity(verbosity)
	return stdr.New(log.New(cmd.ErrOrStderr(), "accountgate ", log.LstdFlags))
}

func writeJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
