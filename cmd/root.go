package cmd

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var BuildVersion = "dev"

var rootCmd = &cobra.Command{
	Use:   "accountgate",
	Short: "accountgate CLI",
	Long:  "CLI for accountgate schema management and credential checks.",
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of the accountgate CLI",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("%s\n", BuildVersion)
		},
	})
}

func Execute() error {
	return rootCmd.Execute()
}

func lookupEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// resolveDatabaseURL prefers the flag value, then the first non-empty
// variable in envKeys.
func resolveDatabaseURL(flagValue string, envKeys ...string) (string, error) {
	databaseURL := strings.TrimSpace(flagValue)
	for _, key := range envKeys {
		if databaseURL != "" {
			break
		}
		databaseURL = lookupEnv(key)
	}
	if databaseURL == "" {
		hint := "--database-url"
		if len(envKeys) > 0 {
			hint += " or " + envKeys[0]
		}
		return "", errors.New("missing database URL: set " + hint)
	}
	return databaseURL, nil
}
