package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cogniscan",
	Short: "Dementia screening predictions from NACC patient datasets",
	Long: `cogniscan validates patient datasets, sends them to the prediction backend
and renders the results in the terminal.

Credentials come from --email/--password or COGNISCAN_EMAIL/COGNISCAN_PASSWORD.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	// .env is loaded by main after package init, so env defaults resolve here.
	PersistentPreRun: func(*cobra.Command, []string) {
		fromEnv(&configPath, "CONFIG_PATH")
		fromEnv(&email, "COGNISCAN_EMAIL")
		fromEnv(&password, "COGNISCAN_PASSWORD")
	},
}

func fromEnv(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}

// Global flags
var (
	configPath string
	email      string
	password   string
	logLevel   string
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a TOML config file (default $CONFIG_PATH)")
	flags.StringVar(&email, "email", "", "Account email (default $COGNISCAN_EMAIL)")
	flags.StringVar(&password, "password", "", "Account password (default $COGNISCAN_PASSWORD)")
	flags.StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
}
