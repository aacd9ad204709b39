// Package main is the entry point for the homeworkbot CLI.
//
// Usage:
//
//	homeworkbot run                      # Poll and notify until interrupted
//	homeworkbot check                    # Run one iteration and print the result
//	homeworkbot validate -c config.yaml  # Validate configuration
//	homeworkbot version                  # Show version info
//
// Credentials are read from PRACTICUM_TOKEN, TELEGRAM_TOKEN and
// TELEGRAM_CHAT_ID, optionally seeded from a .env file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/homeworkbot/config"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "homeworkbot",
	Short: "Telegram notifications for Practicum homework reviews",
	Long: `homeworkbot polls the Practicum homework API and sends a Telegram
message whenever the review status of your latest submission changes.

Quick start:
  1. Put PRACTICUM_TOKEN, TELEGRAM_TOKEN and TELEGRAM_CHAT_ID in .env
  2. Run: homeworkbot run

Optional config (homeworkbot.yaml):
  poll_interval: 10m
  report_errors: true
  status_port: 8080
  redis:
    addr: ${REDIS_ADDR:-}`,
	SilenceUsage: true,
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this homeworkbot binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "homeworkbot %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file (defaults only when omitted)")
	rootCmd.PersistentFlags().String("env-file", config.DefaultEnvFile, "dotenv file with credentials (empty to skip)")
}

// loadConfig reads the --config file, or returns defaults when none is given.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// loadCredentials reads credentials after seeding the environment from --env-file.
func loadCredentials(cmd *cobra.Command) (config.Credentials, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	return config.LoadCredentials(envFile)
}
