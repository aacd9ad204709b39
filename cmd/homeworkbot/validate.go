package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/homeworkbot/config"
)

// validateCmd validates a config file without starting the bot.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a homeworkbot configuration file without starting the bot.

This command parses the YAML, expands environment variables, and validates
all fields. Credentials are not checked.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  homeworkbot validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		return fmt.Errorf("required flag \"config\" not set")
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	state := "memory"
	if cfg.Redis.Enabled() {
		state = "redis " + cfg.Redis.Addr
	}
	server := "disabled"
	if cfg.StatusPort > 0 {
		server = fmt.Sprintf("port %d", cfg.StatusPort)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Endpoint:      %s\n", cfg.Endpoint)
	fmt.Fprintf(out, "  Poll interval: %s\n", cfg.PollInterval.Duration())
	fmt.Fprintf(out, "  Retries:       %d attempt(s)\n", cfg.Retry.Attempts)
	fmt.Fprintf(out, "  State:         %s\n", state)
	fmt.Fprintf(out, "  Status server: %s\n", server)

	return nil
}
