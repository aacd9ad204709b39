package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/homeworkbot"
	"github.com/jpalmerr/homeworkbot/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// runCmd starts the poll loop.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll for review status changes and notify",
	Long: `Poll the homework API and send a Telegram message for every review
status change.

The bot will:
  - Check that all credentials are present (exit 1 otherwise, before any request)
  - Poll immediately, then every poll_interval
  - Keep running through API and Telegram failures

The bot runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  homeworkbot run
  homeworkbot run -c /etc/homeworkbot/config.yaml --env-file /etc/homeworkbot/.env`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := config.NewLogger(cfg, cmd.OutOrStdout())

	creds, err := loadCredentials(cmd)
	if err != nil {
		logger.Error("cannot start without credentials", "fatal", true, "error", err.Error())
		return err
	}

	bot, err := homeworkbot.New(config.BuildOptions(cfg, creds, logger)...)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- bot.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("bot error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("bot error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}

// contextOrBackground guards against commands executed without a context.
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
