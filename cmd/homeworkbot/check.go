package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/homeworkbot"
	"github.com/jpalmerr/homeworkbot/config"
	"github.com/jpalmerr/homeworkbot/homework"
)

// checkCmd runs a single iteration.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one poll iteration and print the result",
	Long: `Run a single poll iteration and print what the bot saw.

By default the message is printed instead of sent and the stored poll state
is left untouched, so a later "run" still delivers it. Pass --send to deliver
it to Telegram and record the delivery. Useful to verify tokens and the
chat id. Logs go to stdout, like "run".

Exit codes:
  0 - Iteration succeeded
  1 - Credentials missing or the iteration failed

Example:
  homeworkbot check
  homeworkbot check --since 2h --send`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().Bool("send", false, "deliver the message to Telegram")
	checkCmd.Flags().Duration("since", 0, "look back this far instead of starting from now")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	out := cmd.OutOrStdout()
	logger := config.NewLogger(cfg, out)

	creds, err := loadCredentials(cmd)
	if err != nil {
		logger.Error("cannot start without credentials", "fatal", true, "error", err.Error())
		return err
	}

	opts := config.BuildOptions(cfg, creds, logger)

	if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
		opts = append(opts, homeworkbot.WithStartCursor(time.Now().Add(-since).Unix()))
	}
	if send, _ := cmd.Flags().GetBool("send"); !send {
		opts = append(opts,
			homeworkbot.WithNotifier(printNotifier(out)),
			homeworkbot.WithReadOnlyState(),
		)
	}

	bot, err := homeworkbot.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	result, err := bot.RunOnce(contextOrBackground(cmd.Context()))
	if err != nil {
		return err
	}

	printResult(out, result)
	if result.Err != nil {
		return fmt.Errorf("check failed: %w", result.Err)
	}
	return nil
}

// printNotifier writes messages to w instead of sending them.
func printNotifier(w io.Writer) homeworkbot.Notifier {
	return homeworkbot.NotifierFunc(func(_ context.Context, text string) error {
		_, err := fmt.Fprintf(w, "Message: %s\n", text)
		return err
	})
}

func printResult(w io.Writer, r homeworkbot.PollResult) {
	fmt.Fprintf(w, "From date:   %d\n", r.Cursor)
	fmt.Fprintf(w, "HTTP status: %d (%d attempt(s), %s)\n", r.StatusCode, r.Attempts, r.Latency.Round(time.Millisecond))
	fmt.Fprintf(w, "Homeworks:   %d\n", r.Homeworks)
	if r.HomeworkName != "" {
		fmt.Fprintf(w, "Latest:      %s (%s)\n", r.HomeworkName, r.Status)
	}
	if r.Err != nil {
		fmt.Fprintf(w, "Error:       [%s] %v\n", homework.KindOf(r.Err), r.Err)
	}
}
