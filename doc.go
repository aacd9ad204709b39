// Package homeworkbot watches a Practicum homework-review API and forwards
// review status changes to a Telegram chat.
//
// # Quick Start
//
//	bot, _ := homeworkbot.New(
//	    homeworkbot.WithToken(os.Getenv("PRACTICUM_TOKEN")),
//	    homeworkbot.WithTelegram(os.Getenv("TELEGRAM_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID")),
//	)
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	bot.Start(ctx) // blocks until context is cancelled
//
// # Poll Loop
//
// Each iteration requests statuses updated since the cursor (from_date),
// validates the response, translates the most recent submission into a
// message and sends it. The bot then sleeps for the polling interval,
// whatever the outcome. Failures are classified with [homework.KindOf]:
// fetch failures are retried with backoff inside the iteration, malformed
// responses are logged (and optionally reported to the chat with
// [WithErrorReports]). A message identical to the last delivered one is not
// sent again.
//
// # Configuration
//
//	bot, err := homeworkbot.New(
//	    homeworkbot.WithToken(token),
//	    homeworkbot.WithTelegram(tgToken, chatID),
//	    homeworkbot.WithPollingInterval(5 * time.Minute),
//	    homeworkbot.WithRedis("localhost:6379", "", 0, ""),
//	    homeworkbot.WithStatusPort(8080),
//	)
//
// # Architecture
//
//   - homework: status table, message translation, typed errors
//   - internal/poller: API client and sequential poll scheduler
//   - internal/notify: Telegram delivery
//   - internal/store: poll snapshots with pub/sub, persisted poll state
//   - internal/metrics: Prometheus counters
//   - internal/server: optional status server (JSON, SSE, metrics)
//   - dashboard: embedded status page served by the status server
//
// The internal packages are not part of the public API and may change
// without notice.
package homeworkbot
