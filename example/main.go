package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/homeworkbot"
)

func main() {
	// start mock API (see mock_server.go)
	go StartMockPracticum(":9999", 15*time.Second)
	time.Sleep(100 * time.Millisecond)

	// print messages instead of sending them to Telegram
	console := homeworkbot.NotifierFunc(func(_ context.Context, text string) error {
		fmt.Printf("\n  >> %s\n\n", text)
		return nil
	})

	bot, err := homeworkbot.New(
		homeworkbot.WithToken("demo-token"),
		homeworkbot.WithEndpoint("http://localhost:9999/api/user_api/homework_statuses/"),
		homeworkbot.WithNotifier(console),
		homeworkbot.WithPollingInterval(5*time.Second),
		homeworkbot.WithStartCursor(time.Now().Add(-time.Hour).Unix()),
		homeworkbot.WithStatusPort(8080),
		homeworkbot.WithResultCallback(func(r homeworkbot.PollResult) {
			if r.Err != nil {
				slog.Warn("iteration failed", "error", r.Err)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   homeworkbot demo                                    ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Mock review changes status every 15s                ║")
	fmt.Println("  ║   Status: http://localhost:8080/api/status            ║")
	fmt.Println("  ║   Events: http://localhost:8080/api/sse               ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bot.Start(ctx); err != nil {
		slog.Error("homeworkbot error", "error", err)
		os.Exit(1)
	}
}
