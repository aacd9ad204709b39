// Standalone mock homework API for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver -step 30s
//
// Then in another terminal:
//
//	PRACTICUM_TOKEN=x TELEGRAM_TOKEN=y TELEGRAM_CHAT_ID=1 \
//	  go run ./cmd/homeworkbot check -c example/config.yaml --since 1h
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

func main() {
	addr := flag.String("addr", ":9999", "listen address")
	step := flag.Duration("step", 30*time.Second, "time between status changes")
	flag.Parse()

	fmt.Printf("Mock homework API starting on %s\n", *addr)
	fmt.Println("The submission cycles through: reviewing → rejected → reviewing → approved")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		mu        sync.Mutex
		statuses  = []string{"reviewing", "rejected", "reviewing", "approved"}
		statusIdx = 0
		updatedAt = time.Now()
	)

	http.HandleFunc("/api/user_api/homework_statuses/", func(w http.ResponseWriter, r *http.Request) {
		fromDate, _ := strconv.ParseInt(r.URL.Query().Get("from_date"), 10, 64)

		mu.Lock()
		now := time.Now()
		if now.Sub(updatedAt) >= *step {
			statusIdx = (statusIdx + 1) % len(statuses)
			updatedAt = now
			slog.Info("review status change", "status", statuses[statusIdx])
		}
		homeworks := []map[string]any{}
		if updatedAt.Unix() >= fromDate {
			homeworks = append(homeworks, map[string]any{
				"homework_name": "username__hw_python_oop.zip",
				"status":        statuses[statusIdx],
			})
		}
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"homeworks":    homeworks,
			"current_date": now.Unix(),
		})
	})

	if err := http.ListenAndServe(*addr, nil); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
