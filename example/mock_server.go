package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// mockReview tracks the status of the single mock submission.
type mockReview struct {
	statusIdx int
	updatedAt time.Time
	nextAt    time.Time
}

// StartMockPracticum runs a mock homework API whose submission moves through
// a review cycle, changing status every step.
// Call this in a goroutine before starting the bot.
func StartMockPracticum(addr string, step time.Duration) {
	var (
		mu       sync.Mutex
		statuses = []string{"reviewing", "rejected", "reviewing", "approved"}
		review   = &mockReview{updatedAt: time.Now(), nextAt: time.Now().Add(step)}
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/user_api/homework_statuses/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "OAuth ") {
			http.Error(w, `{"code": "not_authenticated"}`, http.StatusUnauthorized)
			return
		}
		fromDate, err := strconv.ParseInt(r.URL.Query().Get("from_date"), 10, 64)
		if err != nil {
			http.Error(w, `{"code": "UnknownError", "error": {"error": "Wrong from_date format"}}`, http.StatusBadRequest)
			return
		}

		mu.Lock()
		now := time.Now()
		if now.After(review.nextAt) && review.statusIdx < len(statuses)-1 {
			review.statusIdx++
			review.updatedAt = now
			review.nextAt = now.Add(step)
			slog.Info("review status change", "status", statuses[review.statusIdx])
		}
		homeworks := []map[string]any{}
		if review.updatedAt.Unix() >= fromDate {
			homeworks = append(homeworks, map[string]any{
				"id":               124,
				"homework_name":    "username__hw_python_oop.zip",
				"status":           statuses[review.statusIdx],
				"reviewer_comment": "Mock review",
				"date_updated":     review.updatedAt.UTC().Format(time.RFC3339),
				"lesson_name":      "Итоговый проект",
			})
		}
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"homeworks":    homeworks,
			"current_date": now.Unix(),
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}
