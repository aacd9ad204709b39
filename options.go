package homeworkbot

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/jpalmerr/homeworkbot/internal/store"
)

// botConfig holds mutable state during Bot construction.
type botConfig struct {
	token           string
	endpoint        string
	pollingInterval time.Duration
	requestTimeout  time.Duration
	retry           retryPolicy
	telegramToken   string
	chatID          string
	telegramAPIURL  string
	notifier        Notifier
	statusPort      int
	historySize     int
	redis           *store.RedisConfig
	logger          *slog.Logger
	resultCallbacks []func(PollResult)
	startCursor     int64
	freezeCursor    bool
	reportErrors    bool
	readOnlyState   bool
}

type retryPolicy struct {
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
}

// Option is a function that configures a [Bot] during construction.
//
// Options return an error if validation fails.
type Option func(*botConfig) error

// WithToken sets the OAuth token for the review API. Required.
func WithToken(token string) Option {
	return func(cfg *botConfig) error {
		if token == "" {
			return errors.New("practicum token cannot be empty")
		}
		cfg.token = token
		return nil
	}
}

// WithEndpoint overrides the status endpoint URL.
// Defaults to [DefaultEndpoint].
//
// Returns an error if the URL is not an absolute http(s) URL.
func WithEndpoint(endpoint string) Option {
	return func(cfg *botConfig) error {
		u, err := url.Parse(endpoint)
		if err != nil {
			return fmt.Errorf("invalid endpoint URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("endpoint URL must use http or https scheme, got %q", u.Scheme)
		}
		if u.Host == "" {
			return errors.New("endpoint URL must have a host")
		}
		cfg.endpoint = endpoint
		return nil
	}
}

// WithPollingInterval sets the sleep between iterations.
// Defaults to 10 minutes.
//
// Returns an error if the duration is zero or negative.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *botConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithRequestTimeout bounds each API request. Defaults to 10 seconds.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *botConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithRetry configures retries of temporary fetch failures (transport
// errors, 429 and 5xx) within one iteration. maxAttempts counts the first
// request; 1 disables retries. Defaults to 3 attempts starting at 1s.
func WithRetry(maxAttempts int, initialDelay, maxDelay time.Duration) Option {
	return func(cfg *botConfig) error {
		if maxAttempts < 1 {
			return errors.New("retry attempts must be at least 1")
		}
		if initialDelay < 0 || maxDelay < 0 {
			return errors.New("retry delays cannot be negative")
		}
		cfg.retry = retryPolicy{maxAttempts: maxAttempts, initialDelay: initialDelay, maxDelay: maxDelay}
		return nil
	}
}

// WithTelegram delivers notifications through the Telegram Bot API.
// chatID is a numeric chat id or an "@channel" username.
func WithTelegram(token, chatID string) Option {
	return func(cfg *botConfig) error {
		if token == "" {
			return errors.New("telegram token cannot be empty")
		}
		if chatID == "" {
			return errors.New("telegram chat id cannot be empty")
		}
		cfg.telegramToken = token
		cfg.chatID = chatID
		return nil
	}
}

// WithTelegramAPIURL overrides the Bot API base URL, e.g. for a local Bot
// API server.
func WithTelegramAPIURL(apiURL string) Option {
	return func(cfg *botConfig) error {
		u, err := url.Parse(apiURL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("invalid telegram API URL %q", apiURL)
		}
		cfg.telegramAPIURL = apiURL
		return nil
	}
}

// WithNotifier delivers notifications through n instead of Telegram.
// Takes precedence over [WithTelegram].
func WithNotifier(n Notifier) Option {
	return func(cfg *botConfig) error {
		if n == nil {
			return errors.New("notifier cannot be nil")
		}
		cfg.notifier = n
		return nil
	}
}

// WithStatusPort enables the status server on the given port.
// Port 0 (the default) disables it.
func WithStatusPort(port int) Option {
	return func(cfg *botConfig) error {
		if port < 0 || port > 65535 {
			return errors.New("port must be between 0 and 65535")
		}
		cfg.statusPort = port
		return nil
	}
}

// WithHistorySize sets how many poll snapshots the status server keeps.
func WithHistorySize(n int) Option {
	return func(cfg *botConfig) error {
		if n <= 0 {
			return errors.New("history size must be positive")
		}
		cfg.historySize = n
		return nil
	}
}

// WithRedis persists the cursor and the last delivered message in a Redis
// hash so they survive restarts. key defaults to "homeworkbot:state".
func WithRedis(addr, password string, db int, key string) Option {
	return func(cfg *botConfig) error {
		if addr == "" {
			return errors.New("redis address cannot be empty")
		}
		if db < 0 {
			return errors.New("redis db cannot be negative")
		}
		cfg.redis = &store.RedisConfig{Addr: addr, Password: password, DB: db, Key: key}
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *botConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithResultCallback registers a function to be called after every iteration.
//
// Multiple callbacks may be registered; they execute in registration order,
// after the notification was sent and the status store updated.
//
// Callbacks are invoked synchronously from a single goroutine and must not
// block. Panics within callbacks are recovered and logged.
//
// Nil callbacks are silently ignored.
func WithResultCallback(cb func(PollResult)) Option {
	return func(cfg *botConfig) error {
		if cb == nil {
			return nil
		}
		cfg.resultCallbacks = append(cfg.resultCallbacks, cb)
		return nil
	}
}

// WithStartCursor sets the initial from_date (Unix seconds), overriding both
// "now" and any persisted cursor.
func WithStartCursor(ts int64) Option {
	return func(cfg *botConfig) error {
		if ts < 0 {
			return errors.New("start cursor cannot be negative")
		}
		cfg.startCursor = ts
		return nil
	}
}

// WithFrozenCursor keeps the start cursor for the whole process lifetime
// instead of advancing it after each successful poll.
func WithFrozenCursor(frozen bool) Option {
	return func(cfg *botConfig) error {
		cfg.freezeCursor = frozen
		return nil
	}
}

// WithErrorReports sends a "Сбой в работе программы: ..." message to the
// chat when an iteration fails. The same failure is reported once until an
// iteration succeeds or the failure changes.
func WithErrorReports(enabled bool) Option {
	return func(cfg *botConfig) error {
		cfg.reportErrors = enabled
		return nil
	}
}

// WithReadOnlyState loads poll state but never saves it, so a trial run
// leaves the cursor and the last delivered message untouched for later runs.
func WithReadOnlyState() Option {
	return func(cfg *botConfig) error {
		cfg.readOnlyState = true
		return nil
	}
}
