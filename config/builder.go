package config

import (
	"io"
	"log/slog"
	"strings"

	"github.com/jpalmerr/homeworkbot"
)

// BuildOptions converts parsed configuration and credentials into bot options.
//
// logger may be nil, in which case the bot uses slog.Default().
func BuildOptions(cfg *Config, creds Credentials, logger *slog.Logger) []homeworkbot.Option {
	opts := []homeworkbot.Option{
		homeworkbot.WithToken(creds.PracticumToken),
		homeworkbot.WithEndpoint(cfg.Endpoint),
		homeworkbot.WithTelegram(creds.TelegramToken, creds.TelegramChatID),
		homeworkbot.WithPollingInterval(cfg.PollInterval.Duration()),
		homeworkbot.WithRequestTimeout(cfg.RequestTimeout.Duration()),
		homeworkbot.WithRetry(cfg.Retry.Attempts, cfg.Retry.InitialDelay.Duration(), cfg.Retry.MaxDelay.Duration()),
		homeworkbot.WithStatusPort(cfg.StatusPort),
		homeworkbot.WithFrozenCursor(cfg.FreezeCursor),
		homeworkbot.WithErrorReports(cfg.ReportErrors),
	}

	if cfg.Telegram.APIURL != "" {
		opts = append(opts, homeworkbot.WithTelegramAPIURL(cfg.Telegram.APIURL))
	}
	if cfg.StartCursor > 0 {
		opts = append(opts, homeworkbot.WithStartCursor(cfg.StartCursor))
	}
	if cfg.HistorySize > 0 {
		opts = append(opts, homeworkbot.WithHistorySize(cfg.HistorySize))
	}
	if cfg.Redis.Enabled() {
		opts = append(opts, homeworkbot.WithRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Key))
	}
	if logger != nil {
		opts = append(opts, homeworkbot.WithLogger(logger))
	}

	return opts
}

// NewLogger builds the slog logger described by the log settings.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler).With("logger", "homeworkbot")
}
