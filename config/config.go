// Package config provides YAML settings and credential loading for the
// homeworkbot binary.
//
// Settings come from an optional YAML file; credentials come from the
// environment, optionally seeded from a .env file. Example configuration:
//
//	poll_interval: 10m
//	request_timeout: 10s
//	report_errors: true
//	status_port: 8080
//
//	retry:
//	  attempts: 3
//	  initial_delay: 1s
//
//	redis:
//	  addr: ${REDIS_ADDR:-localhost:6379}
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// minPollInterval keeps a misconfigured bot from hammering the review API.
const minPollInterval = 1 * time.Second

// Defaults applied by [Parse].
const (
	DefaultEndpoint       = "https://practicum.yandex.ru/api/user_api/homework_statuses/"
	DefaultPollInterval   = 10 * time.Minute
	DefaultRequestTimeout = 10 * time.Second
	DefaultRetryAttempts  = 3
	DefaultRetryDelay     = time.Second
	DefaultRetryMaxDelay  = 30 * time.Second
	DefaultRedisKey       = "homeworkbot:state"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// Config is the root configuration structure.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML, or [Default] for a
// Config without a file.
type Config struct {
	// Endpoint is the status endpoint URL.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Endpoint string `yaml:"endpoint"`

	// PollInterval is the sleep between iterations. Defaults to 10m.
	PollInterval Duration `yaml:"poll_interval"`

	// RequestTimeout bounds each API request. Defaults to 10s.
	RequestTimeout Duration `yaml:"request_timeout"`

	// Retry bounds retries of temporary fetch failures.
	Retry RetryConfig `yaml:"retry"`

	// StartCursor is the initial from_date (Unix seconds). Zero means now,
	// or the persisted cursor when Redis is configured.
	StartCursor int64 `yaml:"start_cursor"`

	// FreezeCursor keeps the start cursor instead of advancing it.
	FreezeCursor bool `yaml:"freeze_cursor"`

	// ReportErrors sends failure reports to the chat.
	ReportErrors bool `yaml:"report_errors"`

	// StatusPort enables the status server. 0 disables it.
	StatusPort int `yaml:"status_port"`

	// HistorySize is the number of poll snapshots the status server keeps.
	HistorySize int `yaml:"history_size"`

	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `yaml:"log_level"`

	// LogFormat is text or json. Defaults to text.
	LogFormat string `yaml:"log_format"`

	// Telegram holds Bot API settings other than credentials.
	Telegram TelegramConfig `yaml:"telegram"`

	// Redis enables persistent poll state when Addr is set.
	Redis RedisConfig `yaml:"redis"`
}

// RetryConfig configures fetch retries.
type RetryConfig struct {
	// Attempts is the total number of requests per iteration. Defaults to 3.
	Attempts int `yaml:"attempts"`

	// InitialDelay is the delay before the first retry. Defaults to 1s.
	InitialDelay Duration `yaml:"initial_delay"`

	// MaxDelay caps the delay between retries. Defaults to 30s.
	MaxDelay Duration `yaml:"max_delay"`
}

// TelegramConfig holds Bot API settings.
type TelegramConfig struct {
	// APIURL overrides the Bot API base URL.
	APIURL string `yaml:"api_url"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// Enabled reports whether Redis state is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data, applies defaults and validates.
//
// Environment variables are expanded in endpoint, telegram.api_url and the
// redis address and password.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.PollInterval == 0 {
		c.PollInterval = Duration(DefaultPollInterval)
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = Duration(DefaultRequestTimeout)
	}
	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = DefaultRetryAttempts
	}
	if c.Retry.InitialDelay == 0 {
		c.Retry.InitialDelay = Duration(DefaultRetryDelay)
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = Duration(DefaultRetryMaxDelay)
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.Redis.Key == "" {
		c.Redis.Key = DefaultRedisKey
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	expanded, err := expandEnvVars(c.Endpoint)
	if err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	c.Endpoint = expanded
	if err := validateURL(c.Endpoint); err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}

	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}
	if c.RequestTimeout.Duration() < 0 {
		return fmt.Errorf("request_timeout cannot be negative, got %s", c.RequestTimeout.Duration())
	}
	if c.RequestTimeout.Duration() < time.Second {
		return fmt.Errorf("request_timeout must be at least 1s, got %s", c.RequestTimeout.Duration())
	}

	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts must be at least 1, got %d", c.Retry.Attempts)
	}
	if c.Retry.InitialDelay.Duration() < 0 || c.Retry.MaxDelay.Duration() < 0 {
		return fmt.Errorf("retry delays cannot be negative")
	}
	if c.Retry.MaxDelay.Duration() < c.Retry.InitialDelay.Duration() {
		return fmt.Errorf("retry.max_delay (%s) must not be less than retry.initial_delay (%s)",
			c.Retry.MaxDelay.Duration(), c.Retry.InitialDelay.Duration())
	}

	if c.StartCursor < 0 {
		return fmt.Errorf("start_cursor cannot be negative, got %d", c.StartCursor)
	}
	if c.StatusPort < 0 || c.StatusPort > 65535 {
		return fmt.Errorf("status_port must be between 0 and 65535, got %d", c.StatusPort)
	}
	if c.HistorySize < 0 {
		return fmt.Errorf("history_size cannot be negative, got %d", c.HistorySize)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}

	if c.Telegram.APIURL != "" {
		expanded, err := expandEnvVars(c.Telegram.APIURL)
		if err != nil {
			return fmt.Errorf("telegram.api_url: %w", err)
		}
		c.Telegram.APIURL = expanded
		if err := validateURL(c.Telegram.APIURL); err != nil {
			return fmt.Errorf("telegram.api_url: %w", err)
		}
	}

	if c.Redis.Addr, err = expandEnvVars(c.Redis.Addr); err != nil {
		return fmt.Errorf("redis.addr: %w", err)
	}
	if c.Redis.Password, err = expandEnvVars(c.Redis.Password); err != nil {
		return fmt.Errorf("redis.password: %w", err)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db cannot be negative, got %d", c.Redis.DB)
	}

	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("url must have a scheme (http:// or https://)")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url must have a host")
	}
	return nil
}
