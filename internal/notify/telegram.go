// Package notify delivers notification text to a Telegram chat.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/jpalmerr/homeworkbot/homework"
)

const (
	// DefaultAPIURL is the public Telegram Bot API.
	DefaultAPIURL = tele.DefaultApiURL

	// DefaultTimeout bounds a single sendMessage request. It stays below the
	// CLI's shutdown grace period.
	DefaultTimeout = 5 * time.Second
)

// TelegramConfig configures a [Telegram] notifier.
type TelegramConfig struct {
	// Token is the bot token issued by BotFather.
	Token string

	// ChatID is a numeric chat id or a public "@channel" username.
	ChatID string

	// APIURL overrides the Bot API base URL. Defaults to [DefaultAPIURL].
	APIURL string

	// Timeout bounds each request. Defaults to [DefaultTimeout].
	Timeout time.Duration
}

// Telegram sends plain-text messages to a single chat.
type Telegram struct {
	bot  *tele.Bot
	chat tele.Recipient
}

// NewTelegram creates a [Telegram] notifier. No network call is made.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram token is required")
	}
	chat, err := ParseChatID(cfg.ChatID)
	if err != nil {
		return nil, err
	}

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	bot, err := tele.NewBot(tele.Settings{
		URL:     strings.TrimRight(apiURL, "/"),
		Token:   cfg.Token,
		Client:  &http.Client{Timeout: timeout},
		Offline: true, // skip getMe; we only send
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &Telegram{bot: bot, chat: chat}, nil
}

// Notify sends text to the configured chat. Failures are returned as
// [homework.KindNotify] errors.
//
// telebot requests cannot be cancelled. When ctx ends first Notify returns
// at once and the request finishes in the background, bounded by Timeout.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return homework.NotifyError(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(t.chat, text)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return homework.NotifyError(err)
		}
		return nil
	case <-ctx.Done():
		return homework.NotifyError(ctx.Err())
	}
}

// chatRecipient addresses a chat by its raw identifier.
type chatRecipient string

// Recipient implements tele.Recipient.
func (c chatRecipient) Recipient() string {
	return string(c)
}

// ParseChatID validates a chat identifier: a (possibly negative) integer or
// an "@username".
func ParseChatID(raw string) (tele.Recipient, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("telegram chat id is required")
	}
	if strings.HasPrefix(raw, "@") {
		if len(raw) == 1 {
			return nil, fmt.Errorf("invalid telegram chat id %q", raw)
		}
		return chatRecipient(raw), nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: must be numeric or @username", raw)
	}
	return tele.ChatID(id), nil
}
