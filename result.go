package homeworkbot

import (
	"context"
	"time"

	"github.com/jpalmerr/homeworkbot/homework"
)

// PollResult holds the outcome of one poll iteration.
type PollResult struct {
	// PollID identifies the iteration in logs and the status API.
	PollID string

	// Cursor is the from_date sent with the request.
	Cursor int64

	// NextCursor is the from_date of the following iteration.
	NextCursor int64

	// Homeworks is the number of submissions in the response.
	Homeworks int

	// HomeworkName is the most recent submission's name. Empty when the
	// response listed no submissions or the iteration failed.
	HomeworkName string

	// Status is the most recent submission's review status.
	Status homework.Status

	// Message is the notification text produced by the iteration.
	Message string

	// Notified is true when Message was delivered to the chat.
	Notified bool

	// Attempts is the number of HTTP requests made, including retries.
	Attempts int

	// StatusCode is the HTTP status code of the last request.
	// Zero if the request failed before receiving a response.
	StatusCode int

	// Latency is the duration of the last request.
	Latency time.Duration

	// CheckedAt is when the iteration finished.
	CheckedAt time.Time

	// Err is the failure of the iteration, or nil. Use [homework.KindOf]
	// or errors.Is with the homework sentinels to classify it.
	Err error
}

// Notifier delivers notification text to a chat.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(ctx context.Context, text string) error

// Notify calls f(ctx, text).
func (f NotifierFunc) Notify(ctx context.Context, text string) error {
	return f(ctx, text)
}
