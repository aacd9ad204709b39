package store

import (
	"context"
	"time"
)

// Snapshot represents the outcome of one poll iteration in storage.
//
// Snapshot is optimized for JSON serialization (used by the REST API and
// SSE). It is decoupled from the poller's internal types to allow
// independent evolution.
type Snapshot struct {
	// PollID identifies the iteration.
	PollID string `json:"poll_id"`

	// Cursor is the from_date sent with the request.
	Cursor int64 `json:"cursor"`

	// NextCursor is the from_date of the following iteration.
	NextCursor int64 `json:"next_cursor"`

	// Homeworks is the number of submissions returned.
	Homeworks int `json:"homeworks"`

	// HomeworkName is the most recent submission's name, if any.
	HomeworkName string `json:"homework_name,omitempty"`

	// Status is the most recent submission's review status, if any.
	Status string `json:"status,omitempty"`

	// Message is the notification text produced by the iteration.
	Message string `json:"message,omitempty"`

	// Notified is true when a message was delivered to the chat.
	Notified bool `json:"notified"`

	// Attempts is the number of HTTP requests made.
	Attempts int `json:"attempts"`

	// ResponseTimeMs is the latency of the last request in milliseconds.
	ResponseTimeMs int64 `json:"response_time_ms"`

	// CheckedAt is when the iteration finished.
	CheckedAt time.Time `json:"checked_at"`

	// ErrorKind classifies the failure (e.g. "missing_key"). Empty on success.
	ErrorKind string `json:"error_kind,omitempty"`

	// Error contains the failure message. nil indicates success.
	Error *string `json:"error"`
}

// Store holds recent snapshots and fans them out to subscribers.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Update records a snapshot and notifies all subscribers.
	Update(s Snapshot)

	// Latest returns the most recent snapshot. The second result is false
	// before the first update.
	Latest() (Snapshot, bool)

	// History returns recent snapshots, newest first.
	// The returned slice is a copy; modifications do not affect the store.
	History() []Snapshot

	// Subscribe returns a channel that receives snapshots.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Snapshot

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Snapshot)
}

// State is the poll state carried between iterations and, with a
// persistent [StateStore], across restarts.
type State struct {
	// Cursor is the from_date for the next request. Zero means unset.
	Cursor int64 `json:"cursor"`

	// LastMessage is the last notification delivered to the chat.
	LastMessage string `json:"last_message"`

	// LastFailure is the last failure report delivered to the chat.
	LastFailure string `json:"last_failure"`
}

// StateStore loads and saves [State].
type StateStore interface {
	// Load returns the stored state. The second result is false when
	// nothing has been saved yet.
	Load(ctx context.Context) (State, bool, error)

	// Save replaces the stored state.
	Save(ctx context.Context, st State) error

	// Close releases any underlying connections.
	Close() error
}
