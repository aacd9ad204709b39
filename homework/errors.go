package homework

import (
	"errors"
	"fmt"
)

// Kind classifies a failure in the poll-check-notify cycle.
type Kind int

const (
	// KindNone is returned by [KindOf] for nil or foreign errors.
	KindNone Kind = iota

	// KindConfigMissing means a required credential is absent. Fatal.
	KindConfigMissing

	// KindFetch covers transport failures and non-OK HTTP responses.
	KindFetch

	// KindParse means the response body is not valid JSON.
	KindParse

	// KindMissingKey means a required key is absent from the payload.
	KindMissingKey

	// KindTypeMismatch means a value has the wrong JSON type.
	KindTypeMismatch

	// KindMissingStatus means a submission has a null or absent status.
	KindMissingStatus

	// KindUnexpectedStatus means a submission status is not in the verdict table.
	KindUnexpectedStatus

	// KindNotify means the notification could not be delivered.
	KindNotify
)

// String returns the snake_case name used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindConfigMissing:
		return "config_missing"
	case KindFetch:
		return "fetch_failure"
	case KindParse:
		return "parse_failure"
	case KindMissingKey:
		return "missing_key"
	case KindTypeMismatch:
		return "type_mismatch"
	case KindMissingStatus:
		return "missing_status"
	case KindUnexpectedStatus:
		return "unexpected_status"
	case KindNotify:
		return "notify_failure"
	default:
		return "none"
	}
}

// Sentinels for use with errors.Is. Any [*Error] of the same kind matches.
var (
	ErrConfigMissing    = &Error{Kind: KindConfigMissing}
	ErrFetch            = &Error{Kind: KindFetch}
	ErrParse            = &Error{Kind: KindParse}
	ErrMissingKey       = &Error{Kind: KindMissingKey}
	ErrTypeMismatch     = &Error{Kind: KindTypeMismatch}
	ErrMissingStatus    = &Error{Kind: KindMissingStatus}
	ErrUnexpectedStatus = &Error{Kind: KindUnexpectedStatus}
	ErrNotify           = &Error{Kind: KindNotify}
)

// Error is the typed failure returned throughout the bot.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Key is the payload key or environment variable involved, if any.
	Key string

	// Detail is a short human-readable description.
	Detail string

	// StatusCode is the HTTP status for fetch failures that got a response.
	StatusCode int

	// Err is the underlying cause, if any.
	Err error

	temporary bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Key != "" {
		msg += fmt.Sprintf(" %q", e.Key)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an [*Error] of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Temporary reports whether retrying the same request may succeed.
// Only fetch failures can be temporary.
func (e *Error) Temporary() bool {
	return e.Kind == KindFetch && e.temporary
}

// KindOf returns the [Kind] of err, or [KindNone] if err is not an [*Error].
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}

// IsTemporary reports whether err is a temporary fetch failure.
func IsTemporary(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Temporary()
}

// MissingConfig returns a [KindConfigMissing] error for the named variable.
func MissingConfig(name string) *Error {
	return &Error{Kind: KindConfigMissing, Key: name, Detail: "required variable is not set"}
}

// FetchError returns a [KindFetch] error. A zero statusCode means the
// request failed before a response arrived; such failures are temporary,
// as are 429 and 5xx responses.
func FetchError(statusCode int, err error) *Error {
	e := &Error{Kind: KindFetch, StatusCode: statusCode, Err: err}
	switch {
	case statusCode == 0:
		e.temporary = true
	case statusCode == 429 || statusCode >= 500:
		e.temporary = true
		e.Detail = fmt.Sprintf("unexpected HTTP status %d", statusCode)
	default:
		e.Detail = fmt.Sprintf("unexpected HTTP status %d", statusCode)
	}
	return e
}

// NotifyError wraps a delivery failure.
func NotifyError(err error) *Error {
	return &Error{Kind: KindNotify, Err: err}
}
