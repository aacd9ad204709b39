package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/jpalmerr/homeworkbot/homework"
)

// PollResult holds the outcome of one poll iteration.
type PollResult struct {
	// PollID identifies the iteration in logs.
	PollID string

	// Cursor is the from_date sent with the request.
	Cursor int64

	// NextCursor is the cursor the following iteration will use.
	NextCursor int64

	// Homeworks is the number of submissions in the response.
	Homeworks int

	// Submission is the most recent submission, when one was translated.
	Submission *homework.Submission

	// Message is the notification text. Empty when there is nothing to send.
	Message string

	// Attempts is the number of HTTP requests made, including retries.
	Attempts int

	// StatusCode is the HTTP status of the last request.
	StatusCode int

	// Latency is the duration of the last request.
	Latency time.Duration

	// CheckedAt is when the iteration finished.
	CheckedAt time.Time

	// Err is the failure of the iteration, if any. Domain failures are
	// [*homework.Error] values.
	Err error
}

// RetryPolicy bounds the retries of temporary fetch failures within one
// iteration.
type RetryPolicy struct {
	// MaxAttempts is the total number of requests, including the first.
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the exponential delay between retries.
	MaxDelay time.Duration
}

// Settings configures a [Scheduler].
type Settings struct {
	// Interval is the sleep between the end of one iteration and the next.
	Interval time.Duration

	// Cursor is the initial from_date (Unix seconds).
	Cursor int64

	// FreezeCursor keeps the initial cursor for the whole process lifetime.
	FreezeCursor bool

	// Retry bounds retries of temporary fetch failures.
	Retry RetryPolicy

	// ManualCommit leaves cursor advancement to the consumer. Poll only
	// proposes NextCursor; the loop waits for [Scheduler.Commit] after each
	// result before sleeping.
	ManualCommit bool
}

// Scheduler runs poll iterations one after another with a fixed sleep in
// between. Results are emitted on a channel with capacity 1, so at most
// one iteration is ever in flight.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	client   *Client
	interval time.Duration
	retry    RetryPolicy
	freeze   bool
	manual   bool
	results  chan PollResult
	commits  chan struct{}
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once
	cursor    int64
}

// NewScheduler creates a [Scheduler] polling through client.
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop]. Results are available via [Scheduler.Results].
func NewScheduler(client *Client, settings Settings, logger *slog.Logger) *Scheduler {
	retry := settings.Retry
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		client:   client,
		interval: settings.Interval,
		retry:    retry,
		freeze:   settings.FreezeCursor,
		manual:   settings.ManualCommit,
		results:  make(chan PollResult, 1),
		commits:  make(chan struct{}, 1),
		logger:   logger,
		cursor:   settings.Cursor,
	}
}

// Results returns a receive-only channel that emits one [PollResult] per
// iteration. The channel is closed when the scheduler stops.
func (s *Scheduler) Results() <-chan PollResult {
	return s.results
}

// Cursor returns the from_date the next iteration will use.
func (s *Scheduler) Cursor() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Start begins the polling loop in a background goroutine.
//
// The first iteration runs immediately. After each iteration the scheduler
// sleeps for the configured interval, whatever the outcome. Start is
// idempotent, and a no-op after Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	pollCtx := s.ctx // capture under lock to avoid race
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.results) })

		timer := time.NewTimer(0)
		defer timer.Stop()

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-timer.C:
			}

			result := s.Poll(pollCtx)
			if pollCtx.Err() != nil {
				return
			}

			select {
			case s.results <- result:
			case <-pollCtx.Done():
				return
			}

			if s.manual {
				select {
				case <-s.commits:
				case <-pollCtx.Done():
					return
				}
			}

			timer.Reset(s.interval)
		}
	}()
}

// Stop halts the scheduler and waits for the polling goroutine to exit.
// Stop is idempotent; calling it before Start is a safe no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	if s.client != nil {
		s.client.Close()
	}

	// ensure channel is closed even if Start() was never called
	s.closeOnce.Do(func() { close(s.results) })
}

// Commit moves the cursor to next when it is ahead of the current one and
// the cursor is not frozen. In ManualCommit mode every result must be
// followed by exactly one Commit, passing the result's Cursor to stay put.
func (s *Scheduler) Commit(next int64) {
	s.mu.Lock()
	if !s.freeze && next > s.cursor {
		s.cursor = next
	}
	s.mu.Unlock()

	select {
	case s.commits <- struct{}{}:
	default:
	}
}

// Poll runs a single iteration: fetch, validate, translate the most recent
// submission. On success NextCursor is the server's current_date (or the
// request time), unless the cursor is frozen. The cursor itself advances
// here unless ManualCommit is set.
//
// Poll never panics; a panic inside the iteration is returned as an error
// carrying a correlation ID.
func (s *Scheduler) Poll(ctx context.Context) PollResult {
	pollID := uuid.NewString()
	cursor := s.Cursor()
	logger := s.logger.With("poll_id", pollID, "from_date", cursor)

	result, next := s.safePoll(ctx, logger, cursor)
	result.PollID = pollID
	result.Cursor = cursor
	result.CheckedAt = time.Now()
	result.NextCursor = cursor

	if result.Err == nil && !s.freeze && next > cursor {
		result.NextCursor = next
		if !s.manual {
			s.mu.Lock()
			s.cursor = next
			s.mu.Unlock()
		}
	}
	return result
}

// safePoll calls poll with panic recovery.
// If poll panics, the full stack trace is logged with a correlation ID and
// the iteration fails with an error containing that ID.
func (s *Scheduler) safePoll(ctx context.Context, logger *slog.Logger, cursor int64) (result PollResult, next int64) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			logger.Error("poll panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			result = PollResult{Err: fmt.Errorf("poll panic (correlation_id: %s)", correlationID)}
			next = cursor
		}
	}()
	return s.poll(ctx, logger, cursor)
}

// poll performs the iteration without panic protection. The second result
// is the cursor to use after a successful iteration.
func (s *Scheduler) poll(ctx context.Context, logger *slog.Logger, cursor int64) (PollResult, int64) {
	requestedAt := time.Now().Unix()
	resp, attempts := s.fetch(ctx, logger, cursor)

	result := PollResult{
		Attempts:   attempts,
		StatusCode: resp.StatusCode,
		Latency:    resp.Latency,
	}
	if resp.Error != nil {
		result.Err = resp.Error
		return result, cursor
	}

	works, err := homework.CheckResponse(resp.Payload)
	if err != nil {
		result.Err = err
		return result, cursor
	}
	result.Homeworks = len(works)

	// the API lists the most recently updated submission first
	if len(works) > 0 {
		sub, err := homework.ParseSubmission(works[0])
		if err != nil {
			result.Err = err
			return result, cursor
		}
		result.Submission = &sub
		result.Message = sub.Message()
	}

	next := requestedAt
	if ts, ok := homework.CurrentDate(resp.Payload); ok {
		next = ts
	}
	return result, next
}

// fetch calls the client, retrying temporary failures with exponential
// backoff. It returns the last response and the number of attempts.
func (s *Scheduler) fetch(ctx context.Context, logger *slog.Logger, cursor int64) (Response, int) {
	var (
		resp     Response
		attempts int
	)

	b := backoff.NewExponentialBackOff()
	if s.retry.InitialDelay > 0 {
		b.InitialInterval = s.retry.InitialDelay
	}
	if s.retry.MaxDelay > 0 {
		b.MaxInterval = s.retry.MaxDelay
	}
	b.MaxElapsedTime = 0 // bounded by attempts instead
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.retry.MaxAttempts-1)), ctx)

	op := func() error {
		attempts++
		resp = s.client.Fetch(ctx, cursor)
		if resp.Error == nil {
			return nil
		}
		if homework.IsTemporary(resp.Error) {
			return resp.Error
		}
		return backoff.Permanent(resp.Error)
	}

	notify := func(err error, delay time.Duration) {
		logger.Warn("fetch failed, retrying",
			"attempt", attempts,
			"delay", delay.String(),
			"error", err.Error(),
		)
	}

	_ = backoff.RetryNotify(op, policy, notify)
	return resp, attempts
}
