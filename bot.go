package homeworkbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/homeworkbot/dashboard"
	"github.com/jpalmerr/homeworkbot/homework"
	"github.com/jpalmerr/homeworkbot/internal/metrics"
	"github.com/jpalmerr/homeworkbot/internal/notify"
	"github.com/jpalmerr/homeworkbot/internal/poller"
	"github.com/jpalmerr/homeworkbot/internal/server"
	"github.com/jpalmerr/homeworkbot/internal/store"
)

// DefaultEndpoint is the review API status endpoint.
const DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"

const (
	defaultPollingInterval = 10 * time.Minute
	defaultRequestTimeout  = 10 * time.Second
	defaultRetryAttempts   = 3
	defaultRetryDelay      = time.Second
	defaultRetryMaxDelay   = 30 * time.Second
)

// Bot polls the review API and forwards status changes to a chat.
//
// Bot is created using [New] with functional options and started with
// [Bot.Start]:
//
//	bot, err := homeworkbot.New(
//	    homeworkbot.WithToken(practicumToken),
//	    homeworkbot.WithTelegram(telegramToken, chatID),
//	)
//	if err != nil {
//	    slog.Error("failed to create bot", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	bot.Start(ctx) // blocks until context cancelled
type Bot struct {
	token           string
	endpoint        string
	pollingInterval time.Duration
	requestTimeout  time.Duration
	retry           poller.RetryPolicy
	notifier        Notifier
	statusPort      int
	redis           *store.RedisConfig
	logger          *slog.Logger
	resultCallbacks []func(PollResult)
	startCursor     int64
	freezeCursor    bool
	reportErrors    bool
	readOnlyState   bool

	snapshots *store.MemoryStore
	memState  *store.MemoryState
	metrics   *metrics.Metrics

	// guards concurrent Start/RunOnce on the same Bot
	runMu sync.Mutex
}

// New creates a [Bot] with the given options.
//
// [WithToken] is required, as is a destination: [WithTelegram] or
// [WithNotifier]. Other options have defaults:
//   - Endpoint: [DefaultEndpoint]
//   - Polling interval: 10 minutes
//   - Request timeout: 10 seconds
//   - Retries: 3 attempts, 1s initial delay
//   - Status server: disabled
//
// No network call is made.
func New(opts ...Option) (*Bot, error) {
	cfg := &botConfig{
		endpoint:        DefaultEndpoint,
		pollingInterval: defaultPollingInterval,
		requestTimeout:  defaultRequestTimeout,
		retry: retryPolicy{
			maxAttempts:  defaultRetryAttempts,
			initialDelay: defaultRetryDelay,
			maxDelay:     defaultRetryMaxDelay,
		},
		historySize: store.DefaultHistorySize,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.token == "" {
		return nil, errors.New("practicum token is required")
	}

	notifier := cfg.notifier
	if notifier == nil {
		if cfg.telegramToken == "" {
			return nil, errors.New("a notifier is required: use WithTelegram or WithNotifier")
		}
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			Token:  cfg.telegramToken,
			ChatID: cfg.chatID,
			APIURL: cfg.telegramAPIURL,
		})
		if err != nil {
			return nil, err
		}
		notifier = tg
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Bot{
		token:           cfg.token,
		endpoint:        cfg.endpoint,
		pollingInterval: cfg.pollingInterval,
		requestTimeout:  cfg.requestTimeout,
		retry: poller.RetryPolicy{
			MaxAttempts:  cfg.retry.maxAttempts,
			InitialDelay: cfg.retry.initialDelay,
			MaxDelay:     cfg.retry.maxDelay,
		},
		notifier:        notifier,
		statusPort:      cfg.statusPort,
		redis:           cfg.redis,
		logger:          logger,
		resultCallbacks: cfg.resultCallbacks,
		startCursor:     cfg.startCursor,
		freezeCursor:    cfg.freezeCursor,
		reportErrors:    cfg.reportErrors,
		readOnlyState:   cfg.readOnlyState,
		snapshots:       store.NewMemoryStoreSize(cfg.historySize),
		memState:        store.NewMemoryState(),
		metrics:         metrics.New(nil),
	}, nil
}

// Start polls until the context is cancelled.
//
// The first iteration runs immediately; after each iteration Start sleeps
// for the polling interval regardless of the outcome. Failed iterations are
// logged and never stop the loop.
//
// Returns nil on graceful shutdown. Returns an error if the state store or
// the status server cannot be started.
func (b *Bot) Start(ctx context.Context) error {
	b.runMu.Lock()
	defer b.runMu.Unlock()

	if ctx.Err() != nil {
		return nil
	}

	states, err := b.openState(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = states.Close() }()

	state := b.loadState(ctx, states)
	cursor := b.initialCursor(state)

	if b.statusPort > 0 {
		srv := server.NewServer(b.snapshots, b.statusPort, b.metrics.Handler(), b.logger)
		srv.ServeAssets(dashboard.Assets)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("failed to start status server: %w", err)
		}
	}

	b.logger.Info("homeworkbot starting",
		"endpoint", b.endpoint,
		"interval", b.pollingInterval.String(),
		"from_date", cursor,
	)

	scheduler := b.newScheduler(cursor)
	scheduler.Start(ctx)

	// track the results consumer goroutine to ensure clean shutdown
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range scheduler.Results() {
			pub := b.handleResult(ctx, result, &state, states)
			scheduler.Commit(pub.NextCursor)
		}
	}()

	<-ctx.Done()
	scheduler.Stop() // closes results channel
	wg.Wait()
	b.logger.Info("homeworkbot stopped")
	return nil
}

// RunOnce performs a single iteration with the same handling as [Bot.Start]
// and returns its result. The iteration's own failure is reported in
// [PollResult.Err]; the returned error covers setup failures only.
func (b *Bot) RunOnce(ctx context.Context) (PollResult, error) {
	b.runMu.Lock()
	defer b.runMu.Unlock()

	states, err := b.openState(ctx)
	if err != nil {
		return PollResult{}, err
	}
	defer func() { _ = states.Close() }()

	state := b.loadState(ctx, states)
	scheduler := b.newScheduler(b.initialCursor(state))
	defer scheduler.Stop()

	return b.handleResult(ctx, scheduler.Poll(ctx), &state, states), nil
}

// PollingInterval returns the configured sleep between iterations.
func (b *Bot) PollingInterval() time.Duration {
	return b.pollingInterval
}

// Endpoint returns the configured status endpoint.
func (b *Bot) Endpoint() string {
	return b.endpoint
}

func (b *Bot) newScheduler(cursor int64) *poller.Scheduler {
	client := poller.NewClient(b.endpoint, b.token, b.requestTimeout)
	return poller.NewScheduler(client, poller.Settings{
		Interval:     b.pollingInterval,
		Cursor:       cursor,
		FreezeCursor: b.freezeCursor,
		Retry:        b.retry,
		ManualCommit: true,
	}, b.logger)
}

func (b *Bot) openState(ctx context.Context) (store.StateStore, error) {
	if b.redis == nil {
		return b.memState, nil
	}
	rs, err := store.NewRedisState(ctx, *b.redis)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return rs, nil
}

// loadState reads persisted state. A broken store is logged and the bot
// starts from scratch.
func (b *Bot) loadState(ctx context.Context, states store.StateStore) store.State {
	state, ok, err := states.Load(ctx)
	if err != nil {
		b.logger.Warn("failed to load poll state, starting fresh", "error", err)
		return store.State{}
	}
	if ok {
		b.logger.Debug("poll state restored", "cursor", state.Cursor)
	}
	return state
}

// initialCursor picks the first from_date: an explicit start cursor, then a
// persisted one, then now.
func (b *Bot) initialCursor(state store.State) int64 {
	if b.startCursor > 0 {
		return b.startCursor
	}
	if state.Cursor > 0 {
		return state.Cursor
	}
	return time.Now().Unix()
}

// handleResult logs the iteration, delivers its message, persists state and
// publishes the outcome. The cursor moves to r.NextCursor only when nothing
// is left undelivered; the returned NextCursor is the committed one.
func (b *Bot) handleResult(ctx context.Context, r poller.PollResult, state *store.State, states store.StateStore) PollResult {
	logger := b.logger.With("poll_id", r.PollID)
	pub := toPublicResult(r)
	advance := true

	if r.Err != nil {
		b.logFailure(logger, r)
		if b.reportErrors {
			report := homework.FailureReport(r.Err)
			if report != state.LastFailure && b.send(ctx, logger, report) {
				state.LastFailure = report
			}
		}
	} else {
		b.metrics.IncPoll(metrics.OutcomeSuccess)
		state.LastFailure = ""

		switch {
		case r.Message == "":
			logger.Debug("no status changes", "homeworks", r.Homeworks)
		case r.Message == state.LastMessage:
			logger.Debug("status unchanged, not resending", "homework", pub.HomeworkName)
			b.metrics.IncNotification(metrics.ResultSkipped)
		default:
			if b.send(ctx, logger, r.Message) {
				state.LastMessage = r.Message
				pub.Notified = true
			} else {
				// keep from_date so the next request lists the submission again
				advance = false
			}
		}
	}

	state.Cursor = r.Cursor
	if advance {
		state.Cursor = r.NextCursor
	}
	pub.NextCursor = state.Cursor
	b.metrics.SetCursor(state.Cursor)

	// persist even when shutting down so the cursor survives a restart
	if !b.readOnlyState {
		if err := states.Save(context.WithoutCancel(ctx), *state); err != nil {
			logger.Warn("failed to save poll state", "error", err)
		}
	}

	b.snapshots.Update(toSnapshot(pub))

	for _, cb := range b.resultCallbacks {
		invokeCallbackSafe(cb, pub, logger)
	}
	return pub
}

// logFailure logs a failed iteration at a severity matching its kind.
func (b *Bot) logFailure(logger *slog.Logger, r poller.PollResult) {
	b.metrics.IncPoll(metrics.OutcomeFailure)

	kind := homework.KindOf(r.Err)
	switch kind {
	case homework.KindFetch:
		b.metrics.IncFailure(kind.String())
		logger.Warn("failed to fetch homework statuses",
			"status_code", r.StatusCode,
			"attempts", r.Attempts,
			"error", r.Err.Error(),
		)
	case homework.KindParse, homework.KindMissingKey, homework.KindTypeMismatch,
		homework.KindMissingStatus, homework.KindUnexpectedStatus:
		b.metrics.IncFailure(kind.String())
		logger.Error("unexpected API response",
			"kind", kind.String(),
			"error", r.Err.Error(),
		)
	default:
		b.metrics.IncFailure("internal")
		logger.Error("poll failed", "error", r.Err.Error())
	}
}

// send delivers text and reports whether it succeeded. Failures are logged
// and swallowed.
func (b *Bot) send(ctx context.Context, logger *slog.Logger, text string) bool {
	if err := b.notifier.Notify(ctx, text); err != nil {
		b.metrics.IncNotification(metrics.ResultFailed)
		logger.Error("failed to send message", "error", err.Error())
		return false
	}
	b.metrics.IncNotification(metrics.ResultSent)
	logger.Debug("message sent", "text", text)
	return true
}

// toPublicResult converts an internal poller result to the public type.
func toPublicResult(r poller.PollResult) PollResult {
	pub := PollResult{
		PollID:     r.PollID,
		Cursor:     r.Cursor,
		NextCursor: r.NextCursor,
		Homeworks:  r.Homeworks,
		Message:    r.Message,
		Attempts:   r.Attempts,
		StatusCode: r.StatusCode,
		Latency:    r.Latency,
		CheckedAt:  r.CheckedAt,
		Err:        r.Err,
	}
	if r.Submission != nil {
		pub.HomeworkName = r.Submission.Name
		pub.Status = r.Submission.Status
	}
	return pub
}

// toSnapshot converts a result to its storage form.
func toSnapshot(r PollResult) store.Snapshot {
	snap := store.Snapshot{
		PollID:         r.PollID,
		Cursor:         r.Cursor,
		NextCursor:     r.NextCursor,
		Homeworks:      r.Homeworks,
		HomeworkName:   r.HomeworkName,
		Status:         string(r.Status),
		Message:        r.Message,
		Notified:       r.Notified,
		Attempts:       r.Attempts,
		ResponseTimeMs: r.Latency.Milliseconds(),
		CheckedAt:      r.CheckedAt,
	}
	if r.Err != nil {
		s := r.Err.Error()
		snap.Error = &s
		if kind := homework.KindOf(r.Err); kind != homework.KindNone {
			snap.ErrorKind = kind.String()
		}
	}
	return snap
}

// invokeCallbackSafe calls a result callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(PollResult), result PollResult, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("result callback panicked", "panic", r)
		}
	}()
	cb(result)
}
