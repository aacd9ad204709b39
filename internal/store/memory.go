package store

import (
	"context"
	"sync"
)

var (
	_ Store      = (*MemoryStore)(nil)
	_ StateStore = (*MemoryState)(nil)
	_ StateStore = (*RedisState)(nil)
)

// DefaultHistorySize is the number of snapshots kept by [NewMemoryStore].
const DefaultHistorySize = 20

// MemoryStore is an in-memory implementation of [Store].
//
// Snapshots are kept in a bounded history, newest first. Subscribers receive
// updates via buffered channels (buffer size 100). Updates are sent
// non-blocking; if a subscriber's buffer is full, the update is dropped for
// that subscriber to prevent blocking the poll loop.
type MemoryStore struct {
	mu          sync.RWMutex
	history     []Snapshot
	limit       int
	subscribers map[chan Snapshot]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a [MemoryStore] keeping [DefaultHistorySize] snapshots.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreSize(DefaultHistorySize)
}

// NewMemoryStoreSize creates a [MemoryStore] keeping up to limit snapshots.
// A limit below 1 is treated as 1.
func NewMemoryStoreSize(limit int) *MemoryStore {
	if limit < 1 {
		limit = 1
	}
	return &MemoryStore{
		history:     make([]Snapshot, 0, limit),
		limit:       limit,
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Update records a snapshot, evicting the oldest one beyond the limit, and
// notifies all subscribers.
func (m *MemoryStore) Update(s Snapshot) {
	m.mu.Lock()
	m.history = append([]Snapshot{s}, m.history...)
	if len(m.history) > m.limit {
		m.history = m.history[:m.limit]
	}
	m.mu.Unlock()

	m.notifySubscribers(s)
}

// Latest returns the most recent snapshot.
func (m *MemoryStore) Latest() (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.history) == 0 {
		return Snapshot{}, false
	}
	return m.history[0], true
}

// History returns a copy of the stored snapshots, newest first.
func (m *MemoryStore) History() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Snapshot, len(m.history))
	copy(out, m.history)
	return out
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// The returned channel has a buffer of 100 messages. If the buffer fills
// (slow consumer), new updates are dropped for this subscriber.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 100)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Snapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the snapshot to all active subscribers without blocking.
func (m *MemoryStore) notifySubscribers(s Snapshot) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- s:
		default:
			// subscriber is slow, drop the message
		}
	}
}

// MemoryState is a process-local [StateStore]. State is lost on restart.
type MemoryState struct {
	mu    sync.Mutex
	state State
	saved bool
}

// NewMemoryState creates an empty [MemoryState].
func NewMemoryState() *MemoryState {
	return &MemoryState{}
}

// Load returns the last saved state.
func (m *MemoryState) Load(_ context.Context) (State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.saved, nil
}

// Save replaces the stored state.
func (m *MemoryState) Save(_ context.Context, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = st
	m.saved = true
	return nil
}

// Close is a no-op.
func (m *MemoryState) Close() error {
	return nil
}
