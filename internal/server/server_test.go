package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jpalmerr/homeworkbot/internal/store"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func errPtr(s string) *string { return &s }

// --- Helper to read SSE events from response ---

func parseSSEEvents(body string) []store.Snapshot {
	var snaps []store.Snapshot
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "data: ") {
			var snap store.Snapshot
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snap); err == nil {
				snaps = append(snaps, snap)
			}
		}
	}
	return snaps
}

// --- Tests ---

func TestHandleStatus(t *testing.T) {
	st := store.NewMemoryStore()
	st.Update(store.Snapshot{PollID: "p1", Homeworks: 0})
	st.Update(store.Snapshot{
		PollID:    "p2",
		ErrorKind: "fetch_failure",
		Error:     errPtr("fetch_failure: unexpected HTTP status 503"),
	})

	srv := NewServer(st, 0, nil, testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Latest == nil || resp.Latest.PollID != "p2" {
		t.Fatalf("Latest = %+v, want p2", resp.Latest)
	}
	if resp.Latest.Error == nil || resp.Latest.ErrorKind != "fetch_failure" {
		t.Errorf("Latest error not propagated: %+v", resp.Latest)
	}
	if len(resp.History) != 2 || resp.History[1].PollID != "p1" {
		t.Errorf("History = %+v", resp.History)
	}
}

func TestHandleStatus_Empty(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `"latest":null`) {
		t.Errorf("body = %s, want null latest", body)
	}
	if !strings.Contains(body, `"history":[]`) {
		t.Errorf("body = %s, want empty history", body)
	}
}

func TestHandleStatus_MethodNotAllowed(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	st := store.NewMemoryStore()
	srv := NewServer(st, 0, nil, testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "last_poll") {
		t.Errorf("body = %s, want no last_poll before first poll", rec.Body.String())
	}

	st.Update(store.Snapshot{PollID: "p1", CheckedAt: time.Now()})

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if !strings.Contains(rec.Body.String(), "last_poll") {
		t.Errorf("body = %s, want last_poll", rec.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("homeworkbot_polls_total 1\n"))
	})
	srv := NewServer(store.NewMemoryStore(), 0, metrics, testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "homeworkbot_polls_total") {
		t.Errorf("body = %s", rec.Body.String())
	}

	// without a handler the route is absent
	srv = NewServer(store.NewMemoryStore(), 0, nil, testLogger())
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleSSE_ReplaysLatest(t *testing.T) {
	st := store.NewMemoryStore()
	st.Update(store.Snapshot{PollID: "old"})
	st.Update(store.Snapshot{PollID: "latest"})

	srv := NewServer(st, 0, nil, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	rec := httptest.NewRecorder()
	srv.handleSSE(rec, httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx))

	events := parseSSEEvents(rec.Body.String())
	if len(events) != 1 || events[0].PollID != "latest" {
		t.Errorf("events = %+v, want only latest", events)
	}
}

func TestHandleSSE_StreamsUpdates(t *testing.T) {
	st := store.NewMemoryStore()
	srv := NewServer(st, 0, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	// give handler time to subscribe
	time.Sleep(50 * time.Millisecond)

	st.Update(store.Snapshot{PollID: "streamed", HomeworkName: "proj1"})

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not exit after context cancellation")
	}

	events := parseSSEEvents(rec.Body.String())
	if len(events) != 1 || events[0].HomeworkName != "proj1" {
		t.Errorf("events = %+v, want streamed update", events)
	}
}

func TestHandleSSE_Headers(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	rec := httptest.NewRecorder()
	srv.handleSSE(rec, httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx))

	headers := map[string]string{
		"Content-Type":  "text/event-stream",
		"Cache-Control": "no-cache",
		"Connection":    "keep-alive",
	}
	for k, want := range headers {
		if got := rec.Header().Get(k); got != want {
			t.Errorf("header %s = %q, want %q", k, got, want)
		}
	}
}

// nonFlushWriter is a ResponseWriter without http.Flusher.
type nonFlushWriter struct {
	header http.Header
	code   int
}

func (n *nonFlushWriter) Header() http.Header {
	if n.header == nil {
		n.header = http.Header{}
	}
	return n.header
}

func (n *nonFlushWriter) Write(b []byte) (int, error) { return len(b), nil }

func (n *nonFlushWriter) WriteHeader(statusCode int) { n.code = statusCode }

func TestHandleSSE_SSENotSupported(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, testLogger())

	w := &nonFlushWriter{}
	srv.handleSSE(w, httptest.NewRequest(http.MethodGet, "/api/sse", nil))

	if w.code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.code)
	}
}

func TestHandleSSE_ConcurrentClientsShutdown(t *testing.T) {
	st := store.NewMemoryStore()
	srv := NewServer(st, 0, nil, testLogger())

	serverCtx, serverCancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(serverCtx)
			srv.handleSSE(httptest.NewRecorder(), req)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	serverCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SSE handlers did not exit after shutdown")
	}
}

// --- Server Start Tests ---

func TestServer_StartServesStatus(t *testing.T) {
	st := store.NewMemoryStore()
	st.Update(store.Snapshot{PollID: "integration"})
	srv := NewServer(st, 0, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	port := srv.Addr().(*net.TCPAddr).Port
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/status", port))
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Latest == nil || body.Latest.PollID != "integration" {
		t.Errorf("Latest = %+v", body.Latest)
	}
}

func TestServer_ShutdownOnCancel(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	addr := fmt.Sprintf("127.0.0.1:%d", srv.Addr().(*net.TCPAddr).Port)

	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err != nil {
			return
		}
		_ = conn.Close()
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("server still accepting connections after cancel")
}

func TestStart_PortInUse_ReturnsError(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	defer func() { _ = ln.Close() }()

	port := ln.Addr().(*net.TCPAddr).Port
	srv := NewServer(store.NewMemoryStore(), port, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = srv.Start(ctx)
	if err == nil {
		t.Fatal("Start() on occupied port should return error")
	}
	if !strings.Contains(err.Error(), "failed to bind") {
		t.Errorf("expected bind error, got: %v", err)
	}
}

func TestStart_InvalidPort_ReturnsError(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), -1, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err == nil {
		t.Fatal("Start() with invalid port should return error")
	}
}

func TestHandlePage(t *testing.T) {
	assets := fstest.MapFS{
		"assets/index.html": &fstest.MapFile{Data: []byte("<h1>status</h1>")},
	}
	srv := NewServer(store.NewMemoryStore(), 0, nil, testLogger())
	srv.ServeAssets(assets)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if rec.Body.String() != "<h1>status</h1>" {
		t.Errorf("body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", rec.Code)
	}
}

func TestHandlePage_NotMountedWithoutAssets(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
