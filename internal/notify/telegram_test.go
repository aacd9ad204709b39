package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/jpalmerr/homeworkbot/homework"
)

// fakeBotAPI records sendMessage calls and answers with the given ok flag.
type fakeBotAPI struct {
	mu       sync.Mutex
	paths    []string
	chatIDs  []string
	texts    []string
	failWith string
}

func (f *fakeBotAPI) handler(w http.ResponseWriter, r *http.Request) {
	var params map[string]string
	_ = json.NewDecoder(r.Body).Decode(&params)

	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.chatIDs = append(f.chatIDs, params["chat_id"])
	f.texts = append(f.texts, params["text"])
	fail := f.failWith
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail != "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"` + fail + `"}`))
		return
	}
	_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":123,"type":"private"},"text":"ok"}}`))
}

func newFakeAPI(t *testing.T) (*fakeBotAPI, *httptest.Server) {
	t.Helper()
	api := &fakeBotAPI{}
	server := httptest.NewServer(http.HandlerFunc(api.handler))
	t.Cleanup(server.Close)
	return api, server
}

func TestTelegram_Notify(t *testing.T) {
	api, server := newFakeAPI(t)

	tg, err := NewTelegram(TelegramConfig{Token: "123:abc", ChatID: "123", APIURL: server.URL})
	if err != nil {
		t.Fatalf("NewTelegram() error = %v", err)
	}

	if err := tg.Notify(context.Background(), "Работа взята на проверку ревьюером."); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.paths) != 1 {
		t.Fatalf("requests = %d, want 1", len(api.paths))
	}
	if api.paths[0] != "/bot123:abc/sendMessage" {
		t.Errorf("path = %q", api.paths[0])
	}
	if api.chatIDs[0] != "123" {
		t.Errorf("chat_id = %q, want 123", api.chatIDs[0])
	}
	if api.texts[0] != "Работа взята на проверку ревьюером." {
		t.Errorf("text = %q", api.texts[0])
	}
}

func TestTelegram_NotifyChannelUsername(t *testing.T) {
	api, server := newFakeAPI(t)

	tg, err := NewTelegram(TelegramConfig{Token: "t", ChatID: "@reviews", APIURL: server.URL + "/"})
	if err != nil {
		t.Fatalf("NewTelegram() error = %v", err)
	}
	if err := tg.Notify(context.Background(), "hi"); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if api.chatIDs[0] != "@reviews" {
		t.Errorf("chat_id = %q, want @reviews", api.chatIDs[0])
	}
}

func TestTelegram_NotifyAPIError(t *testing.T) {
	api, server := newFakeAPI(t)
	api.failWith = "Bad Request: chat not found"

	tg, err := NewTelegram(TelegramConfig{Token: "t", ChatID: "-100200300", APIURL: server.URL})
	if err != nil {
		t.Fatalf("NewTelegram() error = %v", err)
	}

	err = tg.Notify(context.Background(), "hi")
	if !errors.Is(err, homework.ErrNotify) {
		t.Fatalf("Notify() error = %v, want notify failure", err)
	}
}

func TestTelegram_NotifyCancelledContext(t *testing.T) {
	api, server := newFakeAPI(t)

	tg, err := NewTelegram(TelegramConfig{Token: "t", ChatID: "1", APIURL: server.URL})
	if err != nil {
		t.Fatalf("NewTelegram() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := tg.Notify(ctx, "hi"); !errors.Is(err, homework.ErrNotify) {
		t.Fatalf("Notify() error = %v, want notify failure", err)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.paths) != 0 {
		t.Errorf("requests = %d, want 0", len(api.paths))
	}
}

func TestNewTelegram_Validation(t *testing.T) {
	if _, err := NewTelegram(TelegramConfig{ChatID: "1"}); err == nil {
		t.Error("expected error for missing token")
	}
	if _, err := NewTelegram(TelegramConfig{Token: "t"}); err == nil {
		t.Error("expected error for missing chat id")
	}
}

func TestParseChatID(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"123", "123", false},
		{" -1001234567890 ", "-1001234567890", false},
		{"@channel", "@channel", false},
		{"@", "", true},
		{"abc", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseChatID(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseChatID(%q) expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseChatID(%q) error = %v", tt.raw, err)
			continue
		}
		if got.Recipient() != tt.want {
			t.Errorf("ParseChatID(%q) = %q, want %q", tt.raw, got.Recipient(), tt.want)
		}
	}

	if _, ok := mustParse(t, "42").(tele.ChatID); !ok {
		t.Error("numeric ids should map to tele.ChatID")
	}
}

func mustParse(t *testing.T, raw string) tele.Recipient {
	t.Helper()
	r, err := ParseChatID(raw)
	if err != nil {
		t.Fatalf("ParseChatID(%q) error = %v", raw, err)
	}
	return r
}

func TestTelegram_NotifyReturnsWhenContextEnds(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) }) // runs before server.Close

	tg, err := NewTelegram(TelegramConfig{Token: "t", ChatID: "1", APIURL: server.URL})
	if err != nil {
		t.Fatalf("NewTelegram() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = tg.Notify(ctx, "hi")
	if !errors.Is(err, homework.ErrNotify) {
		t.Fatalf("Notify() error = %v, want notify failure", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Notify() error = %v, want to wrap context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Notify() took %s after the context ended", elapsed)
	}
}

func TestTelegram_RequestTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	tg, err := NewTelegram(TelegramConfig{Token: "t", ChatID: "1", APIURL: server.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewTelegram() error = %v", err)
	}

	start := time.Now()
	if err := tg.Notify(context.Background(), "hi"); !errors.Is(err, homework.ErrNotify) {
		t.Fatalf("Notify() error = %v, want notify failure", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Notify() took %s, want the request timeout to apply", elapsed)
	}
}
