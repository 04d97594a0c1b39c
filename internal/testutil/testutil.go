// Package testutil provides shared test helpers for setting up stores and services.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/starford/promptbox/internal/events"
	"github.com/starford/promptbox/internal/kvstore"
	"github.com/starford/promptbox/internal/promptservice"
	"github.com/starford/promptbox/internal/storage"
)

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestKV creates a temporary SQLite key/value store that is automatically cleaned up.
func TestKV(t *testing.T, maxBytes int64) *kvstore.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "promptbox-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	kv, err := kvstore.Open(dbFile.Name(), maxBytes)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { kv.Close() })
	return kv
}

// Recorder is a Publisher that keeps every event for inspection.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

// Publish records ev.
func (r *Recorder) Publish(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Notify records a Notice event.
func (r *Recorder) Notify(level events.Level, msg string) {
	r.Publish(events.Event{Type: events.Notice, Data: events.NoticeData{Level: level, Message: msg}})
}

// Events returns the recorded events of the given types (all when none given).
func (r *Recorder) Events(types ...events.Type) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, ev := range r.events {
		if len(types) == 0 || containsType(types, ev.Type) {
			out = append(out, ev)
		}
	}
	return out
}

// Notices returns the recorded notices.
func (r *Recorder) Notices() []events.NoticeData {
	var out []events.NoticeData
	for _, ev := range r.Events(events.Notice) {
		out = append(out, ev.Data.(events.NoticeData))
	}
	return out
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func containsType(types []events.Type, t events.Type) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

// TestService creates a service over a fresh store. The store is bootstrapped
// with its default folder and example prompt.
func TestService(t *testing.T, maxBytes int64) (*promptservice.Service, *Recorder) {
	t.Helper()
	kv := TestKV(t, maxBytes)
	rec := &Recorder{}
	logger := Logger()
	store := storage.New(kv, rec, logger)
	svc, err := promptservice.New(context.Background(), store, rec, logger, promptservice.Config{
		MaxTextLength:   10000,
		PageSize:        10,
		DefaultLanguage: "es",
	})
	if err != nil {
		t.Fatal(err)
	}
	return svc, rec
}
