package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gabrielmiguelok/cardgrid/pkg/pubsub"
)

func startWatcher(t *testing.T, path string) (<-chan pubsub.ContentChanged, *Watcher) {
	t.Helper()

	ps := pubsub.NewMemoryPubSub()
	t.Cleanup(func() { ps.Close() })

	events := make(chan pubsub.ContentChanged, 16)
	if _, err := pubsub.SubscribeContent(ps, func(ev pubsub.ContentChanged) {
		events <- ev
	}); err != nil {
		t.Fatal(err)
	}

	w, err := New(path, ps, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		w.Close()
	})

	return events, w
}

func TestWatcher_PublishesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "content.json")
	if err := os.WriteFile(path, []byte(`{"cards":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	events, w := startWatcher(t, path)

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte(`{"cards":[{}]}`), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case ev := <-events:
		if ev.Location != w.Path() {
			t.Errorf("expected location %s, got %s", w.Path(), ev.Location)
		}
		if ev.Op == "" {
			t.Error("expected an op")
		}
		if ev.At.IsZero() {
			t.Error("expected a timestamp")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change published")
	}

	select {
	case ev := <-events:
		t.Errorf("burst should publish once, got extra %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "content.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	events, _ := startWatcher(t, path)

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-events:
		t.Errorf("unexpected event %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope", "content.json"), pubsub.NewMemoryPubSub())
	if err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestWatcher_RunAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.json")
	w, err := New(path, pubsub.NewMemoryPubSub())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Run(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
