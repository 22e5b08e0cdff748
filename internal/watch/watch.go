// Package watch publishes a content change whenever the content file is
// written.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gabrielmiguelok/cardgrid/pkg/logging"
	"github.com/gabrielmiguelok/cardgrid/pkg/pubsub"
)

// DefaultDebounce coalesces the burst of events editors produce on save.
const DefaultDebounce = 200 * time.Millisecond

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("watcher closed")

// Watcher watches one file. The parent directory is watched rather than the
// file itself, so editors that save by rename keep being noticed.
type Watcher struct {
	path     string
	ps       pubsub.PubSub
	logger   logging.Logger
	debounce time.Duration

	fsw       *fsnotify.Watcher
	closeOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a change is published.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New starts watching path. Changes are published on ps.
func New(path string, ps pubsub.PubSub, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:     abs,
		ps:       ps,
		logger:   logging.NopLogger{},
		debounce: DefaultDebounce,
		fsw:      fsw,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Run publishes changes until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		lastOp  string
		pending bool
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return ErrClosed
			}
			op, relevant := w.classify(ev)
			if !relevant {
				continue
			}
			lastOp = op
			pending = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if !pending {
				continue
			}
			pending = false
			w.publish(lastOp)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return ErrClosed
			}
			w.logger.Warn("file watcher error", logging.Err(err))
		}
	}
}

func (w *Watcher) classify(ev fsnotify.Event) (string, bool) {
	if filepath.Clean(ev.Name) != w.path {
		return "", false
	}
	switch {
	case ev.Has(fsnotify.Write):
		return "write", true
	case ev.Has(fsnotify.Create):
		return "create", true
	case ev.Has(fsnotify.Rename):
		return "rename", true
	case ev.Has(fsnotify.Remove):
		return "remove", true
	}
	// Chmod alone does not change content.
	return "", false
}

func (w *Watcher) publish(op string) {
	w.logger.Info("content file changed",
		logging.String("path", w.path),
		logging.String("op", op),
	)
	err := pubsub.PublishContentChanged(w.ps, pubsub.ContentChanged{Location: w.path, Op: op})
	if err != nil {
		w.logger.Error("publishing content change failed", logging.Err(err))
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsw.Close()
	})
	return err
}
