package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
)

// DismissAfter is how long a change notification stays on screen.
const DismissAfter = 5 * time.Second

// DefaultTitle is used when no title is configured.
const DefaultTitle = "Data Changed!"

// ErrPermissionDenied is returned by Watch when the notifier may not show notifications.
var ErrPermissionDenied = errors.New("need notification permission")

// Notification is a user-visible change alert.
type Notification struct {
	Title string
	Body  string
}

// Notifier shows notifications. Granted reports whether it is allowed to.
// The returned Closer dismisses the notification.
type Notifier interface {
	Granted() bool
	Notify(n Notification) (io.Closer, error)
}

// Producer returns a fresh snapshot of the watched data.
type Producer[T any] func(ctx context.Context) (T, error)

// DiffFunc describes the change between two snapshots for the notification body.
type DiffFunc[T any] func(old, updated T) (string, error)

type settings[T any] struct {
	title string
	equal func(a, b T) bool
	diff  DiffFunc[T]
}

// Option configures a Watcher.
type Option[T any] func(*settings[T])

// WithDiff sets the function used to build the notification body.
func WithDiff[T any](fn DiffFunc[T]) Option[T] {
	return func(s *settings[T]) { s.diff = fn }
}

// WithEqual replaces the structural equality used for change detection.
func WithEqual[T any](fn func(a, b T) bool) Option[T] {
	return func(s *settings[T]) { s.equal = fn }
}

// WithTitle sets the notification title.
func WithTitle[T any](title string) Option[T] {
	return func(s *settings[T]) { s.title = title }
}

// allFields lets cmp compare unexported struct fields instead of panicking.
var allFields = cmp.Exporter(func(reflect.Type) bool { return true })

func defaultEqual[T any](a, b T) bool {
	return cmp.Equal(a, b, allFields)
}

// Watcher polls a Producer and raises a notification whenever the snapshot changes.
type Watcher[T any] struct {
	produce  Producer[T]
	notifier Notifier
	settings settings[T]

	mu   sync.RWMutex
	data T

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Watch fetches the first snapshot and starts polling every interval until
// Stop is called or ctx is cancelled. It fails before fetching anything if
// the notifier lacks permission.
func Watch[T any](ctx context.Context, produce Producer[T], interval time.Duration, notifier Notifier, opts ...Option[T]) (*Watcher[T], error) {
	if !notifier.Granted() {
		return nil, ErrPermissionDenied
	}
	if interval <= 0 {
		return nil, fmt.Errorf("invalid interval %s", interval)
	}

	s := settings[T]{
		title: DefaultTitle,
		equal: defaultEqual[T],
	}
	for _, opt := range opts {
		opt(&s)
	}

	first, err := produce(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w := &Watcher[T]{
		produce:  produce,
		notifier: notifier,
		settings: s,
		data:     first,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go w.loop(loopCtx, interval)
	return w, nil
}

func (w *Watcher[T]) loop(ctx context.Context, interval time.Duration) {
	defer close(w.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.tick(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("watch tick failed", "error", err)
			}
		}
	}
}

// tick fetches one snapshot, notifies on change and stores it.
// A failed fetch leaves the stored snapshot untouched.
func (w *Watcher[T]) tick(ctx context.Context) error {
	updated, err := w.produce(ctx)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}

	old := w.Data()
	if !w.settings.equal(old, updated) {
		w.notify(old, updated)
	}

	w.mu.Lock()
	w.data = updated
	w.mu.Unlock()
	return nil
}

func (w *Watcher[T]) notify(old, updated T) {
	n := Notification{Title: w.settings.title}
	if w.settings.diff != nil {
		body, err := w.settings.diff(old, updated)
		if err != nil {
			slog.Warn("diff failed", "error", err)
		}
		n.Body = body
	}

	closer, err := w.notifier.Notify(n)
	if err != nil {
		slog.Error("notification failed", "error", err)
		return
	}
	time.AfterFunc(DismissAfter, func() {
		if err := closer.Close(); err != nil {
			slog.Debug("dismiss notification", "error", err)
		}
	})
}

// Data returns the most recently stored snapshot without fetching.
func (w *Watcher[T]) Data() T {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.data
}

// Stop cancels polling and waits for an in-flight tick to finish.
// Calling it more than once is a no-op.
func (w *Watcher[T]) Stop() {
	w.stopOnce.Do(w.cancel)
	<-w.done
}

// Done is closed once polling has stopped.
func (w *Watcher[T]) Done() <-chan struct{} {
	return w.done
}
