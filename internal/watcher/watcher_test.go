package watcher

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

type fakeNotifier struct {
	granted bool

	mu   sync.Mutex
	sent []Notification
}

func (n *fakeNotifier) Granted() bool { return n.granted }

func (n *fakeNotifier) Notify(msg Notification) (io.Closer, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return io.NopCloser(nil), nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// sequence returns a producer that yields values in order, repeating the last.
func sequence[T any](values ...T) (Producer[T], *int) {
	calls := 0
	var mu sync.Mutex
	return func(context.Context) (T, error) {
		mu.Lock()
		defer mu.Unlock()
		i := min(calls, len(values)-1)
		calls++
		return values[i], nil
	}, &calls
}

func TestWatchRequiresPermission(t *testing.T) {
	produce, calls := sequence(1)
	_, err := Watch(context.Background(), produce, time.Hour, &fakeNotifier{granted: false})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if *calls != 0 {
		t.Errorf("producer called %d times before permission check", *calls)
	}
}

func TestWatchNotifiesOnlyOnChange(t *testing.T) {
	type data struct{ A int }
	produce, _ := sequence(data{A: 1}, data{A: 1}, data{A: 2})
	n := &fakeNotifier{granted: true}

	w, err := Watch(context.Background(), produce, time.Hour, n,
		WithDiff(func(old, updated data) (string, error) { return "a changed", nil }))
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Stop()

	if err := w.tick(context.Background()); err != nil {
		t.Fatalf("tick 2: %v", err)
	}
	if n.count() != 0 {
		t.Fatalf("expected no notification after identical snapshot, got %d", n.count())
	}

	if err := w.tick(context.Background()); err != nil {
		t.Fatalf("tick 3: %v", err)
	}
	if n.count() != 1 {
		t.Fatalf("expected exactly one notification, got %d", n.count())
	}
	if got := n.sent[0]; got.Title != DefaultTitle || got.Body != "a changed" {
		t.Errorf("notification = %+v", got)
	}
	if got := w.Data(); got.A != 2 {
		t.Errorf("Data() = %+v, want {A:2}", got)
	}
}

func TestDefaultEqualHandlesUnexportedFields(t *testing.T) {
	type counter struct{ n int }
	produce, _ := sequence(counter{n: 1}, counter{n: 1}, counter{n: 2})
	n := &fakeNotifier{granted: true}

	w, err := Watch(context.Background(), produce, time.Hour, n)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Stop()

	for i := 0; i < 2; i++ {
		if err := w.tick(context.Background()); err != nil {
			t.Fatalf("tick %d: %v", i+2, err)
		}
	}
	if n.count() != 1 {
		t.Errorf("expected one notification, got %d", n.count())
	}
	if got := w.Data(); got.n != 2 {
		t.Errorf("Data() = %+v, want {n:2}", got)
	}
}

func TestTickFailureKeepsSnapshot(t *testing.T) {
	calls := 0
	produce := func(context.Context) (string, error) {
		calls++
		if calls > 1 {
			return "", errors.New("network down")
		}
		return "first", nil
	}
	w, err := Watch(context.Background(), produce, time.Hour, &fakeNotifier{granted: true})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Stop()

	if err := w.tick(context.Background()); err == nil {
		t.Fatal("expected tick error")
	}
	if got := w.Data(); got != "first" {
		t.Errorf("Data() = %q, want 'first'", got)
	}
}

func TestDiffErrorStillStoresSnapshot(t *testing.T) {
	produce, _ := sequence("a", "b")
	n := &fakeNotifier{granted: true}
	w, err := Watch(context.Background(), produce, time.Hour, n,
		WithDiff(func(string, string) (string, error) { return "", errors.New("diff broke") }),
		WithTitle[string]("Changed"))
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Stop()

	if err := w.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if n.count() != 1 || n.sent[0].Title != "Changed" {
		t.Errorf("expected one 'Changed' notification, got %+v", n.sent)
	}
	if w.Data() != "b" {
		t.Errorf("Data() = %q, want 'b'", w.Data())
	}
}

func TestInitialFetchError(t *testing.T) {
	produce := func(context.Context) (int, error) { return 0, errors.New("offline") }
	if _, err := Watch(context.Background(), produce, time.Hour, &fakeNotifier{granted: true}); err == nil {
		t.Fatal("expected initial fetch error")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	produce, _ := sequence(1)
	w, err := Watch(context.Background(), produce, time.Millisecond, &fakeNotifier{granted: true})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	w.Stop()
	w.Stop()
	select {
	case <-w.Done():
	default:
		t.Error("Done() not closed after Stop")
	}
	if w.Data() != 1 {
		t.Errorf("Data() after Stop = %d, want 1", w.Data())
	}
}

func TestPollingLoopDetectsChange(t *testing.T) {
	produce, _ := sequence(1, 2)
	n := &fakeNotifier{granted: true}
	w, err := Watch(context.Background(), produce, 5*time.Millisecond, n)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Stop()

	deadline := time.After(2 * time.Second)
	for n.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("no notification within 2s")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if got := n.count(); got != 1 {
		t.Errorf("expected 1 notification, got %d", got)
	}
}
