package reloadable_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/karupanerura/reloadable"
	"github.com/karupanerura/reloadable/metrics"
	"github.com/karupanerura/reloadable/source"
	"github.com/karupanerura/reloadable/staleness"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 2, 30, 45, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// tickingClock advances by one nanosecond on every call.
func tickingClock() reloadable.Clock {
	now := time.Date(2025, 1, 1, 2, 30, 45, 0, time.UTC)
	return reloadable.ClockFunc(func() time.Time {
		now = now.Add(time.Nanosecond)
		return now
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestNew_MissingFile(t *testing.T) {
	t.Parallel()

	tracker := &metrics.Tracker{}
	path := filepath.Join(t.TempDir(), "missing.txt")
	list, err := reloadable.NewList(path, reloadable.WithRecorder(tracker))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n, err := list.Len(); err != nil || n != 0 {
		t.Errorf("expected empty list, got len=%d err=%v", n, err)
	}
	if err := list.Reload(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if n, err := list.Len(); err != nil || n != 0 {
		t.Errorf("expected empty list, got len=%d err=%v", n, err)
	}
	if got := tracker.Stats().Missing; got != 2 {
		t.Errorf("expected 2 missing reloads, got %d", got)
	}

	record, err := reloadable.NewRecord(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, err := record.Len(); err != nil || n != 0 {
		t.Errorf("expected empty record, got len=%d err=%v", n, err)
	}
}

func TestNew_NegativeInterval(t *testing.T) {
	t.Parallel()

	_, err := reloadable.NewList("unused", reloadable.WithReloadInterval(-time.Second))
	if !errors.Is(err, reloadable.ErrNegativeInterval) {
		t.Errorf("expected ErrNegativeInterval, got %v", err)
	}
}

func TestNew_DefaultInterval(t *testing.T) {
	t.Parallel()

	list, err := reloadable.NewListFromSource(&source.MemorySource{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list.ReloadInterval() != 60*time.Second {
		t.Errorf("expected 60s, got %s", list.ReloadInterval())
	}
}

func TestReloadTiming(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tracker := &metrics.Tracker{}
	src := source.NewMemorySource("timing", []byte("a\n"))
	list, err := reloadable.NewListFromSource(src,
		reloadable.WithClock(clock),
		reloadable.WithReloadInterval(10*time.Second),
		reloadable.WithRecorder(tracker),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t0 := list.LastReloadAt()
	if !t0.Equal(clock.Now()) {
		t.Errorf("expected last reload at %v, got %v", clock.Now(), t0)
	}

	src.Store([]byte("a\nb\n"))

	tests := []struct {
		name        string
		advance     time.Duration
		wantReloads int64
		wantLen     int
	}{
		{name: "just before the interval", advance: 10*time.Second - time.Nanosecond, wantReloads: 1, wantLen: 1},
		{name: "exactly the interval", advance: time.Nanosecond, wantReloads: 1, wantLen: 1},
		{name: "just after the interval", advance: time.Nanosecond, wantReloads: 2, wantLen: 2},
		{name: "right after the reload", advance: 0, wantReloads: 2, wantLen: 2},
	}
	for _, tt := range tests {
		clock.Advance(tt.advance)
		n, err := list.Len()
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if n != tt.wantLen {
			t.Errorf("%s: expected len %d, got %d", tt.name, tt.wantLen, n)
		}
		if got := tracker.Stats().Reloads(); got != tt.wantReloads {
			t.Errorf("%s: expected %d reloads, got %d", tt.name, tt.wantReloads, got)
		}
	}
	if want := t0.Add(10*time.Second + time.Nanosecond); !list.LastReloadAt().Equal(want) {
		t.Errorf("expected last reload at %v, got %v", want, list.LastReloadAt())
	}
}

func TestReload_RecordsTimeBeforeRead(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	src := source.FunctionSource(func(context.Context) (io.ReadCloser, error) {
		clock.Advance(time.Minute) // slow read
		return io.NopCloser(strings.NewReader("a\n")), nil
	})
	list, err := reloadable.NewListFromSource(src,
		reloadable.WithClock(clock),
		reloadable.WithReloadInterval(30*time.Second),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	startedAt := clock.Now().Add(-time.Minute)
	if !list.LastReloadAt().Equal(startedAt) {
		t.Errorf("expected last reload at %v, got %v", startedAt, list.LastReloadAt())
	}
}

func TestReload_SnapshotReplacement(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "record.json")
	writeFile(t, path, `{"a": 1, "b": 2, "c": 3}`)

	record, err := reloadable.NewRecord(path, reloadable.WithClock(newFakeClock()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before, err := record.Snapshot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if df := cmp.Diff([]string{"a", "b", "c"}, before.Keys()); df != "" {
		t.Errorf("keys diff=%s", df)
	}

	writeFile(t, path, `{"b": 20}`)
	if err := record.Reload(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after, err := record.Snapshot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if df := cmp.Diff([]string{"b"}, after.Keys()); df != "" {
		t.Errorf("keys diff=%s", df)
	}
	if v, err := record.Get("b"); err != nil || v != float64(20) {
		t.Errorf("expected b=20, got %v err=%v", v, err)
	}

	// the snapshot obtained before the reload is left untouched
	if df := cmp.Diff([]string{"a", "b", "c"}, before.Keys()); df != "" {
		t.Errorf("old snapshot keys diff=%s", df)
	}
}

func TestReload_FileRemoved(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "list.txt")
	writeFile(t, path, "a\nb\n")

	list, err := reloadable.NewList(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := list.Len(); n != 2 {
		t.Fatalf("expected 2 lines, got %d", n)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := list.Reload(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, err := list.Len(); err != nil || n != 0 {
		t.Errorf("expected empty list, got len=%d err=%v", n, err)
	}
}

func TestPassthroughTriggersReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "list.txt")
	writeFile(t, path, "a\n")

	list, err := reloadable.NewList(path,
		reloadable.WithClock(tickingClock()),
		reloadable.WithReloadInterval(0),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	writeFile(t, path, "x\ny\nz\n")
	if n, err := list.Len(); err != nil || n != 3 {
		t.Errorf("expected 3 lines, got len=%d err=%v", n, err)
	}

	writeFile(t, path, "q\n")
	if v, err := list.At(0); err != nil || v != "q" {
		t.Errorf("expected q, got %q err=%v", v, err)
	}
}

func TestErrorPropagation(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tracker := &metrics.Tracker{}
	src := source.NewMemorySource("broken", []byte(`{"x": 1}`))
	record, err := reloadable.NewRecordFromSource(src,
		reloadable.WithClock(clock),
		reloadable.WithReloadInterval(time.Second),
		reloadable.WithRecorder(tracker),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src.Store([]byte(`{"x": `))

	t.Run("explicit reload", func(t *testing.T) {
		clock.Advance(time.Millisecond)
		err := record.Reload()
		var syntaxErr *json.SyntaxError
		if !errors.As(err, &syntaxErr) {
			t.Fatalf("expected *json.SyntaxError, got %v", err)
		}
		if !record.LastReloadAt().Equal(clock.Now()) {
			t.Errorf("expected last reload at %v, got %v", clock.Now(), record.LastReloadAt())
		}
		if v, err := record.Get("x"); err != nil || v != float64(1) {
			t.Errorf("expected the last good snapshot x=1, got %v err=%v", v, err)
		}
	})

	t.Run("access triggered reload", func(t *testing.T) {
		clock.Advance(2 * time.Second)
		if _, err := record.Len(); err == nil {
			t.Fatal("expected error, got nil")
		}

		// the failed reload is not retried until the interval elapses again
		if n, err := record.Len(); err != nil || n != 1 {
			t.Errorf("expected the last good snapshot, got len=%d err=%v", n, err)
		}
	})

	if got := tracker.Stats().Failed; got != 2 {
		t.Errorf("expected 2 failed reloads, got %d", got)
	}
}

func TestErrorPropagation_Construction(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "record.json")
	writeFile(t, path, `not json`)

	record, err := reloadable.NewRecord(path)
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Errorf("expected *json.SyntaxError, got %v", err)
	}
	if record != nil {
		t.Errorf("expected nil record, got %v", record)
	}
}

func TestErrorPropagation_OpenError(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	denied := false
	src := source.FunctionSource(func(context.Context) (io.ReadCloser, error) {
		if denied {
			return nil, &fs.PathError{Op: "open", Path: "secret.txt", Err: fs.ErrPermission}
		}
		return io.NopCloser(strings.NewReader("a\n")), nil
	})
	list, err := reloadable.NewListFromSource(src, reloadable.WithClock(clock))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	denied = true
	if err := list.Reload(); !errors.Is(err, fs.ErrPermission) {
		t.Errorf("expected fs.ErrPermission, got %v", err)
	}
	if v, err := list.At(0); err != nil || v != "a" {
		t.Errorf("expected the last good snapshot, got %q err=%v", v, err)
	}
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestReload_ClosesReader(t *testing.T) {
	t.Parallel()

	var readers []*closeTracker
	contents := []string{`{"a": 1}`, `{"a": `}
	src := source.FunctionSource(func(context.Context) (io.ReadCloser, error) {
		rc := &closeTracker{Reader: strings.NewReader(contents[len(readers)])}
		readers = append(readers, rc)
		return rc, nil
	})
	record, err := reloadable.NewRecordFromSource(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := record.Reload(); err == nil {
		t.Fatal("expected error, got nil")
	}

	for i, rc := range readers {
		if !rc.closed {
			t.Errorf("reader %d is not closed", i)
		}
	}
}

func TestReload_MaxSize(t *testing.T) {
	t.Parallel()

	src := source.NewMemorySource("sized", []byte("abc\n"))
	list, err := reloadable.NewListFromSource(src, reloadable.WithMaxSize(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src.Store([]byte("abc\nd\n"))
	if err := list.Reload(); !errors.Is(err, reloadable.ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
	if df := cmp.Diff([]string{"abc"}, mustSnapshot(t, list.Container)); df != "" {
		t.Errorf("snapshot diff=%s", df)
	}
}

func TestReload_ParserPanic(t *testing.T) {
	t.Parallel()

	parser := reloadable.ParserFunc[map[string]int](func(io.Reader) (map[string]int, error) {
		panic("boom")
	})
	_, err := reloadable.New(source.NewMemorySource("panic", []byte("x")), parser, func() map[string]int {
		return map[string]int{}
	})
	if !errors.Is(err, reloadable.ErrParserPanicked) {
		t.Errorf("expected ErrParserPanicked, got %v", err)
	}
}

func TestNew_CustomParser(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	src := source.NewMemorySource("words", []byte("go go gopher"))
	wordCount := reloadable.ParserFunc[map[string]int](func(r io.Reader) (map[string]int, error) {
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		counts := map[string]int{}
		for _, w := range strings.Fields(string(b)) {
			counts[w]++
		}
		return counts, nil
	})

	c, err := reloadable.New(src, wordCount, func() map[string]int { return map[string]int{} },
		reloadable.WithClock(clock),
		reloadable.WithReloadInterval(time.Minute),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if df := cmp.Diff(map[string]int{"go": 2, "gopher": 1}, mustSnapshot(t, c)); df != "" {
		t.Errorf("snapshot diff=%s", df)
	}

	src.Remove()
	clock.Advance(time.Minute + 1)
	if df := cmp.Diff(map[string]int{}, mustSnapshot(t, c)); df != "" {
		t.Errorf("snapshot diff=%s", df)
	}
}

func TestNew_ContextProvider(t *testing.T) {
	t.Parallel()

	type ctxKey struct{}
	var got any
	src := source.FunctionSource(func(ctx context.Context) (io.ReadCloser, error) {
		got = ctx.Value(ctxKey{})
		return nil, fs.ErrNotExist
	})
	_, err := reloadable.NewListFromSource(src, reloadable.WithContextProvider(func() context.Context {
		return context.WithValue(context.Background(), ctxKey{}, "value")
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "value" {
		t.Errorf("expected context value, got %v", got)
	}
}

func TestNeverPolicy(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	src := source.NewMemorySource("pinned", []byte("a\n"))
	list, err := reloadable.NewListFromSource(src,
		reloadable.WithClock(clock),
		reloadable.WithReloadInterval(0),
		reloadable.WithPolicy(staleness.NeverPolicy{}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src.Store([]byte("b\n"))
	clock.Advance(time.Hour)
	if v, _ := list.At(0); v != "a" {
		t.Errorf("expected a, got %q", v)
	}
	if err := list.Reload(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := list.At(0); v != "b" {
		t.Errorf("expected b, got %q", v)
	}
}

func mustSnapshot[T any](t *testing.T, c *reloadable.Container[T]) T {
	t.Helper()
	v, err := c.Snapshot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}
