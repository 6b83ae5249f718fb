// containertest package provides generic test cases for reloadable container variants.
package containertest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/karupanerura/reloadable"
	"github.com/karupanerura/reloadable/metrics"
	"github.com/karupanerura/reloadable/source"
	"golang.org/x/sync/errgroup"
)

// Container is the behavior shared by every container variant.
type Container interface {
	Len() (int, error)
	Reload() error
	LastReloadAt() time.Time
}

// Provider creates a container backed by the source.
type Provider func(src reloadable.Source, opts ...reloadable.Option) (Container, error)

// Fixture describes backing contents of a variant.
type Fixture struct {
	// First and Second are valid contents. Second must hold a different number of entries than First.
	First    []byte
	FirstLen int

	Second    []byte
	SecondLen int

	// Invalid is content the variant fails to parse. If nil, the failure cases are skipped.
	Invalid []byte
}

// TestAll runs all test cases.
func TestAll(t *testing.T, provider Provider, fixture Fixture) {
	TestMissingSource(t, provider)
	TestReloadTiming(t, provider, fixture)
	TestReplacement(t, provider, fixture)
	TestZeroInterval(t, provider, fixture)
	TestFailedReload(t, provider, fixture)
	TestIndependentContainers(t, provider, fixture)
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func mustLen(t *testing.T, c Container) int {
	t.Helper()
	n, err := c.Len()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return n
}

// TestMissingSource tests that a missing source is an empty container and not an error.
func TestMissingSource(t *testing.T, provider Provider) {
	t.Run("MissingSource", func(t *testing.T) {
		t.Parallel()

		tracker := &metrics.Tracker{}
		c, err := provider(&source.MemorySource{Name: "missing"}, reloadable.WithRecorder(tracker))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := mustLen(t, c); n != 0 {
			t.Errorf("expected empty container, got len %d", n)
		}
		if err := c.Reload(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := mustLen(t, c); n != 0 {
			t.Errorf("expected empty container, got len %d", n)
		}
		if stats := tracker.Stats(); stats.Missing != 2 || stats.Reloads() != 2 {
			t.Errorf("expected 2 missing reloads, got %+v", stats)
		}
	})
}

// TestReloadTiming tests that an access reloads only once strictly more than the interval has elapsed.
func TestReloadTiming(t *testing.T, provider Provider, fixture Fixture) {
	t.Run("ReloadTiming", func(t *testing.T) {
		t.Parallel()

		clock := newManualClock()
		tracker := &metrics.Tracker{}
		src := source.NewMemorySource("timing", fixture.First)
		c, err := provider(src,
			reloadable.WithClock(clock),
			reloadable.WithReloadInterval(5*time.Second),
			reloadable.WithRecorder(tracker),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		src.Store(fixture.Second)

		clock.Advance(5*time.Second - time.Millisecond)
		if n := mustLen(t, c); n != fixture.FirstLen {
			t.Errorf("expected no reload before the interval, got len %d", n)
		}
		clock.Advance(2 * time.Millisecond)
		if n := mustLen(t, c); n != fixture.SecondLen {
			t.Errorf("expected a reload after the interval, got len %d", n)
		}
		if got := tracker.Stats().Reloads(); got != 2 {
			t.Errorf("expected exactly 2 reloads, got %d", got)
		}
	})
}

// TestReplacement tests that a reload replaces the whole snapshot.
func TestReplacement(t *testing.T, provider Provider, fixture Fixture) {
	t.Run("Replacement", func(t *testing.T) {
		t.Parallel()

		src := source.NewMemorySource("replacement", fixture.First)
		c, err := provider(src, reloadable.WithClock(newManualClock()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := mustLen(t, c); n != fixture.FirstLen {
			t.Fatalf("expected len %d, got %d", fixture.FirstLen, n)
		}

		src.Store(fixture.Second)
		if err := c.Reload(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := mustLen(t, c); n != fixture.SecondLen {
			t.Errorf("expected len %d, got %d", fixture.SecondLen, n)
		}

		src.Remove()
		if err := c.Reload(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := mustLen(t, c); n != 0 {
			t.Errorf("expected empty container, got len %d", n)
		}
	})
}

// TestZeroInterval tests that a zero interval reloads on every access.
func TestZeroInterval(t *testing.T, provider Provider, fixture Fixture) {
	t.Run("ZeroInterval", func(t *testing.T) {
		t.Parallel()

		clock := newManualClock()
		src := source.NewMemorySource("zero", fixture.First)
		c, err := provider(src, reloadable.WithClock(clock), reloadable.WithReloadInterval(0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		src.Store(fixture.Second)
		clock.Advance(time.Nanosecond)
		if n := mustLen(t, c); n != fixture.SecondLen {
			t.Errorf("expected len %d, got %d", fixture.SecondLen, n)
		}
	})
}

// TestFailedReload tests that a failed reload keeps the previous snapshot and is not retried within the interval.
func TestFailedReload(t *testing.T, provider Provider, fixture Fixture) {
	t.Run("FailedReload", func(t *testing.T) {
		if fixture.Invalid == nil {
			t.Skip("the variant accepts any content")
		}
		t.Parallel()

		clock := newManualClock()
		src := source.NewMemorySource("failed", fixture.First)
		c, err := provider(src, reloadable.WithClock(clock), reloadable.WithReloadInterval(time.Second))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		src.Store(fixture.Invalid)
		clock.Advance(2 * time.Second)
		if _, err := c.Len(); err == nil {
			t.Fatal("expected error, got nil")
		}
		if !c.LastReloadAt().Equal(clock.Now()) {
			t.Errorf("expected last reload at %v, got %v", clock.Now(), c.LastReloadAt())
		}
		if n := mustLen(t, c); n != fixture.FirstLen {
			t.Errorf("expected the previous snapshot, got len %d", n)
		}

		_, err = provider(src)
		if err == nil {
			t.Error("expected error on construction, got nil")
		}
	})
}

// TestIndependentContainers tests that containers owned by different goroutines do not interfere.
func TestIndependentContainers(t *testing.T, provider Provider, fixture Fixture) {
	t.Run("IndependentContainers", func(t *testing.T) {
		t.Parallel()

		var eg errgroup.Group
		for i := range 16 {
			eg.Go(func() error {
				content := fixture.First
				want := fixture.FirstLen
				if i%2 == 1 {
					content, want = fixture.Second, fixture.SecondLen
				}

				c, err := provider(source.NewMemorySource(fmt.Sprintf("independent-%d", i), content))
				if err != nil {
					return err
				}
				n, err := c.Len()
				if err != nil {
					return err
				} else if n != want {
					return fmt.Errorf("container %d: expected len %d, got %d", i, want, n)
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			t.Fatal(err)
		}
	})
}
