package reaper

import (
	"bytes"
	"context"
	"log"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/haven/backend/internal/service/conversation"
)

type manualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time)}
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }

func (m *manualTicker) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

func (m *manualTicker) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

type recordingSweeper struct {
	mu    sync.Mutex
	calls []time.Time
}

func (s *recordingSweeper) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, now)
	return len(s.calls)
}

func TestReaperSweepsOnEachTick(t *testing.T) {
	ticker := newManualTicker()
	sweeper := &recordingSweeper{}
	sweeps := make(chan int, 4)

	var gotInterval time.Duration
	r := New(sweeper, Config{
		Interval: 90 * time.Minute,
		NewTicker: func(d time.Duration) Ticker {
			gotInterval = d
			return ticker
		},
		OnSweep: func(_ time.Time, removed int) { sweeps <- removed },
	})

	r.Start(context.Background())
	require.True(t, r.IsRunning())
	assert.Equal(t, 90*time.Minute, gotInterval)

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ticker.ch <- t0
	assert.Equal(t, 1, <-sweeps)
	ticker.ch <- t0.Add(time.Hour)
	assert.Equal(t, 2, <-sweeps)

	r.Stop()
	assert.False(t, r.IsRunning())
	assert.True(t, ticker.isStopped())
	assert.Equal(t, []time.Time{t0, t0.Add(time.Hour)}, sweeper.calls)
}

func TestReaperStartIsIdempotent(t *testing.T) {
	created := 0
	r := New(&recordingSweeper{}, Config{
		NewTicker: func(time.Duration) Ticker {
			created++
			return newManualTicker()
		},
	})

	r.Start(context.Background())
	r.Start(context.Background())
	assert.Equal(t, 1, created)

	r.Stop()
	r.Stop()
	assert.False(t, r.IsRunning())
}

func TestReaperStopsWhenContextCancelled(t *testing.T) {
	ticker := newManualTicker()
	r := New(&recordingSweeper{}, Config{NewTicker: func(time.Duration) Ticker { return ticker }})

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	cancel()

	assert.Eventually(t, func() bool { return !r.IsRunning() }, time.Second, 5*time.Millisecond)
	assert.True(t, ticker.isStopped())
}

func TestReaperDefaults(t *testing.T) {
	r := New(&recordingSweeper{}, Config{})
	assert.Equal(t, DefaultInterval, r.interval)
	assert.NotNil(t, r.newTicker)
}

func TestReaperEvictsIdleConversationsWithVirtualTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc := conversation.NewService(conversation.Config{Now: func() time.Time { return now }})
	svc.ProcessMessage(context.Background(), "u1", "stale", "hello")
	now = now.Add(2 * time.Minute)
	svc.ProcessMessage(context.Background(), "u1", "active", "hello")

	ticker := newManualTicker()
	sweeps := make(chan int, 1)
	r := New(svc, Config{
		NewTicker: func(time.Duration) Ticker { return ticker },
		OnSweep:   func(_ time.Time, removed int) { sweeps <- removed },
	})
	r.Start(context.Background())
	defer r.Stop()

	ticker.ch <- now.Add(59 * time.Minute)
	assert.Equal(t, 1, <-sweeps)
	assert.Equal(t, 1, svc.Store().Len())
}

func TestRunOnce(t *testing.T) {
	sweeper := &recordingSweeper{}
	r := New(sweeper, Config{})
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, r.RunOnce(at))
	assert.False(t, r.IsRunning())
}

func TestRunOnceLogsEvictionOnce(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	var observed []int
	r := New(&recordingSweeper{}, Config{OnSweep: func(_ time.Time, removed int) {
		observed = append(observed, removed)
	}})

	r.RunOnce(time.Now())

	assert.Equal(t, []int{1}, observed)
	assert.Equal(t, 1, strings.Count(buf.String(), "[reaper]"))
	assert.Contains(t, buf.String(), "evicted 1 idle sessions")
}

func TestTimeTickerFires(t *testing.T) {
	ticker := NewTimeTicker(time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		require.FailNow(t, "expected tick")
	}
}
