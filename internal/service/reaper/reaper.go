package reaper

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultInterval is how often idle conversations are swept.
const DefaultInterval = time.Hour

// Sweeper evicts idle conversations as of now and reports how many were removed.
type Sweeper interface {
	Sweep(now time.Time) int
}

// Ticker delivers sweep instants until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker firing every interval.
type TickerFunc func(interval time.Duration) Ticker

// Config controls the reaper schedule.
type Config struct {
	Interval  time.Duration
	NewTicker TickerFunc
	// OnSweep, when set, observes every completed sweep.
	OnSweep func(at time.Time, removed int)
}

// Reaper periodically sweeps a session store in the background.
type Reaper struct {
	sweeper   Sweeper
	interval  time.Duration
	newTicker TickerFunc
	onSweep   func(time.Time, int)

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New creates a reaper. It does nothing until Start is called.
func New(sweeper Sweeper, cfg Config) *Reaper {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	newTicker := cfg.NewTicker
	if newTicker == nil {
		newTicker = NewTimeTicker
	}
	return &Reaper{
		sweeper:   sweeper,
		interval:  interval,
		newTicker: newTicker,
		onSweep:   cfg.OnSweep,
	}
}

// Start launches the sweep loop. Calling Start on a running reaper is a no-op.
func (r *Reaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	ticker := r.newTicker(r.interval)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go r.loop(loopCtx, ticker, r.done)
	log.Printf("[reaper] started interval=%s", r.interval)
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (r *Reaper) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	<-done
}

// IsRunning reports whether the sweep loop is active.
func (r *Reaper) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// RunOnce performs a single sweep as of now.
func (r *Reaper) RunOnce(now time.Time) int {
	removed := r.sweeper.Sweep(now)
	if removed > 0 {
		log.Printf("[reaper] evicted %d idle sessions", removed)
	}
	if r.onSweep != nil {
		r.onSweep(now, removed)
	}
	return removed
}

func (r *Reaper) loop(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer func() {
		ticker.Stop()
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[reaper] stopping")
			return
		case at := <-ticker.C():
			r.RunOnce(at)
		}
	}
}

type timeTicker struct {
	t *time.Ticker
}

// NewTimeTicker adapts time.Ticker.
func NewTimeTicker(interval time.Duration) Ticker {
	return &timeTicker{t: time.NewTicker(interval)}
}

func (t *timeTicker) C() <-chan time.Time { return t.t.C }

func (t *timeTicker) Stop() { t.t.Stop() }
