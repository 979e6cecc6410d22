package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leafsii/crypto-tracker/internal/metrics"
	"go.uber.org/zap"
)

// DefaultInterval is the period between simulated price updates.
const DefaultInterval = 1500 * time.Millisecond

var ErrAlreadyRunning = errors.New("ticker already running")

// Updater is the write side of the asset store the ticker drives.
type Updater interface {
	UpdatePrices()
}

// Ticker calls Updater.UpdatePrices on a fixed period. Ticks are not drift
// corrected; a slow update delays the next one.
type Ticker struct {
	updater  Updater
	interval time.Duration
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	ticks  atomic.Uint64
}

func NewTicker(updater Updater, interval time.Duration, logger *zap.SugaredLogger, m *metrics.Metrics) *Ticker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Ticker{
		updater:  updater,
		interval: interval,
		logger:   logger,
		metrics:  m,
	}
}

// Start launches the tick loop. The first update happens one interval
// after Start. The loop ends when ctx is cancelled or Stop is called.
func (t *Ticker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done

	go t.run(ctx, done)

	t.logger.Infow("Price ticker started", "interval", t.interval)
	return nil
}

func (t *Ticker) run(ctx context.Context, done chan struct{}) {
	defer func() {
		// A parent cancellation ends the loop without Stop; release the slot
		// so the ticker can be started again.
		t.mu.Lock()
		if t.done == done {
			t.cancel()
			t.cancel, t.done = nil, nil
		}
		t.mu.Unlock()
		close(done)
	}()

	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			// Stop may have raced with the tick firing.
			if ctx.Err() != nil {
				return
			}
			t.Tick(ctx)
		}
	}
}

// Tick performs one update immediately, outside the schedule.
func (t *Ticker) Tick(ctx context.Context) {
	start := time.Now()
	t.updater.UpdatePrices()
	n := t.ticks.Add(1)

	if t.metrics != nil {
		t.metrics.RecordTick(ctx, time.Since(start))
	}
	t.logger.Debugw("Prices updated", "tick", n)
}

// Stop cancels the loop and waits for it to exit. No update starts after
// Stop returns. Stopping an idle ticker does nothing.
func (t *Ticker) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if done == nil {
		return
	}
	cancel()
	<-done
	t.logger.Infow("Price ticker stopped", "ticks", t.ticks.Load())
}

func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done != nil
}

// Ticks counts updates performed since construction, manual ones included.
func (t *Ticker) Ticks() uint64 {
	return t.ticks.Load()
}

func (t *Ticker) Interval() time.Duration {
	return t.interval
}
