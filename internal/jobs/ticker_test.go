package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leafsii/crypto-tracker/internal/metrics"
)

type mockUpdater struct {
	mock.Mock
}

func (m *mockUpdater) UpdatePrices() {
	m.Called()
}

type countingUpdater struct {
	n atomic.Int64
}

func (c *countingUpdater) UpdatePrices() {
	c.n.Add(1)
}

func newTestTicker(u Updater, interval time.Duration) *Ticker {
	return NewTicker(u, interval, zap.NewNop().Sugar(), metrics.NewNoop())
}

func TestStopBeforeFirstTick(t *testing.T) {
	u := &mockUpdater{}
	tk := newTestTicker(u, 200*time.Millisecond)

	require.NoError(t, tk.Start(context.Background()))
	tk.Stop()
	time.Sleep(300 * time.Millisecond)

	u.AssertNotCalled(t, "UpdatePrices")
	assert.Zero(t, tk.Ticks())
	assert.False(t, tk.Running())
}

func TestTickCountTracksElapsedPeriods(t *testing.T) {
	u := &countingUpdater{}
	tk := newTestTicker(u, 50*time.Millisecond)

	require.NoError(t, tk.Start(context.Background()))
	time.Sleep(275 * time.Millisecond)
	tk.Stop()

	// floor(275/50) = 5, allowing for scheduler jitter
	n := u.n.Load()
	assert.GreaterOrEqual(t, n, int64(4))
	assert.LessOrEqual(t, n, int64(6))
	assert.Equal(t, uint64(n), tk.Ticks())
}

func TestNoUpdatesAfterStop(t *testing.T) {
	u := &countingUpdater{}
	tk := newTestTicker(u, 10*time.Millisecond)

	require.NoError(t, tk.Start(context.Background()))
	time.Sleep(55 * time.Millisecond)
	tk.Stop()

	stopped := u.n.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, u.n.Load())
}

func TestStartTwice(t *testing.T) {
	tk := newTestTicker(&countingUpdater{}, time.Second)

	require.NoError(t, tk.Start(context.Background()))
	defer tk.Stop()

	assert.ErrorIs(t, tk.Start(context.Background()), ErrAlreadyRunning)
	assert.True(t, tk.Running())
}

func TestStopIdleIsNoop(t *testing.T) {
	tk := newTestTicker(&countingUpdater{}, time.Second)
	tk.Stop()
	tk.Stop()
	assert.False(t, tk.Running())
}

func TestRestartAfterStop(t *testing.T) {
	tk := newTestTicker(&countingUpdater{}, time.Second)

	require.NoError(t, tk.Start(context.Background()))
	tk.Stop()
	require.NoError(t, tk.Start(context.Background()))
	assert.True(t, tk.Running())
	tk.Stop()
}

func TestContextCancelEndsLoop(t *testing.T) {
	u := &countingUpdater{}
	tk := newTestTicker(u, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, tk.Start(ctx))
	cancel()
	tk.Stop()

	n := u.n.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, n, u.n.Load())
}

func TestRestartAfterContextCancel(t *testing.T) {
	u := &countingUpdater{}
	tk := newTestTicker(u, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, tk.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !tk.Running() }, time.Second, 5*time.Millisecond)

	require.NoError(t, tk.Start(context.Background()))
	assert.True(t, tk.Running())
	assert.Eventually(t, func() bool { return u.n.Load() > 0 }, time.Second, 5*time.Millisecond)

	tk.Stop()
	assert.False(t, tk.Running())
}

func TestManualTick(t *testing.T) {
	u := &mockUpdater{}
	u.On("UpdatePrices").Return().Twice()
	tk := newTestTicker(u, time.Hour)

	tk.Tick(context.Background())
	tk.Tick(context.Background())

	u.AssertExpectations(t)
	assert.Equal(t, uint64(2), tk.Ticks())
	assert.False(t, tk.Running())
}

func TestDefaultInterval(t *testing.T) {
	tk := newTestTicker(&countingUpdater{}, 0)
	assert.Equal(t, 1500*time.Millisecond, tk.Interval())
}
