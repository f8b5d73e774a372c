package scheduler

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerInvokesTickRepeatedly(t *testing.T) {
	var ticks atomic.Int64
	s := New(func() { ticks.Add(1) }, 100, testLogger())

	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	n := ticks.Load()
	require.Greater(t, n, int64(3), "expected multiple ticks at 100 Hz")

	// No further ticks after Stop.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, ticks.Load())
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	var ticks atomic.Int64
	s := New(func() { ticks.Add(1) }, 50, testLogger())

	s.Start()
	s.Start()
	s.Start()
	time.Sleep(60 * time.Millisecond)
	s.Stop()

	// A second worker would roughly double the rate; 60ms at 50 Hz is
	// ~3 ticks per worker.
	assert.LessOrEqual(t, ticks.Load(), int64(8))
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	s := New(func() {}, 1, testLogger())
	assert.NotPanics(t, s.Stop)
}

func TestSchedulerRestartAfterStop(t *testing.T) {
	var ticks atomic.Int64
	s := New(func() { ticks.Add(1) }, 100, testLogger())

	s.Start()
	time.Sleep(30 * time.Millisecond)
	s.Stop()
	first := ticks.Load()

	s.Start()
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	assert.Greater(t, ticks.Load(), first)
}

func TestSchedulerSurvivesPanickingTick(t *testing.T) {
	var ticks atomic.Int64
	s := New(func() {
		ticks.Add(1)
		panic("tick exploded")
	}, 100, testLogger())

	s.Start()
	time.Sleep(60 * time.Millisecond)
	s.Stop()

	assert.Greater(t, ticks.Load(), int64(1),
		"worker must outlive a panicking tick")
}

func TestSchedulerStopLatencyBounded(t *testing.T) {
	s := New(func() {}, 1, testLogger()) // 1 Hz: worker sleeps ~1s between ticks

	s.Start()
	time.Sleep(20 * time.Millisecond) // let it enter the interval wait

	start := time.Now()
	s.Stop()
	assert.Less(t, time.Since(start), 500*time.Millisecond,
		"stop must interrupt the interval sleep, not wait it out")
}

func TestSchedulerSkipsSleepWhenTickOverruns(t *testing.T) {
	var ticks atomic.Int64
	s := New(func() {
		ticks.Add(1)
		time.Sleep(30 * time.Millisecond) // 3× the 100 Hz interval
	}, 100, testLogger())

	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	// Forward progress continues back-to-back: ~3 ticks in 100ms.
	assert.GreaterOrEqual(t, ticks.Load(), int64(2))
}
