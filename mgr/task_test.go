package mgr

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForCount(t *testing.T, counter *atomic.Int32, want int32, within time.Duration) {
	t.Helper()

	deadline := time.Now().Add(within)
	for counter.Load() < want {
		if time.Now().After(deadline) {
			t.Fatalf("counter reached %d of %d within %s", counter.Load(), want, within)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTaskGo(t *testing.T) {
	t.Parallel()

	m := New("task-go")
	counter := atomic.Int32{}

	m.NewTask("count", func(w *WorkerCtx) error {
		counter.Add(1)
		return nil
	}).Go()

	waitForCount(t, &counter, 1, time.Second)
	// An immediate run executes exactly once.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), counter.Load())
}

func TestTaskDelay(t *testing.T) {
	t.Parallel()

	m := New("task-delay")
	counter := atomic.Int32{}

	started := time.Now()
	m.Delay("count", 100*time.Millisecond, func(w *WorkerCtx) error {
		counter.Add(1)
		return nil
	})

	waitForCount(t, &counter, 1, time.Second)
	assert.GreaterOrEqual(t, time.Since(started), 100*time.Millisecond,
		"a delayed task must not run before its delay")
}

func TestTaskRepeat(t *testing.T) {
	t.Parallel()

	m := New("task-repeat")
	counter := atomic.Int32{}

	m.Repeat("count", 20*time.Millisecond, func(w *WorkerCtx) error {
		counter.Add(1)
		return nil
	})

	waitForCount(t, &counter, 5, 2*time.Second)
}

func TestTaskRepeatWithImmediateRun(t *testing.T) {
	t.Parallel()

	// The pattern the update check uses: run once right away, then on the
	// repeat interval.
	m := New("task-repeat-go")
	counter := atomic.Int32{}

	started := time.Now()
	m.Repeat("count", 150*time.Millisecond, func(w *WorkerCtx) error {
		counter.Add(1)
		return nil
	}).Go()

	waitForCount(t, &counter, 1, time.Second)
	require.Less(t, time.Since(started), 150*time.Millisecond,
		"the immediate run must not wait for the repeat interval")

	waitForCount(t, &counter, 2, 2*time.Second)
}

func TestTaskStopsWithManager(t *testing.T) {
	t.Parallel()

	m := New("task-cancel")
	counter := atomic.Int32{}

	m.Repeat("count", 10*time.Millisecond, func(w *WorkerCtx) error {
		counter.Add(1)
		return nil
	})

	waitForCount(t, &counter, 2, time.Second)
	m.Cancel()

	// Let a possible in-flight run finish, then the counter must settle.
	time.Sleep(50 * time.Millisecond)
	settled := counter.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, counter.Load(),
		"a repeating task must stop when its manager is canceled")
}
