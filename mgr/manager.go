package mgr

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Manager simplifies worker and context management for a module.
type Manager struct {
	name   string
	logger *slog.Logger

	ctx       context.Context
	cancelCtx context.CancelFunc

	workerCnt   atomic.Int32
	workersDone chan struct{}
}

// New returns a new manager with the given module name.
func New(name string) *Manager {
	m := &Manager{
		name:        name,
		logger:      slog.Default().With("module", name),
		workersDone: make(chan struct{}),
	}
	m.ctx, m.cancelCtx = context.WithCancel(context.Background())
	return m
}

// Name returns the module name the manager was created with.
func (m *Manager) Name() string {
	return m.name
}

// Ctx returns the manager context.
// It is canceled when the manager is canceled or the module is stopped.
func (m *Manager) Ctx() context.Context {
	return m.ctx
}

// Cancel cancels the manager context.
func (m *Manager) Cancel() {
	m.cancelCtx()
}

// Done returns the context Done channel.
func (m *Manager) Done() <-chan struct{} {
	return m.ctx.Done()
}

// IsDone checks whether the manager context is done.
func (m *Manager) IsDone() bool {
	return m.ctx.Err() != nil
}

// Logger returns the manager logger.
func (m *Manager) Logger() *slog.Logger {
	return m.logger
}

// Debug logs at LevelDebug with the manager logger.
func (m *Manager) Debug(msg string, args ...any) {
	m.logger.Debug(msg, args...)
}

// Info logs at LevelInfo with the manager logger.
func (m *Manager) Info(msg string, args ...any) {
	m.logger.Info(msg, args...)
}

// Warn logs at LevelWarn with the manager logger.
func (m *Manager) Warn(msg string, args ...any) {
	m.logger.Warn(msg, args...)
}

// Error logs at LevelError with the manager logger.
func (m *Manager) Error(msg string, args ...any) {
	m.logger.Error(msg, args...)
}

// Go starts the given function as a worker in a new goroutine.
// Worker errors are logged, not returned.
func (m *Manager) Go(name string, fn func(w *WorkerCtx) error) {
	go m.do(name, fn)
}

// Do runs the given function as a worker in the current goroutine
// and returns its error.
func (m *Manager) Do(name string, fn func(w *WorkerCtx) error) error {
	return m.do(name, fn)
}

func (m *Manager) do(name string, fn func(w *WorkerCtx) error) error {
	m.workerStart()
	defer m.workerDone()

	w := &WorkerCtx{
		ctx:    m.ctx,
		logger: m.logger.With("worker", name),
	}

	err := w.runWorker(fn)
	if err != nil {
		w.Error("worker failed", "err", err)
	}
	return err
}

func (m *Manager) workerStart() {
	m.workerCnt.Add(1)
}

func (m *Manager) workerDone() {
	if m.workerCnt.Add(-1) == 0 {
		// Notify all current waiters.
		for {
			select {
			case m.workersDone <- struct{}{}:
			default:
				return
			}
		}
	}
}

// WaitForWorkers waits for all workers of this manager to be done.
// The default maximum waiting time is one minute.
func (m *Manager) WaitForWorkers(max time.Duration) (done bool) {
	if m.workerCnt.Load() == 0 {
		return true
	}
	if max <= 0 {
		max = time.Minute
	}

	limit := time.NewTimer(max)
	defer limit.Stop()
	check := time.NewTicker(10 * time.Millisecond)
	defer check.Stop()

	for {
		select {
		case <-m.workersDone:
			return true
		case <-check.C:
			// Recheck the counter in case the notification was missed.
			if m.workerCnt.Load() == 0 {
				return true
			}
		case <-limit.C:
			return m.workerCnt.Load() == 0
		}
	}
}
