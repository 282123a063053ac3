package mgr

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// WorkerCtx provides context to a worker.
type WorkerCtx struct {
	ctx    context.Context
	logger *slog.Logger
}

type workerCtxKey struct{}

// Ctx returns the worker context.
// It is canceled when the module the worker belongs to is stopped.
func (w *WorkerCtx) Ctx() context.Context {
	return w.ctx
}

// Done returns the context Done channel.
func (w *WorkerCtx) Done() <-chan struct{} {
	return w.ctx.Done()
}

// IsDone checks whether the worker context is done.
func (w *WorkerCtx) IsDone() bool {
	return w.ctx.Err() != nil
}

// Logger returns the worker logger.
func (w *WorkerCtx) Logger() *slog.Logger {
	return w.logger
}

// AddToCtx adds the worker context to the given context, so it can be
// retrieved again with WorkerFromCtx.
func (w *WorkerCtx) AddToCtx(ctx context.Context) context.Context {
	return context.WithValue(ctx, workerCtxKey{}, w)
}

// WorkerFromCtx returns the worker context previously added with AddToCtx.
func WorkerFromCtx(ctx context.Context) *WorkerCtx {
	w, _ := ctx.Value(workerCtxKey{}).(*WorkerCtx)
	return w
}

// Debug logs at LevelDebug with the worker logger.
func (w *WorkerCtx) Debug(msg string, args ...any) {
	w.logger.Debug(msg, args...)
}

// Info logs at LevelInfo with the worker logger.
func (w *WorkerCtx) Info(msg string, args ...any) {
	w.logger.Info(msg, args...)
}

// Warn logs at LevelWarn with the worker logger.
func (w *WorkerCtx) Warn(msg string, args ...any) {
	w.logger.Warn(msg, args...)
}

// Error logs at LevelError with the worker logger.
func (w *WorkerCtx) Error(msg string, args ...any) {
	w.logger.Error(msg, args...)
}

func (w *WorkerCtx) runWorker(fn func(w *WorkerCtx) error) (err error) {
	defer func() {
		// Recover from panic and return it as an error with the stack trace.
		panicVal := recover()
		if panicVal != nil {
			err = fmt.Errorf("worker panic: %v\n%s", panicVal, debug.Stack())
		}
	}()

	return fn(w)
}
