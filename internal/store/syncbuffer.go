package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SyncBuffer debounces writes of a value that changes often. Only the
// latest enqueued value is written, once the buffer has been quiet for the
// configured delay.
type SyncBuffer[T any] struct {
	mu      sync.Mutex
	pending *T
	timer   *time.Timer
	delay   time.Duration

	flushMu sync.Mutex
	write   func(context.Context, T) error
	logger  *slog.Logger
}

// NewSyncBuffer creates a buffer that hands values to write.
func NewSyncBuffer[T any](delay time.Duration, write func(context.Context, T) error, logger *slog.Logger) *SyncBuffer[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncBuffer[T]{
		delay:  delay,
		write:  write,
		logger: logger.With(slog.String("component", "sync_buffer")),
	}
}

// Enqueue replaces the pending value and restarts the quiet period.
func (b *SyncBuffer[T]) Enqueue(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = &v
	b.scheduleLocked(b.delay)
}

// FlushAfter reschedules the pending write to happen after d.
func (b *SyncBuffer[T]) FlushAfter(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending != nil {
		b.scheduleLocked(d)
	}
}

func (b *SyncBuffer[T]) scheduleLocked(d time.Duration) {
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(d, func() {
		if err := b.Flush(context.Background()); err != nil {
			b.logger.Error("Deferred write failed", slog.String("error", err.Error()))
		}
	})
}

// Pending reports whether a value is waiting to be written.
func (b *SyncBuffer[T]) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending != nil
}

// Flush writes the pending value now. It is a no-op when nothing is
// pending. A failed write is put back unless a newer value arrived.
func (b *SyncBuffer[T]) Flush(ctx context.Context) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	v := b.pending
	b.pending = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	if v == nil {
		return nil
	}
	if err := b.write(ctx, *v); err != nil {
		b.mu.Lock()
		if b.pending == nil {
			b.pending = v
		}
		b.mu.Unlock()
		return err
	}
	return nil
}

// Cancel drops the pending value without writing it.
func (b *SyncBuffer[T]) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
