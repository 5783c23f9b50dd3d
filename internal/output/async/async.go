package async

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hejijunhao/tagcheck/internal/model"
	"github.com/hejijunhao/tagcheck/internal/output"
)

const (
	defaultQueueSize    = 8
	defaultDrainTimeout = 30 * time.Second
)

// Option configures an Async wrapper.
type Option func(*Async)

// WithQueueSize sets how many undelivered reports may wait. Default: 8.
func WithQueueSize(n int) Option {
	return func(a *Async) { a.queueSize = n }
}

// WithDrainTimeout bounds how long Close waits for queued reports.
func WithDrainTimeout(d time.Duration) Option {
	return func(a *Async) { a.drainTimeout = d }
}

// WithOnError sets the callback invoked when delivering a report fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithSupersede makes a full queue discard its oldest undelivered report
// instead of blocking Write. Every report is a full snapshot of one run, so
// a stale one carries nothing the newer report lacks.
func WithSupersede() Option {
	return func(a *Async) { a.supersede = true }
}

// Async delivers reports to a slow output (typically a webhook) from a
// background goroutine, so repeated runs in watch mode are not held up by
// delivery.
type Async struct {
	inner        output.Output
	queue        chan model.Report
	done         chan struct{}
	errFunc      func(error)
	queueSize    int
	drainTimeout time.Duration
	supersede    bool

	mu         sync.Mutex // serializes the evict-then-enqueue step
	superseded atomic.Int64
	delivered  atomic.Int64
	closeOnce  sync.Once
}

// New wraps inner and starts delivering.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:        inner,
		queueSize:    defaultQueueSize,
		drainTimeout: defaultDrainTimeout,
		errFunc:      func(err error) { slog.Warn("report delivery failed", "error", err) },
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.queueSize < 1 {
		a.queueSize = 1
	}
	a.queue = make(chan model.Report, a.queueSize)
	a.done = make(chan struct{})
	go a.deliver()
	return a
}

// Write queues the report. Without WithSupersede it waits for room and
// returns ctx.Err() if ctx ends first.
func (a *Async) Write(ctx context.Context, report model.Report) error {
	if !a.supersede {
		select {
		case a.queue <- report:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for {
		select {
		case a.queue <- report:
			return nil
		default:
		}
		// The deliverer may take the oldest report first; either way room opens.
		select {
		case stale := <-a.queue:
			a.superseded.Add(1)
			slog.Debug("report superseded before delivery",
				"accuracy", stale.OverallAccuracy, "params", stale.TotalParams)
		default:
		}
	}
}

// Superseded reports how many queued reports were discarded in favour of a
// newer one.
func (a *Async) Superseded() int64 { return a.superseded.Load() }

// Delivered reports how many reports the inner output accepted.
func (a *Async) Delivered() int64 { return a.delivered.Load() }

// Close stops accepting reports, delivers what is queued (bounded by the
// drain timeout), then closes the inner output.
func (a *Async) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.queue)
		select {
		case <-a.done:
		case <-time.After(a.drainTimeout):
			slog.Warn("report delivery timed out", "pending", len(a.queue))
		}
		if n := a.superseded.Load(); n > 0 {
			slog.Info("superseded reports skipped", "count", n, "delivered", a.delivered.Load())
		}
		err = a.inner.Close()
	})
	return err
}

func (a *Async) deliver() {
	defer close(a.done)
	for report := range a.queue {
		if err := a.inner.Write(context.Background(), report); err != nil {
			a.errFunc(err)
			continue
		}
		a.delivered.Add(1)
	}
}
