// ABOUTME: Cancelable periodic token refresh on a robfig/cron schedule
// ABOUTME: Runs once at start and then every interval; failures are only logged

package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultRefreshInterval is how often the session is extended.
const DefaultRefreshInterval = 20 * time.Minute

// every is a fixed-delay schedule without cron's one-second rounding.
type every time.Duration

func (d every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(d))
}

// cronLogger routes cron's internal logging to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("Refresh scheduler: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("Refresh scheduler: "+msg, append(keysAndValues, "error", err)...)
}

// Refresher calls a refresh function at start and then at a fixed interval
// until stopped. It never backs off and adds no jitter. A run that is still
// going when the next one is due causes that next one to be skipped.
type Refresher struct {
	refresh  func(context.Context) error
	interval time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	runs    int
	started bool
}

// NewRefresher returns a stopped Refresher. interval <= 0 uses DefaultRefreshInterval.
func NewRefresher(refresh func(context.Context) error, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{refresh: refresh, interval: interval}
}

// SessionRefresher refreshes the credentials in st through m.
func SessionRefresher(m *SessionManager, st Stores, interval time.Duration) *Refresher {
	return NewRefresher(func(ctx context.Context) error {
		return m.Refresh(ctx, st)
	}, interval)
}

// Start runs a refresh immediately and schedules the rest. Calling Start on
// a running Refresher does nothing.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	logger := cronLogger{}
	r.cron = cron.New(cron.WithLogger(logger))
	job := cron.NewChain(cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(func() { r.run(runCtx) }))
	r.cron.Schedule(every(r.interval), job)
	r.cron.Start()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		job.Run()
	}()

	slog.Info("Background refresh started", "interval", r.interval)
}

// Stop cancels the schedule and any refresh in progress, then waits for it
// to return. It is safe to call more than once.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	r.cancel()
	done := r.cron.Stop()
	r.mu.Unlock()

	<-done.Done()
	r.wg.Wait()
	slog.Info("Background refresh stopped")
}

// Runs returns how many refreshes have been attempted.
func (r *Refresher) Runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func (r *Refresher) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()

	err := r.refresh(ctx)
	switch {
	case err == nil:
		slog.Debug("Background refresh succeeded")
	case errors.Is(err, ErrNoRefreshToken):
		slog.Debug("Background refresh skipped: no refresh token")
	default:
		slog.Warn("Background refresh failed", "error", err)
	}
}
