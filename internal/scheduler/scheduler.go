package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/PriceBox/internal/services/refresher"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

const DefaultLockKey = "pricebox:scheduler:leader"

type Cycler interface {
	RunCycle(ctx context.Context) (refresher.CycleReport, error)
}

// Locker elects a single leader across worker replicas.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type Stats struct {
	Started   bool      `json:"started"`
	Cycles    int64     `json:"cycles"`
	Skipped   int64     `json:"skipped"`
	Failures  int64     `json:"failures"`
	LastRunAt time.Time `json:"lastRunAt,omitempty"`
	LastError string    `json:"lastError,omitempty"`
}

type Scheduler struct {
	job      Cycler
	interval time.Duration

	locker  Locker
	lockKey string
	lockTTL time.Duration

	cron    *cron.Cron
	entry   cron.Job
	started atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	cycles   atomic.Int64
	skipped  atomic.Int64
	failures atomic.Int64

	mu        sync.Mutex
	lastRunAt time.Time
	lastError string
}

func New(job Cycler) *Scheduler {
	s := &Scheduler{
		job:      job,
		interval: 6 * time.Hour,
		lockKey:  DefaultLockKey,
	}
	logger := cronLogger{l: slog.Default()}
	s.cron = cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger)))
	s.entry = cron.NewChain(cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(s.tick))
	return s
}

func (s *Scheduler) WithInterval(d time.Duration) *Scheduler {
	if d > 0 {
		s.interval = d
	}
	return s
}

// WithLock makes cycles run only on the replica holding key. A non-positive ttl
// defaults to twice the interval so the leader keeps the key between cycles.
func (s *Scheduler) WithLock(l Locker, key string, ttl time.Duration) *Scheduler {
	s.locker = l
	if key != "" {
		s.lockKey = key
	}
	s.lockTTL = ttl
	return s
}

func (s *Scheduler) ttl() time.Duration {
	if s.lockTTL > 0 {
		return s.lockTTL
	}
	return 2 * s.interval
}

// Start registers the periodic cycle and starts the cron loop. Only the first
// call has an effect; it reports whether this call started the scheduler.
func (s *Scheduler) Start(ctx context.Context) (bool, error) {
	if !s.started.CompareAndSwap(false, true) {
		return false, nil
	}
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	if _, err := s.cron.AddJob(fmt.Sprintf("@every %s", s.interval), s.entry); err != nil {
		s.cancel()
		s.started.Store(false)
		return false, errors.Wrap(err, "schedule refresh cycle")
	}
	s.cron.Start()
	slog.Info("scheduler started", "interval", s.interval.String(), "lock", s.locker != nil)
	return true, nil
}

// RunNow runs a cycle out of band. It shares the skip-if-running guard with the
// periodic entry.
func (s *Scheduler) RunNow() bool {
	if !s.started.Load() {
		return false
	}
	go s.entry.Run()
	return true
}

// Stop halts scheduling and cancels the in-flight cycle without waiting for it.
func (s *Scheduler) Stop() {
	if !s.started.Load() {
		return
	}
	s.cron.Stop()
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	if s.locker != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.locker.Release(ctx, s.lockKey); err != nil {
			slog.Warn("scheduler lock release failed", "error", err.Error())
		}
	}
	slog.Info("scheduler stopped")
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Started:   s.started.Load(),
		Cycles:    s.cycles.Load(),
		Skipped:   s.skipped.Load(),
		Failures:  s.failures.Load(),
		LastRunAt: s.lastRunAt,
		LastError: s.lastError,
	}
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	if s.locker != nil {
		ok, err := s.locker.Acquire(ctx, s.lockKey, s.ttl())
		if err != nil {
			s.skipped.Add(1)
			slog.Error("scheduler lock acquire failed", "error", err.Error())
			return
		}
		if !ok {
			s.skipped.Add(1)
			slog.Info("scheduler not leader, skipping cycle", "key", s.lockKey)
			return
		}
	}

	started := time.Now()
	rep, err := s.job.RunCycle(ctx)
	s.cycles.Add(1)

	s.mu.Lock()
	s.lastRunAt = started
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.failures.Add(1)
		slog.Error("refresh cycle failed", "error", err.Error())
		return
	}
	slog.Info("refresh cycle done",
		"listings", rep.Listings,
		"updated", rep.Updated,
		"failed", rep.Failed,
		"alerts_fired", rep.AlertsFired,
		"took", time.Since(started).String(),
	)
}

type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
