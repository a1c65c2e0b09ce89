// Package scheduler runs the sync loop on a fixed interval with an
// explicit lifecycle, so the status endpoint and shutdown path always know
// what the daemon is doing.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// State is the daemon lifecycle.
//
//	Stopped -> Starting -> Running -> Stopping -> Stopped
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// SyncFunc is one sync pass. The error is recorded, never escalated: a
// failed pass leaves the daemon running for the next tick.
type SyncFunc func(ctx context.Context) error

// LastRun records the outcome of the most recent pass.
type LastRun struct {
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Error    string    `json:"error,omitempty"`
}

// Scheduler owns the polling loop: an immediate pass at startup, then one
// pass per interval. A tick that fires while a pass is still running is
// skipped, not queued.
type Scheduler struct {
	interval time.Duration
	syncFn   SyncFunc
	log      *zap.Logger

	state atomic.Int32

	mu      sync.Mutex
	lastRun *LastRun
}

// New creates a scheduler. interval must be at least one second (cron's
// tick resolution).
func New(interval time.Duration, syncFn SyncFunc, log *zap.Logger) (*Scheduler, error) {
	if interval < time.Second {
		return nil, fmt.Errorf("scheduler: interval %s too short, minimum is 1s", interval)
	}
	if syncFn == nil {
		return nil, fmt.Errorf("scheduler: sync function is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		interval: interval,
		syncFn:   syncFn,
		log:      log,
	}, nil
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// LastRun returns the most recent pass outcome, or nil before the first
// pass completes.
func (s *Scheduler) LastRun() *LastRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return nil
	}
	lr := *s.lastRun
	return &lr
}

// Run blocks until ctx is cancelled. It executes one pass immediately,
// then one per interval. On cancellation the in-flight pass finishes
// before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return fmt.Errorf("scheduler: already running")
	}
	defer s.state.Store(int32(StateStopped))

	s.log.Info("scheduler starting", zap.Duration("interval", s.interval))

	// First pass right away; the interval gates subsequent passes.
	s.runOnce(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.state.Store(int32(StateRunning))

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.PrintfLogger(zap.NewStdLog(s.log))),
	))
	c.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		s.runOnce(ctx)
	}))
	c.Start()

	<-ctx.Done()
	s.state.Store(int32(StateStopping))
	s.log.Info("scheduler stopping, waiting for in-flight pass")

	// Stop returns a context that completes when running jobs finish.
	<-c.Stop().Done()
	s.log.Info("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	run := LastRun{Started: time.Now().UTC()}
	err := s.syncFn(ctx)
	run.Finished = time.Now().UTC()
	if err != nil {
		run.Error = err.Error()
		s.log.Error("sync pass failed", zap.Error(err))
	}

	s.mu.Lock()
	s.lastRun = &run
	s.mu.Unlock()
}
