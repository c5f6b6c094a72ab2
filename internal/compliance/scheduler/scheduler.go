// Package scheduler triggers compliance runs once a day at a fixed local time
// and once eagerly at startup.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vendorwatch/internal/compliance"
)

// Trigger sources recorded on each run.
const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// ErrStopped is returned by Trigger and TriggerAsync once Stop has begun.
var ErrStopped = errors.New("compliance scheduler is stopped")

type Runner interface {
	Run(ctx context.Context) (*compliance.RunReport, error)
}

type Config struct {
	Hour       int
	Minute     int
	Location   *time.Location
	RunOnStart bool
}

func (c Config) Validate() error {
	if c.Hour < 0 || c.Hour > 23 {
		return fmt.Errorf("schedule hour must be 0-23, got %d", c.Hour)
	}
	if c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("schedule minute must be 0-59, got %d", c.Minute)
	}
	if c.Location == nil {
		return errors.New("schedule location is required")
	}
	return nil
}

// LastRun describes the most recent finished run.
type LastRun struct {
	Trigger    string                `json:"trigger"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Report     *compliance.RunReport `json:"report,omitempty"`
	Error      string                `json:"error,omitempty"`
}

type Status struct {
	Running bool      `json:"running"`
	NextRun time.Time `json:"next_run"`
	LastRun *LastRun  `json:"last_run,omitempty"`
}

// Scheduler owns the daily trigger. Lifecycle: New, Start once, Stop once.
// Trigger may be called at any time between Start and Stop; a run that would
// overlap the one in progress is refused with compliance.ErrRunInProgress.
type Scheduler struct {
	runner Runner
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	running bool
	stopped bool
	nextRun time.Time
	last    *LastRun

	baseCtx  context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	inFlight sync.WaitGroup
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

func New(runner Runner, cfg Config, opts ...Option) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		runner:  runner,
		cfg:     cfg,
		logger:  slog.Default(),
		now:     time.Now,
		baseCtx: context.Background(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start registers the daily trigger and, if configured, runs once right away
// on the scheduler goroutine. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	go s.loop(ctx)

	s.logger.InfoContext(ctx, "compliance scheduler started",
		"hour", s.cfg.Hour,
		"minute", s.cfg.Minute,
		"timezone", s.cfg.Location.String(),
		"run_on_start", s.cfg.RunOnStart,
	)
}

// Stop cancels the pending trigger and waits for any run in flight.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	s.inFlight.Wait()
}

// Trigger runs synchronously on the caller's goroutine.
func (s *Scheduler) Trigger(ctx context.Context) (*compliance.RunReport, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	return s.execute(ctx, TriggerManual)
}

// TriggerAsync starts a manual run in the background. The run is bound to the
// scheduler's lifetime, not to ctx.
func (s *Scheduler) TriggerAsync(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	s.mu.Lock()
	runCtx := s.baseCtx
	s.mu.Unlock()

	go func() {
		_, _ = s.execute(runCtx, TriggerManual)
	}()
	s.logger.InfoContext(ctx, "manual compliance run accepted")
	return nil
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Running: s.running, NextRun: s.nextRun}
	if s.last != nil {
		last := *s.last
		st.LastRun = &last
	}
	return st
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	if s.cfg.RunOnStart {
		s.runScheduled(ctx, TriggerStartup)
	}

	for {
		next := NextRun(s.now(), s.cfg.Hour, s.cfg.Minute, s.cfg.Location)
		s.mu.Lock()
		s.nextRun = next
		s.mu.Unlock()

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.runScheduled(ctx, TriggerSchedule)
		}
	}
}

func (s *Scheduler) runScheduled(ctx context.Context, trigger string) {
	if err := s.begin(); err != nil {
		s.logger.WarnContext(ctx, "compliance run skipped", "trigger", trigger, "reason", err)
		return
	}
	_, _ = s.execute(ctx, trigger)
}

// begin claims the single run slot and registers it with inFlight while
// holding mu, so Stop never waits on a slot taken after it started.
func (s *Scheduler) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.running {
		return compliance.ErrRunInProgress
	}
	s.running = true
	s.inFlight.Add(1)
	return nil
}

// execute must only be called after a successful begin.
func (s *Scheduler) execute(ctx context.Context, trigger string) (*compliance.RunReport, error) {
	defer s.inFlight.Done()
	started := s.now()
	report, err := s.runner.Run(ctx)

	last := &LastRun{Trigger: trigger, StartedAt: started, FinishedAt: s.now(), Report: report}
	if err != nil {
		last.Error = err.Error()
		s.logger.ErrorContext(ctx, "compliance run ended with error", "trigger", trigger, "error", err)
	}

	s.mu.Lock()
	s.running = false
	s.last = last
	s.mu.Unlock()
	return report, err
}

// NextRun returns the first hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}
