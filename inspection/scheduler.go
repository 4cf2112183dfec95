package inspection

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"uptime-inspector/logging"
	"uptime-inspector/model"
)

const (
	DefaultInterval = 10 * time.Minute
	SchedulerActor  = "scheduler"
)

// SweepRunner runs and stores one sweep.
type SweepRunner interface {
	RunSweep(ctx context.Context, actor string) (model.Sweep, error)
}

// PostSweepHook is called after every successful scheduled or manual run.
type PostSweepHook func(ctx context.Context, sw model.Sweep)

type Status struct {
	Running     bool       `json:"running"`
	NextRunTime *time.Time `json:"next_run_time"`
	JobsCount   int        `json:"jobs_count"`
	Interval    string     `json:"interval"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	LastSweepID string     `json:"last_sweep_id,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

type Scheduler struct {
	runner   SweepRunner
	interval time.Duration
	actor    string
	hook     PostSweepHook
	logger   *zap.Logger

	mu        sync.Mutex
	running   bool
	next      time.Time
	lastRun   time.Time
	lastSweep string
	lastErr   string

	stopCh chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type SchedulerOption func(*Scheduler)

func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithActor(actor string) SchedulerOption {
	return func(s *Scheduler) {
		if actor != "" {
			s.actor = actor
		}
	}
}

func WithPostSweep(h PostSweepHook) SchedulerOption {
	return func(s *Scheduler) { s.hook = h }
}

func WithSchedulerLogger(l *zap.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

func NewScheduler(runner SweepRunner, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		runner:   runner,
		interval: DefaultInterval,
		actor:    SchedulerActor,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger)
	return s
}

// ===== Lifecycle =====

// Start launches the ticker loop. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.stopCh = make(chan struct{})
	s.running = true
	s.next = time.Now().Add(s.interval)

	s.wg.Add(1)
	go s.loop(ctx, s.stopCh)
	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
}

// Stop ends the loop, cancels an in-flight scheduled sweep and waits for it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.next = time.Time{}
	close(s.stopCh)
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.next = time.Now().Add(s.interval)
			s.mu.Unlock()
			_, _ = s.run(ctx)
		}
	}
}

// RunNow runs a sweep immediately, outside the ticker.
func (s *Scheduler) RunNow(ctx context.Context) (model.Sweep, error) {
	return s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) (model.Sweep, error) {
	s.logger.Info("scheduled sweep starting", zap.String("actor", s.actor))
	sw, err := s.runner.RunSweep(ctx, s.actor)

	s.mu.Lock()
	s.lastRun = time.Now()
	if err != nil {
		s.lastErr = err.Error()
	} else {
		s.lastErr = ""
		s.lastSweep = sw.ID
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled sweep failed", zap.Error(err))
		return model.Sweep{}, err
	}
	s.logger.Info("scheduled sweep finished",
		zap.String("sweep_id", sw.ID),
		zap.Int("systems", len(sw.Systems)),
		zap.Int("skipped", len(sw.Skipped)),
	)
	if s.hook != nil {
		s.hook(ctx, sw)
	}
	return sw, nil
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Running: s.running, Interval: s.interval.String(), LastSweepID: s.lastSweep, LastError: s.lastErr}
	if s.running {
		next := s.next
		st.NextRunTime = &next
		st.JobsCount = 1
	}
	if !s.lastRun.IsZero() {
		last := s.lastRun
		st.LastRunAt = &last
	}
	return st
}
