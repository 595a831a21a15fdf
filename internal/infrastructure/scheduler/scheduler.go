package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a unit of periodic work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs registered jobs on cron schedules. A job never overlaps
// with itself: a run that is due while the previous one is still going is
// skipped. Panics inside a job are recovered and logged.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger

	mu        sync.Mutex
	jobs      map[string]registeredJob
	runCtx    context.Context
	cancel    context.CancelFunc
	isRunning bool
}

type registeredJob struct {
	job     Job
	spec    string
	entryID cron.EntryID
}

// Option configures a Scheduler
type Option func(*schedulerOptions)

type schedulerOptions struct {
	location *time.Location
}

// WithLocation evaluates schedules in loc instead of time.Local
func WithLocation(loc *time.Location) Option {
	return func(o *schedulerOptions) {
		o.location = loc
	}
}

// NewScheduler creates a stopped scheduler
func NewScheduler(logger *zap.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := schedulerOptions{location: time.Local}
	for _, opt := range opts {
		opt(&o)
	}

	cl := newCronLogger(logger)
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(o.location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		jobs:   make(map[string]registeredJob),
		runCtx: context.Background(),
	}
}

// Register schedules job using a standard five-field cron expression or a
// descriptor such as "@daily" or "@every 1h".
func (s *Scheduler) Register(spec string, job Job) error {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidSchedule, spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name())
	}

	id := s.cron.Schedule(schedule, cron.FuncJob(func() {
		s.execute(s.context(), job)
	}))
	s.jobs[job.Name()] = registeredJob{job: job, spec: spec, entryID: id}

	s.logger.Info("job registered",
		zap.String("job", job.Name()),
		zap.String("schedule", spec),
	)
	return nil
}

// Start begins firing jobs. Jobs run with a context derived from ctx that is
// cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.isRunning = true
	s.cron.Start()

	s.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop stops firing new runs, cancels running ones and waits for them to
// return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	stopped := s.cron.Stop()
	cancel()

	select {
	case <-stopped.Done():
		s.logger.Info("scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
		return ctx.Err()
	}
}

// RunNow runs the named job synchronously outside its schedule
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	rj, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.execute(ctx, rj.job)
}

// NextRun returns when the named job fires next. The zero time means the
// scheduler is not running.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.Lock()
	rj, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(rj.entryID).Next, true
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runCtx
}

func (s *Scheduler) execute(ctx context.Context, job Job) error {
	start := time.Now()
	log := s.logger.With(zap.String("job", job.Name()))
	log.Info("job started")

	if err := job.Run(ctx); err != nil {
		log.Error("job failed",
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return err
	}

	log.Info("job completed", zap.Duration("duration", time.Since(start)))
	return nil
}
