// Package scheduler runs the periodic yard sweeps on cron schedules evaluated in the yard's timezone.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobTimeout = 5 * time.Minute

// Job is one sweep over the yard for the given calendar date. It returns how many slots it changed.
type Job func(ctx context.Context, today string) (int, error)

type Scheduler struct {
	cron  *cron.Cron
	today func() string
	log   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a stopped scheduler. today supplies the yard-local date each time a job fires.
func New(loc *time.Location, today func() string, log *zap.Logger) *Scheduler {
	log = log.Named("scheduler")
	cl := cronLogger{log.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		today:  today,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register adds a job under a standard five-field spec. An empty spec leaves the job disabled.
func (s *Scheduler) Register(name, spec string, job Job) error {
	if spec == "" {
		s.log.Info("job disabled", zap.String("job", name))
		return nil
	}
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, job) }); err != nil {
		return fmt.Errorf("scheduler: job %s: %w", name, err)
	}
	s.log.Info("job scheduled", zap.String("job", name), zap.String("spec", spec))
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()

	today := s.today()
	start := time.Now()
	changed, err := job(ctx, today)
	fields := []zap.Field{
		zap.String("job", name),
		zap.String("date", today),
		zap.Int("changed", changed),
		zap.Duration("took", time.Since(start)),
	}
	if err != nil {
		s.log.Error("job finished with errors", append(fields, zap.Error(err))...)
		return
	}
	s.log.Info("job finished", fields...)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them, or for ctx, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("stop timed out with jobs still running")
	}
}

// cronLogger routes cron's own messages into zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
