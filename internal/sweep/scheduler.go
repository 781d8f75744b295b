package sweep

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one recurring unit of work.
type Job interface {
	Run(ctx context.Context) error
}

// Scheduler drives the recurring sweeps. Every job is wrapped in
// cron.SkipIfStillRunning: a tick that arrives while the previous run
// of the same job is still going is dropped, not queued, which is the
// single-flight guarantee the sweeps rely on. Different jobs still run
// concurrently with each other.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	logger *zap.Logger
}

// NewScheduler constructs the scheduler. ctx bounds every job run.
func NewScheduler(ctx context.Context, logger *zap.Logger) *Scheduler {
	cronLogger := &zapCronLogger{logger: logger}
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger))),
		ctx:    ctx,
		logger: logger,
	}
}

// Add registers a job on a fixed interval.
func (s *Scheduler) Add(name string, every time.Duration, job Job) {
	s.cron.Schedule(cron.Every(every), cron.FuncJob(func() {
		if err := job.Run(s.ctx); err != nil {
			s.logger.Warn("scheduled job failed",
				zap.String("job", name),
				zap.Error(err))
		}
	}))
	s.logger.Info("scheduled job registered",
		zap.String("job", name),
		zap.Duration("interval", every))
}

// Start begins ticking.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling new ticks and waits for in-flight runs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// zapCronLogger adapts zap to cron.Logger.
type zapCronLogger struct {
	logger *zap.Logger
}

func (l *zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, zap.Any("details", keysAndValues))
}

func (l *zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}
