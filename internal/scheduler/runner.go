package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs a pass at the top of every hour.
const DefaultSchedule = "@hourly"

// Job is one schedulable pass.
type Job interface {
	Run(ctx context.Context) Report
}

// RunnerConfig configures a Runner. Schedule uses the standard five-field cron
// syntax or a descriptor such as "@every 15m".
type RunnerConfig struct {
	Schedule string
	Location *time.Location
	Job      Job
	Logger   *slog.Logger
}

// Runner triggers a Job on a cron schedule. A firing that arrives while the
// previous pass still runs is skipped, and a panicking pass is recovered.
type Runner struct {
	cron    *cron.Cron
	entry   cron.EntryID
	job     Job
	logger  *slog.Logger
	baseCtx context.Context
}

// NewRunner parses the schedule and registers the job. It does not start the
// scheduler.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Job == nil {
		return nil, fmt.Errorf("scheduler: runner requires a job")
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	logger := cfg.Logger.With("component", "cron")
	cronLogger := slogCronLogger{logger: logger}
	r := &Runner{
		job:     cfg.Job,
		logger:  logger,
		baseCtx: context.Background(),
	}
	r.cron = cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger), cron.Recover(cronLogger)),
	)

	id, err := r.cron.AddFunc(cfg.Schedule, r.runPass)
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid schedule %q: %w", cfg.Schedule, err)
	}
	r.entry = id
	return r, nil
}

// Start begins firing the job in the background. Passes receive ctx.
func (r *Runner) Start(ctx context.Context) {
	r.baseCtx = ctx
	r.cron.Start()
	r.logger.InfoContext(ctx, "cron started", "next_run", r.Next())
}

// RunNow triggers the job through the same wrappers as a scheduled firing, so
// it is skipped when a pass is already running.
func (r *Runner) RunNow() {
	r.cron.Entry(r.entry).WrappedJob.Run()
}

// Next returns the next scheduled firing, or the zero time before Start.
func (r *Runner) Next() time.Time {
	return r.cron.Entry(r.entry).Next
}

// Stop prevents further firings and waits for a running pass to finish or
// for ctx to expire.
func (r *Runner) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) runPass() {
	r.job.Run(r.baseCtx)
}

// slogCronLogger adapts slog to the cron.Logger interface.
type slogCronLogger struct {
	logger *slog.Logger
}

func (l slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
