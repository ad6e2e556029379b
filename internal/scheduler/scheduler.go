package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Task is a named job run on a cron schedule.
type Task struct {
	Name string
	// Spec is a standard 5-field cron expression or a descriptor such as "@every 6h".
	Spec string
	// RunOnStart also runs the task once as soon as the scheduler starts.
	RunOnStart bool
	Run        func(ctx context.Context) error
}

// Scheduler wraps robfig/cron and owns the daemon's main loop. A task that
// is still running when its next tick fires is skipped.
type Scheduler struct {
	tasks  []Task
	loc    *time.Location
	logger *slog.Logger
}

// New creates a scheduler that evaluates specs in loc.
func New(loc *time.Location, logger *slog.Logger, tasks ...Task) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{tasks: tasks, loc: loc, logger: logger}
}

// Validate reports whether spec is a schedule the scheduler accepts.
func Validate(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Run registers every task, runs the RunOnStart ones, and blocks until ctx
// is cancelled. It waits for running tasks to finish and returns nil on a
// graceful shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	cl := cronLogger{s.logger}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)

	var startup []cron.Job
	for _, t := range s.tasks {
		// Startup runs share the skip lock with scheduled ticks.
		job := cron.NewChain(cron.SkipIfStillRunning(cl)).Then(s.job(ctx, t))
		if _, err := c.AddJob(t.Spec, job); err != nil {
			return fmt.Errorf("scheduling %s: %w", t.Name, err)
		}
		if t.RunOnStart {
			startup = append(startup, job)
		}
	}

	s.logger.Info("starting scheduler", "tasks", len(s.tasks), "location", s.loc.String())
	c.Start()
	for _, e := range c.Entries() {
		s.logger.Debug("next run", "entry", e.ID, "at", e.Next)
	}

	for _, job := range startup {
		if ctx.Err() != nil {
			break
		}
		job.Run()
	}

	<-ctx.Done()
	s.logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	return nil
}

func (s *Scheduler) job(ctx context.Context, t Task) cron.Job {
	return cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		started := time.Now()
		if err := t.Run(ctx); err != nil {
			s.logger.Error("task failed", "task", t.Name, "error", err)
			return
		}
		s.logger.Info("task complete", "task", t.Name, "duration", time.Since(started).Round(time.Millisecond))
	})
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
