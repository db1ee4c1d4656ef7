package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Task is one periodic unit of work
type Task func(ctx context.Context) error

type fatalError struct{ err error }

func (e fatalError) Error() string { return e.err.Error() }
func (e fatalError) Unwrap() error { return e.err }

// Fatal marks err as unrecoverable: the scheduler stops and Run returns it.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return fatalError{err: err}
}

// IsFatal reports whether err was marked with Fatal
func IsFatal(err error) bool {
	var fe fatalError
	return errors.As(err, &fe)
}

// Scheduler runs tasks at fixed intervals. A task never overlaps with
// itself; a tick that comes while the previous one runs is skipped.
type Scheduler struct {
	cron  *cron.Cron
	chain cron.Chain
	log   *slog.Logger

	ctx   context.Context
	fatal chan error
	once  sync.Once
}

func New(log *slog.Logger) *Scheduler {
	l := cronLogger{log: log}
	return &Scheduler{
		cron:  cron.New(cron.WithLogger(l)),
		chain: cron.NewChain(cron.SkipIfStillRunning(l), cron.Recover(l)),
		log:   log,
		ctx:   context.Background(),
		fatal: make(chan error, 1),
	}
}

// Every registers task to run every interval, rounded to whole seconds
// with a minimum of one second. Must be called before Run.
func (s *Scheduler) Every(name string, interval time.Duration, task Task) {
	job := cron.FuncJob(func() {
		err := task(s.ctx)
		switch {
		case err == nil:
		case IsFatal(err):
			s.log.Error("task failed fatally", "task", name, "error", err)
			s.once.Do(func() { s.fatal <- err })
		default:
			s.log.Warn("task failed", "task", name, "error", err)
		}
	})

	s.cron.Schedule(cron.Every(interval), s.chain.Then(job))
	s.log.Info("task scheduled", "task", name, "interval", interval)
}

// Run starts the scheduler and blocks until ctx is done or a task fails
// fatally. Running tasks are waited for before it returns.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.ctx = ctx

	s.cron.Start()

	var err error
	select {
	case <-ctx.Done():
	case err = <-s.fatal:
	}

	cancel()
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
	return err
}

// cronLogger adapts slog to cron.Logger
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
