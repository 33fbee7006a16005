package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// jobTimeout bounds a single run of any job
const jobTimeout = 4 * time.Minute

// OrphanSweeper removes stored files no proof references
type OrphanSweeper interface {
	SweepOrphans(ctx context.Context, grace time.Duration) (int, error)
}

// TokenPurger deletes revocation records past their expiry
type TokenPurger interface {
	PurgeRevokedTokens(ctx context.Context) (int64, error)
}

type Config struct {
	OrphanSweepSchedule string
	OrphanGracePeriod   time.Duration
	TokenPurgeSchedule  string
}

// Scheduler runs the maintenance jobs on cron schedules
type Scheduler struct {
	cron    *cron.Cron
	config  Config
	files   OrphanSweeper
	tokens  TokenPurger
	logger  *slog.Logger
	entries map[string]cron.EntryID
}

// New registers the jobs. An empty schedule disables that job.
func New(config Config, files OrphanSweeper, tokens TokenPurger, logger *slog.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		config:  config,
		files:   files,
		tokens:  tokens,
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}

	if err := s.add("orphan_sweep", config.OrphanSweepSchedule, s.runOrphanSweep); err != nil {
		return nil, err
	}
	if err := s.add("token_purge", config.TokenPurgeSchedule, s.runTokenPurge); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) add(name, spec string, job func(context.Context) error) error {
	if spec == "" {
		s.logger.Info("Scheduled job disabled", "job", name)
		return nil
	}

	id, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		started := time.Now()
		if err := job(ctx); err != nil {
			s.logger.Error("Scheduled job failed", "job", name, "error", err)
			return
		}
		s.logger.Debug("Scheduled job finished", "job", name, "duration_ms", time.Since(started).Milliseconds())
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	s.entries[name] = id
	return nil
}

// Jobs returns the names of the registered jobs
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}

// Next returns the next run time of a job, or zero when it is not scheduled
func (s *Scheduler) Next(job string) time.Time {
	id, ok := s.entries[job]
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", "jobs", s.Jobs())
}

// Stop prevents new runs and waits for running jobs until ctx ends
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runOrphanSweep(ctx context.Context) error {
	_, err := s.files.SweepOrphans(ctx, s.config.OrphanGracePeriod)
	return err
}

func (s *Scheduler) runTokenPurge(ctx context.Context) error {
	_, err := s.tokens.PurgeRevokedTokens(ctx)
	return err
}

// cronLogger adapts slog to cron.Logger
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
