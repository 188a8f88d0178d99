// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/isdelr/profileapp-be/internal/models"
	"github.com/isdelr/profileapp-be/internal/services"
)

// JobFunc is one run of a maintenance job. The returned summary is recorded
// as an event when non-empty.
type JobFunc func(ctx context.Context) (summary string, err error)

// jobTimeout bounds a single run.
const jobTimeout = 5 * time.Minute

// Scheduler executes registered jobs on their cron specs.
type Scheduler struct {
	cron     *cron.Cron
	eventSvc services.EventServiceProvider
	jobs     map[string]JobFunc
}

// New creates a scheduler. eventSvc may be nil.
func New(eventSvc services.EventServiceProvider) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		), cron.WithLogger(logger)),
		eventSvc: eventSvc,
		jobs:     make(map[string]JobFunc),
	}
}

// Add registers fn under name to run on spec ("@every 1h", "0 3 * * *", ...).
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	if _, err := s.cron.AddFunc(spec, func() { s.run(context.Background(), name, fn) }); err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	s.jobs[name] = fn
	return nil
}

// RunNow executes a registered job immediately on the calling goroutine.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	fn, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.run(ctx, name, fn)
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	log.Info().Int("jobs", len(s.jobs)).Msg("Starting background scheduler")
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	log.Info().Msg("Stopping background scheduler")
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		log.Warn().Msg("Scheduler jobs still running at shutdown")
	}
}

func (s *Scheduler) run(ctx context.Context, name string, fn JobFunc) error {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	summary, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Str("job", name).Msg("Scheduled job failed")
		s.record(ctx, name, "error", fmt.Sprintf("Scheduled job '%s' failed: %v", name, err))
		return err
	}

	log.Debug().Str("job", name).Dur("took", time.Since(start)).Str("summary", summary).Msg("Scheduled job finished")
	if summary != "" {
		s.record(ctx, name, "info", summary)
	}
	return nil
}

func (s *Scheduler) record(ctx context.Context, name, level, message string) {
	if s.eventSvc == nil {
		return
	}
	err := s.eventSvc.CreateEvent(ctx, models.Event{Type: "job." + name, Level: level, Message: message, Actor: "scheduler"})
	if err != nil {
		log.Warn().Err(err).Str("job", name).Msg("Failed to record job event")
	}
}

// cronLogger routes cron's own logging through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
