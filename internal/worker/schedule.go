package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedules are cron specs per job. An empty spec leaves the job unscheduled.
type Schedules struct {
	Scrape string
	Notify string
	Remind string
}

// Scheduler fires the jobs of a Worker on their schedules.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers every non-empty schedule, interpreted in loc. Jobs
// run with ctx, so cancelling it stops runs in flight.
func NewScheduler(ctx context.Context, w *Worker, loc *time.Location, s Schedules) (*Scheduler, error) {
	l := cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)

	for job, spec := range map[string]string{
		JobScrape: s.Scrape,
		JobNotify: s.Notify,
		JobRemind: s.Remind,
	} {
		if spec == "" {
			continue
		}
		if _, err := c.AddFunc(spec, func() {
			// Failures are already logged and counted by the run itself.
			_ = w.Run(ctx, job)
		}); err != nil {
			return nil, fmt.Errorf("error scheduling %s with %q: %w", job, spec, err)
		}
		slog.InfoContext(ctx, "scheduled job", "job", job, "spec", spec)
	}

	return &Scheduler{cron: c}, nil
}

// Run fires jobs until ctx is done and waits for running jobs to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

// cronLogger routes cron's logging into slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error(msg, append(keysAndValues, "error", err)...)
}
