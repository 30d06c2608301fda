// Package worker runs the bot's jobs: scraping listings into the store,
// posting to destinations and sending the daily reminder.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jdholdren/matsubo/internal/logger"
	"github.com/jdholdren/matsubo/internal/matsubo"
	"github.com/jdholdren/matsubo/internal/metrics"
	"github.com/jdholdren/matsubo/internal/notify"
	"github.com/jdholdren/matsubo/internal/scrape"
)

// Job names, as used in schedules, metrics and the API.
const (
	JobScrape = "scrape"
	JobNotify = "notify"
	JobRemind = "remind"
)

// Jobs lists every job name.
var Jobs = []string{JobScrape, JobNotify, JobRemind}

var (
	// ErrAlreadyRunning is returned when a job is started while the previous
	// run of it has not finished.
	ErrAlreadyRunning = errors.New("job already running")
	// ErrUnknownJob is returned for a job name that isn't one of Jobs.
	ErrUnknownJob = errors.New("unknown job")
)

type (
	Scraper interface {
		Scrape(ctx context.Context) ([]scrape.Result, error)
	}

	// Pauser is the presence cycle, paused while posting.
	Pauser interface {
		Pause(ctx context.Context) (resume func())
	}
)

type Worker struct {
	repo     matsubo.Repository
	scraper  Scraper
	notifier *notify.Notifier
	reminder *notify.Reminder
	metrics  *metrics.Metrics
	presence Pauser

	locks  map[string]*sync.Mutex
	bodies map[string]func(ctx context.Context) error
}

// NewWorker wires the jobs together. presence may be nil.
func NewWorker(
	repo matsubo.Repository,
	scraper Scraper,
	notifier *notify.Notifier,
	reminder *notify.Reminder,
	m *metrics.Metrics,
	presence Pauser,
) *Worker {
	locks := make(map[string]*sync.Mutex, len(Jobs))
	for _, job := range Jobs {
		locks[job] = &sync.Mutex{}
	}

	w := &Worker{
		repo:     repo,
		scraper:  scraper,
		notifier: notifier,
		reminder: reminder,
		metrics:  m,
		presence: presence,
		locks:    locks,
	}
	w.bodies = map[string]func(ctx context.Context) error{
		JobScrape: w.scrape,
		JobNotify: w.notify,
		JobRemind: w.remind,
	}
	return w
}

// Run runs a job by name and waits for it.
func (w *Worker) Run(ctx context.Context, job string) error {
	fn, err := w.job(job)
	if err != nil {
		return err
	}
	return fn(ctx)
}

// Start runs a job by name in the background. It fails right away when the
// job is unknown or already running.
func (w *Worker) Start(ctx context.Context, job string) error {
	if _, err := w.job(job); err != nil {
		return err
	}
	lock := w.locks[job]
	if !lock.TryLock() {
		return fmt.Errorf("error starting %s: %w", job, ErrAlreadyRunning)
	}

	go func() {
		defer lock.Unlock()
		// Failures are logged and counted by the run.
		_ = w.run(ctx, job, w.bodies[job])
	}()
	return nil
}

func (w *Worker) job(job string) (func(ctx context.Context) error, error) {
	switch job {
	case JobScrape:
		return w.Scrape, nil
	case JobNotify:
		return w.Notify, nil
	case JobRemind:
		return w.Remind, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownJob, job)
	}
}

// Scrape reads every source and stores what it found.
func (w *Worker) Scrape(ctx context.Context) error {
	return w.logged(ctx, JobScrape, w.scrape)
}

func (w *Worker) scrape(ctx context.Context) error {
	results, err := w.scraper.Scrape(ctx)
	if err != nil {
		return fmt.Errorf("error scraping: %w", err)
	}
	for _, r := range results {
		w.metrics.ScrapedEvents.WithLabelValues(string(r.Source)).Add(float64(len(r.Events)))
	}

	// Cards repeat across listing pages; keep one per stored row.
	events := matsubo.Merge(scrape.All(results), matsubo.SameRow, matsubo.KeepFirst)
	if err := w.repo.UpsertEvents(ctx, events); err != nil {
		return fmt.Errorf("error storing events: %w", err)
	}
	slog.InfoContext(ctx, "stored events", "events", len(events))

	return nil
}

// Notify reconciles every subscribed destination.
func (w *Worker) Notify(ctx context.Context) error {
	return w.logged(ctx, JobNotify, w.notify)
}

func (w *Worker) notify(ctx context.Context) error {
	defer w.pause(ctx)()

	res, err := w.notifier.Notify(ctx)
	w.metrics.ObserveNotify(res)
	slog.InfoContext(ctx, "notified destinations",
		"destinations", res.Destinations,
		"failed_destinations", res.FailedDestinations,
		"posted", res.Posted,
		"edited", res.Edited,
		"unchanged", res.Unchanged,
		"skipped_cancelled", res.SkippedCancelled,
		"failed", res.Failed,
	)
	return err
}

// Remind sends or refreshes the reminder of every subscribed destination.
func (w *Worker) Remind(ctx context.Context) error {
	return w.logged(ctx, JobRemind, w.remind)
}

func (w *Worker) remind(ctx context.Context) error {
	defer w.pause(ctx)()

	res, err := w.reminder.Remind(ctx)
	w.metrics.ObserveRemind(res)
	slog.InfoContext(ctx, "reminded destinations",
		"destinations", res.Destinations,
		"failed_destinations", res.FailedDestinations,
		"sent", res.Sent,
		"replaced", res.Replaced,
		"unchanged", res.Unchanged,
		"empty", res.Empty,
		"kept_oversized", res.KeptOversized,
	)
	return err
}

// Refresh scrapes, then reconciles a single destination. It backs the chat
// command that asks for events on demand.
func (w *Worker) Refresh(ctx context.Context, destinationID string) (notify.Result, error) {
	var res notify.Result
	if err := w.logged(ctx, JobScrape, w.scrape); err != nil {
		return res, err
	}

	topics, err := w.repo.DestinationTopics(ctx, destinationID)
	if err != nil {
		return res, fmt.Errorf("error fetching topics: %w", err)
	}

	err = w.logged(ctx, JobNotify, func(ctx context.Context) error {
		defer w.pause(ctx)()

		var err error
		res, err = w.notifier.NotifyDestination(ctx, matsubo.Subscription{DestinationID: destinationID, Topics: topics})
		w.metrics.ObserveNotify(res)
		return err
	})
	return res, err
}

func (w *Worker) pause(ctx context.Context) func() {
	if w.presence == nil {
		return func() {}
	}
	return w.presence.Pause(ctx)
}

// logged runs fn as one run of job. Runs of the same job never overlap.
func (w *Worker) logged(ctx context.Context, job string, fn func(ctx context.Context) error) error {
	lock := w.locks[job]
	if !lock.TryLock() {
		return fmt.Errorf("error starting %s: %w", job, ErrAlreadyRunning)
	}
	defer lock.Unlock()

	return w.run(ctx, job, fn)
}

// run tags the run with an id, then logs and measures it.
func (w *Worker) run(ctx context.Context, job string, fn func(ctx context.Context) error) error {
	ctx = logger.Ctx(ctx, slog.String("job", job), slog.String("run_id", uuid.NewString()))
	slog.InfoContext(ctx, "job started")
	start := time.Now()

	err := fn(ctx)
	elapsed := time.Since(start)
	w.metrics.JobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
	if err != nil {
		w.metrics.JobFailures.WithLabelValues(job).Inc()
		slog.ErrorContext(ctx, "job failed", "duration", elapsed, "error", err)
		return fmt.Errorf("error running %s: %w", job, err)
	}

	slog.InfoContext(ctx, "job finished", "duration", elapsed)
	return nil
}
