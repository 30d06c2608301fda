package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jdholdren/matsubo/internal/logger"
	"github.com/jdholdren/matsubo/internal/matsubo"
)

// RemindResult counts what a remind run did.
type RemindResult struct {
	Destinations       int
	FailedDestinations int

	Sent      int
	Replaced  int
	Unchanged int
	// Empty destinations had nothing happening on the day.
	Empty int
	// KeptOversized reminders could not be replaced because the new one was
	// rejected as too large.
	KeptOversized int
}

func (r *RemindResult) add(o RemindResult) {
	r.Destinations += o.Destinations
	r.FailedDestinations += o.FailedDestinations
	r.Sent += o.Sent
	r.Replaced += o.Replaced
	r.Unchanged += o.Unchanged
	r.Empty += o.Empty
	r.KeptOversized += o.KeptOversized
}

// Reminder sends one message a day per destination listing what is coming
// up, and keeps that message current.
type Reminder struct {
	repo      matsubo.Repository
	transport Transport
	cfg       Config
}

func NewReminder(repo matsubo.Repository, transport Transport, cfg Config) *Reminder {
	return &Reminder{repo: repo, transport: transport, cfg: cfg}
}

// TodayPrefix is how a reminder sent on today begins.
func TodayPrefix(today matsubo.Date) string {
	return fmt.Sprintf("%s for %s", ReminderPrefix, matsubo.FormatDate(today))
}

// Remind runs every subscribed destination.
func (r *Reminder) Remind(ctx context.Context) (RemindResult, error) {
	subs, err := r.repo.AllSubscriptions(ctx)
	if err != nil {
		return RemindResult{}, err
	}

	var total RemindResult
	for _, sub := range subs {
		res, err := r.RemindDestination(ctx, sub)
		total.add(res)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return total, ctxErr
		}
		if err != nil {
			total.FailedDestinations++
			slog.ErrorContext(ctx, "error reminding destination", "destination", sub.DestinationID, "error", err)
		}
	}

	return total, nil
}

// RemindDestination sends, replaces or leaves today's reminder of one
// destination.
//
// Only the newest reminder in history is looked at. If it is from an earlier
// day, today's has not been sent yet.
func (r *Reminder) RemindDestination(ctx context.Context, sub matsubo.Subscription) (RemindResult, error) {
	ctx = logger.Ctx(ctx, slog.String("destination", sub.DestinationID))
	res := RemindResult{Destinations: 1}

	today := r.cfg.today()
	day := today.AddDays(r.cfg.RemindBeforeDays)
	events, err := r.repo.Events(ctx, matsubo.EventsArgs{
		Topics: sub.Topics,
		From:   &day,
		Until:  &day,
	})
	if err != nil {
		return res, err
	}
	events = matsubo.Merge(events, matsubo.SameIDAndDate, matsubo.KeepFirst)
	happening := events[:0]
	for _, e := range events {
		if !e.Cancelled() {
			happening = append(happening, e)
		}
	}
	if len(happening) == 0 {
		res.Empty++
		return res, nil
	}

	idx, err := BuildIndex(r.transport.History(ctx, sub.DestinationID, r.cfg.ScanDepth), r.cfg.ScanDepth)
	if err != nil {
		return res, &TransportError{Op: "history", Destination: sub.DestinationID, Err: err}
	}

	content := r.compose(today, day, happening, idx)
	prev, ok := idx.LatestReminder()
	if !ok || !strings.HasPrefix(prev.Content, TodayPrefix(today)) {
		if _, err := r.transport.Send(ctx, sub.DestinationID, content, nil); err != nil {
			return res, &TransportError{Op: "send", Destination: sub.DestinationID, Err: err}
		}
		res.Sent++
		slog.InfoContext(ctx, "sent reminder", "events", len(happening))
		return res, nil
	}

	if prev.Content == content {
		res.Unchanged++
		return res, nil
	}

	// Send the replacement before deleting, so a reminder is always visible.
	if _, err := r.transport.Send(ctx, sub.DestinationID, content, nil); err != nil {
		if errors.Is(err, ErrTooLarge) {
			res.KeptOversized++
			slog.WarnContext(ctx, "replacement reminder too large, keeping the old one", "events", len(happening))
			return res, nil
		}
		return res, &TransportError{Op: "send", Destination: sub.DestinationID, Err: err}
	}
	res.Replaced++

	p := pacer{delay: r.cfg.SendDelay, started: true}
	if err := p.wait(ctx); err != nil {
		return res, err
	}
	if err := r.transport.Delete(ctx, prev.Handle); err != nil {
		slog.WarnContext(ctx, "error deleting replaced reminder",
			"error", &TransportError{Op: "delete", Destination: sub.DestinationID, Err: err})
	}
	slog.InfoContext(ctx, "replaced reminder", "events", len(happening))

	return res, nil
}

func (r *Reminder) compose(today, day matsubo.Date, events []matsubo.Event, idx *Index) string {
	var b strings.Builder
	b.WriteString(TodayPrefix(today))
	b.WriteString("\n")

	noun := "events"
	if len(events) == 1 {
		noun = "event"
	}
	switch r.cfg.RemindBeforeDays {
	case 0:
		fmt.Fprintf(&b, "%d %s happening today:\n", len(events), noun)
	case 1:
		fmt.Fprintf(&b, "%d %s happening tomorrow:\n", len(events), noun)
	default:
		fmt.Fprintf(&b, "%d %s happening on %s:\n", len(events), noun, matsubo.FormatDate(day))
	}

	for _, e := range events {
		dateText := e.DateRange()
		fmt.Fprintf(&b, "• **%s** [%s] %s", e.Name, e.ID, dateText)

		link := idx.Link(e.ID, orEmpty(dateText))
		if link == "" {
			link = e.URL
		}
		if link != "" {
			fmt.Fprintf(&b, " <%s>", link)
		}
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}
