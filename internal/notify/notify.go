// Package notify keeps destinations in sync with the event store.
//
// There is no table of what was posted where. Each run scans the recent
// history of a destination and matches its own posts back to events by the
// id in the footer and the text of the date field. Whatever falls outside the
// scanned window is treated as never posted.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/jdholdren/matsubo/internal/logger"
	"github.com/jdholdren/matsubo/internal/matsubo"
)

// Config is shared by the Notifier and the Reminder.
type Config struct {
	Branding Branding
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time

	// WindowDays is how far ahead of today events are posted.
	WindowDays int
	// RemindBeforeDays picks the day reminders are about, relative to today.
	RemindBeforeDays int
	// ScanDepth bounds how many history messages are read per destination.
	ScanDepth int
	// SendDelay spaces out sends and edits within a destination.
	SendDelay time.Duration
}

func (c Config) today() matsubo.Date {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return matsubo.Today(now(), loc)
}

// Result counts what a notify run did.
type Result struct {
	Destinations       int
	FailedDestinations int

	Posted           int
	Edited           int
	Unchanged        int
	SkippedCancelled int
	Failed           int
}

func (r *Result) add(o Result) {
	r.Destinations += o.Destinations
	r.FailedDestinations += o.FailedDestinations
	r.Posted += o.Posted
	r.Edited += o.Edited
	r.Unchanged += o.Unchanged
	r.SkippedCancelled += o.SkippedCancelled
	r.Failed += o.Failed
}

// Notifier posts new events and edits posts whose event changed.
type Notifier struct {
	repo      matsubo.Repository
	transport Transport
	cfg       Config
}

func NewNotifier(repo matsubo.Repository, transport Transport, cfg Config) *Notifier {
	return &Notifier{repo: repo, transport: transport, cfg: cfg}
}

// Notify runs every subscribed destination. A destination that fails is
// logged and counted; only a done context stops the run.
func (n *Notifier) Notify(ctx context.Context) (Result, error) {
	subs, err := n.repo.AllSubscriptions(ctx)
	if err != nil {
		return Result{}, err
	}

	var total Result
	for _, sub := range subs {
		res, err := n.NotifyDestination(ctx, sub)
		total.add(res)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return total, ctxErr
		}
		if err != nil {
			total.FailedDestinations++
			slog.ErrorContext(ctx, "error notifying destination", "destination", sub.DestinationID, "error", err)
		}
	}

	return total, nil
}

// NotifyDestination reconciles one destination against the events in its
// topics within the posting window.
func (n *Notifier) NotifyDestination(ctx context.Context, sub matsubo.Subscription) (Result, error) {
	ctx = logger.Ctx(ctx, slog.String("destination", sub.DestinationID))
	res := Result{Destinations: 1}
	if len(sub.Topics) == 0 {
		return res, nil
	}

	from := n.cfg.today()
	until := from.AddDays(n.cfg.WindowDays)
	events, err := n.repo.Events(ctx, matsubo.EventsArgs{
		Topics: sub.Topics,
		From:   &from,
		Until:  &until,
	})
	if err != nil {
		return res, err
	}
	// Cross-listed rows would otherwise be posted once per topic.
	events = matsubo.Merge(events, matsubo.SameIDAndDate, matsubo.KeepFirst)

	idx, err := BuildIndex(n.transport.History(ctx, sub.DestinationID, n.cfg.ScanDepth), n.cfg.ScanDepth)
	if err != nil {
		return res, &TransportError{Op: "history", Destination: sub.DestinationID, Err: err}
	}
	slog.DebugContext(ctx, "scanned history", "messages", idx.Scanned(), "events", len(events))

	p := pacer{delay: n.cfg.SendDelay}
	for _, e := range events {
		embed := n.cfg.Branding.Render(e)
		dateText, _ := embed.Field(FieldDate)

		existing, posted := idx.Lookup(e.ID, dateText)
		switch {
		case posted && existing.Embed.Equal(embed):
			res.Unchanged++

		case posted:
			if err := p.wait(ctx); err != nil {
				return res, err
			}
			if err := n.transport.Edit(ctx, existing.Handle, embed); err != nil {
				res.Failed++
				slog.WarnContext(ctx, "error editing post", "event", e.ID,
					"error", &TransportError{Op: "edit", Destination: sub.DestinationID, Err: err})
				continue
			}
			res.Edited++
			slog.InfoContext(ctx, "edited post", "event", e.ID)

		case e.Cancelled():
			res.SkippedCancelled++

		default:
			if err := p.wait(ctx); err != nil {
				return res, err
			}
			if _, err := n.transport.Send(ctx, sub.DestinationID, "", embed); err != nil {
				res.Failed++
				slog.WarnContext(ctx, "error posting event", "event", e.ID,
					"error", &TransportError{Op: "send", Destination: sub.DestinationID, Err: err})
				continue
			}
			res.Posted++
			slog.InfoContext(ctx, "posted event", "event", e.ID)
		}
	}

	return res, nil
}
