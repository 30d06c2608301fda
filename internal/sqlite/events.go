package sqlite

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/jdholdren/matsubo/internal/matsubo"
)

// Events lists events matching every filter that is set, ordered by when they
// start.
func (r Repo) Events(ctx context.Context, args matsubo.EventsArgs) ([]matsubo.Event, error) {
	q := sq.Select("*").From("events")
	if len(args.Topics) > 0 {
		q = q.Where(sq.Eq{"visibility": args.Topics})
	}
	if args.From != nil {
		q = q.Where(sq.GtOrEq{"date_start": *args.From})
	}
	if args.Until != nil {
		q = q.Where(sq.LtOrEq{"date_end": *args.Until})
	}
	q = q.OrderBy("date_start", "time_start", "id")

	query, qArgs, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	events := []matsubo.Event{}
	if err := r.db.SelectContext(ctx, &events, query, qArgs...); err != nil {
		return nil, fmt.Errorf("error fetching events: %w", err)
	}

	return events, nil
}

// UpsertEvents writes each event on its own. A conflicting row gets every
// column replaced except date_added.
func (r Repo) UpsertEvents(ctx context.Context, events []matsubo.Event) error {
	const q = `INSERT INTO events (
		id, name, description, url, image_url,
		date_start, date_end, date_fuzzy, time_start, time_end,
		location, cost, status, other, visibility, source
	) VALUES (
		:id, :name, :description, :url, :image_url,
		:date_start, :date_end, :date_fuzzy, :time_start, :time_end,
		:location, :cost, :status, :other, :visibility, :source
	)
	ON CONFLICT (id, date_start, visibility) DO UPDATE SET
		name = excluded.name,
		description = excluded.description,
		url = excluded.url,
		image_url = excluded.image_url,
		date_end = excluded.date_end,
		date_fuzzy = excluded.date_fuzzy,
		time_start = excluded.time_start,
		time_end = excluded.time_end,
		location = excluded.location,
		cost = excluded.cost,
		status = excluded.status,
		other = excluded.other,
		source = excluded.source;`

	for _, e := range events {
		if e.DateStart.IsZero() {
			return fmt.Errorf("event %s has no start date", e.ID)
		}
		if e.DateEnd.IsZero() {
			e.DateEnd = e.DateStart
		}
		if _, err := r.db.NamedExecContext(ctx, q, e); err != nil {
			return fmt.Errorf("error upserting event %s: %w", e.ID, err)
		}
	}

	return nil
}
