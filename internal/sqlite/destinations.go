package sqlite

import (
	"context"
	"fmt"

	"github.com/jdholdren/matsubo/internal/matsubo"
)

func (r Repo) DestinationTopics(ctx context.Context, destinationID string) ([]matsubo.Topic, error) {
	const q = `SELECT topic FROM destination_topics WHERE destination_id = ? ORDER BY topic;`

	topics := []matsubo.Topic{}
	if err := r.db.SelectContext(ctx, &topics, q, destinationID); err != nil {
		return nil, fmt.Errorf("error fetching destination topics: %w", err)
	}

	return topics, nil
}

// SetDestinationTopics replaces the whole topic set in one transaction. An
// empty set unsubscribes the destination entirely.
func (r Repo) SetDestinationTopics(ctx context.Context, destinationID string, topics []matsubo.Topic) error {
	topics = matsubo.NormalizeTopics(topics)
	if len(topics) == 0 {
		return r.RemoveDestination(ctx, destinationID)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM destination_topics WHERE destination_id = ?;`, destinationID); err != nil {
		return fmt.Errorf("error clearing destination topics: %w", err)
	}
	for _, t := range topics {
		const q = `INSERT INTO destination_topics (destination_id, topic) VALUES (?, ?);`
		if _, err := tx.ExecContext(ctx, q, destinationID, t); err != nil {
			return fmt.Errorf("error inserting destination topic: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing destination topics: %w", err)
	}

	return nil
}

func (r Repo) RemoveDestination(ctx context.Context, destinationID string) error {
	const q = `DELETE FROM destination_topics WHERE destination_id = ?;`

	if _, err := r.db.ExecContext(ctx, q, destinationID); err != nil {
		return fmt.Errorf("error removing destination: %w", err)
	}

	return nil
}

// AllSubscriptions returns every destination with at least one topic, sorted
// by destination id.
func (r Repo) AllSubscriptions(ctx context.Context) ([]matsubo.Subscription, error) {
	const q = `SELECT destination_id, topic FROM destination_topics ORDER BY destination_id, topic;`

	var rows []struct {
		DestinationID string        `db:"destination_id"`
		Topic         matsubo.Topic `db:"topic"`
	}
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("error selecting subscriptions: %w", err)
	}

	subs := []matsubo.Subscription{}
	for _, row := range rows {
		if n := len(subs); n > 0 && subs[n-1].DestinationID == row.DestinationID {
			subs[n-1].Topics = append(subs[n-1].Topics, row.Topic)
			continue
		}
		subs = append(subs, matsubo.Subscription{
			DestinationID: row.DestinationID,
			Topics:        []matsubo.Topic{row.Topic},
		})
	}

	return subs, nil
}
