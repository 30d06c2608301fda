// Package matsubo holds the domain types shared by the scraper, the store and
// the notification engines.
package matsubo

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("resource not found")
)

type (
	// Repository is the durable store for events and destination subscriptions.
	Repository interface {
		Events(ctx context.Context, args EventsArgs) ([]Event, error)
		// UpsertEvents inserts or updates each event independently.
		// The original date_added of a row is never overwritten.
		UpsertEvents(ctx context.Context, events []Event) error

		DestinationTopics(ctx context.Context, destinationID string) ([]Topic, error)
		// SetDestinationTopics replaces the topic set of a destination. An empty
		// set removes the destination.
		SetDestinationTopics(ctx context.Context, destinationID string, topics []Topic) error
		RemoveDestination(ctx context.Context, destinationID string) error
		AllSubscriptions(ctx context.Context) ([]Subscription, error)
	}

	// EventsArgs holds the optional filters for listing events.
	EventsArgs struct {
		Topics []Topic
		From   *Date // date_start >= From
		Until  *Date // date_end <= Until
	}

	// Subscription maps a destination to the topics it receives.
	Subscription struct {
		DestinationID string
		Topics        []Topic
	}
)

// Today returns the calendar date of now in loc.
func Today(now time.Time, loc *time.Location) Date {
	return DateOf(now.In(loc))
}
