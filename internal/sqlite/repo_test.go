package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/matsubo/internal/matsubo"
	"github.com/jdholdren/matsubo/internal/sqlite"
	"github.com/jdholdren/matsubo/internal/sqlite/sqlitetest"
)

func testEvent(id string, topic matsubo.Topic, start matsubo.Date) matsubo.Event {
	return matsubo.Event{
		ID:         id,
		Name:       "Event " + id,
		URL:        "https://tokyocheapo.com/events/" + id,
		DateStart:  start,
		DateEnd:    start,
		Visibility: topic,
		Source:     matsubo.SourceTokyoCheapo,
	}
}

func TestUpsertEvents_PreservesDateAdded(t *testing.T) {
	ctx := context.Background()
	dbx := sqlitetest.New(t)
	repo := sqlite.New(dbx)

	e := testEvent("TC1", matsubo.TopicKanto, matsubo.NewDate(2024, 3, 1))
	require.NoError(t, repo.UpsertEvents(ctx, []matsubo.Event{e}))

	// Pin the first insert to a known time so a change would be visible.
	added := time.Date(2023, 12, 1, 10, 0, 0, 0, time.UTC)
	_, err := dbx.ExecContext(ctx, `UPDATE events SET date_added = ? WHERE id = ?;`, added.Format("2006-01-02 15:04:05"), e.ID)
	require.NoError(t, err)

	e.Name = "Renamed"
	e.TimeStart = &matsubo.Clock{Hour: 19, Minute: 30, Offset: 9 * 60 * 60}
	require.NoError(t, repo.UpsertEvents(ctx, []matsubo.Event{e}))

	events, err := repo.Events(ctx, matsubo.EventsArgs{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Renamed", events[0].Name)
	assert.True(t, added.Equal(events[0].DateAdded), "date_added changed to %s", events[0].DateAdded)
	require.NotNil(t, events[0].TimeStart)
	assert.Equal(t, *e.TimeStart, *events[0].TimeStart)
	assert.Nil(t, events[0].TimeEnd)
}

func TestUpsertEvents_DistinctRows(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.New(sqlitetest.New(t))

	require.NoError(t, repo.UpsertEvents(ctx, []matsubo.Event{
		testEvent("JC1", matsubo.TopicKansai, matsubo.NewDate(2024, 3, 1)),
		// Cross-listed under a second topic
		testEvent("JC1", matsubo.TopicChubu, matsubo.NewDate(2024, 3, 1)),
		// Recurring instance on another date
		testEvent("JC1", matsubo.TopicKansai, matsubo.NewDate(2024, 3, 8)),
	}))

	events, err := repo.Events(ctx, matsubo.EventsArgs{})
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestUpsertEvents_DefaultsEndDate(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.New(sqlitetest.New(t))

	e := testEvent("TC2", matsubo.TopicKanto, matsubo.NewDate(2024, 3, 1))
	e.DateEnd = matsubo.Date{}
	require.NoError(t, repo.UpsertEvents(ctx, []matsubo.Event{e}))

	events, err := repo.Events(ctx, matsubo.EventsArgs{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, e.DateStart, events[0].DateEnd)

	err = repo.UpsertEvents(ctx, []matsubo.Event{{ID: "TC3", Visibility: matsubo.TopicKanto}})
	assert.Error(t, err)
}

func TestEvents_Filters(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.New(sqlitetest.New(t))

	long := testEvent("TC4", matsubo.TopicKanto, matsubo.NewDate(2024, 3, 5))
	long.DateEnd = matsubo.NewDate(2024, 3, 20)
	require.NoError(t, repo.UpsertEvents(ctx, []matsubo.Event{
		testEvent("TC1", matsubo.TopicKanto, matsubo.NewDate(2024, 3, 2)),
		testEvent("TC2", matsubo.TopicKanto, matsubo.NewDate(2024, 3, 1)),
		testEvent("JC3", matsubo.TopicKansai, matsubo.NewDate(2024, 3, 3)),
		long,
	}))

	from, until := matsubo.NewDate(2024, 3, 2), matsubo.NewDate(2024, 3, 9)

	tests := []struct {
		name string
		args matsubo.EventsArgs
		want []string
	}{
		{
			name: "all, ordered by start",
			args: matsubo.EventsArgs{},
			want: []string{"TC2", "TC1", "JC3", "TC4"},
		},
		{
			name: "topic",
			args: matsubo.EventsArgs{Topics: []matsubo.Topic{matsubo.TopicKansai}},
			want: []string{"JC3"},
		},
		{
			name: "several topics",
			args: matsubo.EventsArgs{Topics: []matsubo.Topic{matsubo.TopicKansai, matsubo.TopicKanto}},
			want: []string{"TC2", "TC1", "JC3", "TC4"},
		},
		{
			name: "from",
			args: matsubo.EventsArgs{From: &from},
			want: []string{"TC1", "JC3", "TC4"},
		},
		{
			name: "window excludes events ending after it",
			args: matsubo.EventsArgs{From: &from, Until: &until},
			want: []string{"TC1", "JC3"},
		},
		{
			name: "single day",
			args: matsubo.EventsArgs{Topics: []matsubo.Topic{matsubo.TopicKanto}, From: &from, Until: &from},
			want: []string{"TC1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := repo.Events(ctx, tt.args)
			require.NoError(t, err)

			got := make([]string, 0, len(events))
			for _, e := range events {
				got = append(got, e.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDestinationTopics(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.New(sqlitetest.New(t))

	topics, err := repo.DestinationTopics(ctx, "chan-1")
	require.NoError(t, err)
	assert.Empty(t, topics)

	require.NoError(t, repo.SetDestinationTopics(ctx, "chan-1", []matsubo.Topic{matsubo.TopicKanto, matsubo.TopicKansai, matsubo.TopicKanto}))
	require.NoError(t, repo.SetDestinationTopics(ctx, "chan-2", []matsubo.Topic{matsubo.TopicOkinawa}))

	topics, err = repo.DestinationTopics(ctx, "chan-1")
	require.NoError(t, err)
	assert.Equal(t, []matsubo.Topic{matsubo.TopicKansai, matsubo.TopicKanto}, topics)

	subs, err := repo.AllSubscriptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []matsubo.Subscription{
		{DestinationID: "chan-1", Topics: []matsubo.Topic{matsubo.TopicKansai, matsubo.TopicKanto}},
		{DestinationID: "chan-2", Topics: []matsubo.Topic{matsubo.TopicOkinawa}},
	}, subs)

	// Replacing narrows the set
	require.NoError(t, repo.SetDestinationTopics(ctx, "chan-1", []matsubo.Topic{matsubo.TopicKanto}))
	topics, err = repo.DestinationTopics(ctx, "chan-1")
	require.NoError(t, err)
	assert.Equal(t, []matsubo.Topic{matsubo.TopicKanto}, topics)

	// An empty set removes the destination
	require.NoError(t, repo.SetDestinationTopics(ctx, "chan-1", nil))
	subs, err = repo.AllSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "chan-2", subs[0].DestinationID)

	require.NoError(t, repo.RemoveDestination(ctx, "chan-2"))
	subs, err = repo.AllSubscriptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)
}
