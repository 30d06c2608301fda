package notify_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/matsubo/internal/matsubo"
	"github.com/jdholdren/matsubo/internal/notify"
)

func reminders(msgs []notify.Message) []notify.Message {
	var out []notify.Message
	for _, m := range msgs {
		if strings.HasPrefix(m.Content, notify.ReminderPrefix) {
			out = append(out, m)
		}
	}
	return out
}

func TestRemind_OncePerDay(t *testing.T) {
	ctx := context.Background()
	f := setup(t, testEvent("TC1", matsubo.NewDate(2024, 3, 2)))

	res, err := f.reminder.Remind(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)

	res, err = f.reminder.Remind(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unchanged)
	assert.Equal(t, 1, f.transport.Sends)
}

func TestRemind_Content(t *testing.T) {
	ctx := context.Background()
	noLink := testEvent("TC2", matsubo.NewDate(2024, 3, 2))
	noLink.URL = ""
	cancelled := testEvent("TC3", matsubo.NewDate(2024, 3, 2))
	cancelled.Status = "Canceled"
	f := setup(t,
		testEvent("TC1", matsubo.NewDate(2024, 3, 2)),
		noLink,
		cancelled,
		testEvent("TC4", matsubo.NewDate(2024, 3, 3)),
	)

	_, err := f.reminder.Remind(ctx)
	require.NoError(t, err)

	msgs := reminders(f.transport.Messages(dest))
	require.Len(t, msgs, 1)
	assert.Equal(t, "⏰ **Reminder** for Mar 1st (金), 2024\n"+
		"2 events happening tomorrow:\n"+
		"• **Event TC1** [TC1] Mar 2nd (土), 2024 <https://tokyocheapo.com/events/TC1>\n"+
		"• **Event TC2** [TC2] Mar 2nd (土), 2024", msgs[0].Content)
	assert.Nil(t, msgs[0].Embed)
}

func TestRemind_LinksToPost(t *testing.T) {
	ctx := context.Background()
	f := setup(t, testEvent("TC1", matsubo.NewDate(2024, 3, 2)))

	_, err := f.notifier.Notify(ctx)
	require.NoError(t, err)
	post := f.transport.Messages(dest)[0]

	_, err = f.reminder.Remind(ctx)
	require.NoError(t, err)

	msgs := reminders(f.transport.Messages(dest))
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "<"+post.Handle.Link+">")
	assert.NotContains(t, msgs[0].Content, "tokyocheapo.com")
}

func TestRemind_NothingHappening(t *testing.T) {
	ctx := context.Background()
	cancelled := testEvent("TC1", matsubo.NewDate(2024, 3, 2))
	cancelled.Status = "cancelled"
	f := setup(t, cancelled, testEvent("TC2", matsubo.NewDate(2024, 3, 1)))

	res, err := f.reminder.Remind(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Empty)
	assert.Equal(t, 0, f.transport.Sends)
}

func TestRemind_ReplacesChangedReminder(t *testing.T) {
	ctx := context.Background()
	f := setup(t, testEvent("TC1", matsubo.NewDate(2024, 3, 2)))

	_, err := f.reminder.Remind(ctx)
	require.NoError(t, err)
	old := reminders(f.transport.Messages(dest))[0]

	require.NoError(t, f.repo.UpsertEvents(ctx, []matsubo.Event{testEvent("TC2", matsubo.NewDate(2024, 3, 2))}))

	res, err := f.reminder.Remind(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Replaced)
	assert.Equal(t, 2, f.transport.Sends)
	assert.Equal(t, 1, f.transport.Deletes)

	msgs := reminders(f.transport.Messages(dest))
	require.Len(t, msgs, 1)
	assert.NotEqual(t, old.Handle, msgs[0].Handle)
	assert.Contains(t, msgs[0].Content, "2 events happening tomorrow")
}

func TestRemind_OversizedReplacementKeepsOld(t *testing.T) {
	ctx := context.Background()
	f := setup(t, testEvent("TC1", matsubo.NewDate(2024, 3, 2)))

	_, err := f.reminder.Remind(ctx)
	require.NoError(t, err)
	old := reminders(f.transport.Messages(dest))[0]

	f.transport.MaxContent = len(old.Content)
	require.NoError(t, f.repo.UpsertEvents(ctx, []matsubo.Event{testEvent("TC2", matsubo.NewDate(2024, 3, 2))}))

	res, err := f.reminder.Remind(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.KeptOversized)
	assert.Equal(t, 0, f.transport.Deletes)

	msgs := reminders(f.transport.Messages(dest))
	require.Len(t, msgs, 1)
	assert.Equal(t, old.Handle, msgs[0].Handle)
}

func TestRemind_YesterdaysReminderDoesNotCount(t *testing.T) {
	ctx := context.Background()
	f := setup(t, testEvent("TC1", matsubo.NewDate(2024, 3, 2)))

	f.transport.Seed(dest, notify.Message{
		Content: notify.TodayPrefix(matsubo.NewDate(2024, 2, 29)) + "\n1 event happening tomorrow:",
		Own:     true,
	})

	res, err := f.reminder.Remind(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 0, f.transport.Deletes)
	assert.Len(t, reminders(f.transport.Messages(dest)), 2)
}

func TestRemind_OnlyNewestReminderIsConsidered(t *testing.T) {
	ctx := context.Background()
	f := setup(t, testEvent("TC1", matsubo.NewDate(2024, 3, 2)))

	_, err := f.reminder.Remind(ctx)
	require.NoError(t, err)

	// An older day's reminder somehow ends up newer in history.
	f.transport.Seed(dest, notify.Message{
		Content: notify.TodayPrefix(matsubo.NewDate(2024, 2, 29)),
		Own:     true,
	})

	res, err := f.reminder.Remind(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 2, f.transport.Sends)
}
