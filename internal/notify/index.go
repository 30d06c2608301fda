package notify

import (
	"iter"
	"strings"
)

// ReminderPrefix starts every reminder the bot sends.
const ReminderPrefix = "⏰ **Reminder**"

// Index is what a bounded scan of one destination's history found: the
// event posts by event id and the most recent reminder. It is rebuilt on
// every run and never cached.
type Index struct {
	posts    map[string][]Message
	reminder *Message
	scanned  int
}

// BuildIndex consumes history, stopping after limit messages. Only messages
// the bot authored are considered.
func BuildIndex(history iter.Seq2[Message, error], limit int) (*Index, error) {
	idx := &Index{posts: map[string][]Message{}}
	for msg, err := range history {
		if err != nil {
			return nil, err
		}
		if limit > 0 && idx.scanned >= limit {
			break
		}
		idx.scanned++
		if !msg.Own {
			continue
		}

		if idx.reminder == nil && strings.HasPrefix(msg.Content, ReminderPrefix) {
			m := msg
			idx.reminder = &m
			continue
		}

		if _, ok := msg.Embed.Field(FieldDate); !ok {
			continue
		}
		id, ok := msg.Embed.EventID()
		if !ok {
			continue
		}
		idx.posts[id] = append(idx.posts[id], msg)
	}

	return idx, nil
}

// Scanned is the number of messages looked at.
func (x *Index) Scanned() int {
	return x.scanned
}

// Lookup finds the newest post of event id whose date field reads dateText.
// A post of the same event under a different date does not match.
func (x *Index) Lookup(id, dateText string) (Message, bool) {
	for _, msg := range x.posts[id] {
		if v, _ := msg.Embed.Field(FieldDate); v == dateText {
			return msg, true
		}
	}
	return Message{}, false
}

// Link is the jump link to the post of event id, preferring one showing
// dateText and otherwise the newest post of that id.
func (x *Index) Link(id, dateText string) string {
	if msg, ok := x.Lookup(id, dateText); ok && msg.Handle.Link != "" {
		return msg.Handle.Link
	}
	for _, msg := range x.posts[id] {
		if msg.Handle.Link != "" {
			return msg.Handle.Link
		}
	}
	return ""
}

// LatestReminder is the newest reminder seen, from whatever day.
func (x *Index) LatestReminder() (Message, bool) {
	if x.reminder == nil {
		return Message{}, false
	}
	return *x.reminder, true
}
