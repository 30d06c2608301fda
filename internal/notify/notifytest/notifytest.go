// Package notifytest is an in-memory notify.Transport for tests.
package notifytest

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jdholdren/matsubo/internal/notify"
)

// Transport keeps every destination's messages in memory, oldest first, and
// counts the operations made against it.
type Transport struct {
	mu       sync.Mutex
	messages map[string][]notify.Message

	Sends   int
	Edits   int
	Deletes int

	// Times holds when each send and edit was made, in order.
	Times []time.Time

	// MaxContent makes sends with longer content fail with notify.ErrTooLarge.
	MaxContent int
	// FailSend, when set, is consulted before every send.
	FailSend func(destinationID, content string, embed *notify.Embed) error
}

func New() *Transport {
	return &Transport{messages: map[string][]notify.Message{}}
}

// Seed appends a message as if it had been sent earlier. It is not counted.
func (t *Transport) Seed(destinationID string, msg notify.Message) notify.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg.Handle = t.handle(destinationID)
	msg.Embed = clone(msg.Embed)
	t.messages[destinationID] = append(t.messages[destinationID], msg)
	return msg
}

// Messages returns a copy of a destination's messages, oldest first.
func (t *Transport) Messages(destinationID string) []notify.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := slices.Clone(t.messages[destinationID])
	for i := range out {
		out[i].Embed = clone(out[i].Embed)
	}
	return out
}

func (t *Transport) Send(_ context.Context, destinationID, content string, embed *notify.Embed) (notify.Handle, error) {
	if t.FailSend != nil {
		if err := t.FailSend(destinationID, content, embed); err != nil {
			return notify.Handle{}, err
		}
	}
	if t.MaxContent > 0 && len(content) > t.MaxContent {
		return notify.Handle{}, notify.ErrTooLarge
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.Sends++
	t.Times = append(t.Times, time.Now())
	msg := notify.Message{
		Handle:  t.handle(destinationID),
		Content: content,
		Embed:   clone(embed),
		Own:     true,
	}
	t.messages[destinationID] = append(t.messages[destinationID], msg)
	return msg.Handle, nil
}

func (t *Transport) Edit(_ context.Context, h notify.Handle, embed *notify.Embed) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	msgs := t.messages[h.DestinationID]
	i := slices.IndexFunc(msgs, func(m notify.Message) bool { return m.Handle.MessageID == h.MessageID })
	if i < 0 {
		return fmt.Errorf("unknown message %s", h.MessageID)
	}
	t.Edits++
	t.Times = append(t.Times, time.Now())
	msgs[i].Embed = clone(embed)
	return nil
}

func (t *Transport) Delete(_ context.Context, h notify.Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	msgs := t.messages[h.DestinationID]
	i := slices.IndexFunc(msgs, func(m notify.Message) bool { return m.Handle.MessageID == h.MessageID })
	if i < 0 {
		return fmt.Errorf("unknown message %s", h.MessageID)
	}
	t.Deletes++
	t.messages[h.DestinationID] = slices.Delete(msgs, i, i+1)
	return nil
}

func (t *Transport) History(_ context.Context, destinationID string, limit int) iter.Seq2[notify.Message, error] {
	msgs := t.Messages(destinationID)
	return func(yield func(notify.Message, error) bool) {
		for i, n := len(msgs)-1, 0; i >= 0; i, n = i-1, n+1 {
			if limit > 0 && n >= limit {
				return
			}
			if !yield(msgs[i], nil) {
				return
			}
		}
	}
}

func (t *Transport) handle(destinationID string) notify.Handle {
	id := uuid.NewString()
	return notify.Handle{
		DestinationID: destinationID,
		MessageID:     id,
		Link:          fmt.Sprintf("https://chat.example/%s/%s", destinationID, id),
	}
}

func clone(e *notify.Embed) *notify.Embed {
	if e == nil {
		return nil
	}
	c := *e
	c.Fields = slices.Clone(e.Fields)
	return &c
}

var _ notify.Transport = (*Transport)(nil)
