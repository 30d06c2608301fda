package notify

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"
)

// ErrTooLarge is returned by a Transport that rejected content for its size.
var ErrTooLarge = errors.New("message too large")

type (
	// Handle addresses a message that was sent.
	Handle struct {
		DestinationID string
		MessageID     string
		// Link jumps to the message, when the transport has such a thing.
		Link string
	}

	// Message is one entry of a destination's history.
	Message struct {
		Handle  Handle
		Content string
		Embed   *Embed
		// Own is set for messages this bot authored.
		Own bool
	}

	// Transport is the chat surface messages go out on.
	Transport interface {
		Send(ctx context.Context, destinationID, content string, embed *Embed) (Handle, error)
		Edit(ctx context.Context, h Handle, embed *Embed) error
		Delete(ctx context.Context, h Handle) error
		// History yields at most limit messages, newest first. Every call
		// starts over from the newest message.
		History(ctx context.Context, destinationID string, limit int) iter.Seq2[Message, error]
	}
)

// TransportError is a failed send, edit or delete.
type TransportError struct {
	Op          string
	Destination string
	Err         error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("error during %s to %s: %s", e.Op, e.Destination, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// pacer spaces out outbound operations. The first operation goes out
// immediately.
type pacer struct {
	delay   time.Duration
	started bool
}

func (p *pacer) wait(ctx context.Context) error {
	if !p.started || p.delay <= 0 {
		p.started = true
		return ctx.Err()
	}

	t := time.NewTimer(p.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
