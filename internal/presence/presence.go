// Package presence cycles the bot's status line while it is idle.
package presence

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// IdleActivity is shown whenever the cycle is paused or stopped.
const IdleActivity = "Internet"

// DefaultInterval is how long each status stays up.
const DefaultInterval = 10 * time.Second

// Setter changes what the bot appears to be doing.
type Setter interface {
	SetPlaying(ctx context.Context, name string) error
	SetListening(ctx context.Context, name string) error
}

// Statuses are the lines the cycle goes through.
func Statuses() []string {
	out := make([]string, 0, 9)
	for i := 1; i < 10; i++ {
		sleepy := ""
		if i%2 == 1 {
			sleepy = "💤"
		}
		out = append(out, strings.TrimSpace(fmt.Sprintf("Counting 🐑... %d %s", i, sleepy)))
	}
	return out
}

// Cycler rotates through Statuses until stopped. Jobs pause it while they
// post so the status reflects work in progress.
type Cycler struct {
	setter   Setter
	interval time.Duration
	statuses []string

	mu     sync.Mutex
	next   int
	paused int
}

func NewCycler(setter Setter, interval time.Duration) *Cycler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Cycler{
		setter:   setter,
		interval: interval,
		statuses: Statuses(),
	}
}

// Run blocks until ctx is done, then leaves the idle activity up.
func (c *Cycler) Run(ctx context.Context) error {
	t := time.NewTicker(c.interval)
	defer t.Stop()

	c.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.idle(context.WithoutCancel(ctx))
			c.mu.Unlock()
			return nil
		case <-t.C:
			c.tick(ctx)
		}
	}
}

// tick holds mu across the call so a Pause cannot slip its idle activity
// in underneath a status that is still being set.
func (c *Cycler) tick(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused > 0 {
		return
	}
	status := c.statuses[c.next]
	c.next = (c.next + 1) % len(c.statuses)

	if err := c.setter.SetPlaying(ctx, status); err != nil {
		slog.WarnContext(ctx, "error setting presence", "error", err)
	}
}

// idle must be called with mu held.
func (c *Cycler) idle(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.setter.SetListening(ctx, IdleActivity); err != nil {
		slog.WarnContext(ctx, "error setting presence", "error", err)
	}
}

// Pause stops the cycle until the returned func is called. Pauses nest, and
// the cycle picks up again once every one of them has resumed.
func (c *Cycler) Pause(ctx context.Context) (resume func()) {
	c.mu.Lock()
	c.paused++
	if c.paused == 1 {
		c.idle(ctx)
	}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.paused--
			c.mu.Unlock()
		})
	}
}
