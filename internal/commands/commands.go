// Package commands is the chat surface of the bot: destinations manage their
// own subscriptions by typing prefixed commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/jdholdren/matsubo/internal/logger"
	"github.com/jdholdren/matsubo/internal/matsubo"
	"github.com/jdholdren/matsubo/internal/notify"
	"github.com/jdholdren/matsubo/internal/worker"
)

// DefaultPrefix starts every command.
const DefaultPrefix = "."

type (
	// Refresher scrapes and posts to one destination on demand.
	Refresher interface {
		Refresh(ctx context.Context, destinationID string) (notify.Result, error)
	}

	// Service dispatches command text.
	Service struct {
		prefix  string
		repo    matsubo.Repository
		jobs    Refresher
		latency func() time.Duration

		commands map[string]command
	}

	command struct {
		usage string
		help  string
		run   func(ctx context.Context, destinationID string, args []string) (string, error)
	}
)

// NewService builds the command table. latency reports the round trip to the
// chat service for ping.
func NewService(prefix string, repo matsubo.Repository, jobs Refresher, latency func() time.Duration) *Service {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	s := &Service{
		prefix:  prefix,
		repo:    repo,
		jobs:    jobs,
		latency: latency,
	}
	s.commands = map[string]command{
		"subscribe": {
			usage: "subscribe <topics...>",
			help:  "Follow events of the given topics, or `all` of them",
			run:   s.subscribe,
		},
		"unsubscribe": {
			usage: "unsubscribe [topics...]",
			help:  "Stop following the given topics, or everything when none are given",
			run:   s.unsubscribe,
		},
		"topics": {
			usage: "topics",
			help:  "Show the topics this channel follows",
			run:   s.topics,
		},
		"events": {
			usage: "events",
			help:  "Look for new events right now",
			run:   s.events,
		},
		"ping": {
			usage: "ping",
			help:  "Check that I'm still awake",
			run:   s.ping,
		},
		"help": {
			usage: "help [command]",
			help:  "Show this help",
			run:   s.help,
		},
	}

	return s
}

// Handle runs the command in text, if it is one. handled is false when the
// text is not addressed to the bot at all.
func (s *Service) Handle(ctx context.Context, destinationID, text string) (reply string, handled bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, s.prefix) {
		return "", false
	}
	fields := splitArgs(strings.TrimPrefix(text, s.prefix))
	if len(fields) == 0 {
		return "", false
	}

	name := strings.ToLower(fields[0])
	ctx = logger.Ctx(ctx, slog.String("destination", destinationID), slog.String("command", name))

	cmd, ok := s.commands[name]
	if !ok {
		return fmt.Sprintf("I don't know this command... sorry 🙈\nType:\n   - `%shelp` for general help\n   - `%shelp <COMMAND>` to get specific help for this command", s.prefix, s.prefix), true
	}

	reply, err := cmd.run(ctx, destinationID, fields[1:])
	switch {
	case errors.Is(err, errMissingArgs):
		return fmt.Sprintf("You forgot to specify a few arguments.\nType: `%shelp %s` to see the required arguments.", s.prefix, name), true
	case errors.Is(err, worker.ErrAlreadyRunning):
		return "I'm already looking for events, give me a moment ⏳", true
	case err != nil:
		slog.ErrorContext(ctx, "error running command", "error", err)
		return fmt.Sprintf("Something went wrong... 🙈\n   - Type `%shelp` for general help\n   - Tag the admins with `@Admin` to ask for their help!", s.prefix), true
	}

	slog.InfoContext(ctx, "ran command")
	return reply, true
}

var errMissingArgs = errors.New("missing arguments")

func splitArgs(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
}

func (s *Service) subscribe(ctx context.Context, destinationID string, args []string) (string, error) {
	if len(args) == 0 {
		return "", errMissingArgs
	}
	topics, invalid := matsubo.ParseTopics(args)
	if len(topics) == 0 {
		return unknownTopics(invalid), nil
	}

	current, err := s.repo.DestinationTopics(ctx, destinationID)
	if err != nil {
		return "", fmt.Errorf("error fetching topics: %w", err)
	}
	next := matsubo.NormalizeTopics(append(current, topics...))
	if err := s.repo.SetDestinationTopics(ctx, destinationID, next); err != nil {
		return "", fmt.Errorf("error saving topics: %w", err)
	}

	reply := fmt.Sprintf("Subscribed to %s ✅\nThis channel now follows: %s", matsubo.JoinTopics(topics), matsubo.JoinTopics(next))
	if len(invalid) > 0 {
		reply += fmt.Sprintf("\nIgnored what I don't know: %s", strings.Join(invalid, ", "))
	}
	return reply, nil
}

func (s *Service) unsubscribe(ctx context.Context, destinationID string, args []string) (string, error) {
	if len(args) == 0 {
		if err := s.repo.RemoveDestination(ctx, destinationID); err != nil {
			return "", fmt.Errorf("error removing destination: %w", err)
		}
		return "Unsubscribed from everything 👋", nil
	}

	topics, invalid := matsubo.ParseTopics(args)
	if len(topics) == 0 {
		return unknownTopics(invalid), nil
	}

	current, err := s.repo.DestinationTopics(ctx, destinationID)
	if err != nil {
		return "", fmt.Errorf("error fetching topics: %w", err)
	}
	next := slices.DeleteFunc(slices.Clone(current), func(t matsubo.Topic) bool {
		return slices.Contains(topics, t)
	})
	if err := s.repo.SetDestinationTopics(ctx, destinationID, next); err != nil {
		return "", fmt.Errorf("error saving topics: %w", err)
	}

	if len(next) == 0 {
		return "Unsubscribed. This channel no longer follows any topics 👋", nil
	}
	return fmt.Sprintf("Unsubscribed from %s\nThis channel now follows: %s", matsubo.JoinTopics(topics), matsubo.JoinTopics(next)), nil
}

func (s *Service) topics(ctx context.Context, destinationID string, _ []string) (string, error) {
	current, err := s.repo.DestinationTopics(ctx, destinationID)
	if err != nil {
		return "", fmt.Errorf("error fetching topics: %w", err)
	}

	if len(current) == 0 {
		return fmt.Sprintf("This channel doesn't follow any topics yet. Try `%ssubscribe %s`\nKnown topics: %s",
			s.prefix, strings.ToLower(string(matsubo.TopicKanto)), matsubo.JoinTopics(matsubo.Topics)), nil
	}
	return fmt.Sprintf("This channel follows: %s", matsubo.JoinTopics(current)), nil
}

func (s *Service) events(ctx context.Context, destinationID string, _ []string) (string, error) {
	current, err := s.repo.DestinationTopics(ctx, destinationID)
	if err != nil {
		return "", fmt.Errorf("error fetching topics: %w", err)
	}
	if len(current) == 0 {
		return fmt.Sprintf("Subscribe to a topic first, e.g. `%ssubscribe kanto`", s.prefix), nil
	}

	res, err := s.jobs.Refresh(ctx, destinationID)
	if err != nil {
		return "", err
	}
	if res.Posted == 0 && res.Edited == 0 {
		return "Nothing new for now 🐑", nil
	}
	return fmt.Sprintf("Posted %d new and updated %d event(s)", res.Posted, res.Edited), nil
}

func (s *Service) ping(context.Context, string, []string) (string, error) {
	var latency time.Duration
	if s.latency != nil {
		latency = s.latency()
	}
	return fmt.Sprintf("pong! [%dms]", latency.Milliseconds()), nil
}

func (s *Service) help(_ context.Context, _ string, args []string) (string, error) {
	if len(args) > 0 {
		name := strings.ToLower(args[0])
		cmd, ok := s.commands[name]
		if !ok {
			return fmt.Sprintf("There is no `%s%s` command 🙈", s.prefix, name), nil
		}
		return fmt.Sprintf("`%s%s`\n%s", s.prefix, cmd.usage, cmd.help), nil
	}

	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	b.WriteString("Here's what I can do:")
	for _, name := range names {
		cmd := s.commands[name]
		fmt.Fprintf(&b, "\n   - `%s%s`: %s", s.prefix, cmd.usage, cmd.help)
	}
	fmt.Fprintf(&b, "\nKnown topics: %s", matsubo.JoinTopics(matsubo.Topics))
	return b.String(), nil
}

func unknownTopics(invalid []string) string {
	return fmt.Sprintf("I don't recognize any of these topics: %s\nKnown topics: %s",
		strings.Join(invalid, ", "), matsubo.JoinTopics(matsubo.Topics))
}
