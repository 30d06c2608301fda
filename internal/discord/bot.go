package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sethvargo/go-retry"

	"github.com/jdholdren/matsubo/internal/logger"
)

// Intents the bot needs to read commands in guild channels and DMs.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

// Open connects to the gateway, retrying until ctx is done. The returned
// session must be closed by the caller.
func Open(ctx context.Context, token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}
	s.Identify.Intents = Intents
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		slog.InfoContext(ctx, "Hello peeps! Matsubo is online ⚡", "user", r.User.Username, "guilds", len(r.Guilds))
	})

	err = retry.Fibonacci(ctx, 1*time.Second, func(ctx context.Context) error {
		if err := s.Open(); err != nil {
			slog.WarnContext(ctx, "error connecting to discord, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error opening session: %w", err)
	}

	return s, nil
}

// BotID reads the bot's own user id off the session state.
func BotID(s *discordgo.Session) func() string {
	return func() string {
		s.State.RLock()
		defer s.State.RUnlock()
		if s.State.User == nil {
			return ""
		}
		return s.State.User.ID
	}
}

// StatusUpdater is the part of [discordgo.Session] presence uses.
type StatusUpdater interface {
	UpdateStatusComplex(usd discordgo.UpdateStatusData) error
}

// Presence sets the bot's activity. The bot always shows as idle.
type Presence struct {
	session StatusUpdater
}

func NewPresence(session StatusUpdater) Presence {
	return Presence{session: session}
}

func (p Presence) SetPlaying(_ context.Context, name string) error {
	return p.set(discordgo.ActivityTypeGame, name)
}

func (p Presence) SetListening(_ context.Context, name string) error {
	return p.set(discordgo.ActivityTypeListening, name)
}

func (p Presence) set(typ discordgo.ActivityType, name string) error {
	return p.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status:     string(discordgo.StatusIdle),
		Activities: []*discordgo.Activity{{Name: name, Type: typ}},
	})
}

type (
	// Commands answers chat commands.
	Commands interface {
		Handle(ctx context.Context, destinationID, text string) (reply string, handled bool)
	}

	// Replier sends the answer back.
	Replier interface {
		ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	}
)

// CommandHandler returns a MessageCreate handler answering commands in the
// channel they were typed in. Messages by bots are ignored.
func CommandHandler(ctx context.Context, cmds Commands, replier Replier) func(*discordgo.Session, *discordgo.MessageCreate) {
	return func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}

		ctx := logger.Ctx(ctx, slog.String("author", m.Author.ID))
		reply, handled := cmds.Handle(ctx, m.ChannelID, m.Content)
		if !handled || reply == "" {
			return
		}
		if _, err := replier.ChannelMessageSend(m.ChannelID, reply, discordgo.WithContext(ctx)); err != nil {
			slog.ErrorContext(ctx, "error replying to command", "channel", m.ChannelID, "error", err)
		}
	}
}
