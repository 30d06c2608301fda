// Package discord puts the bot on Discord: channels are destinations, event
// posts are embeds and commands arrive as channel messages.
package discord

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jdholdren/matsubo/internal/notify"
)

const (
	// MaxContentLength is the most characters a message may carry.
	MaxContentLength = 2000
	// historyPageSize is the most messages Discord returns per request.
	historyPageSize = 100
)

// REST is the part of [discordgo.Session] the transport uses.
type REST interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Transport implements [notify.Transport] on Discord channels.
type Transport struct {
	rest  REST
	botID func() string

	// Channel id to guild id, for jump links.
	guilds *lru.Cache[string, string]
}

var _ notify.Transport = (*Transport)(nil)

// NewTransport sends through rest. botID reports the bot's own user id so
// its messages can be told apart from everyone else's.
func NewTransport(rest REST, botID func() string) *Transport {
	guilds, _ := lru.New[string, string](1024)
	return &Transport{rest: rest, botID: botID, guilds: guilds}
}

func (t *Transport) Send(ctx context.Context, channelID, content string, embed *notify.Embed) (notify.Handle, error) {
	if utf8.RuneCountInString(content) > MaxContentLength {
		return notify.Handle{}, fmt.Errorf("%w: %d characters", notify.ErrTooLarge, utf8.RuneCountInString(content))
	}

	data := &discordgo.MessageSend{Content: content}
	if embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{toDiscord(embed)}
	}
	msg, err := t.rest.ChannelMessageSendComplex(channelID, data, discordgo.WithContext(ctx))
	if err != nil {
		return notify.Handle{}, mapErr(err)
	}

	return t.handle(ctx, msg), nil
}

func (t *Transport) Edit(ctx context.Context, h notify.Handle, embed *notify.Embed) error {
	if _, err := t.rest.ChannelMessageEditEmbed(h.DestinationID, h.MessageID, toDiscord(embed), discordgo.WithContext(ctx)); err != nil {
		return mapErr(err)
	}
	return nil
}

func (t *Transport) Delete(ctx context.Context, h notify.Handle) error {
	if err := t.rest.ChannelMessageDelete(h.DestinationID, h.MessageID, discordgo.WithContext(ctx)); err != nil {
		return mapErr(err)
	}
	return nil
}

// History pages backwards through the channel, newest message first.
func (t *Transport) History(ctx context.Context, channelID string, limit int) iter.Seq2[notify.Message, error] {
	return func(yield func(notify.Message, error) bool) {
		var (
			before string
			seen   int
			self   = t.botID()
		)
		for seen < limit {
			page, err := t.rest.ChannelMessages(channelID, min(historyPageSize, limit-seen), before, "", "", discordgo.WithContext(ctx))
			if err != nil {
				yield(notify.Message{}, mapErr(err))
				return
			}
			if len(page) == 0 {
				return
			}

			for _, m := range page {
				msg := notify.Message{
					Handle:  t.handle(ctx, m),
					Content: m.Content,
					Own:     m.Author != nil && m.Author.ID == self,
				}
				if len(m.Embeds) > 0 {
					msg.Embed = fromDiscord(m.Embeds[0])
				}
				if !yield(msg, nil) {
					return
				}
				seen++
			}
			before = page[len(page)-1].ID
		}
	}
}

func (t *Transport) handle(ctx context.Context, m *discordgo.Message) notify.Handle {
	return notify.Handle{
		DestinationID: m.ChannelID,
		MessageID:     m.ID,
		Link:          jumpLink(t.guildID(ctx, m), m.ChannelID, m.ID),
	}
}

// guildID looks up the guild of the message's channel. Messages fetched over
// REST do not carry it.
func (t *Transport) guildID(ctx context.Context, m *discordgo.Message) string {
	if m.GuildID != "" {
		return m.GuildID
	}
	if id, ok := t.guilds.Get(m.ChannelID); ok {
		return id
	}

	ch, err := t.rest.Channel(m.ChannelID, discordgo.WithContext(ctx))
	if err != nil {
		return ""
	}
	t.guilds.Add(m.ChannelID, ch.GuildID)
	return ch.GuildID
}

func jumpLink(guildID, channelID, messageID string) string {
	if guildID == "" {
		guildID = "@me"
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}

// mapErr turns Discord's size rejections into [notify.ErrTooLarge].
func mapErr(err error) error {
	var rerr *discordgo.RESTError
	if !errors.As(err, &rerr) {
		return err
	}

	tooLarge := rerr.Response != nil && rerr.Response.StatusCode == http.StatusRequestEntityTooLarge
	if rerr.Message != nil {
		switch rerr.Message.Code {
		case discordgo.ErrCodeRequestEntityTooLarge, discordgo.ErrCodeInvalidFormBody:
			tooLarge = true
		}
	}
	if tooLarge {
		return fmt.Errorf("%w: %w", notify.ErrTooLarge, err)
	}
	return err
}
