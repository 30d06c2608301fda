package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/jdholdren/matsubo/internal/notify"
)

func toDiscord(e *notify.Embed) *discordgo.MessageEmbed {
	if e == nil {
		return nil
	}

	out := &discordgo.MessageEmbed{
		Type:        discordgo.EmbedTypeRich,
		Title:       e.Title,
		URL:         e.URL,
		Description: e.Description,
		Color:       e.Color,
	}
	if e.ImageURL != "" {
		out.Image = &discordgo.MessageEmbedImage{URL: e.ImageURL}
	}
	if e.ThumbnailURL != "" {
		out.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.ThumbnailURL}
	}
	if e.Author.Name != "" {
		out.Author = &discordgo.MessageEmbedAuthor{Name: e.Author.Name, URL: e.Author.URL, IconURL: e.Author.IconURL}
	}
	if e.Footer.Text != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer.Text, IconURL: e.Footer.IconURL}
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}

	return out
}

func fromDiscord(e *discordgo.MessageEmbed) *notify.Embed {
	if e == nil {
		return nil
	}

	out := &notify.Embed{
		Title:       e.Title,
		URL:         e.URL,
		Description: e.Description,
		Color:       e.Color,
	}
	if e.Image != nil {
		out.ImageURL = e.Image.URL
	}
	if e.Thumbnail != nil {
		out.ThumbnailURL = e.Thumbnail.URL
	}
	if e.Author != nil {
		out.Author = notify.EmbedAuthor{Name: e.Author.Name, URL: e.Author.URL, IconURL: e.Author.IconURL}
	}
	if e.Footer != nil {
		out.Footer = notify.EmbedFooter{Text: e.Footer.Text, IconURL: e.Footer.IconURL}
	}
	for _, f := range e.Fields {
		if f == nil {
			continue
		}
		out.Fields = append(out.Fields, notify.EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}

	return out
}
