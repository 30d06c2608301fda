package notify

import (
	"iter"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/matsubo/internal/matsubo"
)

func TestRender(t *testing.T) {
	e := matsubo.Event{
		ID:          "TC1",
		Name:        "Plum Festival",
		Description: "Plum trees in bloom.",
		URL:         "https://tokyocheapo.com/events/plum/",
		ImageURL:    "https://cdn.tokyocheapo.com/plum.jpg",
		DateStart:   matsubo.NewDate(2024, 3, 2),
		DateEnd:     matsubo.NewDate(2024, 3, 2),
		Status:      "online",
		Source:      matsubo.SourceTokyoCheapo,
	}

	got := DefaultBranding().Render(e)

	assert.Equal(t, "Plum Festival", got.Title)
	assert.Equal(t, "Tokyo Cheapo [TC1]", got.Footer.Text)
	assert.Equal(t, DefaultAuthorName, got.Author.Name)
	assert.Equal(t, []EmbedField{
		{Name: FieldDate, Value: "Mar 2nd (土), 2024", Inline: true},
		{Name: FieldTime, Value: "---", Inline: true},
		{Name: FieldLocation, Value: "---", Inline: true},
		{Name: FieldCost, Value: "---", Inline: true},
		{Name: FieldStatus, Value: "online", Inline: true},
	}, got.Fields)

	id, ok := got.EventID()
	require.True(t, ok)
	assert.Equal(t, "TC1", id)

	e.Source = "Web:Elsewhere"
	assert.Equal(t, "Web:Elsewhere [TC1]", DefaultBranding().Render(e).Footer.Text)
}

func TestRender_ClampsLongText(t *testing.T) {
	e := matsubo.Event{
		ID:          "TC1",
		Name:        strings.Repeat("祭", MaxTitleLength+10),
		Description: strings.Repeat("d", MaxDescriptionLength+1),
		Location:    strings.Repeat("渋谷 ", MaxFieldLength),
		Other:       "short",
		DateStart:   matsubo.NewDate(2024, 3, 2),
		Source:      matsubo.SourceTokyoCheapo,
	}

	got := DefaultBranding().Render(e)

	assert.Equal(t, MaxTitleLength, utf8.RuneCountInString(got.Title))
	assert.True(t, strings.HasSuffix(got.Title, "祭…"))
	assert.Equal(t, MaxDescriptionLength, utf8.RuneCountInString(got.Description))
	for _, f := range got.Fields {
		assert.True(t, utf8.ValidString(f.Value), f.Name)
		assert.LessOrEqual(t, utf8.RuneCountInString(f.Value), MaxFieldLength, f.Name)
	}
	location, _ := got.Field(FieldLocation)
	assert.Equal(t, MaxFieldLength, utf8.RuneCountInString(location))
	other, _ := got.Field(FieldOther)
	assert.Equal(t, "short", other)

	// Rendering is stable, so a clamped post still compares equal next run.
	assert.True(t, got.Equal(DefaultBranding().Render(e)))
}

func TestEmbed_Equal(t *testing.T) {
	base := func() *Embed {
		return DefaultBranding().Render(matsubo.Event{
			ID:        "TC1",
			Name:      "Plum Festival",
			DateStart: matsubo.NewDate(2024, 3, 2),
			Source:    matsubo.SourceTokyoCheapo,
		})
	}

	tests := []struct {
		name   string
		change func(e *Embed)
		equal  bool
	}{
		{"identical", func(e *Embed) {}, true},
		{"author ignored", func(e *Embed) { e.Author.Name = "someone" }, true},
		{"color ignored", func(e *Embed) { e.Color = 1 }, true},
		{"title", func(e *Embed) { e.Title = "x" }, false},
		{"url", func(e *Embed) { e.URL = "x" }, false},
		{"description", func(e *Embed) { e.Description = "x" }, false},
		{"image", func(e *Embed) { e.ImageURL = "x" }, false},
		{"thumbnail", func(e *Embed) { e.ThumbnailURL = "x" }, false},
		{"footer text", func(e *Embed) { e.Footer.Text = "x" }, false},
		{"footer icon", func(e *Embed) { e.Footer.IconURL = "x" }, false},
		{"field value", func(e *Embed) { e.Fields[1].Value = "10:00" }, false},
		{"field inline", func(e *Embed) { e.Fields[1].Inline = false }, false},
		{"field order", func(e *Embed) { e.Fields[0], e.Fields[1] = e.Fields[1], e.Fields[0] }, false},
		{"extra field", func(e *Embed) { e.Fields = append(e.Fields, EmbedField{Name: "Other", Value: "x"}) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := base()
			tt.change(other)
			assert.Equal(t, tt.equal, base().Equal(other))
		})
	}

	var nilEmbed *Embed
	assert.True(t, nilEmbed.Equal(nil))
	assert.False(t, nilEmbed.Equal(base()))
}

func TestEmbed_EventID(t *testing.T) {
	for text, want := range map[string]string{
		"Tokyo Cheapo [TC123]":   "TC123",
		"Japan Cheapo [JC9]  ":   "JC9",
		"[a] then [b]":           "b",
		"no tag":                 "",
		"Tokyo Cheapo [TC1] end": "",
	} {
		id, ok := (&Embed{Footer: EmbedFooter{Text: text}}).EventID()
		assert.Equal(t, want != "", ok, text)
		assert.Equal(t, want, id, text)
	}
}

func history(msgs ...Message) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		for _, m := range msgs {
			if !yield(m, nil) {
				return
			}
		}
	}
}

func TestBuildIndex(t *testing.T) {
	b := DefaultBranding()
	post := func(id string, day int, own bool) Message {
		return Message{
			Handle: Handle{MessageID: id + "-msg", Link: "link-" + id},
			Embed: b.Render(matsubo.Event{
				ID:        id,
				DateStart: matsubo.NewDate(2024, 3, day),
				Source:    matsubo.SourceTokyoCheapo,
			}),
			Own: own,
		}
	}

	idx, err := BuildIndex(history(
		Message{Content: ReminderPrefix + " for today", Own: true, Handle: Handle{MessageID: "r1"}},
		post("TC1", 2, true),
		Message{Content: ReminderPrefix + " for yesterday", Own: true, Handle: Handle{MessageID: "r0"}},
		post("TC2", 2, false),
		Message{Content: "hello", Own: true},
		post("TC3", 2, true),
	), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, idx.Scanned())

	r, ok := idx.LatestReminder()
	require.True(t, ok)
	assert.Equal(t, "r1", r.Handle.MessageID)

	_, ok = idx.Lookup("TC1", "Mar 2nd (土), 2024")
	assert.True(t, ok)
	_, ok = idx.Lookup("TC1", "Mar 3rd (日), 2024")
	assert.False(t, ok)
	_, ok = idx.Lookup("TC2", "Mar 2nd (土), 2024")
	assert.False(t, ok, "not ours")
	_, ok = idx.Lookup("TC3", "Mar 2nd (土), 2024")
	assert.False(t, ok, "past the scan depth")

	assert.Equal(t, "link-TC1", idx.Link("TC1", "Mar 3rd (日), 2024"))
	assert.Empty(t, idx.Link("TC9", ""))
}
