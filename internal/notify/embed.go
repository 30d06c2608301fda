package notify

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/jdholdren/matsubo/internal/matsubo"
)

// Names of the fields of a rendered event. FieldDate doubles as the marker
// that a message is an event post.
const (
	FieldDate     = "Date"
	FieldTime     = "Time"
	FieldLocation = "Location"
	FieldCost     = "Cost"
	FieldStatus   = "Status"
	FieldOther    = "Other"
)

const emptyField = "---"

// Limits of a rendered post, in characters. Longer text is cut.
const (
	MaxTitleLength       = 256
	MaxDescriptionLength = 4096
	MaxFieldLength       = 1024
)

type (
	// Embed is the structured content of an event post.
	Embed struct {
		Title        string
		URL          string
		Description  string
		ImageURL     string
		ThumbnailURL string
		Color        int
		Author       EmbedAuthor
		Footer       EmbedFooter
		Fields       []EmbedField
	}

	EmbedAuthor struct {
		Name    string
		URL     string
		IconURL string
	}

	EmbedFooter struct {
		Text    string
		IconURL string
	}

	EmbedField struct {
		Name   string
		Value  string
		Inline bool
	}
)

// Equal reports whether a and b show the same thing. Author and color are
// not compared; everything a reader would notice changing is.
func (e *Embed) Equal(o *Embed) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.Title == o.Title &&
		e.URL == o.URL &&
		e.Description == o.Description &&
		e.ImageURL == o.ImageURL &&
		e.Footer == o.Footer &&
		e.ThumbnailURL == o.ThumbnailURL &&
		slices.Equal(e.Fields, o.Fields)
}

// Field returns the value of the first field called name.
func (e *Embed) Field(name string) (string, bool) {
	if e == nil {
		return "", false
	}
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

var footerID = regexp.MustCompile(`\[([^\]]+)\]\s*$`)

// EventID extracts the event id from the footer tag, e.g. "Tokyo Cheapo [TC123]".
func (e *Embed) EventID() (string, bool) {
	if e == nil {
		return "", false
	}
	m := footerID.FindStringSubmatch(e.Footer.Text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

type (
	// Branding is the look of everything the bot posts.
	Branding struct {
		Author  EmbedAuthor
		Sources map[matsubo.Source]SourceBrand
	}

	// SourceBrand is the footer and accent of one source.
	SourceBrand struct {
		Label        string
		IconURL      string
		ThumbnailURL string
		Color        int
	}
)

// Defaults used when nothing is configured.
const (
	DefaultAuthorName = "Matsubo"
	DefaultAuthorURL  = "https://github.com/jdholdren/matsubo"
	DefaultAuthorIcon = "https://github.com/jdholdren/matsubo/raw/main/assets/matsubo.png"
)

// DefaultBranding knows both Cheapo sites.
func DefaultBranding() Branding {
	return Branding{
		Author: EmbedAuthor{
			Name:    DefaultAuthorName,
			URL:     DefaultAuthorURL,
			IconURL: DefaultAuthorIcon,
		},
		Sources: map[matsubo.Source]SourceBrand{
			matsubo.SourceTokyoCheapo: {
				Label:   "Tokyo Cheapo",
				IconURL: "https://tokyocheapo.com/wp-content/themes/tokyocheapo/favicon-32x32.png",
				Color:   0xE5554F,
			},
			matsubo.SourceJapanCheapo: {
				Label:   "Japan Cheapo",
				IconURL: "https://japancheapo.com/wp-content/themes/japancheapo/favicon-32x32.png",
				Color:   0x2E9CCA,
			},
		},
	}
}

const cancelledColor = 0x95A5A6

// Render builds the post for e.
func (b Branding) Render(e matsubo.Event) *Embed {
	brand, ok := b.Sources[e.Source]
	if !ok {
		brand = SourceBrand{Label: string(e.Source)}
	}
	color := brand.Color
	if e.Cancelled() {
		color = cancelledColor
	}

	fields := []EmbedField{
		{Name: FieldDate, Value: orEmpty(e.DateRange()), Inline: true},
		{Name: FieldTime, Value: e.TimeRange(), Inline: true},
		{Name: FieldLocation, Value: orEmpty(e.Location), Inline: true},
		{Name: FieldCost, Value: orEmpty(e.Cost), Inline: true},
	}
	if e.Status != "" {
		fields = append(fields, EmbedField{Name: FieldStatus, Value: e.Status, Inline: true})
	}
	if e.Other != "" {
		fields = append(fields, EmbedField{Name: FieldOther, Value: e.Other})
	}
	for i := range fields {
		fields[i].Value = matsubo.Truncate(fields[i].Value, MaxFieldLength)
	}

	return &Embed{
		Title:        matsubo.Truncate(e.Name, MaxTitleLength),
		URL:          e.URL,
		Description:  matsubo.Truncate(e.Description, MaxDescriptionLength),
		ImageURL:     e.ImageURL,
		ThumbnailURL: brand.ThumbnailURL,
		Color:        color,
		Author:       b.Author,
		Footer: EmbedFooter{
			Text:    fmt.Sprintf("%s [%s]", brand.Label, e.ID),
			IconURL: brand.IconURL,
		},
		Fields: fields,
	}
}

func orEmpty(s string) string {
	if s == "" {
		return emptyField
	}
	return s
}
