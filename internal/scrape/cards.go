package scrape

import (
	"context"
	"html"
	"log/slog"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"

	"github.com/jdholdren/matsubo/internal/dates"
	"github.com/jdholdren/matsubo/internal/matsubo"
)

// Selectors for the event cards both Cheapo sites share.
var (
	selCard        = cascadia.MustCompile("article.card--event")
	selDate        = cascadia.MustCompile("div.card--event__date-box > div")
	selTimeLabel   = cascadia.MustCompile(`div[title="Start/end time"]`)
	selSpan        = cascadia.MustCompile("span")
	selPostID      = cascadia.MustCompile("[data-post-id]")
	selTitle       = cascadia.MustCompile("h3.card__title")
	selTitleLink   = cascadia.MustCompile("h3.card__title a[href]")
	selExcerpt     = cascadia.MustCompile("p.card__excerpt")
	selImage       = cascadia.MustCompile("a.card__image img")
	selLocation    = cascadia.MustCompile("a.location")
	selEntry       = cascadia.MustCompile(`div[title="Entry"]`)
	selEventStatus = cascadia.MustCompile("div.event-status")
)

// cardParser turns the event cards of one page into events.
type cardParser struct {
	normalizer dates.Normalizer
	idPrefix   string
	topic      matsubo.Topic
	source     matsubo.Source
}

func (p cardParser) parse(ctx context.Context, doc *xhtml.Node) []matsubo.Event {
	events := []matsubo.Event{}
	for _, card := range cascadia.QueryAll(doc, selCard) {
		e, err := p.parseCard(card)
		if err != nil {
			slog.WarnContext(ctx, "dropping event card", "source", p.source, "topic", p.topic, "error", err)
			continue
		}
		events = append(events, e)
	}

	return events
}

func (p cardParser) parseCard(card *xhtml.Node) (matsubo.Event, error) {
	postID := attr(card, "data-post-id")
	if postID == "" {
		postID = attr(cascadia.Query(card, selPostID), "data-post-id")
	}
	if postID == "" {
		return matsubo.Event{}, errMissingID
	}
	e := matsubo.Event{
		ID:          p.idPrefix + postID,
		Name:        sanitize(text(cascadia.Query(card, selTitle))),
		Description: sanitize(text(cascadia.Query(card, selExcerpt))),
		URL:         attr(cascadia.Query(card, selTitleLink), "href"),
		ImageURL:    attr(cascadia.Query(card, selImage), "data-src"),
		Location:    joinTexts(cascadia.QueryAll(card, selLocation), nil),
		Cost:        joinTexts(parents(cascadia.QueryAll(card, selEntry)), nil),
		Status:      joinTexts(cascadia.QueryAll(card, selEventStatus), strings.ToLower),
		Visibility:  p.topic,
		Source:      p.source,
	}

	var err error
	dateText := text(cascadia.Query(card, selDate))
	e.DateStart, e.DateEnd, e.DateFuzzy, err = p.normalizer.DateRange(dateText)
	if err != nil {
		return matsubo.Event{}, err
	}

	var times []string
	for _, label := range cascadia.QueryAll(card, selTimeLabel) {
		if label.Parent == nil {
			continue
		}
		if t := text(cascadia.Query(label.Parent, selSpan)); t != "" {
			times = append(times, t)
		}
	}
	e.TimeStart, e.TimeEnd, err = p.normalizer.TimeRange(strings.Join(times, ", "))
	if err != nil {
		return matsubo.Event{}, err
	}

	return e, nil
}

type cardError string

func (e cardError) Error() string { return string(e) }

const errMissingID = cardError("card has no post id")

var whitespace = regexp.MustCompile(`\s+`)

// text is the collapsed text content of n, or empty for a nil node.
func text(n *xhtml.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return strings.TrimSpace(whitespace.ReplaceAllString(b.String(), " "))
}

func attr(n *xhtml.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func parents(nodes []*xhtml.Node) []*xhtml.Node {
	out := make([]*xhtml.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Parent != nil {
			out = append(out, n.Parent)
		}
	}
	return out
}

func joinTexts(nodes []*xhtml.Node, transform func(string) string) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		t := text(n)
		if t == "" {
			continue
		}
		if transform != nil {
			t = transform(t)
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, ", ")
}

var stripPolicy = bluemonday.StrictPolicy()

// maxTextLength caps scraped names and excerpts, in characters.
const maxTextLength = 2048

// Removes any markup that survived parsing and limits the length so a
// runaway excerpt doesn't blow up a message.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = html.UnescapeString(stripPolicy.Sanitize(s))

	return matsubo.Truncate(s, maxTextLength)
}
