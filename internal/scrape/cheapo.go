package scrape

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jdholdren/matsubo/internal/dates"
	"github.com/jdholdren/matsubo/internal/matsubo"
)

const (
	TokyoCheapoURL = "https://tokyocheapo.com"
	JapanCheapoURL = "https://japancheapo.com"
)

// TokyoCheapo is a single listing page, all of it Kanto.
type TokyoCheapo struct {
	Fetcher    *Fetcher
	Normalizer dates.Normalizer
	// BaseURL defaults to TokyoCheapoURL.
	BaseURL string
}

func (TokyoCheapo) Name() matsubo.Source {
	return matsubo.SourceTokyoCheapo
}

func (s TokyoCheapo) Scrape(ctx context.Context) ([]matsubo.Event, error) {
	base := s.BaseURL
	if base == "" {
		base = TokyoCheapoURL
	}
	p := cardParser{
		normalizer: s.Normalizer,
		idPrefix:   "TC",
		topic:      matsubo.TopicKanto,
		source:     s.Name(),
	}

	return scrapePage(ctx, s.Fetcher, strings.TrimSuffix(base, "/")+"/events/", p)
}

// JapanCheapo has one listing page per prefecture. Events take the topic of
// the region the prefecture belongs to.
type JapanCheapo struct {
	Fetcher    *Fetcher
	Normalizer dates.Normalizer
	// Regions defaults to DefaultRegions.
	Regions Regions
	// BaseURL defaults to JapanCheapoURL.
	BaseURL string
}

func (JapanCheapo) Name() matsubo.Source {
	return matsubo.SourceJapanCheapo
}

func (s JapanCheapo) Scrape(ctx context.Context) ([]matsubo.Event, error) {
	base := s.BaseURL
	if base == "" {
		base = JapanCheapoURL
	}
	regions := s.Regions
	if regions == nil {
		regions = DefaultRegions
	}

	events := []matsubo.Event{}
	for _, topic := range regions.Topics() {
		p := cardParser{
			normalizer: s.Normalizer,
			idPrefix:   "JC",
			topic:      topic,
			source:     s.Name(),
		}
		for _, prefecture := range regions[topic] {
			url := strings.TrimSuffix(base, "/") + "/events/location/" + strings.ToLower(prefecture)
			found, err := scrapePage(ctx, s.Fetcher, url, p)
			if err != nil {
				return events, err
			}
			events = append(events, found...)
		}
	}

	return events, nil
}

// scrapePage parses one listing page. Only a done context is an error; any
// other failure is logged and yields no events.
func scrapePage(ctx context.Context, f *Fetcher, url string, p cardParser) ([]matsubo.Event, error) {
	doc, err := f.Fetch(ctx, url)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		slog.WarnContext(ctx, "skipping listing page", "url", url, "error", err)
		return nil, nil
	}

	events := p.parse(ctx, doc)
	slog.DebugContext(ctx, "scraped listing page", "url", url, "events", len(events))

	return events, nil
}
