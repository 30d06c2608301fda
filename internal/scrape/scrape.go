// Package scrape pulls event listings off the Cheapo sites.
//
// Each site is a Source. A page that fails to load or parse is logged and
// contributes nothing; so is a single card whose date cannot be understood.
// Neither stops the rest of the run.
package scrape

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/jdholdren/matsubo/internal/matsubo"
)

type (
	// Source is one listing site.
	Source interface {
		Name() matsubo.Source
		// Scrape returns whatever could be read. It only fails when ctx is done.
		Scrape(ctx context.Context) ([]matsubo.Event, error)
	}

	// Scraper runs several sources side by side.
	Scraper struct {
		Sources []Source
	}
)

// Result is what a single source produced.
type Result struct {
	Source matsubo.Source
	Events []matsubo.Event
}

// Scrape runs every source concurrently. Results keep the order of Sources
// and are not yet deduplicated.
func (s Scraper) Scrape(ctx context.Context) ([]Result, error) {
	results := make([]Result, len(s.Sources))

	g, gCtx := errgroup.WithContext(ctx)
	for i, src := range s.Sources {
		g.Go(func() error {
			events, err := src.Scrape(gCtx)
			if err != nil {
				return err
			}
			slog.InfoContext(ctx, "scraped source", "source", src.Name(), "events", len(events))
			results[i] = Result{Source: src.Name(), Events: events}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// All flattens results into one list, in source order.
func All(results []Result) []matsubo.Event {
	var events []matsubo.Event
	for _, r := range results {
		events = append(events, r.Events...)
	}
	return events
}
