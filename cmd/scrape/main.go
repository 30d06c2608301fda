// Command scrape reads both listing sites once and prints what it found.
//
// With DATABASE set the events are stored too, the same way the scheduled
// scrape does it.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/jdholdren/matsubo/internal/dates"
	"github.com/jdholdren/matsubo/internal/logger"
	"github.com/jdholdren/matsubo/internal/matsubo"
	"github.com/jdholdren/matsubo/internal/scrape"
	"github.com/jdholdren/matsubo/internal/sqlite"
)

type config struct {
	// Optional, nothing is stored without it
	Database     string `env:"DATABASE"`
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`
	Timezone     string `env:"TIMEZONE, default=Asia/Tokyo"`
	RegionsFile  string `env:"REGIONS_FILE"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	_ = godotenv.Load()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}
	slog.SetDefault(logger.New(os.Stderr, cfg.LoggerFormat, slog.LevelInfo))

	if err := runScrape(ctx, cfg); err != nil {
		slog.Error("error scraping", "error", err)
		os.Exit(1)
	}
}

func runScrape(ctx context.Context, cfg config) error {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("error loading timezone: %s", err)
	}
	regions := scrape.DefaultRegions
	if cfg.RegionsFile != "" {
		if regions, err = scrape.LoadRegions(cfg.RegionsFile); err != nil {
			return err
		}
	}

	var (
		fetcher    = scrape.NewFetcher(nil, 0)
		normalizer = dates.New(loc)
		scraper    = scrape.Scraper{Sources: []scrape.Source{
			scrape.TokyoCheapo{Fetcher: fetcher, Normalizer: normalizer},
			scrape.JapanCheapo{Fetcher: fetcher, Normalizer: normalizer, Regions: regions},
		}}
	)

	results, err := scraper.Scrape(ctx)
	if err != nil {
		return err
	}
	events := matsubo.Merge(scrape.All(results), matsubo.SameRow, matsubo.KeepFirst)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tEVENTS")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\n", r.Source, len(r.Events))
	}
	fmt.Fprintf(tw, "total (merged)\t%d\n", len(events))
	if err := tw.Flush(); err != nil {
		return err
	}

	if cfg.Database == "" {
		return nil
	}
	dbx, err := sqlite.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer dbx.Close()

	if err := sqlite.New(dbx).UpsertEvents(ctx, events); err != nil {
		return fmt.Errorf("error storing events: %s", err)
	}
	slog.InfoContext(ctx, "stored events", "count", len(events))

	return nil
}
