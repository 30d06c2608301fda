// Matsubo posts upcoming events from the Cheapo sites to Discord channels.
//
// It scrapes the listings on a schedule, keeps each subscribed channel's posts
// in sync with what it found and sends a daily reminder of what's on.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sethvargo/go-envconfig"
	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/jdholdren/matsubo/internal/api"
	"github.com/jdholdren/matsubo/internal/commands"
	"github.com/jdholdren/matsubo/internal/dates"
	"github.com/jdholdren/matsubo/internal/discord"
	"github.com/jdholdren/matsubo/internal/logger"
	"github.com/jdholdren/matsubo/internal/metrics"
	"github.com/jdholdren/matsubo/internal/notify"
	"github.com/jdholdren/matsubo/internal/presence"
	"github.com/jdholdren/matsubo/internal/scrape"
	"github.com/jdholdren/matsubo/internal/sqlite"
	"github.com/jdholdren/matsubo/internal/worker"
)

type config struct {
	Database     string `env:"DATABASE, required"`
	DiscordToken string `env:"DISCORD_TOKEN, required"`

	Port int `env:"PORT, default=4444"`
	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`
	LogLevel     string `env:"LOG_LEVEL, default=info"`
	CorsOrigin   string `env:"CORS_ORIGIN, default=*"`

	Timezone       string `env:"TIMEZONE, default=Asia/Tokyo"`
	ScrapeSchedule string `env:"SCRAPE_SCHEDULE, default=0 5 * * *"`
	NotifySchedule string `env:"NOTIFY_SCHEDULE, default=0 9 * * *"`
	RemindSchedule string `env:"REMIND_SCHEDULE, default=0 8 * * *"`

	RemindBeforeDays int           `env:"REMIND_BEFORE_DAYS, default=1"`
	NotifyWindowDays int           `env:"NOTIFY_WINDOW_DAYS, default=7"`
	ScanDepth        int           `env:"SCAN_DEPTH, default=200"`
	SendDelay        time.Duration `env:"SEND_DELAY, default=2s"`
	CommandPrefix    string        `env:"COMMAND_PREFIX, default=."`
	PageCacheTTL     time.Duration `env:"PAGE_CACHE_TTL, default=10m"`
	// Optional YAML file overriding which prefectures feed which topic
	RegionsFile string `env:"REGIONS_FILE"`

	BotName string `env:"BOT_NAME, default=Matsubo"`
	BotURL  string `env:"BOT_URL, default=https://github.com/jdholdren/matsubo"`
	BotIcon string `env:"BOT_ICON, default=https://github.com/jdholdren/matsubo/raw/main/assets/matsubo.png"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// A local .env is a convenience for development; it's fine if it's missing.
	_ = godotenv.Load()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("error parsing log level: %s", err)
	}
	slog.SetDefault(logger.New(os.Stderr, cfg.LoggerFormat, level))

	// Start the application
	if err := runBot(ctx, cfg); err != nil {
		slog.Error("error running", "error", err)
		os.Exit(1)
	}
}

func runBot(ctx context.Context, cfg config) error {
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

	dbx, err := sqlite.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer dbx.Close()
	repo := sqlite.New(dbx)

	session, err := discord.Open(ctx, cfg.DiscordToken)
	if err != nil {
		return err
	}
	defer session.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var (
		transport  = discord.NewTransport(session, discord.BotID(session))
		normalizer = dates.New(loc)
		fetcher    = scrape.NewFetcher(nil, cfg.PageCacheTTL)
		scraper    = scrape.Scraper{Sources: []scrape.Source{
			scrape.TokyoCheapo{Fetcher: fetcher, Normalizer: normalizer},
			scrape.JapanCheapo{Fetcher: fetcher, Normalizer: normalizer, Regions: regions},
		}}
		notifyCfg = notify.Config{
			Branding:         branding(cfg),
			Location:         loc,
			WindowDays:       cfg.NotifyWindowDays,
			RemindBeforeDays: cfg.RemindBeforeDays,
			ScanDepth:        cfg.ScanDepth,
			SendDelay:        cfg.SendDelay,
		}
		cycler = presence.NewCycler(discord.NewPresence(session), presence.DefaultInterval)
		w      = worker.NewWorker(
			repo,
			scraper,
			notify.NewNotifier(repo, transport, notifyCfg),
			notify.NewReminder(repo, transport, notifyCfg),
			m,
			cycler,
		)
		cmds = commands.NewService(cfg.CommandPrefix, repo, w, session.HeartbeatLatency)
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	session.AddHandler(discord.CommandHandler(ctx, cmds, session))

	scheduler, err := worker.NewScheduler(ctx, w, loc, worker.Schedules{
		Scrape: cfg.ScrapeSchedule,
		Notify: cfg.NotifySchedule,
		Remind: cfg.RemindSchedule,
	})
	if err != nil {
		return err
	}
	srv := api.NewServer(ctx, api.ServerConfig{
		Port:       cfg.Port,
		CorsOrigin: cfg.CorsOrigin,
		Location:   loc,
	}, repo, w, m)

	var g run.Group
	g.Add(func() error {
		return scheduler.Run(ctx)
	}, func(error) {
		cancel()
	})
	g.Add(func() error {
		return cycler.Run(ctx)
	}, func(error) {
		cancel()
	})
	g.Add(func() error {
		slog.Info("listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error listening: %s", err)
		}
		return nil
	}, func(error) {
		downCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(downCtx); err != nil {
			slog.Error("error shutting down server", "error", err)
		}
	})
	g.Add(func() error {
		<-ctx.Done()
		return ctx.Err()
	}, func(error) {
		cancel()
	})

	if err := g.Run(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("error running: %s", err)
	}
	slog.Info("shut down")

	return nil
}

func branding(cfg config) notify.Branding {
	b := notify.DefaultBranding()
	b.Author = notify.EmbedAuthor{
		Name:    cfg.BotName,
		URL:     cfg.BotURL,
		IconURL: cfg.BotIcon,
	}
	return b
}
