package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"venue_hotel/internal/adapters/observability"
	"venue_hotel/internal/app"
	"venue_hotel/internal/bootstrap"
	"venue_hotel/internal/shared"
)

func main() {
	once := flag.Bool("once", false, "run a single push+pull and exit")
	flag.Parse()

	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Str("base", cfg.Beds24.BaseURL).
		Int("workers", cfg.Sync.Workers).
		Int("window_days", cfg.Sync.WindowDays).
		Str("schedule", cfg.Sync.Schedule).
		Msg("syncer starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}
	defer svc.Close()

	if *once {
		runSync(ctx, svc.Channel, cfg.Sync.WindowDays)
		return
	}

	observability.Serve(cfg.MetricsAddr, observability.MetricsHandler(observability.InitRegistry()))

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(cfg.Sync.Schedule, func() { runSync(ctx, svc.Channel, cfg.Sync.WindowDays) }); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Sync.Schedule).Msg("invalid SYNC_SCHEDULE")
	}
	c.Start()
	log.Info().Msg("sync scheduled")

	<-ctx.Done()
	log.Info().Msg("waiting for running sync to finish")
	<-c.Stop().Done()
}

// runSync pushes every mapped room, then pulls channel bookings.
func runSync(ctx context.Context, ch *app.ChannelSyncService, windowDays int) {
	results, err := ch.PushAll(ctx, ch.DefaultWindow(windowDays))
	if err != nil {
		log.Error().Err(err).Msg("push aborted")
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	log.Info().Int("rooms", len(results)).Int("failed", failed).Msg("push completed")

	res, err := ch.Pull(ctx)
	if err != nil {
		log.Error().Err(err).Msg("pull failed")
		return
	}
	log.Info().
		Int("fetched", res.Fetched).
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("skipped", res.Skipped).
		Msg("pull completed")
}
