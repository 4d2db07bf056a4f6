package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"poolpulse/internal/config"
	"poolpulse/internal/metrics"
	"poolpulse/internal/normalize"
	"poolpulse/internal/orchestrator"
	"poolpulse/internal/persistence"
	"poolpulse/internal/pipeline"
	"poolpulse/internal/rank"
	"poolpulse/internal/source"
	"poolpulse/pkg/models"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	once := flag.Bool("once", false, "Run a single refresh cycle and exit")
	history := flag.Int("history", 0, "Print the N most recent recorded cycles and exit")
	flag.Parse()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// .env file is optional
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogging(cfg.Logging)
	log.Info().Msg("Starting PoolPulse - DEX Liquidity Turnover Ranker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	if *history > 0 {
		if err := runHistory(ctx, cfg, *history); err != nil {
			log.Fatal().Err(err).Msg("Failed to read cycle history")
		}
		return
	}

	if err := run(ctx, cfg, *once); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("Application error")
	}

	log.Info().Msg("PoolPulse shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, once bool) error {
	// Initialize metrics
	m := metrics.New()
	if cfg.Metrics.Enabled && !once {
		if err := m.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			m.Shutdown(shutdownCtx)
		}()
		log.Info().Int("port", cfg.Metrics.Port).Msg("Metrics server started")
	}

	// Initialize persistence
	var store *persistence.Store
	if cfg.Persistence.Enabled {
		var err error
		store, err = persistence.NewStore(cfg.Persistence.SQLitePath)
		if err != nil {
			return err
		}
		defer store.Close()
		log.Info().Str("path", cfg.Persistence.SQLitePath).Msg("SQLite initialized")
	}

	// Initialize sources
	cache := source.NewCache()
	var sources []source.Source
	if cfg.Sources.GeckoTerminal.Enabled {
		sources = append(sources, source.NewGeckoTerminal(cfg.Sources.GeckoTerminal, cache, m))
	}
	if cfg.Sources.DexScreener.Enabled {
		sources = append(sources, source.NewDexScreener(cfg.Sources.DexScreener, cache, m))
	}
	log.Info().Int("sources", len(sources)).Msg("Sources initialized")

	// Wire the pipeline
	pipe := pipeline.New(
		pipeline.Config{
			Interval:     cfg.Refresh.Interval,
			SnapshotTopN: cfg.Persistence.SnapshotTopN,
		},
		orchestrator.New(sources...),
		normalize.New(cfg.Assets, m),
		rank.NewValidator(cfg.Thresholds, m),
		rank.NewScorer(cfg.Thresholds),
		cache,
		store,
		m,
	)

	if once {
		res := pipe.RunCycle(ctx)
		logResult(res)
		return res.Err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Msg("Starting refresh runner...")
		return pipe.Run(gCtx)
	})

	g.Go(func() error {
		return logResults(gCtx, pipe.Results())
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}

	return nil
}

// runHistory prints the most recent recorded cycles and the ranked snapshot
// of the newest one.
func runHistory(ctx context.Context, cfg *config.Config, n int) error {
	store, err := persistence.NewStore(cfg.Persistence.SQLitePath)
	if err != nil {
		return err
	}
	defer store.Close()

	cycles, err := store.RecentCycles(ctx, n)
	if err != nil {
		return err
	}
	if len(cycles) == 0 {
		log.Info().Msg("No recorded cycles")
		return nil
	}

	for _, c := range cycles {
		evt := log.Info().
			Int64("cycle_id", c.ID).
			Time("started_at", c.StartedAt).
			Int64("duration_ms", c.DurationMS).
			Int("pools", c.PoolCount).
			Str("status", c.Status)
		if c.Reason != "" {
			evt = evt.Str("reason", c.Reason)
		}
		evt.Msg("Recorded cycle")
	}

	snapshot, err := store.SnapshotForCycle(ctx, cycles[0].ID)
	if err != nil {
		return err
	}
	for _, r := range snapshot {
		log.Info().
			Int("rank", r.Rank).
			Str("pool", r.Name).
			Str("pair_type", r.PairType).
			Str("chain", r.Chain).
			Str("source", r.Source).
			Float64("score", r.Score).
			Msg("Snapshot entry")
	}

	return nil
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

func logResults(ctx context.Context, ch <-chan pipeline.Result) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-ch:
			if !ok {
				return nil
			}
			logResult(res)
		}
	}
}

func logResult(res pipeline.Result) {
	if res.Err != nil {
		log.Error().Err(res.Err).Dur("duration", res.Duration).
			Msg("Cycle failed - previous results cleared")
		return
	}

	for _, pt := range models.PairTypes {
		bucket := res.Categories[pt]
		if len(bucket) == 0 {
			log.Info().Str("category", string(pt)).Msg("No pools in category")
			continue
		}

		top := bucket[0]
		evt := log.Info().
			Str("category", string(pt)).
			Int("pools", len(bucket)).
			Str("leader", top.Name).
			Str("chain", top.Chain).
			Str("source", string(top.Source)).
			Float64("score", top.Score).
			Float64("liquidity_usd", top.LiquidityUSD).
			Float64("volume_usd_24h", top.VolumeUSD24h)
		if top.APR != nil {
			evt = evt.Float64("apr_pct", *top.APR)
		}
		evt.Msg("Category leader")
	}

	log.Info().Int("pools", res.PoolCount).Dur("duration", res.Duration).
		Msg("Cycle result published")
}
