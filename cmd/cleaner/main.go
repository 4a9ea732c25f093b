package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"pnr_cleaner/internal/adapters/confirm"
	"pnr_cleaner/internal/adapters/observability"
	redisad "pnr_cleaner/internal/adapters/redis"
	"pnr_cleaner/internal/adapters/source"
	"pnr_cleaner/internal/app"
	"pnr_cleaner/internal/domain"
	"pnr_cleaner/internal/shared"
	mysqlrepo "pnr_cleaner/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	log.Info().
		Str("input", cfg.InputPath).
		Int("workers", cfg.Workers).
		Int("max_retries", cfg.MaxRetries).
		Strs("airports", cfg.Airports).
		Msg("cleaner starting")

	// 2) record source: CSV when a path is set, synthetic data otherwise
	var src domain.RecordSource
	if cfg.InputPath != "" {
		src = source.NewCSV(cfg.InputPath)
	} else {
		gc := source.DefaultGeneratorConfig(cfg.GenerateCount, cfg.GenerateSeed)
		gc.Airports = cfg.Airports
		src = source.NewGenerator(gc)
		log.Info().Int("count", cfg.GenerateCount).Uint64("seed", cfg.GenerateSeed).Msg("no INPUT_PATH, generating records")
	}

	// 3) confirmation service
	var confirmer domain.Confirmer
	if cfg.ConfirmBase != "" {
		client, err := confirm.New(cfg.ConfirmBase, cfg.ConfirmKey, cfg.ConfirmRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize confirmation client")
		}
		confirmer = client
	} else {
		confirmer = confirm.NewSimulated(cfg.SimLatency, cfg.SimFailureRate, cfg.GenerateSeed)
		log.Warn().Msg("CONFIRM_BASE_URL is empty, using simulated confirmations")
	}

	// 4) optional persistence
	var repo domain.ReservationRepository
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("db ping ok")
		repo = mysqlrepo.New(db)
	}
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		cache = rc
	}
	var sink app.CleanedSink
	if cfg.CleanOutputPath != "" {
		sink = source.NewCSVSink(cfg.CleanOutputPath)
	}

	dispatcher := app.NewDispatcher(confirmer, app.DispatchConfig{
		Workers:              cfg.Workers,
		MaxRetries:           cfg.MaxRetries,
		BackoffBase:          cfg.BackoffBase,
		BackoffMax:           cfg.BackoffMax,
		SystemicFailureRatio: cfg.SystemicFailureRatio,
	})
	svc := app.NewCleaningService(domain.NewAirportSet(cfg.Airports...), dispatcher, repo, cache, sink)

	sum, err := svc.Run(ctx, src)
	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	dropped := make(map[string]any, len(sum.Dropped))
	for k, v := range sum.Dropped {
		dropped[string(k)] = v
	}
	ev.Str("run", sum.RunID).
		Int("input", sum.Input).
		Fields(map[string]any{"dropped": dropped}).
		Int("duplicates", sum.Duplicates).
		Int("clean", sum.Clean).
		Int("confirmed", sum.Confirmed).
		Int("failed", sum.Failed).
		Msg("cleaning run finished")
	if err != nil {
		stop()
		os.Exit(1)
	}
}
