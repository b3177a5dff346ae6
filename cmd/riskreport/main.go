// Package main is the entry point for the fundrisk batch pipeline. It
// computes portfolio risk metrics (factor exposures, VaR, Expected
// Shortfall) for a set of hedge funds from a SQLite store of historical
// prices, positions and Fama-French factor returns, and writes CSV tables
// plus per-fund charts to a results directory.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/quantdesk/fundrisk/internal/config"
	"github.com/quantdesk/fundrisk/internal/database"
	"github.com/quantdesk/fundrisk/internal/modules/marketdata"
	"github.com/quantdesk/fundrisk/internal/modules/publish"
	"github.com/quantdesk/fundrisk/internal/modules/reports"
	"github.com/quantdesk/fundrisk/internal/pipeline"
	"github.com/quantdesk/fundrisk/internal/scheduler"
	"github.com/quantdesk/fundrisk/pkg/logger"
)

// analysisJob adapts the pipeline runner to the scheduler's Job interface.
type analysisJob struct {
	runner *pipeline.Runner
}

func (j *analysisJob) Name() string { return "risk_analysis" }

func (j *analysisJob) Run() error {
	_, err := j.runner.Run(context.Background())
	return err
}

func main() {
	seed := flag.Bool("seed", false, "create the store schema and insert the illustrative funds and positions, then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	log.Info().Str("db", cfg.DBPath).Str("results", cfg.ResultsDir).Msg("Starting fundrisk")

	db, err := database.New(database.Config{Path: cfg.DBPath, Name: "risk"})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open risk store")
	}
	defer db.Close()

	ctx := context.Background()

	if *seed {
		if err := marketdata.EnsureSchema(db.Conn()); err != nil {
			log.Fatal().Err(err).Msg("Failed to create schema")
		}
		funds, positions := marketdata.IllustrativeFunds()
		if err := marketdata.SeedFunds(db.Conn(), funds); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed funds")
		}
		if err := marketdata.SeedPositions(db.Conn(), positions); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed positions")
		}
		log.Info().Int("funds", len(funds)).Int("positions", len(positions)).Msg("Store seeded")
		return
	}

	// An unreadable input store is the only fatal condition; verify before work.
	if err := db.HealthCheck(ctx); err != nil {
		log.Fatal().Err(err).Msg("Risk store failed health check")
	}

	priceRepo := marketdata.NewPriceRepository(db.Conn(), log)
	factorRepo := marketdata.NewFactorRepository(db.Conn(), log)
	fundRepo := marketdata.NewFundRepository(db.Conn(), log)
	renderer := reports.NewRenderer(cfg.ResultsDir, log)

	var publisher pipeline.Publisher
	if cfg.Publish.Enabled() {
		p, err := publish.New(ctx, cfg.Publish, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure report publisher")
		}
		publisher = p
	}

	runner := pipeline.NewRunner(priceRepo, factorRepo, fundRepo, renderer, publisher, cfg.Confidence, log)
	job := &analysisJob{runner: runner}

	if cfg.Schedule == "" {
		if _, err := runner.Run(ctx); err != nil {
			log.Fatal().Err(err).Msg("Risk analysis failed")
		}
		return
	}

	// Scheduled mode: run on the configured cron expression until signalled.
	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.Schedule, job); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Schedule).Msg("Invalid schedule")
	}
	sched.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	sched.Stop()
}
