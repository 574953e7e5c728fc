package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"receiptsync/internal/config"
	"receiptsync/internal/infra"
	"receiptsync/internal/ledger"
	"receiptsync/internal/model"
	"receiptsync/internal/router"
	"receiptsync/internal/source"
	"receiptsync/internal/state"
	"receiptsync/internal/sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logObserver mirrors cycle transitions into the structured log. The desktop
// shell polls /v1/stats for the same information; this keeps headless runs
// observable too.
type logObserver struct{}

func (logObserver) OnStatus(status string) {
	log.Info().Str("status", status).Msg("sync status changed")
}

func (logObserver) OnStats(stats model.SyncStats) {
	log.Info().
		Int64("totalSynced", stats.TotalSynced).
		Int64("totalFailed", stats.TotalFailed).
		Int("queueSize", stats.QueueSize).
		Msg("sync stats updated")
}

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := infra.NewSourceDB(cfg.SQLServerDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to POS database")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	src, err := source.ForVendor(cfg.POSType, db)
	if err != nil {
		log.Fatal().Err(err).Msg("unsupported POS vendor")
	}

	ldg := ledger.New(cfg.LedgerBaseURL, cfg.LedgerAPIKey, cfg.LedgerTimeout())
	breaker := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	store := state.NewRedisStore(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine, err := sync.New(ctx, sync.Deps{
		Config:   cfg,
		Source:   src,
		Ledger:   ldg,
		Store:    store,
		Breaker:  breaker,
		Observer: logObserver{},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize sync engine")
	}
	engine.Start(ctx)

	r := router.New(cfg, engine, src, rdb, breaker)

	srv := &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().
			Str("vendor", src.Vendor()).
			Str("store_id", cfg.StoreID).
			Str("org_id", cfg.OrganizationID).
			Msgf("receipt sync agent listening on 127.0.0.1:%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down agent…")
	engine.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("agent exited")
}
