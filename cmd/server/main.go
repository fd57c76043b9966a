package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/minwoo-dev/krx-screener/internal/clients/krx"
	"github.com/minwoo-dev/krx-screener/internal/config"
	"github.com/minwoo-dev/krx-screener/internal/database"
	"github.com/minwoo-dev/krx-screener/internal/modules/capm"
	"github.com/minwoo-dev/krx-screener/internal/modules/marketdata"
	"github.com/minwoo-dev/krx-screener/internal/modules/optimization"
	"github.com/minwoo-dev/krx-screener/internal/modules/screening"
	"github.com/minwoo-dev/krx-screener/internal/modules/universe"
	"github.com/minwoo-dev/krx-screener/internal/scheduler"
	"github.com/minwoo-dev/krx-screener/internal/server"
	"github.com/minwoo-dev/krx-screener/pkg/logger"
)

func main() {
	// Load configuration first so the logger picks up the level
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
		File:   cfg.LogFile,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting KRX screener")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Repositories
	companies := universe.NewCompanyRepository(db.Conn(), log)
	market := marketdata.NewRepository(db.Conn(), log)

	// Engine services
	estimator := capm.NewEstimator(cfg.RiskFreeRate, log)
	screenSvc := screening.NewService(market, estimator, cfg.WindowYears, log)
	optimizeSvc := optimization.NewService(market, cfg.RiskFreeRate, log)

	// Market data client with an injected rate limiter
	limiter := rate.NewLimiter(rate.Limit(cfg.MarketDataRPS), 1)
	quoteClient := krx.New(cfg.MarketDataURL, limiter, log)

	// Scheduler with the daily 07:00 refresh
	sched := scheduler.New(log)
	refresh := scheduler.NewRefreshJob(quoteClient, market, companies, cfg.BenchmarkCode, log)
	if err := sched.AddJob("0 0 7 * * *", refresh); err != nil {
		log.Fatal().Err(err).Msg("Failed to register refresh job")
	}
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Port:             cfg.Port,
		Log:              log,
		DevMode:          cfg.DevMode,
		Companies:        companies,
		ScreeningHandler: screening.NewHandler(screenSvc, companies, log),
		OptimizerHandler: optimization.NewHandler(optimizeSvc, companies, cfg.ResultsDir, cfg.WindowYears, log),
		ResultsDir:       cfg.ResultsDir,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
