package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/finconsol/finconsol/internal/app"
	"github.com/finconsol/finconsol/internal/ingest"
	ingesthttp "github.com/finconsol/finconsol/internal/ingest/http"
	"github.com/finconsol/finconsol/internal/masterdata"
	"github.com/finconsol/finconsol/internal/platform/cache"
	"github.com/finconsol/finconsol/internal/platform/db"
	"github.com/finconsol/finconsol/internal/report"
	reporthttp "github.com/finconsol/finconsol/internal/report/http"
	"github.com/finconsol/finconsol/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Reports still build without Redis; they just rebuild every hit.
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	reportRepo := report.NewRepository(pool)
	engine := report.NewEngine(reportRepo, reportRepo, reportRepo, report.Config{
		GrossProfitAfter: cfg.GrossProfitLabel,
	})
	reportCache := report.NewCache(redisClient, cfg.ReportCacheTTL)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()
	enqueuer := jobs.NewEnqueuer(asynqClient)

	ingestRepo := ingest.NewRepository(pool)
	ingestService := ingest.NewService(logger, ingestRepo, reportCache, enqueuer)

	masterRepo := masterdata.NewRepository(pool)
	masterService := masterdata.NewService(logger, masterRepo, reportCache)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("asynq inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		ReportHandler:     reporthttp.NewHandler(logger, engine, reportCache),
		IngestHandler:     ingesthttp.NewHandler(logger, ingestService),
		MasterDataHandler: masterdata.NewHandler(logger, masterService),
		JobHandler:        jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
