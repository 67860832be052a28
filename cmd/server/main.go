package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vytor/ctiprep/internal/api"
	"github.com/vytor/ctiprep/internal/app"
	"github.com/vytor/ctiprep/internal/config"
	"github.com/vytor/ctiprep/internal/jobs"
	"github.com/vytor/ctiprep/internal/logger"
	"github.com/vytor/ctiprep/internal/worker"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}

	log.Info("===========================================")
	log.Info("ctiprep server starting")
	log.Info("===========================================")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("store_driver=%s", cfg.StoreDriver)
	log.Debug("store_namespace=%s", cfg.StoreNamespace)
	log.Debug("bank_sources=%v", cfg.BankSources)
	log.Debug("bank_blueprint=%s", cfg.BankBlueprint)
	log.Debug("bank_refresh_interval=%v", cfg.BankRefreshInterval)
	log.Debug("worker_count=%d", cfg.WorkerCount)
	log.Debug("queue_size=%d", cfg.QueueSize)
	log.Debug("exam_duration=%v", cfg.ExamDuration)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Error("failed to build application: %v", err)
		os.Exit(1)
	}
	defer application.Close()

	// The first load is synchronous so the server starts with a bank; a
	// failure leaves it empty until the next refresh.
	if err := application.LoadBank(ctx); err != nil {
		log.Warn("initial bank load failed: %v", err)
	}

	pool := worker.NewPool(cfg.WorkerCount, cfg.QueueSize)
	pool.Start(ctx)
	queue := jobs.NewWorkerQueue(pool, application.Catalog, cfg.BankFetchTimeout*2)
	go queue.Schedule(ctx, cfg.BankRefreshInterval)

	srv := &api.Server{
		Store:          application.Store,
		Catalog:        application.Catalog,
		Jobs:           queue,
		Sessions:       application.Sessions,
		Timers:         application.Timers,
		Deck:           application.Deck,
		History:        application.History,
		Collections:    application.Collections,
		Exam:           application.Exam,
		Lessons:        application.Lessons,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}

	// Configure HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("stopping scheduled refreshes")
	cancel()

	log.Debug("closing session streams")
	srv.Close()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	log.Debug("stopping worker pool")
	pool.Stop()

	log.Info("===========================================")
	log.Info("ctiprep server stopped")
	log.Info("===========================================")
}
