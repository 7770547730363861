package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"feedcourier/internal/config"
	"feedcourier/internal/delivery"
	"feedcourier/internal/handlers"
	"feedcourier/internal/metrics"
	"feedcourier/internal/registry"
	"feedcourier/internal/report"
	"feedcourier/internal/scheduler"
	"feedcourier/internal/server"
	"feedcourier/internal/storage"
	"feedcourier/internal/transport"
)

// Run initializes and starts the application
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting feedcourier")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	store := storage.New(afero.NewOsFs(), cfg.Storage.DataDir)
	reg := registry.New(store)
	m := metrics.NewMetrics()

	relay := transport.NewSMTPRelay(cfg.Relay.RelayAddr(), cfg.Relay.HeloName, cfg.Relay.Timeout)
	pipeline := delivery.NewPipeline(store, relay, m, delivery.Config{
		FromAddress:     cfg.Email.FromAddress,
		BounceAddress:   cfg.Email.BounceAddress,
		CatchAllAddress: cfg.Email.CatchAllAddress,
	})

	sched := scheduler.NewScheduler(&cfg.Scheduler, reg, pipeline)

	h := handlers.NewHandlers(store, report.NewBuilder(store), sched, m)
	router := server.SetupRouter(h)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	sched.Wait()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	logrus.Info("Server stopped gracefully")
	return nil
}
