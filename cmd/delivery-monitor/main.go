// delivery-monitor consumes the mail relay's log stream on stdin and applies
// each disposition line to the tracked message artifacts:
//
//	tail -F /var/log/mail.log | delivery-monitor
//
// It runs until stdin closes or it receives SIGINT/SIGTERM. A partial line
// buffered at termination is dropped; at most one relay log line can be lost
// that way.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"feedcourier/internal/config"
	"feedcourier/internal/logwatch"
	"feedcourier/internal/metrics"
	"feedcourier/internal/storage"
)

func main() {
	if err := run(); err != nil {
		logrus.Fatalf("delivery-monitor error: %v", err)
	}
}

func run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Storage.DataDir == "" {
		return fmt.Errorf("storage data dir is required")
	}

	store := storage.New(afero.NewOsFs(), cfg.Storage.DataDir)
	m := metrics.NewMetrics()
	processor := logwatch.NewProcessor(store, m)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := ":" + cfg.Server.MonitorPort
		logrus.Infof("Serving metrics on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logrus.Errorf("Metrics server error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logrus.Info("Consuming relay log stream from stdin")
	if err := processor.Run(ctx, os.Stdin); err != nil {
		if errors.Is(err, context.Canceled) {
			logrus.Info("Shutting down")
			return nil
		}
		return err
	}

	logrus.Info("Log stream ended")
	return nil
}
