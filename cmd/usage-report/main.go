// usage-report is the daily billing batch: it counts the emails delivered on
// one calendar date per account and reports the totals to the billing
// provider. Re-running for the same date is safe; the provider deduplicates
// on the accountID-date idempotency key.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"feedcourier/internal/billing"
	"feedcourier/internal/config"
	"feedcourier/internal/registry"
	"feedcourier/internal/storage"
	"feedcourier/internal/usage"
)

func main() {
	if err := run(); err != nil {
		logrus.Fatalf("usage-report error: %v", err)
	}
}

func run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	dateFlag := flag.String("date", "", "date to report usage for (YYYY-MM-DD, default yesterday)")
	flag.Parse()

	date := time.Now().UTC().AddDate(0, 0, -1)
	if *dateFlag != "" {
		parsed, err := time.Parse("2006-01-02", *dateFlag)
		if err != nil {
			return fmt.Errorf("invalid -date value %q: %w", *dateFlag, err)
		}
		date = parsed
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Storage.DataDir == "" {
		return fmt.Errorf("storage data dir is required")
	}
	if err := cfg.ValidateBilling(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	store := storage.New(afero.NewOsFs(), cfg.Storage.DataDir)
	reg := registry.New(store)
	recorder := billing.NewHTTPClient(cfg.Billing.APIBaseURL, cfg.Billing.APIKey)
	aggregator := usage.NewAggregator(store, reg, recorder, nil)

	logrus.Infof("Reporting usage for %s", date.Format("2006-01-02"))
	return aggregator.RunForDate(context.Background(), date)
}
