package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"feedcourier/internal/billing"
	"feedcourier/internal/metrics"
	"feedcourier/internal/model"
	"feedcourier/internal/registry"
	"feedcourier/internal/storage"
)

// Aggregator counts the emails delivered on a given date per paying account
// and reports the totals to the billing provider. Re-running it is safe: the
// idempotency key accountID-date makes the second report a provider-side
// no-op.
type Aggregator struct {
	store    *storage.Storage
	registry *registry.Registry
	recorder billing.UsageRecorder
	metrics  *metrics.Metrics
}

// NewAggregator creates an Aggregator. metrics may be nil.
func NewAggregator(store *storage.Storage, reg *registry.Registry, recorder billing.UsageRecorder, m *metrics.Metrics) *Aggregator {
	return &Aggregator{store: store, registry: reg, recorder: recorder, metrics: m}
}

// RunForDate aggregates and reports usage for every account. A failing
// account is logged and skipped; the batch continues.
func (a *Aggregator) RunForDate(ctx context.Context, date time.Time) error {
	accountIDs, err := a.registry.ListAccountIDs()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	for _, accountID := range accountIDs {
		if err := a.reportAccount(ctx, accountID, date); err != nil {
			logrus.Errorf("Failed to report usage for account %s: %v", accountID, err)
		}
	}
	return nil
}

func (a *Aggregator) reportAccount(ctx context.Context, accountID string, date time.Time) error {
	account, err := a.registry.LoadAccount(accountID)
	if err != nil {
		return err
	}

	total, err := a.countAccount(accountID, date)
	if err != nil {
		return err
	}
	if total == 0 {
		logrus.Debugf("No usage for account %s on %s", accountID, date.Format("2006-01-02"))
		return nil
	}

	key := fmt.Sprintf("%s-%s", accountID, date.UTC().Format("2006-01-02"))
	if err := a.recorder.RecordUsage(ctx, account.Plan.SubscriptionItemID, total, key); err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	if a.metrics != nil {
		a.metrics.UsageReports.Inc()
	}

	logrus.WithFields(logrus.Fields{
		"account":  accountID,
		"date":     date.UTC().Format("2006-01-02"),
		"quantity": total,
	}).Info("Reported account usage")
	return nil
}

// countAccount sums artifact counts across the status folders of every
// approved, non-deleted feed, for items whose delivery record carries the
// given date. One catch-all message per item is subtracted; it monitors
// delivery health and is not billable.
func (a *Aggregator) countAccount(accountID string, date time.Time) (int, error) {
	feedIDs, err := a.registry.ListFeedIDs(accountID)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, feedID := range feedIDs {
		feed, err := a.registry.LoadFeed(accountID, feedID)
		if err != nil {
			return 0, err
		}
		if feed.Status != model.FeedStatusApproved || feed.Deleted {
			continue
		}

		itemIDs, err := a.store.ListSubdirectories(model.DeliveriesDir(accountID, feedID))
		if err != nil {
			return 0, fmt.Errorf("failed to list deliveries of %s/%s: %w", accountID, feedID, err)
		}

		for _, itemID := range itemIDs {
			if !model.HasDatePrefix(itemID, date) {
				continue
			}
			count, err := a.countItem(accountID, feedID, itemID)
			if err != nil {
				return 0, err
			}
			if count > 0 {
				// One artifact per item belongs to the catch-all address.
				total += count - 1
			}
		}
	}
	return total, nil
}

func (a *Aggregator) countItem(accountID, feedID, itemID string) (int, error) {
	count := 0
	for _, status := range model.StatusFolders {
		files, err := a.store.ListItems(model.ItemDir(accountID, feedID, status, itemID))
		if err != nil {
			return 0, fmt.Errorf("failed to list %s/%s: %w", status, itemID, err)
		}
		count += len(files)
	}
	return count, nil
}
