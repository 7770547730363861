package usage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedcourier/internal/model"
	"feedcourier/internal/registry"
	"feedcourier/internal/storage"
)

type usageCall struct {
	SubscriptionItemID string
	Quantity           int
	IdempotencyKey     string
}

// fakeRecorder mimics the provider-side idempotency: a repeated key is
// accepted but recorded only once.
type fakeRecorder struct {
	calls    []usageCall
	recorded map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{recorded: make(map[string]int)}
}

func (f *fakeRecorder) RecordUsage(ctx context.Context, subscriptionItemID string, quantity int, idempotencyKey string) error {
	f.calls = append(f.calls, usageCall{subscriptionItemID, quantity, idempotencyKey})
	if _, ok := f.recorded[idempotencyKey]; !ok {
		f.recorded[idempotencyKey] = quantity
	}
	return nil
}

var reportDate = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

func seedAccount(t *testing.T, store *storage.Storage, accountID string) {
	t.Helper()
	account := model.Account{Plan: model.Plan{SubscriptionItemID: "si_" + accountID}}
	require.NoError(t, store.StoreItem(model.AccountKey(accountID), &account))
}

func seedFeed(t *testing.T, store *storage.Storage, accountID, feedID string, status model.FeedStatus, deleted bool) {
	t.Helper()
	feed := model.Feed{DisplayName: feedID, Status: status, Deleted: deleted}
	require.NoError(t, store.StoreItem(model.FeedKey(accountID, feedID), &feed))
}

// seedDelivery writes a dated delivery record plus artifacts spread over
// status folders; counts include the catch-all message.
func seedDelivery(t *testing.T, store *storage.Storage, accountID, feedID, itemID string, sent, bounced int) {
	t.Helper()
	item := model.FeedItem{Title: itemID}
	require.NoError(t, store.StoreItem(model.DeliveryItemKey(accountID, feedID, itemID), &item))

	n := 0
	write := func(status model.Status, count int) {
		for i := 0; i < count; i++ {
			n++
			msg := model.Message{To: fmt.Sprintf("r%d@sub.test", n)}
			msg.AppendRecord(status, reportDate, "")
			key := model.MessageKey(accountID, feedID, status, itemID, fmt.Sprintf("m%d", n))
			require.NoError(t, store.StoreItem(key, &msg))
		}
	}
	write(model.StatusSent, sent)
	write(model.StatusBounced, bounced)
}

func TestRunForDateCountsDeliveredArtifacts(t *testing.T) {
	store := storage.New(afero.NewMemMapFs(), "data")
	seedAccount(t, store, "acct1")
	seedFeed(t, store, "acct1", "feed1", model.FeedStatusApproved, false)
	seedDelivery(t, store, "acct1", "feed1", "2026-08-31-aaaa", 3, 1)

	rec := newFakeRecorder()
	agg := NewAggregator(store, registry.New(store), rec, nil)
	require.NoError(t, agg.RunForDate(context.Background(), reportDate))

	require.Len(t, rec.calls, 1)
	// 4 artifacts minus the catch-all monitoring message.
	assert.Equal(t, usageCall{"si_acct1", 3, "acct1-2026-08-31"}, rec.calls[0])
}

func TestRunForDateIsIdempotentAcrossReruns(t *testing.T) {
	store := storage.New(afero.NewMemMapFs(), "data")
	seedAccount(t, store, "acct1")
	seedFeed(t, store, "acct1", "feed1", model.FeedStatusApproved, false)
	seedDelivery(t, store, "acct1", "feed1", "2026-08-31-aaaa", 2, 0)

	rec := newFakeRecorder()
	agg := NewAggregator(store, registry.New(store), rec, nil)
	require.NoError(t, agg.RunForDate(context.Background(), reportDate))
	require.NoError(t, agg.RunForDate(context.Background(), reportDate))

	// Two calls, one recorded usage: the idempotency key collides.
	assert.Len(t, rec.calls, 2)
	assert.Equal(t, rec.calls[0].IdempotencyKey, rec.calls[1].IdempotencyKey)
	assert.Len(t, rec.recorded, 1)
}

func TestRunForDateSkipsOtherDates(t *testing.T) {
	store := storage.New(afero.NewMemMapFs(), "data")
	seedAccount(t, store, "acct1")
	seedFeed(t, store, "acct1", "feed1", model.FeedStatusApproved, false)
	seedDelivery(t, store, "acct1", "feed1", "2026-08-30-bbbb", 5, 0)

	rec := newFakeRecorder()
	agg := NewAggregator(store, registry.New(store), rec, nil)
	require.NoError(t, agg.RunForDate(context.Background(), reportDate))

	assert.Empty(t, rec.calls)
}

func TestRunForDateSkipsUnapprovedAndDeletedFeeds(t *testing.T) {
	store := storage.New(afero.NewMemMapFs(), "data")
	seedAccount(t, store, "acct1")
	seedFeed(t, store, "acct1", "pending", model.FeedStatusPendingApproval, false)
	seedDelivery(t, store, "acct1", "pending", "2026-08-31-aaaa", 4, 0)
	seedFeed(t, store, "acct1", "gone", model.FeedStatusApproved, true)
	seedDelivery(t, store, "acct1", "gone", "2026-08-31-bbbb", 4, 0)

	rec := newFakeRecorder()
	agg := NewAggregator(store, registry.New(store), rec, nil)
	require.NoError(t, agg.RunForDate(context.Background(), reportDate))

	assert.Empty(t, rec.calls)
}

func TestRunForDateIsolatesAccountFailures(t *testing.T) {
	store := storage.New(afero.NewMemMapFs(), "data")
	// Broken account: directory exists but no account.json.
	require.NoError(t, store.StoreItem(model.FeedKey("broken", "feed1"), &model.Feed{}))
	seedAccount(t, store, "healthy")
	seedFeed(t, store, "healthy", "feed1", model.FeedStatusApproved, false)
	seedDelivery(t, store, "healthy", "feed1", "2026-08-31-cccc", 2, 0)

	rec := newFakeRecorder()
	agg := NewAggregator(store, registry.New(store), rec, nil)
	require.NoError(t, agg.RunForDate(context.Background(), reportDate))

	require.Len(t, rec.calls, 1)
	assert.Equal(t, "si_healthy", rec.calls[0].SubscriptionItemID)
}
