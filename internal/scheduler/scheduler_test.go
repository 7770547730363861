package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedcourier/internal/config"
	"feedcourier/internal/delivery"
	"feedcourier/internal/model"
	"feedcourier/internal/registry"
	"feedcourier/internal/storage"
	"feedcourier/internal/transport"
)

type stubTransport struct {
	counter int
}

func (s *stubTransport) Send(ctx context.Context, email transport.Email) (string, error) {
	s.counter++
	return fmt.Sprintf("2.0.0 Ok: queued as %011X", s.counter), nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *storage.Storage) {
	t.Helper()
	store := storage.New(afero.NewMemMapFs(), "data")
	pipeline := delivery.NewPipeline(store, &stubTransport{}, nil, delivery.Config{
		FromAddress:     "digest@courier.test",
		BounceAddress:   "bounces@courier.test",
		CatchAllAddress: "monitor@courier.test",
	})
	cfg := &config.SchedulerConfig{IntervalMinutes: 60}
	return NewScheduler(cfg, registry.New(store), pipeline), store
}

func TestSchedulerRestart(t *testing.T) {
	sched, _ := newTestScheduler(t)

	require.NoError(t, sched.Start())
	assert.True(t, sched.IsRunning())

	require.NoError(t, sched.Stop())
	assert.False(t, sched.IsRunning())

	require.NoError(t, sched.Start())
	assert.True(t, sched.IsRunning())

	// context should be active again after the restart
	require.NotNil(t, sched.ctx)
	assert.NoError(t, sched.ctx.Err())
	sched.Stop()
}

func TestSchedulerDoubleStart(t *testing.T) {
	sched, _ := newTestScheduler(t)

	require.NoError(t, sched.Start())
	assert.Error(t, sched.Start())
	sched.Stop()
}

func TestRunOncePreparesAndDispatchesApprovedFeed(t *testing.T) {
	sched, store := newTestScheduler(t)

	account := model.Account{Plan: model.Plan{PricePerEmailCents: 2, SubscriptionItemID: "si_1"}}
	require.NoError(t, store.StoreItem(model.AccountKey("acct1"), &account))

	feed := model.Feed{DisplayName: "My Blog", ReplyTo: "author@blog.test", Status: model.FeedStatusApproved}
	require.NoError(t, store.StoreItem(model.FeedKey("acct1", "feed1"), &feed))

	subscribers := []model.Subscriber{{Email: "one@sub.test", Confirmed: true}}
	require.NoError(t, store.StoreItem(model.SubscribersKey("acct1", "feed1"), &subscribers))

	item := model.FeedItem{Title: "A", Link: "https://blog.test/a", Content: "<p>a</p>", PubDate: time.Now()}
	require.NoError(t, store.StoreItem(model.InboxDir("acct1", "feed1")+"/item.json", &item))

	require.NoError(t, sched.RunOnce())

	// Prepared and dispatched in one pass: subscriber plus catch-all, both
	// out of the outbox and awaiting relay log lines.
	outbox, err := store.ListSubdirectories(model.StatusDir("acct1", "feed1", model.StatusPrepared))
	require.NoError(t, err)
	assert.Empty(t, outbox)

	itemIDs, err := store.ListSubdirectories(model.StatusDir("acct1", "feed1", model.StatusPostfixed))
	require.NoError(t, err)
	require.Len(t, itemIDs, 1)

	files, err := store.ListItems(model.ItemDir("acct1", "feed1", model.StatusPostfixed, itemIDs[0]))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestRunOnceSkipsPendingFeed(t *testing.T) {
	sched, store := newTestScheduler(t)

	account := model.Account{}
	require.NoError(t, store.StoreItem(model.AccountKey("acct1"), &account))
	feed := model.Feed{Status: model.FeedStatusPendingApproval}
	require.NoError(t, store.StoreItem(model.FeedKey("acct1", "feed1"), &feed))
	item := model.FeedItem{Title: "A"}
	require.NoError(t, store.StoreItem(model.InboxDir("acct1", "feed1")+"/item.json", &item))

	require.NoError(t, sched.RunOnce())

	// Inbox untouched, nothing prepared.
	ok, err := store.HasItem(model.InboxDir("acct1", "feed1") + "/item.json")
	require.NoError(t, err)
	assert.True(t, ok)

	outbox, err := store.ListSubdirectories(model.StatusDir("acct1", "feed1", model.StatusPrepared))
	require.NoError(t, err)
	assert.Empty(t, outbox)
}
