package registry

import (
	"errors"
	"fmt"

	"feedcourier/internal/model"
	"feedcourier/internal/storage"
)

// Registry reads account, feed and subscriber metadata from the store. The
// CRUD surface that writes these files belongs to the web application; the
// pipeline only ever loads them.
type Registry struct {
	store *storage.Storage
}

// New creates a Registry on the given store.
func New(store *storage.Storage) *Registry {
	return &Registry{store: store}
}

// ListAccountIDs returns every account directory.
func (r *Registry) ListAccountIDs() ([]string, error) {
	ids, err := r.store.ListSubdirectories(model.AccountsRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return ids, nil
}

// LoadAccount reads one account's metadata.
func (r *Registry) LoadAccount(accountID string) (model.Account, error) {
	var account model.Account
	if err := r.store.LoadItem(model.AccountKey(accountID), &account); err != nil {
		return account, fmt.Errorf("failed to load account %s: %w", accountID, err)
	}
	return account, nil
}

// ListFeedIDs returns every feed directory of an account.
func (r *Registry) ListFeedIDs(accountID string) ([]string, error) {
	ids, err := r.store.ListSubdirectories(model.FeedsDir(accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds of %s: %w", accountID, err)
	}
	return ids, nil
}

// LoadFeed reads one feed's metadata.
func (r *Registry) LoadFeed(accountID, feedID string) (model.Feed, error) {
	var feed model.Feed
	if err := r.store.LoadItem(model.FeedKey(accountID, feedID), &feed); err != nil {
		return feed, fmt.Errorf("failed to load feed %s/%s: %w", accountID, feedID, err)
	}
	return feed, nil
}

// LoadSubscribers reads the feed's subscriber list. A feed without one has
// no subscribers yet, which is not an error.
func (r *Registry) LoadSubscribers(accountID, feedID string) ([]model.Subscriber, error) {
	var subscribers []model.Subscriber
	if err := r.store.LoadItem(model.SubscribersKey(accountID, feedID), &subscribers); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load subscribers of %s/%s: %w", accountID, feedID, err)
	}
	return subscribers, nil
}

// LoadInboxItems reads the feed's pending items dropped off by the poller.
func (r *Registry) LoadInboxItems(accountID, feedID string) ([]model.FeedItem, []string, error) {
	dir := model.InboxDir(accountID, feedID)
	names, err := r.store.ListItems(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list inbox of %s/%s: %w", accountID, feedID, err)
	}

	items := make([]model.FeedItem, 0, len(names))
	for _, name := range names {
		var item model.FeedItem
		if err := r.store.LoadItem(dir+"/"+name, &item); err != nil {
			return nil, nil, fmt.Errorf("failed to load inbox item %s: %w", name, err)
		}
		items = append(items, item)
	}
	return items, names, nil
}
