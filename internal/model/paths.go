package model

import "path"

// Persisted layout:
//
//	accounts/<acct>/account.json
//	accounts/<acct>/feeds/<feed>/feed.json
//	accounts/<acct>/feeds/<feed>/subscribers.json
//	accounts/<acct>/feeds/<feed>/inbox/<name>.json
//	accounts/<acct>/feeds/<feed>/outbox/<item>/<recipient>.json
//	accounts/<acct>/feeds/<feed>/postfixed/<item>/<recipient>.json
//	accounts/<acct>/feeds/<feed>/{sent,bounced,deferred}/<item>/<recipient>.json
//	accounts/<acct>/feeds/<feed>/deliveries/<item>/{item.json,timestamp.json}
//	qid-index/<queueId>.json
//
// The directory a message artifact sits in is its status; rename is the sole
// transition primitive, so a crash at any point leaves a recoverable tree.

const (
	AccountsRoot   = "accounts"
	QueueIndexRoot = "qid-index"
)

// AccountDir returns the root directory of one account.
func AccountDir(accountID string) string {
	return path.Join(AccountsRoot, accountID)
}

// AccountKey returns the storage key of the account metadata.
func AccountKey(accountID string) string {
	return path.Join(AccountDir(accountID), "account.json")
}

// FeedsDir returns the directory holding an account's feeds.
func FeedsDir(accountID string) string {
	return path.Join(AccountDir(accountID), "feeds")
}

// FeedDir returns the root directory of one feed.
func FeedDir(accountID, feedID string) string {
	return path.Join(FeedsDir(accountID), feedID)
}

// FeedKey returns the storage key of the feed metadata.
func FeedKey(accountID, feedID string) string {
	return path.Join(FeedDir(accountID, feedID), "feed.json")
}

// SubscribersKey returns the storage key of the feed's subscriber list.
func SubscribersKey(accountID, feedID string) string {
	return path.Join(FeedDir(accountID, feedID), "subscribers.json")
}

// InboxDir holds items dropped off by the RSS poller, pending preparation.
func InboxDir(accountID, feedID string) string {
	return path.Join(FeedDir(accountID, feedID), "inbox")
}

// StatusDir returns the feed-level folder for one lifecycle state. The
// outbox folder is StatusDir(..., StatusPrepared) in disguise; it keeps its
// historical name.
func StatusDir(accountID, feedID string, status Status) string {
	name := string(status)
	if status == StatusPrepared {
		name = "outbox"
	}
	return path.Join(FeedDir(accountID, feedID), name)
}

// ItemDir returns the per-item folder inside one status folder.
func ItemDir(accountID, feedID string, status Status, itemID string) string {
	return path.Join(StatusDir(accountID, feedID, status), itemID)
}

// MessageKey returns the storage key of one message artifact.
func MessageKey(accountID, feedID string, status Status, itemID, messageID string) string {
	return path.Join(ItemDir(accountID, feedID, status, itemID), messageID+".json")
}

// DeliveriesDir holds the retained per-item delivery records. These survive
// artifact purge so billing counts are not lost.
func DeliveriesDir(accountID, feedID string) string {
	return path.Join(FeedDir(accountID, feedID), "deliveries")
}

// DeliveryDir returns the retained record directory for one item.
func DeliveryDir(accountID, feedID, itemID string) string {
	return path.Join(DeliveriesDir(accountID, feedID), itemID)
}

// DeliveryItemKey returns the storage key of the delivered item's content snapshot.
func DeliveryItemKey(accountID, feedID, itemID string) string {
	return path.Join(DeliveryDir(accountID, feedID, itemID), "item.json")
}

// DeliveryTimestampKey returns the storage key of the delivery timestamp.
func DeliveryTimestampKey(accountID, feedID, itemID string) string {
	return path.Join(DeliveryDir(accountID, feedID, itemID), "timestamp.json")
}

// QueueIndexKey returns the storage key of one queue-ID index entry.
func QueueIndexKey(queueID string) string {
	return path.Join(QueueIndexRoot, queueID+".json")
}
