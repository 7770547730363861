package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// FeedStatus is the moderation state of a feed. Only approved feeds are
// checked and billed.
type FeedStatus string

const (
	FeedStatusPendingApproval FeedStatus = "pending-approval"
	FeedStatusApproved        FeedStatus = "approved"
	FeedStatusRejected        FeedStatus = "rejected"
)

// Plan carries the billing terms attached to an account.
type Plan struct {
	Name               string `json:"name"`
	PricePerEmailCents int    `json:"pricePerEmailCents"`
	SubscriptionItemID string `json:"subscriptionItemId"`
}

// Account is the read-only account metadata the pipeline consumes. Account
// CRUD lives elsewhere; this process only loads account.json.
type Account struct {
	Email string `json:"email"`
	Plan  Plan   `json:"plan"`
}

// Feed is the read-only feed metadata the pipeline consumes.
type Feed struct {
	DisplayName string     `json:"displayName"`
	ReplyTo     string     `json:"replyTo"`
	Status      FeedStatus `json:"status"`
	Deleted     bool       `json:"deleted"`
}

// Subscriber is one entry in a feed's subscriber list. Only confirmed
// subscribers receive email.
type Subscriber struct {
	Email     string `json:"email"`
	Confirmed bool   `json:"confirmed"`
}

// FeedItem is one newly fetched item from the feed, handed over by the RSS
// poller through the feed's inbox folder.
type FeedItem struct {
	Title   string    `json:"title"`
	Link    string    `json:"link"`
	Content string    `json:"content"`
	PubDate time.Time `json:"pubDate"`
}

// ItemID names the item's directory under outbox, the status folders, and
// deliveries. The date prefix is what the usage aggregator selects on; the
// content hash keeps preparation idempotent across scheduler runs.
func ItemID(item FeedItem, deliveryDate time.Time) string {
	sum := sha256.Sum256([]byte(item.Title + item.Content + item.PubDate.UTC().Format(time.RFC3339)))
	return fmt.Sprintf("%s-%s", deliveryDate.UTC().Format("2006-01-02"), hex.EncodeToString(sum[:])[:16])
}

// HasDatePrefix reports whether an item ID was assigned on the given day.
func HasDatePrefix(itemID string, date time.Time) bool {
	prefix := date.UTC().Format("2006-01-02") + "-"
	return len(itemID) > len(prefix) && itemID[:len(prefix)] == prefix
}
