package delivery

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"feedcourier/internal/model"
)

// InboxItem is one pending item from the feed's inbox folder. Name is the
// inbox file to purge after the item's delivery record is written.
type InboxItem struct {
	Name string
	Item model.FeedItem
}

type deliveryTimestamp struct {
	DeliveredAt time.Time `json:"deliveredAt"`
}

// Prepare materializes one outbox artifact per (item, recipient) pair for
// every confirmed subscriber plus the catch-all address, then moves each
// item's content into its retained delivery record and purges the inbox
// source. Writes are idempotent on identical (item, recipient) keys, so a
// failed pass is safely retried on the next scheduled run; any store error
// aborts the whole pass.
func (p *Pipeline) Prepare(accountID, feedID string, account model.Account, feed model.Feed, items []InboxItem, subscribers []model.Subscriber) error {
	recipients := make([]string, 0, len(subscribers)+1)
	for _, sub := range subscribers {
		if sub.Confirmed {
			recipients = append(recipients, sub.Email)
		}
	}
	recipients = append(recipients, p.cfg.CatchAllAddress)

	now := time.Now()
	for _, inbox := range items {
		itemID := model.ItemID(inbox.Item, now)

		for _, rcpt := range recipients {
			key := model.MessageKey(accountID, feedID, model.StatusPrepared, itemID, model.MessageID(rcpt))
			exists, err := p.store.HasItem(key)
			if err != nil {
				return fmt.Errorf("failed to check outbox key %s: %w", key, err)
			}
			if exists {
				continue
			}

			msg := renderMessage(feed, inbox.Item, rcpt, account.Plan.PricePerEmailCents)
			msg.AppendRecord(model.StatusPrepared, now, "")
			if err := p.store.StoreItem(key, &msg); err != nil {
				return fmt.Errorf("failed to store outbox message %s: %w", key, err)
			}
			if p.metrics != nil {
				p.metrics.EmailsPrepared.Inc()
			}
		}

		// All recipients written; record the delivery so billing survives
		// artifact purge, then drop the inbox source.
		if err := p.store.StoreItem(model.DeliveryItemKey(accountID, feedID, itemID), &inbox.Item); err != nil {
			return fmt.Errorf("failed to store delivery record for %s: %w", itemID, err)
		}
		if err := p.store.StoreItem(model.DeliveryTimestampKey(accountID, feedID, itemID), &deliveryTimestamp{DeliveredAt: now}); err != nil {
			return fmt.Errorf("failed to store delivery timestamp for %s: %w", itemID, err)
		}
		if inbox.Name != "" {
			if err := p.store.RemoveItem(model.InboxDir(accountID, feedID) + "/" + inbox.Name); err != nil {
				return fmt.Errorf("failed to purge inbox item %s: %w", inbox.Name, err)
			}
		}

		logrus.WithFields(logrus.Fields{
			"account":    accountID,
			"feed":       feedID,
			"item":       itemID,
			"recipients": len(recipients),
		}).Info("Prepared outbox item")
	}

	return nil
}

func renderMessage(feed model.Feed, item model.FeedItem, recipient string, priceCents int) model.Message {
	body := fmt.Sprintf("%s\n<hr>\n<p>Read online: <a href=%q>%s</a></p>\n", item.Content, item.Link, item.Link)
	return model.Message{
		Subject:            fmt.Sprintf("%s: %s", feed.DisplayName, item.Title),
		Body:               body,
		To:                 recipient,
		PricePerEmailCents: priceCents,
	}
}
