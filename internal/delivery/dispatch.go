package delivery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"feedcourier/internal/model"
	"feedcourier/internal/transport"
)

// Report summarizes one dispatch pass over a feed's outbox.
type Report struct {
	SentExpected int `json:"sentExpected"`
	Sent         int `json:"sent"`
	Failed       int `json:"failed"`
}

// Dispatch walks the feed's outbox and hands every pending artifact to the
// relay. A successful hand-off appends a postfixed log record, renames the
// artifact into the postfixed folder and writes the queue-ID index entry; a
// failed one is counted and left in the outbox for the next run. Item
// directories are purged once emptied.
func (p *Pipeline) Dispatch(ctx context.Context, accountID, feedID string, feed model.Feed) (Report, error) {
	start := time.Now()
	log := logrus.WithFields(logrus.Fields{
		"run_id":  uuid.NewString(),
		"account": accountID,
		"feed":    feedID,
	})

	var report Report
	itemIDs, err := p.store.ListSubdirectories(model.StatusDir(accountID, feedID, model.StatusPrepared))
	if err != nil {
		return report, fmt.Errorf("failed to list outbox: %w", err)
	}

	for _, itemID := range itemIDs {
		itemDir := model.ItemDir(accountID, feedID, model.StatusPrepared, itemID)
		files, err := p.store.ListItems(itemDir)
		if err != nil {
			log.Errorf("Failed to list outbox item %s: %v", itemID, err)
			report.Failed++
			continue
		}

		for _, file := range files {
			report.SentExpected++
			messageID := strings.TrimSuffix(file, ".json")
			if err := p.dispatchOne(ctx, accountID, feedID, feed, itemID, messageID); err != nil {
				log.Errorf("Failed to dispatch %s/%s: %v", itemID, messageID, err)
				report.Failed++
				if p.metrics != nil {
					p.metrics.DispatchFailures.Inc()
				}
				continue
			}
			report.Sent++
			if p.metrics != nil {
				p.metrics.EmailsDispatched.Inc()
			}
		}

		empty, err := p.store.HasNoItems(itemDir)
		if err != nil {
			log.Errorf("Failed to check outbox item %s: %v", itemID, err)
			continue
		}
		if empty {
			if err := p.store.RemoveTree(itemDir); err != nil {
				log.Errorf("Failed to purge outbox item %s: %v", itemID, err)
			}
		}
	}

	if p.metrics != nil {
		p.metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	}
	log.WithFields(logrus.Fields{
		"sent_expected": report.SentExpected,
		"sent":          report.Sent,
		"failed":        report.Failed,
	}).Info("Dispatch pass completed")
	return report, nil
}

func (p *Pipeline) dispatchOne(ctx context.Context, accountID, feedID string, feed model.Feed, itemID, messageID string) error {
	outboxKey := model.MessageKey(accountID, feedID, model.StatusPrepared, itemID, messageID)

	var msg model.Message
	if err := p.store.LoadItem(outboxKey, &msg); err != nil {
		return fmt.Errorf("failed to load artifact: %w", err)
	}

	acceptance, err := p.transport.Send(ctx, transport.Email{
		From:       p.cfg.FromAddress,
		To:         msg.To,
		ReplyTo:    feed.ReplyTo,
		ReturnPath: transport.VerpReturnPath(p.cfg.BounceAddress, msg.To),
		Subject:    msg.Subject,
		Body:       msg.Body,
	})
	if err != nil {
		return fmt.Errorf("relay send failed: %w", err)
	}

	// No queue ID means no way to track the message; leave it in the outbox
	// so the next run retries it.
	queueID, err := transport.ExtractQueueID(acceptance)
	if err != nil {
		return err
	}

	msg.AppendRecord(model.StatusPostfixed, time.Now(), "queued as "+queueID)
	if err := p.store.StoreItem(outboxKey, &msg); err != nil {
		return fmt.Errorf("failed to store artifact: %w", err)
	}

	postfixedKey := model.MessageKey(accountID, feedID, model.StatusPostfixed, itemID, messageID)
	if err := p.store.RenameItem(outboxKey, postfixedKey); err != nil {
		return fmt.Errorf("failed to move artifact to postfixed: %w", err)
	}

	entry := model.QueueIndexEntry{
		AccountID:     accountID,
		FeedID:        feedID,
		ItemID:        itemID,
		MessageID:     messageID,
		CurrentStatus: model.StatusPostfixed,
	}
	if err := p.store.StoreItem(model.QueueIndexKey(queueID), &entry); err != nil {
		return fmt.Errorf("failed to store queue-ID index entry: %w", err)
	}

	return nil
}
