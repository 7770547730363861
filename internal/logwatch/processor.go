package logwatch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"feedcourier/internal/metrics"
	"feedcourier/internal/model"
	"feedcourier/internal/storage"
)

// Processor consumes the relay's delivery log and applies each disposition
// to the tracked message artifact it correlates with. It is the only writer
// that moves artifacts out of the postfixed/status folders, so no locking is
// needed beyond the filesystem rename.
type Processor struct {
	store   *storage.Storage
	buffer  LineBuffer
	metrics *metrics.Metrics
}

// NewProcessor creates a Processor on the given store. metrics may be nil.
func NewProcessor(store *storage.Storage, m *metrics.Metrics) *Processor {
	return &Processor{store: store, metrics: m}
}

// Run consumes the stream until EOF or context cancellation. Malformed lines
// and per-line failures are logged and skipped; only read errors end the run.
func (p *Processor) Run(ctx context.Context, r io.Reader) error {
	chunk := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			if pending := p.buffer.Pending(); pending != "" {
				logrus.Warnf("Dropping partial log line on shutdown: %q", pending)
			}
			return ctx.Err()
		default:
		}

		n, err := r.Read(chunk)
		if n > 0 {
			for _, line := range p.buffer.ProcessChunk(chunk[:n]) {
				if lineErr := p.HandleLine(line); lineErr != nil {
					logrus.Errorf("Failed to process log line: %v", lineErr)
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read log stream: %w", err)
		}
	}
}

// HandleLine applies a single whole log line. Non-disposition lines and
// untracked queue IDs are silently skipped. A tracked queue ID whose
// artifact is missing is an error; the index entry is kept for inspection.
func (p *Processor) HandleLine(line string) error {
	if p.metrics != nil {
		p.metrics.LogLinesProcessed.Inc()
	}

	parsed, matched, err := ParseDeliveryLine(line)
	if !matched {
		return nil
	}
	if err != nil {
		if p.metrics != nil {
			p.metrics.LogLinesSkipped.Inc()
		}
		logrus.Warnf("Skipping malformed delivery line: %v", err)
		return nil
	}

	indexKey := model.QueueIndexKey(parsed.QueueID)
	var entry model.QueueIndexEntry
	if err := p.store.LoadItem(indexKey, &entry); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Not a tracked message; expected for unrelated relay traffic
			// and for duplicate terminal lines after the entry was removed.
			logrus.Debugf("No tracked message for queue ID %s, skipping", parsed.QueueID)
			return nil
		}
		return fmt.Errorf("failed to load index entry for %s: %w", parsed.QueueID, err)
	}

	return p.apply(parsed, entry)
}

func (p *Processor) apply(parsed DeliveryLine, entry model.QueueIndexEntry) error {
	oldKey := model.MessageKey(entry.AccountID, entry.FeedID, entry.CurrentStatus, entry.ItemID, entry.MessageID)

	var msg model.Message
	if err := p.store.LoadItem(oldKey, &msg); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("index entry for queue ID %s points at missing artifact %s", parsed.QueueID, oldKey)
		}
		return fmt.Errorf("failed to load artifact %s: %w", oldKey, err)
	}

	msg.AppendRecord(parsed.Status, parsed.Timestamp, parsed.Message)
	if err := p.store.StoreItem(oldKey, &msg); err != nil {
		return fmt.Errorf("failed to store artifact %s: %w", oldKey, err)
	}

	if parsed.Status != entry.CurrentStatus {
		newKey := model.MessageKey(entry.AccountID, entry.FeedID, parsed.Status, entry.ItemID, entry.MessageID)
		if err := p.store.RenameItem(oldKey, newKey); err != nil {
			return fmt.Errorf("failed to move artifact to %s: %w", newKey, err)
		}
		if err := p.purgeEmptyItemDir(entry, entry.CurrentStatus); err != nil {
			logrus.Warnf("Failed to purge empty status folder: %v", err)
		}
		if p.metrics != nil {
			p.metrics.StatusTransitions.WithLabelValues(parsed.Status.String()).Inc()
		}
	}

	indexKey := model.QueueIndexKey(parsed.QueueID)
	if parsed.Status.IsTerminal() {
		if err := p.store.RemoveItem(indexKey); err != nil {
			return fmt.Errorf("failed to remove index entry for %s: %w", parsed.QueueID, err)
		}
	} else if parsed.Status != entry.CurrentStatus {
		entry.CurrentStatus = parsed.Status
		if err := p.store.StoreItem(indexKey, &entry); err != nil {
			return fmt.Errorf("failed to update index entry for %s: %w", parsed.QueueID, err)
		}
	}

	if p.metrics != nil {
		p.metrics.LogLinesApplied.Inc()
	}
	logrus.WithFields(logrus.Fields{
		"queue_id": parsed.QueueID,
		"status":   parsed.Status,
		"item":     entry.ItemID,
	}).Info("Recorded delivery status")
	return nil
}

// purgeEmptyItemDir removes the per-item folder inside the old status folder
// once the last message has moved out of it.
func (p *Processor) purgeEmptyItemDir(entry model.QueueIndexEntry, status model.Status) error {
	dir := model.ItemDir(entry.AccountID, entry.FeedID, status, entry.ItemID)
	empty, err := p.store.HasNoItems(dir)
	if err != nil {
		return err
	}
	if empty {
		return p.store.RemoveTree(dir)
	}
	return nil
}
