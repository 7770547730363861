package report

import (
	"fmt"
	"sort"
	"strings"

	"feedcourier/internal/model"
	"feedcourier/internal/storage"
)

// ItemReport is the per-item delivery summary served to the account-facing
// API: how many messages sit in each (classified) status.
type ItemReport struct {
	ItemID       string         `json:"itemId"`
	StatusCounts map[string]int `json:"statusCounts"`
}

// Builder assembles delivery reports from the feed's status folders.
type Builder struct {
	store *storage.Storage
}

// NewBuilder creates a report Builder.
func NewBuilder(store *storage.Storage) *Builder {
	return &Builder{store: store}
}

// FeedReport builds one report per item that currently has messages in any
// status folder. The classifier is applied to each message's latest log
// record, so over-quota deferrals show up as mailbox-full.
func (b *Builder) FeedReport(accountID, feedID string) ([]ItemReport, error) {
	byItem := make(map[string]map[string]int)

	folders := append([]model.Status{model.StatusPrepared}, model.StatusFolders...)
	for _, status := range folders {
		itemIDs, err := b.store.ListSubdirectories(model.StatusDir(accountID, feedID, status))
		if err != nil {
			return nil, fmt.Errorf("failed to list %s folder: %w", status, err)
		}
		for _, itemID := range itemIDs {
			files, err := b.store.ListItems(model.ItemDir(accountID, feedID, status, itemID))
			if err != nil {
				return nil, fmt.Errorf("failed to list item %s: %w", itemID, err)
			}
			for _, file := range files {
				reported, err := b.classifyMessage(accountID, feedID, status, itemID, strings.TrimSuffix(file, ".json"))
				if err != nil {
					return nil, err
				}
				if byItem[itemID] == nil {
					byItem[itemID] = make(map[string]int)
				}
				byItem[itemID][reported.String()]++
			}
		}
	}

	reports := make([]ItemReport, 0, len(byItem))
	for itemID, counts := range byItem {
		reports = append(reports, ItemReport{ItemID: itemID, StatusCounts: counts})
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].ItemID < reports[j].ItemID })
	return reports, nil
}

func (b *Builder) classifyMessage(accountID, feedID string, status model.Status, itemID, messageID string) (model.Status, error) {
	var msg model.Message
	key := model.MessageKey(accountID, feedID, status, itemID, messageID)
	if err := b.store.LoadItem(key, &msg); err != nil {
		return "", fmt.Errorf("failed to load %s: %w", key, err)
	}
	last := msg.LogRecords[len(msg.LogRecords)-1]
	return Classify(last.Status, last.Message), nil
}
