package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// LogRecord is one entry in a message's append-only delivery log.
type LogRecord struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message,omitempty"`
}

// Message is the persisted artifact for one (feed item, recipient) pair.
type Message struct {
	Subject            string      `json:"subject"`
	Body               string      `json:"body"`
	To                 string      `json:"to"`
	PricePerEmailCents int         `json:"pricePerEmailCents"`
	LogRecords         []LogRecord `json:"logRecords"`
}

// CurrentStatus returns the status of the most recent log record.
func (m *Message) CurrentStatus() Status {
	if len(m.LogRecords) == 0 {
		return StatusPrepared
	}
	return m.LogRecords[len(m.LogRecords)-1].Status
}

// AppendRecord adds a log record to the message's delivery log.
func (m *Message) AppendRecord(status Status, at time.Time, message string) {
	m.LogRecords = append(m.LogRecords, LogRecord{Status: status, Timestamp: at, Message: message})
}

// QueueIndexEntry correlates a relay-assigned queue ID with the stored
// artifact it refers to. At most one live entry exists per queue ID; the
// entry is deleted on the first terminal status line for that ID.
type QueueIndexEntry struct {
	AccountID     string `json:"accountId"`
	FeedID        string `json:"feedId"`
	ItemID        string `json:"itemId"`
	MessageID     string `json:"messageId"`
	CurrentStatus Status `json:"currentStatus"`
}

// MessageID derives the stable per-recipient artifact name from an email
// address.
func MessageID(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])[:16]
}
