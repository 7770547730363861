package report

import (
	"regexp"

	"feedcourier/internal/model"
)

// mailboxFullPattern matches the relay response phrasings that mean the
// recipient's mailbox is over quota. Those deferrals are structural, not
// transient, and reporting wants them told apart.
var mailboxFullPattern = regexp.MustCompile(`(?i)mailbox (is )?full|over quota|quota exceeded|exceeded storage allocation`)

// Classify maps a raw status plus the relay's free-text message to the
// status shown in reports. Deferred messages with over-quota phrasing become
// the synthetic mailbox-full status; everything else passes through. The raw
// status stays the source of truth for the state machine and is never
// overwritten with the synthetic one.
func Classify(status model.Status, message string) model.Status {
	if status == model.StatusDeferred && mailboxFullPattern.MatchString(message) {
		return model.StatusMailboxFull
	}
	return status
}
