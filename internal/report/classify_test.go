package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"feedcourier/internal/model"
)

func TestClassifyMailboxFullPhrasings(t *testing.T) {
	phrasings := []string{
		"452 4.2.2 Mailbox full",
		"mailbox is full: retry timeout exceeded",
		"452-4.2.2 The email account that you tried to reach is over quota",
		"552 5.2.2 Quota exceeded (mailbox for user is full)",
		"552 5.2.2 user@example.org: Exceeded storage allocation",
	}
	for _, message := range phrasings {
		assert.Equal(t, model.StatusMailboxFull, Classify(model.StatusDeferred, message), message)
	}
}

func TestClassifyTransientDeferralPassesThrough(t *testing.T) {
	assert.Equal(t, model.StatusDeferred, Classify(model.StatusDeferred, "connect to mx.b.com[10.0.0.1]:25: Connection timed out"))
}

func TestClassifyOnlyRewritesDeferred(t *testing.T) {
	// The phrasing alone is not enough; bounces stay bounces.
	assert.Equal(t, model.StatusBounced, Classify(model.StatusBounced, "552 5.2.2 Mailbox full"))
	assert.Equal(t, model.StatusSent, Classify(model.StatusSent, "250 2.0.0 OK"))
}
