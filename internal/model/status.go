package model

import "fmt"

// Status is the lifecycle state of an outbox message. The artifact's storage
// path encodes the current status; moving the file between status folders is
// the only state transition.
type Status string

const (
	// StatusPrepared is the initial state written by outbox preparation.
	StatusPrepared Status = "prepared"
	// StatusPostfixed means the relay accepted the message and assigned a queue ID.
	StatusPostfixed Status = "postfixed"
	// StatusSent is terminal: the relay delivered the message.
	StatusSent Status = "sent"
	// StatusBounced is terminal: the relay gave up on the message.
	StatusBounced Status = "bounced"
	// StatusDeferred is non-terminal: the relay will retry and log again.
	StatusDeferred Status = "deferred"

	// StatusMailboxFull is a synthetic, reporting-only reclassification of
	// deferred messages whose relay response indicates an over-quota mailbox.
	// It is never persisted as an artifact's actual status.
	StatusMailboxFull Status = "mailbox-full"
)

// RelayStatuses are the status tokens the relay log can carry.
var RelayStatuses = []Status{StatusSent, StatusBounced, StatusDeferred}

// ParseRelayStatus validates a status token from a relay log line.
func ParseRelayStatus(token string) (Status, error) {
	switch Status(token) {
	case StatusSent, StatusBounced, StatusDeferred:
		return Status(token), nil
	}
	return "", fmt.Errorf("unknown relay status token %q", token)
}

// IsTerminal reports whether no further relay log lines are expected for a
// message in this status.
func (s Status) IsTerminal() bool {
	return s == StatusSent || s == StatusBounced
}

func (s Status) String() string {
	return string(s)
}

// StatusFolders lists every folder a dispatched or delivered artifact can live
// in, in lifecycle order.
var StatusFolders = []Status{StatusPostfixed, StatusSent, StatusBounced, StatusDeferred}
