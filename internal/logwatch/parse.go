package logwatch

import (
	"fmt"
	"regexp"
	"time"

	"feedcourier/internal/model"
)

// deliveryLinePattern matches the relay's per-recipient disposition lines,
// e.g.
//
//	2026-08-31T06:25:01.123456+02:00 mx1 postfix/smtp[12345]: 889E418C048: to=<a@b.com>, relay=..., status=sent (250 2.0.0 OK 1693460701 x7si123)
//
// Most relay log lines (pickup, cleanup, qmgr, connect/disconnect) carry no
// status and are ignored. Queue IDs are 11 uppercase hex characters under
// the relay's default short-format allocation.
var deliveryLinePattern = regexp.MustCompile(`^(\S+) \S+ postfix/\S+\[\d+\]: ([0-9A-F]{11}): to=<[^>]*>.*\bstatus=([a-z]+) \((.+)\)$`)

// DeliveryLine is one parsed relay disposition event.
type DeliveryLine struct {
	Timestamp time.Time
	QueueID   string
	Status    model.Status
	Message   string
}

// Format renders the parsed fields canonically; the inverse of parsing for
// the captured fields.
func (l DeliveryLine) Format() string {
	return fmt.Sprintf("%s %s status=%s (%s)", l.Timestamp.Format(time.RFC3339Nano), l.QueueID, l.Status, l.Message)
}

// ParseDeliveryLine parses one whole relay log line. The second return value
// is false when the line is not a disposition line at all (not an error). A
// disposition line with an unparseable timestamp or an unknown status token
// returns an error; the caller logs it and skips the line.
func ParseDeliveryLine(line string) (DeliveryLine, bool, error) {
	m := deliveryLinePattern.FindStringSubmatch(line)
	if m == nil {
		return DeliveryLine{}, false, nil
	}

	ts, err := time.Parse(time.RFC3339Nano, m[1])
	if err != nil {
		return DeliveryLine{}, true, fmt.Errorf("unparseable timestamp %q: %w", m[1], err)
	}

	status, err := model.ParseRelayStatus(m[3])
	if err != nil {
		return DeliveryLine{}, true, err
	}

	return DeliveryLine{
		Timestamp: ts,
		QueueID:   m[2],
		Status:    status,
		Message:   m[4],
	}, true, nil
}
