package transport

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Email is one outgoing message ready for the relay. ReturnPath is the
// envelope sender; bounces for this recipient come back addressed to it.
type Email struct {
	From       string
	To         string
	ReplyTo    string
	ReturnPath string
	Subject    string
	Body       string
}

// Transport hands a message to the mail relay. The returned string is the
// relay's acceptance response verbatim; it carries the queue ID that later
// log lines are correlated by.
type Transport interface {
	Send(ctx context.Context, email Email) (string, error)
}

// queuedAsPattern extracts the relay-assigned queue ID from the acceptance
// response, e.g. "2.0.0 Ok: queued as 889E418C048".
var queuedAsPattern = regexp.MustCompile(`queued as ([0-9A-F]+)`)

// ExtractQueueID pulls the queue ID out of an acceptance response. A
// response without one means the message cannot be tracked and must not be
// marked postfixed.
func ExtractQueueID(acceptance string) (string, error) {
	m := queuedAsPattern.FindStringSubmatch(acceptance)
	if m == nil {
		return "", fmt.Errorf("no queue ID in acceptance response %q", acceptance)
	}
	return m[1], nil
}

// VerpReturnPath embeds the recipient address into the envelope sender so a
// bounce identifies who it was for, e.g. bounces@x.com + a@b.com ->
// bounces+a=b.com@x.com.
func VerpReturnPath(base, recipient string) string {
	at := strings.LastIndex(base, "@")
	if at < 0 {
		return base
	}
	encoded := strings.ReplaceAll(recipient, "@", "=")
	return base[:at] + "+" + encoded + base[at:]
}
