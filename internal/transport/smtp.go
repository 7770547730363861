package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"time"

	"github.com/emersion/go-message/mail"
)

// SMTPRelay speaks SMTP to the local relay. It uses textproto directly
// because the DATA acceptance line must be captured verbatim: that line
// carries the queue ID the whole status-tracking pipeline keys on, and the
// stock SMTP clients discard it.
type SMTPRelay struct {
	addr     string
	heloName string
	timeout  time.Duration
}

// NewSMTPRelay creates a relay client for the given host:port.
func NewSMTPRelay(addr, heloName string, timeout time.Duration) *SMTPRelay {
	return &SMTPRelay{addr: addr, heloName: heloName, timeout: timeout}
}

// Send delivers one message and returns the relay's acceptance response.
func (r *SMTPRelay) Send(ctx context.Context, email Email) (string, error) {
	body, err := composeMessage(email)
	if err != nil {
		return "", fmt.Errorf("failed to compose message: %w", err)
	}

	dialer := &net.Dialer{Timeout: r.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", r.addr)
	if err != nil {
		return "", fmt.Errorf("failed to connect to relay %s: %w", r.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else if r.timeout > 0 {
		conn.SetDeadline(time.Now().Add(r.timeout))
	}

	text := textproto.NewConn(conn)
	defer text.Close()

	if _, _, err := text.ReadResponse(220); err != nil {
		return "", fmt.Errorf("relay greeting failed: %w", err)
	}
	if _, err := r.cmd(text, 250, "EHLO %s", r.heloName); err != nil {
		return "", fmt.Errorf("EHLO failed: %w", err)
	}
	if _, err := r.cmd(text, 250, "MAIL FROM:<%s>", email.ReturnPath); err != nil {
		return "", fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if _, err := r.cmd(text, 250, "RCPT TO:<%s>", email.To); err != nil {
		return "", fmt.Errorf("RCPT TO failed: %w", err)
	}
	if _, err := r.cmd(text, 354, "DATA"); err != nil {
		return "", fmt.Errorf("DATA failed: %w", err)
	}

	w := text.DotWriter()
	if _, err := w.Write(body); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finish message body: %w", err)
	}

	_, acceptance, err := text.ReadResponse(250)
	if err != nil {
		return "", fmt.Errorf("relay did not accept message: %w", err)
	}

	// Best effort; the message is already accepted.
	r.cmd(text, 221, "QUIT")

	return acceptance, nil
}

func (r *SMTPRelay) cmd(text *textproto.Conn, expectCode int, format string, args ...any) (string, error) {
	if err := text.PrintfLine(format, args...); err != nil {
		return "", err
	}
	_, msg, err := text.ReadResponse(expectCode)
	return msg, err
}

// composeMessage renders the RFC 5322 message for one recipient.
func composeMessage(email Email) ([]byte, error) {
	var buf bytes.Buffer

	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Address: email.From}})
	h.SetAddressList("To", []*mail.Address{{Address: email.To}})
	if email.ReplyTo != "" {
		h.SetAddressList("Reply-To", []*mail.Address{{Address: email.ReplyTo}})
	}
	h.SetSubject(email.Subject)
	h.SetContentType("text/html", map[string]string{"charset": "utf-8"})

	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, email.Body); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
