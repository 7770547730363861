package transport

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRelay runs a minimal scripted SMTP session on a local listener and
// captures the commands and message body it receives.
type fakeRelay struct {
	ln         net.Listener
	acceptance string

	commands []string
	body     string
	done     chan struct{}
}

func newFakeRelay(t *testing.T, acceptance string) *fakeRelay {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeRelay{ln: ln, acceptance: acceptance, done: make(chan struct{})}
	t.Cleanup(func() { ln.Close() })
	go f.serve()
	return f
}

func (f *fakeRelay) serve() {
	defer close(f.done)
	conn, err := f.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	write := func(line string) { conn.Write([]byte(line + "\r\n")) }

	write("220 fake ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		f.commands = append(f.commands, line)

		switch {
		case strings.HasPrefix(line, "EHLO"):
			write("250 fake")
		case strings.HasPrefix(line, "MAIL FROM:"), strings.HasPrefix(line, "RCPT TO:"):
			write("250 2.1.0 Ok")
		case line == "DATA":
			write("354 End data with <CR><LF>.<CR><LF>")
			var body strings.Builder
			for {
				dataLine, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if strings.TrimRight(dataLine, "\r\n") == "." {
					break
				}
				body.WriteString(dataLine)
			}
			f.body = body.String()
			write(f.acceptance)
		case line == "QUIT":
			write("221 Bye")
			return
		default:
			write("500 unrecognized")
			return
		}
	}
}

func TestSMTPRelaySendReturnsAcceptanceVerbatim(t *testing.T) {
	fake := newFakeRelay(t, "250 2.0.0 Ok: queued as 889E418C048")
	relay := NewSMTPRelay(fake.ln.Addr().String(), "courier.test", 5*time.Second)

	acceptance, err := relay.Send(context.Background(), Email{
		From:       "digest@courier.test",
		To:         "a@b.com",
		ReplyTo:    "author@blog.test",
		ReturnPath: "bounces+a=b.com@courier.test",
		Subject:    "My Blog: A",
		Body:       "<p>post body</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "2.0.0 Ok: queued as 889E418C048", acceptance)

	<-fake.done

	// Envelope sender is the VERP return path, not the From header.
	assert.Contains(t, fake.commands, "MAIL FROM:<bounces+a=b.com@courier.test>")
	assert.Contains(t, fake.commands, "RCPT TO:<a@b.com>")
	assert.Contains(t, fake.commands, "QUIT")

	assert.Contains(t, fake.body, "From: <digest@courier.test>")
	assert.Contains(t, fake.body, "Reply-To: <author@blog.test>")
	assert.Contains(t, fake.body, "Subject: My Blog: A")
	assert.Contains(t, fake.body, "post body")
}

func TestSMTPRelaySendRejectedRecipient(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		write := func(line string) { conn.Write([]byte(line + "\r\n")) }
		write("220 fake ESMTP")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			switch {
			case strings.HasPrefix(line, "EHLO"):
				write("250 fake")
			case strings.HasPrefix(line, "MAIL FROM:"):
				write("250 2.1.0 Ok")
			case strings.HasPrefix(line, "RCPT TO:"):
				write("550 5.1.1 no such user")
				return
			}
		}
	}()

	relay := NewSMTPRelay(ln.Addr().String(), "courier.test", 5*time.Second)
	_, err = relay.Send(context.Background(), Email{To: "nobody@b.com", ReturnPath: "bounces@courier.test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RCPT TO failed")
}
