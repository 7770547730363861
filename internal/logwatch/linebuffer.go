package logwatch

import "strings"

// LineBuffer reassembles whole lines from a chunked byte stream. The relay
// log arrives in arbitrary read-sized chunks; a line can be split anywhere,
// so the unterminated tail of each chunk is carried into the next call.
//
// Each LineBuffer owns its carry-over state, so independent log sources can
// be consumed in one process without interference.
type LineBuffer struct {
	rest string
}

// ProcessChunk appends chunk to the buffered remainder and returns every
// newline-terminated line now available. The new unterminated remainder is
// kept for the next call.
func (b *LineBuffer) ProcessChunk(chunk []byte) []string {
	data := b.rest + string(chunk)
	parts := strings.Split(data, "\n")
	b.rest = parts[len(parts)-1]
	return parts[:len(parts)-1]
}

// Pending returns the buffered unterminated remainder. It is lost if the
// process dies before the terminating newline arrives; that one-line loss
// window is an accepted property of the pipeline.
func (b *LineBuffer) Pending() string {
	return b.rest
}
