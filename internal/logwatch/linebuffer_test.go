package logwatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func collectLines(b *LineBuffer, chunks ...string) []string {
	var lines []string
	for _, chunk := range chunks {
		lines = append(lines, b.ProcessChunk([]byte(chunk))...)
	}
	return lines
}

func TestProcessChunkSplitsWholeLines(t *testing.T) {
	var b LineBuffer

	lines := b.ProcessChunk([]byte("one\ntwo\nthree"))
	assert.Equal(t, []string{"one", "two"}, lines)
	assert.Equal(t, "three", b.Pending())

	lines = b.ProcessChunk([]byte(" continued\nfour\n"))
	assert.Equal(t, []string{"three continued", "four"}, lines)
	assert.Equal(t, "", b.Pending())
}

func TestProcessChunkEmptyChunk(t *testing.T) {
	var b LineBuffer
	assert.Empty(t, b.ProcessChunk(nil))
	assert.Equal(t, "", b.Pending())
}

func TestProcessChunkOnlyNewline(t *testing.T) {
	var b LineBuffer
	b.ProcessChunk([]byte("partial"))
	lines := b.ProcessChunk([]byte("\n"))
	assert.Equal(t, []string{"partial"}, lines)
}

// The same byte stream must yield the same whole lines no matter how it is
// partitioned into chunks.
func TestProcessChunkBoundaryInvariance(t *testing.T) {
	stream := "alpha line\nbeta line\ngamma\n\ndelta line here\n"
	var whole LineBuffer
	want := collectLines(&whole, stream)

	for split1 := 0; split1 <= len(stream); split1++ {
		for split2 := split1; split2 <= len(stream); split2 += 7 {
			var b LineBuffer
			got := collectLines(&b, stream[:split1], stream[split1:split2], stream[split2:])
			assert.Equal(t, want, got, "split at %d/%d", split1, split2)
			assert.Equal(t, "", b.Pending())
		}
	}
}
