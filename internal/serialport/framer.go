// internal/serialport/framer.go
package serialport

import (
	"bytes"
	"strings"
)

// delimiterCutset is stripped from the tail of every extracted message. The
// whole trailing run is removed, not just the delimiter that triggered the
// cut, so a ",\n" or CRLF pair collapses into a single extraction.
const delimiterCutset = ",\n\r"

// Framer turns a continuous byte stream into discrete messages. A message
// ends at whichever of a comma or a newline occurs first in the buffer.
//
// The framer holds only the undelimited tail between calls; it never rejects
// or discards input, so the concatenation of all emitted messages plus the
// pending tail (delimiters reinserted) always equals the bytes fed in.
// Callers are responsible for serializing access.
type Framer struct {
	buf []byte
}

// Feed appends a chunk of newly-read bytes and returns every complete
// message it can extract, in receipt order. Empty candidates, such as the
// gap between two adjacent commas or a lone CRLF, are dropped.
func (f *Framer) Feed(chunk []byte) []string {
	f.buf = append(f.buf, chunk...)

	var messages []string
	for {
		cut := f.nextDelimiter()
		if cut < 0 {
			break
		}

		message := strings.TrimRight(string(f.buf[:cut+1]), delimiterCutset)
		f.buf = f.buf[cut+1:]

		if message != "" {
			messages = append(messages, message)
		}
	}

	if len(messages) > 0 {
		// Compact the tail so extracted heads do not pin the backing array.
		f.buf = append([]byte(nil), f.buf...)
	}
	return messages
}

// nextDelimiter locates the first comma or newline in the buffer. The cut
// point is the minimum of the two indices; the delimiters differ, so the two
// can never coincide.
func (f *Framer) nextDelimiter() int {
	comma := bytes.IndexByte(f.buf, ',')
	newline := bytes.IndexByte(f.buf, '\n')

	switch {
	case comma >= 0 && newline >= 0:
		return min(comma, newline)
	case comma >= 0:
		return comma
	default:
		return newline
	}
}

// Pending returns the partial trailing fragment awaiting more data.
func (f *Framer) Pending() string {
	return string(f.buf)
}

// Reset discards any buffered partial fragment.
func (f *Framer) Reset() {
	f.buf = nil
}
