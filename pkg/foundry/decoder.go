package foundry

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// doneSentinel is the data payload that terminates an event stream.
const doneSentinel = "[DONE]"

const dataPrefix = "data:"

// decoderReadSize is the transport read chunk size.
const decoderReadSize = 4096

// Decoder incrementally parses a server-sent-event byte stream into
// discrete JSON event payloads. Fragmentation is irrelevant: one byte at a
// time through arbitrarily large blocks produces identical output.
//
// The internal buffer holds only the unconsumed tail since the last line
// boundary, so memory stays bounded by the longest single line regardless
// of stream length.
//
// Decoder is not safe for concurrent use.
type Decoder struct {
	r       io.Reader
	buf     []byte
	start   int
	eof     bool
	readErr error
	done    bool
	chunk   []byte
}

// NewDecoder creates a Decoder consuming from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:     r,
		chunk: make([]byte, decoderReadSize),
	}
}

// Next returns the next event payload. It returns io.EOF when the stream
// ends, either via the terminal sentinel or upstream EOF. A malformed data
// line yields a *DecodeError for that one line; the stream continues and
// the following call processes the next line. Any other upstream error is
// terminal, but only after every complete line already received has been
// served; events fully buffered before the failure are never dropped.
func (d *Decoder) Next() (json.RawMessage, error) {
	if d.done {
		return nil, io.EOF
	}
	for {
		line, ok := d.nextLine()
		if !ok {
			if d.eof {
				d.done = true
				if d.readErr != nil {
					return nil, d.readErr
				}
				return nil, io.EOF
			}
			d.fill()
			continue
		}

		event, terminal, err := parseEventLine(line)
		if terminal {
			d.done = true
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		if event != nil {
			return event, nil
		}
		// Blank line, comment, or non-data field: keep scanning.
	}
}

// nextLine extracts the next complete line from the buffer, or the
// remaining tail once upstream has ended. Consumption advances an index
// instead of reslicing on every line; the buffer compacts when the
// consumed prefix dominates.
func (d *Decoder) nextLine() (string, bool) {
	if i := bytes.IndexByte(d.buf[d.start:], '\n'); i >= 0 {
		line := string(d.buf[d.start : d.start+i])
		d.start += i + 1
		if d.start > len(d.buf)/2 {
			d.buf = append(d.buf[:0], d.buf[d.start:]...)
			d.start = 0
		}
		return line, true
	}
	if d.eof && d.start < len(d.buf) {
		line := string(d.buf[d.start:])
		d.buf = d.buf[:0]
		d.start = 0
		return line, true
	}
	return "", false
}

// fill appends the next fragment from upstream to the buffer. Readers may
// return data alongside an error, so any error only stops further reads;
// buffered lines keep draining and a non-EOF error is stashed for Next to
// surface once the buffer is exhausted.
func (d *Decoder) fill() {
	n, err := d.r.Read(d.chunk)
	if n > 0 {
		d.buf = append(d.buf, d.chunk[:n]...)
	}
	if err != nil {
		d.eof = true
		if err != io.EOF {
			d.readErr = err
		}
	}
}

// parseEventLine interprets one line of the stream. It returns the decoded
// payload for a well-formed data line, terminal=true for the end-of-stream
// sentinel, a *DecodeError for a malformed data line, and all nil for
// lines to skip (blank, comments, and non-data fields such as id, event,
// and retry).
func parseEventLine(line string) (payload json.RawMessage, terminal bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, ":") {
		return nil, false, nil
	}
	if !strings.HasPrefix(line, dataPrefix) {
		return nil, false, nil
	}

	data := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
	if data == doneSentinel {
		return nil, true, nil
	}
	if data == "" {
		return nil, false, nil
	}
	var check json.RawMessage
	if err := json.Unmarshal([]byte(data), &check); err != nil {
		return nil, false, &DecodeError{
			Snippet: sanitizeAndTruncate(data),
			Cause:   err,
		}
	}
	return json.RawMessage(data), false, nil
}
