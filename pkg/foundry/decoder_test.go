package foundry

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// fragmentingReader delivers the underlying data in fixed-size fragments to
// exercise arbitrary packet boundaries.
type fragmentingReader struct {
	data []byte
	pos  int
	size int
}

func (r *fragmentingReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := r.size
	if n > len(p) {
		n = len(p)
	}
	if r.pos+n > len(r.data) {
		n = len(r.data) - r.pos
	}
	copy(p, r.data[r.pos:r.pos+n])
	r.pos += n
	return n, nil
}

// collectEvents drains a decoder, recording payloads and per-item errors in
// order.
func collectEvents(t *testing.T, dec *Decoder) (payloads []string, decodeErrs int) {
	t.Helper()
	for {
		data, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return payloads, decodeErrs
		}
		if err != nil {
			var de *DecodeError
			if errors.As(err, &de) {
				decodeErrs++
				continue
			}
			t.Fatalf("unexpected terminal error: %v", err)
		}
		payloads = append(payloads, string(data))
	}
}

const sampleStream = "data: {\"c\":\"Hi\"}\n\n" +
	": keep-alive comment\n" +
	"event: message\n" +
	"id: 42\n" +
	"retry: 1000\n" +
	"data: {\"c\":\" there\"}\n\n" +
	"data: [DONE]\n\n"

func TestDecoderBasicStream(t *testing.T) {
	dec := NewDecoder(strings.NewReader(sampleStream))
	payloads, decodeErrs := collectEvents(t, dec)

	want := []string{`{"c":"Hi"}`, `{"c":" there"}`}
	if len(payloads) != len(want) {
		t.Fatalf("payloads = %v, want %v", payloads, want)
	}
	for i := range want {
		if payloads[i] != want[i] {
			t.Errorf("payloads[%d] = %q, want %q", i, payloads[i], want[i])
		}
	}
	if decodeErrs != 0 {
		t.Errorf("decodeErrs = %d, want 0", decodeErrs)
	}
}

func TestDecoderSingleByteFragmentsMatchWholeBuffer(t *testing.T) {
	whole := NewDecoder(strings.NewReader(sampleStream))
	wantPayloads, wantErrs := collectEvents(t, whole)

	byByte := NewDecoder(&fragmentingReader{data: []byte(sampleStream), size: 1})
	gotPayloads, gotErrs := collectEvents(t, byByte)

	if len(gotPayloads) != len(wantPayloads) || gotErrs != wantErrs {
		t.Fatalf("1-byte fragments: %v (%d errs), whole buffer: %v (%d errs)",
			gotPayloads, gotErrs, wantPayloads, wantErrs)
	}
	for i := range wantPayloads {
		if gotPayloads[i] != wantPayloads[i] {
			t.Errorf("payloads[%d] = %q, want %q", i, gotPayloads[i], wantPayloads[i])
		}
	}
}

func TestDecoderFragmentationInvariance(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lines := rapid.SliceOfN(rapid.SampledFrom([]string{
			"data: {\"n\":1}\n",
			"data: {\"n\":2}\n\n",
			"data: not json\n",
			": comment\n",
			"event: ping\n",
			"\n",
			"data: {\"long\":\"" + strings.Repeat("x", 200) + "\"}\n",
		}), 0, 20).Draw(t, "lines")
		input := strings.Join(lines, "") + "data: [DONE]\n\n"

		whole := NewDecoder(strings.NewReader(input))
		var wantPayloads []string
		wantErrs := 0
		for {
			data, err := whole.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				wantErrs++
				continue
			}
			wantPayloads = append(wantPayloads, string(data))
		}

		size := rapid.IntRange(1, 64).Draw(t, "size")
		frag := NewDecoder(&fragmentingReader{data: []byte(input), size: size})
		var gotPayloads []string
		gotErrs := 0
		for {
			data, err := frag.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				gotErrs++
				continue
			}
			gotPayloads = append(gotPayloads, string(data))
		}

		if len(gotPayloads) != len(wantPayloads) || gotErrs != wantErrs {
			t.Fatalf("fragment size %d: got %d payloads %d errs, want %d payloads %d errs",
				size, len(gotPayloads), gotErrs, len(wantPayloads), wantErrs)
		}
		for i := range wantPayloads {
			if gotPayloads[i] != wantPayloads[i] {
				t.Fatalf("payloads[%d] = %q, want %q", i, gotPayloads[i], wantPayloads[i])
			}
		}
	})
}

func TestDecoderMalformedLineContinues(t *testing.T) {
	input := "data: {\"ok\":1}\n" +
		"data: {not valid json}\n" +
		"data: {\"ok\":2}\n" +
		"data: [DONE]\n"
	dec := NewDecoder(strings.NewReader(input))

	first, err := dec.Next()
	if err != nil || string(first) != `{"ok":1}` {
		t.Fatalf("first = %q, %v", first, err)
	}

	_, err = dec.Next()
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("second error = %v, want *DecodeError", err)
	}

	third, err := dec.Next()
	if err != nil || string(third) != `{"ok":2}` {
		t.Fatalf("third = %q, %v (decoder must continue past malformed line)", third, err)
	}

	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("final = %v, want io.EOF", err)
	}
}

func TestDecoderDoneWithoutEmitting(t *testing.T) {
	dec := NewDecoder(strings.NewReader("data: [DONE]\n\n"))
	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next() = %v, want io.EOF", err)
	}
	// Subsequent calls stay at EOF.
	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next() after done = %v, want io.EOF", err)
	}
}

func TestDecoderFlushesTailWithoutNewline(t *testing.T) {
	// Upstream ends mid-event with no trailing newline; the tail is parsed
	// as one final line.
	dec := NewDecoder(strings.NewReader(`data: {"tail":true}`))
	data, err := dec.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if string(data) != `{"tail":true}` {
		t.Errorf("Next() = %q, want tail payload", data)
	}
	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next() = %v, want io.EOF", err)
	}
}

func TestDecoderUpstreamErrorIsTerminal(t *testing.T) {
	readErr := errors.New("connection reset")
	r := io.MultiReader(
		strings.NewReader("data: {\"n\":1}\n"),
		&failingReader{err: readErr},
	)
	dec := NewDecoder(r)

	if _, err := dec.Next(); err != nil {
		t.Fatalf("first Next() error = %v", err)
	}
	if _, err := dec.Next(); !errors.Is(err, readErr) {
		t.Fatalf("second Next() = %v, want upstream error", err)
	}
	// After a terminal error, the decoder stays finished.
	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("third Next() = %v, want io.EOF", err)
	}
}

type failingReader struct {
	err error
}

func (r *failingReader) Read(p []byte) (int, error) {
	return 0, r.err
}

// dataThenErrorReader returns its entire payload and a failure from the
// same Read call, as the io.Reader contract permits.
type dataThenErrorReader struct {
	data []byte
	err  error
	used bool
}

func (r *dataThenErrorReader) Read(p []byte) (int, error) {
	if r.used {
		return 0, r.err
	}
	r.used = true
	n := copy(p, r.data)
	return n, r.err
}

func TestDecoderDrainsBufferedLinesBeforeReadError(t *testing.T) {
	readErr := errors.New("connection reset")
	dec := NewDecoder(&dataThenErrorReader{
		data: []byte("data: {\"n\":1}\ndata: {\"n\":2}\n"),
		err:  readErr,
	})

	first, err := dec.Next()
	if err != nil || string(first) != `{"n":1}` {
		t.Fatalf("first Next() = %q, %v, want buffered event before the error", first, err)
	}
	second, err := dec.Next()
	if err != nil || string(second) != `{"n":2}` {
		t.Fatalf("second Next() = %q, %v, want buffered event before the error", second, err)
	}
	if _, err := dec.Next(); !errors.Is(err, readErr) {
		t.Fatalf("third Next() = %v, want upstream error after buffer drained", err)
	}
	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("fourth Next() = %v, want io.EOF", err)
	}
}

func TestDecoderFlushesTailBeforeReadError(t *testing.T) {
	readErr := errors.New("connection reset")
	dec := NewDecoder(&dataThenErrorReader{
		data: []byte(`data: {"tail":true}`),
		err:  readErr,
	})

	data, err := dec.Next()
	if err != nil || string(data) != `{"tail":true}` {
		t.Fatalf("Next() = %q, %v, want flushed tail before the error", data, err)
	}
	if _, err := dec.Next(); !errors.Is(err, readErr) {
		t.Fatalf("Next() = %v, want upstream error after tail", err)
	}
}

func TestDecoderCRLFLines(t *testing.T) {
	input := "data: {\"a\":1}\r\ndata: [DONE]\r\n"
	dec := NewDecoder(strings.NewReader(input))
	data, err := dec.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("Next() = %q, want CR trimmed", data)
	}
}

func TestDecoderLargePayloadAcrossReads(t *testing.T) {
	big := strings.Repeat("y", 3*decoderReadSize)
	payload, err := json.Marshal(map[string]string{"blob": big})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var buf bytes.Buffer
	buf.WriteString("data: ")
	buf.Write(payload)
	buf.WriteString("\n\ndata: [DONE]\n\n")

	dec := NewDecoder(&buf)
	data, err := dec.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("payload mismatch: got %d bytes, want %d", len(data), len(payload))
	}
}
