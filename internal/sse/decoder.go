// ABOUTME: Line-oriented decoder for SSE and NDJSON streaming responses.
// ABOUTME: Yields JSON object payloads and silently drops malformed frames.

package sse

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// Decoder reads a streaming response body line by line and extracts the JSON
// object payloads it carries. The server does not commit to a single framing:
// some streams use SSE ("data: {...}") and some emit one JSON object per
// line, so a single tolerant classifier handles both.
//
// A Decoder is not restartable. Once the underlying reader is exhausted,
// Next returns io.EOF forever.
type Decoder struct {
	r    *bufio.Reader
	done bool
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the raw bytes of the next JSON object in the stream.
// It returns io.EOF when the stream ends, or the underlying read error.
//
// Blank lines, SSE comment lines (leading colon), payloads that fail to
// parse as JSON, and JSON values that are not objects are all skipped
// without error. Partial frames are an expected artifact of chunked
// transport, not a fault.
func (d *Decoder) Next() (json.RawMessage, error) {
	for {
		if d.done {
			return nil, io.EOF
		}

		line, err := d.r.ReadString('\n')
		if err == io.EOF {
			// The final line may arrive without a trailing newline.
			d.done = true
			if payload, ok := classify(line); ok {
				return payload, nil
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}

		if payload, ok := classify(line); ok {
			return payload, nil
		}
	}
}

// classify applies the framing rules to a single line and reports whether it
// carried a JSON object payload.
func classify(line string) (json.RawMessage, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, ":") {
		return nil, false
	}

	// SSE frame: strip the data field prefix. Anything else is treated as a
	// bare NDJSON payload.
	payload := line
	if rest, ok := strings.CutPrefix(line, "data:"); ok {
		payload = strings.TrimSpace(rest)
	}
	if payload == "" {
		return nil, false
	}

	if !strings.HasPrefix(payload, "{") || !json.Valid([]byte(payload)) {
		return nil, false
	}
	return json.RawMessage(payload), true
}
