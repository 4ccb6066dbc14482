// ABOUTME: Streamed query event model and NDJSON stream reader.
// ABOUTME: Absent content fields read as empty text, never as an error.

package agentengine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// StreamEvent is one element of a streamed query response. Content and its
// parts are optional; an event with no text-bearing parts contributes
// nothing to the aggregate.
type StreamEvent struct {
	Author  string   `json:"author,omitempty"`
	Content *Content `json:"content,omitempty"`
}

// Content holds the ordered parts of one event.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// Part is a single content fragment. Only text parts matter to the relay;
// other part kinds decode with an empty Text.
type Part struct {
	Text string `json:"text,omitempty"`
}

// Text concatenates the event's text fragments in part order.
func (e *StreamEvent) Text() string {
	if e == nil || e.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range e.Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// Stream is a lazy, finite, non-restartable sequence of query events.
// Recv returns io.EOF after the final event. Close releases the underlying
// connection and is safe after Recv has returned an error.
type Stream interface {
	Recv() (*StreamEvent, error)
	Close() error
}

// jsonStream decodes newline-delimited JSON events from a response body.
type jsonStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

// maxEventSize bounds a single streamed event line.
const maxEventSize = 1 << 20

func newJSONStream(body io.ReadCloser) *jsonStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxEventSize)
	return &jsonStream{body: body, scanner: scanner}
}

func (s *jsonStream) Recv() (*StreamEvent, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}

		var ev StreamEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return nil, fmt.Errorf("decoding stream event: %w", err)
		}
		return &ev, nil
	}

	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stream: %w", err)
	}
	return nil, io.EOF
}

func (s *jsonStream) Close() error {
	return s.body.Close()
}
