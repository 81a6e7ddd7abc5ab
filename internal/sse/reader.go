package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/visiblelabs/brandscope/internal/domain"
)

// Reader parses an SSE stream of progress events frame by frame.
type Reader struct {
	scanner *bufio.Scanner

	eventType string
	data      []string
}

// NewReader wraps r. Frames larger than 1MB are a protocol violation.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	return &Reader{scanner: scanner}
}

// Next returns the next event on the stream, or io.EOF when the stream
// ends cleanly. Comment lines and unknown fields are skipped per the SSE
// format; multiple data lines within one frame are joined with newlines.
func (r *Reader) Next() (*domain.RawEvent, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()

		// Blank line terminates the frame.
		if line == "" {
			if len(r.data) == 0 {
				r.eventType = ""
				continue
			}
			event, err := r.flush()
			if err != nil {
				return nil, err
			}
			return event, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}
		if after, ok := strings.CutPrefix(line, "event: "); ok {
			r.eventType = after
			continue
		}
		if after, ok := strings.CutPrefix(line, "data: "); ok {
			r.data = append(r.data, after)
			continue
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("stream read error: %w", err)
	}
	if len(r.data) > 0 {
		return r.flush()
	}
	return nil, io.EOF
}

func (r *Reader) flush() (*domain.RawEvent, error) {
	payload := strings.Join(r.data, "\n")
	r.eventType = ""
	r.data = nil

	var event domain.RawEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &event, nil
}
