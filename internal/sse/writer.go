// Package sse frames progress events as Server-Sent Events and parses
// them back on the consuming side.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/visiblelabs/brandscope/internal/domain"
)

// ErrStreamingUnsupported is returned by NewWriter when the underlying
// ResponseWriter cannot flush.
var ErrStreamingUnsupported = fmt.Errorf("streaming not supported")

// Writer sends progress events over an HTTP response as SSE frames. It is
// safe for concurrent Send calls, though the pipeline serializes emission
// on its own.
type Writer struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter sets the SSE response headers and returns a writer bound to w.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &Writer{w: w, flusher: flusher}, nil
}

// Send writes one event frame and flushes it. The event type doubles as
// the SSE event name so EventSource consumers can subscribe per type.
func (s *Writer) Send(ctx context.Context, event domain.ProgressEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}
