package stream

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-contrib/sse"

	"github.com/tanisingh134/carbon/internal/protocol"
)

var ErrStreamingUnsupported = errors.New("streaming unsupported")

// SSE writes live updates as unnamed server-sent events so EventSource
// onmessage handlers see every update; the type travels in the envelope:
//
//	data:{"type":"carbonScore","payload":55}
//
// Headers are sent with the first event so the caller can still answer
// with a plain error if the subscription never starts.
type SSE struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
	started bool
}

func NewSSE(w http.ResponseWriter) (*SSE, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	return &SSE{w: w, flusher: flusher}, nil
}

// Started reports whether the stream headers were written
func (s *SSE) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *SSE) Emit(event protocol.EventType, payload interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}

	err := sse.Encode(s.w, sse.Event{
		Data: protocol.Envelope{Type: event, Payload: payload},
	})
	if err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
