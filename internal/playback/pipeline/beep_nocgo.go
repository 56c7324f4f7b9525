//go:build !((linux && cgo) || windows || darwin)

package pipeline

import (
	"context"
	"fmt"
	"sync"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = false

// Stream is the no-audio stub used when the speaker backend is unavailable.
// Every Play fails with an error event, which the controller surfaces as Errored.
type Stream struct {
	mu     sync.Mutex
	source string
	events chan Event
}

func NewStream() *Stream {
	return &Stream{events: make(chan Event, 1)}
}

func (s *Stream) SetSource(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = url
}

func (s *Stream) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

func (s *Stream) Play(ctx context.Context) {
	select {
	case s.events <- Event{Kind: EventError, Err: fmt.Errorf("pipeline: audio not available in this build")}:
	default:
	}
}

func (s *Stream) Pause() {}

func (s *Stream) Events() <-chan Event { return s.events }

func (s *Stream) Close() error { return nil }
