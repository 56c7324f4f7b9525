//go:build (linux && cgo) || windows || darwin

package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

const connectTimeout = 20 * time.Second

// Stream plays the live mp3 stream through the speaker using beep.
type Stream struct {
	mu sync.Mutex

	source      string
	ctrl        *beep.Ctrl
	streamer    beep.StreamSeekCloser
	initialized bool
	generation  int

	events chan Event
	client *http.Client
}

// NewStream returns a pipeline that decodes the stream URL set via SetSource.
func NewStream() *Stream {
	return &Stream{
		events: make(chan Event, 16),
		// No overall timeout: the response body is an endless live stream.
		client: &http.Client{},
	}
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

// Play connects to the current source and starts decoding. A previous connection is
// dropped first; for a live stream there is no position to preserve.
func (s *Stream) Play(ctx context.Context) {
	s.mu.Lock()
	s.stopLocked()
	s.generation++
	gen := s.generation
	src := s.source
	s.mu.Unlock()

	if src == "" {
		s.emit(Event{Kind: EventError, Err: fmt.Errorf("pipeline: no source set")})
		return
	}

	s.emit(Event{Kind: EventWaiting})

	go func() {
		reqCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, src, nil)
		if err != nil {
			s.emit(Event{Kind: EventError, Err: err})
			return
		}
		// The request context only guards the connect; the body outlives it.
		req = req.WithContext(ctx)
		resp, err := s.client.Do(req)
		if err != nil {
			s.emit(Event{Kind: EventError, Err: err})
			return
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			s.emit(Event{Kind: EventError, Err: fmt.Errorf("pipeline: stream status %d", resp.StatusCode)})
			return
		}

		streamer, format, err := mp3.Decode(resp.Body)
		if err != nil {
			resp.Body.Close()
			s.emit(Event{Kind: EventError, Err: err})
			return
		}

		s.mu.Lock()
		if gen != s.generation {
			// A newer Play or Close superseded this connection.
			s.mu.Unlock()
			streamer.Close()
			return
		}
		if !s.initialized {
			if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
				s.mu.Unlock()
				streamer.Close()
				s.emit(Event{Kind: EventError, Err: err})
				return
			}
			s.initialized = true
		}
		ctrl := &beep.Ctrl{Streamer: streamer}
		s.ctrl = ctrl
		s.streamer = streamer
		s.mu.Unlock()

		speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
			// A live stream ending is an error condition, not a natural finish.
			s.emit(Event{Kind: EventError, Err: fmt.Errorf("pipeline: stream ended")})
		})))
		s.emit(Event{Kind: EventPlaying})
	}()
}

// Pause stops audio output and emits EventPaused.
func (s *Stream) Pause() {
	s.mu.Lock()
	ctrl := s.ctrl
	s.mu.Unlock()
	if ctrl != nil {
		speaker.Lock()
		ctrl.Paused = true
		speaker.Unlock()
	}
	s.emit(Event{Kind: EventPaused})
}

func (s *Stream) Events() <-chan Event {
	return s.events
}

// Close drops the current connection and releases the decoder.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.stopLocked()
	return nil
}

func (s *Stream) stopLocked() {
	if s.ctrl != nil {
		speaker.Lock()
		s.ctrl.Paused = true
		s.ctrl.Streamer = nil
		speaker.Unlock()
		s.ctrl = nil
	}
	if s.streamer != nil {
		_ = s.streamer.Close()
		s.streamer = nil
	}
}

// emit never blocks; if the controller has fallen far behind, the oldest event is dropped.
func (s *Stream) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		select {
		case <-s.events:
		default:
		}
		select {
		case s.events <- ev:
		default:
		}
	}
}
