// Package pipeline abstracts the platform audio pipeline behind the events the
// session controller's transition table is written against.
package pipeline

import "context"

// EventKind tags an audio pipeline event.
type EventKind int

const (
	// EventPlaying fires when the pipeline is actually producing audio.
	EventPlaying EventKind = iota
	// EventWaiting fires when the pipeline stalls waiting for stream data.
	EventWaiting
	// EventPaused fires after playback has stopped in response to Pause.
	EventPaused
	// EventError fires on a playback error; the pipeline is dead until the next Play.
	EventError
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventPlaying:
		return "playing"
	case EventWaiting:
		return "waiting"
	case EventPaused:
		return "paused"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one audio pipeline event, delivered in the order the platform generates them.
type Event struct {
	Kind EventKind
	Err  error // set for EventError
}

// Pipeline is the audio element the controller drives. Implementations deliver
// events on a single channel so the controller can evaluate transitions one at a time.
type Pipeline interface {
	// SetSource replaces the stream URL the next Play connects to.
	SetSource(url string)
	// Source returns the current stream URL ("" before the first SetSource).
	Source() string
	// Play starts (or restarts) playback of the current source. Buffering progress and
	// failures surface as events, not as a return value, matching the platform model.
	Play(ctx context.Context)
	// Pause stops audio output; an EventPaused follows once playback has stopped.
	Pause()
	// Events returns the pipeline's event stream.
	Events() <-chan Event
	// Close tears the pipeline down and releases the audio device.
	Close() error
}
