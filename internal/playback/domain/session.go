// Package domain holds the playback session record and the controller's state machine types.
package domain

// Session is the durable record of "should audio be playing on this browsing session".
// It is session-scoped: it survives navigation between page contexts but is destroyed
// implicitly when the browsing session ends.
type Session struct {
	// Active is true once a mini player has been instantiated this session.
	Active bool `json:"active"`
	// Paused is true only after a user-initiated pause, never after a stall or error.
	Paused bool `json:"paused"`
}

// State is the mini player's position in the playback state machine.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateErrored
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// ShouldAttach reports whether the mini player is instantiated for this page load:
// only on pages other than the dedicated now-playing page, and only when a session
// is currently active. sess is the persisted record read once at load (nil when absent).
func ShouldAttach(pageHash string, sess *Session) bool {
	if pageHash == "#playing" || pageHash == "" {
		return false
	}
	return sess != nil && sess.Active
}

// ShouldAutoResume reports whether a freshly attached controller starts playback
// without user action.
func ShouldAutoResume(sess *Session) bool {
	return sess != nil && sess.Active && !sess.Paused
}
