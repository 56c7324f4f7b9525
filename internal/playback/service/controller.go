// Package service implements the playback session controller: the state machine
// that keeps "is the stream playing" consistent across page-context loads.
package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"family-radio/companion/internal/playback/domain"
	"family-radio/companion/internal/playback/pipeline"
	"family-radio/companion/internal/playback/repository"
	stationdomain "family-radio/companion/internal/station/domain"
)

// View is the minimal UI surface the controller drives.
type View interface {
	// ShowLoading toggles the loading indicator.
	ShowLoading(on bool)
	// SetPlaying switches the control glyph: pause glyph when true, play glyph when false.
	SetPlaying(on bool)
	// SetNowPlaying replaces the now-playing text.
	SetNowPlaying(text string)
}

// StatusFetcher is the polling side-channel's view of the station API.
type StatusFetcher interface {
	Status(ctx context.Context) (*stationdomain.Status, error)
}

// TransitionHook observes state transitions, e.g. for telemetry. Must not block.
type TransitionHook func(from, to domain.State)

// Controller owns the audio pipeline for one page context. It reads the persisted
// session once at load and treats its in-memory state as authoritative for the
// page's lifetime, writing back on every persisting transition. All transitions are
// evaluated under one lock, so no two interleave.
type Controller struct {
	mu        sync.Mutex
	state     domain.State
	sess      domain.Session
	userPause bool // one-shot: set right before Pause, cleared when the pause event fires

	pipe     pipeline.Pipeline
	sessions repository.Repository
	status   StatusFetcher
	view     View

	streamURL string
	pollEvery time.Duration
	nowF      func() time.Time
	hook      TransitionHook
}

// New returns a controller over the given pipeline, session store, and view.
// streamURL is the plain stream URL; manual starts append the cache-busting parameter.
func New(pipe pipeline.Pipeline, sessions repository.Repository, status StatusFetcher, view View, streamURL string, pollEvery time.Duration) *Controller {
	if pollEvery <= 0 {
		pollEvery = 15 * time.Second
	}
	return &Controller{
		state:     domain.StateIdle,
		pipe:      pipe,
		sessions:  sessions,
		status:    status,
		view:      view,
		streamURL: streamURL,
		pollEvery: pollEvery,
		nowF:      time.Now,
	}
}

// SetTransitionHook installs a transition observer. Call before Load.
func (c *Controller) SetTransitionHook(h TransitionHook) {
	c.hook = h
}

// Load seeds the in-memory session from the persisted record, exactly once per page
// lifetime. A storage failure seeds an inactive session; playback still works, resume
// fidelity is what degrades.
func (c *Controller) Load(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, err := c.sessions.Get(ctx)
	if err != nil {
		log.Printf("playback: read session: %v", err)
		return
	}
	if sess != nil {
		c.sess = *sess
	}
}

// AutoResume starts playback without user action when the loaded session says the
// stream should be playing. It reuses the pipeline's existing source rather than
// resetting it, avoiding a reconnect race on fast reloads.
func (c *Controller) AutoResume(ctx context.Context) {
	c.mu.Lock()
	sess := c.sess
	if !domain.ShouldAutoResume(&sess) {
		c.mu.Unlock()
		return
	}
	if c.pipe.Source() == "" {
		c.pipe.SetSource(c.streamURL)
	}
	c.toLoadingLocked()
	c.mu.Unlock()
	c.pipe.Play(ctx)
}

// Click handles the user toggling the play/pause control.
func (c *Controller) Click(ctx context.Context) {
	c.mu.Lock()
	switch c.state {
	case domain.StatePlaying, domain.StateLoading:
		c.userPause = true
		c.mu.Unlock()
		c.pipe.Pause()
	default: // Idle, Paused, Errored: manual (re)start with a fresh connection
		c.pipe.SetSource(fmt.Sprintf("%s?t=%d", c.streamURL, c.nowF().Unix()))
		c.toLoadingLocked()
		c.mu.Unlock()
		c.pipe.Play(ctx)
	}
}

// HandleEvent applies one pipeline event to the transition table. Run calls this
// from a single goroutine; tests call it directly.
func (c *Controller) HandleEvent(ctx context.Context, ev pipeline.Event) {
	c.mu.Lock()
	from := c.state

	switch ev.Kind {
	case pipeline.EventPlaying:
		c.state = domain.StatePlaying
		c.sess = domain.Session{Active: true, Paused: false}
		c.persistLocked(ctx)
		c.view.ShowLoading(false)
		c.view.SetPlaying(true)

	case pipeline.EventWaiting:
		// Rebuffer: show the spinner, keep the logical play/pause intent untouched.
		if c.state == domain.StatePlaying || c.state == domain.StateLoading {
			c.state = domain.StateLoading
			c.view.ShowLoading(true)
		}

	case pipeline.EventPaused:
		if !c.userPause {
			// Platform-initiated stop without user intent: never record a pause.
			break
		}
		c.userPause = false
		c.state = domain.StatePaused
		c.sess = domain.Session{Active: true, Paused: true}
		c.persistLocked(ctx)
		c.view.ShowLoading(false)
		c.view.SetPlaying(false)

	case pipeline.EventError:
		if ev.Err != nil {
			log.Printf("playback: pipeline error: %v", ev.Err)
		}
		// Terminal until the user retries; the persisted record is left as-is so the
		// next reload still attempts to resume.
		c.state = domain.StateErrored
		c.userPause = false
		c.view.ShowLoading(false)
		c.view.SetPlaying(false)
	}

	to := c.state
	hook := c.hook
	c.mu.Unlock()

	if hook != nil && from != to {
		hook(from, to)
	}
}

// Run consumes pipeline events and drives the now-playing poll until ctx is done.
// The poll is independent of the state machine; its failures only leave stale text.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.pollEvery)
	defer ticker.Stop()

	c.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.pipe.Events():
			c.HandleEvent(ctx, ev)
		case <-ticker.C:
			c.pollOnce(ctx)
		}
	}
}

// State returns the controller's current state.
func (c *Controller) State() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the controller's in-memory session record.
func (c *Controller) Session() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

func (c *Controller) toLoadingLocked() {
	c.state = domain.StateLoading
	c.view.ShowLoading(true)
}

// persistLocked writes the session record back. Best-effort: a storage failure must
// never affect playback, so it is logged and dropped.
func (c *Controller) persistLocked(ctx context.Context) {
	if err := c.sessions.Put(ctx, c.sess); err != nil {
		log.Printf("playback: persist session: %v", err)
	}
}

func (c *Controller) pollOnce(ctx context.Context) {
	if c.status == nil {
		return
	}
	pollCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	st, err := c.status.Status(pollCtx)
	if err != nil {
		return // swallowed: the previous text stays up
	}
	if text := st.NowPlaying.Text(); text != "" {
		c.view.SetNowPlaying(text)
	}
}
