package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"family-radio/companion/internal/playback/domain"
	"family-radio/companion/internal/playback/pipeline"
	"family-radio/companion/internal/playback/repository"
	stationdomain "family-radio/companion/internal/station/domain"
)

const streamURL = "https://radio.example.net/stream"

type fakePipeline struct {
	mu     sync.Mutex
	source string
	plays  int
	pauses int
	events chan pipeline.Event
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{events: make(chan pipeline.Event, 16)}
}

func (p *fakePipeline) SetSource(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = url
}

func (p *fakePipeline) Source() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

func (p *fakePipeline) Play(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays++
}

func (p *fakePipeline) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauses++
}

func (p *fakePipeline) Events() <-chan pipeline.Event { return p.events }
func (p *fakePipeline) Close() error                  { return nil }

func (p *fakePipeline) playCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays
}

type fakeView struct {
	mu         sync.Mutex
	loading    bool
	playing    bool
	nowPlaying string
}

func (v *fakeView) ShowLoading(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading = on
}

func (v *fakeView) SetPlaying(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playing = on
}

func (v *fakeView) SetNowPlaying(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nowPlaying = text
}

type fakeStatus struct {
	st  *stationdomain.Status
	err error
}

func (f *fakeStatus) Status(ctx context.Context) (*stationdomain.Status, error) {
	return f.st, f.err
}

func newController(repo repository.Repository) (*Controller, *fakePipeline, *fakeView) {
	pipe := newFakePipeline()
	view := &fakeView{}
	c := New(pipe, repo, nil, view, streamURL, time.Minute)
	return c, pipe, view
}

func TestAutoResumeReachesLoadingWithoutUserAction(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	if err := repo.Put(ctx, domain.Session{Active: true, Paused: false}); err != nil {
		t.Fatal(err)
	}

	c, pipe, _ := newController(repo)
	c.Load(ctx)
	c.AutoResume(ctx)

	if got := c.State(); got != domain.StateLoading {
		t.Fatalf("state = %v, want loading", got)
	}
	if pipe.playCount() != 1 {
		t.Fatalf("play calls = %d, want 1", pipe.playCount())
	}
	// Automatic resume uses the plain source, no cache-busting parameter.
	if src := pipe.Source(); src != streamURL {
		t.Errorf("source = %q, want plain stream URL", src)
	}

	pipe.events <- pipeline.Event{Kind: pipeline.EventPlaying}
	c.HandleEvent(ctx, <-pipe.events)
	if got := c.State(); got != domain.StatePlaying {
		t.Errorf("state after playing event = %v", got)
	}
}

func TestNoAutoResumeWhenPaused(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	if err := repo.Put(ctx, domain.Session{Active: true, Paused: true}); err != nil {
		t.Fatal(err)
	}

	c, pipe, view := newController(repo)
	c.Load(ctx)
	c.AutoResume(ctx)

	if pipe.playCount() != 0 {
		t.Fatalf("play calls = %d, want 0", pipe.playCount())
	}
	if got := c.State(); got != domain.StateIdle {
		t.Errorf("state = %v, want idle", got)
	}
	if view.playing || view.loading {
		t.Error("view must stay in the paused/idle visual state")
	}
}

func TestStallNeverPersistsPause(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	c, _, _ := newController(repo)
	c.Load(ctx)
	c.Click(ctx)
	c.HandleEvent(ctx, pipeline.Event{Kind: pipeline.EventPlaying})
	putsAfterPlaying := repo.Puts()

	// Platform-initiated pause without user intent: storage must be untouched.
	c.HandleEvent(ctx, pipeline.Event{Kind: pipeline.EventPaused})

	if repo.Puts() != putsAfterPlaying {
		t.Fatal("stall caused a session write")
	}
	sess, err := repo.Get(ctx)
	if err != nil || sess == nil {
		t.Fatalf("Get: %v %v", sess, err)
	}
	if sess.Paused {
		t.Error("persisted record reports paused=true after a stall")
	}
}

func TestUserPausePersistsIntent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	c, pipe, view := newController(repo)
	c.Load(ctx)
	c.Click(ctx)
	c.HandleEvent(ctx, pipeline.Event{Kind: pipeline.EventPlaying})

	c.Click(ctx) // user pause
	if pipe.pauses != 1 {
		t.Fatalf("pause calls = %d, want 1", pipe.pauses)
	}
	c.HandleEvent(ctx, pipeline.Event{Kind: pipeline.EventPaused})

	if got := c.State(); got != domain.StatePaused {
		t.Fatalf("state = %v, want paused", got)
	}
	sess, _ := repo.Get(ctx)
	if sess == nil || !sess.Active || !sess.Paused {
		t.Errorf("persisted = %+v, want {Active:true Paused:true}", sess)
	}
	if view.playing {
		t.Error("control should show the play glyph after a user pause")
	}

	// The intent flag is one-shot: a later platform pause must not persist.
	c.HandleEvent(ctx, pipeline.Event{Kind: pipeline.EventPlaying})
	puts := repo.Puts()
	c.HandleEvent(ctx, pipeline.Event{Kind: pipeline.EventPaused})
	if repo.Puts() != puts {
		t.Error("pause intent leaked past its one-shot use")
	}
}

func TestManualStartCacheBustsSource(t *testing.T) {
	ctx := context.Background()
	c, pipe, _ := newController(repository.NewMemoryRepository())
	c.Load(ctx)
	c.Click(ctx)

	src := pipe.Source()
	if !strings.HasPrefix(src, streamURL+"?t=") {
		t.Errorf("source = %q, want cache-busted stream URL", src)
	}
	if got := c.State(); got != domain.StateLoading {
		t.Errorf("state = %v, want loading", got)
	}
}

func TestRebufferKeepsIntentAndStorage(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	c, _, view := newController(repo)
	c.Load(ctx)
	c.Click(ctx)
	c.HandleEvent(ctx, pipeline.Event{Kind: pipeline.EventPlaying})
	puts := repo.Puts()

	c.HandleEvent(ctx, pipeline.Event{Kind: pipeline.EventWaiting})

	if got := c.State(); got != domain.StateLoading {
		t.Fatalf("state = %v, want loading", got)
	}
	if !view.loading {
		t.Error("loading indicator should show during a rebuffer")
	}
	if repo.Puts() != puts {
		t.Error("rebuffer wrote to storage")
	}
}

func TestErrorIsTerminalUntilClick(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	c, pipe, view := newController(repo)
	c.Load(ctx)
	c.Click(ctx)
	c.HandleEvent(ctx, pipeline.Event{Kind: pipeline.EventPlaying})
	puts := repo.Puts()

	c.HandleEvent(ctx, pipeline.Event{Kind: pipeline.EventError, Err: errors.New("decode failed")})

	if got := c.State(); got != domain.StateErrored {
		t.Fatalf("state = %v, want errored", got)
	}
	if view.loading || view.playing {
		t.Error("error must hide the spinner and revert to the play glyph")
	}
	if repo.Puts() != puts {
		t.Error("error wrote to storage; the next reload should still auto-resume")
	}

	// Only an explicit click leaves Errored.
	c.Click(ctx)
	if got := c.State(); got != domain.StateLoading {
		t.Errorf("state after retry click = %v, want loading", got)
	}
	if pipe.playCount() != 2 {
		t.Errorf("play calls = %d, want 2", pipe.playCount())
	}
}

func TestPollUpdatesTextAndSwallowsFailures(t *testing.T) {
	ctx := context.Background()
	status := &fakeStatus{st: &stationdomain.Status{
		StationName: "Family Radio",
		NowPlaying:  &stationdomain.NowPlaying{Title: "Song", Artist: "Band"},
	}}
	pipe := newFakePipeline()
	view := &fakeView{}
	c := New(pipe, repository.NewMemoryRepository(), status, view, streamURL, time.Minute)

	c.pollOnce(ctx)
	if view.nowPlaying != "Song — Band" {
		t.Errorf("nowPlaying = %q", view.nowPlaying)
	}

	status.st, status.err = nil, errors.New("down")
	c.pollOnce(ctx)
	if view.nowPlaying != "Song — Band" {
		t.Error("a failed poll must leave the previous text displayed")
	}
	if got := c.State(); got != domain.StateIdle {
		t.Errorf("poll failure leaked into playback state: %v", got)
	}
}

func TestShouldAttach(t *testing.T) {
	active := &domain.Session{Active: true}
	cases := []struct {
		page string
		sess *domain.Session
		want bool
	}{
		{"#library", active, true},
		{"#submit", active, true},
		{"#playing", active, false}, // dedicated now-playing page hosts the full player
		{"", active, false},
		{"#library", nil, false},
		{"#library", &domain.Session{}, false},
	}
	for _, tc := range cases {
		if got := domain.ShouldAttach(tc.page, tc.sess); got != tc.want {
			t.Errorf("ShouldAttach(%q, %+v) = %v, want %v", tc.page, tc.sess, got, tc.want)
		}
	}
}
