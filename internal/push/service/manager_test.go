package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	pushclient "family-radio/companion/internal/push/client"
	"family-radio/companion/internal/push/domain"
	"family-radio/companion/internal/push/platform"
)

// fakeServer stands in for the radio server's push API.
type fakeServer struct {
	mu          sync.Mutex
	key         string
	keyErr      error
	registerErr error
	registered  []domain.Record
	removed     []domain.Record
}

func (s *fakeServer) VAPIDKey(ctx context.Context) (string, error) {
	if s.keyErr != nil {
		return "", s.keyErr
	}
	return s.key, nil
}

func (s *fakeServer) Register(ctx context.Context, rec domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registerErr != nil {
		return s.registerErr
	}
	s.registered = append(s.registered, rec)
	return nil
}

func (s *fakeServer) Deregister(ctx context.Context, rec domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, rec)
	return nil
}

func newManager(svc platform.PushService, api ServerAPI) *Manager {
	return NewManager(platform.Desktop(), svc, api, platform.StaticPrompt(true))
}

func TestSubscribeHappyPath(t *testing.T) {
	svc := platform.NewMemoryService()
	api := &fakeServer{key: "server-key"}
	m := newManager(svc, api)

	sub, err := m.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if sub.Endpoint == "" || sub.P256dh == "" || sub.Auth == "" {
		t.Errorf("subscription missing wire fields: %+v", sub.Record())
	}
	if len(api.registered) != 1 || api.registered[0] != sub.Record() {
		t.Errorf("server saw %v, want exactly the new record", api.registered)
	}
	if !m.IsSubscribed(context.Background()) {
		t.Error("IsSubscribed = false after a successful subscribe")
	}
}

func TestSubscribeRetryAfterRegisterFailureReusesSubscription(t *testing.T) {
	svc := platform.NewMemoryService()
	api := &fakeServer{key: "server-key", registerErr: errors.New("boom")}
	m := newManager(svc, api)

	if _, err := m.Subscribe(context.Background()); err == nil {
		t.Fatal("expected the first subscribe to fail at registration")
	}

	// The platform subscription survives the failed registration.
	if !m.IsSubscribed(context.Background()) {
		t.Fatal("platform subscription should survive a failed server registration")
	}

	api.registerErr = nil
	sub, err := m.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("retry Subscribe: %v", err)
	}
	if svc.Subscribes() != 1 {
		t.Errorf("platform created %d subscriptions, want 1 (reuse on retry)", svc.Subscribes())
	}
	if len(api.registered) != 1 || api.registered[0] != sub.Record() {
		t.Errorf("server registered %v, want the reused record once", api.registered)
	}
}

func TestSubscribePermissionDenied(t *testing.T) {
	svc := platform.NewMemoryService()
	api := &fakeServer{key: "server-key"}
	m := NewManager(platform.Desktop(), svc, api, platform.StaticPrompt(false))

	if _, err := m.Subscribe(context.Background()); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("Subscribe err = %v, want ErrPermissionDenied", err)
	}
	if len(api.registered) != 0 {
		t.Error("nothing should reach the server when permission is denied")
	}

	// Denied is sticky: the prompt is not consulted again.
	m2 := NewManager(platform.Desktop(), svc, api, platform.StaticPrompt(true))
	if _, err := m2.Subscribe(context.Background()); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("Subscribe after denial err = %v, want ErrPermissionDenied", err)
	}
}

func TestSubscribeUnsupported(t *testing.T) {
	env := platform.StaticEnvironment{SupportedFlag: false}
	m := NewManager(env, platform.NewMemoryService(), &fakeServer{key: "k"}, platform.StaticPrompt(true))

	if _, err := m.Subscribe(context.Background()); !errors.Is(err, domain.ErrUnsupported) {
		t.Fatalf("Subscribe err = %v, want ErrUnsupported", err)
	}
	if m.IsSubscribed(context.Background()) {
		t.Error("IsSubscribed must be false on an unsupported platform")
	}
}

func TestSubscribeServerNotConfigured(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	svc := platform.NewMemoryService()
	svc.SetPermission(platform.PermissionGranted)
	m := newManager(svc, pushclient.New(ts.URL))

	if _, err := m.Subscribe(context.Background()); !errors.Is(err, domain.ErrServerNotConfigured) {
		t.Fatalf("Subscribe err = %v, want ErrServerNotConfigured", err)
	}
	if m.IsSubscribed(context.Background()) {
		t.Error("no platform subscription should be created when the server has no key")
	}
}

func TestSubscribeWaitsForWorker(t *testing.T) {
	svc := platform.NewMemoryService()
	svc.SetNotReady(true)
	m := newManager(svc, &fakeServer{key: "k"})

	if _, err := m.Subscribe(context.Background()); err == nil {
		t.Fatal("expected subscribe to fail while no worker is registered")
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	svc := platform.NewMemoryService()
	api := &fakeServer{key: "server-key"}
	m := newManager(svc, api)

	if _, err := m.Subscribe(context.Background()); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := m.Unsubscribe(context.Background()); err != nil {
			t.Fatalf("Unsubscribe #%d: %v", i+1, err)
		}
	}
	if m.IsSubscribed(context.Background()) {
		t.Error("still subscribed after unsubscribe")
	}
	if len(api.removed) != 1 {
		t.Errorf("server deregistered %d times, want 1 (second call is a local no-op)", len(api.removed))
	}
}

func TestUnsubscribeWithoutSubscription(t *testing.T) {
	api := &fakeServer{}
	m := newManager(platform.NewMemoryService(), api)

	if err := m.Unsubscribe(context.Background()); err != nil {
		t.Fatalf("Unsubscribe with nothing subscribed: %v", err)
	}
	if len(api.removed) != 0 {
		t.Error("no server call expected when there is nothing to deregister")
	}
}
