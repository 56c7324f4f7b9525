package platform

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"family-radio/companion/internal/push/domain"
	"family-radio/companion/internal/webpush"
)

// MemoryService is an in-memory PushService for tests.
type MemoryService struct {
	mu         sync.Mutex
	permission Permission
	sub        *domain.Subscription
	notReady   bool
	subscribes int
}

func NewMemoryService() *MemoryService {
	return &MemoryService{permission: PermissionDefault}
}

// SetPermission seeds the stored permission state.
func (s *MemoryService) SetPermission(p Permission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permission = p
}

// SetNotReady makes Ready fail instead of returning immediately.
func (s *MemoryService) SetNotReady(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notReady = v
}

// Subscribes reports how many subscriptions were created (not reused).
func (s *MemoryService) Subscribes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribes
}

func (s *MemoryService) Ready(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notReady {
		return errors.New("platform: no worker registration")
	}
	return nil
}

func (s *MemoryService) Permission(ctx context.Context) (Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission, nil
}

func (s *MemoryService) RequestPermission(ctx context.Context, prompt Prompt) (Permission, error) {
	s.mu.Lock()
	current := s.permission
	s.mu.Unlock()
	if current != PermissionDefault {
		return current, nil
	}
	granted, err := prompt.Ask(ctx)
	if err != nil {
		return "", err
	}
	next := PermissionDenied
	if granted {
		next = PermissionGranted
	}
	s.mu.Lock()
	s.permission = next
	s.mu.Unlock()
	return next, nil
}

func (s *MemoryService) GetSubscription(ctx context.Context) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == nil {
		return nil, nil
	}
	copied := *s.sub
	return &copied, nil
}

func (s *MemoryService) Subscribe(ctx context.Context, serverKey string) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		if s.sub.ServerKey == serverKey {
			copied := *s.sub
			return &copied, nil
		}
		return nil, errors.New("platform: a subscription with a different application server key exists")
	}
	keys, err := webpush.GenerateKeys()
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	s.sub = &domain.Subscription{
		ID:           id,
		Endpoint:     "http://127.0.0.1:0/push/" + id,
		P256dh:       keys.P256dh,
		Auth:         keys.Auth,
		UAPrivateKey: keys.Private.Bytes(),
		ServerKey:    serverKey,
		CreatedAt:    time.Now().UTC(),
	}
	s.subscribes++
	copied := *s.sub
	return &copied, nil
}

func (s *MemoryService) Unsubscribe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sub = nil
	return nil
}

// StaticPrompt answers every permission prompt the same way.
type StaticPrompt bool

func (p StaticPrompt) Ask(ctx context.Context) (bool, error) { return bool(p), nil }
