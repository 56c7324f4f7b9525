package repository

import (
	"context"
	"sync"

	"family-radio/companion/internal/playback/domain"
)

// MemoryRepository is an in-memory Repository implementation for tests.
type MemoryRepository struct {
	mu   sync.Mutex
	s    *domain.Session
	puts int
}

// NewMemoryRepository returns an empty in-memory session repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Get(ctx context.Context) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.s == nil {
		return nil, nil
	}
	out := *r.s
	return &out, nil
}

func (r *MemoryRepository) Put(ctx context.Context, s domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.s = &s
	r.puts++
	return nil
}

func (r *MemoryRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.s = nil
	return nil
}

// Puts returns how many times Put was called; tests use it to assert a stall
// caused no persistence.
func (r *MemoryRepository) Puts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.puts
}
