package repository

import (
	"context"
	"sync"

	"family-radio/companion/internal/station/domain"
)

// MemoryRepository is an in-memory Repository implementation, used in tests and
// as the degraded fallback when the origin store cannot be opened.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[string]domain.Identity
}

// NewMemoryRepository returns an empty in-memory identity repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]domain.Identity)}
}

func (r *MemoryRepository) Get(ctx context.Context, origin string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident, ok := r.m[origin]
	if !ok {
		return nil, nil
	}
	out := ident
	return &out, nil
}

func (r *MemoryRepository) Put(ctx context.Context, ident *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[ident.Origin] = *ident
	return nil
}

func (r *MemoryRepository) ClearStreamURL(ctx context.Context, origin string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ident, ok := r.m[origin]; ok {
		ident.StreamURL = ""
		r.m[origin] = ident
	}
	return nil
}
