package operator

import (
	"context"
	"sync"
)

type Repository interface {
	GetByUsername(ctx context.Context, username string) (Operator, error)
	Create(ctx context.Context, op Operator) error
}

type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Operator
}

func NewInMemoryRepository(seed []Operator) *InMemoryRepository {
	items := make(map[string]Operator, len(seed))
	for _, op := range seed {
		items[op.Username] = op
	}
	return &InMemoryRepository{items: items}
}

func (r *InMemoryRepository) GetByUsername(ctx context.Context, username string) (Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.items[username]
	if !ok {
		return Operator{}, ErrNotFound
	}
	return op, nil
}

func (r *InMemoryRepository) Create(ctx context.Context, op Operator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[op.Username]; ok {
		return ErrExists
	}
	r.items[op.Username] = op
	return nil
}
