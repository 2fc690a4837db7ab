package rating

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Repository provides access to stored ratings.
type Repository interface {
	List(ctx context.Context) ([]Rating, error)
	ByReviewer(ctx context.Context, reviewerID string) ([]Rating, error)
	// ReviewerIDs returns distinct reviewer IDs starting with prefix, sorted, at
	// most limit. A limit <= 0 returns them all.
	ReviewerIDs(ctx context.Context, prefix string, limit int) ([]string, error)
	InsertMany(ctx context.Context, ratings []Rating) (int, error)
}

// InMemoryRepository is a simple in-memory implementation useful for tests and
// running without a database.
type InMemoryRepository struct {
	mu      sync.RWMutex
	storage []Rating
}

func NewInMemoryRepository(seed []Rating) *InMemoryRepository {
	r := &InMemoryRepository{storage: make([]Rating, 0, len(seed))}
	r.storage = append(r.storage, seed...)
	return r
}

func (r *InMemoryRepository) List(ctx context.Context) ([]Rating, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Rating, len(r.storage))
	copy(out, r.storage)
	return out, nil
}

func (r *InMemoryRepository) ByReviewer(ctx context.Context, reviewerID string) ([]Rating, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Rating, 0)
	for _, rt := range r.storage {
		if rt.ReviewerID == reviewerID {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) ReviewerIDs(ctx context.Context, prefix string, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]bool{}
	ids := make([]string, 0)
	for _, rt := range r.storage {
		if seen[rt.ReviewerID] || !strings.HasPrefix(rt.ReviewerID, prefix) {
			continue
		}
		seen[rt.ReviewerID] = true
		ids = append(ids, rt.ReviewerID)
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *InMemoryRepository) InsertMany(ctx context.Context, ratings []Rating) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage = append(r.storage, ratings...)
	return len(ratings), nil
}
