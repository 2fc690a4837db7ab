package lookup

import (
	"context"
	"strings"
)

// DefaultSuggestions are sample reviewer IDs offered for any non-empty input.
var DefaultSuggestions = []string{
	"A0096681Y127OL1H8W3U",
	"AKX9EQ37PAYMY",
	"A2ZRAUZCUHW66X",
}

// StaticSuggestions returns the same list whatever was typed.
type StaticSuggestions []string

func (s StaticSuggestions) Suggest(ctx context.Context, input string) ([]string, error) {
	out := make([]string, len(s))
	copy(out, s)
	return out, nil
}

// ReviewerLookup lists known reviewer IDs by prefix.
type ReviewerLookup interface {
	ReviewerIDs(ctx context.Context, prefix string, limit int) ([]string, error)
}

// StoreSuggestions offers stored reviewer IDs that start with the trimmed input.
type StoreSuggestions struct {
	store ReviewerLookup
	limit int
}

func NewStoreSuggestions(store ReviewerLookup, limit int) *StoreSuggestions {
	return &StoreSuggestions{store: store, limit: limit}
}

func (s *StoreSuggestions) Suggest(ctx context.Context, input string) ([]string, error) {
	return s.store.ReviewerIDs(ctx, strings.TrimSpace(input), s.limit)
}
