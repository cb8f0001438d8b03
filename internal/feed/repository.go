package feed

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Common errors for feed store operations.
var (
	ErrItemNotFound    = errors.New("content item not found")
	ErrProfileNotFound = errors.New("user profile not found")
)

// ContentStore supplies the candidate pool for a ranking call.
type ContentStore interface {
	// ListCandidates returns up to limit of the most recent content items.
	// Implementations must return stable snapshots: the returned items are
	// not aliased by concurrent writers.
	ListCandidates(ctx context.Context, limit int) ([]*ContentItem, error)

	// GetItem retrieves a single item by ID.
	GetItem(ctx context.Context, id string) (*ContentItem, error)
}

// ProfileStore supplies viewer personalization profiles.
type ProfileStore interface {
	// GetProfile retrieves the profile for a viewer.
	// Returns ErrProfileNotFound for viewers with no recorded history.
	GetProfile(ctx context.Context, viewerID string) (*UserProfile, error)
}

// InMemoryStore is a mutex-guarded in-memory implementation of ContentStore
// and ProfileStore, used in tests and for local development without a
// database. All reads return deep copies so callers hold stable snapshots.
type InMemoryStore struct {
	mu       sync.RWMutex
	items    map[string]*ContentItem
	profiles map[string]*UserProfile
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		items:    make(map[string]*ContentItem),
		profiles: make(map[string]*UserProfile),
	}
}

// PutItem inserts or replaces a content item. A missing ID is generated.
func (s *InMemoryStore) PutItem(item *ContentItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	s.items[item.ID] = item.Clone()
}

// PutProfile inserts or replaces a viewer profile.
func (s *InMemoryStore) PutProfile(profile *UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.ViewerID] = profile.Clone()
}

// RecordLike increments the like counter on an item and adds the viewer to
// its liked-by set. Missing items are ignored.
func (s *InMemoryStore) RecordLike(itemID, viewerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return
	}
	item.Engagement.Likes++
	if item.LikedBy == nil {
		item.LikedBy = make(map[string]struct{})
	}
	item.LikedBy[viewerID] = struct{}{}
}

// ListCandidates returns up to limit items ordered by created_at DESC with
// ID as the tie-breaker for a stable order.
func (s *InMemoryStore) ListCandidates(_ context.Context, limit int) ([]*ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*ContentItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetItem retrieves a single item snapshot by ID.
func (s *InMemoryStore) GetItem(_ context.Context, id string) (*ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	return item.Clone(), nil
}

// GetProfile retrieves a profile snapshot for a viewer.
func (s *InMemoryStore) GetProfile(_ context.Context, viewerID string) (*UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[viewerID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return profile.Clone(), nil
}
