package feed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// TestInMemoryStore_ListCandidates verifies ordering and limit behavior.
func TestInMemoryStore_ListCandidates(t *testing.T) {
	store := NewInMemoryStore()
	now := time.Now()

	for i := 0; i < 5; i++ {
		store.PutItem(&ContentItem{
			ID:        fmt.Sprintf("item%d", i),
			AuthorID:  "author1",
			Text:      fmt.Sprintf("post %d", i),
			CreatedAt: now.Add(-time.Duration(i) * time.Hour),
		})
	}

	items, err := store.ListCandidates(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i-1].CreatedAt.Before(items[i].CreatedAt) {
			t.Errorf("items not ordered newest first at %d", i)
		}
	}

	limited, err := store.ListCandidates(context.Background(), 3)
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}
	if len(limited) != 3 {
		t.Errorf("expected 3 items with limit, got %d", len(limited))
	}
	if limited[0].ID != "item0" {
		t.Errorf("expected newest item first, got %s", limited[0].ID)
	}
}

// TestInMemoryStore_SnapshotIsolation verifies reads are stable snapshots:
// writes after a read must not leak into previously returned items.
func TestInMemoryStore_SnapshotIsolation(t *testing.T) {
	store := NewInMemoryStore()
	store.PutItem(&ContentItem{ID: "item1", AuthorID: "author1", Text: "post", CreatedAt: time.Now()})

	items, err := store.ListCandidates(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	snapshot := items[0]
	if snapshot.Engagement.Likes != 0 {
		t.Fatalf("expected zero likes, got %d", snapshot.Engagement.Likes)
	}

	store.RecordLike("item1", "viewer1")
	store.RecordLike("item1", "viewer2")

	if snapshot.Engagement.Likes != 0 {
		t.Errorf("snapshot mutated by later write: likes=%d", snapshot.Engagement.Likes)
	}
	if len(snapshot.LikedBy) != 0 {
		t.Errorf("snapshot liked-by set mutated by later write: %v", snapshot.LikedBy)
	}

	fresh, err := store.GetItem(context.Background(), "item1")
	if err != nil {
		t.Fatal(err)
	}
	if fresh.Engagement.Likes != 2 || len(fresh.LikedBy) != 2 {
		t.Errorf("fresh read should see the writes: %+v", fresh)
	}
}

// TestInMemoryStore_GetProfile verifies profile lookup and the not-found
// sentinel.
func TestInMemoryStore_GetProfile(t *testing.T) {
	store := NewInMemoryStore()
	store.PutProfile(&UserProfile{
		ViewerID:          "viewer1",
		FollowedAuthors:   map[string]struct{}{"author1": {}},
		TotalInteractions: 42,
	})

	profile, err := store.GetProfile(context.Background(), "viewer1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.TotalInteractions != 42 {
		t.Errorf("expected 42 interactions, got %d", profile.TotalInteractions)
	}
	if !profile.Follows("author1") {
		t.Error("expected followed author present")
	}

	_, err = store.GetProfile(context.Background(), "nobody")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

// TestInMemoryStore_PutItemGeneratesID verifies missing IDs are assigned.
func TestInMemoryStore_PutItemGeneratesID(t *testing.T) {
	store := NewInMemoryStore()
	item := &ContentItem{AuthorID: "author1", Text: "post", CreatedAt: time.Now()}
	store.PutItem(item)

	if item.ID == "" {
		t.Error("expected an ID to be generated")
	}
	if _, err := store.GetItem(context.Background(), item.ID); err != nil {
		t.Errorf("expected item retrievable by generated ID: %v", err)
	}
}

// TestContentItemClone verifies deep copying of the liked-by set.
func TestContentItemClone(t *testing.T) {
	item := &ContentItem{
		ID:      "item1",
		LikedBy: map[string]struct{}{"viewer1": {}},
	}
	cp := item.Clone()
	cp.LikedBy["viewer2"] = struct{}{}

	if len(item.LikedBy) != 1 {
		t.Errorf("clone shares liked-by set with original: %v", item.LikedBy)
	}
}

// TestUserProfileClone verifies deep copying of all maps.
func TestUserProfileClone(t *testing.T) {
	p := &UserProfile{
		ViewerID:          "viewer1",
		FollowedAuthors:   map[string]struct{}{"author1": {}},
		LikedAuthorCounts: map[string]int64{"author1": 2},
		TopicInterests:    map[string]float64{"music": 0.5},
	}
	cp := p.Clone()
	cp.FollowedAuthors["author2"] = struct{}{}
	cp.LikedAuthorCounts["author1"] = 99
	cp.TopicInterests["music"] = 1.0

	if len(p.FollowedAuthors) != 1 || p.LikedAuthorCounts["author1"] != 2 || p.TopicInterests["music"] != 0.5 {
		t.Errorf("clone shares maps with original: %+v", p)
	}
}

// TestUserProfileHelpers covers nil-safety of the accessor helpers.
func TestUserProfileHelpers(t *testing.T) {
	var p *UserProfile
	if p.Follows("anyone") {
		t.Error("nil profile should follow nobody")
	}
	if p.LikesGiven("anyone") != 0 {
		t.Error("nil profile should have zero likes given")
	}

	empty := EmptyProfile("viewer1")
	if empty.Follows("anyone") || empty.LikesGiven("anyone") != 0 {
		t.Error("empty profile should have no history")
	}
	if empty.TotalInteractions != 0 {
		t.Error("empty profile should have zero interactions")
	}
}
