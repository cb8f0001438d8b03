// Package feed provides models and repositories for feed candidate content
// and viewer personalization profiles.
package feed

import (
	"time"
)

// EngagementCounts holds the raw engagement counters for a content item.
// Counters are non-negative and only ever increase over the item's life.
type EngagementCounts struct {
	Likes   int64 `json:"likes"`
	Replies int64 `json:"replies"`
	Reposts int64 `json:"reposts"`
}

// ContentItem is a single candidate for feed ranking. Items are created by
// the authoring subsystem and mutated only by counter increments; the ranking
// engine treats them as immutable snapshots.
type ContentItem struct {
	ID         string           `json:"id"`
	AuthorID   string           `json:"author_id"`
	Text       string           `json:"text"`
	CreatedAt  time.Time        `json:"created_at"`
	Engagement EngagementCounts `json:"engagement"`

	// LikedBy is the set of viewer IDs who liked this item, used for the
	// social-proof signal. Grows monotonically.
	LikedBy map[string]struct{} `json:"-"`
}

// Clone returns a deep copy of the item. Repositories return clones so a
// ranking call never observes a half-updated counter or liked-by set.
func (c *ContentItem) Clone() *ContentItem {
	if c == nil {
		return nil
	}
	cp := *c
	if c.LikedBy != nil {
		cp.LikedBy = make(map[string]struct{}, len(c.LikedBy))
		for id := range c.LikedBy {
			cp.LikedBy[id] = struct{}{}
		}
	}
	return &cp
}

// UserProfile is the per-viewer personalization state, rebuilt by the
// interaction-tracking subsystem. The ranking engine reads it and never
// mutates it.
type UserProfile struct {
	ViewerID string `json:"viewer_id"`

	// FollowedAuthors is the set of author IDs the viewer follows.
	FollowedAuthors map[string]struct{} `json:"-"`

	// LikedAuthorCounts maps author ID to the number of likes this viewer
	// has given that author. Unbounded; consumers apply thresholds.
	LikedAuthorCounts map[string]int64 `json:"liked_author_counts,omitempty"`

	// TopicInterests maps a topic token to an interest weight in [0, 1].
	TopicInterests map[string]float64 `json:"topic_interests,omitempty"`

	// TotalInteractions drives the cold-start decision. Monotonically
	// non-decreasing with the viewer's recorded likes/follows/updates.
	TotalInteractions int64 `json:"total_interactions"`
}

// Clone returns a deep copy of the profile.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	cp := *p
	if p.FollowedAuthors != nil {
		cp.FollowedAuthors = make(map[string]struct{}, len(p.FollowedAuthors))
		for id := range p.FollowedAuthors {
			cp.FollowedAuthors[id] = struct{}{}
		}
	}
	if p.LikedAuthorCounts != nil {
		cp.LikedAuthorCounts = make(map[string]int64, len(p.LikedAuthorCounts))
		for id, n := range p.LikedAuthorCounts {
			cp.LikedAuthorCounts[id] = n
		}
	}
	if p.TopicInterests != nil {
		cp.TopicInterests = make(map[string]float64, len(p.TopicInterests))
		for topic, w := range p.TopicInterests {
			cp.TopicInterests[topic] = w
		}
	}
	return &cp
}

// Follows reports whether the viewer follows the given author.
func (p *UserProfile) Follows(authorID string) bool {
	if p == nil || p.FollowedAuthors == nil {
		return false
	}
	_, ok := p.FollowedAuthors[authorID]
	return ok
}

// LikesGiven returns how many likes the viewer has given the author.
func (p *UserProfile) LikesGiven(authorID string) int64 {
	if p == nil || p.LikedAuthorCounts == nil {
		return 0
	}
	return p.LikedAuthorCounts[authorID]
}

// EmptyProfile returns a profile with zero interaction history for a viewer
// the tracking subsystem has never seen. Such viewers always take the
// cold-start scoring path.
func EmptyProfile(viewerID string) *UserProfile {
	return &UserProfile{
		ViewerID:          viewerID,
		FollowedAuthors:   map[string]struct{}{},
		LikedAuthorCounts: map[string]int64{},
		TopicInterests:    map[string]float64{},
		TotalInteractions: 0,
	}
}
