package ranking

import (
	"fmt"
	"sort"
	"time"

	"github.com/onnwee/feedrank/internal/feed"
)

// ReasonKind enumerates the explanation reason variants, in trigger
// priority order.
type ReasonKind string

const (
	ReasonFollowing      ReasonKind = "following"
	ReasonAuthorAffinity ReasonKind = "author_affinity"
	ReasonTopicInterest  ReasonKind = "topic_interest"
	ReasonSocialProof    ReasonKind = "social_proof"
	ReasonTrending       ReasonKind = "trending"
	ReasonFreshContent   ReasonKind = "fresh_content"
	ReasonPopular        ReasonKind = "popular"
)

// Explanation trigger thresholds.
const (
	// affinityReasonThreshold is the past-like count at which the
	// author_affinity reason fires.
	affinityReasonThreshold = 3

	// topicReasonThreshold is the interest weight above which a matched
	// topic fires the topic_interest reason.
	topicReasonThreshold = 0.5

	// trendingReasonThreshold is the base hot score above which the
	// trending reason fires.
	trendingReasonThreshold = 0.6

	// freshReasonAge is the item age under which the fresh_content
	// reason fires.
	freshReasonAge = 60 * time.Minute

	// maxSocialProofUsers caps how many engaged followers a social_proof
	// reason records.
	maxSocialProofUsers = 3
)

// Reason is one tagged justification for an item's placement.
type Reason struct {
	Kind ReasonKind `json:"kind"`

	// Author is set for following and author_affinity reasons.
	Author string `json:"author,omitempty"`

	// Topic is set for topic_interest reasons (first matching topic only).
	Topic string `json:"topic,omitempty"`

	// Users holds up to maxSocialProofUsers engaged followers for
	// social_proof reasons; Count is the full intersection size.
	Users []string `json:"users,omitempty"`
	Count int      `json:"count,omitempty"`
}

// Display renders the reason as a human-readable string. Presentation
// layers may localize instead; this mapping defines the reference wording,
// including the singular/plural boundary for social proof.
func (r Reason) Display() string {
	switch r.Kind {
	case ReasonFollowing:
		return fmt.Sprintf("You follow @%s", r.Author)
	case ReasonAuthorAffinity:
		return fmt.Sprintf("You often like posts from @%s", r.Author)
	case ReasonTopicInterest:
		return fmt.Sprintf("Matches your interest in %s", r.Topic)
	case ReasonSocialProof:
		if len(r.Users) == 0 {
			return "People you follow liked this"
		}
		if r.Count == 1 {
			return fmt.Sprintf("@%s liked this", r.Users[0])
		}
		return fmt.Sprintf("@%s and %d others you follow liked this", r.Users[0], r.Count-1)
	case ReasonTrending:
		return "Trending now"
	case ReasonFreshContent:
		return "Posted recently"
	case ReasonPopular:
		return "Popular right now"
	default:
		return string(r.Kind)
	}
}

// Explanation is the ranked list of justifications for one item: the first
// triggered reason becomes Primary, later triggers become Secondary in
// trigger order. The popular fallback guarantees Primary is always set.
type Explanation struct {
	ItemID    string   `json:"item_id"`
	Primary   Reason   `json:"primary"`
	Secondary []Reason `json:"secondary,omitempty"`
}

// Explain derives the explanation for a scored item by evaluating the
// trigger cascade in fixed priority order: following, author_affinity,
// topic_interest, social_proof, trending, fresh_content, then the popular
// fallback if nothing else fired.
func Explain(item *feed.ContentItem, profile *feed.UserProfile, signals Signals, now time.Time) *Explanation {
	var reasons []Reason

	if profile.Follows(item.AuthorID) {
		reasons = append(reasons, Reason{Kind: ReasonFollowing, Author: item.AuthorID})
	}

	if profile.LikesGiven(item.AuthorID) >= affinityReasonThreshold {
		reasons = append(reasons, Reason{Kind: ReasonAuthorAffinity, Author: item.AuthorID})
	}

	if topic, ok := firstInterestingTopic(item, profile); ok {
		reasons = append(reasons, Reason{Kind: ReasonTopicInterest, Topic: topic})
	}

	if users, count := engagedFollowers(item, profile); count > 0 {
		reasons = append(reasons, Reason{Kind: ReasonSocialProof, Users: users, Count: count})
	}

	if signals.BaseHot > trendingReasonThreshold {
		reasons = append(reasons, Reason{Kind: ReasonTrending})
	}

	if itemAge(item, now) < freshReasonAge {
		reasons = append(reasons, Reason{Kind: ReasonFreshContent})
	}

	if len(reasons) == 0 {
		reasons = append(reasons, Reason{Kind: ReasonPopular})
	}

	return &Explanation{
		ItemID:    item.ID,
		Primary:   reasons[0],
		Secondary: reasons[1:],
	}
}

// firstInterestingTopic returns the first extracted topic whose interest
// weight exceeds the topic reason threshold.
func firstInterestingTopic(item *feed.ContentItem, profile *feed.UserProfile) (string, bool) {
	if profile == nil || len(profile.TopicInterests) == 0 {
		return "", false
	}
	for _, topic := range ExtractTopics(item.Text) {
		if weight, ok := profile.TopicInterests[topic]; ok && weight > topicReasonThreshold {
			return topic, true
		}
	}
	return "", false
}

// engagedFollowers returns up to maxSocialProofUsers followed viewers who
// liked the item, sorted for deterministic output, plus the full
// intersection count.
func engagedFollowers(item *feed.ContentItem, profile *feed.UserProfile) ([]string, int) {
	if profile == nil || len(profile.FollowedAuthors) == 0 || len(item.LikedBy) == 0 {
		return nil, 0
	}
	var matched []string
	for id := range item.LikedBy {
		if _, ok := profile.FollowedAuthors[id]; ok {
			matched = append(matched, id)
		}
	}
	if len(matched) == 0 {
		return nil, 0
	}
	sort.Strings(matched)
	count := len(matched)
	if len(matched) > maxSocialProofUsers {
		matched = matched[:maxSocialProofUsers]
	}
	return matched, count
}
