package ranking

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/onnwee/feedrank/internal/feed"
)

// Signals is the per-(item, call) value object holding the seven computed
// signal scalars. Every field is bounded to [0, 1]; DiversityPenalty is the
// fraction of penalty applied (1 = maximum repetition) and is the only
// signal expressed as a cost rather than a benefit.
type Signals struct {
	BaseHot          float64 `json:"base_hot"`
	AuthorAffinity   float64 `json:"author_affinity"`
	TopicRelevance   float64 `json:"topic_relevance"`
	SocialProof      float64 `json:"social_proof"`
	DiversityPenalty float64 `json:"diversity_penalty"`
	Quality          float64 `json:"quality"`
	Freshness        float64 `json:"freshness"`
}

// affinitySaturationLikes is the like count at which author affinity reaches
// its plateau of 1.0.
const affinitySaturationLikes = 3

// hotScoreSaturation controls how much engagement velocity it takes to
// approach a hot score of 1.0. A velocity equal to the constant maps to 0.5.
const hotScoreSaturation = 5.0

// clamp01 bounds v to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// itemAge returns the item's age at the reference time, clamped to zero for
// items stamped in the future by clock skew.
func itemAge(item *feed.ContentItem, now time.Time) time.Duration {
	age := now.Sub(item.CreatedAt)
	if age < 0 {
		return 0
	}
	return age
}

// BaseHotScore computes the engagement-velocity popularity signal.
// Replies and reposts count more than likes, the sum is divided by an
// (age+2h)^1.5 gravity denominator so older high-engagement items decay, and
// the resulting velocity is squashed into [0, 1) by v/(v+k) saturation.
func BaseHotScore(item *feed.ContentItem, now time.Time) float64 {
	raw := float64(item.Engagement.Likes) +
		2.0*float64(item.Engagement.Replies) +
		3.0*float64(item.Engagement.Reposts)
	if raw <= 0 {
		return 0
	}

	ageHours := itemAge(item, now).Hours()
	// Exponent 1.5 keeps the decay between linear and quadratic, so older
	// high-engagement items fade without being erased.
	gravity := math.Pow(ageHours+2.0, 1.5)

	velocity := raw / gravity
	return clamp01(velocity / (velocity + hotScoreSaturation))
}

// AuthorAffinity computes the viewer-author like-history signal: 0 for
// authors the viewer has never liked, ramping linearly to a plateau of 1.0
// at affinitySaturationLikes past likes.
func AuthorAffinity(authorID string, profile *feed.UserProfile) float64 {
	count := profile.LikesGiven(authorID)
	if count <= 0 {
		return 0
	}
	if count >= affinitySaturationLikes {
		return 1.0
	}
	return float64(count) / float64(affinitySaturationLikes)
}

// TopicRelevance extracts topic tokens from the item text, looks each up in
// the viewer's interest map, and returns the maximum matched weight. Empty
// or non-matching text yields 0, never an error.
func TopicRelevance(item *feed.ContentItem, profile *feed.UserProfile) float64 {
	if profile == nil || len(profile.TopicInterests) == 0 {
		return 0
	}

	best := 0.0
	for _, topic := range ExtractTopics(item.Text) {
		if weight, ok := profile.TopicInterests[topic]; ok && weight > best {
			best = weight
		}
	}
	return clamp01(best)
}

// SocialProof computes how strongly people the viewer follows engaged with
// the item: the size n of the intersection between the item's liked-by set
// and the viewer's followed set, saturated via n/(n+2) so each additional
// engaged follower adds less.
func SocialProof(item *feed.ContentItem, profile *feed.UserProfile) float64 {
	n := engagedFollowerCount(item, profile)
	if n == 0 {
		return 0
	}
	return float64(n) / (float64(n) + 2.0)
}

// engagedFollowerCount returns |item.LikedBy ∩ profile.FollowedAuthors|.
func engagedFollowerCount(item *feed.ContentItem, profile *feed.UserProfile) int {
	if profile == nil || len(profile.FollowedAuthors) == 0 || len(item.LikedBy) == 0 {
		return 0
	}
	// Iterate the smaller set.
	small, large := item.LikedBy, profile.FollowedAuthors
	if len(large) < len(small) {
		small, large = large, small
	}
	n := 0
	for id := range small {
		if _, ok := large[id]; ok {
			n++
		}
	}
	return n
}

// DiversityPenalty reflects how many items by the same author have already
// been scored in the current feed context. The penalty ramps linearly with
// the running count and saturates at 1.0 once the author has filled
// MaxPerAuthor slots.
func DiversityPenalty(authorID string, ctx *FeedContext) float64 {
	if ctx == nil || ctx.MaxPerAuthor < 1 {
		return 0
	}
	count := ctx.perAuthorCounts[authorID]
	if count <= 0 {
		return 0
	}
	return clamp01(float64(count) / float64(ctx.MaxPerAuthor))
}

// Quality heuristic constants: character-length band considered well-formed,
// and the spam-marker penalties applied on top of the length score.
const (
	qualityMinLength   = 20
	qualityIdealLength = 80
	qualityMaxLength   = 600

	spamHashtagLimit   = 5
	spamPenaltyPerFlag = 0.25
)

// QualityScore computes an intrinsic, viewer-independent quality heuristic
// in [0, 1]: a length-appropriateness base score minus penalties for spam
// markers (hashtag stuffing, shouting, link spam). Used heavily during cold
// start, where personal signals are unavailable.
func QualityScore(item *feed.ContentItem) float64 {
	text := strings.TrimSpace(item.Text)
	if text == "" {
		return 0
	}

	score := lengthScore(len([]rune(text)))

	flags := 0
	if strings.Count(text, "#") > spamHashtagLimit {
		flags++
	}
	if shoutingRatio(text) > 0.7 {
		flags++
	}
	if strings.Count(strings.ToLower(text), "http") > 2 {
		flags++
	}
	score -= float64(flags) * spamPenaltyPerFlag

	return clamp01(score)
}

// lengthScore maps rune count to a [0, 1] band: short fragments and walls of
// text score lower than posts in the ideal range.
func lengthScore(n int) float64 {
	switch {
	case n < qualityMinLength:
		return 0.4 + 0.3*float64(n)/float64(qualityMinLength)
	case n <= qualityIdealLength:
		return 0.7 + 0.3*float64(n-qualityMinLength)/float64(qualityIdealLength-qualityMinLength)
	case n <= qualityMaxLength:
		return 1.0 - 0.4*float64(n-qualityIdealLength)/float64(qualityMaxLength-qualityIdealLength)
	default:
		return 0.5
	}
}

// shoutingRatio returns the fraction of letters that are upper case.
func shoutingRatio(text string) float64 {
	letters, upper := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters < 10 {
		return 0 // Too short to call shouting.
	}
	return float64(upper) / float64(letters)
}

// FreshnessBonus computes the recency signal: 1.0 for items younger than the
// fresh window, decaying linearly to exactly 0 at maxAgeHours and staying 0
// beyond. Future-dated items (clock skew) count as age zero.
func FreshnessBonus(item *feed.ContentItem, freshWindowMinutes, maxAgeHours int, now time.Time) float64 {
	age := itemAge(item, now)
	freshWindow := time.Duration(freshWindowMinutes) * time.Minute
	maxAge := time.Duration(maxAgeHours) * time.Hour

	if maxAge <= freshWindow {
		// Validate rejects this shape at load time; fall back to a hard
		// cutoff at maxAge.
		if age < maxAge {
			return 1.0
		}
		return 0
	}

	if age <= freshWindow {
		return 1.0
	}
	if age >= maxAge {
		return 0
	}
	return float64(maxAge-age) / float64(maxAge-freshWindow)
}

// ExtractTopics tokenizes item text into lowercase topic tokens: hashtag
// tokens are always topics; plain words qualify once they are at least four
// runes long. Tokens are deduplicated in order of first appearance.
func ExtractTopics(text string) []string {
	if text == "" {
		return nil
	}

	var topics []string
	seen := make(map[string]struct{})

	fields := strings.Fields(text)
	for _, field := range fields {
		hashtag := strings.HasPrefix(field, "#")
		token := strings.ToLower(strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		}))
		if token == "" {
			continue
		}
		if !hashtag && len([]rune(token)) < 4 {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		topics = append(topics, token)
	}
	return topics
}
