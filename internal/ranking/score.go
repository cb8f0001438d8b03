package ranking

import (
	"time"

	"github.com/onnwee/feedrank/internal/feed"
)

// Cold-start scoring coefficients. These form a separate, fixed weighting
// scheme from Config.Weights: a brand-new viewer has no affinity, topic, or
// social history, so cold start intentionally scores on popularity, quality,
// and freshness only.
const (
	coldStartHotWeight       = 0.5
	coldStartQualityWeight   = 0.3
	coldStartFreshnessWeight = 0.2
)

// coldStartTopicPlaceholder is the fixed neutral value written into the
// topic-relevance slot of cold-start signals. It is not a measurement;
// callers must not interpret it as genuine relevance.
const coldStartTopicPlaceholder = 0.3

// ComputeSignals invokes all seven signal computers for one item against the
// viewer profile and the current feed context.
func ComputeSignals(item *feed.ContentItem, profile *feed.UserProfile, ctx *FeedContext, cfg *Config, now time.Time) Signals {
	return Signals{
		BaseHot:          BaseHotScore(item, now),
		AuthorAffinity:   AuthorAffinity(item.AuthorID, profile),
		TopicRelevance:   TopicRelevance(item, profile),
		SocialProof:      SocialProof(item, profile),
		DiversityPenalty: DiversityPenalty(item.AuthorID, ctx),
		Quality:          QualityScore(item),
		Freshness:        FreshnessBonus(item, cfg.FreshWindowMinutes, cfg.MaxAgeHours, now),
	}
}

// PersonalizedScore combines the seven signals into one scalar via the
// configured weighted sum, clamped to [0, 1].
//
// The diversity signal is inverted before weighting: a penalty of 1
// (maximum repetition) contributes nothing from that term, a penalty of 0
// contributes the full weight. It is the only signal used as a cost.
func PersonalizedScore(s Signals, w Weights) float64 {
	score := s.BaseHot*w.BaseHot +
		s.AuthorAffinity*w.AuthorAffinity +
		s.TopicRelevance*w.TopicRelevance +
		s.SocialProof*w.SocialProof +
		(1.0-s.DiversityPenalty)*w.Diversity +
		s.Quality*w.Quality +
		s.Freshness*w.Freshness
	return clamp01(score)
}

// IsColdStart reports whether the viewer has too little interaction history
// to trust personalization signals.
func IsColdStart(profile *feed.UserProfile, threshold int64) bool {
	if profile == nil {
		return true
	}
	return profile.TotalInteractions < threshold
}

// ColdStartScore computes the simplified popularity/quality/freshness score
// for viewers below the cold-start threshold. It takes no profile: for a
// fixed item the result is identical regardless of viewer.
func ColdStartScore(item *feed.ContentItem, cfg *Config, now time.Time) float64 {
	score := coldStartHotWeight*BaseHotScore(item, now) +
		coldStartQualityWeight*QualityScore(item) +
		coldStartFreshnessWeight*FreshnessBonus(item, cfg.FreshWindowMinutes, cfg.MaxAgeHours, now)
	return clamp01(score)
}

// coldStartSignals populates a Signals value for introspection on the
// cold-start path. The popularity, quality, and freshness slots hold real
// computations; affinity, social proof, and diversity are zero and topic
// relevance holds the fixed neutral placeholder.
func coldStartSignals(item *feed.ContentItem, cfg *Config, now time.Time) Signals {
	return Signals{
		BaseHot:          BaseHotScore(item, now),
		AuthorAffinity:   0,
		TopicRelevance:   coldStartTopicPlaceholder,
		SocialProof:      0,
		DiversityPenalty: 0,
		Quality:          QualityScore(item),
		Freshness:        FreshnessBonus(item, cfg.FreshWindowMinutes, cfg.MaxAgeHours, now),
	}
}
