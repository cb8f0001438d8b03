package ranking

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/feedrank/internal/feed"
)

// TestPersonalizedScore tests the weighted-sum aggregation.
func TestPersonalizedScore(t *testing.T) {
	weights := DefaultConfig().Weights

	tests := []struct {
		name     string
		signals  Signals
		expected float64
	}{
		{
			name:    "all zero signals still earn the diversity term",
			signals: Signals{},
			// (1 - 0) * 0.10
			expected: 0.10,
		},
		{
			name: "perfect signals with no repetition reach 1.0",
			signals: Signals{
				BaseHot:          1,
				AuthorAffinity:   1,
				TopicRelevance:   1,
				SocialProof:      1,
				DiversityPenalty: 0,
				Quality:          1,
				Freshness:        1,
			},
			expected: 1.0,
		},
		{
			name: "maximum repetition removes the diversity term",
			signals: Signals{
				BaseHot:          1,
				AuthorAffinity:   1,
				TopicRelevance:   1,
				SocialProof:      1,
				DiversityPenalty: 1,
				Quality:          1,
				Freshness:        1,
			},
			expected: 0.90,
		},
		{
			name: "mixed signals",
			signals: Signals{
				BaseHot:          0.8,
				AuthorAffinity:   0.5,
				TopicRelevance:   0.0,
				SocialProof:      0.25,
				DiversityPenalty: 1.0 / 3.0,
				Quality:          0.6,
				Freshness:        1.0,
			},
			// 0.8*0.25 + 0.5*0.20 + 0 + 0.25*0.15 + (2/3)*0.10 + 0.6*0.05 + 1*0.05
			expected: 0.2 + 0.1 + 0.0375 + 0.2/3.0 + 0.03 + 0.05,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PersonalizedScore(tt.signals, weights)
			if math.Abs(got-tt.expected) > 0.0001 {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
		})
	}
}

// TestPersonalizedScore_ClampsOversizedWeights verifies that weight sets
// summing above 1 are legal and produce clamped scores.
func TestPersonalizedScore_ClampsOversizedWeights(t *testing.T) {
	heavy := Weights{
		BaseHot:        1.0,
		AuthorAffinity: 1.0,
		TopicRelevance: 1.0,
		SocialProof:    1.0,
		Diversity:      1.0,
		Quality:        1.0,
		Freshness:      1.0,
	}
	perfect := Signals{BaseHot: 1, AuthorAffinity: 1, TopicRelevance: 1, SocialProof: 1, Quality: 1, Freshness: 1}

	if got := PersonalizedScore(perfect, heavy); got != 1.0 {
		t.Errorf("expected score clamped to 1.0, got %f", got)
	}
}

// TestPersonalizedScore_DiversityInversion verifies the penalty is the only
// signal used as a cost: raising it lowers the score while raising any other
// signal raises it.
func TestPersonalizedScore_DiversityInversion(t *testing.T) {
	weights := DefaultConfig().Weights
	base := Signals{BaseHot: 0.5, Quality: 0.5}

	noPenalty := PersonalizedScore(base, weights)

	penalized := base
	penalized.DiversityPenalty = 1.0
	if got := PersonalizedScore(penalized, weights); got >= noPenalty {
		t.Errorf("raising diversity penalty should lower the score: %f >= %f", got, noPenalty)
	}

	boosted := base
	boosted.SocialProof = 1.0
	if got := PersonalizedScore(boosted, weights); got <= noPenalty {
		t.Errorf("raising social proof should raise the score: %f <= %f", got, noPenalty)
	}
}

// TestIsColdStart tests the cold-start threshold decision.
func TestIsColdStart(t *testing.T) {
	tests := []struct {
		name         string
		interactions int64
		threshold    int64
		expected     bool
	}{
		{name: "zero interactions", interactions: 0, threshold: 5, expected: true},
		{name: "below threshold", interactions: 4, threshold: 5, expected: true},
		{name: "at threshold", interactions: 5, threshold: 5, expected: false},
		{name: "above threshold", interactions: 100, threshold: 5, expected: false},
		{name: "zero threshold disables cold start", interactions: 0, threshold: 0, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := feed.EmptyProfile("viewer1")
			profile.TotalInteractions = tt.interactions
			if got := IsColdStart(profile, tt.threshold); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

// TestIsColdStart_NilProfile verifies an absent profile is treated as cold.
func TestIsColdStart_NilProfile(t *testing.T) {
	if !IsColdStart(nil, 5) {
		t.Error("nil profile should be cold start")
	}
}

// TestColdStartScore_ProfileIndependence verifies the cold-start score for a
// fixed item is identical regardless of any viewer state: the function takes
// no profile at all, so ranking two wildly different cold viewers must give
// the same per-item scores.
func TestColdStartScore_ProfileIndependence(t *testing.T) {
	cfg := DefaultConfig()
	item := makeItem("a", "author1", "a perfectly reasonable post about synthesizers", time.Hour, 20, 3, 1)

	sparse := feed.EmptyProfile("new-viewer")
	rich := feed.EmptyProfile("other-viewer")
	rich.FollowedAuthors["author1"] = struct{}{}
	rich.LikedAuthorCounts["author1"] = 10
	rich.TopicInterests["synthesizers"] = 1.0
	// Still under the threshold, so cold start applies to both.
	rich.TotalInteractions = cfg.ColdStartThreshold - 1

	ranker := NewRanker(cfg, nil)
	ranker.nowFn = func() time.Time { return testNow }

	forSparse := ranker.RankItems([]*feed.ContentItem{item}, sparse)
	forRich := ranker.RankItems([]*feed.ContentItem{item}, rich)

	if forSparse[0].Score != forRich[0].Score {
		t.Errorf("cold-start score must not depend on the profile: %f != %f",
			forSparse[0].Score, forRich[0].Score)
	}
}

// TestColdStartScore_FixedFormula is end-to-end scenario B: a viewer under
// the threshold ranking one fresher-but-lower-quality item against one
// older-but-higher-quality item must follow the fixed 0.5/0.3/0.2 formula
// exactly, with both expected scores computable by hand.
func TestColdStartScore_FixedFormula(t *testing.T) {
	cfg := DefaultConfig() // threshold 5, fresh window 30m, max age 72h

	// Zero engagement keeps the hot term at exactly 0 for both items.
	// fresher: 10 runes of text -> quality 0.4 + 0.3*(10/20) = 0.55,
	// age 10m -> freshness 1.0.
	fresher := makeItem("fresh", "author1", "hello gigs", 10*time.Minute, 0, 0, 0)
	// older: exactly 80 runes -> quality 1.0, age 48h ->
	// freshness (72h-48h)/(72h-0.5h) = 24/71.5.
	older := makeItem("old", "author2", strings.Repeat("x", 80), 48*time.Hour, 0, 0, 0)

	viewer := feed.EmptyProfile("newcomer")
	viewer.TotalInteractions = 0

	ranker := NewRanker(cfg, nil)
	ranker.nowFn = func() time.Time { return testNow }

	ranked := ranker.RankItems([]*feed.ContentItem{fresher, older}, viewer)

	wantFresher := 0.5*0 + 0.3*0.55 + 0.2*1.0
	wantOlder := 0.5*0 + 0.3*1.0 + 0.2*(24.0/71.5)

	scores := map[string]float64{}
	for _, s := range ranked {
		scores[s.Item.ID] = s.Score
	}
	if math.Abs(scores["fresh"]-wantFresher) > 0.0001 {
		t.Errorf("fresher item: expected %f, got %f", wantFresher, scores["fresh"])
	}
	if math.Abs(scores["old"]-wantOlder) > 0.0001 {
		t.Errorf("older item: expected %f, got %f", wantOlder, scores["old"])
	}

	// With these inputs the higher-quality older item wins on the formula.
	if ranked[0].Item.ID != "old" {
		t.Errorf("expected the higher-quality item first, got %s", ranked[0].Item.ID)
	}
}

// TestColdStartSignals_Placeholders verifies the introspection signals on
// the cold-start path: zero affinity, social proof, and diversity, with the
// fixed neutral topic placeholder rather than a real computation.
func TestColdStartSignals_Placeholders(t *testing.T) {
	cfg := DefaultConfig()
	item := makeItem("a", "author1", "a perfectly reasonable post about synthesizers", time.Hour, 20, 3, 1)

	viewer := feed.EmptyProfile("newcomer")
	// Real topic interest that cold start must ignore.
	viewer.TopicInterests["synthesizers"] = 1.0

	ranker := NewRanker(cfg, nil)
	ranker.nowFn = func() time.Time { return testNow }
	ranked := ranker.RankItems([]*feed.ContentItem{item}, viewer)

	s := ranked[0].Signals
	if s.AuthorAffinity != 0 || s.SocialProof != 0 || s.DiversityPenalty != 0 {
		t.Errorf("expected zeroed personal signals, got %+v", s)
	}
	if s.TopicRelevance != coldStartTopicPlaceholder {
		t.Errorf("expected topic placeholder %f, got %f", coldStartTopicPlaceholder, s.TopicRelevance)
	}
	if s.BaseHot == 0 || s.Quality == 0 {
		t.Errorf("expected real popularity and quality signals, got %+v", s)
	}
}

// TestScoreBoundedness verifies both scoring paths stay in [0, 1] across a
// spread of engagement levels, ages, and profiles.
func TestScoreBoundedness(t *testing.T) {
	cfg := DefaultConfig()
	profile := feed.EmptyProfile("viewer1")
	profile.TotalInteractions = 50
	profile.FollowedAuthors["author1"] = struct{}{}
	profile.LikedAuthorCounts["author1"] = 10
	profile.TopicInterests["music"] = 1.0

	ages := []time.Duration{0, time.Minute, time.Hour, 24 * time.Hour, 200 * time.Hour}
	likes := []int64{0, 1, 100, 1000000}

	ctx := NewFeedContext(cfg)
	for _, age := range ages {
		for _, n := range likes {
			item := makeItem("a", "author1", "music all night long", age, n, n/2, n/10)
			item.LikedBy = map[string]struct{}{"author1": {}}

			signals := ComputeSignals(item, profile, ctx, cfg, testNow)
			personalized := PersonalizedScore(signals, cfg.Weights)
			cold := ColdStartScore(item, cfg, testNow)

			if personalized < 0 || personalized > 1 {
				t.Errorf("personalized score out of bounds at age=%v likes=%d: %f", age, n, personalized)
			}
			if cold < 0 || cold > 1 {
				t.Errorf("cold-start score out of bounds at age=%v likes=%d: %f", age, n, cold)
			}
			ctx.noteAuthor(item.AuthorID)
		}
	}
}
