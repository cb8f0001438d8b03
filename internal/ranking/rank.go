package ranking

import (
	"sort"
	"time"

	"github.com/onnwee/feedrank/internal/feed"
)

// FeedContext is the ephemeral per-ranking-call state used for diversity
// enforcement. The per-author scratch map lives exactly as long as one
// ranking call and is never persisted.
type FeedContext struct {
	MaxPerAuthor    int
	DiversityWindow int

	perAuthorCounts map[string]int
}

// NewFeedContext creates a fresh feed context for one ranking call.
func NewFeedContext(cfg *Config) *FeedContext {
	return &FeedContext{
		MaxPerAuthor:    cfg.MaxPerAuthor,
		DiversityWindow: cfg.DiversityWindow,
		perAuthorCounts: make(map[string]int),
	}
}

// noteAuthor records that one more item by the author has been scored in
// this context.
func (c *FeedContext) noteAuthor(authorID string) {
	c.perAuthorCounts[authorID]++
}

// ScoredItem is the aggregator's per-item output.
type ScoredItem struct {
	Item        *feed.ContentItem `json:"item"`
	Score       float64           `json:"score"`
	Signals     Signals           `json:"signals"`
	Explanation *Explanation      `json:"explanation,omitempty"`
}

// Ranker runs the full scoring and selection pipeline for one configuration.
// A Ranker is stateless between calls and safe for concurrent use; each call
// writes only to its own FeedContext scratch.
type Ranker struct {
	cfg     *Config
	metrics *Metrics

	// nowFn is injectable for deterministic tests.
	nowFn func() time.Time
}

// NewRanker creates a Ranker. A nil config uses the defaults; metrics may be
// nil to disable instrumentation.
func NewRanker(cfg *Config, metrics *Metrics) *Ranker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Ranker{
		cfg:     cfg,
		metrics: metrics,
		nowFn:   time.Now,
	}
}

// Config returns the ranker's immutable configuration.
func (r *Ranker) Config() *Config {
	return r.cfg
}

// RankItems scores every candidate and produces the final ordering under the
// soft per-author diversity cap. The output is always a permutation of the
// input: no items are dropped and none are duplicated. An empty candidate
// list returns an empty ranked list.
func (r *Ranker) RankItems(items []*feed.ContentItem, profile *feed.UserProfile) []ScoredItem {
	if len(items) == 0 {
		return []ScoredItem{}
	}

	start := r.nowFn()
	now := start
	cold := IsColdStart(profile, r.cfg.ColdStartThreshold)

	scored := make([]ScoredItem, 0, len(items))
	if cold {
		for _, item := range items {
			scored = append(scored, ScoredItem{
				Item:    item,
				Score:   ColdStartScore(item, r.cfg, now),
				Signals: coldStartSignals(item, r.cfg, now),
			})
		}
	} else {
		// The scratch context accumulates per-author counts as items are
		// scored in input order, so repeated authors are progressively
		// penalized within this one call.
		ctx := NewFeedContext(r.cfg)
		for _, item := range items {
			signals := ComputeSignals(item, profile, ctx, r.cfg, now)
			scored = append(scored, ScoredItem{
				Item:    item,
				Score:   PersonalizedScore(signals, r.cfg.Weights),
				Signals: signals,
			})
			ctx.noteAuthor(item.AuthorID)
		}
	}

	// Stable sort keeps input order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	ranked := selectWithDiversity(scored, r.cfg.MaxPerAuthor)

	if r.metrics != nil {
		r.metrics.ObserveRank(time.Since(start), len(ranked), cold)
	}
	return ranked
}

// selectWithDiversity greedily builds the final list from score-sorted
// candidates: take the best-scored remaining item whose author is still
// below the cap; when every remaining author has hit the cap, fall back to
// the best-scored remaining item regardless. The cap is a soft preference,
// so the selector never stalls or drops items.
//
// The scan is O(n²) worst case, which is fine for the few hundred
// candidates a feed call handles.
func selectWithDiversity(sorted []ScoredItem, maxPerAuthor int) []ScoredItem {
	if maxPerAuthor < 1 {
		maxPerAuthor = 1
	}

	out := make([]ScoredItem, 0, len(sorted))
	remaining := make([]ScoredItem, len(sorted))
	copy(remaining, sorted)
	placed := make(map[string]int)

	for len(remaining) > 0 {
		pick := -1
		for i, candidate := range remaining {
			if placed[candidate.Item.AuthorID] < maxPerAuthor {
				pick = i
				break
			}
		}
		if pick == -1 {
			// Every remaining author is at the cap; relax it and take
			// the best-scored item left.
			pick = 0
		}

		chosen := remaining[pick]
		out = append(out, chosen)
		placed[chosen.Item.AuthorID]++
		remaining = append(remaining[:pick], remaining[pick+1:]...)
	}
	return out
}
