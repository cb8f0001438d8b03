package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/feedrank/internal/feed"
	"github.com/onnwee/feedrank/internal/middleware"
	"github.com/onnwee/feedrank/internal/ranking"
	"github.com/onnwee/feedrank/internal/tracing"
)

// Default and maximum page sizes for feed responses.
const (
	DefaultFeedLimit = 50
	MaxFeedLimit     = 200
)

// FeedHandlers serves the personalized feed endpoint.
type FeedHandlers struct {
	content  feed.ContentStore
	profiles feed.ProfileStore
	cache    *feed.ProfileCache
	ranker   *ranking.Ranker
	poolSize int
	logger   *slog.Logger
}

// FeedHandlersConfig configures the feed handlers. Cache is optional; when
// nil every request reads the profile store directly.
type FeedHandlersConfig struct {
	Content  feed.ContentStore
	Profiles feed.ProfileStore
	Cache    *feed.ProfileCache
	Ranker   *ranking.Ranker
	PoolSize int
	Logger   *slog.Logger
}

// NewFeedHandlers creates feed handlers from the given stores and ranker.
func NewFeedHandlers(cfg FeedHandlersConfig) *FeedHandlers {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 500
	}
	return &FeedHandlers{
		content:  cfg.Content,
		profiles: cfg.Profiles,
		cache:    cfg.Cache,
		ranker:   cfg.Ranker,
		poolSize: poolSize,
		logger:   logger,
	}
}

// FeedItemResponse is one entry in the feed response body.
type FeedItemResponse struct {
	Item        *feed.ContentItem    `json:"item"`
	Score       float64              `json:"score"`
	Signals     ranking.Signals      `json:"signals"`
	Explanation *ranking.Explanation `json:"explanation,omitempty"`
}

// FeedResponse is the body of GET /v1/feed/{viewerID}.
type FeedResponse struct {
	ViewerID  string             `json:"viewer_id"`
	ColdStart bool               `json:"cold_start"`
	Items     []FeedItemResponse `json:"items"`
}

// GetFeed handles GET /v1/feed/{viewerID}.
//
// Query parameters:
//   - limit: maximum number of items to return (default 50, max 200)
//   - offset: number of ranked items to skip (default 0)
//   - explain: when "1" or "true", attach a human-readable explanation
//     to each returned item
//
// A viewer with no stored profile receives the cold-start feed rather than
// an error; a missing profile is the normal state for new users.
func (h *FeedHandlers) GetFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	viewerID := strings.TrimPrefix(r.URL.Path, "/v1/feed/")
	viewerID = strings.Trim(viewerID, "/")
	if viewerID == "" || strings.Contains(viewerID, "/") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeMissingViewer)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeMissingViewer, "viewer ID is required")
		return
	}
	ctx := middleware.SetViewerID(r.Context(), viewerID)
	middleware.UpdateResponseContext(w, ctx)

	limit := DefaultFeedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			ctx := middleware.SetErrorCode(ctx, ErrCodeInvalidLimit)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidLimit, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}

	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			ctx := middleware.SetErrorCode(ctx, ErrCodeBadRequest)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = parsed
	}

	explain := false
	switch r.URL.Query().Get("explain") {
	case "1", "true":
		explain = true
	}

	profile := h.loadProfile(r, viewerID)

	items, err := h.content.ListCandidates(ctx, h.poolSize)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list feed candidates", "error", err, "viewer_id", viewerID)
		ctx := middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to load feed candidates")
		return
	}

	rankCtx, endRank := tracing.StartRankSpan(ctx, viewerID, len(items))
	ranked := h.ranker.RankItems(items, profile)
	tracing.SetAttributes(rankCtx, attribute.Int("feed.ranked", len(ranked)))
	endRank(nil)

	// Paginate after ranking so page boundaries respect the final order.
	if offset >= len(ranked) {
		ranked = nil
	} else {
		ranked = ranked[offset:]
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	now := time.Now()
	response := FeedResponse{
		ViewerID:  viewerID,
		ColdStart: ranking.IsColdStart(profile, h.ranker.Config().ColdStartThreshold),
		Items:     make([]FeedItemResponse, 0, len(ranked)),
	}
	for _, s := range ranked {
		entry := FeedItemResponse{
			Item:    s.Item,
			Score:   s.Score,
			Signals: s.Signals,
		}
		if explain {
			entry.Explanation = ranking.Explain(s.Item, profile, s.Signals, now)
		}
		response.Items = append(response.Items, entry)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode feed response", "error", err)
	}
}

// loadProfile resolves the viewer profile through the cache when one is
// configured, falling back to the profile store and finally to an empty
// profile. Profile lookups fail open: a store error degrades the viewer to
// the cold-start feed instead of failing the request.
func (h *FeedHandlers) loadProfile(r *http.Request, viewerID string) *feed.UserProfile {
	ctx := r.Context()

	if h.cache != nil {
		profile, err := h.cache.Get(ctx, viewerID)
		if err == nil {
			return profile
		}
		if !errors.Is(err, feed.ErrCacheMiss) {
			h.logger.WarnContext(ctx, "profile cache read failed", "error", err, "viewer_id", viewerID)
		}
	}

	profile, err := h.profiles.GetProfile(ctx, viewerID)
	if err != nil {
		if !errors.Is(err, feed.ErrProfileNotFound) {
			h.logger.WarnContext(ctx, "profile lookup failed", "error", err, "viewer_id", viewerID)
		}
		return feed.EmptyProfile(viewerID)
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, profile); err != nil {
			h.logger.WarnContext(ctx, "profile cache write failed", "error", err, "viewer_id", viewerID)
		}
	}
	return profile
}

// ExplainHandlers serves per-item explanations outside the feed listing.
type ExplainHandlers struct {
	content  feed.ContentStore
	profiles feed.ProfileStore
	ranker   *ranking.Ranker
	logger   *slog.Logger
}

// NewExplainHandlers creates handlers for the explanation endpoint.
func NewExplainHandlers(content feed.ContentStore, profiles feed.ProfileStore, ranker *ranking.Ranker, logger *slog.Logger) *ExplainHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExplainHandlers{content: content, profiles: profiles, ranker: ranker, logger: logger}
}

// GetExplanation handles GET /v1/explain/{viewerID}/{itemID}: why a single
// item would be shown to the viewer.
func (h *ExplainHandlers) GetExplanation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/explain/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "expected /v1/explain/{viewerID}/{itemID}")
		return
	}
	viewerID, itemID := parts[0], parts[1]
	ctx := middleware.SetViewerID(r.Context(), viewerID)
	middleware.UpdateResponseContext(w, ctx)

	item, err := h.content.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, feed.ErrItemNotFound) {
			ctx := middleware.SetErrorCode(ctx, ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("item %s not found", itemID))
			return
		}
		h.logger.ErrorContext(ctx, "item lookup failed", "error", err, "item_id", itemID)
		ctx := middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to load item")
		return
	}

	profile, err := h.profiles.GetProfile(ctx, viewerID)
	if err != nil {
		profile = feed.EmptyProfile(viewerID)
	}

	now := time.Now()
	explainCtx, endSpan := tracing.StartSpan(ctx, "explain_item")
	tracing.SetAttributes(explainCtx,
		attribute.String("feed.viewer_id", viewerID),
		attribute.String("feed.item_id", itemID),
	)
	feedCtx := ranking.NewFeedContext(h.ranker.Config())
	signals := ranking.ComputeSignals(item, profile, feedCtx, h.ranker.Config(), now)
	explanation := ranking.Explain(item, profile, signals, now)
	endSpan(nil)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(explanation); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode explanation", "error", err)
	}
}
