package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when no cached profile exists for a viewer.
var ErrCacheMiss = errors.New("profile not in cache")

// profileCacheKeyPrefix namespaces cached profiles in Redis.
const profileCacheKeyPrefix = "feedrank:profile:"

// cachedProfile is the CBOR wire representation of a profile. Sets are
// flattened to slices for compact encoding.
type cachedProfile struct {
	ViewerID          string             `cbor:"viewer_id"`
	FollowedAuthors   []string           `cbor:"followed_authors,omitempty"`
	LikedAuthorCounts map[string]int64   `cbor:"liked_author_counts,omitempty"`
	TopicInterests    map[string]float64 `cbor:"topic_interests,omitempty"`
	TotalInteractions int64              `cbor:"total_interactions"`
}

// ProfileCache is a Redis-backed cache of viewer profiles with CBOR
// encoding, fronting the profile store so hot viewers skip the database on
// every feed request.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewProfileCache creates a ProfileCache with the given TTL.
func NewProfileCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ProfileCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get retrieves a cached profile. Returns ErrCacheMiss when absent; decode
// failures are also reported as a miss after evicting the bad entry, so a
// corrupt cache entry can never poison ranking.
func (c *ProfileCache) Get(ctx context.Context, viewerID string) (*UserProfile, error) {
	data, err := c.client.Get(ctx, profileCacheKeyPrefix+viewerID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached profile: %w", err)
	}

	var cached cachedProfile
	if err := cbor.Unmarshal(data, &cached); err != nil {
		c.logger.Warn("evicting undecodable cached profile",
			"viewer_id", viewerID,
			"error", err)
		if delErr := c.client.Del(ctx, profileCacheKeyPrefix+viewerID).Err(); delErr != nil {
			c.logger.Warn("failed to evict cached profile", "viewer_id", viewerID, "error", delErr)
		}
		return nil, ErrCacheMiss
	}

	profile := &UserProfile{
		ViewerID:          cached.ViewerID,
		LikedAuthorCounts: cached.LikedAuthorCounts,
		TopicInterests:    cached.TopicInterests,
		TotalInteractions: cached.TotalInteractions,
	}
	profile.FollowedAuthors = make(map[string]struct{}, len(cached.FollowedAuthors))
	for _, id := range cached.FollowedAuthors {
		profile.FollowedAuthors[id] = struct{}{}
	}
	return profile, nil
}

// Set stores a profile snapshot with the configured TTL.
func (c *ProfileCache) Set(ctx context.Context, profile *UserProfile) error {
	cached := cachedProfile{
		ViewerID:          profile.ViewerID,
		LikedAuthorCounts: profile.LikedAuthorCounts,
		TopicInterests:    profile.TopicInterests,
		TotalInteractions: profile.TotalInteractions,
	}
	for id := range profile.FollowedAuthors {
		cached.FollowedAuthors = append(cached.FollowedAuthors, id)
	}

	data, err := cbor.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to encode profile for cache: %w", err)
	}

	if err := c.client.Set(ctx, profileCacheKeyPrefix+profile.ViewerID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cached profile: %w", err)
	}
	return nil
}

// Invalidate removes a cached profile, typically after the interaction
// tracker rebuilds it.
func (c *ProfileCache) Invalidate(ctx context.Context, viewerID string) error {
	if err := c.client.Del(ctx, profileCacheKeyPrefix+viewerID).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached profile: %w", err)
	}
	return nil
}
