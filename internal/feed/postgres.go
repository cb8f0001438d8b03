package feed

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/onnwee/feedrank/internal/tracing"
)

// PostgresStore implements ContentStore and ProfileStore against PostgreSQL.
// Every query materializes full rows before returning, so callers receive a
// stable snapshot of the candidate pool for the duration of a ranking call.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

// ListCandidates returns up to limit of the most recent content items with
// their engagement counters and liked-by sets.
func (s *PostgresStore) ListCandidates(ctx context.Context, limit int) (items []*ContentItem, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "content_items", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, author_id, text, created_at,
		       likes, replies, reposts, liked_by
		FROM content_items
		ORDER BY created_at DESC, id ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logger.Warn("failed to close candidate rows", "error", cerr)
		}
	}()

	for rows.Next() {
		var item *ContentItem
		item, err = scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}
	return items, nil
}

// GetItem retrieves a single content item by ID.
func (s *PostgresStore) GetItem(ctx context.Context, id string) (item *ContentItem, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "content_items", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, author_id, text, created_at,
		       likes, replies, reposts, liked_by
		FROM content_items
		WHERE id = $1`, id)

	item, err = scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

// scanItem reads one content item row.
func scanItem(row scanner) (*ContentItem, error) {
	var item ContentItem
	var likedBy pq.StringArray

	err := row.Scan(
		&item.ID,
		&item.AuthorID,
		&item.Text,
		&item.CreatedAt,
		&item.Engagement.Likes,
		&item.Engagement.Replies,
		&item.Engagement.Reposts,
		&likedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan content item: %w", err)
	}

	if len(likedBy) > 0 {
		item.LikedBy = make(map[string]struct{}, len(likedBy))
		for _, viewerID := range likedBy {
			item.LikedBy[viewerID] = struct{}{}
		}
	}
	return &item, nil
}

// GetProfile retrieves a viewer profile. The liked-author counts and topic
// interests are stored as JSONB; followed authors as a text array.
func (s *PostgresStore) GetProfile(ctx context.Context, viewerID string) (_ *UserProfile, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "user_profiles", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	row := s.db.QueryRowContext(ctx, `
		SELECT viewer_id, followed_authors, liked_author_counts,
		       topic_interests, total_interactions
		FROM user_profiles
		WHERE viewer_id = $1`, viewerID)

	var profile UserProfile
	var followed pq.StringArray
	var likedCounts, topicInterests []byte

	err = row.Scan(
		&profile.ViewerID,
		&followed,
		&likedCounts,
		&topicInterests,
		&profile.TotalInteractions,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user profile: %w", err)
	}

	profile.FollowedAuthors = make(map[string]struct{}, len(followed))
	for _, authorID := range followed {
		profile.FollowedAuthors[authorID] = struct{}{}
	}

	if len(likedCounts) > 0 {
		if err := json.Unmarshal(likedCounts, &profile.LikedAuthorCounts); err != nil {
			return nil, fmt.Errorf("failed to decode liked_author_counts for %s: %w", viewerID, err)
		}
	}
	if len(topicInterests) > 0 {
		if err := json.Unmarshal(topicInterests, &profile.TopicInterests); err != nil {
			return nil, fmt.Errorf("failed to decode topic_interests for %s: %w", viewerID, err)
		}
	}

	return &profile, nil
}
