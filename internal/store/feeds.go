package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/pkg/database"
)

// FeedRepository implements contracts.FeedRepository
type FeedRepository struct {
	pool database.Pool
}

// NewFeedRepository creates a new feed repository
func NewFeedRepository(pool database.Pool) *FeedRepository {
	return &FeedRepository{pool: pool}
}

// EnabledSources returns the feeds to poll
func (r *FeedRepository) EnabledSources(ctx context.Context) ([]contracts.FeedSource, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, url, category, enabled
		FROM rss_sources
		WHERE enabled
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rss sources: %w", err)
	}
	defer rows.Close()

	sources := make([]contracts.FeedSource, 0)
	for rows.Next() {
		var s contracts.FeedSource
		var category pgtype.Text
		if err := rows.Scan(&s.ID, &s.Name, &s.URL, &category, &s.Enabled); err != nil {
			return nil, fmt.Errorf("failed to scan rss source: %w", err)
		}
		s.Category = category.String
		sources = append(sources, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rss sources: %w", err)
	}

	return sources, nil
}

// InsertItem records a fetched entry. A unique violation on (feed_id, guid)
// means the entry was seen before and reports (false, nil).
func (r *FeedRepository) InsertItem(ctx context.Context, item contracts.FeedItem) (bool, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO rss_items (feed_id, guid, title, link, published_at)
		VALUES ($1, $2, $3, $4, $5)
	`, item.FeedID, item.GUID, item.Title, item.Link, item.PublishedAt)
	if database.IsUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert rss item: %w", err)
	}
	return true, nil
}
