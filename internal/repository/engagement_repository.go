package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-clubs-api/pkg/engagement"
)

// EngagementRepository reads the live activity counts engagement is scored from.
type EngagementRepository struct {
	db *sqlx.DB
}

// NewEngagementRepository constructs the repository.
func NewEngagementRepository(db *sqlx.DB) *EngagementRepository {
	return &EngagementRepository{db: db}
}

// ClubCounts returns member, event, post and poll counts for every club.
func (r *EngagementRepository) ClubCounts(ctx context.Context) ([]engagement.Counts, error) {
	const query = `SELECT c.id AS club_id, c.name AS club_name,
(SELECT COUNT(*) FROM club_members m WHERE m.club_id = c.id) AS member_count,
(SELECT COUNT(*) FROM events e WHERE e.club_id = c.id) AS event_count,
(SELECT COUNT(*) FROM club_posts p WHERE p.club_id = c.id) AS post_count,
(SELECT COUNT(*) FROM polls q WHERE q.club_id = c.id) AS poll_count
FROM clubs c ORDER BY c.name`
	var counts []engagement.Counts
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("club engagement counts: %w", err)
	}
	return counts, nil
}
