package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/student-clubs-api/internal/models"
	"github.com/noah-isme/student-clubs-api/pkg/database"
)

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

func placeholders(n int) string {
	values := make([]string, n)
	for i := 1; i <= n; i++ {
		values[i-1] = fmt.Sprintf("$%d", i)
	}
	return strings.Join(values, ",")
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// relation names a two column join table that supports toggling.
type relation struct {
	table   string
	subject string
	actor   string
}

var (
	membershipRelation = relation{table: "club_members", subject: "club_id", actor: "user_id"}
	rsvpRelation       = relation{table: "event_attendees", subject: "event_id", actor: "user_id"}
)

// toggle flips the presence of (subjectID, actorID) in one transaction and
// returns the new state with the subject's resulting row count.
func toggle(ctx context.Context, db *sqlx.DB, rel relation, subjectID, actorID string) (*models.ToggleResult, error) {
	result := &models.ToggleResult{}
	err := database.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		del := fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND %s = $2", rel.table, rel.subject, rel.actor)
		res, err := tx.ExecContext(ctx, del, subjectID, actorID)
		if err != nil {
			return fmt.Errorf("toggle %s delete: %w", rel.table, err)
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("toggle %s rows: %w", rel.table, err)
		}
		result.State = models.ToggleInactive
		if removed == 0 {
			ins := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES ($1, $2) ON CONFLICT DO NOTHING", rel.table, rel.subject, rel.actor)
			if _, err := tx.ExecContext(ctx, ins, subjectID, actorID); err != nil {
				return fmt.Errorf("toggle %s insert: %w", rel.table, err)
			}
			result.State = models.ToggleActive
		}
		count := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1", rel.table, rel.subject)
		if err := tx.GetContext(ctx, &result.Count, count, subjectID); err != nil {
			return fmt.Errorf("toggle %s count: %w", rel.table, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
