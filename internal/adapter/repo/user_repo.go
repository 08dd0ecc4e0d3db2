package repo

import (
	"context"
	"fmt"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// UserRepositoryPG implements domain.UserRepository on PostgreSQL. Only the
// streak fields are touched here; account management lives elsewhere.
type UserRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewUserRepository creates a user repository backed by the shared SQL runner.
func NewUserRepository(sql infra.SQLExecutor) *UserRepositoryPG {
	return &UserRepositoryPG{sql: sql}
}

// GetStreak reads the user's current streak counters.
func (r *UserRepositoryPG) GetStreak(ctx context.Context, userID string) (*domain.Streak, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectUserStreak, userID)
	var streak domain.Streak
	if err := row.Scan(&streak.Current, &streak.Longest, &streak.LastActivity); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select user streak: %w", err)
	}
	return &streak, nil
}

// UpdateStreak writes the user's streak counters back.
func (r *UserRepositoryPG) UpdateStreak(ctx context.Context, userID string, streak domain.Streak) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateUserStreak, userID, streak.Current, streak.Longest, streak.LastActivity)
	if err != nil {
		return fmt.Errorf("update user streak: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)
