package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/go-api-community/internal/domain"
)

type EngagementRepo struct {
	db *pgxpool.Pool
}

func NewEngagementRepo(db *pgxpool.Pool) *EngagementRepo {
	return &EngagementRepo{db: db}
}

func (r *EngagementRepo) MarkViewed(ctx context.Context, v *domain.ViewedPost) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO viewed_posts (user_id, post_id, viewed_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, post_id) DO UPDATE SET viewed_at = EXCLUDED.viewed_at`,
		v.UserID, v.PostID, v.ViewedAt.UTC())
	if isForeignKeyViolation(err) {
		return fmt.Errorf("post %w", domain.ErrNotFound)
	}
	return err
}

func (r *EngagementRepo) ViewedPostIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	rows, err := r.db.Query(ctx, `SELECT post_id FROM viewed_posts WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("query viewed posts: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// ToggleSave removes an existing save, otherwise inserts one. An insert
// that loses a race to a concurrent toggle still reports saved.
func (r *EngagementRepo) ToggleSave(ctx context.Context, userID, postID string, at time.Time) (domain.SaveState, error) {
	var deleted string
	err := r.db.QueryRow(ctx,
		`DELETE FROM saved_posts WHERE user_id = $1 AND post_id = $2 RETURNING post_id`, userID, postID).Scan(&deleted)
	switch {
	case err == nil:
		return domain.Unsaved, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return "", fmt.Errorf("delete save: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO saved_posts (user_id, post_id, saved_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, post_id) DO NOTHING`, userID, postID, at.UTC())
	if isForeignKeyViolation(err) {
		return "", fmt.Errorf("post %w", domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("insert save: %w", err)
	}
	return domain.Saved, nil
}

func (r *EngagementRepo) ListSaved(ctx context.Context, userID string) ([]domain.SavedPost, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, post_id, saved_at FROM saved_posts
		WHERE user_id = $1 ORDER BY saved_at DESC, post_id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query saved posts: %w", err)
	}
	saved, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SavedPost, error) {
		var s domain.SavedPost
		err := row.Scan(&s.UserID, &s.PostID, &s.SavedAt)
		s.SavedAt = s.SavedAt.UTC()
		return s, err
	})
	if err != nil {
		return nil, err
	}
	if saved == nil {
		saved = []domain.SavedPost{}
	}
	return saved, nil
}
