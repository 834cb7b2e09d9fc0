package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/go-api-community/internal/domain"
	"github.com/go-api-community/internal/logging"
)

const commentColumns = `comment_id, post_id, user_id, author_name, content, created_at, updated_at`

type CommentRepo struct {
	db *pgxpool.Pool
}

func NewCommentRepo(db *pgxpool.Pool) *CommentRepo {
	return &CommentRepo{db: db}
}

func scanComment(row pgx.Row) (domain.Comment, error) {
	var c domain.Comment
	err := row.Scan(&c.CommentID, &c.PostID, &c.UserID, &c.AuthorName, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, err
}

// Create inserts the comment and bumps the post's counter in one transaction.
func (r *CommentRepo) Create(ctx context.Context, c *domain.Comment) error {
	c.CreatedAt = c.CreatedAt.UTC().Truncate(time.Microsecond)
	c.UpdatedAt = c.UpdatedAt.UTC().Truncate(time.Microsecond)
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE posts SET comment_count = comment_count + 1 WHERE post_id = $1`, c.PostID)
		if err != nil {
			return fmt.Errorf("increment comment count: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("post %w", domain.ErrNotFound)
		}
		_, err = tx.Exec(ctx, `INSERT INTO comments (`+commentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.CommentID, c.PostID, c.UserID, c.AuthorName, c.Content, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		return nil
	})
}

func (r *CommentRepo) Get(ctx context.Context, commentID string) (*domain.Comment, error) {
	c, err := scanComment(r.db.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE comment_id = $1`, commentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("comment %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CommentRepo) UpdateContent(ctx context.Context, commentID, content string, at time.Time) (*domain.Comment, error) {
	c, err := scanComment(r.db.QueryRow(ctx,
		`UPDATE comments SET content = $2, updated_at = $3 WHERE comment_id = $1 RETURNING `+commentColumns,
		commentID, content, at.UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("comment %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete removes the comment and decrements the post's counter in one
// transaction. The counter never goes below zero.
func (r *CommentRepo) Delete(ctx context.Context, c *domain.Comment) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM comments WHERE comment_id = $1`, c.CommentID)
		if err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("comment %w", domain.ErrNotFound)
		}
		tag, err = tx.Exec(ctx,
			`UPDATE posts SET comment_count = comment_count - 1 WHERE post_id = $1 AND comment_count > 0`, c.PostID)
		if err != nil {
			return fmt.Errorf("decrement comment count: %w", err)
		}
		if tag.RowsAffected() == 0 {
			logging.Ctx(ctx).Warn().Str("comment_id", c.CommentID).Str("post_id", c.PostID).
				Msg("comment counter already zero")
		}
		return nil
	})
}

func (r *CommentRepo) ListByPosts(ctx context.Context, postIDs []string) (map[string][]domain.Comment, error) {
	out := make(map[string][]domain.Comment, len(postIDs))
	for _, id := range postIDs {
		out[id] = []domain.Comment{}
	}
	if len(postIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE post_id = ANY($1) ORDER BY created_at ASC, comment_id ASC`, postIDs)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	comments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Comment, error) {
		return scanComment(row)
	})
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		out[c.PostID] = append(out[c.PostID], c)
	}
	return out, nil
}

// DeleteByPost is a no-op after a post delete because of ON DELETE CASCADE,
// but keeps the store contract for callers.
func (r *CommentRepo) DeleteByPost(ctx context.Context, postID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM comments WHERE post_id = $1`, postID)
	return err
}
