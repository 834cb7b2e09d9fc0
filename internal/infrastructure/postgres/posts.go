package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/go-api-community/internal/domain"
)

const postColumns = `post_id, user_id, title, description, status, group_id, visibility, tags,
	media_type, media_url, media_object, like_count, comment_count, created_at, updated_at`

// PostRepo implements the post store on Postgres. Tags live in a JSONB array.
type PostRepo struct {
	db *pgxpool.Pool
}

func NewPostRepo(db *pgxpool.Pool) *PostRepo {
	return &PostRepo{db: db}
}

func scanPost(row pgx.Row) (domain.Post, error) {
	var p domain.Post
	var mediaType, mediaURL, mediaObj *string
	err := row.Scan(&p.PostID, &p.UserID, &p.Title, &p.Description, &p.Status, &p.GroupID,
		&p.Visibility, &p.Tags, &mediaType, &mediaURL, &mediaObj, &p.LikeCount, &p.CommentCount,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Post{}, err
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if mediaType != nil {
		p.Media = &domain.Media{Type: *mediaType}
		if mediaURL != nil {
			p.Media.URL = *mediaURL
		}
		if mediaObj != nil {
			p.Media.Object = *mediaObj
		}
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func collectPosts(rows pgx.Rows) ([]domain.Post, error) {
	posts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Post, error) {
		return scanPost(row)
	})
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	return posts, nil
}

func mediaColumns(m *domain.Media) (typ, url, obj *string) {
	if m == nil {
		return nil, nil, nil
	}
	return &m.Type, &m.URL, &m.Object
}

// Put inserts p. Timestamps are truncated to the column precision so the
// caller's copy matches what is stored.
func (r *PostRepo) Put(ctx context.Context, p *domain.Post) error {
	p.CreatedAt = p.CreatedAt.UTC().Truncate(time.Microsecond)
	p.UpdatedAt = p.UpdatedAt.UTC().Truncate(time.Microsecond)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	mt, mu, mo := mediaColumns(p.Media)
	_, err := r.db.Exec(ctx, `
		INSERT INTO posts (`+postColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.PostID, p.UserID, p.Title, p.Description, p.Status, p.GroupID, p.Visibility, p.Tags,
		mt, mu, mo, p.LikeCount, p.CommentCount, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (r *PostRepo) Get(ctx context.Context, postID string) (*domain.Post, error) {
	p, err := scanPost(r.db.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE post_id = $1`, postID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("post %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostRepo) GetMany(ctx context.Context, ids []string) ([]domain.Post, error) {
	if len(ids) == 0 {
		return []domain.Post{}, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+postColumns+` FROM posts WHERE post_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	posts, err := collectPosts(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Post, len(posts))
	for _, p := range posts {
		byID[p.PostID] = p
	}
	out := make([]domain.Post, 0, len(posts))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
			delete(byID, id)
		}
	}
	return out, nil
}

func (r *PostRepo) Update(ctx context.Context, current *domain.Post, upd domain.PostUpdate) (*domain.Post, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Title != nil {
		set("title", *upd.Title)
	}
	if upd.Description != nil {
		set("description", *upd.Description)
	}
	if upd.Status != nil {
		set("status", *upd.Status)
	}
	if upd.GroupID != nil {
		set("group_id", upd.StoredGroupID())
	}
	if upd.Visibility != nil {
		set("visibility", *upd.Visibility)
	}
	if upd.Tags != nil {
		set("tags", upd.Tags)
	}
	if upd.Media != nil {
		set("media_type", upd.Media.Type)
		set("media_url", upd.Media.URL)
		set("media_object", upd.Media.Object)
	}
	set("updated_at", time.Now().UTC().Truncate(time.Microsecond))

	args = append(args, current.PostID, current.UpdatedAt)
	q := fmt.Sprintf(`UPDATE posts SET %s WHERE post_id = $%d AND updated_at = $%d RETURNING `+postColumns,
		strings.Join(sets, ", "), len(args)-1, len(args))

	p, err := scanPost(r.db.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.conflictOrMissing(ctx, current.PostID)
	}
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return &p, nil
}

// Delete removes the post; comments, views and saves cascade.
func (r *PostRepo) Delete(ctx context.Context, p *domain.Post) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE post_id = $1 AND updated_at = $2`, p.PostID, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.conflictOrMissing(ctx, p.PostID)
	}
	return nil
}

func (r *PostRepo) conflictOrMissing(ctx context.Context, postID string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE post_id = $1)`, postID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("post %w", domain.ErrNotFound)
	}
	return fmt.Errorf("post was modified concurrently: %w", domain.ErrConflict)
}

func (r *PostRepo) IncrementLikes(ctx context.Context, postID string) (*domain.Post, error) {
	p, err := scanPost(r.db.QueryRow(ctx,
		`UPDATE posts SET like_count = like_count + 1 WHERE post_id = $1 RETURNING `+postColumns, postID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("post %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostRepo) DecrementLikes(ctx context.Context, postID string) (*domain.Post, error) {
	p, err := scanPost(r.db.QueryRow(ctx,
		`UPDATE posts SET like_count = like_count - 1 WHERE post_id = $1 AND like_count > 0 RETURNING `+postColumns, postID))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, gerr := r.Get(ctx, postID); gerr != nil {
			return nil, gerr
		}
		return nil, domain.ErrCounterUnderflow
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByTags matches any element of the tags array case-insensitively.
func (r *PostRepo) ListByTags(ctx context.Context, tags []string, exclude map[string]struct{}, limit int) ([]domain.Post, error) {
	if len(tags) == 0 || limit <= 0 {
		return []domain.Post{}, nil
	}
	lowered := make([]string, len(tags))
	for i, t := range tags {
		lowered[i] = strings.ToLower(t)
	}
	excluded := make([]string, 0, len(exclude))
	for id := range exclude {
		excluded = append(excluded, id)
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		WHERE EXISTS (
			SELECT 1 FROM jsonb_array_elements_text(p.tags) AS t(tag)
			WHERE lower(t.tag) = ANY($1)
		)
		AND NOT (p.post_id = ANY($2))
		ORDER BY p.created_at DESC, p.post_id DESC
		LIMIT $3`, lowered, excluded, limit)
	if err != nil {
		return nil, fmt.Errorf("query posts by tags: %w", err)
	}
	return collectPosts(rows)
}

func (r *PostRepo) Sample(ctx context.Context, limit int) ([]domain.Post, error) {
	rows, err := r.db.Query(ctx, `SELECT `+postColumns+` FROM posts ORDER BY random() LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("sample posts: %w", err)
	}
	return collectPosts(rows)
}
