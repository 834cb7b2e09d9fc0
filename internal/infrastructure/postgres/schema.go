package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Statements run one at a time; cached-statement mode rejects multi-command strings.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		post_id       TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		title         TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL DEFAULT '',
		group_id      TEXT,
		visibility    TEXT NOT NULL DEFAULT '',
		tags          JSONB NOT NULL DEFAULT '[]'::jsonb,
		media_type    TEXT,
		media_url     TEXT,
		media_object  TEXT,
		like_count    BIGINT NOT NULL DEFAULT 0 CHECK (like_count >= 0),
		comment_count BIGINT NOT NULL DEFAULT 0 CHECK (comment_count >= 0),
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS posts_created_at_idx ON posts (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS posts_tags_idx ON posts USING GIN (tags)`,
	`CREATE TABLE IF NOT EXISTS comments (
		comment_id  TEXT PRIMARY KEY,
		post_id     TEXT NOT NULL REFERENCES posts (post_id) ON DELETE CASCADE,
		user_id     TEXT NOT NULL,
		author_name TEXT NOT NULL DEFAULT '',
		content     TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS comments_post_idx ON comments (post_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS viewed_posts (
		user_id   TEXT NOT NULL,
		post_id   TEXT NOT NULL REFERENCES posts (post_id) ON DELETE CASCADE,
		viewed_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, post_id)
	)`,
	`CREATE TABLE IF NOT EXISTS saved_posts (
		user_id  TEXT NOT NULL,
		post_id  TEXT NOT NULL REFERENCES posts (post_id) ON DELETE CASCADE,
		saved_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, post_id)
	)`,
	`CREATE INDEX IF NOT EXISTS saved_posts_user_time_idx ON saved_posts (user_id, saved_at DESC)`,
}

// Migrate creates the content tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
