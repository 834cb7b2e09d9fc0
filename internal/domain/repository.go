package domain

import (
	"context"
	"time"
)

// PostRepository persists posts and their counters. Implemented by the
// DynamoDB and Postgres content stores.
type PostRepository interface {
	Put(ctx context.Context, p *Post) error
	Get(ctx context.Context, postID string) (*Post, error)
	// GetMany returns the posts that exist, in the order of ids.
	GetMany(ctx context.Context, ids []string) ([]Post, error)
	// Update applies upd to current and returns the stored result. A concurrent
	// change to the same post yields ErrConflict.
	Update(ctx context.Context, current *Post, upd PostUpdate) (*Post, error)
	Delete(ctx context.Context, p *Post) error
	IncrementLikes(ctx context.Context, postID string) (*Post, error)
	// DecrementLikes returns ErrCounterUnderflow when like_count is already zero.
	DecrementLikes(ctx context.Context, postID string) (*Post, error)
	// ListByTags returns up to limit posts carrying any of tags, newest first,
	// skipping ids in exclude. Tags are matched lowercased.
	ListByTags(ctx context.Context, tags []string, exclude map[string]struct{}, limit int) ([]Post, error)
	// Sample returns up to limit posts in random order.
	Sample(ctx context.Context, limit int) ([]Post, error)
}

// CommentRepository persists comments. Create and Delete adjust the post's
// comment_count in the same transaction.
type CommentRepository interface {
	Create(ctx context.Context, c *Comment) error
	Get(ctx context.Context, commentID string) (*Comment, error)
	UpdateContent(ctx context.Context, commentID, content string, at time.Time) (*Comment, error)
	Delete(ctx context.Context, c *Comment) error
	// ListByPosts groups comments by post id, oldest first within a post.
	ListByPosts(ctx context.Context, postIDs []string) (map[string][]Comment, error)
	DeleteByPost(ctx context.Context, postID string) error
}

// EngagementRepository persists per-user view and save records.
type EngagementRepository interface {
	MarkViewed(ctx context.Context, v *ViewedPost) error
	ViewedPostIDs(ctx context.Context, userID string) (map[string]struct{}, error)
	ToggleSave(ctx context.Context, userID, postID string, at time.Time) (SaveState, error)
	// ListSaved returns the user's saves, most recent first.
	ListSaved(ctx context.Context, userID string) ([]SavedPost, error)
}
