package domain

import (
	"fmt"
	"time"
)

// ViewedPost records the last time a user opened a post.
// PK: user_id, SK: post_id.
type ViewedPost struct {
	UserID   string    `json:"user_id" dynamodbav:"user_id"`
	PostID   string    `json:"post_id" dynamodbav:"post_id"`
	ViewedAt time.Time `json:"viewed_at" dynamodbav:"viewed_at"`
}

// SavedPost is a bookmark. PK: user_id, SK: post_id.
type SavedPost struct {
	UserID  string    `json:"user_id" dynamodbav:"user_id"`
	PostID  string    `json:"post_id" dynamodbav:"post_id"`
	SavedAt time.Time `json:"saved_at" dynamodbav:"saved_at"`
}

// SaveState is the outcome of a save toggle.
type SaveState string

const (
	Saved   SaveState = "saved"
	Unsaved SaveState = "unsaved"
)

// LikeAction is the verb accepted by the like endpoint.
type LikeAction string

const (
	ActionLike   LikeAction = "like"
	ActionUnlike LikeAction = "unlike"
)

// ParseLikeAction validates a raw action string.
func ParseLikeAction(s string) (LikeAction, error) {
	switch a := LikeAction(s); a {
	case ActionLike, ActionUnlike:
		return a, nil
	default:
		return "", fmt.Errorf("invalid action %q: %w", s, ErrBadRequest)
	}
}

type PostRefRequest struct {
	PostID string `json:"postId" validate:"required"`
}

type LikeRequest struct {
	Action string `json:"action" validate:"required"`
}
