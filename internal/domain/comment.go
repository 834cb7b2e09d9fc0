package domain

import "time"

type Comment struct {
	CommentID  string    `json:"id" dynamodbav:"comment_id"`
	PostID     string    `json:"post_id" dynamodbav:"post_id"`
	UserID     string    `json:"user_id" dynamodbav:"user_id"`
	AuthorName string    `json:"username" dynamodbav:"author_name"`
	Content    string    `json:"content" dynamodbav:"content"`
	CreatedAt  time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt  time.Time `json:"updated" dynamodbav:"updated_at"`
}

func (c *Comment) OwnerID() string { return c.UserID }

type CreateCommentRequest struct {
	PostID  string `json:"PostID" validate:"required"`
	Content string `json:"content" validate:"required,max=5000"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}
