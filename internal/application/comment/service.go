package comment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-api-community/internal/domain"
	"github.com/go-api-community/internal/metrics"
	"github.com/go-api-community/internal/pkg/id"
)

// Author identifies the caller creating a comment.
type Author struct {
	UserID string
	Name   string
}

type Service interface {
	Create(ctx context.Context, author Author, req domain.CreateCommentRequest) (*domain.Comment, error)
	Update(ctx context.Context, userID, commentID string, req domain.UpdateCommentRequest) (*domain.Comment, error)
	Delete(ctx context.Context, userID, commentID string) error
}

type commentStore interface {
	Create(ctx context.Context, c *domain.Comment) error
	Get(ctx context.Context, commentID string) (*domain.Comment, error)
	UpdateContent(ctx context.Context, commentID, content string, at time.Time) (*domain.Comment, error)
	Delete(ctx context.Context, c *domain.Comment) error
}

type service struct {
	repo commentStore
	now  func() time.Time
}

type ServiceDeps struct {
	CommentRepo commentStore
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.CommentRepo, now: time.Now}
}

func (s *service) Create(ctx context.Context, author Author, req domain.CreateCommentRequest) (*domain.Comment, error) {
	content, err := cleanContent(req.Content)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	c := &domain.Comment{
		CommentID:  id.NewAt(now),
		PostID:     req.PostID,
		UserID:     author.UserID,
		AuthorName: author.Name,
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	// The store increments the post's comment_count in the same transaction
	// and reports a missing post as ErrNotFound.
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	metrics.RecordEngagement("comment")
	return c, nil
}

func (s *service) Update(ctx context.Context, userID, commentID string, req domain.UpdateCommentRequest) (*domain.Comment, error) {
	content, err := cleanContent(req.Content)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.Get(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := domain.RequireOwner(c, userID, "edit this comment"); err != nil {
		return nil, err
	}
	return s.repo.UpdateContent(ctx, commentID, content, s.now().UTC())
}

func (s *service) Delete(ctx context.Context, userID, commentID string) error {
	c, err := s.repo.Get(ctx, commentID)
	if err != nil {
		return err
	}
	if err := domain.RequireOwner(c, userID, "delete this comment"); err != nil {
		return err
	}
	return s.repo.Delete(ctx, c)
}

func cleanContent(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("content is required: %w", domain.ErrBadRequest)
	}
	return s, nil
}
