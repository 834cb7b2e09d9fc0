package engagement

import (
	"context"
	"time"

	"github.com/go-api-community/internal/domain"
	"github.com/go-api-community/internal/metrics"
)

type Service interface {
	MarkViewed(ctx context.Context, userID, postID string) error
	ToggleSave(ctx context.Context, userID, postID string) (domain.SaveState, error)
	ListSaved(ctx context.Context, userID string) ([]domain.PostWithComments, error)
	ToggleLike(ctx context.Context, postID, action string) (*domain.Post, error)
}

type postStore interface {
	Get(ctx context.Context, postID string) (*domain.Post, error)
	GetMany(ctx context.Context, ids []string) ([]domain.Post, error)
	IncrementLikes(ctx context.Context, postID string) (*domain.Post, error)
	DecrementLikes(ctx context.Context, postID string) (*domain.Post, error)
}

type engagementStore interface {
	MarkViewed(ctx context.Context, v *domain.ViewedPost) error
	ToggleSave(ctx context.Context, userID, postID string, at time.Time) (domain.SaveState, error)
	ListSaved(ctx context.Context, userID string) ([]domain.SavedPost, error)
}

type commentStore interface {
	ListByPosts(ctx context.Context, postIDs []string) (map[string][]domain.Comment, error)
}

type service struct {
	posts    postStore
	repo     engagementStore
	comments commentStore
	now      func() time.Time
}

type ServiceDeps struct {
	PostRepo       postStore
	EngagementRepo engagementStore
	CommentRepo    commentStore
}

func NewService(deps ServiceDeps) Service {
	return &service{
		posts:    deps.PostRepo,
		repo:     deps.EngagementRepo,
		comments: deps.CommentRepo,
		now:      time.Now,
	}
}

func (s *service) MarkViewed(ctx context.Context, userID, postID string) error {
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return err
	}
	err := s.repo.MarkViewed(ctx, &domain.ViewedPost{
		UserID:   userID,
		PostID:   postID,
		ViewedAt: s.now().UTC(),
	})
	if err != nil {
		return err
	}
	metrics.RecordEngagement("view")
	return nil
}

func (s *service) ToggleSave(ctx context.Context, userID, postID string) (domain.SaveState, error) {
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return "", err
	}
	state, err := s.repo.ToggleSave(ctx, userID, postID, s.now().UTC())
	if err != nil {
		return "", err
	}
	if state == domain.Saved {
		metrics.RecordEngagement("save")
	} else {
		metrics.RecordEngagement("unsave")
	}
	return state, nil
}

func (s *service) ListSaved(ctx context.Context, userID string) ([]domain.PostWithComments, error) {
	saved, err := s.repo.ListSaved(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(saved) == 0 {
		return []domain.PostWithComments{}, nil
	}
	ids := make([]string, len(saved))
	for i := range saved {
		ids[i] = saved[i].PostID
	}
	// Saves that outlived their post are skipped by GetMany.
	posts, err := s.posts.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return []domain.PostWithComments{}, nil
	}
	byPost, err := s.comments.ListByPosts(ctx, domain.PostIDs(posts))
	if err != nil {
		return nil, err
	}
	return domain.AttachComments(posts, byPost), nil
}

func (s *service) ToggleLike(ctx context.Context, postID, action string) (*domain.Post, error) {
	a, err := domain.ParseLikeAction(action)
	if err != nil {
		return nil, err
	}
	var p *domain.Post
	if a == domain.ActionLike {
		p, err = s.posts.IncrementLikes(ctx, postID)
	} else {
		p, err = s.posts.DecrementLikes(ctx, postID)
	}
	if err != nil {
		return nil, err
	}
	metrics.RecordEngagement(string(a))
	return p, nil
}
