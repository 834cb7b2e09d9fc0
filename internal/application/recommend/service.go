// Package recommend builds a user's feed from interest tags, falling back to a
// random sample when interests are missing or match nothing.
package recommend

import (
	"context"

	"github.com/go-api-community/internal/domain"
	"github.com/go-api-community/internal/logging"
	"github.com/go-api-community/internal/metrics"
	"github.com/go-api-community/internal/pkg/tags"
)

type Service interface {
	Recommend(ctx context.Context, userID string) ([]domain.PostWithComments, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type postStore interface {
	ListByTags(ctx context.Context, tags []string, exclude map[string]struct{}, limit int) ([]domain.Post, error)
	Sample(ctx context.Context, limit int) ([]domain.Post, error)
}

type viewStore interface {
	ViewedPostIDs(ctx context.Context, userID string) (map[string]struct{}, error)
}

type commentStore interface {
	ListByPosts(ctx context.Context, postIDs []string) (map[string][]domain.Comment, error)
}

type service struct {
	users    userStore
	posts    postStore
	views    viewStore
	comments commentStore
	limit    int
}

type ServiceDeps struct {
	UserRepo       userStore
	PostRepo       postStore
	EngagementRepo viewStore
	CommentRepo    commentStore
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:    deps.UserRepo,
		posts:    deps.PostRepo,
		views:    deps.EngagementRepo,
		comments: deps.CommentRepo,
		limit:    domain.RecommendationLimit,
	}
}

func (s *service) Recommend(ctx context.Context, userID string) ([]domain.PostWithComments, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	interests, err := tags.Normalize(u.Interests)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("ignoring malformed interests")
		interests = nil
	}

	var posts []domain.Post
	if len(interests) > 0 {
		viewed, err := s.views.ViewedPostIDs(ctx, userID)
		if err != nil {
			return nil, err
		}
		posts, err = s.posts.ListByTags(ctx, interests, viewed, s.limit)
		if err != nil {
			return nil, err
		}
	}

	source := metrics.SourceInterests
	if len(posts) == 0 {
		source = metrics.SourceRandom
		if posts, err = s.posts.Sample(ctx, s.limit); err != nil {
			return nil, err
		}
	}
	if len(posts) > s.limit {
		posts = posts[:s.limit]
	}

	out, err := s.withComments(ctx, posts)
	if err != nil {
		return nil, err
	}
	metrics.RecordRecommendation(source)
	return out, nil
}

func (s *service) withComments(ctx context.Context, posts []domain.Post) ([]domain.PostWithComments, error) {
	if len(posts) == 0 {
		return []domain.PostWithComments{}, nil
	}
	byPost, err := s.comments.ListByPosts(ctx, domain.PostIDs(posts))
	if err != nil {
		return nil, err
	}
	return domain.AttachComments(posts, byPost), nil
}
