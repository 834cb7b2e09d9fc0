package user

import (
	"context"
	"fmt"

	"github.com/go-api-community/internal/domain"
	"github.com/go-api-community/internal/pkg/tags"
)

// DynamoDB attribute names used in partial update maps.
const fieldInterests = "interests"

type Service interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	// UpdateInterests replaces the user's interest tags. An empty list clears
	// them, which sends recommendations to the random fallback.
	UpdateInterests(ctx context.Context, userID string, req domain.UpdateInterestsRequest) (*domain.User, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type service struct {
	repo userStore
}

type ServiceDeps struct {
	UserRepo userStore
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.UserRepo}
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) UpdateInterests(ctx context.Context, userID string, req domain.UpdateInterestsRequest) (*domain.User, error) {
	interests, err := tags.FromRaw(req.Interests)
	if err != nil {
		return nil, fmt.Errorf("interests: %w", err)
	}
	if err := s.repo.Update(ctx, userID, map[string]interface{}{fieldInterests: interests}); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}
