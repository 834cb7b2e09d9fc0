package http

import (
	"context"
	"io"

	"github.com/go-api-community/internal/domain"
	jwtinfra "github.com/go-api-community/internal/infrastructure/jwt"
	s3infra "github.com/go-api-community/internal/infrastructure/s3"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// VerificationRepository is the minimal interface the router requires from a
// verification store.
type VerificationRepository interface {
	Put(ctx context.Context, v *domain.UserVerification) error
	Get(ctx context.Context, userID, purpose string) (*domain.UserVerification, error)
	Delete(ctx context.Context, userID, purpose string) error
}

// ObjectStore is the minimal interface the router requires from an object
// storage backend.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string, size int64) error
	Download(ctx context.Context, key string) (*s3infra.Object, error)
	Delete(ctx context.Context, key string) error
}

type Mailer interface {
	SendEmail(to, subject, body string) error
}

// Deps holds all infrastructure dependencies for the router. The content
// repositories are backed by DynamoDB or Postgres depending on CONTENT_STORE.
type Deps struct {
	UserRepo         UserRepository
	VerificationRepo VerificationRepository
	PostRepo         domain.PostRepository
	CommentRepo      domain.CommentRepository
	EngagementRepo   domain.EngagementRepository
	ObjectStore      ObjectStore
	Mailer           Mailer
	JWTProvider      *jwtinfra.Provider
}
