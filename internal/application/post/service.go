package post

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-api-community/internal/domain"
	s3infra "github.com/go-api-community/internal/infrastructure/s3"
	"github.com/go-api-community/internal/logging"
	"github.com/go-api-community/internal/pkg/id"
	"github.com/go-api-community/internal/pkg/tags"
)

type CreateInput struct {
	Title       string  `validate:"required,max=200"`
	Description string  `validate:"max=10000"`
	Status      string  `validate:"max=50"`
	GroupID     *string `validate:"omitempty,max=100"`
	Visibility  string  `validate:"max=50"`
	// Tags is the raw tags field: a string holding a JSON array. Nil when
	// the request carried no tags.
	Tags  *string
	Media *MediaUpload
}

// UpdateInput is a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Title       *string `validate:"omitempty,min=1,max=200"`
	Description *string `validate:"omitempty,max=10000"`
	Status      *string `validate:"omitempty,max=50"`
	GroupID     *string `validate:"omitempty,max=100"`
	Visibility  *string `validate:"omitempty,max=50"`
	Tags        *string
	Media       *MediaUpload
}

type Service interface {
	Create(ctx context.Context, userID string, in CreateInput) (*domain.Post, error)
	Update(ctx context.Context, userID, postID string, in UpdateInput) (*domain.Post, error)
	Delete(ctx context.Context, userID, postID string) error
	// OpenMedia streams a stored upload by its public kind and name.
	OpenMedia(ctx context.Context, kind, name string) (*s3infra.Object, error)
}

type postStore interface {
	Put(ctx context.Context, p *domain.Post) error
	Get(ctx context.Context, postID string) (*domain.Post, error)
	Update(ctx context.Context, current *domain.Post, upd domain.PostUpdate) (*domain.Post, error)
	Delete(ctx context.Context, p *domain.Post) error
}

type commentStore interface {
	DeleteByPost(ctx context.Context, postID string) error
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string, size int64) error
	Download(ctx context.Context, key string) (*s3infra.Object, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	posts         postStore
	comments      commentStore
	objects       objectStore
	publicBaseURL string
	maxMediaBytes int64
	now           func() time.Time
}

type ServiceDeps struct {
	PostRepo      postStore
	CommentRepo   commentStore
	ObjectStore   objectStore
	PublicBaseURL string
	MaxMediaBytes int64
}

func NewService(deps ServiceDeps) Service {
	return &service{
		posts:         deps.PostRepo,
		comments:      deps.CommentRepo,
		objects:       deps.ObjectStore,
		publicBaseURL: strings.TrimRight(deps.PublicBaseURL, "/"),
		maxMediaBytes: deps.MaxMediaBytes,
		now:           time.Now,
	}
}

func (s *service) Create(ctx context.Context, userID string, in CreateInput) (*domain.Post, error) {
	postTags := []string{}
	if in.Tags != nil {
		parsed, err := tags.Parse(*in.Tags)
		if err != nil {
			return nil, err
		}
		postTags = parsed
	}
	if err := s.checkMedia(in.Media); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &domain.Post{
		PostID:      id.NewAt(now),
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		GroupID:     emptyToNil(in.GroupID),
		Visibility:  in.Visibility,
		Tags:        postTags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Media != nil {
		m, err := s.upload(ctx, in.Media, now)
		if err != nil {
			return nil, err
		}
		p.Media = m
	}
	if err := s.posts.Put(ctx, p); err != nil {
		s.discard(ctx, p.Media)
		return nil, err
	}
	return p, nil
}

func (s *service) Update(ctx context.Context, userID, postID string, in UpdateInput) (*domain.Post, error) {
	var upd domain.PostUpdate
	if in.Tags != nil {
		parsed, err := tags.Parse(*in.Tags)
		if err != nil {
			return nil, err
		}
		// An empty list keeps the current tags.
		if len(parsed) > 0 {
			upd.Tags = parsed
		}
	}
	if err := s.checkMedia(in.Media); err != nil {
		return nil, err
	}

	current, err := s.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := domain.RequireOwner(current, userID, "edit this post"); err != nil {
		return nil, err
	}

	upd.Title = in.Title
	upd.Description = in.Description
	upd.Status = in.Status
	upd.Visibility = in.Visibility
	upd.GroupID = in.GroupID
	if in.Media != nil {
		m, err := s.upload(ctx, in.Media, s.now().UTC())
		if err != nil {
			return nil, err
		}
		upd.Media = m
	}
	if upd.Empty() {
		return current, nil
	}

	updated, err := s.posts.Update(ctx, current, upd)
	if err != nil {
		s.discard(ctx, upd.Media)
		return nil, err
	}
	if upd.Media != nil {
		s.discard(ctx, current.Media)
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, userID, postID string) error {
	p, err := s.posts.Get(ctx, postID)
	if err != nil {
		return err
	}
	if err := domain.RequireOwner(p, userID, "delete this post"); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, p); err != nil {
		return err
	}
	if err := s.comments.DeleteByPost(ctx, p.PostID); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("post_id", p.PostID).Msg("failed to delete comments of deleted post")
	}
	s.discard(ctx, p.Media)
	return nil
}

func (s *service) OpenMedia(ctx context.Context, kind, name string) (*s3infra.Object, error) {
	key, err := objectKeyFor(kind, name)
	if err != nil {
		return nil, err
	}
	return s.objects.Download(ctx, key)
}

func (s *service) checkMedia(m *MediaUpload) error {
	if m == nil {
		return nil
	}
	if _, err := domain.MediaKind(m.ContentType); err != nil {
		return err
	}
	if s.maxMediaBytes > 0 && m.Size > s.maxMediaBytes {
		return fmt.Errorf("media exceeds %d bytes: %w", s.maxMediaBytes, domain.ErrBadRequest)
	}
	return nil
}

func (s *service) upload(ctx context.Context, m *MediaUpload, at time.Time) (*domain.Media, error) {
	kind, err := domain.MediaKind(m.ContentType)
	if err != nil {
		return nil, err
	}
	key := mediaKey(kind, m.Filename, at)
	if err := s.objects.Upload(ctx, key, m.Reader, m.ContentType, m.Size); err != nil {
		return nil, err
	}
	return &domain.Media{Type: kind, URL: s.publicBaseURL + "/" + key, Object: key}, nil
}

// discard removes a stored media object. Failures are logged only.
func (s *service) discard(ctx context.Context, m *domain.Media) {
	if m == nil || m.Object == "" {
		return
	}
	if err := s.objects.Delete(ctx, m.Object); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("object", m.Object).Msg("failed to delete media object")
	}
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
