package post

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/go-api-community/internal/domain"
	s3infra "github.com/go-api-community/internal/infrastructure/s3"
)

// --- mocks ---

type mockPostStore struct{ mock.Mock }

func (m *mockPostStore) Put(ctx context.Context, p *domain.Post) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockPostStore) Get(ctx context.Context, postID string) (*domain.Post, error) {
	args := m.Called(ctx, postID)
	if p, _ := args.Get(0).(*domain.Post); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockPostStore) Update(ctx context.Context, current *domain.Post, upd domain.PostUpdate) (*domain.Post, error) {
	args := m.Called(ctx, current, upd)
	if p, _ := args.Get(0).(*domain.Post); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockPostStore) Delete(ctx context.Context, p *domain.Post) error {
	return m.Called(ctx, p).Error(0)
}

type mockCommentStore struct{ mock.Mock }

func (m *mockCommentStore) DeleteByPost(ctx context.Context, postID string) error {
	return m.Called(ctx, postID).Error(0)
}

type mockObjectStore struct{ mock.Mock }

func (m *mockObjectStore) Upload(ctx context.Context, key string, r io.Reader, contentType string, size int64) error {
	return m.Called(ctx, key, r, contentType, size).Error(0)
}
func (m *mockObjectStore) Download(ctx context.Context, key string) (*s3infra.Object, error) {
	args := m.Called(ctx, key)
	if o, _ := args.Get(0).(*s3infra.Object); o != nil {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockObjectStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// --- builder ---

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(ps *mockPostStore, cs *mockCommentStore, os *mockObjectStore) Service {
	svc := NewService(ServiceDeps{
		PostRepo:      ps,
		CommentRepo:   cs,
		ObjectStore:   os,
		PublicBaseURL: "http://localhost:8080/",
		MaxMediaBytes: 1024,
	}).(*service)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func strPtr(s string) *string { return &s }

func pngUpload() *MediaUpload {
	return &MediaUpload{Reader: strings.NewReader("img"), Filename: "photo.PNG", ContentType: "image/png", Size: 3}
}

// --- Create ---

func TestCreate_InvalidTags_NothingPersisted(t *testing.T) {
	ps, os := &mockPostStore{}, &mockObjectStore{}
	svc := newService(ps, nil, os)

	for _, raw := range []string{`not json`, `{"a":1}`, `"go"`, `null`, `   `, ``} {
		_, err := svc.Create(context.Background(), "u1", CreateInput{Title: "t", Tags: strPtr(raw), Media: pngUpload()})
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, domain.ErrBadRequest), raw)
	}
	ps.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	os.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreate_WithMedia(t *testing.T) {
	ps, os := &mockPostStore{}, &mockObjectStore{}
	key := "uploads/image/1709294400000000000.png"
	os.On("Upload", mock.Anything, key, mock.Anything, "image/png", int64(3)).Return(nil)
	ps.On("Put", mock.Anything, mock.AnythingOfType("*domain.Post")).Return(nil)

	p, err := newService(ps, nil, os).Create(context.Background(), "u1", CreateInput{
		Title: "Hello", Tags: strPtr(`["Go"," rust "]`), GroupID: strPtr(""), Media: pngUpload(),
	})

	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, []string{"go", "rust"}, p.Tags)
	assert.Nil(t, p.GroupID)
	assert.Zero(t, p.LikeCount)
	assert.Zero(t, p.CommentCount)
	require.NotNil(t, p.Media)
	assert.Equal(t, domain.MediaImage, p.Media.Type)
	assert.Equal(t, "http://localhost:8080/"+key, p.Media.URL)
	assert.Equal(t, fixedNow, p.CreatedAt)
}

func TestCreate_PersistFailureRemovesUpload(t *testing.T) {
	ps, os := &mockPostStore{}, &mockObjectStore{}
	os.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	os.On("Delete", mock.Anything, "uploads/image/1709294400000000000.png").Return(nil)
	ps.On("Put", mock.Anything, mock.Anything).Return(errors.New("store down"))

	_, err := newService(ps, nil, os).Create(context.Background(), "u1", CreateInput{Title: "t", Media: pngUpload()})

	require.Error(t, err)
	os.AssertExpectations(t)
}

func TestCreate_RejectsNonMediaUpload(t *testing.T) {
	ps, os := &mockPostStore{}, &mockObjectStore{}
	_, err := newService(ps, nil, os).Create(context.Background(), "u1", CreateInput{
		Title: "t",
		Media: &MediaUpload{Reader: strings.NewReader("x"), Filename: "a.pdf", ContentType: "application/pdf", Size: 1},
	})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestCreate_RejectsOversizedMedia(t *testing.T) {
	ps, os := &mockPostStore{}, &mockObjectStore{}
	m := pngUpload()
	m.Size = 4096
	_, err := newService(ps, nil, os).Create(context.Background(), "u1", CreateInput{Title: "t", Media: m})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

// --- Update ---

func TestUpdate_NotOwner(t *testing.T) {
	ps := &mockPostStore{}
	ps.On("Get", mock.Anything, "p1").Return(&domain.Post{PostID: "p1", UserID: "owner"}, nil)

	_, err := newService(ps, nil, nil).Update(context.Background(), "intruder", "p1", UpdateInput{Title: strPtr("x")})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	ps.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_NotFound(t *testing.T) {
	ps := &mockPostStore{}
	ps.On("Get", mock.Anything, "nope").Return(nil, domain.ErrNotFound)

	_, err := newService(ps, nil, nil).Update(context.Background(), "u1", "nope", UpdateInput{Title: strPtr("x")})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUpdate_InvalidTagsRejectedBeforeLookup(t *testing.T) {
	ps := &mockPostStore{}
	_, err := newService(ps, nil, nil).Update(context.Background(), "u1", "p1", UpdateInput{Tags: strPtr(`{"x":1}`)})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	ps.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestUpdate_NullOrBlankTagsRejected(t *testing.T) {
	ps := &mockPostStore{}
	svc := newService(ps, nil, nil)

	for _, raw := range []string{`null`, `   `, ``} {
		_, err := svc.Update(context.Background(), "u1", "p1", UpdateInput{Title: strPtr("x"), Tags: strPtr(raw)})
		assert.True(t, errors.Is(err, domain.ErrBadRequest), "tags %q", raw)
	}
	ps.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	ps.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_EmptyGroupIDClearsGroup(t *testing.T) {
	ps := &mockPostStore{}
	current := &domain.Post{PostID: "p1", UserID: "u1", GroupID: strPtr("g1")}
	ps.On("Get", mock.Anything, "p1").Return(current, nil)
	ps.On("Update", mock.Anything, current, mock.MatchedBy(func(upd domain.PostUpdate) bool {
		return upd.GroupID != nil && upd.StoredGroupID() == nil
	})).Return(&domain.Post{PostID: "p1", UserID: "u1"}, nil)

	got, err := newService(ps, nil, nil).Update(context.Background(), "u1", "p1", UpdateInput{GroupID: strPtr("")})

	require.NoError(t, err)
	assert.Nil(t, got.GroupID)
	ps.AssertExpectations(t)
}

func TestUpdate_EmptyTagListKeepsTags(t *testing.T) {
	ps := &mockPostStore{}
	current := &domain.Post{PostID: "p1", UserID: "u1", Tags: []string{"go"}}
	ps.On("Get", mock.Anything, "p1").Return(current, nil)

	got, err := newService(ps, nil, nil).Update(context.Background(), "u1", "p1", UpdateInput{Tags: strPtr(`[]`)})

	require.NoError(t, err)
	assert.Same(t, current, got)
	ps.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_PartialFields(t *testing.T) {
	ps := &mockPostStore{}
	current := &domain.Post{PostID: "p1", UserID: "u1", Title: "old", Tags: []string{"go"}}
	ps.On("Get", mock.Anything, "p1").Return(current, nil)
	ps.On("Update", mock.Anything, current, domain.PostUpdate{
		Title: strPtr("new"),
		Tags:  []string{"rust"},
	}).Return(&domain.Post{PostID: "p1", UserID: "u1", Title: "new", Tags: []string{"rust"}}, nil)

	got, err := newService(ps, nil, nil).Update(context.Background(), "u1", "p1", UpdateInput{
		Title: strPtr("new"), Tags: strPtr(`["Rust"]`),
	})

	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
	ps.AssertExpectations(t)
}

func TestUpdate_ReplacesMediaAndRemovesOld(t *testing.T) {
	ps, os := &mockPostStore{}, &mockObjectStore{}
	current := &domain.Post{PostID: "p1", UserID: "u1", Media: &domain.Media{Type: "image", Object: "uploads/image/1.png"}}
	ps.On("Get", mock.Anything, "p1").Return(current, nil)
	os.On("Upload", mock.Anything, "uploads/image/1709294400000000000.png", mock.Anything, "image/png", int64(3)).Return(nil)
	ps.On("Update", mock.Anything, current, mock.MatchedBy(func(u domain.PostUpdate) bool {
		return u.Media != nil && u.Media.Object == "uploads/image/1709294400000000000.png"
	})).Return(&domain.Post{PostID: "p1"}, nil)
	os.On("Delete", mock.Anything, "uploads/image/1.png").Return(errors.New("ignored"))

	_, err := newService(ps, nil, os).Update(context.Background(), "u1", "p1", UpdateInput{Media: pngUpload()})

	require.NoError(t, err)
	os.AssertExpectations(t)
}

func TestUpdate_ConflictRemovesNewUpload(t *testing.T) {
	ps, os := &mockPostStore{}, &mockObjectStore{}
	current := &domain.Post{PostID: "p1", UserID: "u1"}
	ps.On("Get", mock.Anything, "p1").Return(current, nil)
	os.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ps.On("Update", mock.Anything, current, mock.Anything).Return(nil, domain.ErrConflict)
	os.On("Delete", mock.Anything, "uploads/image/1709294400000000000.png").Return(nil)

	_, err := newService(ps, nil, os).Update(context.Background(), "u1", "p1", UpdateInput{Media: pngUpload()})

	assert.True(t, errors.Is(err, domain.ErrConflict))
	os.AssertExpectations(t)
}

// --- Delete ---

func TestDelete_NotOwner(t *testing.T) {
	ps := &mockPostStore{}
	ps.On("Get", mock.Anything, "p1").Return(&domain.Post{PostID: "p1", UserID: "owner"}, nil)

	err := newService(ps, nil, nil).Delete(context.Background(), "other", "p1")

	assert.True(t, errors.Is(err, domain.ErrForbidden))
	ps.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDelete_CascadesBestEffort(t *testing.T) {
	ps, cs, os := &mockPostStore{}, &mockCommentStore{}, &mockObjectStore{}
	p := &domain.Post{PostID: "p1", UserID: "u1", Media: &domain.Media{Object: "uploads/video/5.mp4"}}
	ps.On("Get", mock.Anything, "p1").Return(p, nil)
	ps.On("Delete", mock.Anything, p).Return(nil)
	cs.On("DeleteByPost", mock.Anything, "p1").Return(errors.New("throttled"))
	os.On("Delete", mock.Anything, "uploads/video/5.mp4").Return(nil)

	require.NoError(t, newService(ps, cs, os).Delete(context.Background(), "u1", "p1"))
	ps.AssertExpectations(t)
	cs.AssertExpectations(t)
	os.AssertExpectations(t)
}

// --- media paths ---

func TestOpenMedia(t *testing.T) {
	os := &mockObjectStore{}
	obj := &s3infra.Object{Body: io.NopCloser(strings.NewReader("x")), ContentType: "image/png"}
	os.On("Download", mock.Anything, "uploads/image/17.png").Return(obj, nil)
	svc := newService(nil, nil, os)

	got, err := svc.OpenMedia(context.Background(), "image", "17.png")
	require.NoError(t, err)
	assert.Same(t, obj, got)

	for _, c := range [][2]string{{"file", "17.png"}, {"image", "../17.png"}, {"image", "abc.png"}, {"video", "1.tar.gz"}} {
		_, err := svc.OpenMedia(context.Background(), c[0], c[1])
		assert.True(t, errors.Is(err, domain.ErrNotFound), c)
	}
}

func TestSafeExt(t *testing.T) {
	assert.Equal(t, ".jpg", safeExt("Holiday.JPG"))
	assert.Equal(t, ".mp4", safeExt(`C:\videos\clip.mp4`))
	assert.Equal(t, "", safeExt("noext"))
	assert.Equal(t, "", safeExt("evil.p$p"))
}
