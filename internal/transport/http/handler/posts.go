package handler

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/go-chi/chi/v5"

	"github.com/go-api-community/internal/application/post"
	"github.com/go-api-community/internal/application/recommend"
	"github.com/go-api-community/internal/pkg/validate"
	"github.com/go-api-community/internal/transport/http/middleware"
)

const (
	mediaField = "media"
	// multipartMemory is the part of a multipart body kept in memory; the
	// rest spills to temp files.
	multipartMemory = 8 << 20
	// formOverhead allows for the non-file fields of a multipart body.
	formOverhead = 1 << 20
)

// PostHandler serves post CRUD and the recommendation feed.
type PostHandler struct {
	svc           post.Service
	recommender   recommend.Service
	maxMediaBytes int64
}

func NewPostHandler(svc post.Service, recommender recommend.Service, maxMediaBytes int64) *PostHandler {
	return &PostHandler{svc: svc, recommender: recommender, maxMediaBytes: maxMediaBytes}
}

// postBody is the JSON form of a create/update request. tags may be sent as a
// string holding a JSON array or as the array itself.
type postBody struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Status      *string         `json:"status"`
	GroupID     *string         `json:"GroupID"`
	Visibility  *string         `json:"visibility"`
	RawTags     json.RawMessage `json:"tags"`

	// tags is the tags field as the post service takes it; nil when absent.
	tags *string
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	body, media, cleanup, err := h.readPostBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	in := post.CreateInput{
		Title:       deref(body.Title),
		Description: deref(body.Description),
		Status:      deref(body.Status),
		GroupID:     body.GroupID,
		Visibility:  deref(body.Visibility),
		Tags:        body.tags,
		Media:       media,
	}
	if err := validate.Struct(&in); err != nil {
		httpError(w, r, err)
		return
	}
	p, err := h.svc.Create(r.Context(), claims.UserID, in)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, PostEnvelope{Success: true, Message: "Post created successfully", Post: p})
}

func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	body, media, cleanup, err := h.readPostBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	in := post.UpdateInput{
		Title:       body.Title,
		Description: body.Description,
		Status:      body.Status,
		GroupID:     body.GroupID,
		Visibility:  body.Visibility,
		Tags:        body.tags,
		Media:       media,
	}
	if err := validate.Struct(&in); err != nil {
		httpError(w, r, err)
		return
	}
	p, err := h.svc.Update(r.Context(), claims.UserID, chi.URLParam(r, "postID"), in)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PostEnvelope{Success: true, Message: "Post updated successfully", UpdatedPost: p})
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Delete(r.Context(), claims.UserID, chi.URLParam(r, "postID")); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: "Post deleted successfully"})
}

func (h *PostHandler) Recommended(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	posts, err := h.recommender.Recommend(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PostsEnvelope{Success: true, Message: "Recommended posts", Posts: posts})
}

// readPostBody parses either a multipart form (with an optional "media" file)
// or a JSON body. Fields absent from the request stay nil; an empty or null
// tags field counts as absent. cleanup releases multipart temp files and must
// always be called.
func (h *PostHandler) readPostBody(w http.ResponseWriter, r *http.Request) (postBody, *post.MediaUpload, func(), error) {
	var body postBody
	noop := func() {}

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "multipart/form-data" {
		if r.ContentLength == 0 {
			return body, nil, noop, nil
		}
		if err := decodeJSON(r, &body); err != nil {
			return body, nil, noop, err
		}
		body.tags = jsonTags(body.RawTags)
		return body, nil, noop, nil
	}

	if h.maxMediaBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxMediaBytes+formOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return body, nil, noop, errors.New("request body too large")
		}
		return body, nil, noop, errors.New("invalid multipart body")
	}
	form := r.MultipartForm
	cleanup := func() { _ = form.RemoveAll() }

	body.Title = formValue(form, "title")
	body.Description = formValue(form, "description")
	body.Status = formValue(form, "status")
	body.GroupID = formValue(form, "GroupID")
	body.Visibility = formValue(form, "visibility")
	if t := formValue(form, "tags"); t != nil && *t != "" {
		body.tags = t
	}

	files := form.File[mediaField]
	if len(files) == 0 {
		return body, nil, cleanup, nil
	}
	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		cleanup()
		return body, nil, noop, errors.New("invalid media file")
	}
	media := &post.MediaUpload{
		Reader:      f,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	}
	return body, media, func() { _ = f.Close(); cleanup() }, nil
}

func formValue(form *multipart.Form, key string) *string {
	vs, ok := form.Value[key]
	if !ok || len(vs) == 0 {
		return nil
	}
	v := vs[0]
	return &v
}

// jsonTags turns the JSON tags field into the string-encoded JSON array the
// post service expects. Arrays and other values pass through as-is so the
// service can reject them; a JSON string is unwrapped.
func jsonTags(raw json.RawMessage) *string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			if inner == "" {
				return nil
			}
			return &inner
		}
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
