package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/go-api-community/internal/application/post"
	"github.com/go-api-community/internal/logging"
)

// MediaHandler streams uploaded post media from object storage.
type MediaHandler struct {
	svc post.Service
}

func NewMediaHandler(svc post.Service) *MediaHandler { return &MediaHandler{svc: svc} }

func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	obj, err := h.svc.OpenMedia(r.Context(), chi.URLParam(r, "kind"), chi.URLParam(r, "name"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	defer obj.Body.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if obj.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.ContentLength, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("media stream interrupted")
	}
}
