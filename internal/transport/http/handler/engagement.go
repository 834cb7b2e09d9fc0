package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/go-api-community/internal/application/engagement"
	"github.com/go-api-community/internal/domain"
	"github.com/go-api-community/internal/transport/http/middleware"
)

// EngagementHandler serves views, saves and likes.
type EngagementHandler struct {
	svc engagement.Service
}

func NewEngagementHandler(svc engagement.Service) *EngagementHandler {
	return &EngagementHandler{svc: svc}
}

func (h *EngagementHandler) View(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.PostRefRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.svc.MarkViewed(r.Context(), claims.UserID, req.PostID); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: "Post marked as viewed"})
}

func (h *EngagementHandler) ToggleSave(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.PostRefRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	state, err := h.svc.ToggleSave(r.Context(), claims.UserID, req.PostID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	msg := "Post saved successfully"
	if state == domain.Unsaved {
		msg = "Post unsaved successfully"
	}
	writeJSON(w, http.StatusOK, SaveEnvelope{Success: true, Message: msg, State: state})
}

func (h *EngagementHandler) Saved(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	posts, err := h.svc.ListSaved(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PostsEnvelope{Success: true, Message: "Saved posts", Posts: posts})
}

func (h *EngagementHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	var req domain.LikeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	p, err := h.svc.ToggleLike(r.Context(), chi.URLParam(r, "postID"), req.Action)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PostEnvelope{Success: true, Message: "Like count updated", Post: p})
}
