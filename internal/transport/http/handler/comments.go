package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/go-api-community/internal/application/comment"
	"github.com/go-api-community/internal/domain"
	"github.com/go-api-community/internal/transport/http/middleware"
)

type CommentHandler struct {
	svc comment.Service
}

func NewCommentHandler(svc comment.Service) *CommentHandler { return &CommentHandler{svc: svc} }

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.CreateCommentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	c, err := h.svc.Create(r.Context(), comment.Author{UserID: claims.UserID, Name: claims.Username}, req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CommentEnvelope{Success: true, Message: "Comment created successfully", Comment: c})
}

func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateCommentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	c, err := h.svc.Update(r.Context(), claims.UserID, chi.URLParam(r, "commentID"), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CommentEnvelope{Success: true, Message: "Comment updated successfully", UpdatedComment: c})
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Delete(r.Context(), claims.UserID, chi.URLParam(r, "commentID")); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: "Comment deleted successfully"})
}
