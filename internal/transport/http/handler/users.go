package handler

import (
	"net/http"

	"github.com/go-api-community/internal/application/user"
	"github.com/go-api-community/internal/domain"
	"github.com/go-api-community/internal/transport/http/middleware"
)

// UserHandler serves the caller's own profile.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.svc.Get(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{Success: true, Message: "ok", User: u})
}

func (h *UserHandler) UpdateInterests(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateInterestsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	u, err := h.svc.UpdateInterests(r.Context(), claims.UserID, req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{Success: true, Message: "Interests updated", User: u})
}
