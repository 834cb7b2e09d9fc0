package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/go-api-community/internal/domain"
	"github.com/go-api-community/internal/logging"
)

// MessageEnvelope is the generic response wrapper. Every body carries
// success and message.
type MessageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type PostEnvelope struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	Post        *domain.Post `json:"post,omitempty"`
	UpdatedPost *domain.Post `json:"updatedPost,omitempty"`
}

type PostsEnvelope struct {
	Success bool                      `json:"success"`
	Message string                    `json:"message"`
	Posts   []domain.PostWithComments `json:"posts"`
}

type CommentEnvelope struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message"`
	Comment        *domain.Comment `json:"comment,omitempty"`
	UpdatedComment *domain.Comment `json:"updatedComment,omitempty"`
}

type SaveEnvelope struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	State   domain.SaveState `json:"state"`
}

// AuthEnvelope wraps login responses.
type AuthEnvelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
}

type UserEnvelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Success: false, Message: msg})
}

// httpError maps domain errors to status codes. Anything unrecognised is
// logged and answered with a fixed message.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request timed out")
		writeError(w, http.StatusServiceUnavailable, "request timed out")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a JSON body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return errors.New("invalid request body")
	}
	return nil
}
