package handler

import (
	"net/http"

	"github.com/go-api-community/internal/application/auth"
	"github.com/go-api-community/internal/domain"
	"github.com/go-api-community/internal/pkg/validate"
)

// AuthHandler serves registration, OTP verification, login and password reset.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler { return &AuthHandler{svc: svc} }

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if _, err := h.svc.Register(r.Context(), req); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageEnvelope{Success: true, Message: "User created. OTP sent to email."})
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.svc.VerifyOTP(r.Context(), req); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: "User verified successfully"})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Success: true, Message: "Login successful", Token: res.Token, User: res.User})
}

func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req auth.PasswordResetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.svc.RequestPasswordReset(r.Context(), req); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: "OTP sent for password reset"})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req auth.ResetPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: "Password reset successfully"})
}

// decodeAndValidate decodes a JSON body into v and runs struct validation,
// writing a 400 on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := decodeJSON(r, v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err := validate.Struct(v); err != nil {
		httpError(w, r, err)
		return false
	}
	return true
}
