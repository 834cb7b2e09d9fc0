package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-api-community/internal/domain"
	"github.com/go-api-community/internal/logging"
	"github.com/go-api-community/internal/pkg/id"
	"github.com/go-api-community/internal/pkg/tags"
)

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Token string
	User  *domain.User
}

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
	VerifyOTP(ctx context.Context, req VerifyOTPRequest) error
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	RequestPasswordReset(ctx context.Context, req PasswordResetRequest) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type verificationStore interface {
	Put(ctx context.Context, v *domain.UserVerification) error
	Get(ctx context.Context, userID, purpose string) (*domain.UserVerification, error)
	Delete(ctx context.Context, userID, purpose string) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type jwtSigner interface {
	Sign(userID, username string) (string, error)
}

type service struct {
	users         userStore
	verifications verificationStore
	mailer        mailer
	jwtProvider   jwtSigner
	otpExpiry     time.Duration
}

type ServiceDeps struct {
	UserRepo         userStore
	VerificationRepo verificationStore
	Mailer           mailer
	JWTProvider      jwtSigner
	OTPExpiry        time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:         deps.UserRepo,
		verifications: deps.VerificationRepo,
		mailer:        deps.Mailer,
		jwtProvider:   deps.JWTProvider,
		otpExpiry:     deps.OTPExpiry,
	}
}

var errInvalidOTP = fmt.Errorf("invalid or expired OTP: %w", domain.ErrBadRequest)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	email := normalizeEmail(req.Email)
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		return nil, fmt.Errorf("user with this email already exists: %w", domain.ErrConflict)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	interests, err := tags.FromRaw(req.Interests)
	if err != nil {
		return nil, fmt.Errorf("interests: %w", err)
	}
	userType := req.Type
	if userType == "" {
		userType = domain.UserTypeRegular
	}

	var pro *domain.Professional
	if userType == domain.UserTypeProfessional {
		expertise, err := tags.FromRaw(req.Expertise)
		if err != nil {
			return nil, fmt.Errorf("expertise: %w", err)
		}
		pro = &domain.Professional{
			Expertise:    expertise,
			Experience:   req.Experience,
			Availability: req.Availability,
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u := &domain.User{
		UserID:             id.NewAt(now),
		Name:               strings.TrimSpace(req.Name),
		Email:              email,
		PasswordHash:       string(hash),
		Type:               userType,
		VerificationStatus: domain.VerificationPending,
		Interests:          interests,
		Professional:       pro,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.users.Put(ctx, u); err != nil {
		return nil, err
	}
	if err := s.issueOTP(ctx, u, domain.VerificationEmail, "Verify your account"); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) error {
	u, err := s.consumeOTP(ctx, req.Email, req.OTP, domain.VerificationEmail)
	if err != nil {
		return err
	}
	return s.users.Update(ctx, u.UserID, map[string]interface{}{
		"verification_status": domain.VerificationVerified,
	})
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	invalid := fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	u, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}
	if !u.Verified() {
		return nil, invalid
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, invalid
	}
	token, err := s.jwtProvider.Sign(u.UserID, u.Name)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: u}, nil
}

func (s *service) RequestPasswordReset(ctx context.Context, req PasswordResetRequest) error {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return err
	}
	return s.issueOTP(ctx, u, domain.VerificationPasswordReset, "Password reset code")
}

func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	u, err := s.consumeOTP(ctx, req.Email, req.OTP, domain.VerificationPasswordReset)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.Update(ctx, u.UserID, map[string]interface{}{"password_hash": string(hash)})
}

// issueOTP stores a fresh code for purpose, replacing any previous one, and
// mails it to the user.
func (s *service) issueOTP(ctx context.Context, u *domain.User, purpose, subject string) error {
	otp, err := generateOTP()
	if err != nil {
		return err
	}
	v := &domain.UserVerification{
		UserID:    u.UserID,
		Type:      purpose,
		Code:      otp,
		ExpiresAt: time.Now().Add(s.otpExpiry).Unix(),
	}
	if err := s.verifications.Put(ctx, v); err != nil {
		return err
	}
	if err := s.mailer.SendEmail(u.Email, subject, "Your OTP code is: "+otp); err != nil {
		return fmt.Errorf("send otp email: %w", err)
	}
	return nil
}

// consumeOTP checks code against the stored record and removes it. Every
// mismatch reports the same error so callers cannot enumerate accounts.
func (s *service) consumeOTP(ctx context.Context, email, code, purpose string) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errInvalidOTP
	}
	if err != nil {
		return nil, err
	}
	v, err := s.verifications.Get(ctx, u.UserID, purpose)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errInvalidOTP
	}
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(v.Code), []byte(code)) != 1 || v.ExpiresAt < time.Now().Unix() {
		return nil, errInvalidOTP
	}
	if err := s.verifications.Delete(ctx, u.UserID, purpose); err != nil {
		// A reset code that survives could be replayed to change the password again.
		if purpose == domain.VerificationPasswordReset {
			return nil, fmt.Errorf("consume otp: %w", err)
		}
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", u.UserID).Str("purpose", purpose).
			Msg("failed to delete verification record")
	}
	return u, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
