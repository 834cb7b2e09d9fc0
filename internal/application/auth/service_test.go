package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/go-api-community/internal/domain"
)

// --- mocks ---

type mockVerificationStore struct{ mock.Mock }

func (m *mockVerificationStore) Put(ctx context.Context, v *domain.UserVerification) error {
	return m.Called(ctx, v).Error(0)
}
func (m *mockVerificationStore) Get(ctx context.Context, userID, purpose string) (*domain.UserVerification, error) {
	args := m.Called(ctx, userID, purpose)
	if v, _ := args.Get(0).(*domain.UserVerification); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockVerificationStore) Delete(ctx context.Context, userID, purpose string) error {
	return m.Called(ctx, userID, purpose).Error(0)
}

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

type mockJWTSigner struct{ mock.Mock }

func (m *mockJWTSigner) Sign(userID, username string) (string, error) {
	args := m.Called(userID, username)
	return args.String(0), args.Error(1)
}

// --- builder ---

func newService(vs *mockVerificationStore, us *mockUserStore, ml *mockMailer, jwt *mockJWTSigner) Service {
	return NewService(ServiceDeps{
		VerificationRepo: vs,
		UserRepo:         us,
		Mailer:           ml,
		JWTProvider:      jwt,
		OTPExpiry:        10 * time.Minute,
	})
}

func hashOf(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

// --- Register ---

func TestRegister_DuplicateEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1"}, nil)

	svc := newService(nil, us, nil, nil)
	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		Name: "Ann", Email: " A@B.com ", Password: "password1",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	us.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRegister_InvalidInterests_NothingPersisted(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)

	svc := newService(nil, us, nil, nil)
	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		Name: "Ann", Email: "a@b.com", Password: "password1",
		Interests: []byte(`{"go":true}`),
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	us.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRegister_Professional_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	vs := &mockVerificationStore{}
	ml := &mockMailer{}

	us.On("GetByEmail", mock.Anything, "pro@b.com").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	vs.On("Put", mock.Anything, mock.MatchedBy(func(v *domain.UserVerification) bool {
		return v.Type == domain.VerificationEmail && len(v.Code) == 6 && v.ExpiresAt > time.Now().Unix()
	})).Return(nil)
	ml.On("SendEmail", "pro@b.com", mock.Anything, mock.Anything).Return(nil)

	svc := newService(vs, us, ml, nil)
	u, err := svc.Register(context.Background(), domain.RegisterRequest{
		Name:       "Pat",
		Email:      "Pro@b.com",
		Password:   "password1",
		Type:       domain.UserTypeProfessional,
		Interests:  []byte(`"[\"Go\",\"rust\"]"`),
		Expertise:  []byte(`["k8s"]`),
		Experience: "5 years",
	})

	require.NoError(t, err)
	assert.Equal(t, "pro@b.com", u.Email)
	assert.Equal(t, domain.VerificationPending, u.VerificationStatus)
	assert.Equal(t, []string{"go", "rust"}, u.Interests)
	require.NotNil(t, u.Professional)
	assert.Equal(t, []string{"k8s"}, u.Professional.Expertise)
	assert.NotEqual(t, "password1", u.PasswordHash)
	assert.NotEmpty(t, u.UserID)
	vs.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestRegister_MailerFailure(t *testing.T) {
	us := &mockUserStore{}
	vs := &mockVerificationStore{}
	ml := &mockMailer{}

	us.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.Anything).Return(nil)
	vs.On("Put", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	svc := newService(vs, us, ml, nil)
	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		Name: "Ann", Email: "a@b.com", Password: "password1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send otp email")
}

// --- VerifyOTP ---

func TestVerifyOTP_WrongCode(t *testing.T) {
	us := &mockUserStore{}
	vs := &mockVerificationStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1"}, nil)
	vs.On("Get", mock.Anything, "u1", domain.VerificationEmail).Return(&domain.UserVerification{
		Code: "123456", ExpiresAt: time.Now().Add(time.Minute).Unix(),
	}, nil)

	svc := newService(vs, us, nil, nil)
	err := svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "a@b.com", OTP: "000000"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyOTP_Expired(t *testing.T) {
	us := &mockUserStore{}
	vs := &mockVerificationStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1"}, nil)
	vs.On("Get", mock.Anything, "u1", domain.VerificationEmail).Return(&domain.UserVerification{
		Code: "123456", ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}, nil)

	svc := newService(vs, us, nil, nil)
	err := svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "a@b.com", OTP: "123456"})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestVerifyOTP_UnknownEmailLooksLikeBadCode(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "x@b.com").Return(nil, domain.ErrNotFound)

	svc := newService(nil, us, nil, nil)
	err := svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "x@b.com", OTP: "123456"})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}

func TestVerifyOTP_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	vs := &mockVerificationStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1"}, nil)
	vs.On("Get", mock.Anything, "u1", domain.VerificationEmail).Return(&domain.UserVerification{
		Code: "123456", ExpiresAt: time.Now().Add(time.Minute).Unix(),
	}, nil)
	vs.On("Delete", mock.Anything, "u1", domain.VerificationEmail).Return(errors.New("transient"))
	us.On("Update", mock.Anything, "u1", map[string]interface{}{
		"verification_status": domain.VerificationVerified,
	}).Return(nil)

	svc := newService(vs, us, nil, nil)
	err := svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "a@b.com", OTP: "123456"})

	require.NoError(t, err)
	us.AssertExpectations(t)
	vs.AssertExpectations(t)
}

// --- Login ---

func TestLogin_PendingUserRejected(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{
		UserID: "u1", PasswordHash: hashOf(t, "password1"), VerificationStatus: domain.VerificationPending,
	}, nil)

	svc := newService(nil, us, nil, nil)
	_, err := svc.Login(context.Background(), LoginRequest{Email: "a@b.com", Password: "password1"})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_WrongPassword(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{
		UserID: "u1", PasswordHash: hashOf(t, "password1"), VerificationStatus: domain.VerificationVerified,
	}, nil)

	svc := newService(nil, us, nil, nil)
	_, err := svc.Login(context.Background(), LoginRequest{Email: "a@b.com", Password: "nope"})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_UnknownEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)

	svc := newService(nil, us, nil, nil)
	_, err := svc.Login(context.Background(), LoginRequest{Email: "a@b.com", Password: "x"})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	jwt := &mockJWTSigner{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{
		UserID: "u1", Name: "Ann", PasswordHash: hashOf(t, "password1"), VerificationStatus: domain.VerificationVerified,
	}, nil)
	jwt.On("Sign", "u1", "Ann").Return("tok", nil)

	svc := newService(nil, us, nil, jwt)
	res, err := svc.Login(context.Background(), LoginRequest{Email: "A@b.com", Password: "password1"})

	require.NoError(t, err)
	assert.Equal(t, "tok", res.Token)
	assert.Equal(t, "u1", res.User.UserID)
}

// --- password reset ---

func TestRequestPasswordReset_NotFound(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "x@b.com").Return(nil, domain.ErrNotFound)

	svc := newService(nil, us, nil, nil)
	err := svc.RequestPasswordReset(context.Background(), PasswordResetRequest{Email: "x@b.com"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRequestPasswordReset_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	vs := &mockVerificationStore{}
	ml := &mockMailer{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1", Email: "a@b.com"}, nil)
	vs.On("Put", mock.Anything, mock.MatchedBy(func(v *domain.UserVerification) bool {
		return v.UserID == "u1" && v.Type == domain.VerificationPasswordReset
	})).Return(nil)
	ml.On("SendEmail", "a@b.com", mock.Anything, mock.Anything).Return(nil)

	svc := newService(vs, us, ml, nil)
	require.NoError(t, svc.RequestPasswordReset(context.Background(), PasswordResetRequest{Email: "a@b.com"}))
	vs.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestResetPassword_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	vs := &mockVerificationStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1"}, nil)
	vs.On("Get", mock.Anything, "u1", domain.VerificationPasswordReset).Return(&domain.UserVerification{
		Code: "654321", ExpiresAt: time.Now().Add(time.Minute).Unix(),
	}, nil)
	vs.On("Delete", mock.Anything, "u1", domain.VerificationPasswordReset).Return(nil)

	var stored string
	us.On("Update", mock.Anything, "u1", mock.Anything).Run(func(args mock.Arguments) {
		stored, _ = args.Get(2).(map[string]interface{})["password_hash"].(string)
	}).Return(nil)

	svc := newService(vs, us, nil, nil)
	err := svc.ResetPassword(context.Background(), ResetPasswordRequest{
		Email: "a@b.com", OTP: "654321", NewPassword: "newpassword",
	})

	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored), []byte("newpassword")))
}

func TestResetPassword_CodeNotConsumed_PasswordUnchanged(t *testing.T) {
	us := &mockUserStore{}
	vs := &mockVerificationStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1"}, nil)
	vs.On("Get", mock.Anything, "u1", domain.VerificationPasswordReset).Return(&domain.UserVerification{
		Code: "654321", ExpiresAt: time.Now().Add(time.Minute).Unix(),
	}, nil)
	vs.On("Delete", mock.Anything, "u1", domain.VerificationPasswordReset).Return(errors.New("throttled"))

	svc := newService(vs, us, nil, nil)
	err := svc.ResetPassword(context.Background(), ResetPasswordRequest{
		Email: "a@b.com", OTP: "654321", NewPassword: "newpassword",
	})

	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrBadRequest))
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestResetPassword_EmailOTPCannotResetPassword(t *testing.T) {
	us := &mockUserStore{}
	vs := &mockVerificationStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1"}, nil)
	vs.On("Get", mock.Anything, "u1", domain.VerificationPasswordReset).Return(nil, domain.ErrNotFound)

	svc := newService(vs, us, nil, nil)
	err := svc.ResetPassword(context.Background(), ResetPasswordRequest{
		Email: "a@b.com", OTP: "123456", NewPassword: "newpassword",
	})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestGenerateOTP_SixDigits(t *testing.T) {
	for i := 0; i < 50; i++ {
		otp, err := generateOTP()
		require.NoError(t, err)
		assert.Len(t, otp, 6)
	}
}
