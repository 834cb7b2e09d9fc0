package domain

// Verification purposes.
const (
	VerificationEmail         = "email"
	VerificationPasswordReset = "password_reset"
)

// UserVerification stores a pending OTP for a user.
// PK: user_id, SK: type (one of the Verification* purposes).
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type UserVerification struct {
	UserID    string `json:"user_id" dynamodbav:"user_id"`
	Type      string `json:"type" dynamodbav:"type"`
	Code      string `json:"code" dynamodbav:"code"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}
