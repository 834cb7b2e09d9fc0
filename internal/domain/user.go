package domain

import (
	"time"

	json "github.com/goccy/go-json"
)

// Account types.
const (
	UserTypeRegular      = "Regular"
	UserTypeProfessional = "Professional"
)

// Verification states.
const (
	VerificationPending  = "Pending"
	VerificationVerified = "Verified"
)

type User struct {
	UserID             string        `json:"id" dynamodbav:"user_id"`
	Name               string        `json:"name" dynamodbav:"name"`
	Email              string        `json:"email" dynamodbav:"email"`
	PasswordHash       string        `json:"-" dynamodbav:"password_hash"`
	Type               string        `json:"type" dynamodbav:"type"`
	VerificationStatus string        `json:"verificationStatus" dynamodbav:"verification_status"`
	Interests          []string      `json:"interests" dynamodbav:"interests"`
	Professional       *Professional `json:"professional,omitempty" dynamodbav:"professional,omitempty"`
	CreatedAt          time.Time     `json:"created" dynamodbav:"created_at"`
	UpdatedAt          time.Time     `json:"updated" dynamodbav:"updated_at"`
}

// Verified reports whether the user has confirmed their e-mail address.
func (u *User) Verified() bool { return u.VerificationStatus == VerificationVerified }

// Professional is the sub-profile owned by a user of type Professional.
// It is stored inline on the user item.
type Professional struct {
	Expertise    []string `json:"expertise" dynamodbav:"expertise"`
	Experience   string   `json:"experience" dynamodbav:"experience"`
	Availability *string  `json:"availability" dynamodbav:"availability"`
}

// RegisterRequest is the registration payload. Interests and Expertise accept
// either a JSON array or a string holding a JSON array.
type RegisterRequest struct {
	Name         string          `json:"name" validate:"required,max=100"`
	Email        string          `json:"email" validate:"required,email"`
	Password     string          `json:"password" validate:"required,min=8,max=72"`
	Type         string          `json:"type" validate:"omitempty,oneof=Regular Professional"`
	Interests    json.RawMessage `json:"interests"`
	Expertise    json.RawMessage `json:"expertise"`
	Experience   string          `json:"experience"`
	Availability *string         `json:"availability"`
}

type UpdateInterestsRequest struct {
	Interests json.RawMessage `json:"interests" validate:"required"`
}
