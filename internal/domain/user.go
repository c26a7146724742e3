package domain

import (
	"strings"
	"time"
)

// User is created on the first successful OTP verification for an email.
// There is no password: proving control of the inbox is the only credential.
type User struct {
	UserID        string    `json:"id" dynamodbav:"user_id"`
	Email         string    `json:"email" dynamodbav:"email"`
	EmailVerified bool      `json:"is_email_verified" dynamodbav:"email_verified"`
	CreatedAt     time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// NormalizeEmail lowercases and trims an email address. Applied once at the
// service boundary; every lookup and comparison below it uses the normalized
// form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
