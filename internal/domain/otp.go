package domain

import "time"

// OTPCode is one issued one-time code for an email address.
// PK: otp_id. GSI: email-created_at-index (email, created_at).
//
// At most one record per email has IsUsed=false at any instant: issuing a new
// code marks every previous active record used. IsUsed is terminal — it is
// set on consumption, on lazy expiry, and on attempt exhaustion, and never
// reverts. ExpiresAtTTL duplicates ExpiresAt as Unix seconds for the DynamoDB
// TTL attribute so terminal records age out of storage.
type OTPCode struct {
	OTPID        string    `json:"id" dynamodbav:"otp_id"`
	Email        string    `json:"email" dynamodbav:"email"`
	CodeHash     string    `json:"-" dynamodbav:"code_hash"`
	Attempts     int       `json:"attempts" dynamodbav:"attempts"`
	MaxAttempts  int       `json:"max_attempts" dynamodbav:"max_attempts"`
	IsUsed       bool      `json:"is_used" dynamodbav:"is_used"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt    time.Time `json:"expires_at" dynamodbav:"expires_at_time"`
	ExpiresAtTTL int64     `json:"-" dynamodbav:"expires_at"`
}

// Expired reports whether the record's TTL has passed at the given instant.
func (c *OTPCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Exhausted reports whether the failed-attempt cap has been reached.
func (c *OTPCode) Exhausted() bool {
	return c.Attempts >= c.MaxAttempts
}
