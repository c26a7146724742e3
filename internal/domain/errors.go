package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// OTP verification outcomes. A record that reaches any terminal outcome
// (expired, attempts exceeded, consumed) can never succeed again.
var (
	ErrNoActiveCode     = errors.New("no active code for this email")
	ErrCodeExpired      = errors.New("code expired")
	ErrAttemptsExceeded = errors.New("maximum verification attempts exceeded")
	ErrInvalidCode      = errors.New("invalid code")
)

// Token verification outcomes.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// ErrDelivery marks failures of the email delivery collaborator. The OTP
// record is already persisted when this is returned; the caller may simply
// re-request a code.
var ErrDelivery = errors.New("delivery failed")
