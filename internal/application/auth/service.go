package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/astro-auth-api/internal/domain"
)

// SendOTPRequest asks for a sign-in code to be emailed.
type SendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyOTPRequest submits a received code for the email it was sent to.
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

// TokenResult is the outcome of a successful verification.
type TokenResult struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"` // seconds
	User        *domain.User `json:"user"`
	HasProfile  bool         `json:"has_profile"`
}

type Service interface {
	// SendOTP issues a fresh code for the email and hands it to the mailer.
	// Returns the code TTL in minutes for caller-facing messaging.
	SendOTP(ctx context.Context, email string) (expiresInMinutes int, err error)
	// VerifyOTP consumes the code, resolves (or creates) the user, marks the
	// email verified and mints a bearer token.
	VerifyOTP(ctx context.Context, email, otp string) (*TokenResult, error)
}

type otpService interface {
	Issue(ctx context.Context, email string) (plain string, expiresAt time.Time, err error)
	Verify(ctx context.Context, email, submitted string) error
}

type userService interface {
	GetOrCreate(ctx context.Context, email string) (*domain.User, error)
	MarkVerified(ctx context.Context, u *domain.User) (*domain.User, error)
	HasProfile(ctx context.Context, userID string) (bool, error)
}

type otpMailer interface {
	SendOTPEmail(to, otp string, expiresInMinutes int) error
}

type jwtSigner interface {
	Sign(userID, email string) (string, error)
	Expiry() time.Duration
}

type ServiceDeps struct {
	OTPService  otpService
	UserService userService
	Mailer      otpMailer
	JWTProvider jwtSigner
	OTPExpiry   time.Duration
}

type service struct {
	otp       otpService
	users     userService
	mailer    otpMailer
	jwt       jwtSigner
	otpExpiry time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		otp:       deps.OTPService,
		users:     deps.UserService,
		mailer:    deps.Mailer,
		jwt:       deps.JWTProvider,
		otpExpiry: deps.OTPExpiry,
	}
}

func (s *service) SendOTP(ctx context.Context, email string) (int, error) {
	email = domain.NormalizeEmail(email)

	plain, _, err := s.otp.Issue(ctx, email)
	if err != nil {
		return 0, err
	}

	ttlMinutes := int(s.otpExpiry.Minutes())
	if err := s.mailer.SendOTPEmail(email, plain, ttlMinutes); err != nil {
		// The record stays issued; the caller simply re-requests a code.
		slog.Error("otp email delivery failed", "email", email, "err", err)
		return 0, fmt.Errorf("send otp email: %w", domain.ErrDelivery)
	}
	return ttlMinutes, nil
}

func (s *service) VerifyOTP(ctx context.Context, email, otp string) (*TokenResult, error) {
	email = domain.NormalizeEmail(email)

	if err := s.otp.Verify(ctx, email, otp); err != nil {
		return nil, err
	}

	u, err := s.users.GetOrCreate(ctx, email)
	if err != nil {
		return nil, err
	}
	u, err = s.users.MarkVerified(ctx, u)
	if err != nil {
		return nil, err
	}

	hasProfile, err := s.users.HasProfile(ctx, u.UserID)
	if err != nil {
		return nil, err
	}

	token, err := s.jwt.Sign(u.UserID, u.Email)
	if err != nil {
		return nil, err
	}

	slog.Info("user authenticated", "user_id", u.UserID, "has_profile", hasProfile)
	return &TokenResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.jwt.Expiry().Seconds()),
		User:        u,
		HasProfile:  hasProfile,
	}, nil
}
