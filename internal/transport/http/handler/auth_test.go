package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/astro-auth-api/internal/application/auth"
	"github.com/astro-auth-api/internal/config"
	"github.com/astro-auth-api/internal/domain"
	jwtinfra "github.com/astro-auth-api/internal/infrastructure/jwt"
	"github.com/astro-auth-api/internal/pkg/clock"
	"github.com/astro-auth-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) SendOTP(ctx context.Context, email string) (int, error) {
	args := m.Called(ctx, email)
	return args.Int(0), args.Error(1)
}

func (m *mockAuthSvc) VerifyOTP(ctx context.Context, email, otp string) (*auth.TokenResult, error) {
	args := m.Called(ctx, email, otp)
	if r, _ := args.Get(0).(*auth.TokenResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockUserSvc struct{ mock.Mock }

func (m *mockUserSvc) GetOrCreate(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) MarkVerified(ctx context.Context, u *domain.User) (*domain.User, error) {
	args := m.Called(ctx, u)
	if out, _ := args.Get(0).(*domain.User); out != nil {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) RegisterProfile(ctx context.Context, userID string, req domain.RegisterProfileRequest) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID, req)
	if p, _ := args.Get(0).(*domain.UserProfile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID)
	if p, _ := args.Get(0).(*domain.UserProfile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID, req)
	if p, _ := args.Get(0).(*domain.UserProfile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) HasProfile(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// --- helpers ---

func postJSON(t *testing.T, h http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func withClaims(req *http.Request, userID, email string) *http.Request {
	claims := &jwtinfra.Claims{Email: email}
	claims.Subject = userID
	ctx := context.WithValue(req.Context(), middleware.ClaimsKey, claims)
	return req.WithContext(ctx)
}

// --- SendOTP ---

func TestSendOTP_OK(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("SendOTP", mock.Anything, "a@b.com").Return(10, nil)
	h := NewAuthHandler(svc, nil)

	rr := postJSON(t, h.SendOTP, "/v1/auth/send-otp", auth.SendOTPRequest{Email: "a@b.com"})

	assert.Equal(t, http.StatusOK, rr.Code)
	var env SendOTPEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "a@b.com", env.Email)
	assert.Equal(t, 10, env.ExpiresInMinutes)
	svc.AssertExpectations(t)
}

func TestSendOTP_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&mockAuthSvc{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/send-otp", bytes.NewBufferString("{"))
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.SendOTP).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSendOTP_InvalidEmail(t *testing.T) {
	h := NewAuthHandler(&mockAuthSvc{}, nil)

	rr := postJSON(t, h.SendOTP, "/v1/auth/send-otp", auth.SendOTPRequest{Email: "not-an-email"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSendOTP_DeliveryFailure(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("SendOTP", mock.Anything, "a@b.com").Return(0, domain.ErrDelivery)
	h := NewAuthHandler(svc, nil)

	rr := postJSON(t, h.SendOTP, "/v1/auth/send-otp", auth.SendOTPRequest{Email: "a@b.com"})

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

// --- VerifyOTP ---

func TestVerifyOTP_OK(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("VerifyOTP", mock.Anything, "a@b.com", "482913").Return(&auth.TokenResult{
		AccessToken: "signed.jwt",
		TokenType:   "bearer",
		ExpiresIn:   43200,
		User:        &domain.User{UserID: "u1", Email: "a@b.com", EmailVerified: true},
		HasProfile:  false,
	}, nil)
	h := NewAuthHandler(svc, nil)

	rr := postJSON(t, h.VerifyOTP, "/v1/auth/verify-otp", auth.VerifyOTPRequest{Email: "a@b.com", OTP: "482913"})

	assert.Equal(t, http.StatusOK, rr.Code)
	var res auth.TokenResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "signed.jwt", res.AccessToken)
	assert.Equal(t, "bearer", res.TokenType)
	assert.Equal(t, "u1", res.User.UserID)
}

func TestVerifyOTP_MissingOTP(t *testing.T) {
	h := NewAuthHandler(&mockAuthSvc{}, nil)

	rr := postJSON(t, h.VerifyOTP, "/v1/auth/verify-otp", auth.VerifyOTPRequest{Email: "a@b.com"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("VerifyOTP", mock.Anything, "a@b.com", "000000").Return(nil, domain.ErrInvalidCode)
	h := NewAuthHandler(svc, nil)

	rr := postJSON(t, h.VerifyOTP, "/v1/auth/verify-otp", auth.VerifyOTPRequest{Email: "a@b.com", OTP: "000000"})

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestVerifyOTP_Exhausted(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("VerifyOTP", mock.Anything, "a@b.com", "482913").Return(nil, domain.ErrAttemptsExceeded)
	h := NewAuthHandler(svc, nil)

	rr := postJSON(t, h.VerifyOTP, "/v1/auth/verify-otp", auth.VerifyOTPRequest{Email: "a@b.com", OTP: "482913"})

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// --- Me / VerifyToken ---

func TestMe_ReturnsUser(t *testing.T) {
	users := &mockUserSvc{}
	users.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "a@b.com", EmailVerified: true}, nil)
	h := NewAuthHandler(&mockAuthSvc{}, users)

	req := withClaims(httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil), "u1", "a@b.com")
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.Me).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var u domain.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &u))
	assert.Equal(t, "u1", u.UserID)
}

func TestMe_NoClaims(t *testing.T) {
	h := NewAuthHandler(&mockAuthSvc{}, &mockUserSvc{})

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.Me).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestVerifyToken_EchoesIdentity(t *testing.T) {
	h := NewAuthHandler(&mockAuthSvc{}, &mockUserSvc{})

	req := withClaims(httptest.NewRequest(http.MethodGet, "/v1/auth/verify-token", nil), "u1", "a@b.com")
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.VerifyToken).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var env TokenVerifyEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "u1", env.UserID)
	assert.Equal(t, "a@b.com", env.Email)
}

// sanity check that the claims helper round-trips through a real provider.
func TestClaimsHelper_MatchesProviderClaims(t *testing.T) {
	p, err := jwtinfra.NewProvider(&config.Config{
		JWTSecretKey: "handler-test-secret",
		JWTAlgorithm: "HS512",
		JWTExpiry:    time.Hour,
	}, clock.System{})
	require.NoError(t, err)

	signed, err := p.Sign("u1", "a@b.com")
	require.NoError(t, err)
	claims, err := p.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "a@b.com", claims.Email)
}
