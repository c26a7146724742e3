package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/astro-auth-api/internal/config"
	"github.com/astro-auth-api/internal/domain"
	"github.com/astro-auth-api/internal/pkg/clock"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the JWT payload fields. Subject is the user ID.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HMAC JWTs. The secret is read once at
// construction and never mutated, so Provider is safe for concurrent use.
type Provider struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	expiry time.Duration
	clk    clock.Clock
}

func NewProvider(cfg *config.Config, clk clock.Clock) (*Provider, error) {
	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY is not set")
	}
	var method *jwt.SigningMethodHMAC
	switch cfg.JWTAlgorithm {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported JWT algorithm %q", cfg.JWTAlgorithm)
	}
	return &Provider{
		secret: []byte(cfg.JWTSecretKey),
		method: method,
		expiry: cfg.JWTExpiry,
		clk:    clk,
	}, nil
}

// Expiry returns the configured token lifetime.
func (p *Provider) Expiry() time.Duration { return p.expiry }

func (p *Provider) Sign(userID, email string) (string, error) {
	now := p.clk.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(p.method, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, algorithm and expiry of a token and returns
// its claims. Expired tokens are reported as domain.ErrTokenExpired; every
// other failure (bad signature, wrong algorithm, garbage input) maps to
// domain.ErrTokenInvalid.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != p.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.clk.Now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%v: %w", err, domain.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%v: %w", err, domain.ErrTokenInvalid)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims: %w", domain.ErrTokenInvalid)
	}
	return claims, nil
}
