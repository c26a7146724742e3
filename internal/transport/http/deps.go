package http

import (
	"github.com/astro-auth-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/astro-auth-api/internal/infrastructure/jwt"
	"github.com/astro-auth-api/internal/infrastructure/smtp"
	"github.com/astro-auth-api/internal/pkg/clock"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    *dynamo.UserRepo
	OTPRepo     *dynamo.OTPRepo
	ProfileRepo *dynamo.ProfileRepo
	Mailer      smtp.Mailer
	JWTProvider *jwtinfra.Provider
	Clock       clock.Clock
}
