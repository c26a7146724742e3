package http

import (
	"net/http"

	"github.com/astro-auth-api/internal/application/auth"
	"github.com/astro-auth-api/internal/application/otp"
	"github.com/astro-auth-api/internal/application/user"
	"github.com/astro-auth-api/internal/config"
	"github.com/astro-auth-api/internal/pkg/code"
	"github.com/astro-auth-api/internal/transport/http/handler"
	appmiddleware "github.com/astro-auth-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10 — applied to the public OTP endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	otpSvc := otp.NewService(otp.ServiceDeps{
		OTPRepo:     deps.OTPRepo,
		Hasher:      code.NewBcrypt(bcrypt.DefaultCost),
		Clock:       deps.Clock,
		Length:      cfg.OTPLength,
		Expiry:      cfg.OTPExpiry,
		MaxAttempts: cfg.OTPMaxAttempts,
	})
	userSvc := user.NewService(user.ServiceDeps{
		UserRepo:    deps.UserRepo,
		ProfileRepo: deps.ProfileRepo,
		Clock:       deps.Clock,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		OTPService:  otpSvc,
		UserService: userSvc,
		Mailer:      deps.Mailer,
		JWTProvider: deps.JWTProvider,
		OTPExpiry:   cfg.OTPExpiry,
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc, userSvc)
	profileH := handler.NewProfileHandler(userSvc)

	authMw := appmiddleware.Auth(deps.JWTProvider)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/auth/send-otp", authH.SendOTP)
		r.With(sensitiveRL.Limit).Post("/auth/verify-otp", authH.VerifyOTP)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/auth/me", authH.Me)
			r.Post("/auth/logout", authH.Logout)
			r.Get("/auth/verify-token", authH.VerifyToken)
			r.Post("/auth/register-details", profileH.Register)
			r.Get("/auth/user-details", profileH.Get)
			r.Put("/auth/user-details", profileH.Update)
		})
	})

	return r
}
