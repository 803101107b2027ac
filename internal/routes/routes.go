package routes

import (
	"github.com/RamiroHerreraX/lacteos-auth/internal/auth"
	"github.com/RamiroHerreraX/lacteos-auth/internal/handlers"
	"github.com/RamiroHerreraX/lacteos-auth/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	resetHandler *handlers.ResetHandler,
	sessionHandler *handlers.SessionHandler,
	tokenManager *auth.TokenManager,
	activity auth.ActivityTracker,
	sessions auth.SessionToucher,
) {
	// Rate limiting config for credential endpoints
	rateLimitConfig := middleware.DefaultAuthRateLimit()
	limited := middleware.RateLimitByIP(rateLimitConfig)

	// Public routes - no authentication required
	router.With(limited).Post("/auth/login", authHandler.Login)
	router.With(limited).Post("/auth/verify-otp", authHandler.VerifyOTP)
	router.With(limited).Post("/auth/forgot-password", resetHandler.RequestReset)
	router.With(limited).Post("/auth/verify-reset-otp", resetHandler.VerifyResetOTP)
	router.With(limited).Post("/auth/reset-password", resetHandler.ResetPassword)
	router.With(limited).Post("/auth/recover-username", resetHandler.RecoverUsername)

	// Protected routes - authentication plus activity freshness
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenManager))
		r.Use(auth.ActivityMiddleware(activity))
		r.Use(auth.SessionRefreshMiddleware(sessions))

		r.Post("/auth/logout", authHandler.Logout)

		// The credential's identity scopes the history; no extra role gate.
		r.Get("/sessions/history", sessionHandler.History)
	})
}
