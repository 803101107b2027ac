package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RamiroHerreraX/lacteos-auth/internal/auth"
	"github.com/RamiroHerreraX/lacteos-auth/internal/background"
	"github.com/RamiroHerreraX/lacteos-auth/internal/config"
	"github.com/RamiroHerreraX/lacteos-auth/internal/database"
	"github.com/RamiroHerreraX/lacteos-auth/internal/handlers"
	middlewareCustom "github.com/RamiroHerreraX/lacteos-auth/internal/middleware"
	"github.com/RamiroHerreraX/lacteos-auth/internal/models"
	"github.com/RamiroHerreraX/lacteos-auth/internal/offline"
	"github.com/RamiroHerreraX/lacteos-auth/internal/repositories"
	"github.com/RamiroHerreraX/lacteos-auth/internal/routes"
	"github.com/RamiroHerreraX/lacteos-auth/internal/services"
	pkgauth "github.com/RamiroHerreraX/lacteos-auth/pkg/auth"
	pkglogger "github.com/RamiroHerreraX/lacteos-auth/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Offline fallback stores
	identityCache, err := offline.NewIdentityCache(cfg.Offline.Dir, logger)
	if err != nil {
		logger.Error("failed to open offline identity cache", slog.Any("error", err))
		os.Exit(1)
	}
	defer identityCache.Close()

	tokenMirror, err := offline.NewTokenStore(cfg.Offline.Dir, logger)
	if err != nil {
		logger.Error("failed to open offline token store", slog.Any("error", err))
		os.Exit(1)
	}
	defer tokenMirror.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	resetTokenRepo := repositories.NewResetTokenRepository(db)

	// Token manager and in-memory auth state
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTokenExpiry)
	otpGenerator := auth.NewOTPGenerator(cfg.Auth.OTPStep)
	activityTracker := auth.NewActivityTracker(cfg.Auth.InactivityLimit)

	auditLogger := pkglogger.NewAuditLogger(logger)

	lockoutService := services.NewLockoutService(cfg.Auth, logger)
	challengeStore := services.NewChallengeStore()

	// AWS SES mailer
	mailer, err := services.NewAWSSESMailer(cfg.Email, logger)
	if err != nil {
		logger.Error("failed to initialize mailer", slog.Any("error", err))
		os.Exit(1)
	}

	geoResolver := services.NewIPInfoResolver(cfg.Geo, logger)

	// Initialize services
	authService := services.NewAuthService(services.AuthServiceParams{
		Users:       userRepo,
		Sessions:    sessionRepo,
		Identities:  identityCache,
		Lockout:     lockoutService,
		Challenges:  challengeStore,
		Codes:       otpGenerator,
		Tokens:      tokenManager,
		Geo:         geoResolver,
		Mailer:      mailer,
		Activity:    activityTracker,
		OTPExpiry:   cfg.Auth.OTPExpiry,
		SessionTTL:  cfg.Auth.SessionDuration,
		Logger:      logger,
		AuditLogger: auditLogger,
	})

	resetService := services.NewResetService(services.ResetServiceParams{
		Users:       userRepo,
		Tokens:      resetTokenRepo,
		Mirror:      tokenMirror,
		Identities:  identityCache,
		Codes:       otpGenerator,
		Mailer:      mailer,
		ResetURL:    cfg.Email.ResetURLBase,
		StdExpiry:   cfg.Auth.ResetTokenExpiry,
		AdminExpiry: cfg.Auth.AdminResetExpiry,
		Logger:      logger,
		AuditLogger: auditLogger,
	})

	sessionService := services.NewSessionService(sessionRepo, cfg.Auth.SessionDuration, logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	resetHandler := handlers.NewResetHandler(resetService)
	sessionHandler := handlers.NewSessionHandler(sessionService)

	// Background sweeper for expired sessions, tokens, and in-memory state
	sweeper := background.NewSweeper(
		sessionRepo,
		resetTokenRepo,
		[]background.MemorySweepTarget{
			lockoutService,
			challengeStore,
			mirrorSweep{tokenMirror},
		},
		logger,
		cfg.Auth.SweepInterval,
	)

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(ctx, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	// Setup CORS middleware
	corsConfig := middlewareCustom.NewCORSConfig(cfg.Server.AllowedOrigins)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, resetHandler, sessionHandler, tokenManager, activityTracker, sessionService)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start sweeper
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go sweeper.Start(sweepCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepCancel()
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// mirrorSweep adapts the offline token store's time-parameterized sweep to
// the background sweeper.
type mirrorSweep struct {
	store *offline.TokenStore
}

func (m mirrorSweep) Sweep() int {
	return m.store.Sweep(time.Now())
}

// ensureAdminUser creates the first admin user if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	_, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	// Bootstrap only into an empty store; an existing population means the
	// admin was provisioned some other way.
	count, err := userRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		logger.Info("users already present, skipping admin bootstrap")
		return nil
	}

	if err := pkgauth.ValidatePassword(adminPassword); err != nil {
		return fmt.Errorf("ADMIN_PASSWORD rejected by password policy: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Name:         "Admin",
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Role:         models.RoleAdmin,
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
