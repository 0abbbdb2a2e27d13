package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/streamgate/gate-server-go/internal/config"
	"github.com/streamgate/gate-server-go/internal/database"
	"github.com/streamgate/gate-server-go/internal/handler"
	"github.com/streamgate/gate-server-go/internal/jobs"
	"github.com/streamgate/gate-server-go/internal/mail"
	"github.com/streamgate/gate-server-go/internal/middleware"
	"github.com/streamgate/gate-server-go/internal/payment/maib"
	"github.com/streamgate/gate-server-go/internal/redis"
	"github.com/streamgate/gate-server-go/internal/repository"
	"github.com/streamgate/gate-server-go/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setupLogging(cfg)

	if err := cfg.Validate(cfg.IsProduction()); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(pingCtx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("database ping failed")
	}
	cancel()

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	// Repositories
	userRepo := repository.NewUserRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	linkRepo := repository.NewMagicLinkRepository(db.DB)
	streamRepo := repository.NewStreamRepository(db.DB)
	paymentRepo := repository.NewPaymentRepository(db.DB)
	adminSessionRepo := repository.NewAdminSessionRepository(db.DB)

	// Services
	rateLimiter := service.NewRateLimiter(redisClient.Client)
	gateway := maib.NewClient(cfg.MaibBaseURL, cfg.MaibProjectID, cfg.MaibProjectSecret)
	mailer := mail.NewLogMailer()

	sessionService := service.NewSessionService(sessionRepo)
	authService := service.NewAuthService(
		userRepo, linkRepo, sessionService, sessionRepo,
		rateLimiter, mailer,
		cfg.UserSessionSecret, cfg.PublicBaseURL, cfg.MagicLinkTTL(),
	)
	paymentService := service.NewPaymentService(
		paymentRepo, streamRepo, gateway,
		cfg.PublicBaseURL, cfg.EncryptionKey,
	)
	streamService := service.NewStreamService(streamRepo, paymentService, sessionService)
	adminService := service.NewAdminService(
		adminSessionRepo, userRepo, paymentRepo, streamRepo, sessionRepo,
		paymentService,
		cfg.AdminPasswordHash, cfg.AdminSessionSecret,
	)

	// Middleware
	authMW := middleware.NewAuthMiddleware(authService)
	adminMW := middleware.NewAdminSessionMiddleware(adminService, cfg.AdminPasswordHash != "")
	apiLimitMW := middleware.NewRedisRateLimitMiddleware(rateLimiter, config.DefaultRateLimitPerMin)
	loginLimiter := middleware.NewLoginRateLimiter()
	csrfMW := middleware.NewCSRFMiddleware(cfg.IsProduction())
	securityMW := middleware.NewSecurityHeadersMiddleware(cfg.IsProduction())
	bodyLimitMW := middleware.NewBodyLimitMiddleware(middleware.DefaultMaxBodySize)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, authMW, loginLimiter, cfg.IsProduction())
	sessionHandler := handler.NewSessionHandler(sessionService)
	streamHandler := handler.NewStreamHandler(streamService, sessionService)
	paymentHandler := handler.NewPaymentHandler(paymentService, authMW, cfg.MaibSignatureKey)
	adminHandler := handler.NewAdminHandler(adminService, adminMW, loginLimiter, cfg.IsProduction())

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(securityMW.Handler)
	r.Use(bodyLimitMW.Handler)

	r.Get("/health", healthHandler(db, redisClient))

	r.Route("/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes())

		// The webhook sits outside the CSRF and cookie-auth surface.
		r.Mount("/payments", paymentHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(csrfMW.Handler)
			r.Use(authMW.Handler)
			r.Use(apiLimitMW.Handler)
			r.Mount("/sessions", sessionHandler.Routes())
			r.Mount("/streams", streamHandler.Routes())
		})

		r.Mount("/admin", adminHandler.Routes())
	})

	// Background cleanup
	jobCtx, jobCancel := context.WithCancel(context.Background())
	cleanup := jobs.NewCleanupJob(
		sessionRepo, linkRepo, adminSessionRepo, paymentRepo,
		config.CleanupJobInterval, cfg.SessionIdleTimeout(), cfg.PaymentPendingTTL(),
	)
	go cleanup.Start(jobCtx)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerRequestTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("env", cfg.Env).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	jobCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func healthHandler(db *database.DB, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), config.DBPingTimeout)
		defer cancel()

		status := http.StatusOK
		checks := map[string]string{"database": "ok", "redis": "ok"}

		if err := db.Ping(ctx); err != nil {
			checks["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unreachable"
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			w.Write([]byte(`{"status":"ok"}`))
			return
		}
		w.Write([]byte(`{"status":"degraded","database":"` + checks["database"] + `","redis":"` + checks["redis"] + `"}`))
	}
}
