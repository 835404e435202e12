package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_inbox/internal/cache"
	"github.com/GTDGit/gtd_inbox/internal/config"
	"github.com/GTDGit/gtd_inbox/internal/database"
	"github.com/GTDGit/gtd_inbox/internal/handler"
	"github.com/GTDGit/gtd_inbox/internal/middleware"
	"github.com/GTDGit/gtd_inbox/internal/repository"
	"github.com/GTDGit/gtd_inbox/internal/service"
	"github.com/GTDGit/gtd_inbox/internal/sse"
	"github.com/GTDGit/gtd_inbox/internal/utils"
	"github.com/GTDGit/gtd_inbox/internal/worker"
)

// main is the entrypoint for the GTD Inbox admin control plane.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Str("event_bus", cfg.Events.Bus).Msg("starting gtd inbox admin api")

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := database.Migrate(db.DB, "file://migrations"); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 4. Context for workers and the event relay
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Event bus
	hub := sse.NewHub()
	var bus sse.Publisher = hub
	if cfg.Events.Bus == "redis" {
		bus = sse.NewRedisPublisher(redisClient, cfg.Events.Channel)
		go sse.NewRedisRelay(redisClient, cfg.Events.Channel, hub).Start(ctx)
	}

	// 6. Repositories and stores
	adminRepo := repository.NewAdminUserRepository(db)
	sessionRepo := repository.NewAdminSessionRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	auditStore := cache.NewAuditStore(redisClient)

	// 7. Services
	jwtManager, err := utils.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		log.Error().Err(err).Msg("invalid jwt configuration")
		fmt.Fprintf(os.Stderr, "invalid jwt configuration: %v\n", err)
		os.Exit(1)
	}
	registry := service.NewSessionRegistry(sessionRepo)
	auditSvc := service.NewAuditService(auditStore, bus)
	authSvc := service.NewAdminAuthService(adminRepo, registry, service.NewTOTPEngine(cfg.TOTPIssuer), jwtManager, auditSvc, bus)
	gate := service.NewSessionGate(jwtManager, registry, settingsRepo, auditSvc, bus)
	revocationSvc := service.NewRevocationService(adminRepo, registry, bus)
	settingsSvc := service.NewSettingsService(settingsRepo, auditSvc)

	// 8. Handlers
	handlers := &Handlers{
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"database": db.PingContext,
			"redis":    redisClient.Ping,
		}, hub),
		Auth:     handler.NewAuthHandler(authSvc),
		Session:  handler.NewSessionHandler(registry, revocationSvc, auditSvc),
		Audit:    handler.NewAuditHandler(auditSvc),
		Settings: handler.NewSettingsHandler(settingsSvc),
		SSE:      handler.NewSSEHandler(gate, hub),
		WS:       handler.NewWSHandler(gate, hub, cfg.CORS.AllowedHosts),
	}

	// 9. Middleware
	jwtMw := middleware.NewJWTMiddleware(gate)
	authLimiter := middleware.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
	defer authLimiter.Stop()

	// 10. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedHosts))
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, jwtMw, authLimiter)

	// 11. Start workers
	go worker.NewAuditPruneWorker(auditStore, cfg.Worker.AuditPruneInterval).Start(ctx)

	// 12. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 14. Cancel context to stop workers and the relay
	cancel()

	// 15. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	Session  *handler.SessionHandler
	Audit    *handler.AuditHandler
	Settings *handler.SettingsHandler
	SSE      *handler.SSEHandler
	WS       *handler.WSHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware, authLimiter *middleware.RateLimiter) {
	router.GET("/v1/health", handlers.Health.GetHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admin := router.Group("/v1/admin")

	// Unauthenticated login flow (rate limited per IP)
	auth := admin.Group("/auth")
	auth.Use(authLimiter.Handle())
	{
		auth.POST("/identity", handlers.Auth.Identity)
		auth.POST("/totp/setup", handlers.Auth.SetupTOTP)
		auth.POST("/totp/verify", handlers.Auth.VerifyTOTP)
	}

	// Streams authenticate via ?token= since browsers cannot set headers
	admin.GET("/events", handlers.SSE.Stream)
	admin.GET("/ws", handlers.WS.Stream)

	protected := admin.Group("")
	protected.Use(jwtMiddleware.Handle())
	{
		protected.GET("/auth/me", handlers.Auth.Me)
		protected.POST("/auth/logout", handlers.Auth.Logout)

		protected.GET("/sessions", handlers.Session.List)
		protected.POST("/sessions/:id/revoke", handlers.Session.Revoke)

		protected.GET("/audit-logs", handlers.Audit.List)

		protected.GET("/settings", handlers.Settings.Get)
		protected.PUT("/settings", handlers.Settings.Update)
	}
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
