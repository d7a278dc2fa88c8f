package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/config"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/handler"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/handler/middleware"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository/memory"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository/postgres"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/service"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/attempts"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/email"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/hash"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/jwt"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/logger"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/metrics"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/validator"
)

const serviceName = "caleidoscopio-manager"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.Server.Environment,
		ServiceName: serviceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	// Initialize storage
	var (
		repos *repository.Set
		db    *sqlx.DB
	)
	switch cfg.Database.Driver {
	case "memory":
		repos = memory.NewSet()
		log.Warn("using in-memory storage, data is lost on restart")
	default:
		db, err = initDB(cfg, log)
		if err != nil {
			log.Fatal("failed to initialize database", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("error closing database connection", zap.Error(err))
			}
		}()
		repos = postgres.NewSet(db)
		log.Info("database connection established")
	}

	// Initialize Redis client and the failed login guard
	var (
		redisClient *redis.Client
		guard       service.LoginGuard = service.NoopLoginGuard{}
	)
	if cfg.Redis.Enabled {
		redisClient, err = initRedis(cfg)
		if err != nil {
			log.Fatal("failed to initialize redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("error closing redis connection", zap.Error(err))
			}
		}()
		guard = attempts.NewTracker(redisClient, cfg.Auth.MaxFailedLogins, cfg.Auth.FailedLoginWindow)
		log.Info("redis connection established")
	} else {
		log.Info("redis disabled, failed login tracking is off")
	}

	// Initialize email service
	var emailService email.EmailService = email.NewNoopEmailService(log)
	if cfg.Email.Enabled {
		resendService, err := email.NewResendEmailService(&email.EmailConfig{
			APIKey:    cfg.Email.APIKey,
			FromEmail: cfg.Email.FromEmail,
			FromName:  cfg.Email.FromName,
			LoginURL:  cfg.Server.AppBaseURL + "/login",
		}, log)
		if err != nil {
			log.Warn("failed to initialize email service, emails will only be logged", zap.Error(err))
		} else {
			emailService = resendService
			log.Info("email service initialized", zap.String("provider", "resend"))
		}
	}

	validate := validator.NewValidator()
	m := metrics.New(serviceName)
	hasher := hash.NewHasher(cfg.Auth.BcryptCost)
	tokenService := jwt.NewTokenService(cfg.SSO.TokenSecret, cfg.SSO.TokenExpiry, cfg.SSO.Issuer)

	// Initialize services
	auditService := service.NewAuditService(repos.AuditLogs, log)
	sessionService := service.NewSessionService(repos, cfg.Session.Expiry, log)
	accessService := service.NewAccessService(repos, auditService, m, log)
	ssoService := service.NewSSOService(repos, accessService, tokenService, auditService, m, cfg.Server.AppBaseURL, log)
	tenantProductService := service.NewTenantProductService(repos, ssoService, auditService)
	tenantService := service.NewTenantService(repos, tenantProductService, ssoService, hasher, auditService, emailService, log)
	authService := service.NewAuthService(repos, sessionService, tenantService, hasher, guard, auditService, emailService, m, cfg.Signup, log)
	userService := service.NewUserService(repos, sessionService, ssoService, hasher, auditService)
	planService := service.NewPlanService(repos, ssoService, auditService)
	productService := service.NewProductService(repos, accessService, auditService)
	statsService := service.NewStatsService(repos)

	if purged, err := sessionService.PurgeExpired(context.Background()); err != nil {
		log.Warn("failed to purge expired sessions", zap.Error(err))
	} else if purged > 0 {
		log.Info("purged expired sessions", zap.Int64("count", purged))
	}

	// Initialize handlers
	cookie := handler.CookieConfig{
		Name:   cfg.Session.CookieName,
		MaxAge: cfg.Session.Expiry,
		Secure: cfg.IsProduction(),
	}
	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}
	handlers := handler.Handlers{
		Auth:    handler.NewAuthHandler(authService, sessionService, validate, cookie),
		Setup:   handler.NewSetupHandler(authService, validate),
		Health:  handler.NewHealthHandler(pinger, redisClient),
		Access:  handler.NewAccessHandler(accessService, validate),
		Product: handler.NewProductHandler(productService, ssoService, validate),
		Tenant:  handler.NewTenantHandler(tenantService, tenantProductService, validate),
		Plan:    handler.NewPlanHandler(planService, validate),
		User:    handler.NewUserHandler(userService, validate),
		Audit:   handler.NewAuditHandler(auditService, statsService),
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:               "Caleidoscopio Manager",
		DisableStartupMessage: cfg.IsProduction(),
		ErrorHandler:          handler.ErrorHandler,
		CaseSensitive:         true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
	})

	// Setup global middlewares
	app.Use(requestid.New())
	app.Use(middleware.LoggerMiddleware(log))
	app.Use(middleware.RecoveryMiddleware())
	app.Use(middleware.CORSMiddleware(cfg.Server.CORSAllowedOrigins))
	app.Use(middleware.MetricsMiddleware(m))

	gatekeeper := middleware.Gatekeeper(middleware.GatekeeperConfig{
		Sessions:   sessionService,
		Policy:     middleware.DefaultPolicy(),
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.IsProduction(),
	})

	handler.SetupRoutes(app, handlers, gatekeeper, adaptor.HTTPHandler(m.Handler()))

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Info("server starting",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment),
			zap.String("db_driver", cfg.Database.Driver),
		)
		if err := app.Listen(addr); err != nil {
			log.Error("server failed to start", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// initDB initializes PostgreSQL database connection with retry logic
func initDB(cfg *config.Config, log *zap.Logger) (*sqlx.DB, error) {
	dsn := cfg.Database.DSN()

	var db *sqlx.DB
	var err error

	maxRetries := 5
	retryInterval := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			break
		}

		log.Warn("failed to connect to database",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Error(err),
		)
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// initRedis initializes Redis client and verifies connection
func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
