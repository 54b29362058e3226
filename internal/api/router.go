package api

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/satacare/sata-system/internal/api/handler"
	"github.com/satacare/sata-system/internal/api/middleware"
	"github.com/satacare/sata-system/internal/core/domain"
	"github.com/satacare/sata-system/internal/core/ports"
	"github.com/satacare/sata-system/internal/core/service"
	"github.com/satacare/sata-system/internal/infrastructure/audit"
	"github.com/satacare/sata-system/internal/infrastructure/config"
	"github.com/satacare/sata-system/internal/infrastructure/db/postgres"
	redisdb "github.com/satacare/sata-system/internal/infrastructure/db/redis"
	"github.com/satacare/sata-system/internal/infrastructure/http/handlers"
	"github.com/satacare/sata-system/internal/infrastructure/mail"
)

// NewRouter builds and returns the Echo instance with all routes registered.
// rdb is nil when Redis is not configured.
func NewRouter(cfg *config.Config, db *sql.DB, rdb *redis.Client, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(middleware.CSRF())

	// --- Dependencies ---
	repo := postgres.NewUserRepository(db)
	auditLog := audit.NewLogger(log)
	issuer := service.NewTokenIssuer(cfg.JWTSecret)

	var guard ports.ResetTokenGuard
	if cfg.ResetTokenSingleUse && rdb != nil {
		guard = redisdb.NewTokenGuard(rdb)
	}

	dispatcher := mail.BuildDispatcher(cfg.Email.Provider, cfg.Email.APIKey, mail.SMTPConfig{
		Host:               cfg.SMTP.Host,
		Port:               cfg.SMTP.Port,
		Service:            cfg.SMTP.Service,
		Username:           cfg.SMTP.Username,
		Password:           cfg.SMTP.Password,
		Secure:             cfg.SMTP.Secure,
		RequireTLS:         cfg.SMTP.RequireTLS,
		InsecureSkipVerify: cfg.SMTP.SkipTLSVerify,
	}, log)

	authService := service.NewAuthService(repo, issuer, service.BootstrapAdmin{
		Username:       cfg.DefaultAdmin.Username,
		UsernameSHA256: cfg.DefaultAdmin.UsernameSHA256,
		PasswordSHA256: cfg.DefaultAdmin.PasswordSHA256,
		Email:          cfg.DefaultAdmin.Email,
	}, auditLog, log)

	passwordService := service.NewPasswordService(repo, issuer, dispatcher, guard, auditLog, service.PasswordServiceConfig{
		FrontendURL: cfg.FrontendURL,
		From:        cfg.Email.From,
		FromName:    cfg.Email.FromName,
	}, log)

	userService := service.NewUserService(repo, authService, auditLog, log)

	secureCookies := cfg.Env == "production"
	authHandler := handler.NewAuthHandler(authService, passwordService, secureCookies)
	userHandler := handler.NewUserHandler(userService)

	requireAuth := middleware.Auth(cfg.JWTSecret)
	optionalAuth := middleware.OptionalAuth(cfg.JWTSecret)

	// --- Auth routes ---
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/logout", authHandler.Logout)
	e.GET("/auth/me", authHandler.Me, requireAuth)
	e.POST("/auth/register", authHandler.Register, optionalAuth)
	e.GET("/auth/check-unique", authHandler.CheckUnique)
	e.POST("/auth/forgot-password", authHandler.ForgotPassword, optionalAuth)
	e.POST("/auth/reset-password", authHandler.ResetPassword, optionalAuth)
	e.POST("/auth/change-password", authHandler.ChangePassword, requireAuth)

	// --- User management (admin only) ---
	users := e.Group("/users", requireAuth, middleware.RBAC(domain.RoleAdmin))
	users.GET("", userHandler.List)
	users.POST("", userHandler.Create)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}
