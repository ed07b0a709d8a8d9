package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/telcexam/exam-platform/docs"
	"github.com/telcexam/exam-platform/internal/api/handler"
	"github.com/telcexam/exam-platform/internal/api/middleware"
	"github.com/telcexam/exam-platform/internal/core/domain"
	"github.com/telcexam/exam-platform/internal/core/ports"
)

// Dependencies is everything NewRouter needs to serve requests. Mongo and
// Redis are only used by the readiness probe and may be nil.
type Dependencies struct {
	Log   zerolog.Logger
	Auth  ports.AuthService
	Admin ports.AdminService

	CookieName   string
	CookieSecure bool
	LoginPath    string
	PagesDir     string

	Mongo *mongo.Database
	Redis redis.UniversalClient
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// HTTP metrics get their own registry so several routers can live in one
	// process; /metrics serves it together with the default one.
	reg := prometheus.NewRegistry()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "exam",
		Subsystem:  "http",
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Dependencies ---
	tokens := middleware.CookieOrBearer(deps.CookieName)
	guard := middleware.NewGuard(deps.Auth, tokens, deps.LoginPath)
	cookie := handler.CookieConfig{Name: deps.CookieName, Secure: deps.CookieSecure}

	authHandler := handler.NewAuthHandler(deps.Auth, tokens, cookie, deps.LoginPath)
	adminHandler := handler.NewAdminHandler(deps.Admin)
	pageHandler := handler.NewPageHandler(deps.PagesDir, deps.LoginPath)

	apiAuth := guard.RequireAuthenticated(middleware.ModeAPI)
	pageAuth := guard.RequireAuthenticated(middleware.ModePage)
	adminOnly := guard.RequireRole(domain.RoleAdmin)

	// --- Auth routes ---
	auth := e.Group("/api/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/check", authHandler.Check)
	auth.POST("/change-password", authHandler.ChangePassword, apiAuth)

	e.GET("/ping", authHandler.Ping, apiAuth)
	e.POST("/logout", authHandler.Logout)
	e.GET("/logout", authHandler.LogoutRedirect)

	// --- Pages ---
	e.GET("/", pageHandler.Root, guard.Optional())
	e.GET("/home", pageHandler.Home, pageAuth)
	e.GET("/admin", pageHandler.Admin, adminOnly)

	// --- Admin API ---
	admin := e.Group("/api/admin", adminOnly)
	admin.GET("/settings", adminHandler.ListSettings)
	admin.GET("/settings/:key", adminHandler.GetSetting)
	admin.PUT("/settings/:key", adminHandler.UpdateSetting)
	admin.GET("/users", adminHandler.ListUsers)
	admin.POST("/users", adminHandler.CreateUser)
	admin.GET("/users/:id", adminHandler.GetUser)
	admin.PUT("/users/:id", adminHandler.UpdateUser)
	admin.DELETE("/users/:id", adminHandler.DeleteUser)
	admin.POST("/users/:id/reset-password", adminHandler.ResetPassword)
	admin.DELETE("/users/:id/sessions", adminHandler.RevokeSessions)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Observability ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{reg, prometheus.DefaultGatherer},
	}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
