package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/bugtracker/tracker-system/internal/api/handler"
	"github.com/bugtracker/tracker-system/internal/api/middleware"
	"github.com/bugtracker/tracker-system/internal/core/domain"
	"github.com/bugtracker/tracker-system/internal/core/ports"

	_ "github.com/bugtracker/tracker-system/docs"
)

// Version is reported by the index endpoint.
const Version = "1.0.0"

// Deps carries everything the router wires into handlers.
type Deps struct {
	Auth    ports.AuthService
	Bugs    ports.BugService
	Users   ports.UserService
	Revoker ports.TokenRevoker
	Health  map[string]handler.Pinger

	JWTSecret     string
	CORSOrigins   []string
	RateLimitAuth float64
	// Metrics exposes /metrics and instruments requests. Tests leave it off
	// so the default registry is not registered twice.
	Metrics bool
	Logger  zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: d.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	if d.Metrics {
		e.Use(echoprometheus.NewMiddleware("bugtracker"))
		e.GET("/metrics", echoprometheus.NewHandler())
	}

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")
	api.GET("", handler.Index(Version))

	// --- Health probes (no auth required) ---
	health := handler.NewHealthHandler(d.Health)
	api.GET("/health", health.Liveness)
	api.GET("/health/ready", health.Readiness)

	requireAuth := middleware.Auth(d.JWTSecret, d.Revoker)

	// --- Auth ---
	authHandler := handler.NewAuthHandler(d.Auth)
	auth := api.Group("/auth", middleware.RateLimit(d.RateLimitAuth))
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout, requireAuth)
	auth.GET("/profile", authHandler.Profile, requireAuth)
	auth.GET("/google/login", authHandler.GoogleLogin)
	auth.GET("/google/callback", authHandler.GoogleCallback)

	// --- Bugs ---
	bugHandler := handler.NewBugHandler(d.Bugs)
	bugs := api.Group("/bugs", requireAuth)
	bugs.GET("", bugHandler.List)
	bugs.POST("", bugHandler.Create)
	bugs.GET("/stats", bugHandler.Stats)
	bugs.GET("/:id", bugHandler.Get)
	bugs.PUT("/:id", bugHandler.Update)
	bugs.DELETE("/:id", bugHandler.Delete)
	bugs.POST("/:id/comments", bugHandler.AddComment)
	bugs.GET("/:id/activity", bugHandler.Activity)

	// --- Users ---
	userHandler := handler.NewUserHandler(d.Users)
	users := api.Group("/users", requireAuth)
	users.GET("", userHandler.List)
	users.GET("/assignees", userHandler.Assignees)
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete, middleware.RBAC(domain.RoleAdmin))

	return e
}

// requestLogger writes one zerolog entry per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
