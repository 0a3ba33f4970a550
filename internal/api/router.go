package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/connectrh/core-auth/docs"
	"github.com/connectrh/core-auth/internal/api/handler"
	"github.com/connectrh/core-auth/internal/api/middleware"
	"github.com/connectrh/core-auth/internal/core/domain"
	"github.com/connectrh/core-auth/internal/core/ports"
	"github.com/connectrh/core-auth/pkg/logger"
)

// InternalPrefix is the path subtree reserved for the BFF.
const InternalPrefix = "/api/v1/internal"

// Dependencies are the collaborators the HTTP layer needs.
type Dependencies struct {
	Validator      ports.CredentialValidator
	InternalAPIKey string
	// Checks are pinged by /health/ready, keyed by dependency name.
	Checks map[string]ports.Pinger
	Log    zerolog.Logger
	// Registry receives the HTTP metrics. A fresh registry is created when nil.
	Registry *prometheus.Registry
}

// AccessRules returns the ordered authorization table. The internal subtree
// requires the INTERNAL authority; everything else is public.
func AccessRules() []middleware.AccessRule {
	return []middleware.AccessRule{
		{Prefix: InternalPrefix, Authority: domain.AuthorityInternal},
		{Prefix: "/", Authority: ""},
	}
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	// --- Gate (runs before routing) ---
	e.Pre(middleware.InternalKey(middleware.InternalKeyConfig{
		Prefix: InternalPrefix,
		Secret: deps.InternalAPIKey,
		Log:    deps.Log,
	}))

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(contextLogger(deps.Log))
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "coreauth",
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	e.Use(middleware.Authorize(AccessRules()...))

	// --- Internal auth routes (BFF only) ---
	authHandler := handler.NewAuthHandler(deps.Validator, deps.Log)
	internal := e.Group(InternalPrefix + "/auth")
	internal.GET("/status", authHandler.Status)
	internal.POST("/login", authHandler.Login)
	internal.POST("/signup", authHandler.Signup)

	// --- Health checks (no auth required) ---
	healthHandler := handler.NewHealthHandler(deps.Checks)
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{reg, prometheus.DefaultGatherer},
	}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// contextLogger stores a request-scoped logger on the request context.
func contextLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithRequestID(req.Context(), log, rid)))
			return next(c)
		}
	}
}

// requestLogger emits one zerolog entry per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Status >= http.StatusInternalServerError {
				evt = log.Error().Err(v.Error)
			}
			evt.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
