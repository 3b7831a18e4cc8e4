package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/supplytrack/accounts/docs"
	"github.com/supplytrack/accounts/internal/api/handler"
	"github.com/supplytrack/accounts/internal/api/middleware"
	"github.com/supplytrack/accounts/internal/core/ports"
)

// Permission required to create superusers over HTTP.
const permAddSuperuser = "accounts.add_superuser"

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Accounts  ports.AccountService
	Auth      ports.AuthService
	JWTSecret string
	Logger    zerolog.Logger

	// Readiness serves /health/ready. The route is skipped when nil.
	Readiness *handler.HealthDependenciesHandler

	// Registerer and Gatherer back the HTTP metrics and /metrics. Nil means
	// the prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)
	e.Validator = handler.NewValidator()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "accounts",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || strings.HasPrefix(c.Path(), "/swagger")
		},
	}))

	// --- Observability ---
	if d.Gatherer != nil {
		e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Gatherer}))
	} else {
		e.GET("/metrics", echoprometheus.NewHandler())
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Health checks (no auth required) ---
	e.GET("/health", handler.NewHealthHandler().Liveness)
	if d.Readiness != nil {
		e.GET("/health/ready", d.Readiness.Readiness)
	}

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.Auth, d.Accounts)
	e.POST("/auth/login", authHandler.Login)

	// --- Account routes ---
	accountHandler := handler.NewAccountHandler(d.Accounts)
	authMiddleware := middleware.Auth(d.JWTSecret)

	v1 := e.Group("/v1")
	v1.POST("/accounts", accountHandler.Create)

	secured := v1.Group("/accounts", authMiddleware)
	secured.POST("/superusers", accountHandler.CreateSuperuser, middleware.RequirePermission(d.Accounts, permAddSuperuser))
	secured.GET("/:address", accountHandler.Get)
	secured.PUT("/:address/password", accountHandler.SetPassword)
	secured.GET("/:address/permissions", accountHandler.Permissions)

	return e
}

// requestLogger emits one zerolog entry per request.
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
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
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
