package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/tickwise/timetrack/docs"
	"github.com/tickwise/timetrack/internal/api/handler"
	"github.com/tickwise/timetrack/internal/api/middleware"
	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/ports"
)

const metricsNamespace = "timetrack"

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Sessions  handler.Sessions
	Directory ports.Directory
	Clock     domain.Clock
	JWTSecret string
	// Health maps dependency names to readiness checks.
	Health map[string]handler.Pinger
	// Registry receives the HTTP metrics. Nil uses the default registry.
	Registry *prometheus.Registry
	Logger   zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
//
// @title                       timetrack API
// @version                     1.0
// @description                 Time tracking: one running timer per user, manual and batch entries, reports.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)
	e.Validator = handler.NewValidator()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Logger))

	metricsCfg := echoprometheus.MiddlewareConfig{Namespace: metricsNamespace}
	handlerCfg := echoprometheus.HandlerConfig{}
	if deps.Registry != nil {
		metricsCfg.Registerer = deps.Registry
		handlerCfg.Gatherer = deps.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(metricsCfg))

	// --- Unauthenticated routes ---
	health := handler.NewHealthHandler(deps.Health)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(handlerCfg))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Authenticated API ---
	timers := handler.NewTimerHandler(deps.Sessions, deps.Clock)
	entries := handler.NewEntryHandler(deps.Sessions)
	reports := handler.NewReportHandler(deps.Sessions)
	projects := handler.NewProjectHandler(deps.Directory)
	sessions := handler.NewSessionHandler(deps.Sessions)

	v1 := e.Group("/v1", middleware.Auth(deps.JWTSecret))

	v1.GET("/timer", timers.Get)
	v1.GET("/timer/stream", timers.Stream)
	v1.POST("/timer/start", timers.Start)
	v1.POST("/timer/stop", timers.Stop)

	v1.GET("/entries", entries.List)
	v1.POST("/entries", entries.Create)
	v1.POST("/entries/batch", entries.Batch)
	v1.PUT("/entries/:id", entries.Update)
	v1.DELETE("/entries/:id", entries.Delete)

	v1.GET("/reports/summary", reports.Summary)
	v1.GET("/reports/document", reports.Document)
	v1.GET("/reports/export.csv", reports.ExportCSV)
	v1.GET("/reports/export.pdf", reports.ExportPDF)

	v1.GET("/projects", projects.List)
	v1.DELETE("/session", sessions.End)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
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
