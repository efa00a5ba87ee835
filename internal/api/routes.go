// routes.go - Route and middleware registration
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/image-upscaler/backend/internal/storage"
	"github.com/image-upscaler/backend/internal/upscale"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Log               *slog.Logger
	Store             storage.Store
	Jobs              JobTracker
	History           HistoryReader
	Upscaler          upscale.Upscaler
	AllowedExtensions []string
	Version           string
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Process ProcessHandler
	Jobs    JobsHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.Version),
		Process: NewProcessHandler(deps.Log, deps.Store, deps.Jobs, deps.Upscaler, deps.AllowedExtensions),
		Jobs:    NewJobsHandler(deps.Jobs, deps.History),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	e.POST("/process", handlers.Process.HandleProcess)

	apiGroup := e.Group("/api")
	apiGroup.GET("/health", handlers.Health.HandleHealth)
	apiGroup.GET("/jobs", handlers.Jobs.HandleListJobs)
	apiGroup.GET("/jobs/msgpack", handlers.Jobs.HandleListJobsMsgpack)
	apiGroup.GET("/jobs/:id", handlers.Jobs.HandleGetJob)
	apiGroup.GET("/history", handlers.Jobs.HandleHistory)
}

// MiddlewareConfig selects the optional middleware
type MiddlewareConfig struct {
	BodyLimit      string
	RequestLogging bool
	EnableCORS     bool
	AllowOrigins   []string
	Debug          bool
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, log *slog.Logger, cfg MiddlewareConfig) {
	e.HTTPErrorHandler = NewErrorHandler(log, cfg.Debug)

	if cfg.RequestLogging {
		e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			Skipper: func(c echo.Context) bool {
				return c.Request().URL.Path == "/api/health"
			},
			LogMethod:   true,
			LogURI:      true,
			LogStatus:   true,
			LogLatency:  true,
			LogRemoteIP: true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				log.LogAttrs(c.Request().Context(), slog.LevelInfo, "request",
					slog.String("method", v.Method),
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.Duration("latency", v.Latency),
					slog.String("remote_ip", v.RemoteIP),
				)
				return nil
			},
		}))
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error("panic recovered", slog.String("error", err.Error()), slog.String("stack", string(stack)))
			return err
		},
	}))

	// JSON responses only; images are already compressed.
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return !strings.HasPrefix(c.Request().URL.Path, "/api/")
		},
	}))

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	if cfg.EnableCORS {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}
