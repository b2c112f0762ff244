package api

import (
	"net/http"

	"github.com/banking/sar-workbench/internal/narrative"
	"github.com/banking/sar-workbench/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RouterConfig collects what the HTTP surface is built from.
type RouterConfig struct {
	Workbench       *service.WorkbenchService
	Audit           *service.AuditService
	Reference       ReferenceData
	DefaultTemplate narrative.TemplateType
	// Metrics is served at /metrics when set.
	Metrics http.Handler
	// Guard protects /sessions and /audit when set, e.g. the JWT middleware.
	Guard echo.MiddlewareFunc
}

// NewRouter builds the echo instance with every route registered.
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewRequestValidator()
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	var guards []echo.MiddlewareFunc
	if cfg.Guard != nil {
		guards = append(guards, cfg.Guard)
	}

	NewWorkbenchHandler(cfg.Workbench, cfg.DefaultTemplate).RegisterRoutes(e.Group("/sessions", guards...))
	NewReferenceHandler(cfg.Reference, cfg.Workbench).RegisterRoutes(e.Group("/reference"))
	NewAuditHandler(cfg.Audit).RegisterRoutes(e.Group("/audit", guards...))

	// Health Check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(cfg.Metrics))
	}
	return e
}
