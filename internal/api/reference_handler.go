package api

import (
	"context"
	"net/http"

	"github.com/banking/sar-workbench/internal/domain"
	"github.com/labstack/echo/v4"
)

// ReferenceData is the read-only catalog served to the dashboard.
type ReferenceData interface {
	Alerts() []domain.Alert
	Customer(name string) (domain.Customer, error)
	Transactions() []domain.Transaction
}

// DashboardSource derives the landing counters.
type DashboardSource interface {
	Dashboard(ctx context.Context) domain.DashboardSummary
}

type ReferenceHandler struct {
	catalog   ReferenceData
	dashboard DashboardSource
}

func NewReferenceHandler(catalog ReferenceData, dashboard DashboardSource) *ReferenceHandler {
	return &ReferenceHandler{catalog: catalog, dashboard: dashboard}
}

// RegisterRoutes registers the reference routes
func (h *ReferenceHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/alerts", h.ListAlerts)
	g.GET("/customers/:name", h.GetCustomer)
	g.GET("/transactions", h.ListTransactions)
	g.GET("/dashboard", h.GetDashboard)
}

// ListAlerts handles GET /reference/alerts. ?risk= filters by risk level.
func (h *ReferenceHandler) ListAlerts(c echo.Context) error {
	risk := domain.RiskLevel(c.QueryParam("risk"))
	alerts := []domain.Alert{}
	for _, a := range h.catalog.Alerts() {
		if risk == "" || a.RiskLevel == risk {
			alerts = append(alerts, a)
		}
	}
	return c.JSON(http.StatusOK, alerts)
}

// GetCustomer handles GET /reference/customers/:name
func (h *ReferenceHandler) GetCustomer(c echo.Context) error {
	customer, err := h.catalog.Customer(c.Param("name"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, customer)
}

// ListTransactions handles GET /reference/transactions
func (h *ReferenceHandler) ListTransactions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.catalog.Transactions())
}

// GetDashboard handles GET /reference/dashboard
func (h *ReferenceHandler) GetDashboard(c echo.Context) error {
	return c.JSON(http.StatusOK, h.dashboard.Dashboard(c.Request().Context()))
}
