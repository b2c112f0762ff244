package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/banking/sar-workbench/internal/domain"
	"github.com/banking/sar-workbench/internal/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AuditHandler serves cross-session audit queries from the durable mirrors
type AuditHandler struct {
	auditService *service.AuditService
}

func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
	}
}

// SearchEvents handles GET /audit/search
func (h *AuditHandler) SearchEvents(c echo.Context) error {
	from, _ := strconv.Atoi(c.QueryParam("from"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	if size == 0 {
		size = 20
	}

	page, err := h.auditService.SearchEvents(c.Request().Context(), accessor(c), c.QueryParam("q"), from, size)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetLedger handles GET /audit/ledger
func (h *AuditHandler) GetLedger(c echo.Context) error {
	filter := domain.LedgerFilter{
		User:   c.QueryParam("user"),
		CaseID: c.QueryParam("case_id"),
		Limit:  100, // Default limit
	}
	if raw := c.QueryParam("session_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "invalid session_id")
		}
		filter.SessionID = &id
	}
	for _, raw := range c.QueryParams()["action"] {
		action, err := domain.ParseActionType(raw)
		if err != nil {
			return fail(c, err)
		}
		filter.Actions = append(filter.Actions, action)
	}
	if t, ok, err := timeParam(c, "start"); err != nil {
		return badRequest(c, "invalid start")
	} else if ok {
		filter.StartTime = &t
	}
	if t, ok, err := timeParam(c, "end"); err != nil {
		return badRequest(c, "invalid end")
	} else if ok {
		filter.EndTime = &t
	}
	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil && n > 0 {
		filter.Limit = n
	}
	if n, err := strconv.Atoi(c.QueryParam("offset")); err == nil && n > 0 {
		filter.Offset = n
	}

	page, err := h.auditService.GetLedger(c.Request().Context(), accessor(c), filter)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// VerifyLedger handles GET /audit/ledger/:session_id/verify
func (h *AuditHandler) VerifyLedger(c echo.Context) error {
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		return badRequest(c, "invalid session_id")
	}
	n, err := h.auditService.VerifySessionLedger(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"valid": true, "events": n})
}

// RegisterRoutes registers the API routes
func (h *AuditHandler) RegisterRoutes(e *echo.Group) {
	e.GET("/search", h.SearchEvents)
	e.GET("/ledger", h.GetLedger)
	e.GET("/ledger/:session_id/verify", h.VerifyLedger)
}

func timeParam(c echo.Context, name string) (time.Time, bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	return t, err == nil, err
}

// accessor names the caller from the JWT subject when auth is enabled.
func accessor(c echo.Context) string {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok || token == nil {
		return "anonymous"
	}
	if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
		return sub
	}
	return "anonymous"
}
