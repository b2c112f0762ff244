package api

import (
	"context"
	"net/http"

	"github.com/banking/sar-workbench/internal/domain"
	"github.com/banking/sar-workbench/internal/narrative"
	"github.com/banking/sar-workbench/internal/service"
	"github.com/banking/sar-workbench/internal/session"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// WorkbenchHandler exposes session operations over HTTP
type WorkbenchHandler struct {
	svc             *service.WorkbenchService
	defaultTemplate narrative.TemplateType
}

func NewWorkbenchHandler(svc *service.WorkbenchService, defaultTemplate narrative.TemplateType) *WorkbenchHandler {
	return &WorkbenchHandler{svc: svc, defaultTemplate: defaultTemplate}
}

type selectCaseRequest struct {
	AlertID string `json:"alert_id" validate:"required"`
}

type evidenceRequest struct {
	Entries []domain.EvidenceEntry `json:"entries" validate:"dive"`
}

type generateRequest struct {
	Template           string `json:"template"`
	AnalystSummary     string `json:"analyst_summary"`
	TransactionDetails string `json:"transaction_details"`
	CustomerBackground string `json:"customer_background"`
	AdditionalNotes    string `json:"additional_notes"`
}

type draftTextRequest struct {
	Text string `json:"text"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=Analyst Reviewer"`
}

type auditLogResponse struct {
	Events []domain.AuditEvent `json:"events"`
	Count  int                 `json:"count"`
}

// RegisterRoutes registers the session routes
func (h *WorkbenchHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.CreateSession)
	g.GET("/:id", h.GetSession)
	g.DELETE("/:id", h.CloseSession)
	g.PUT("/:id/case", h.SelectCase)
	g.GET("/:id/customer", h.ActiveCustomer)
	g.PUT("/:id/evidence", h.UpdateEvidence)
	g.GET("/:id/evidence/summary", h.EvidenceSummary)
	g.POST("/:id/draft/generate", h.GenerateDraft)
	g.PUT("/:id/draft", h.EditDraft)
	g.POST("/:id/draft/save", h.SaveDraft)
	g.POST("/:id/draft/review-request", h.RequestReview)
	g.POST("/:id/draft/submit", h.SubmitSAR)
	g.POST("/:id/review/approve", h.Approve)
	g.POST("/:id/review/reject", h.Reject)
	g.PUT("/:id/role", h.SetRole)
	g.GET("/:id/audit", h.QueryAuditLog)
	g.GET("/:id/audit/verify", h.VerifyAuditLog)
}

func sessionID(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("id"))
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

// CreateSession handles POST /sessions
func (h *WorkbenchHandler) CreateSession(c echo.Context) error {
	view, err := h.svc.CreateSession(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, view)
}

// GetSession handles GET /sessions/:id
func (h *WorkbenchHandler) GetSession(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return badRequest(c, "invalid session id")
	}
	view, err := h.svc.GetSession(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// CloseSession handles DELETE /sessions/:id
func (h *WorkbenchHandler) CloseSession(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return badRequest(c, "invalid session id")
	}
	if err := h.svc.CloseSession(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SelectCase handles PUT /sessions/:id/case
func (h *WorkbenchHandler) SelectCase(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return badRequest(c, "invalid session id")
	}
	var req selectCaseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	view, err := h.svc.SelectCase(c.Request().Context(), id, req.AlertID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// ActiveCustomer handles GET /sessions/:id/customer
func (h *WorkbenchHandler) ActiveCustomer(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return badRequest(c, "invalid session id")
	}
	customer, err := h.svc.ActiveCustomer(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, customer)
}

// UpdateEvidence handles PUT /sessions/:id/evidence
func (h *WorkbenchHandler) UpdateEvidence(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return badRequest(c, "invalid session id")
	}
	var req evidenceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	summary, err := h.svc.UpdateEvidence(c.Request().Context(), id, req.Entries)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// EvidenceSummary handles GET /sessions/:id/evidence/summary
func (h *WorkbenchHandler) EvidenceSummary(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return badRequest(c, "invalid session id")
	}
	summary, err := h.svc.EvidenceSummary(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// GenerateDraft handles POST /sessions/:id/draft/generate
func (h *WorkbenchHandler) GenerateDraft(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return badRequest(c, "invalid session id")
	}
	var req generateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	template := narrative.TemplateType(req.Template)
	if template == "" {
		template = h.defaultTemplate
	}
	draft, err := h.svc.GenerateDraft(c.Request().Context(), id, session.GenerateRequest{
		Template:           template,
		AnalystSummary:     req.AnalystSummary,
		TransactionDetails: req.TransactionDetails,
		CustomerBackground: req.CustomerBackground,
		AdditionalNotes:    req.AdditionalNotes,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, draft)
}

// EditDraft handles PUT /sessions/:id/draft
func (h *WorkbenchHandler) EditDraft(c echo.Context) error {
	return h.draftText(c, h.svc.EditDraft)
}

// SaveDraft handles POST /sessions/:id/draft/save
func (h *WorkbenchHandler) SaveDraft(c echo.Context) error {
	return h.draftText(c, h.svc.SaveDraft)
}

// RequestReview handles POST /sessions/:id/draft/review-request
func (h *WorkbenchHandler) RequestReview(c echo.Context) error {
	return h.draftText(c, h.svc.RequestReview)
}

// SubmitSAR handles POST /sessions/:id/draft/submit
func (h *WorkbenchHandler) SubmitSAR(c echo.Context) error {
	return h.draftText(c, h.svc.SubmitSAR)
}

type draftOp func(ctx context.Context, id uuid.UUID, text string) (domain.Draft, error)

func (h *WorkbenchHandler) draftText(c echo.Context, op draftOp) error {
	id, err := sessionID(c)
	if err != nil {
		return badRequest(c, "invalid session id")
	}
	var req draftTextRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	draft, err := op(c.Request().Context(), id, req.Text)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, draft)
}

// Approve handles POST /sessions/:id/review/approve
func (h *WorkbenchHandler) Approve(c echo.Context) error {
	return h.review(c, h.svc.Approve)
}

// Reject handles POST /sessions/:id/review/reject
func (h *WorkbenchHandler) Reject(c echo.Context) error {
	return h.review(c, h.svc.Reject)
}

func (h *WorkbenchHandler) review(c echo.Context, op func(ctx context.Context, id uuid.UUID) (domain.AuditEvent, error)) error {
	id, err := sessionID(c)
	if err != nil {
		return badRequest(c, "invalid session id")
	}
	event, err := op(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, event)
}

// SetRole handles PUT /sessions/:id/role
func (h *WorkbenchHandler) SetRole(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return badRequest(c, "invalid session id")
	}
	var req roleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	view, err := h.svc.SetRole(c.Request().Context(), id, domain.Role(req.Role))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// QueryAuditLog handles GET /sessions/:id/audit?action=&user=&case_id=
func (h *WorkbenchHandler) QueryAuditLog(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return badRequest(c, "invalid session id")
	}
	filter := domain.AuditEventFilter{
		User:   c.QueryParam("user"),
		CaseID: c.QueryParam("case_id"),
	}
	for _, raw := range c.QueryParams()["action"] {
		action, err := domain.ParseActionType(raw)
		if err != nil {
			return fail(c, err)
		}
		filter.Actions = append(filter.Actions, action)
	}

	events, err := h.svc.QueryAuditLog(c.Request().Context(), id, filter)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, auditLogResponse{Events: events, Count: len(events)})
}

// VerifyAuditLog handles GET /sessions/:id/audit/verify
func (h *WorkbenchHandler) VerifyAuditLog(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return badRequest(c, "invalid session id")
	}
	if err := h.svc.VerifySession(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"valid": true})
}
