package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/banking/sar-workbench/internal/domain"
	"github.com/banking/sar-workbench/internal/metrics"
	"github.com/banking/sar-workbench/internal/narrative"
	"github.com/banking/sar-workbench/internal/referencedata"
	"github.com/banking/sar-workbench/internal/service"
	"github.com/banking/sar-workbench/internal/session"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRouter(t *testing.T) *echo.Echo {
	t.Helper()
	catalog, err := referencedata.Default()
	require.NoError(t, err)
	formatter, err := narrative.NewPlaceholderFormatter()
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)

	reg := prometheus.NewRegistry()
	m := metrics.New()
	require.NoError(t, m.Register(reg))

	wb := service.NewWorkbenchService(catalog, formatter, service.Options{Session: session.DefaultOptions()}, service.Sinks{}, m, logger)
	t.Cleanup(wb.Close)

	return NewRouter(RouterConfig{
		Workbench:       wb,
		Audit:           service.NewAuditService(nil, nil, nil, nil, logger),
		Reference:       catalog,
		DefaultTemplate: narrative.TemplateStandard,
		Metrics:         promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
}

func do(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func createSession(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	view := decode[service.SessionView](t, rec)
	return "/sessions/" + view.ID.String()
}

func TestWorkflowOverHTTP(t *testing.T) {
	e := newTestRouter(t)
	base := createSession(t, e)

	rec := do(t, e, http.MethodPut, base+"/case", `{"alert_id":"ALT-1024"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodPut, base+"/evidence", `{"entries":[{"transaction_id":"TXN-7781","reason":"Layering"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[domain.EvidenceSummary](t, rec)
	assert.Equal(t, 1, summary.Count)

	rec = do(t, e, http.MethodGet, base+"/evidence/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodPost, base+"/draft/generate", `{"analyst_summary":"Layered wires to AE."}`)
	require.Equal(t, http.StatusOK, rec.Code)
	draft := decode[domain.Draft](t, rec)
	assert.Equal(t, 1, draft.Version)
	assert.Contains(t, draft.Text, "Layered wires to AE.")

	rec = do(t, e, http.MethodPost, base+"/draft/save", `{"text":"final text"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[domain.Draft](t, rec).Version)

	rec = do(t, e, http.MethodPut, base+"/role", `{"role":"Reviewer"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodPost, base+"/review/approve", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodGet, base+"/audit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	log := decode[auditLogResponse](t, rec)
	require.Equal(t, 4, log.Count)
	assert.Equal(t, domain.ActionReviewApproved, log.Events[0].Action)

	rec = do(t, e, http.MethodGet, base+"/audit?action=DraftSaved", "")
	require.Equal(t, http.StatusOK, rec.Code)
	log = decode[auditLogResponse](t, rec)
	require.Equal(t, 1, log.Count)
	assert.Equal(t, domain.ActionDraftSaved, log.Events[0].Action)

	rec = do(t, e, http.MethodGet, base+"/audit/verify", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, e, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	e := newTestRouter(t)
	base := createSession(t, e)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown alert", http.MethodPut, base + "/case", `{"alert_id":"ALT-9999"}`, http.StatusNotFound, "invalid_reference"},
		{"missing alert id", http.MethodPut, base + "/case", `{}`, http.StatusBadRequest, "invalid_argument"},
		{"unknown transaction", http.MethodPut, base + "/evidence", `{"entries":[{"transaction_id":"TXN-0","reason":"Other"}]}`, http.StatusNotFound, "invalid_reference"},
		{"generate without evidence", http.MethodPost, base + "/draft/generate", `{}`, http.StatusConflict, "precondition_failed"},
		{"approve as analyst", http.MethodPost, base + "/review/approve", "", http.StatusForbidden, "forbidden"},
		{"bad role", http.MethodPut, base + "/role", `{"role":"Admin"}`, http.StatusBadRequest, "invalid_argument"},
		{"bad action filter", http.MethodGet, base + "/audit?action=Deleted", "", http.StatusBadRequest, "invalid_argument"},
		{"bad session id", http.MethodGet, "/sessions/not-a-uuid", "", http.StatusBadRequest, "invalid_argument"},
		{"ledger without postgres", http.MethodGet, "/audit/ledger", "", http.StatusServiceUnavailable, "unavailable"},
		{"search without elasticsearch", http.MethodGet, "/audit/search?q=x", "", http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, e, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode[errorResponse](t, rec).Code)
		})
	}
}

func TestReferenceRoutes(t *testing.T) {
	e := newTestRouter(t)

	rec := do(t, e, http.MethodGet, "/reference/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	alerts := decode[[]domain.Alert](t, rec)
	assert.Len(t, alerts, 5)

	rec = do(t, e, http.MethodGet, "/reference/alerts?risk=High", "")
	require.Equal(t, http.StatusOK, rec.Code)
	for _, a := range decode[[]domain.Alert](t, rec) {
		assert.Equal(t, domain.RiskLevelHigh, a.RiskLevel)
	}

	rec = do(t, e, http.MethodGet, "/reference/customers/Sophia%20Williams", "")
	require.Equal(t, http.StatusOK, rec.Code)
	customer := decode[domain.Customer](t, rec)
	assert.Equal(t, "CUST-00981", customer.CustomerID)
	assert.Equal(t, "AC-55201984", customer.Account.AccountNumber)

	rec = do(t, e, http.MethodGet, "/reference/customers/Nobody", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, http.MethodGet, "/reference/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Transaction](t, rec), 6)
}

func TestDashboardRoute(t *testing.T) {
	e := newTestRouter(t)
	base := createSession(t, e)

	rec := do(t, e, http.MethodPut, base+"/evidence", `{"entries":[{"transaction_id":"TXN-7781","reason":"Structuring"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, e, http.MethodPost, base+"/draft/generate", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodGet, "/reference/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.DashboardSummary{
		TotalAlerts:       5,
		HighRiskCases:     2,
		PendingNarratives: 1,
	}, decode[domain.DashboardSummary](t, rec))

	rec = do(t, e, http.MethodPost, base+"/draft/submit", `{"text":"filed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, e, http.MethodGet, "/reference/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[domain.DashboardSummary](t, rec)
	assert.Zero(t, got.PendingNarratives)
	assert.Equal(t, 1, got.CompletedReports)
}

func TestHealthAndMetrics(t *testing.T) {
	e := newTestRouter(t)
	createSession(t, e)

	rec := do(t, e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sar_workbench_sessions_active 1")
}
