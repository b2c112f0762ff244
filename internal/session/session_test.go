package session

import (
	"errors"
	"testing"
	"time"

	"github.com/banking/sar-workbench/internal/domain"
	"github.com/banking/sar-workbench/internal/narrative"
	"github.com/banking/sar-workbench/internal/referencedata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(time.Minute)
	return c.now
}

type failingFormatter struct{}

func (failingFormatter) Render(narrative.Input) (string, error) {
	return "", errors.New("template exploded")
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	catalog, err := referencedata.Default()
	require.NoError(t, err)
	formatter, err := narrative.NewPlaceholderFormatter()
	require.NoError(t, err)

	clock := &stepClock{now: time.Date(2026, 2, 12, 9, 0, 0, 0, time.UTC)}
	opts := DefaultOptions()
	opts.Clock = clock.Now

	s, err := New(catalog, formatter, opts)
	require.NoError(t, err)
	return s
}

func tag(ids ...string) []domain.EvidenceEntry {
	entries := make([]domain.EvidenceEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, domain.EvidenceEntry{TransactionID: id, Reason: domain.ReasonLayering})
	}
	return entries
}

func TestNewSessionDefaults(t *testing.T) {
	s := newTestSession(t)

	assert.Equal(t, "ALT-1024", s.ActiveCase().AlertID)
	assert.Equal(t, "CASE-3401", s.ActiveCase().CaseID)
	assert.Equal(t, domain.RoleAnalyst, s.Role())
	assert.Equal(t, "a.patel", s.CurrentUser())
	assert.Empty(t, s.Evidence())
	assert.Equal(t, 0, s.Draft().Version)
	assert.Equal(t, "none", s.Draft().Editor())
	assert.Equal(t, 0, s.Log().Len())

	customer, err := s.ActiveCustomer()
	require.NoError(t, err)
	assert.Equal(t, "Sophia Williams", customer.Name)
}

func TestNewSessionRejectsUnknownDefaultCase(t *testing.T) {
	catalog, err := referencedata.Default()
	require.NoError(t, err)
	formatter, err := narrative.NewPlaceholderFormatter()
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.DefaultAlertID = "ALT-0000"
	_, err = New(catalog, formatter, opts)
	assert.ErrorIs(t, err, domain.ErrInvalidReference)

	opts = DefaultOptions()
	opts.ReviewerUser = " "
	_, err = New(catalog, formatter, opts)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSelectCaseIsIdempotent(t *testing.T) {
	s := newTestSession(t)
	_, err := s.UpdateEvidence(tag("TXN-7781"))
	require.NoError(t, err)
	before := s.Log().Len()

	alert, changed, err := s.SelectCase("ALT-1024")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "ALT-1024", alert.AlertID)
	assert.Equal(t, before, s.Log().Len())
	assert.Len(t, s.Evidence(), 1)
}

func TestSelectCaseSwitchClearsEvidenceKeepsDraft(t *testing.T) {
	s := newTestSession(t)
	_, err := s.UpdateEvidence(tag("TXN-7781", "TXN-7783"))
	require.NoError(t, err)
	_, err = s.GenerateDraft(GenerateRequest{})
	require.NoError(t, err)
	before := s.Log().Len()

	alert, changed, err := s.SelectCase("ALT-1025")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "CASE-3402", alert.CaseID)
	assert.Empty(t, s.Evidence())
	assert.True(t, s.EvidenceSummary().IsEmpty())
	assert.Equal(t, 1, s.Draft().Version)

	require.Equal(t, before+1, s.Log().Len())
	latest := s.QueryAuditLog(domain.AuditEventFilter{})[0]
	assert.Equal(t, domain.ActionCaseSelected, latest.Action)
	assert.Equal(t, "CASE-3402", latest.CaseID)
}

func TestSelectCaseUnknownAlert(t *testing.T) {
	s := newTestSession(t)

	_, _, err := s.SelectCase("ALT-9999")
	assert.ErrorIs(t, err, domain.ErrInvalidReference)
	assert.Equal(t, "ALT-1024", s.ActiveCase().AlertID)
	assert.Equal(t, 0, s.Log().Len())
}

func TestUpdateEvidenceIsAllOrNothing(t *testing.T) {
	s := newTestSession(t)
	_, err := s.UpdateEvidence(tag("TXN-7781"))
	require.NoError(t, err)

	_, err = s.UpdateEvidence(tag("TXN-7782", "TXN-0000"))
	assert.ErrorIs(t, err, domain.ErrInvalidReference)
	assert.Equal(t, domain.EvidenceSelection{"TXN-7781": domain.ReasonLayering}, s.Evidence())
	assert.Equal(t, 1, s.Log().Len())

	_, err = s.UpdateEvidence([]domain.EvidenceEntry{{TransactionID: "TXN-7782", Reason: "Hunch"}})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Equal(t, 1, s.Log().Len())
}

func TestUpdateEvidenceReplacesSelection(t *testing.T) {
	s := newTestSession(t)
	_, err := s.UpdateEvidence(tag("TXN-7781", "TXN-7782"))
	require.NoError(t, err)

	summary, err := s.UpdateEvidence([]domain.EvidenceEntry{
		{TransactionID: "TXN-7783", Reason: domain.ReasonSanctionsRisk},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EvidenceSelection{"TXN-7783": domain.ReasonSanctionsRisk}, s.Evidence())
	assert.Equal(t, 1, summary.Count)
	assert.Equal(t, "$40,000.00", summary.FormattedTotal())

	events := s.QueryAuditLog(domain.AuditEventFilter{Actions: []domain.ActionType{domain.ActionEvidenceUpdated}})
	require.Len(t, events, 2)
	assert.Contains(t, events[0].Description, "1 transaction")
	assert.Contains(t, events[1].Description, "2 transaction")
}

func TestUpdateEvidenceToEmpty(t *testing.T) {
	s := newTestSession(t)
	_, err := s.UpdateEvidence(tag("TXN-7781"))
	require.NoError(t, err)

	summary, err := s.UpdateEvidence(nil)
	require.NoError(t, err)
	assert.True(t, summary.IsEmpty())
	assert.Equal(t, "No evidence selected", summary.String())
	assert.Equal(t, 2, s.Log().Len())
}

func TestEvidenceSummaryOverSeed(t *testing.T) {
	s := newTestSession(t)
	_, err := s.UpdateEvidence(tag("TXN-7781", "TXN-7782", "TXN-7783"))
	require.NoError(t, err)

	summary := s.EvidenceSummary()
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, "$185,000.00", summary.FormattedTotal())
	assert.Equal(t, "2026-02-10 to 2026-02-11", summary.DateRange())
	require.NotEmpty(t, summary.TopCounterparties)
	assert.Equal(t, "Meridian Trade Holdings", summary.TopCounterparties[0].Name)
	assert.Equal(t, 2, summary.TopCounterparties[0].Count)
}

func TestGenerateDraftGates(t *testing.T) {
	s := newTestSession(t)

	_, err := s.GenerateDraft(GenerateRequest{})
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
	assert.Equal(t, 0, s.Draft().Version)
	assert.Equal(t, 0, s.Log().Len())

	_, err = s.UpdateEvidence(tag("TXN-7781"))
	require.NoError(t, err)
	require.NoError(t, s.SetRole(domain.RoleReviewer))

	_, err = s.GenerateDraft(GenerateRequest{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, 0, s.Draft().Version)
	assert.Equal(t, 1, s.Log().Len())
}

func TestGenerateDraftIncrementsVersion(t *testing.T) {
	s := newTestSession(t)
	_, err := s.UpdateEvidence(tag("TXN-7781"))
	require.NoError(t, err)

	draft, err := s.GenerateDraft(GenerateRequest{
		Template:       narrative.TemplateStructuring,
		AnalystSummary: "Funds layered through Meridian Trade Holdings.",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, draft.Version)
	assert.Equal(t, "a.patel", draft.Editor())
	require.NotNil(t, draft.LastEditedAt)
	assert.Contains(t, draft.Text, "Sophia Williams")
	assert.Contains(t, draft.Text, "Funds layered through Meridian Trade Holdings.")

	draft, err = s.GenerateDraft(GenerateRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, draft.Version)
}

func TestGenerateDraftFailuresLeaveStateUntouched(t *testing.T) {
	s := newTestSession(t)
	_, err := s.UpdateEvidence(tag("TXN-7781"))
	require.NoError(t, err)

	_, err = s.GenerateDraft(GenerateRequest{Template: "Haiku"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	s.formatter = failingFormatter{}
	_, err = s.GenerateDraft(GenerateRequest{})
	assert.Error(t, err)

	assert.Equal(t, 0, s.Draft().Version)
	assert.Equal(t, 1, s.Log().Len())
}

func TestDraftVersioningRules(t *testing.T) {
	s := newTestSession(t)

	d, err := s.SaveDraft("first")
	require.NoError(t, err)
	assert.Equal(t, 1, d.Version)
	d, err = s.SaveDraft("second")
	require.NoError(t, err)
	assert.Equal(t, 2, d.Version)

	d, err = s.EditDraft("working copy")
	require.NoError(t, err)
	assert.Equal(t, 2, d.Version)
	assert.Equal(t, "working copy", d.Text)
	editedAt := *d.LastEditedAt

	d, err = s.RequestReview("ready for review")
	require.NoError(t, err)
	assert.Equal(t, 2, d.Version)
	assert.Equal(t, "ready for review", d.Text)
	assert.Equal(t, editedAt, *d.LastEditedAt)

	d, err = s.SubmitSAR("final")
	require.NoError(t, err)
	assert.Equal(t, 2, d.Version)
	assert.Equal(t, "final", d.Text)

	actions := []domain.ActionType{}
	for _, e := range s.QueryAuditLog(domain.AuditEventFilter{}) {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []domain.ActionType{
		domain.ActionSARSubmitted,
		domain.ActionSubmittedForReview,
		domain.ActionDraftEdited,
		domain.ActionDraftSaved,
		domain.ActionDraftSaved,
	}, actions)
}

func TestEditDraftAllowedForReviewer(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.SetRole(domain.RoleReviewer))

	d, err := s.EditDraft("reviewer note")
	require.NoError(t, err)
	assert.Equal(t, "m.khan", d.LastEditedBy)
	assert.Equal(t, "m.khan", s.QueryAuditLog(domain.AuditEventFilter{})[0].User)
}

func TestApproveRejectRequireReviewer(t *testing.T) {
	s := newTestSession(t)

	_, err := s.Approve()
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = s.Reject()
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, 0, s.Log().Len())

	require.NoError(t, s.SetRole(domain.RoleReviewer))
	approved, err := s.Approve()
	require.NoError(t, err)
	assert.Equal(t, domain.ActionReviewApproved, approved.Action)
	assert.Equal(t, "m.khan", approved.User)

	rejected, err := s.Reject()
	require.NoError(t, err)
	assert.Equal(t, domain.ActionReviewRejected, rejected.Action)
	assert.Equal(t, 0, s.Draft().Version)
}

func TestSetRole(t *testing.T) {
	s := newTestSession(t)
	_, err := s.UpdateEvidence(tag("TXN-7781"))
	require.NoError(t, err)

	require.NoError(t, s.SetRole(domain.RoleReviewer))
	assert.Equal(t, "m.khan", s.CurrentUser())
	assert.Len(t, s.Evidence(), 1)
	assert.Equal(t, "ALT-1024", s.ActiveCase().AlertID)
	assert.Equal(t, 1, s.Log().Len())

	assert.ErrorIs(t, s.SetRole("Admin"), domain.ErrInvalidArgument)
	assert.Equal(t, domain.RoleReviewer, s.Role())
}

func TestQueryAuditLogFilters(t *testing.T) {
	s := newTestSession(t)
	_, err := s.SaveDraft("v1")
	require.NoError(t, err)
	_, err = s.EditDraft("v1 edited")
	require.NoError(t, err)
	_, err = s.SaveDraft("v2")
	require.NoError(t, err)

	saved := s.QueryAuditLog(domain.AuditEventFilter{Actions: []domain.ActionType{domain.ActionDraftSaved}})
	require.Len(t, saved, 2)
	assert.True(t, saved[0].Timestamp.After(saved[1].Timestamp))
	assert.Equal(t, "Draft saved as version 2", saved[0].Description)

	all := s.QueryAuditLog(domain.AuditEventFilter{})
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].Timestamp.After(all[i-1].Timestamp))
	}

	assert.Empty(t, s.QueryAuditLog(domain.AuditEventFilter{User: "m.khan"}))
	assert.Len(t, s.QueryAuditLog(domain.AuditEventFilter{CaseID: "CASE-3401"}), 3)
}

func TestEndToEndScenario(t *testing.T) {
	s := newTestSession(t)

	_, changed, err := s.SelectCase("ALT-1024")
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = s.UpdateEvidence([]domain.EvidenceEntry{{TransactionID: "TXN-7781", Reason: domain.ReasonLayering}})
	require.NoError(t, err)

	d, err := s.GenerateDraft(GenerateRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Version)

	d, err = s.SaveDraft(d.Text)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Version)

	require.NoError(t, s.SetRole(domain.RoleReviewer))
	_, err = s.Approve()
	require.NoError(t, err)

	events := s.QueryAuditLog(domain.AuditEventFilter{})
	require.Len(t, events, 4)
	assert.Equal(t, domain.ActionReviewApproved, events[0].Action)
	assert.Equal(t, domain.ActionDraftSaved, events[1].Action)
	assert.Equal(t, domain.ActionNarrativeGenerated, events[2].Action)
	assert.Equal(t, domain.ActionEvidenceUpdated, events[3].Action)
	require.NoError(t, s.Log().Verify())
}

func TestSubmissionSnapshot(t *testing.T) {
	s := newTestSession(t)
	_, err := s.UpdateEvidence(tag("TXN-7781"))
	require.NoError(t, err)
	_, err = s.SubmitSAR("final narrative")
	require.NoError(t, err)

	at := time.Date(2026, 2, 13, 8, 0, 0, 0, time.UTC)
	sub := s.Submission(at)
	assert.Equal(t, "CASE-3401", sub.CaseID)
	assert.Equal(t, "Sophia Williams", sub.SubjectName)
	assert.Equal(t, "final narrative", sub.Narrative)
	assert.Equal(t, 1, sub.Summary.Count)
	assert.Equal(t, at, sub.SubmittedAt)
}

func TestAwaitingSubmission(t *testing.T) {
	s := newTestSession(t)
	assert.False(t, s.AwaitingSubmission())

	_, err := s.UpdateEvidence(tag("TXN-7781"))
	require.NoError(t, err)
	draft, err := s.GenerateDraft(GenerateRequest{Template: narrative.TemplateStandard})
	require.NoError(t, err)
	assert.True(t, s.AwaitingSubmission())

	_, err = s.SubmitSAR(draft.Text)
	require.NoError(t, err)
	assert.False(t, s.AwaitingSubmission())

	_, err = s.EditDraft(draft.Text + " Amended.")
	require.NoError(t, err)
	assert.False(t, s.AwaitingSubmission())

	_, err = s.SaveDraft(draft.Text + " Amended.")
	require.NoError(t, err)
	assert.True(t, s.AwaitingSubmission())
}
