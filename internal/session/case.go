package session

import (
	"fmt"

	"github.com/banking/sar-workbench/internal/domain"
)

// SelectCase makes alertID the active case. Re-selecting the active case is a
// no-op; switching clears the evidence selection but keeps the draft.
// The returned bool reports whether anything changed.
func (s *Session) SelectCase(alertID string) (domain.Alert, bool, error) {
	alert, err := s.catalog.Alert(alertID)
	if err != nil {
		return s.activeCase, false, err
	}
	if alert.AlertID == s.activeCase.AlertID {
		return s.activeCase, false, nil
	}

	now := s.clock()
	description := fmt.Sprintf("Selected alert %s for %s (%s risk)", alert.AlertID, alert.CaseID, alert.RiskLevel)
	event := domain.NewAuditEvent(now, s.CurrentUser(), domain.ActionCaseSelected, alert.CaseID, description)
	if err := event.Validate(); err != nil {
		return s.activeCase, false, err
	}

	s.activeCase = alert
	s.evidence = domain.EvidenceSelection{}
	if _, err := s.log.Append(event); err != nil {
		return s.activeCase, true, err
	}
	return s.activeCase, true, nil
}
