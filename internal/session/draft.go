package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/banking/sar-workbench/internal/domain"
	"github.com/banking/sar-workbench/internal/narrative"
)

// GenerateRequest carries the analyst's narrative inputs.
type GenerateRequest struct {
	Template           narrative.TemplateType
	AnalystSummary     string
	TransactionDetails string
	CustomerBackground string
	AdditionalNotes    string
}

// GenerateDraft renders a new narrative from the evidence and bumps the version.
// Only analysts may generate, and only once evidence has been tagged.
func (s *Session) GenerateDraft(req GenerateRequest) (domain.Draft, error) {
	if !domain.CanGenerate(s.role) {
		return s.Draft(), fmt.Errorf("%w: role %s cannot generate narratives", domain.ErrForbidden, s.role)
	}
	if len(s.evidence) == 0 {
		return s.Draft(), fmt.Errorf("%w: select evidence first", domain.ErrPreconditionFailed)
	}
	template, err := narrative.ParseTemplateType(string(req.Template))
	if err != nil {
		return s.Draft(), err
	}

	input := narrative.Input{
		Template:           template,
		Case:               s.activeCase,
		Summary:            s.EvidenceSummary(),
		Evidence:           s.evidenceLines(),
		AnalystSummary:     req.AnalystSummary,
		TransactionDetails: req.TransactionDetails,
		CustomerBackground: req.CustomerBackground,
		AdditionalNotes:    req.AdditionalNotes,
	}
	customer, err := s.ActiveCustomer()
	switch {
	case err == nil:
		input.Customer = &customer
	case !errors.Is(err, domain.ErrNotFound):
		return s.Draft(), err
	}

	text, err := s.formatter.Render(input)
	if err != nil {
		return s.Draft(), fmt.Errorf("render narrative: %w", err)
	}

	now := s.clock()
	version := s.draft.Version + 1
	description := fmt.Sprintf("%s narrative generated as version %d from %d evidence transaction(s)",
		template, version, len(s.evidence))
	if _, err := s.commit(now, domain.ActionNarrativeGenerated, description, func() {
		s.writeDraft(now, text, version)
	}); err != nil {
		return s.Draft(), err
	}
	return s.Draft(), nil
}

// EditDraft replaces the working text without creating a new version.
func (s *Session) EditDraft(text string) (domain.Draft, error) {
	now := s.clock()
	description := fmt.Sprintf("Draft edited (%d characters), version remains %d", len(text), s.draft.Version)
	return s.updateDraft(now, domain.ActionDraftEdited, description, text, s.draft.Version)
}

// SaveDraft checkpoints text as a new version.
func (s *Session) SaveDraft(text string) (domain.Draft, error) {
	now := s.clock()
	version := s.draft.Version + 1
	description := fmt.Sprintf("Draft saved as version %d", version)
	return s.updateDraft(now, domain.ActionDraftSaved, description, text, version)
}

// RequestReview captures the latest text and hands the draft to a reviewer.
func (s *Session) RequestReview(text string) (domain.Draft, error) {
	description := fmt.Sprintf("Draft version %d submitted for review", s.draft.Version)
	return s.captureDraft(domain.ActionSubmittedForReview, description, text)
}

// SubmitSAR captures the latest text and files the report.
func (s *Session) SubmitSAR(text string) (domain.Draft, error) {
	description := fmt.Sprintf("SAR submitted with draft version %d", s.draft.Version)
	return s.captureDraft(domain.ActionSARSubmitted, description, text)
}

// Approve records a reviewer's approval. The draft is not modified.
func (s *Session) Approve() (domain.AuditEvent, error) {
	return s.review(domain.ActionReviewApproved, "approved")
}

// Reject records a reviewer's rejection. The draft is not modified.
func (s *Session) Reject() (domain.AuditEvent, error) {
	return s.review(domain.ActionReviewRejected, "rejected")
}

func (s *Session) review(action domain.ActionType, verdict string) (domain.AuditEvent, error) {
	if !domain.CanReview(s.role) {
		return domain.AuditEvent{}, fmt.Errorf("%w: role %s cannot review drafts", domain.ErrForbidden, s.role)
	}
	description := fmt.Sprintf("Draft version %d %s by reviewer", s.draft.Version, verdict)
	return s.commit(s.clock(), action, description, nil)
}

// AwaitingSubmission reports whether a generated or saved draft has not been
// filed since it last changed version.
func (s *Session) AwaitingSubmission() bool {
	if s.draft.Version == 0 {
		return false
	}
	pending := false
	for _, e := range s.log.Since(0) {
		switch e.Action {
		case domain.ActionNarrativeGenerated, domain.ActionDraftSaved:
			pending = true
		case domain.ActionSARSubmitted:
			pending = false
		}
	}
	return pending
}

// Submission snapshots the filed report for archiving.
func (s *Session) Submission(at time.Time) domain.SARSubmission {
	return domain.SARSubmission{
		CaseID:      s.activeCase.CaseID,
		AlertID:     s.activeCase.AlertID,
		SubjectName: s.activeCase.CustomerName,
		Narrative:   s.draft.Text,
		Version:     s.draft.Version,
		Evidence:    s.evidence.Clone(),
		Summary:     s.EvidenceSummary(),
		SubmittedBy: s.CurrentUser(),
		SubmittedAt: at,
	}
}

func (s *Session) updateDraft(now time.Time, action domain.ActionType, description, text string, version int) (domain.Draft, error) {
	if _, err := s.commit(now, action, description, func() {
		s.writeDraft(now, text, version)
	}); err != nil {
		return s.Draft(), err
	}
	return s.Draft(), nil
}

// captureDraft overwrites the text only; version and edit metadata stay as they were.
func (s *Session) captureDraft(action domain.ActionType, description, text string) (domain.Draft, error) {
	if _, err := s.commit(s.clock(), action, description, func() {
		s.draft.Text = text
	}); err != nil {
		return s.Draft(), err
	}
	return s.Draft(), nil
}

func (s *Session) writeDraft(now time.Time, text string, version int) {
	at := now.UTC()
	s.draft = domain.Draft{
		Text:         text,
		Version:      version,
		LastEditedAt: &at,
		LastEditedBy: s.CurrentUser(),
	}
}
