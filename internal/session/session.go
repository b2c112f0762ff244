// Package session implements the SAR workflow state machine for a single user session.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/banking/sar-workbench/internal/auditlog"
	"github.com/banking/sar-workbench/internal/domain"
	"github.com/banking/sar-workbench/internal/narrative"
)

// Catalog is the read-only reference data a session resolves ids against.
type Catalog interface {
	Alerts() []domain.Alert
	Alert(alertID string) (domain.Alert, error)
	Customer(name string) (domain.Customer, error)
	Transactions() []domain.Transaction
	Transaction(transactionID string) (domain.Transaction, error)
}

// Options configures a new session.
type Options struct {
	DefaultAlertID string
	AnalystUser    string
	ReviewerUser   string
	InitialRole    domain.Role
	Clock          func() time.Time
	Signer         auditlog.Signer
}

// DefaultOptions mirrors the workbench defaults: case ALT-1024 opened by the analyst.
func DefaultOptions() Options {
	return Options{
		DefaultAlertID: "ALT-1024",
		AnalystUser:    "a.patel",
		ReviewerUser:   "m.khan",
		InitialRole:    domain.RoleAnalyst,
		Clock:          time.Now,
	}
}

// Session owns the mutable workflow context. It is not safe for concurrent use;
// callers must serialise actions.
type Session struct {
	catalog   Catalog
	formatter narrative.Formatter
	users     map[domain.Role]string
	clock     func() time.Time

	activeCase domain.Alert
	evidence   domain.EvidenceSelection
	draft      domain.Draft
	role       domain.Role
	log        *auditlog.Log
}

// New builds a session opened on the default case. Opening a session is not audited.
func New(catalog Catalog, formatter narrative.Formatter, opts Options) (*Session, error) {
	if catalog == nil {
		return nil, errors.New("session: catalog is required")
	}
	if formatter == nil {
		return nil, errors.New("session: formatter is required")
	}
	if strings.TrimSpace(opts.AnalystUser) == "" || strings.TrimSpace(opts.ReviewerUser) == "" {
		return nil, fmt.Errorf("%w: analyst and reviewer users are required", domain.ErrInvalidArgument)
	}
	role := opts.InitialRole
	if role == "" {
		role = domain.RoleAnalyst
	}
	if _, err := domain.ParseRole(string(role)); err != nil {
		return nil, err
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	alert, err := catalog.Alert(opts.DefaultAlertID)
	if err != nil {
		return nil, fmt.Errorf("session: default case: %w", err)
	}

	return &Session{
		catalog:   catalog,
		formatter: formatter,
		users: map[domain.Role]string{
			domain.RoleAnalyst:  opts.AnalystUser,
			domain.RoleReviewer: opts.ReviewerUser,
		},
		clock:      clock,
		activeCase: alert,
		evidence:   domain.EvidenceSelection{},
		role:       role,
		log:        auditlog.New(opts.Signer),
	}, nil
}

// ActiveCase returns the currently selected alert.
func (s *Session) ActiveCase() domain.Alert { return s.activeCase }

// ActiveCustomer resolves the KYC record of the active case's subject.
func (s *Session) ActiveCustomer() (domain.Customer, error) {
	return s.catalog.Customer(s.activeCase.CustomerName)
}

// Evidence returns a copy of the current evidence selection.
func (s *Session) Evidence() domain.EvidenceSelection { return s.evidence.Clone() }

// EvidenceSummary derives totals over the current selection.
func (s *Session) EvidenceSummary() domain.EvidenceSummary {
	return domain.SummarizeEvidence(s.evidence, s.catalog.Transactions())
}

// Draft returns the draft state.
func (s *Session) Draft() domain.Draft {
	d := s.draft
	if d.LastEditedAt != nil {
		at := *d.LastEditedAt
		d.LastEditedAt = &at
	}
	return d
}

// Role returns the active role.
func (s *Session) Role() domain.Role { return s.role }

// CurrentUser is the identity stamped on new audit events.
func (s *Session) CurrentUser() string { return s.users[s.role] }

// Log exposes the session's audit log.
func (s *Session) Log() *auditlog.Log { return s.log }

// QueryAuditLog returns matching audit events, newest first.
func (s *Session) QueryAuditLog(filter domain.AuditEventFilter) []domain.AuditEvent {
	return s.log.Query(filter)
}

// SetRole switches the active role. Case, evidence and draft are untouched
// and no audit event is written.
func (s *Session) SetRole(role domain.Role) error {
	if _, err := domain.ParseRole(string(role)); err != nil {
		return err
	}
	s.role = role
	return nil
}

// commit validates the audit event for the transition, applies the mutation
// and appends the event. Nothing changes if the event is malformed.
func (s *Session) commit(now time.Time, action domain.ActionType, description string, apply func()) (domain.AuditEvent, error) {
	event := domain.NewAuditEvent(now, s.CurrentUser(), action, s.activeCase.CaseID, description)
	if err := event.Validate(); err != nil {
		return domain.AuditEvent{}, err
	}
	if apply != nil {
		apply()
	}
	return s.log.Append(event)
}
