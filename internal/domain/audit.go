package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActionType represents the workflow transition being audited.
// The string values are part of the external contract and used for filtering.
type ActionType string

const (
	ActionCaseSelected       ActionType = "CaseSelected"
	ActionEvidenceUpdated    ActionType = "EvidenceUpdated"
	ActionNarrativeGenerated ActionType = "NarrativeGenerated"
	ActionDraftEdited        ActionType = "DraftEdited"
	ActionDraftSaved         ActionType = "DraftSaved"
	ActionSubmittedForReview ActionType = "SubmittedForReview"
	ActionSARSubmitted       ActionType = "SARSubmitted"
	ActionReviewApproved     ActionType = "ReviewApproved"
	ActionReviewRejected     ActionType = "ReviewRejected"
)

// ActionTypes lists every audited action.
var ActionTypes = []ActionType{
	ActionCaseSelected,
	ActionEvidenceUpdated,
	ActionNarrativeGenerated,
	ActionDraftEdited,
	ActionDraftSaved,
	ActionSubmittedForReview,
	ActionSARSubmitted,
	ActionReviewApproved,
	ActionReviewRejected,
}

// Valid reports whether the action is one of ActionTypes.
func (a ActionType) Valid() bool {
	for _, known := range ActionTypes {
		if a == known {
			return true
		}
	}
	return false
}

// ParseActionType validates an action name.
func ParseActionType(s string) (ActionType, error) {
	a := ActionType(s)
	if !a.Valid() {
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidArgument, s)
	}
	return a, nil
}

// AuditEvent represents an immutable audit log entry.
// Once appended it is never modified or removed.
type AuditEvent struct {
	EventID     uuid.UUID  `json:"event_id"`
	Sequence    uint64     `json:"sequence"`
	Timestamp   time.Time  `json:"timestamp"`
	User        string     `json:"user"`
	Action      ActionType `json:"action"`
	CaseID      string     `json:"case_id"`
	Description string     `json:"description"`
	Signature   string     `json:"signature,omitempty"` // HMAC chained over the previous entry
}

// NewAuditEvent creates an event stamped with the given time.
// EventID and Sequence are assigned by the log on append.
func NewAuditEvent(at time.Time, user string, action ActionType, caseID, description string) AuditEvent {
	return AuditEvent{
		Timestamp:   at.UTC(),
		User:        user,
		Action:      action,
		CaseID:      caseID,
		Description: description,
	}
}

// Validate checks the event shape before it is appended.
func (e AuditEvent) Validate() error {
	switch {
	case e.Timestamp.IsZero():
		return fmt.Errorf("%w: audit event timestamp is required", ErrInvalidArgument)
	case strings.TrimSpace(e.User) == "":
		return fmt.Errorf("%w: audit event user is required", ErrInvalidArgument)
	case !e.Action.Valid():
		return fmt.Errorf("%w: unknown audit action %q", ErrInvalidArgument, e.Action)
	case strings.TrimSpace(e.CaseID) == "":
		return fmt.Errorf("%w: audit event case id is required", ErrInvalidArgument)
	}
	return nil
}

// AuditEventFilter for querying audit logs. Empty Actions means all actions;
// empty User and CaseID match everything.
type AuditEventFilter struct {
	Actions []ActionType
	User    string
	CaseID  string
}

// Matches reports whether the event passes the filter.
func (f AuditEventFilter) Matches(e AuditEvent) bool {
	if f.User != "" && e.User != f.User {
		return false
	}
	if f.CaseID != "" && e.CaseID != f.CaseID {
		return false
	}
	if len(f.Actions) == 0 {
		return true
	}
	for _, a := range f.Actions {
		if a == e.Action {
			return true
		}
	}
	return false
}

// AuditAccessLog tracks who read the audit log (audit of audits)
type AuditAccessLog struct {
	AccessID      uuid.UUID `json:"access_id"`
	SessionID     uuid.UUID `json:"session_id"`
	Accessor      string    `json:"accessor"`
	AccessorRole  Role      `json:"accessor_role"`
	AccessType    string    `json:"access_type"` // VIEW, SEARCH, LEDGER
	QueryFilter   string    `json:"query_filter"`
	RecordsViewed int       `json:"records_viewed"`
	Timestamp     time.Time `json:"timestamp"`
}

// LedgerEvent is an audit event as mirrored to durable storage, tagged with its session.
type LedgerEvent struct {
	SessionID uuid.UUID `json:"session_id"`
	AuditEvent
}

// LedgerFilter queries the durable ledger across sessions.
type LedgerFilter struct {
	SessionID *uuid.UUID
	Actions   []ActionType
	User      string
	CaseID    string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// LedgerPage represents paginated ledger events
type LedgerPage struct {
	Events     []LedgerEvent `json:"events"`
	TotalCount int64         `json:"total_count"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	HasMore    bool          `json:"has_more"`
}
