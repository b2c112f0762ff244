package domain

import "time"

// Draft is the evolving SAR narrative. One draft exists per session.
// Version 0 means a narrative was never generated or saved.
type Draft struct {
	Text         string     `json:"text"`
	Version      int        `json:"version"`
	LastEditedAt *time.Time `json:"last_edited_at,omitempty"`
	LastEditedBy string     `json:"last_edited_by,omitempty"`
}

// Editor returns the last editor or "none".
func (d Draft) Editor() string {
	if d.LastEditedBy == "" {
		return "none"
	}
	return d.LastEditedBy
}

// EditedAt returns the last edit time formatted for display, or "none".
func (d Draft) EditedAt() string {
	if d.LastEditedAt == nil {
		return "none"
	}
	return d.LastEditedAt.Format("2006-01-02 15:04:05")
}

// SARSubmission is the archive payload captured when a draft is submitted as a SAR.
type SARSubmission struct {
	SessionID   string            `json:"session_id"`
	CaseID      string            `json:"case_id"`
	AlertID     string            `json:"alert_id"`
	SubjectName string            `json:"subject_name"`
	Narrative   string            `json:"-"`
	Version     int               `json:"version"`
	Evidence    EvidenceSelection `json:"evidence"`
	Summary     EvidenceSummary   `json:"summary"`
	SubmittedBy string            `json:"submitted_by"`
	SubmittedAt time.Time         `json:"submitted_at"`
	// EventID and Sequence identify the SARSubmitted event that filed this report.
	EventID  string `json:"event_id"`
	Sequence uint64 `json:"sequence"`
}
