package domain

import "github.com/shopspring/decimal"

// RiskLevel is the Low/Medium/High classification shared by alerts, customers and transactions
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "Low"
	RiskLevelMedium RiskLevel = "Medium"
	RiskLevelHigh   RiskLevel = "High"
)

// Valid reports whether the level is one of the known values.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLevelLow, RiskLevelMedium, RiskLevelHigh:
		return true
	}
	return false
}

// AlertStatus represents the monitoring status of an alert
type AlertStatus string

const (
	AlertStatusOpen          AlertStatus = "Open"
	AlertStatusInvestigating AlertStatus = "Investigating"
	AlertStatusPending       AlertStatus = "Pending"
	AlertStatusEscalated     AlertStatus = "Escalated"
	AlertStatusClosed        AlertStatus = "Closed"
)

// Alert is one monitored event and the case opened for it (1:1 in this model).
type Alert struct {
	AlertID          string          `json:"alert_id" yaml:"alert_id"`
	CaseID           string          `json:"case_id" yaml:"case_id"`
	CustomerName     string          `json:"customer_name" yaml:"customer_name"`
	RiskLevel        RiskLevel       `json:"risk_level" yaml:"risk_level"`
	Date             Date            `json:"date" yaml:"date"`
	Status           AlertStatus     `json:"status" yaml:"status"`
	SuspiciousAmount decimal.Decimal `json:"suspicious_amount" yaml:"suspicious_amount"`
}

// AlertSummary is a lean DTO for list views
type AlertSummary struct {
	AlertID      string      `json:"alert_id"`
	Date         Date        `json:"date"`
	CustomerName string      `json:"customer_name"`
	RiskLevel    RiskLevel   `json:"risk_level"`
	Status       AlertStatus `json:"status"`
}

// ToSummary converts Alert to AlertSummary
func (a Alert) ToSummary() AlertSummary {
	return AlertSummary{
		AlertID:      a.AlertID,
		Date:         a.Date,
		CustomerName: a.CustomerName,
		RiskLevel:    a.RiskLevel,
		Status:       a.Status,
	}
}
