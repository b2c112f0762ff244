package domain

// DashboardSummary is the workbench landing view.
type DashboardSummary struct {
	TotalAlerts       int `json:"total_alerts"`
	HighRiskCases     int `json:"high_risk_cases"`
	PendingNarratives int `json:"pending_narratives"`
	CompletedReports  int `json:"completed_reports"`
}

// SummarizeAlerts fills the alert counters. High risk cases are High alerts that are not closed.
func SummarizeAlerts(alerts []Alert) DashboardSummary {
	out := DashboardSummary{TotalAlerts: len(alerts)}
	for _, a := range alerts {
		if a.RiskLevel == RiskLevelHigh && a.Status != AlertStatusClosed {
			out.HighRiskCases++
		}
	}
	return out
}
