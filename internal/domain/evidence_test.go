package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txn(id string, day int, amount, counterparty string) Transaction {
	return Transaction{
		TransactionID: id,
		Date:          NewDate(2026, time.February, day),
		Amount:        decimal.RequireFromString(amount),
		Direction:     DirectionOutbound,
		Counterparty:  counterparty,
		RiskFlag:      RiskLevelLow,
	}
}

func TestSummarizeEvidence_TotalsAndRange(t *testing.T) {
	catalog := []Transaction{
		txn("TXN-A", 10, "100", "Acme"),
		txn("TXN-B", 11, "200", "Globex"),
		txn("TXN-C", 12, "999", "Initech"),
	}
	selection := EvidenceSelection{"TXN-A": ReasonLayering, "TXN-B": ReasonStructuring}

	summary := SummarizeEvidence(selection, catalog)

	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, "$300.00", summary.FormattedTotal())
	assert.Equal(t, "2026-02-10 to 2026-02-11", summary.DateRange())
	assert.False(t, summary.IsEmpty())
}

func TestSummarizeEvidence_Empty(t *testing.T) {
	summary := SummarizeEvidence(EvidenceSelection{}, []Transaction{txn("TXN-A", 10, "100", "Acme")})

	assert.True(t, summary.IsEmpty())
	assert.Equal(t, "No evidence selected", summary.String())
	assert.Equal(t, "", summary.DateRange())
	assert.Equal(t, "$0.00", summary.FormattedTotal())
	assert.Empty(t, summary.TopCounterparties)
}

func TestSummarizeEvidence_TopCounterpartiesTieBreak(t *testing.T) {
	catalog := []Transaction{
		txn("T1", 10, "1", "Zeta"),
		txn("T2", 10, "1", "Alpha"),
		txn("T3", 11, "1", "Alpha"),
		txn("T4", 11, "1", "Mu"),
		txn("T5", 12, "1", "Beta"),
		txn("T6", 12, "1", "Zeta"),
	}
	selection := EvidenceSelection{}
	for _, c := range catalog {
		selection[c.TransactionID] = ReasonOther
	}

	summary := SummarizeEvidence(selection, catalog)

	require.Len(t, summary.TopCounterparties, MaxTopCounterparties)
	assert.Equal(t, []CounterpartyCount{
		{Name: "Zeta", Count: 2},
		{Name: "Alpha", Count: 2},
		{Name: "Mu", Count: 1},
	}, summary.TopCounterparties)
}

func TestSuspicionReasonValid(t *testing.T) {
	assert.True(t, ReasonRapidMovement.Valid())
	assert.False(t, SuspicionReason("Smurfing").Valid())
}

func TestEvidenceSelectionClone(t *testing.T) {
	orig := EvidenceSelection{"TXN-1": ReasonOther}
	clone := orig.Clone()
	clone["TXN-2"] = ReasonLayering

	assert.Len(t, orig, 1)
	assert.Len(t, clone, 2)
}

func TestSummarizeAlerts(t *testing.T) {
	alerts := []Alert{
		{AlertID: "ALT-1", RiskLevel: RiskLevelHigh, Status: AlertStatusOpen},
		{AlertID: "ALT-2", RiskLevel: RiskLevelHigh, Status: AlertStatusClosed},
		{AlertID: "ALT-3", RiskLevel: RiskLevelMedium, Status: AlertStatusOpen},
		{AlertID: "ALT-4", RiskLevel: RiskLevelHigh, Status: AlertStatusEscalated},
	}
	got := SummarizeAlerts(alerts)
	assert.Equal(t, 4, got.TotalAlerts)
	assert.Equal(t, 2, got.HighRiskCases)
	assert.Zero(t, got.PendingNarratives)
	assert.Zero(t, got.CompletedReports)
}
