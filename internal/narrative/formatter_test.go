package narrative

import (
	"testing"
	"time"

	"github.com/banking/sar-workbench/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInput() Input {
	txn := domain.Transaction{
		TransactionID: "TXN-7781",
		Date:          domain.NewDate(2026, time.February, 10),
		Amount:        decimal.RequireFromString("85000"),
		Direction:     domain.DirectionOutbound,
		Counterparty:  "Meridian Trade Holdings",
		Country:       "AE",
	}
	selection := domain.EvidenceSelection{"TXN-7781": domain.ReasonLayering}
	return Input{
		Case: domain.Alert{
			AlertID:      "ALT-1024",
			CaseID:       "CASE-3401",
			CustomerName: "Sophia Williams",
			RiskLevel:    domain.RiskLevelHigh,
		},
		Summary:        domain.SummarizeEvidence(selection, []domain.Transaction{txn}),
		Evidence:       []EvidenceLine{{Transaction: txn, Reason: domain.ReasonLayering}},
		AnalystSummary: "Rapid outbound wires after cash deposits.",
	}
}

func TestRenderStandard(t *testing.T) {
	f, err := NewPlaceholderFormatter()
	require.NoError(t, err)

	text, err := f.Render(sampleInput())
	require.NoError(t, err)

	assert.Contains(t, text, "[PLACEHOLDER GENERATED NARRATIVE]")
	assert.Contains(t, text, "Case CASE-3401 (alert ALT-1024)")
	assert.Contains(t, text, "1 transaction(s) totalling $85,000.00 dated 2026-02-10 to 2026-02-10")
	assert.Contains(t, text, "- TXN-7781 2026-02-10 Outbound $85,000.00 Meridian Trade Holdings (AE): Layering")
	assert.Contains(t, text, "Analyst summary: Rapid outbound wires after cash deposits.")
	assert.Contains(t, text, Disclaimer)
	assert.NotContains(t, text, "Customer background:")
}

func TestRenderIsDeterministic(t *testing.T) {
	f, err := NewPlaceholderFormatter()
	require.NoError(t, err)

	in := sampleInput()
	in.Template = TemplateSanctions
	in.Customer = &domain.Customer{Occupation: "Import/Export Director", Nationality: "United Kingdom", RiskRating: domain.RiskLevelHigh, SanctionsScreening: domain.SanctionsNoMatch}

	first, err := f.Render(in)
	require.NoError(t, err)
	second, err := f.Render(in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "sanctions exposure")
	assert.Contains(t, first, "Customer background: Import/Export Director, United Kingdom, KYC risk High, PEP No, sanctions screening No Match.")
}

func TestParseTemplateType(t *testing.T) {
	got, err := ParseTemplateType("")
	require.NoError(t, err)
	assert.Equal(t, TemplateStandard, got)

	got, err = ParseTemplateType("Structuring")
	require.NoError(t, err)
	assert.Equal(t, TemplateStructuring, got)

	_, err = ParseTemplateType("Poetry")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestRenderUnknownTemplate(t *testing.T) {
	f, err := NewPlaceholderFormatter()
	require.NoError(t, err)

	in := sampleInput()
	in.Template = "Poetry"
	_, err = f.Render(in)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
