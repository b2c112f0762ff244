// Package narrative renders SAR narrative text from case evidence.
// The bundled formatter produces placeholder prose; no language model is involved.
package narrative

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/banking/sar-workbench/internal/domain"
)

// TemplateType selects the narrative layout
type TemplateType string

const (
	TemplateStandard    TemplateType = "Standard"
	TemplateStructuring TemplateType = "Structuring"
	TemplateSanctions   TemplateType = "Sanctions"
)

// ParseTemplateType validates a template name. Empty selects the standard layout.
func ParseTemplateType(s string) (TemplateType, error) {
	switch TemplateType(s) {
	case "":
		return TemplateStandard, nil
	case TemplateStandard, TemplateStructuring, TemplateSanctions:
		return TemplateType(s), nil
	}
	return "", fmt.Errorf("%w: unknown narrative template %q", domain.ErrInvalidArgument, s)
}

// EvidenceLine is one tagged transaction as it appears in the narrative.
type EvidenceLine struct {
	Transaction domain.Transaction
	Reason      domain.SuspicionReason
}

// Input carries everything a formatter may draw on.
type Input struct {
	Template           TemplateType
	Case               domain.Alert
	Customer           *domain.Customer
	Summary            domain.EvidenceSummary
	Evidence           []EvidenceLine
	AnalystSummary     string
	TransactionDetails string
	CustomerBackground string
	AdditionalNotes    string
}

// Formatter turns an Input into narrative text. Implementations must be pure.
type Formatter interface {
	Render(in Input) (string, error)
}

// PlaceholderFormatter renders fixed prose around the supplied facts.
type PlaceholderFormatter struct {
	templates map[TemplateType]*template.Template
}

// Disclaimer closes every placeholder narrative.
const Disclaimer = "This narrative is a placeholder output only and is not generated by a live AI model."

var funcs = template.FuncMap{
	"usd":     domain.FormatUSD,
	"trimmed": strings.TrimSpace,
}

const header = `[PLACEHOLDER GENERATED NARRATIVE]
Case {{.Case.CaseID}} (alert {{.Case.AlertID}}), subject {{.Case.CustomerName}}, risk {{.Case.RiskLevel}}.
`

const evidenceBlock = `
Evidence reviewed: {{.Summary.Count}} transaction(s) totalling {{usd .Summary.Total}} dated {{.Summary.DateRange}}.
{{- range .Evidence}}
- {{.Transaction.TransactionID}} {{.Transaction.Date}} {{.Transaction.Direction}} {{usd .Transaction.Amount}} {{.Transaction.Counterparty}} ({{.Transaction.Country}}): {{.Reason}}
{{- end}}
{{- if .Summary.TopCounterparties}}
Principal counterparties:{{range .Summary.TopCounterparties}} {{.Name}} ({{.Count}});{{end}}
{{- end}}
`

const footer = `
{{- with trimmed .AnalystSummary}}
Analyst summary: {{.}}
{{- end}}
{{- with trimmed .TransactionDetails}}
Transaction details: {{.}}
{{- end}}
{{- with .Customer}}
Customer background: {{.Occupation}}, {{.Nationality}}, KYC risk {{.RiskRating}}, PEP {{if .IsPEP}}Yes{{else}}No{{end}}, sanctions screening {{.SanctionsScreening}}.
{{- end}}
{{- with trimmed .CustomerBackground}}
{{.}}
{{- end}}
{{- with trimmed .AdditionalNotes}}
Additional notes: {{.}}
{{- end}}

` + Disclaimer

var bodies = map[TemplateType]string{
	TemplateStandard: header + `
The subject account demonstrates a pattern of transactions inconsistent with the expected customer profile and stated source of funds.
` + evidenceBlock + footer,
	TemplateStructuring: header + `
Activity on the subject account indicates deposits and transfers sized to remain below reporting thresholds, with repeated movements over a compressed time window.
` + evidenceBlock + footer,
	TemplateSanctions: header + `
Funds were routed to or through counterparties and jurisdictions that present elevated sanctions exposure, with limited economic rationale.
` + evidenceBlock + footer,
}

// NewPlaceholderFormatter parses the built-in templates.
func NewPlaceholderFormatter() (*PlaceholderFormatter, error) {
	f := &PlaceholderFormatter{templates: make(map[TemplateType]*template.Template, len(bodies))}
	for kind, body := range bodies {
		tmpl, err := template.New(string(kind)).Funcs(funcs).Parse(body)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", kind, err)
		}
		f.templates[kind] = tmpl
	}
	return f, nil
}

// Render implements Formatter.
func (f *PlaceholderFormatter) Render(in Input) (string, error) {
	kind := in.Template
	if kind == "" {
		kind = TemplateStandard
	}
	tmpl, ok := f.templates[kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown narrative template %q", domain.ErrInvalidArgument, kind)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, in); err != nil {
		return "", fmt.Errorf("render %s narrative: %w", kind, err)
	}
	return buf.String(), nil
}
