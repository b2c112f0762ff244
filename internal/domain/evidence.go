package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// SuspicionReason is the tag an analyst attaches to an evidence transaction
type SuspicionReason string

const (
	ReasonStructuring    SuspicionReason = "Structuring"
	ReasonLayering       SuspicionReason = "Layering"
	ReasonRapidMovement  SuspicionReason = "Rapid Movement"
	ReasonSanctionsRisk  SuspicionReason = "Sanctions Risk"
	ReasonUnusualPattern SuspicionReason = "Unusual Pattern"
	ReasonOther          SuspicionReason = "Other"
)

// SuspicionReasons lists the reasons in display order.
var SuspicionReasons = []SuspicionReason{
	ReasonStructuring,
	ReasonLayering,
	ReasonRapidMovement,
	ReasonSanctionsRisk,
	ReasonUnusualPattern,
	ReasonOther,
}

// Valid reports whether the reason is one of SuspicionReasons.
func (r SuspicionReason) Valid() bool {
	for _, known := range SuspicionReasons {
		if r == known {
			return true
		}
	}
	return false
}

// EvidenceEntry tags one transaction with a suspicion reason.
type EvidenceEntry struct {
	TransactionID string          `json:"transaction_id" validate:"required"`
	Reason        SuspicionReason `json:"reason" validate:"required"`
}

// EvidenceSelection maps transaction id to suspicion reason for the active case.
type EvidenceSelection map[string]SuspicionReason

// Clone returns an independent copy.
func (s EvidenceSelection) Clone() EvidenceSelection {
	out := make(EvidenceSelection, len(s))
	for id, reason := range s {
		out[id] = reason
	}
	return out
}

// CounterpartyCount is one row of the top-counterparties summary.
type CounterpartyCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// EvidenceSummary is derived on demand from the selection and never stored.
type EvidenceSummary struct {
	Count             int                 `json:"count"`
	Total             decimal.Decimal     `json:"total"`
	Earliest          Date                `json:"earliest,omitempty"`
	Latest            Date                `json:"latest,omitempty"`
	TopCounterparties []CounterpartyCount `json:"top_counterparties"`
}

// MaxTopCounterparties caps the counterparty ranking.
const MaxTopCounterparties = 3

// SummarizeEvidence walks the catalog in order and aggregates the selected transactions.
// Counterparty ties keep first-encountered catalog order.
func SummarizeEvidence(selection EvidenceSelection, catalog []Transaction) EvidenceSummary {
	summary := EvidenceSummary{Total: decimal.Zero, TopCounterparties: []CounterpartyCount{}}

	var order []string
	counts := make(map[string]int)
	for _, txn := range catalog {
		if _, ok := selection[txn.TransactionID]; !ok {
			continue
		}
		summary.Count++
		summary.Total = summary.Total.Add(txn.Amount)
		if summary.Earliest.IsZero() || txn.Date.Before(summary.Earliest) {
			summary.Earliest = txn.Date
		}
		if summary.Latest.IsZero() || txn.Date.After(summary.Latest) {
			summary.Latest = txn.Date
		}
		if _, seen := counts[txn.Counterparty]; !seen {
			order = append(order, txn.Counterparty)
		}
		counts[txn.Counterparty]++
	}

	ranked := make([]CounterpartyCount, 0, len(order))
	for _, name := range order {
		ranked = append(ranked, CounterpartyCount{Name: name, Count: counts[name]})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	if len(ranked) > MaxTopCounterparties {
		ranked = ranked[:MaxTopCounterparties]
	}
	summary.TopCounterparties = ranked
	return summary
}

// IsEmpty reports the "no evidence" state.
func (s EvidenceSummary) IsEmpty() bool { return s.Count == 0 }

// FormattedTotal renders the total as currency.
func (s EvidenceSummary) FormattedTotal() string { return FormatUSD(s.Total) }

// DateRange renders "2026-02-10 to 2026-02-11", or "" when empty.
func (s EvidenceSummary) DateRange() string {
	if s.IsEmpty() {
		return ""
	}
	return fmt.Sprintf("%s to %s", s.Earliest, s.Latest)
}

func (s EvidenceSummary) String() string {
	if s.IsEmpty() {
		return "No evidence selected"
	}
	return fmt.Sprintf("%d transactions totalling %s between %s", s.Count, s.FormattedTotal(), s.DateRange())
}
