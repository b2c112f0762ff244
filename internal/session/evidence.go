package session

import (
	"fmt"

	"github.com/banking/sar-workbench/internal/domain"
	"github.com/banking/sar-workbench/internal/narrative"
)

// UpdateEvidence replaces the evidence selection with entries. The batch is
// rejected as a whole if any transaction is unknown or any reason is invalid.
func (s *Session) UpdateEvidence(entries []domain.EvidenceEntry) (domain.EvidenceSummary, error) {
	next := make(domain.EvidenceSelection, len(entries))
	for _, entry := range entries {
		if _, err := s.catalog.Transaction(entry.TransactionID); err != nil {
			return s.EvidenceSummary(), err
		}
		if !entry.Reason.Valid() {
			return s.EvidenceSummary(), fmt.Errorf("%w: unknown suspicion reason %q for %s",
				domain.ErrInvalidArgument, entry.Reason, entry.TransactionID)
		}
		next[entry.TransactionID] = entry.Reason
	}

	description := fmt.Sprintf("Evidence selection updated: %d transaction(s) tagged", len(next))
	if _, err := s.commit(s.clock(), domain.ActionEvidenceUpdated, description, func() {
		s.evidence = next
	}); err != nil {
		return s.EvidenceSummary(), err
	}
	return s.EvidenceSummary(), nil
}

// evidenceLines lists the selected transactions in catalog order.
func (s *Session) evidenceLines() []narrative.EvidenceLine {
	var lines []narrative.EvidenceLine
	for _, txn := range s.catalog.Transactions() {
		if reason, ok := s.evidence[txn.TransactionID]; ok {
			lines = append(lines, narrative.EvidenceLine{Transaction: txn, Reason: reason})
		}
	}
	return lines
}
