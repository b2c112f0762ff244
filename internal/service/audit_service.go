package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banking/sar-workbench/internal/auditlog"
	"github.com/banking/sar-workbench/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnavailable is returned when a query needs a backend that is not configured.
var ErrUnavailable = errors.New("backend not configured")

// LedgerReader reads the durable ledger (Postgres).
type LedgerReader interface {
	ListEvents(ctx context.Context, filter domain.LedgerFilter) (*domain.LedgerPage, error)
}

// EventSearcher runs full-text queries (Elasticsearch).
type EventSearcher interface {
	SearchEvents(ctx context.Context, query string, from, size int) (*domain.LedgerPage, error)
}

// AuditService answers cross-session questions from the durable mirrors
type AuditService struct {
	ledger   LedgerReader
	searcher EventSearcher
	access   AccessRecorder
	verifier auditlog.Signer
	logger   *zap.Logger
}

// NewAuditService wires the optional backends. Any of them may be nil.
func NewAuditService(
	ledger LedgerReader,
	searcher EventSearcher,
	access AccessRecorder,
	verifier auditlog.Signer,
	logger *zap.Logger,
) *AuditService {
	return &AuditService{
		ledger:   ledger,
		searcher: searcher,
		access:   access,
		verifier: verifier,
		logger:   logger,
	}
}

// GetLedger retrieves mirrored events across sessions
func (s *AuditService) GetLedger(ctx context.Context, accessor string, filter domain.LedgerFilter) (*domain.LedgerPage, error) {
	if s.ledger == nil {
		return nil, fmt.Errorf("%w: audit ledger", ErrUnavailable)
	}
	page, err := s.ledger.ListEvents(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.recordAccess(ctx, accessor, "LEDGER", fmt.Sprintf("%+v", filter), len(page.Events))
	return page, nil
}

// SearchEvents uses Elasticsearch for free-text queries
func (s *AuditService) SearchEvents(ctx context.Context, accessor, query string, from, size int) (*domain.LedgerPage, error) {
	if s.searcher == nil {
		return nil, fmt.Errorf("%w: audit search", ErrUnavailable)
	}
	page, err := s.searcher.SearchEvents(ctx, query, from, size)
	if err != nil {
		return nil, err
	}
	s.recordAccess(ctx, accessor, "SEARCH", query, len(page.Events))
	return page, nil
}

// VerifySessionLedger re-walks a session's signature chain as stored in the ledger.
func (s *AuditService) VerifySessionLedger(ctx context.Context, sessionID uuid.UUID) (int, error) {
	if s.ledger == nil || s.verifier == nil {
		return 0, fmt.Errorf("%w: ledger verification", ErrUnavailable)
	}

	const pageSize = 500
	var events []domain.LedgerEvent
	for offset := 0; ; offset += pageSize {
		page, err := s.ledger.ListEvents(ctx, domain.LedgerFilter{SessionID: &sessionID, Limit: pageSize, Offset: offset})
		if err != nil {
			return 0, err
		}
		events = append(events, page.Events...)
		if !page.HasMore {
			break
		}
	}
	if len(events) == 0 {
		return 0, fmt.Errorf("%w: no ledger events for session %s", domain.ErrNotFound, sessionID)
	}

	byseq := make(map[uint64]domain.AuditEvent, len(events))
	for _, e := range events {
		byseq[e.Sequence] = e.AuditEvent
	}
	prev := ""
	for seq := uint64(1); seq <= uint64(len(byseq)); seq++ {
		e, ok := byseq[seq]
		if !ok {
			return 0, fmt.Errorf("%w: sequence %d missing from ledger", auditlog.ErrTampered, seq)
		}
		if !s.verifier.Verify(prev, e) {
			s.logger.Error("CRYPTOGRAPHIC VALIDATION FAILURE",
				zap.String("session_id", sessionID.String()),
				zap.String("event_id", e.EventID.String()),
				zap.Uint64("sequence", seq),
			)
			return 0, fmt.Errorf("%w: event %s signature invalid", auditlog.ErrTampered, e.EventID)
		}
		prev = e.Signature
	}
	return len(byseq), nil
}

func (s *AuditService) recordAccess(ctx context.Context, accessor, accessType, query string, n int) {
	if s.access == nil {
		return
	}
	entry := &domain.AuditAccessLog{
		AccessID:      uuid.New(),
		Accessor:      accessor,
		AccessType:    accessType,
		QueryFilter:   query,
		RecordsViewed: n,
		Timestamp:     time.Now().UTC(),
	}
	if err := s.access.LogAccess(ctx, entry); err != nil {
		s.logger.Error("Failed to record audit access", zap.String("type", accessType), zap.Error(err))
	}
}
