package service

import (
	"context"
	"time"

	"github.com/banking/sar-workbench/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventStore is the durable audit ledger (Postgres).
type EventStore interface {
	CreateEvent(ctx context.Context, event *domain.LedgerEvent) error
}

// EventIndex makes events searchable (Elasticsearch).
type EventIndex interface {
	IndexEvent(ctx context.Context, event *domain.LedgerEvent) error
}

// EventPublisher streams events to other systems (Kafka).
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.LedgerEvent) error
}

// Archive keeps filed reports and closed-session logs (S3).
type Archive interface {
	ArchiveSubmission(ctx context.Context, sub domain.SARSubmission) (string, error)
	ArchiveAuditLog(ctx context.Context, sessionID uuid.UUID, events []domain.AuditEvent, closedAt time.Time) (string, error)
}

// AccessRecorder stores audit-of-audit entries.
type AccessRecorder interface {
	LogAccess(ctx context.Context, entry *domain.AuditAccessLog) error
}

// Sinks are the optional mirrors of session activity. Nil members are skipped.
// The in-memory session log stays authoritative; sink failures never fail an action.
type Sinks struct {
	Store     EventStore
	Index     EventIndex
	Publisher EventPublisher
	Archive   Archive
	Access    AccessRecorder
}

func (s Sinks) empty() bool {
	return s.Store == nil && s.Index == nil && s.Publisher == nil && s.Archive == nil && s.Access == nil
}

type closedLog struct {
	sessionID uuid.UUID
	events    []domain.AuditEvent
	closedAt  time.Time
}

// mirrorJob is one unit of work for the sink worker. Jobs are processed in
// enqueue order so per-session event order is preserved downstream.
type mirrorJob struct {
	events     []domain.LedgerEvent
	submission *domain.SARSubmission
	closed     *closedLog
	access     *domain.AuditAccessLog
}

// enqueue hands a job to the worker without blocking the caller.
func (s *WorkbenchService) enqueue(job mirrorJob) {
	if s.jobs == nil {
		return
	}
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.jobs <- job:
	default:
		s.logger.Warn("Sink queue full, dropping mirror job", zap.Int("events", len(job.events)))
		s.recordSinkFailure("queue")
	}
}

func (s *WorkbenchService) runMirror() {
	defer close(s.mirrorDone)
	for job := range s.jobs {
		s.processJob(job)
	}
}

// processJob handles one job with panic protection
func (s *WorkbenchService) processJob(job mirrorJob) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic in sink worker", zap.Any("panic", r))
		}
	}()

	// Use a detached context for async operations
	ctx, cancel := context.WithTimeout(context.Background(), s.sinkTimeout)
	defer cancel()

	for i := range job.events {
		event := &job.events[i]
		if s.sinks.Store != nil {
			s.sinkCall("postgres", event, s.sinks.Store.CreateEvent(ctx, event))
		}
		if s.sinks.Index != nil {
			s.sinkCall("elasticsearch", event, s.sinks.Index.IndexEvent(ctx, event))
		}
		if s.sinks.Publisher != nil {
			s.sinkCall("kafka", event, s.sinks.Publisher.Publish(ctx, event))
		}
	}

	if job.submission != nil && s.sinks.Archive != nil {
		key, err := s.sinks.Archive.ArchiveSubmission(ctx, *job.submission)
		if err != nil {
			s.logger.Error("Failed to archive SAR submission",
				zap.String("session_id", job.submission.SessionID),
				zap.String("case_id", job.submission.CaseID),
				zap.Error(err),
			)
			s.recordSinkFailure("s3")
		} else {
			s.logger.Info("SAR submission archived", zap.String("key", key))
		}
	}

	if job.closed != nil && s.sinks.Archive != nil {
		if _, err := s.sinks.Archive.ArchiveAuditLog(ctx, job.closed.sessionID, job.closed.events, job.closed.closedAt); err != nil {
			s.logger.Error("Failed to archive session audit log",
				zap.String("session_id", job.closed.sessionID.String()),
				zap.Error(err),
			)
			s.recordSinkFailure("s3")
		}
	}

	if job.access != nil && s.sinks.Access != nil {
		if err := s.sinks.Access.LogAccess(ctx, job.access); err != nil {
			s.logger.Error("Failed to record audit access", zap.Error(err))
			s.recordSinkFailure("access_log")
		}
	}
}

func (s *WorkbenchService) sinkCall(sink string, event *domain.LedgerEvent, err error) {
	if err == nil {
		return
	}
	s.logger.Error("Failed to mirror audit event",
		zap.String("sink", sink),
		zap.String("event_id", event.EventID.String()),
		zap.Error(err),
	)
	s.recordSinkFailure(sink)
}

func (s *WorkbenchService) recordSinkFailure(sink string) {
	if s.metrics != nil {
		s.metrics.RecordSinkFailure(sink)
	}
}
