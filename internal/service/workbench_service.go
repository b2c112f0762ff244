package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banking/sar-workbench/internal/crypto"
	"github.com/banking/sar-workbench/internal/domain"
	"github.com/banking/sar-workbench/internal/metrics"
	"github.com/banking/sar-workbench/internal/narrative"
	"github.com/banking/sar-workbench/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options tunes the workbench service.
type Options struct {
	Session     session.Options
	MaskPII     bool
	SinkTimeout time.Duration
	QueueSize   int
}

// SessionView is the caller-facing snapshot of one session.
type SessionView struct {
	ID          uuid.UUID                `json:"session_id"`
	ActiveCase  domain.Alert             `json:"active_case"`
	Role        domain.Role              `json:"role"`
	CurrentUser string                   `json:"current_user"`
	Evidence    domain.EvidenceSelection `json:"evidence"`
	Summary     domain.EvidenceSummary   `json:"evidence_summary"`
	Draft       domain.Draft             `json:"draft"`
	AuditEvents int                      `json:"audit_events"`
	CreatedAt   time.Time                `json:"created_at"`
}

type handle struct {
	mu        sync.Mutex
	id        uuid.UUID
	sess      *session.Session
	published uint64
	createdAt time.Time
	// closed is set under mu once the session's log has been handed to the archive.
	closed bool
}

// WorkbenchService owns independent workflow sessions and serialises the
// actions on each one.
type WorkbenchService struct {
	catalog   session.Catalog
	formatter narrative.Formatter
	opts      Options
	sinks     Sinks
	metrics   *metrics.Metrics
	logger    *zap.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*handle
	// filed counts SARSubmitted events across all sessions, closed ones included.
	filed atomic.Int64

	jobs        chan mirrorJob
	mirrorDone  chan struct{}
	closeMu     sync.RWMutex
	closed      bool
	sinkTimeout time.Duration
}

// NewWorkbenchService creates the service. m may be nil.
func NewWorkbenchService(
	catalog session.Catalog,
	formatter narrative.Formatter,
	opts Options,
	sinks Sinks,
	m *metrics.Metrics,
	logger *zap.Logger,
) *WorkbenchService {
	s := &WorkbenchService{
		catalog:     catalog,
		formatter:   formatter,
		opts:        opts,
		sinks:       sinks,
		metrics:     m,
		logger:      logger,
		sessions:    make(map[uuid.UUID]*handle),
		sinkTimeout: opts.SinkTimeout,
	}
	if s.sinkTimeout <= 0 {
		s.sinkTimeout = 5 * time.Second
	}
	if !sinks.empty() {
		size := opts.QueueSize
		if size <= 0 {
			size = 1024
		}
		s.jobs = make(chan mirrorJob, size)
		s.mirrorDone = make(chan struct{})
		go s.runMirror()
	}
	return s
}

// Close stops accepting mirror work and waits for queued jobs to drain.
func (s *WorkbenchService) Close() {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return
	}
	s.closed = true
	if s.jobs != nil {
		close(s.jobs)
	}
	s.closeMu.Unlock()

	if s.mirrorDone != nil {
		<-s.mirrorDone
	}
}

// CreateSession opens a new session on the default case.
func (s *WorkbenchService) CreateSession(ctx context.Context) (SessionView, error) {
	sess, err := session.New(s.catalog, s.formatter, s.opts.Session)
	if err != nil {
		return SessionView{}, fmt.Errorf("create session: %w", err)
	}

	h := &handle{id: uuid.New(), sess: sess, createdAt: time.Now().UTC()}
	s.mu.Lock()
	s.sessions[h.id] = h
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ActiveSessions.Inc()
	}
	s.logger.Info("Session opened",
		zap.String("session_id", h.id.String()),
		zap.String("case_id", sess.ActiveCase().CaseID),
		zap.String("role", string(sess.Role())),
	)
	return view(h), nil
}

// GetSession returns a snapshot of the session.
func (s *WorkbenchService) GetSession(ctx context.Context, id uuid.UUID) (SessionView, error) {
	var out SessionView
	err := s.read(id, func(h *handle) { out = view(h) })
	return out, err
}

// CloseSession tears the session down and archives its audit log.
func (s *WorkbenchService) CloseSession(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	h, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return sessionNotFound(id)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return sessionNotFound(id)
	}
	h.closed = true
	s.flush(h)
	s.enqueue(mirrorJob{closed: &closedLog{
		sessionID: id,
		events:    h.sess.Log().Since(0),
		closedAt:  time.Now().UTC(),
	}})

	if s.metrics != nil {
		s.metrics.ActiveSessions.Dec()
	}
	s.logger.Info("Session closed",
		zap.String("session_id", id.String()),
		zap.Int("audit_events", h.sess.Log().Len()),
	)
	return nil
}

// SelectCase switches the active case.
func (s *WorkbenchService) SelectCase(ctx context.Context, id uuid.UUID, alertID string) (SessionView, error) {
	var out SessionView
	err := s.act(id, "select_case", func(h *handle) error {
		alert, changed, err := h.sess.SelectCase(alertID)
		if err != nil {
			return err
		}
		if changed {
			s.logger.Info("Case selected",
				zap.String("session_id", id.String()),
				zap.String("case_id", alert.CaseID),
				zap.String("subject", s.mask(alert.CustomerName)),
			)
		}
		out = view(h)
		return nil
	})
	return out, err
}

// ActiveCustomer returns the KYC record for the session's active case.
func (s *WorkbenchService) ActiveCustomer(ctx context.Context, id uuid.UUID) (domain.Customer, error) {
	var (
		out domain.Customer
		err error
	)
	if rerr := s.read(id, func(h *handle) { out, err = h.sess.ActiveCustomer() }); rerr != nil {
		return out, rerr
	}
	if err == nil {
		s.logger.Info("Customer profile viewed",
			zap.String("session_id", id.String()),
			zap.String("customer_id", out.CustomerID),
			zap.String("subject", s.mask(out.Name)),
			zap.String("account", s.maskAccount(out.Account.AccountNumber)),
		)
	}
	return out, err
}

// Dashboard derives the landing counters from the catalog and the live sessions.
func (s *WorkbenchService) Dashboard(ctx context.Context) domain.DashboardSummary {
	out := domain.SummarizeAlerts(s.catalog.Alerts())

	s.mu.RLock()
	handles := make([]*handle, 0, len(s.sessions))
	for _, h := range s.sessions {
		handles = append(handles, h)
	}
	s.mu.RUnlock()

	for _, h := range handles {
		h.mu.Lock()
		if !h.closed && h.sess.AwaitingSubmission() {
			out.PendingNarratives++
		}
		h.mu.Unlock()
	}
	out.CompletedReports = int(s.filed.Load())
	return out
}

// UpdateEvidence replaces the evidence selection.
func (s *WorkbenchService) UpdateEvidence(ctx context.Context, id uuid.UUID, entries []domain.EvidenceEntry) (domain.EvidenceSummary, error) {
	var out domain.EvidenceSummary
	err := s.act(id, "update_evidence", func(h *handle) error {
		summary, err := h.sess.UpdateEvidence(entries)
		out = summary
		return err
	})
	return out, err
}

// EvidenceSummary derives the current evidence totals.
func (s *WorkbenchService) EvidenceSummary(ctx context.Context, id uuid.UUID) (domain.EvidenceSummary, error) {
	var out domain.EvidenceSummary
	err := s.read(id, func(h *handle) { out = h.sess.EvidenceSummary() })
	return out, err
}

// GenerateDraft renders a new narrative version.
func (s *WorkbenchService) GenerateDraft(ctx context.Context, id uuid.UUID, req session.GenerateRequest) (domain.Draft, error) {
	return s.draftAction(id, "generate_draft", func(sess *session.Session) (domain.Draft, error) {
		return sess.GenerateDraft(req)
	})
}

// EditDraft overwrites the working text.
func (s *WorkbenchService) EditDraft(ctx context.Context, id uuid.UUID, text string) (domain.Draft, error) {
	return s.draftAction(id, "edit_draft", func(sess *session.Session) (domain.Draft, error) {
		return sess.EditDraft(text)
	})
}

// SaveDraft checkpoints a new version.
func (s *WorkbenchService) SaveDraft(ctx context.Context, id uuid.UUID, text string) (domain.Draft, error) {
	return s.draftAction(id, "save_draft", func(sess *session.Session) (domain.Draft, error) {
		return sess.SaveDraft(text)
	})
}

// RequestReview hands the draft to a reviewer.
func (s *WorkbenchService) RequestReview(ctx context.Context, id uuid.UUID, text string) (domain.Draft, error) {
	return s.draftAction(id, "request_review", func(sess *session.Session) (domain.Draft, error) {
		return sess.RequestReview(text)
	})
}

// SubmitSAR files the report. The submission is archived when an archive is configured.
func (s *WorkbenchService) SubmitSAR(ctx context.Context, id uuid.UUID, text string) (domain.Draft, error) {
	return s.draftAction(id, "submit_sar", func(sess *session.Session) (domain.Draft, error) {
		return sess.SubmitSAR(text)
	})
}

// Approve records a reviewer approval.
func (s *WorkbenchService) Approve(ctx context.Context, id uuid.UUID) (domain.AuditEvent, error) {
	var out domain.AuditEvent
	err := s.act(id, "approve", func(h *handle) error {
		event, err := h.sess.Approve()
		out = event
		return err
	})
	return out, err
}

// Reject records a reviewer rejection.
func (s *WorkbenchService) Reject(ctx context.Context, id uuid.UUID) (domain.AuditEvent, error) {
	var out domain.AuditEvent
	err := s.act(id, "reject", func(h *handle) error {
		event, err := h.sess.Reject()
		out = event
		return err
	})
	return out, err
}

// SetRole switches the session role.
func (s *WorkbenchService) SetRole(ctx context.Context, id uuid.UUID, role domain.Role) (SessionView, error) {
	var out SessionView
	err := s.act(id, "set_role", func(h *handle) error {
		if err := h.sess.SetRole(role); err != nil {
			return err
		}
		out = view(h)
		return nil
	})
	return out, err
}

// QueryAuditLog filters the session's audit log and records the read.
func (s *WorkbenchService) QueryAuditLog(ctx context.Context, id uuid.UUID, filter domain.AuditEventFilter) ([]domain.AuditEvent, error) {
	var (
		out    []domain.AuditEvent
		access *domain.AuditAccessLog
	)
	err := s.read(id, func(h *handle) {
		out = h.sess.QueryAuditLog(filter)
		access = &domain.AuditAccessLog{
			AccessID:      uuid.New(),
			SessionID:     id,
			Accessor:      h.sess.CurrentUser(),
			AccessorRole:  h.sess.Role(),
			AccessType:    "VIEW",
			QueryFilter:   describeFilter(filter),
			RecordsViewed: len(out),
			Timestamp:     time.Now().UTC(),
		}
	})
	if err != nil {
		return nil, err
	}
	s.enqueue(mirrorJob{access: access})
	return out, nil
}

// VerifySession re-walks the session's signature chain.
func (s *WorkbenchService) VerifySession(ctx context.Context, id uuid.UUID) error {
	var verr error
	if err := s.read(id, func(h *handle) { verr = h.sess.Log().Verify() }); err != nil {
		return err
	}
	return verr
}

func (s *WorkbenchService) draftAction(id uuid.UUID, op string, fn func(*session.Session) (domain.Draft, error)) (domain.Draft, error) {
	var out domain.Draft
	err := s.act(id, op, func(h *handle) error {
		d, err := fn(h.sess)
		out = d
		return err
	})
	return out, err
}

func (s *WorkbenchService) lookup(id uuid.UUID) (*handle, error) {
	s.mu.RLock()
	h, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, sessionNotFound(id)
	}
	return h, nil
}

// read runs fn under the session lock without mirroring.
func (s *WorkbenchService) read(id uuid.UUID, fn func(*handle)) error {
	h, err := s.lookup(id)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return sessionNotFound(id)
	}
	fn(h)
	return nil
}

// act runs one mutating action to completion, then mirrors whatever it appended.
func (s *WorkbenchService) act(id uuid.UUID, op string, fn func(*handle) error) error {
	h, err := s.lookup(id)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return sessionNotFound(id)
	}

	started := time.Now()
	err = fn(h)
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, started)
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordRejection(op, err)
		}
		s.logger.Info("Action rejected",
			zap.String("session_id", id.String()),
			zap.String("operation", op),
			zap.Error(err),
		)
		return err
	}
	s.flush(h)
	return nil
}

// flush logs, counts and mirrors the events appended since the last flush.
func (s *WorkbenchService) flush(h *handle) {
	events := h.sess.Log().Since(h.published)
	if len(events) == 0 {
		return
	}
	h.published = h.sess.Log().Last()

	job := mirrorJob{events: make([]domain.LedgerEvent, 0, len(events))}
	for _, e := range events {
		if s.metrics != nil {
			s.metrics.RecordAction(e.Action)
		}
		s.logger.Info("Audit event appended",
			zap.String("session_id", h.id.String()),
			zap.Uint64("sequence", e.Sequence),
			zap.String("action", string(e.Action)),
			zap.String("case_id", e.CaseID),
			zap.String("user", e.User),
		)
		job.events = append(job.events, domain.LedgerEvent{SessionID: h.id, AuditEvent: e})

		if e.Action == domain.ActionSARSubmitted {
			s.filed.Add(1)
			sub := h.sess.Submission(e.Timestamp)
			sub.SessionID = h.id.String()
			sub.EventID = e.EventID.String()
			sub.Sequence = e.Sequence
			job.submission = &sub
		}
	}
	s.enqueue(job)
}

func (s *WorkbenchService) mask(name string) string {
	if !s.opts.MaskPII {
		return name
	}
	return crypto.MaskPII(name, "name")
}

func (s *WorkbenchService) maskAccount(number string) string {
	if !s.opts.MaskPII || number == "" {
		return number
	}
	return crypto.MaskPII(number, "account")
}

func view(h *handle) SessionView {
	return SessionView{
		ID:          h.id,
		ActiveCase:  h.sess.ActiveCase(),
		Role:        h.sess.Role(),
		CurrentUser: h.sess.CurrentUser(),
		Evidence:    h.sess.Evidence(),
		Summary:     h.sess.EvidenceSummary(),
		Draft:       h.sess.Draft(),
		AuditEvents: h.sess.Log().Len(),
		CreatedAt:   h.createdAt,
	}
}

func sessionNotFound(id uuid.UUID) error {
	return fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
}

func describeFilter(f domain.AuditEventFilter) string {
	out := ""
	for _, a := range f.Actions {
		out += "action=" + string(a) + ";"
	}
	if f.User != "" {
		out += "user=" + f.User + ";"
	}
	if f.CaseID != "" {
		out += "case_id=" + f.CaseID + ";"
	}
	return out
}
