package postgres

import (
	"context"
	"fmt"

	"github.com/banking/sar-workbench/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository mirrors session audit events into the durable ledger
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// CreateEvent inserts a ledger event. This is an APPEND-ONLY operation;
// re-delivering the same event is a no-op.
func (r *AuditRepository) CreateEvent(ctx context.Context, event *domain.LedgerEvent) error {
	const query = `
		INSERT INTO sar_audit_events (
			event_id, session_id, sequence, timestamp, user_name,
			action, case_id, description, signature
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9
		)
		ON CONFLICT (event_id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		event.EventID, event.SessionID, int64(event.Sequence), event.Timestamp, event.User,
		string(event.Action), event.CaseID, event.Description, event.Signature,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// ListEvents retrieves ledger events based on filter, newest first
func (r *AuditRepository) ListEvents(ctx context.Context, filter domain.LedgerFilter) (*domain.LedgerPage, error) {
	where, args := ledgerWhere(filter)

	var totalCount int64
	countQuery := "SELECT COUNT(*) FROM sar_audit_events" + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT event_id, session_id, sequence, timestamp, user_name,
			action, case_id, description, signature
		FROM sar_audit_events` + where +
		fmt.Sprintf(" ORDER BY timestamp DESC, sequence DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []domain.LedgerEvent{}
	for rows.Next() {
		var (
			e      domain.LedgerEvent
			seq    int64
			action string
		)
		if err := rows.Scan(
			&e.EventID, &e.SessionID, &seq, &e.Timestamp, &e.User,
			&action, &e.CaseID, &e.Description, &e.Signature,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Sequence = uint64(seq)
		e.Action = domain.ActionType(action)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return &domain.LedgerPage{
		Events:     events,
		TotalCount: totalCount,
		Page:       filter.Offset/limit + 1,
		PageSize:   limit,
		HasMore:    totalCount > int64(filter.Offset+limit),
	}, nil
}

// ledgerWhere builds the WHERE clause and positional args for filter.
func ledgerWhere(filter domain.LedgerFilter) (string, []any) {
	where := " WHERE 1=1"
	args := []any{}
	add := func(clause string, v any) {
		args = append(args, v)
		where += fmt.Sprintf(clause, len(args))
	}

	if filter.SessionID != nil {
		add(" AND session_id = $%d", *filter.SessionID)
	}
	if len(filter.Actions) > 0 {
		actions := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			actions[i] = string(a)
		}
		add(" AND action = ANY($%d)", actions)
	}
	if filter.User != "" {
		add(" AND user_name = $%d", filter.User)
	}
	if filter.CaseID != "" {
		add(" AND case_id = $%d", filter.CaseID)
	}
	if filter.StartTime != nil {
		add(" AND timestamp >= $%d", *filter.StartTime)
	}
	if filter.EndTime != nil {
		add(" AND timestamp <= $%d", *filter.EndTime)
	}
	return where, args
}
