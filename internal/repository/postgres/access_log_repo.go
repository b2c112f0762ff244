package postgres

import (
	"context"
	"fmt"

	"github.com/banking/sar-workbench/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccessLogRepository implements repository for access logs
type AccessLogRepository struct {
	pool *pgxpool.Pool
}

// NewAccessLogRepository creates a new access log repository
func NewAccessLogRepository(pool *pgxpool.Pool) *AccessLogRepository {
	return &AccessLogRepository{
		pool: pool,
	}
}

// LogAccess records who read the audit log
func (r *AccessLogRepository) LogAccess(ctx context.Context, entry *domain.AuditAccessLog) error {
	const query = `
		INSERT INTO audit_access_logs (
			access_id, session_id, accessor, accessor_role,
			access_type, query_filter, records_viewed, timestamp
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8
		)
	`
	_, err := r.pool.Exec(ctx, query,
		entry.AccessID, entry.SessionID, entry.Accessor, string(entry.AccessorRole),
		entry.AccessType, entry.QueryFilter, entry.RecordsViewed, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert access log: %w", err)
	}
	return nil
}
