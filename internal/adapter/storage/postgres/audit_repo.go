package postgres

import (
	"context"
	"fmt"

	"github.com/Jamarblack/Degen-Arena/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const insertAudit = `INSERT INTO audit_logs (id, action, resource_type, resource_id, details, ip_address, created_at)
	VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)`

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a PostgreSQL-backed AuditRepository.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Create inserts an audit entry outside any transaction.
func (r *AuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	return r.insert(ctx, r.pool, log)
}

// CreateTx inserts an audit entry inside the caller's transaction.
func (r *AuditRepo) CreateTx(ctx context.Context, tx pgx.Tx, log *domain.AuditLog) error {
	return r.insert(ctx, tx, log)
}

func (r *AuditRepo) insert(ctx context.Context, db execer, log *domain.AuditLog) error {
	_, err := db.Exec(ctx, insertAudit,
		log.ID, string(log.Action), log.ResourceType,
		nullableString(log.ResourceID), nullableString(log.Details), log.IPAddress, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
