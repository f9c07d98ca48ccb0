package ports

import (
	"context"

	"github.com/Jamarblack/Degen-Arena/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WagerRepository defines persistence operations for wagers.
// Status writes are compare-and-set on status = 'open' and report whether the row moved.
// Methods accepting pgx.Tx run inside the caller's transaction.
type WagerRepository interface {
	// Insert stores a new open wager. It returns false without error when a wager
	// with the same client reference already exists.
	Insert(ctx context.Context, tx pgx.Tx, w *domain.Wager) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wager, error)
	GetByClientTxRef(ctx context.Context, ref string) (*domain.Wager, error)
	ListOpen(ctx context.Context) ([]domain.Wager, error)
	ListByBettor(ctx context.Context, bettor string, limit int) ([]domain.Wager, error)
	ListHighStakes(ctx context.Context, minStake decimal.Decimal, limit int) ([]domain.Wager, error)
	ListWinners(ctx context.Context, limit int) ([]domain.Wager, error)
	MarkWon(ctx context.Context, tx pgx.Tx, id uuid.UUID, receipt domain.PayoutReceipt, decision domain.SettlementDecision) (bool, error)
	MarkLost(ctx context.Context, tx pgx.Tx, id uuid.UUID, decision domain.SettlementDecision) (bool, error)
	CountByStatus(ctx context.Context) (map[domain.WagerStatus]int64, error)
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	CreateTx(ctx context.Context, tx pgx.Tx, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
