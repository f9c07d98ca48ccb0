package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Jamarblack/Degen-Arena/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Column order shared by every wager SELECT. NUMERIC columns are read as text
// so no precision is lost on the way into decimal.Decimal.
const wagerColumns = `id, user_address, coin_symbol, entry_price::text, amount::text, bet_type, status,
	client_tx_ref, settlement_price::text, payout_tx, payout_amount::text, payout_lamports,
	payout_confirmed_at, settled_at, created_at`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// WagerRepo implements ports.WagerRepository on the bets table.
type WagerRepo struct {
	pool Pool
}

// NewWagerRepo creates a new WagerRepo.
func NewWagerRepo(pool Pool) *WagerRepo {
	return &WagerRepo{pool: pool}
}

func (r *WagerRepo) exec(tx pgx.Tx) execer {
	if tx != nil {
		return tx
	}
	return r.pool
}

// Insert stores a new open wager, ignoring a repeated client reference.
func (r *WagerRepo) Insert(ctx context.Context, tx pgx.Tx, w *domain.Wager) (bool, error) {
	query := `INSERT INTO bets (id, user_address, coin_symbol, entry_price, amount, bet_type, status, client_tx_ref, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8, $9)
		ON CONFLICT (client_tx_ref) DO NOTHING`

	tag, err := r.exec(tx).Exec(ctx, query,
		w.ID, w.BettorAddress, w.AssetSymbol, w.EntryPrice.String(), w.Stake.String(),
		string(w.Direction), string(w.Status), nullableString(w.ClientTxRef), w.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert wager: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByID fetches a wager by UUID. Returns nil, nil when absent.
func (r *WagerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM bets WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByClientTxRef fetches a wager by the collaborator's reference. Returns nil, nil when absent.
func (r *WagerRepo) GetByClientTxRef(ctx context.Context, ref string) (*domain.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM bets WHERE client_tx_ref = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, ref))
}

// ListOpen returns every open wager, oldest first.
func (r *WagerRepo) ListOpen(ctx context.Context) ([]domain.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM bets WHERE status = 'open' ORDER BY created_at ASC`
	return r.queryMany(ctx, "list open wagers", query)
}

// ListByBettor returns a bettor's wagers, newest first.
func (r *WagerRepo) ListByBettor(ctx context.Context, bettor string, limit int) ([]domain.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM bets WHERE user_address = $1 ORDER BY created_at DESC LIMIT $2`
	return r.queryMany(ctx, "list wagers by bettor", query, bettor, limit)
}

// ListHighStakes returns wagers staking more than minStake, newest first.
func (r *WagerRepo) ListHighStakes(ctx context.Context, minStake decimal.Decimal, limit int) ([]domain.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM bets WHERE amount > $1::numeric ORDER BY created_at DESC LIMIT $2`
	return r.queryMany(ctx, "list high-stakes wagers", query, minStake.String(), limit)
}

// ListWinners returns the most recently paid wagers.
func (r *WagerRepo) ListWinners(ctx context.Context, limit int) ([]domain.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM bets WHERE status = 'won' ORDER BY settled_at DESC LIMIT $1`
	return r.queryMany(ctx, "list winners", query, limit)
}

// MarkWon moves an open wager to won with its receipt attached.
// Returns false when the wager was no longer open.
func (r *WagerRepo) MarkWon(ctx context.Context, tx pgx.Tx, id uuid.UUID, receipt domain.PayoutReceipt, decision domain.SettlementDecision) (bool, error) {
	query := `UPDATE bets SET status = 'won', payout_tx = $2, payout_amount = $3::numeric, payout_lamports = $4,
		payout_confirmed_at = $5, settlement_price = $6::numeric, settled_at = $7
		WHERE id = $1 AND status = 'open'`

	if receipt.Lamports > math.MaxInt64 {
		return false, fmt.Errorf("mark wager won: %w: %d lamports", domain.ErrAmountOutOfRange, receipt.Lamports)
	}

	tag, err := r.exec(tx).Exec(ctx, query,
		id, receipt.TransactionRef, receipt.Amount.String(), int64(receipt.Lamports),
		receipt.ConfirmedAt, decision.ObservedPrice.String(), decision.DecidedAt,
	)
	if err != nil {
		return false, fmt.Errorf("mark wager won: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkLost moves an open wager to lost. Returns false when it was no longer open.
func (r *WagerRepo) MarkLost(ctx context.Context, tx pgx.Tx, id uuid.UUID, decision domain.SettlementDecision) (bool, error) {
	query := `UPDATE bets SET status = 'lost', settlement_price = $2::numeric, settled_at = $3
		WHERE id = $1 AND status = 'open'`

	tag, err := r.exec(tx).Exec(ctx, query, id, decision.ObservedPrice.String(), decision.DecidedAt)
	if err != nil {
		return false, fmt.Errorf("mark wager lost: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CountByStatus returns the number of wagers per status.
func (r *WagerRepo) CountByStatus(ctx context.Context) (map[domain.WagerStatus]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM bets GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count wagers: %w", err)
	}
	defer rows.Close()

	counts := map[domain.WagerStatus]int64{
		domain.WagerStatusOpen: 0,
		domain.WagerStatusWon:  0,
		domain.WagerStatusLost: 0,
	}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan wager count: %w", err)
		}
		counts[domain.WagerStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wager counts: %w", err)
	}
	return counts, nil
}

func (r *WagerRepo) queryMany(ctx context.Context, op, query string, args ...any) ([]domain.Wager, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var wagers []domain.Wager
	for rows.Next() {
		w, err := scanWager(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		wagers = append(wagers, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return wagers, nil
}

func (r *WagerRepo) scanOne(row pgx.Row) (*domain.Wager, error) {
	w, err := scanWager(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wager: %w", err)
	}
	return w, nil
}

func scanWager(row pgx.Row) (*domain.Wager, error) {
	var (
		w                          domain.Wager
		entry, stake               string
		direction, status          string
		clientRef, settlePrice     *string
		payoutTx, payoutAmount     *string
		payoutLamports             *int64
		payoutConfirmed, settledAt *time.Time
	)
	err := row.Scan(
		&w.ID, &w.BettorAddress, &w.AssetSymbol, &entry, &stake, &direction, &status,
		&clientRef, &settlePrice, &payoutTx, &payoutAmount, &payoutLamports,
		&payoutConfirmed, &settledAt, &w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if w.EntryPrice, err = decimal.NewFromString(entry); err != nil {
		return nil, fmt.Errorf("parse entry price: %w", err)
	}
	if w.Stake, err = decimal.NewFromString(stake); err != nil {
		return nil, fmt.Errorf("parse stake: %w", err)
	}
	w.Direction = domain.Direction(direction)
	w.Status = domain.WagerStatus(status)
	w.SettledAt = settledAt
	if clientRef != nil {
		w.ClientTxRef = *clientRef
	}
	if settlePrice != nil {
		p, err := decimal.NewFromString(*settlePrice)
		if err != nil {
			return nil, fmt.Errorf("parse settlement price: %w", err)
		}
		w.SettlementPrice = &p
	}
	if payoutTx != nil {
		receipt := domain.PayoutReceipt{TransactionRef: *payoutTx}
		if payoutAmount != nil {
			if receipt.Amount, err = decimal.NewFromString(*payoutAmount); err != nil {
				return nil, fmt.Errorf("parse payout amount: %w", err)
			}
		}
		if payoutLamports != nil {
			receipt.Lamports = uint64(*payoutLamports)
		}
		if payoutConfirmed != nil {
			receipt.ConfirmedAt = *payoutConfirmed
		}
		w.Receipt = &receipt
	}
	return &w, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
