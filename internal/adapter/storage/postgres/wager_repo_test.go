package postgres

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Jamarblack/Degen-Arena/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTestWager() *domain.Wager {
	return &domain.Wager{
		ID:            uuid.New(),
		BettorAddress: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		AssetSymbol:   "BONK",
		EntryPrice:    decimal.RequireFromString("0.00002131"),
		Stake:         decimal.RequireFromString("0.75"),
		Direction:     domain.DirectionLong,
		Status:        domain.WagerStatusOpen,
		ClientTxRef:   "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

func wagerCols() []string {
	return []string{"id", "user_address", "coin_symbol", "entry_price", "amount", "bet_type", "status",
		"client_tx_ref", "settlement_price", "payout_tx", "payout_amount", "payout_lamports",
		"payout_confirmed_at", "settled_at", "created_at"}
}

func openRow(rows *pgxmock.Rows, w *domain.Wager) *pgxmock.Rows {
	return rows.AddRow(
		w.ID, w.BettorAddress, w.AssetSymbol, w.EntryPrice.String(), w.Stake.String(),
		string(w.Direction), string(w.Status), strPtr(w.ClientTxRef),
		(*string)(nil), (*string)(nil), (*string)(nil), (*int64)(nil),
		(*time.Time)(nil), (*time.Time)(nil), w.CreatedAt,
	)
}

func TestWagerRepo_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWagerRepo(mock)
	w := newTestWager()

	mock.ExpectExec("INSERT INTO bets").
		WithArgs(
			w.ID, w.BettorAddress, w.AssetSymbol, "0.00002131", "0.75",
			"long", "open", strPtr(w.ClientTxRef), w.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	created, err := repo.Insert(context.Background(), nil, w)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWagerRepo_Insert_DuplicateReference(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWagerRepo(mock)
	w := newTestWager()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bets .+ ON CONFLICT \\(client_tx_ref\\) DO NOTHING").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	created, err := repo.Insert(context.Background(), dbTx, w)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWagerRepo_Insert_NoClientReference(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWagerRepo(mock)
	w := newTestWager()
	w.ClientTxRef = ""

	mock.ExpectExec("INSERT INTO bets").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), (*string)(nil), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	created, err := repo.Insert(context.Background(), nil, w)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWagerRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWagerRepo(mock)
	w := newTestWager()

	mock.ExpectQuery("SELECT .+ FROM bets WHERE id").
		WithArgs(w.ID).
		WillReturnRows(openRow(pgxmock.NewRows(wagerCols()), w))

	got, err := repo.GetByID(context.Background(), w.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, w.ID, got.ID)
	assert.Equal(t, "BONK", got.AssetSymbol)
	assert.True(t, got.EntryPrice.Equal(w.EntryPrice))
	assert.True(t, got.Stake.Equal(w.Stake))
	assert.Equal(t, domain.DirectionLong, got.Direction)
	assert.Equal(t, domain.WagerStatusOpen, got.Status)
	assert.Equal(t, w.ClientTxRef, got.ClientTxRef)
	assert.Nil(t, got.Receipt)
	assert.Nil(t, got.SettlementPrice)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWagerRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWagerRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM bets WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(wagerCols()))

	got, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWagerRepo_GetByClientTxRef_WonWithReceipt(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWagerRepo(mock)
	w := newTestWager()
	confirmed := w.CreatedAt.Add(5 * time.Minute)
	lamports := int64(1_425_000_000)

	mock.ExpectQuery("SELECT .+ FROM bets WHERE client_tx_ref").
		WithArgs(w.ClientTxRef).
		WillReturnRows(pgxmock.NewRows(wagerCols()).AddRow(
			w.ID, w.BettorAddress, w.AssetSymbol, "0.00002131", "0.75", "long", "won",
			strPtr(w.ClientTxRef), strPtr("0.00002500"), strPtr("sig123"), strPtr("1.425"), &lamports,
			&confirmed, &confirmed, w.CreatedAt,
		))

	got, err := repo.GetByClientTxRef(context.Background(), w.ClientTxRef)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.WagerStatusWon, got.Status)
	require.NotNil(t, got.Receipt)
	assert.Equal(t, "sig123", got.Receipt.TransactionRef)
	assert.True(t, got.Receipt.Amount.Equal(decimal.RequireFromString("1.425")))
	assert.Equal(t, uint64(1_425_000_000), got.Receipt.Lamports)
	assert.Equal(t, confirmed, got.Receipt.ConfirmedAt)
	require.NotNil(t, got.SettlementPrice)
	assert.True(t, got.SettlementPrice.Equal(decimal.RequireFromString("0.000025")))
	require.NotNil(t, got.SettledAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWagerRepo_GetByID_BadNumeric(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWagerRepo(mock)
	w := newTestWager()
	w.ClientTxRef = "ref"

	rows := pgxmock.NewRows(wagerCols()).AddRow(
		w.ID, w.BettorAddress, w.AssetSymbol, "NaN-ish", "0.75", "long", "open",
		strPtr("ref"), (*string)(nil), (*string)(nil), (*string)(nil), (*int64)(nil),
		(*time.Time)(nil), (*time.Time)(nil), w.CreatedAt,
	)
	mock.ExpectQuery("SELECT .+ FROM bets WHERE id").WithArgs(w.ID).WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), w.ID)
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestWagerRepo_ListOpen(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWagerRepo(mock)
	w1, w2 := newTestWager(), newTestWager()
	w2.Direction = domain.DirectionShort

	rows := openRow(openRow(pgxmock.NewRows(wagerCols()), w1), w2)
	mock.ExpectQuery("SELECT .+ FROM bets WHERE status = 'open' ORDER BY created_at ASC").
		WillReturnRows(rows)

	got, err := repo.ListOpen(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, w1.ID, got[0].ID)
	assert.Equal(t, domain.DirectionShort, got[1].Direction)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWagerRepo_ListOpen_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWagerRepo(mock)
	mock.ExpectQuery("SELECT .+ FROM bets").WillReturnError(errors.New("connection reset"))

	got, err := repo.ListOpen(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list open wagers")
	assert.Nil(t, got)
}

func TestWagerRepo_ListQueries(t *testing.T) {
	w := newTestWager()

	tests := []struct {
		name  string
		query string
		args  []interface{}
		call  func(r *WagerRepo) ([]domain.Wager, error)
	}{
		{
			name:  "by bettor",
			query: "SELECT .+ FROM bets WHERE user_address = \\$1 ORDER BY created_at DESC LIMIT \\$2",
			args:  []interface{}{w.BettorAddress, 50},
			call: func(r *WagerRepo) ([]domain.Wager, error) {
				return r.ListByBettor(context.Background(), w.BettorAddress, 50)
			},
		},
		{
			name:  "high stakes",
			query: "SELECT .+ FROM bets WHERE amount > \\$1::numeric ORDER BY created_at DESC LIMIT \\$2",
			args:  []interface{}{"0.5", 5},
			call: func(r *WagerRepo) ([]domain.Wager, error) {
				return r.ListHighStakes(context.Background(), decimal.RequireFromString("0.5"), 5)
			},
		},
		{
			name:  "winners",
			query: "SELECT .+ FROM bets WHERE status = 'won' ORDER BY settled_at DESC LIMIT \\$1",
			args:  []interface{}{10},
			call: func(r *WagerRepo) ([]domain.Wager, error) {
				return r.ListWinners(context.Background(), 10)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectQuery(tt.query).
				WithArgs(tt.args...).
				WillReturnRows(openRow(pgxmock.NewRows(wagerCols()), w))

			got, err := tt.call(NewWagerRepo(mock))
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, w.ID, got[0].ID)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWagerRepo_MarkWon(t *testing.T) {
	w := newTestWager()
	now := time.Now().UTC().Truncate(time.Microsecond)
	receipt := domain.PayoutReceipt{
		TransactionRef: "4sGjMW1sUnHzSxGspuhpqLDx6wiyjNtZ",
		Amount:         decimal.RequireFromString("1.425"),
		Lamports:       1_425_000_000,
		ConfirmedAt:    now,
	}
	decision := domain.SettlementDecision{WagerID: w.ID, ObservedPrice: decimal.RequireFromString("0.000025"), Won: true, DecidedAt: now}

	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"open row transitions", 1, true},
		{"already settled", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectBegin()
			mock.ExpectExec("UPDATE bets SET status = 'won'.+WHERE id = \\$1 AND status = 'open'").
				WithArgs(w.ID, receipt.TransactionRef, "1.425", int64(1_425_000_000), now, "0.000025", now).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			dbTx, err := mock.Begin(context.Background())
			require.NoError(t, err)

			moved, err := NewWagerRepo(mock).MarkWon(context.Background(), dbTx, w.ID, receipt, decision)
			require.NoError(t, err)
			assert.Equal(t, tt.want, moved)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWagerRepo_MarkLost(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	now := time.Now().UTC()
	decision := domain.SettlementDecision{WagerID: id, ObservedPrice: decimal.RequireFromString("99.5"), DecidedAt: now}

	mock.ExpectExec("UPDATE bets SET status = 'lost'.+WHERE id = \\$1 AND status = 'open'").
		WithArgs(id, "99.5", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	moved, err := NewWagerRepo(mock).MarkLost(context.Background(), nil, id, decision)
	require.NoError(t, err)
	assert.True(t, moved)

	mock.ExpectExec("UPDATE bets SET status = 'lost'").
		WithArgs(id, "99.5", now).
		WillReturnError(errors.New("deadlock detected"))

	_, err = NewWagerRepo(mock).MarkLost(context.Background(), nil, id, decision)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWagerRepo_CountByStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT status, COUNT\\(\\*\\) FROM bets GROUP BY status").
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("open", int64(3)).
			AddRow("won", int64(7)))

	counts, err := NewWagerRepo(mock).CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[domain.WagerStatusOpen])
	assert.Equal(t, int64(7), counts[domain.WagerStatusWon])
	assert.Equal(t, int64(0), counts[domain.WagerStatusLost])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWagerRepo_MarkWon_LamportsOutOfRange(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	receipt := domain.PayoutReceipt{TransactionRef: "sig", Lamports: math.MaxInt64 + 1}
	moved, err := NewWagerRepo(mock).MarkWon(context.Background(), nil, uuid.New(), receipt, domain.SettlementDecision{})
	assert.ErrorIs(t, err, domain.ErrAmountOutOfRange)
	assert.False(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}
