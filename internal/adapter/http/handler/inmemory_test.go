package handler_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Jamarblack/Degen-Arena/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// inMemoryWagerRepo mirrors the compare-and-set semantics of the PostgreSQL
// repository.
type inMemoryWagerRepo struct {
	mu     sync.Mutex
	wagers map[uuid.UUID]*domain.Wager
	refs   map[string]uuid.UUID
}

func newInMemoryWagerRepo() *inMemoryWagerRepo {
	return &inMemoryWagerRepo{
		wagers: make(map[uuid.UUID]*domain.Wager),
		refs:   make(map[string]uuid.UUID),
	}
}

func (r *inMemoryWagerRepo) Insert(_ context.Context, _ pgx.Tx, w *domain.Wager) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w.ClientTxRef != "" {
		if _, ok := r.refs[w.ClientTxRef]; ok {
			return false, nil
		}
		r.refs[w.ClientTxRef] = w.ID
	}
	cp := *w
	r.wagers[w.ID] = &cp
	return true, nil
}

func (r *inMemoryWagerRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Wager, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wagers[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWagerRepo) GetByClientTxRef(ctx context.Context, ref string) (*domain.Wager, error) {
	r.mu.Lock()
	id, ok := r.refs[ref]
	r.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *inMemoryWagerRepo) filter(keep func(*domain.Wager) bool, limit int) []domain.Wager {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Wager, 0)
	for _, w := range r.wagers {
		if keep(w) {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *inMemoryWagerRepo) ListOpen(context.Context) ([]domain.Wager, error) {
	return r.filter(func(w *domain.Wager) bool { return w.Status == domain.WagerStatusOpen }, 0), nil
}

func (r *inMemoryWagerRepo) ListByBettor(_ context.Context, bettor string, limit int) ([]domain.Wager, error) {
	return r.filter(func(w *domain.Wager) bool { return w.BettorAddress == bettor }, limit), nil
}

func (r *inMemoryWagerRepo) ListHighStakes(_ context.Context, minStake decimal.Decimal, limit int) ([]domain.Wager, error) {
	return r.filter(func(w *domain.Wager) bool { return w.Stake.GreaterThanOrEqual(minStake) }, limit), nil
}

func (r *inMemoryWagerRepo) ListWinners(_ context.Context, limit int) ([]domain.Wager, error) {
	return r.filter(func(w *domain.Wager) bool { return w.Status == domain.WagerStatusWon }, limit), nil
}

func (r *inMemoryWagerRepo) MarkWon(_ context.Context, _ pgx.Tx, id uuid.UUID, receipt domain.PayoutReceipt, d domain.SettlementDecision) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wagers[id]
	if !ok || w.Status != domain.WagerStatusOpen {
		return false, nil
	}
	w.Status = domain.WagerStatusWon
	price := d.ObservedPrice
	w.SettlementPrice = &price
	rc := receipt
	w.Receipt = &rc
	at := d.DecidedAt
	w.SettledAt = &at
	return true, nil
}

func (r *inMemoryWagerRepo) MarkLost(_ context.Context, _ pgx.Tx, id uuid.UUID, d domain.SettlementDecision) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wagers[id]
	if !ok || w.Status != domain.WagerStatusOpen {
		return false, nil
	}
	w.Status = domain.WagerStatusLost
	price := d.ObservedPrice
	w.SettlementPrice = &price
	at := d.DecidedAt
	w.SettledAt = &at
	return true, nil
}

func (r *inMemoryWagerRepo) CountByStatus(context.Context) (map[domain.WagerStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[domain.WagerStatus]int64)
	for _, w := range r.wagers {
		counts[w.Status]++
	}
	return counts, nil
}

// age moves every wager's creation time back by d.
func (r *inMemoryWagerRepo) age(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wagers {
		w.CreatedAt = w.CreatedAt.Add(-d)
	}
}

type inMemoryAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func (r *inMemoryAuditRepo) Create(_ context.Context, log *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *log)
	return nil
}

func (r *inMemoryAuditRepo) CreateTx(ctx context.Context, _ pgx.Tx, log *domain.AuditLog) error {
	return r.Create(ctx, log)
}

func (r *inMemoryAuditRepo) actions() []domain.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditAction, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type inMemoryTransactor struct{}

func (inMemoryTransactor) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

// noopTx satisfies pgx.Tx; the in-memory repos ignore it.
type noopTx struct{ pgx.Tx }

func (noopTx) Commit(context.Context) error   { return nil }
func (noopTx) Rollback(context.Context) error { return nil }

type fixedOracle struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
}

func (o *fixedOracle) set(symbol, price string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[symbol] = decimal.RequireFromString(price)
}

func (o *fixedOracle) GetPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.prices[symbol]
	if !ok {
		return decimal.Zero, domain.ErrPriceUnavailable
	}
	return p, nil
}

func (o *fixedOracle) ListMarket(context.Context) ([]domain.MarketToken, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.MarketToken, 0, len(o.prices))
	for sym, p := range o.prices {
		out = append(out, domain.MarketToken{Symbol: sym, PriceUSD: p})
	}
	return out, nil
}

// recordingPayouts counts submitted transfers; a resend of the same
// signature is not a second payout.
type recordingPayouts struct {
	mu    sync.Mutex
	calls []decimal.Decimal
	sent  map[string]struct{}
}

func (p *recordingPayouts) Prepare(_ context.Context, payee string, amount decimal.Decimal) (*domain.SignedTransfer, error) {
	return &domain.SignedTransfer{
		Signature: "sig-" + uuid.NewString()[:8],
		Payee:     payee,
		Amount:    amount,
		Lamports:  uint64(amount.Shift(9).IntPart()),
	}, nil
}

func (p *recordingPayouts) Submit(_ context.Context, t domain.SignedTransfer) (*domain.PayoutReceipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sent == nil {
		p.sent = make(map[string]struct{})
	}
	if _, ok := p.sent[t.Signature]; !ok {
		p.sent[t.Signature] = struct{}{}
		p.calls = append(p.calls, t.Amount)
	}
	r := t.Receipt(time.Now().UTC())
	return &r, nil
}

func (p *recordingPayouts) Status(_ context.Context, t domain.SignedTransfer) (domain.TransferState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.sent[t.Signature]; ok {
		return domain.TransferConfirmed, nil
	}
	return domain.TransferPending, nil
}

func (p *recordingPayouts) PoolBalance(context.Context) (decimal.Decimal, error) {
	return decimal.NewFromInt(100), nil
}

func (p *recordingPayouts) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
