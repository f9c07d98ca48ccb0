package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Jamarblack/Degen-Arena/config"
	"github.com/Jamarblack/Degen-Arena/internal/core/domain"
	"github.com/Jamarblack/Degen-Arena/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const passLockKey = "settlement:pass"

type outcome int

const (
	outcomePending outcome = iota
	outcomeWon
	outcomeLost
	outcomeSkipped
	outcomeFailed
	outcomeQuarantined
)

// SettlementDeps groups the collaborators of the settlement engine.
type SettlementDeps struct {
	Wagers     ports.WagerRepository
	Audit      ports.AuditRepository
	Tx         ports.DBTransactor
	Oracle     ports.PriceOracle
	Payouts    ports.PayoutExecutor
	Journal    ports.ReceiptJournal
	Quarantine ports.Quarantine
	Locks      ports.LockManager
	Events     ports.EventPublisher
	Notifier   ports.Notifier
	Metrics    ports.SettlementMetrics
}

// SettlementEngine implements ports.SettlementService.
type SettlementEngine struct {
	deps          SettlementDeps
	interval      time.Duration
	duration      time.Duration
	multiplier    decimal.Decimal
	concurrency   int
	priceTimeout  time.Duration
	payoutTimeout time.Duration
	staleAfter    time.Duration
	lockTTL       time.Duration

	// status write retries after a confirmed payout
	markRetries int
	markBackoff time.Duration

	log zerolog.Logger
	now func() time.Time

	running sync.Mutex
	trigger chan struct{}

	staleMu      sync.Mutex
	staleFlagged map[uuid.UUID]struct{}
}

// NewSettlementEngine validates cfg and builds the engine.
func NewSettlementEngine(deps SettlementDeps, cfg config.SettlementConfig, log zerolog.Logger) (*SettlementEngine, error) {
	mult, err := cfg.Multiplier()
	if err != nil {
		return nil, err
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &SettlementEngine{
		deps:          deps,
		interval:      cfg.Interval,
		duration:      cfg.BetDuration(),
		multiplier:    mult,
		concurrency:   concurrency,
		priceTimeout:  cfg.PriceTimeout,
		payoutTimeout: cfg.PayoutTimeout,
		staleAfter:    cfg.StaleAfter,
		lockTTL:       cfg.LockTTL,
		markRetries:   4,
		markBackoff:   250 * time.Millisecond,
		log:           log,
		now:           time.Now,
		trigger:       make(chan struct{}, 1),
		staleFlagged:  make(map[uuid.UUID]struct{}),
	}, nil
}

// Trigger requests an immediate pass from Run. It returns false when a
// request is already pending.
func (e *SettlementEngine) Trigger() bool {
	select {
	case e.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run performs a pass at start-up and then on every tick or trigger until ctx
// is done. A pass in flight when ctx is cancelled runs to completion.
func (e *SettlementEngine) Run(ctx context.Context) error {
	e.log.Info().
		Dur("interval", e.interval).
		Dur("bet_duration", e.duration).
		Str("multiplier", e.multiplier.String()).
		Int("concurrency", e.concurrency).
		Msg("settlement engine started")

	e.runOnce(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info().Msg("settlement engine stopped")
			return nil
		case <-ticker.C:
			e.runOnce(ctx)
		case <-e.trigger:
			e.runOnce(ctx)
		}
	}
}

func (e *SettlementEngine) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_, err := e.RunPass(context.WithoutCancel(ctx))
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrLockHeld):
		e.log.Debug().Msg("settlement pass skipped, another pass is running")
	default:
		e.log.Error().Err(err).Msg("settlement pass failed")
	}
}

// RunPass sweeps every open wager once. It returns domain.ErrLockHeld when a
// pass is already running in this or another process. Cancelling ctx does not
// stop a pass: a confirmed transfer must always reach the journal and the
// wager row.
func (e *SettlementEngine) RunPass(ctx context.Context) (*ports.PassReport, error) {
	ctx = context.WithoutCancel(ctx)

	if !e.running.TryLock() {
		return nil, domain.ErrLockHeld
	}
	defer e.running.Unlock()

	unlock, err := e.deps.Locks.Acquire(ctx, passLockKey, e.lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return nil, err
		}
		return nil, fmt.Errorf("acquire pass lock: %w", err)
	}
	defer unlock()

	start := e.now()
	wagers, err := e.deps.Wagers.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list open wagers: %v", domain.ErrStoreUnavailable, err)
	}

	report := &ports.PassReport{Scanned: len(wagers)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i := range wagers {
		w := wagers[i]
		g.Go(func() error {
			o := e.settle(ctx, &w)
			mu.Lock()
			tally(report, o)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	elapsed := e.now().Sub(start)
	if e.deps.Metrics != nil {
		e.deps.Metrics.ObservePass(*report, elapsed)
	}

	e.log.Info().
		Int("scanned", report.Scanned).
		Int("pending", report.Pending).
		Int("won", report.Won).
		Int("lost", report.Lost).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int("quarantined", report.Quarantined).
		Dur("elapsed", elapsed).
		Msg("settlement pass complete")

	return report, nil
}

func tally(r *ports.PassReport, o outcome) {
	switch o {
	case outcomePending:
		r.Pending++
	case outcomeWon:
		r.Won++
	case outcomeLost:
		r.Lost++
	case outcomeSkipped:
		r.Skipped++
	case outcomeFailed:
		r.Failed++
	case outcomeQuarantined:
		r.Quarantined++
	}
}

// settle evaluates one wager. Errors never escape; they become outcomes.
func (e *SettlementEngine) settle(ctx context.Context, w *domain.Wager) outcome {
	now := e.now()
	if !w.IsExpired(now, e.duration) {
		return outcomePending
	}

	log := e.log.With().
		Str("wager_id", w.ID.String()).
		Str("asset", w.AssetSymbol).
		Str("direction", string(w.Direction)).
		Logger()

	quarantined, err := e.deps.Quarantine.Contains(ctx, w.ID)
	if err != nil {
		log.Warn().Err(err).Msg("quarantine lookup failed, skipping wager")
		e.skip("quarantine_unavailable")
		return outcomeSkipped
	}
	if quarantined {
		return outcomeQuarantined
	}

	unlock, err := e.deps.Locks.Acquire(ctx, "wager:"+w.ID.String(), e.lockTTL)
	if err != nil {
		log.Warn().Err(err).Msg("wager lock unavailable, skipping wager")
		e.skip("locked")
		return outcomeSkipped
	}
	defer unlock()

	// Re-read under the lock: another worker may have settled it since ListOpen.
	current, err := e.deps.Wagers.GetByID(ctx, w.ID)
	if err != nil {
		log.Error().Err(err).Msg("reload wager failed")
		return outcomeFailed
	}
	if current == nil || current.Status != domain.WagerStatusOpen {
		e.forgetStale(w.ID)
		e.skip("already_settled")
		return outcomeSkipped
	}
	w = current

	journaled, err := e.deps.Journal.Lookup(ctx, w.ID)
	if err != nil {
		log.Warn().Err(err).Msg("receipt journal unavailable, skipping wager")
		e.skip("journal_unavailable")
		return outcomeSkipped
	}
	if journaled != nil {
		return e.resumePayout(ctx, w, *journaled, log)
	}

	priceCtx, cancel := context.WithTimeout(ctx, e.priceTimeout)
	price, err := e.deps.Oracle.GetPrice(priceCtx, w.AssetSymbol)
	cancel()
	if err != nil {
		reason := "price_unavailable"
		if errors.Is(err, domain.ErrUnknownAsset) {
			reason = "unknown_asset"
		}
		log.Warn().Err(err).Msg("price fetch failed, retrying next pass")
		e.skip(reason)
		e.flagIfStale(ctx, w, now, err)
		return outcomeSkipped
	}

	decision := domain.Decide(w, price, now)
	if !decision.Won {
		return e.settleLost(ctx, w, decision, log)
	}
	return e.settleWon(ctx, w, decision, log)
}

func (e *SettlementEngine) settleLost(ctx context.Context, w *domain.Wager, d domain.SettlementDecision, log zerolog.Logger) outcome {
	moved, err := e.writeStatus(ctx, func(ctx context.Context, tx pgx.Tx) (bool, error) {
		ok, err := e.deps.Wagers.MarkLost(ctx, tx, w.ID, d)
		if err != nil || !ok {
			return ok, err
		}
		return true, e.deps.Audit.CreateTx(ctx, tx, settlementAudit(domain.AuditActionWagerLost, w, map[string]any{
			"observed_price": d.ObservedPrice.String(),
			"entry_price":    w.EntryPrice.String(),
		}))
	})
	if err != nil {
		log.Error().Err(err).Msg("mark lost failed")
		return outcomeFailed
	}
	e.forgetStale(w.ID)
	if !moved {
		e.skip("already_settled")
		return outcomeSkipped
	}

	settled := *w
	settled.Status = domain.WagerStatusLost
	settled.SettlementPrice = &d.ObservedPrice
	settledAt := d.DecidedAt
	settled.SettledAt = &settledAt

	log.Info().Str("observed_price", d.ObservedPrice.String()).Msg("wager lost")
	e.outcome("lost")
	e.publish(ctx, &settled)
	return outcomeLost
}

func (e *SettlementEngine) settleWon(ctx context.Context, w *domain.Wager, d domain.SettlementDecision, log zerolog.Logger) outcome {
	amount := w.PayoutAmount(e.multiplier)

	transfer, err := e.deps.Payouts.Prepare(ctx, w.BettorAddress, amount)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidAddress) || errors.Is(err, domain.ErrAmountOutOfRange) {
			return e.quarantine(ctx, w, err, log)
		}
		return e.payoutFailed(ctx, w, amount, err, log)
	}

	// The signed transfer is journaled before it is broadcast, so a later pass
	// can always tell whether it landed.
	entry := domain.JournaledPayout{Decision: d, Transfer: *transfer}
	if err := e.deps.Journal.Record(ctx, entry); err != nil {
		log.Warn().Err(err).Msg("journal write failed, transfer not sent")
		e.skip("journal_unavailable")
		return outcomeSkipped
	}
	return e.submit(ctx, w, entry, log)
}

// resumePayout finishes a payout journaled by an earlier pass. A transfer
// that may still land is resent as is; only a dropped transfer is replaced.
func (e *SettlementEngine) resumePayout(ctx context.Context, w *domain.Wager, entry domain.JournaledPayout, log zerolog.Logger) outcome {
	log = log.With().Str("tx", entry.Transfer.Signature).Logger()
	if entry.Receipt != nil {
		log.Info().Msg("completing journaled payout")
		return e.completeWin(ctx, w, *entry.Receipt, entry.Decision, log)
	}

	state, err := e.deps.Payouts.Status(ctx, entry.Transfer)
	if err != nil {
		log.Warn().Err(err).Msg("journaled transfer status unavailable, skipping wager")
		e.skip("transfer_status_unavailable")
		return outcomeSkipped
	}

	switch state {
	case domain.TransferConfirmed:
		log.Info().Msg("journaled transfer landed")
		e.payout("confirmed", entry.Transfer.Amount)
		return e.recordReceipt(ctx, w, entry, entry.Transfer.Receipt(e.now().UTC()), log)
	case domain.TransferDropped:
		log.Warn().Msg("journaled transfer dropped, signing a new one")
		return e.settleWon(ctx, w, entry.Decision, log)
	default:
		log.Info().Msg("journaled transfer pending, resending")
		return e.submit(ctx, w, entry, log)
	}
}

// submit broadcasts a journaled transfer. On failure the journal entry stays
// so the next pass resolves it by signature.
func (e *SettlementEngine) submit(ctx context.Context, w *domain.Wager, entry domain.JournaledPayout, log zerolog.Logger) outcome {
	payCtx, cancel := context.WithTimeout(ctx, e.payoutTimeout)
	receipt, err := e.deps.Payouts.Submit(payCtx, entry.Transfer)
	cancel()
	if err != nil {
		return e.payoutFailed(ctx, w, entry.Transfer.Amount, err, log)
	}
	e.payout("confirmed", receipt.Amount)
	return e.recordReceipt(ctx, w, entry, *receipt, log)
}

func (e *SettlementEngine) recordReceipt(ctx context.Context, w *domain.Wager, entry domain.JournaledPayout, receipt domain.PayoutReceipt, log zerolog.Logger) outcome {
	entry.Receipt = &receipt
	if err := e.deps.Journal.Record(ctx, entry); err != nil {
		log.Error().Err(err).Str("tx", receipt.TransactionRef).Msg("journal write failed after confirmed payout")
	}
	return e.completeWin(ctx, w, receipt, entry.Decision, log)
}

func (e *SettlementEngine) payoutFailed(ctx context.Context, w *domain.Wager, amount decimal.Decimal, cause error, log zerolog.Logger) outcome {
	log.Warn().Err(cause).Str("amount", amount.String()).Msg("payout failed, retrying next pass")
	e.payout("failed", amount)
	e.audit(ctx, settlementAudit(domain.AuditActionPayoutFailed, w, map[string]any{
		"amount": amount.String(),
		"error":  cause.Error(),
	}))
	return outcomeFailed
}

// completeWin records a confirmed payout on the wager row. The journal entry
// is cleared only once the row reads won.
func (e *SettlementEngine) completeWin(ctx context.Context, w *domain.Wager, receipt domain.PayoutReceipt, d domain.SettlementDecision, log zerolog.Logger) outcome {
	var moved bool
	err := withRetry(ctx, e.markRetries, e.markBackoff, func(ctx context.Context) error {
		var err error
		moved, err = e.writeStatus(ctx, func(ctx context.Context, tx pgx.Tx) (bool, error) {
			ok, err := e.deps.Wagers.MarkWon(ctx, tx, w.ID, receipt, d)
			if err != nil || !ok {
				return ok, err
			}
			return true, e.deps.Audit.CreateTx(ctx, tx, settlementAudit(domain.AuditActionWagerWon, w, map[string]any{
				"observed_price": d.ObservedPrice.String(),
				"amount":         receipt.Amount.String(),
				"tx":             receipt.TransactionRef,
			}))
		})
		return err
	})
	if err != nil {
		log.Error().Err(err).Str("tx", receipt.TransactionRef).Msg("status write failed after confirmed payout")
		e.notify(ctx, "Won wager not recorded",
			fmt.Sprintf("wager %s was paid in %s but its status write failed: %v", w.ID, receipt.TransactionRef, err))
		return outcomeFailed
	}

	if err := e.deps.Journal.Clear(ctx, w.ID); err != nil {
		log.Warn().Err(err).Msg("journal clear failed")
	}
	e.forgetStale(w.ID)
	if !moved {
		log.Warn().Str("tx", receipt.TransactionRef).Msg("wager already settled when recording payout")
		e.skip("already_settled")
		return outcomeSkipped
	}

	settled := *w
	settled.Status = domain.WagerStatusWon
	settled.SettlementPrice = &d.ObservedPrice
	settled.Receipt = &receipt
	settledAt := d.DecidedAt
	settled.SettledAt = &settledAt

	log.Info().
		Str("tx", receipt.TransactionRef).
		Str("amount", receipt.Amount.String()).
		Msg("wager won and paid")
	e.outcome("won")
	e.publish(ctx, &settled)
	return outcomeWon
}

func (e *SettlementEngine) quarantine(ctx context.Context, w *domain.Wager, cause error, log zerolog.Logger) outcome {
	entry := ports.QuarantineEntry{
		WagerID:       w.ID,
		BettorAddress: w.BettorAddress,
		Reason:        cause.Error(),
		AddedAt:       e.now().UTC(),
	}
	if err := e.deps.Quarantine.Add(ctx, entry); err != nil {
		log.Error().Err(err).Msg("quarantine write failed")
		return outcomeFailed
	}

	log.Warn().Err(cause).Str("bettor", w.BettorAddress).Msg("payout rejected, wager quarantined")
	e.payout("rejected", decimal.Zero)
	e.audit(ctx, settlementAudit(domain.AuditActionPayoutRejected, w, map[string]any{
		"bettor": w.BettorAddress,
		"reason": cause.Error(),
	}))
	e.notify(ctx, "Payout quarantined",
		fmt.Sprintf("wager %s (%s) cannot be paid to %q: %v", w.ID, w.AssetSymbol, w.BettorAddress, cause))
	return outcomeQuarantined
}

// flagIfStale alerts operators once per process about a wager whose price
// has been unavailable far past expiry. The wager is never force-settled.
func (e *SettlementEngine) flagIfStale(ctx context.Context, w *domain.Wager, now time.Time, cause error) {
	if e.staleAfter <= 0 || now.Sub(w.CreatedAt) < e.duration+e.staleAfter {
		return
	}

	e.staleMu.Lock()
	_, seen := e.staleFlagged[w.ID]
	if !seen {
		e.staleFlagged[w.ID] = struct{}{}
	}
	e.staleMu.Unlock()
	if seen {
		return
	}

	e.log.Warn().
		Str("wager_id", w.ID.String()).
		Str("asset", w.AssetSymbol).
		Time("created_at", w.CreatedAt).
		Msg("stale wager, price unavailable since expiry")
	e.notify(ctx, "Stale wager",
		fmt.Sprintf("wager %s on %s placed %s is still unsettled: %v", w.ID, w.AssetSymbol, w.CreatedAt.Format(time.RFC3339), cause))
}

func (e *SettlementEngine) forgetStale(id uuid.UUID) {
	e.staleMu.Lock()
	delete(e.staleFlagged, id)
	e.staleMu.Unlock()
}

// writeStatus runs fn in a transaction and commits when fn reports a move.
func (e *SettlementEngine) writeStatus(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) (bool, error)) (bool, error) {
	dbTx, err := e.deps.Tx.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: begin: %v", domain.ErrStoreUnavailable, err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	moved, err := fn(ctx, dbTx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if !moved {
		return false, nil
	}
	if err := dbTx.Commit(ctx); err != nil {
		return false, fmt.Errorf("%w: commit: %v", domain.ErrStoreUnavailable, err)
	}
	return true, nil
}

func (e *SettlementEngine) publish(ctx context.Context, w *domain.Wager) {
	if e.deps.Events == nil {
		return
	}
	ev := domain.NewWagerEvent(domain.EventWagerSettled, w, e.now().UTC())
	if err := e.deps.Events.Publish(ctx, ev); err != nil {
		e.log.Warn().Err(err).Str("wager_id", w.ID.String()).Msg("publish settled event failed")
	}
}

func (e *SettlementEngine) audit(ctx context.Context, entry *domain.AuditLog) {
	if err := e.deps.Audit.Create(ctx, entry); err != nil {
		e.log.Warn().Err(err).Str("action", string(entry.Action)).Msg("failed to persist audit log")
	}
}

func (e *SettlementEngine) notify(ctx context.Context, subject, message string) {
	if e.deps.Notifier == nil {
		return
	}
	if err := e.deps.Notifier.Notify(ctx, subject, message); err != nil {
		e.log.Warn().Err(err).Str("subject", subject).Msg("operator notification failed")
	}
}

func (e *SettlementEngine) skip(reason string) {
	if e.deps.Metrics != nil {
		e.deps.Metrics.ObserveSkip(reason)
	}
}

func (e *SettlementEngine) outcome(o string) {
	if e.deps.Metrics != nil {
		e.deps.Metrics.ObserveOutcome(o)
	}
}

func (e *SettlementEngine) payout(result string, amount decimal.Decimal) {
	if e.deps.Metrics != nil {
		e.deps.Metrics.ObservePayout(result, amount)
	}
}

func settlementAudit(action domain.AuditAction, w *domain.Wager, details map[string]any) *domain.AuditLog {
	var raw string
	if len(details) > 0 {
		if b, err := json.Marshal(details); err == nil {
			raw = string(b)
		}
	}
	return &domain.AuditLog{
		ID:           uuid.New(),
		Action:       action,
		ResourceType: "wager",
		ResourceID:   w.ID.String(),
		Details:      raw,
		CreatedAt:    time.Now().UTC(),
	}
}
