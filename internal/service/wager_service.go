package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Jamarblack/Degen-Arena/internal/core/domain"
	"github.com/Jamarblack/Degen-Arena/internal/core/ports"
	"github.com/Jamarblack/Degen-Arena/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultListLimit  = 20
	maxListLimit      = 100
	defaultFeedLimit  = 5
	defaultHighStakes = "0.5"
)

// WagerServiceImpl implements ports.WagerService.
type WagerServiceImpl struct {
	wagers     ports.WagerRepository
	auditRepo  ports.AuditRepository
	transactor ports.DBTransactor
	assets     *domain.AssetRegistry
	quarantine ports.Quarantine
	payouts    ports.PayoutExecutor
	events     ports.EventPublisher
	log        zerolog.Logger
	now        func() time.Time
}

// NewWagerService creates a new WagerServiceImpl. events and payouts may be nil.
func NewWagerService(
	wagers ports.WagerRepository,
	auditRepo ports.AuditRepository,
	transactor ports.DBTransactor,
	assets *domain.AssetRegistry,
	quarantine ports.Quarantine,
	payouts ports.PayoutExecutor,
	events ports.EventPublisher,
	log zerolog.Logger,
) *WagerServiceImpl {
	return &WagerServiceImpl{
		wagers:     wagers,
		auditRepo:  auditRepo,
		transactor: transactor,
		assets:     assets,
		quarantine: quarantine,
		payouts:    payouts,
		events:     events,
		log:        log,
		now:        time.Now,
	}
}

// Place stores a new open wager. A repeated client reference returns the
// wager stored first and created=false.
func (s *WagerServiceImpl) Place(ctx context.Context, req ports.PlaceWagerRequest) (*domain.Wager, bool, error) {
	symbol := domain.NormalizeSymbol(req.AssetSymbol)
	if _, err := s.assets.Resolve(symbol); err != nil {
		return nil, false, apperror.ErrUnknownAsset(req.AssetSymbol)
	}

	w := &domain.Wager{
		ID:            uuid.New(),
		BettorAddress: req.BettorAddress,
		AssetSymbol:   symbol,
		EntryPrice:    req.EntryPrice,
		Stake:         req.Stake,
		Direction:     req.Direction,
		Status:        domain.WagerStatusOpen,
		ClientTxRef:   req.ClientTxRef,
		CreatedAt:     s.now().UTC(),
	}
	if err := w.Validate(); err != nil {
		return nil, false, validationError(err)
	}

	if req.ClientTxRef != "" {
		existing, err := s.wagers.GetByClientTxRef(ctx, req.ClientTxRef)
		if err != nil {
			return nil, false, apperror.ErrDatabaseError(fmt.Errorf("lookup client ref: %w", err))
		}
		if existing != nil {
			return existing, false, nil
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, false, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	inserted, err := s.wagers.Insert(ctx, dbTx, w)
	if err != nil {
		return nil, false, apperror.ErrDatabaseError(fmt.Errorf("insert wager: %w", err))
	}
	if !inserted {
		// Lost a race with a concurrent insert of the same reference.
		existing, err := s.wagers.GetByClientTxRef(ctx, req.ClientTxRef)
		if err != nil {
			return nil, false, apperror.ErrDatabaseError(fmt.Errorf("lookup client ref: %w", err))
		}
		if existing == nil {
			return nil, false, apperror.ErrDuplicateWager()
		}
		return existing, false, nil
	}

	details, _ := json.Marshal(map[string]string{
		"asset":     w.AssetSymbol,
		"direction": string(w.Direction),
		"stake":     w.Stake.String(),
		"entry":     w.EntryPrice.String(),
	})
	if err := s.auditRepo.CreateTx(ctx, dbTx, &domain.AuditLog{
		ID:           uuid.New(),
		Action:       domain.AuditActionWagerPlaced,
		ResourceType: "wager",
		ResourceID:   w.ID.String(),
		Details:      string(details),
		IPAddress:    req.ClientIP,
		CreatedAt:    w.CreatedAt,
	}); err != nil {
		return nil, false, apperror.ErrDatabaseError(fmt.Errorf("audit wager: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, false, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("wager_id", w.ID.String()).
		Str("bettor", w.BettorAddress).
		Str("asset", w.AssetSymbol).
		Str("direction", string(w.Direction)).
		Str("stake", w.Stake.String()).
		Msg("wager placed")

	if s.events != nil {
		if err := s.events.Publish(ctx, domain.NewWagerEvent(domain.EventWagerPlaced, w, w.CreatedAt)); err != nil {
			s.log.Warn().Err(err).Str("wager_id", w.ID.String()).Msg("publish placed event failed")
		}
	}

	return w, true, nil
}

// Get returns a wager by ID.
func (s *WagerServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Wager, error) {
	w, err := s.wagers.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if w == nil {
		return nil, apperror.ErrNotFound("Wager")
	}
	return w, nil
}

// ListByBettor returns a bettor's wagers, newest first.
func (s *WagerServiceImpl) ListByBettor(ctx context.Context, bettor string, limit int) ([]domain.Wager, error) {
	if bettor == "" {
		return nil, apperror.Validation("bettor is required")
	}
	out, err := s.wagers.ListByBettor(ctx, bettor, clampLimit(limit, defaultListLimit))
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return out, nil
}

// ListHighStakes returns recent wagers staking more than minStake.
func (s *WagerServiceImpl) ListHighStakes(ctx context.Context, minStake decimal.Decimal, limit int) ([]domain.Wager, error) {
	if !minStake.IsPositive() {
		minStake = decimal.RequireFromString(defaultHighStakes)
	}
	out, err := s.wagers.ListHighStakes(ctx, minStake, clampLimit(limit, defaultFeedLimit))
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return out, nil
}

// ListWinners returns the most recently won wagers.
func (s *WagerServiceImpl) ListWinners(ctx context.Context, limit int) ([]domain.Wager, error) {
	out, err := s.wagers.ListWinners(ctx, clampLimit(limit, defaultListLimit))
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return out, nil
}

// Stats summarizes wager counts, quarantine size and the pool balance.
// Quarantine and balance failures are logged and reported as zero.
func (s *WagerServiceImpl) Stats(ctx context.Context) (*domain.WagerStats, error) {
	counts, err := s.wagers.CountByStatus(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	stats := &domain.WagerStats{
		Open:        counts[domain.WagerStatusOpen],
		Won:         counts[domain.WagerStatusWon],
		Lost:        counts[domain.WagerStatusLost],
		PoolBalance: decimal.Zero,
	}

	if s.quarantine != nil {
		n, err := s.quarantine.Count(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("quarantine count failed")
		}
		stats.Quarantined = n
	}
	if s.payouts != nil {
		bal, err := s.payouts.PoolBalance(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("pool balance lookup failed")
		} else {
			stats.PoolBalance = bal
		}
	}
	return stats, nil
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func validationError(err error) *apperror.AppError {
	switch {
	case errors.Is(err, domain.ErrInvalidAddress):
		return apperror.ErrInvalidAddress()
	case errors.Is(err, domain.ErrInvalidStake):
		return apperror.ErrInvalidStake()
	case errors.Is(err, domain.ErrStakeTooLarge):
		return apperror.Validation(fmt.Sprintf("Stake must not exceed %s SOL", domain.MaxStakeSOL))
	case errors.Is(err, domain.ErrUnknownAsset):
		return apperror.ErrUnknownAsset("")
	default:
		return apperror.Validation(err.Error())
	}
}
