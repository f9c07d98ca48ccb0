package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL int64 = 1_000_000_000

// MaxStakeSOL caps a single stake. Any sane multiplier keeps the payout
// within a lamport transfer.
var MaxStakeSOL = decimal.NewFromInt(1_000_000)

// Direction is the side a bettor takes on the asset price.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionLong || d == DirectionShort
}

// WagerStatus is the settlement state of a wager.
type WagerStatus string

const (
	WagerStatusOpen WagerStatus = "open"
	WagerStatusWon  WagerStatus = "won"
	WagerStatusLost WagerStatus = "lost"
)

// IsTerminal returns true once the wager has been settled.
func (s WagerStatus) IsTerminal() bool {
	return s == WagerStatusWon || s == WagerStatusLost
}

// Wager is a single directional price prediction with a fixed resolution window.
type Wager struct {
	ID              uuid.UUID        `json:"id"`
	BettorAddress   string           `json:"bettor_address"`
	AssetSymbol     string           `json:"asset_symbol"`
	EntryPrice      decimal.Decimal  `json:"entry_price"`
	Stake           decimal.Decimal  `json:"stake_amount"`
	Direction       Direction        `json:"direction"`
	Status          WagerStatus      `json:"status"`
	ClientTxRef     string           `json:"client_tx_reference,omitempty"`
	SettlementPrice *decimal.Decimal `json:"settlement_price,omitempty"`
	Receipt         *PayoutReceipt   `json:"payout_receipt,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	SettledAt       *time.Time       `json:"settled_at,omitempty"`
}

// IsExpired reports whether the resolution window has elapsed at now.
// A wager exactly duration old is expired.
func (w *Wager) IsExpired(now time.Time, duration time.Duration) bool {
	return now.Sub(w.CreatedAt) >= duration
}

// PayoutAmount returns stake x multiplier in SOL.
func (w *Wager) PayoutAmount(multiplier decimal.Decimal) decimal.Decimal {
	return w.Stake.Mul(multiplier)
}

// PayoutReceipt proves a confirmed transfer to the bettor.
type PayoutReceipt struct {
	TransactionRef string          `json:"transaction_reference"`
	Amount         decimal.Decimal `json:"amount"`
	Lamports       uint64          `json:"lamports"`
	ConfirmedAt    time.Time       `json:"confirmed_at"`
}

// SignedTransfer is a payout transaction signed by the pool but not yet known
// to have landed. Raw holds the exact bytes to broadcast, so resending it can
// never pay twice.
type SignedTransfer struct {
	Signature            string          `json:"signature"`
	Payee                string          `json:"payee"`
	Amount               decimal.Decimal `json:"amount"`
	Lamports             uint64          `json:"lamports"`
	LastValidBlockHeight uint64          `json:"last_valid_block_height"`
	Raw                  []byte          `json:"raw"`
}

// Receipt builds the payout receipt for a confirmed transfer.
func (t SignedTransfer) Receipt(confirmedAt time.Time) PayoutReceipt {
	return PayoutReceipt{
		TransactionRef: t.Signature,
		Amount:         t.Amount,
		Lamports:       t.Lamports,
		ConfirmedAt:    confirmedAt,
	}
}

// TransferState is what the chain says about a signed transfer.
type TransferState string

const (
	// TransferPending may still land.
	TransferPending TransferState = "pending"
	// TransferConfirmed landed at the configured commitment.
	TransferConfirmed TransferState = "confirmed"
	// TransferDropped failed on chain or can no longer land.
	TransferDropped TransferState = "dropped"
)

// JournaledPayout tracks a winning wager's transfer from signing until the
// won status write lands. Receipt is set once the transfer confirmed.
type JournaledPayout struct {
	Decision SettlementDecision `json:"decision"`
	Transfer SignedTransfer     `json:"transfer"`
	Receipt  *PayoutReceipt     `json:"receipt,omitempty"`
}

// SettlementDecision is the outcome of evaluating one expired wager.
type SettlementDecision struct {
	WagerID       uuid.UUID       `json:"wager_id"`
	ObservedPrice decimal.Decimal `json:"observed_price"`
	Won           bool            `json:"won"`
	DecidedAt     time.Time       `json:"decided_at"`
}

// Decide resolves a wager against the observed price.
// Equal prices lose in both directions.
func Decide(w *Wager, observed decimal.Decimal, at time.Time) SettlementDecision {
	var won bool
	switch w.Direction {
	case DirectionLong:
		won = observed.GreaterThan(w.EntryPrice)
	case DirectionShort:
		won = observed.LessThan(w.EntryPrice)
	}
	return SettlementDecision{
		WagerID:       w.ID,
		ObservedPrice: observed,
		Won:           won,
		DecidedAt:     at,
	}
}

// ToLamports converts a SOL amount to lamports, truncating any fraction.
// Negative amounts yield zero. Amounts above math.MaxInt64 lamports fail with
// ErrAmountOutOfRange, since receipts are stored as BIGINT.
func ToLamports(sol decimal.Decimal) (uint64, error) {
	l := sol.Mul(decimal.NewFromInt(LamportsPerSOL)).Floor()
	if l.Sign() <= 0 {
		return 0, nil
	}
	if l.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, fmt.Errorf("%w: %s SOL", ErrAmountOutOfRange, sol)
	}
	return uint64(l.IntPart()), nil
}

// LamportsToSOL converts an integer lamport amount back to SOL.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromUint64(lamports).Div(decimal.NewFromInt(LamportsPerSOL))
}

// Validate checks the invariants of a freshly placed wager.
func (w *Wager) Validate() error {
	switch {
	case w.BettorAddress == "":
		return ErrInvalidAddress
	case w.AssetSymbol == "":
		return ErrUnknownAsset
	case !w.Stake.IsPositive():
		return ErrInvalidStake
	case w.Stake.GreaterThan(MaxStakeSOL):
		return ErrStakeTooLarge
	case !w.EntryPrice.IsPositive():
		return ErrInvalidEntryPrice
	case !w.Direction.Valid():
		return ErrInvalidDirection
	}
	return nil
}
