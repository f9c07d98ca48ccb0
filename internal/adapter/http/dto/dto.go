package dto

import (
	"time"

	"github.com/Jamarblack/Degen-Arena/internal/core/domain"

	"github.com/shopspring/decimal"
)

// PlaceWagerRequest is the request body the wager-creation collaborator posts
// after the bettor's stake transfer lands. Decimals accept JSON numbers or strings.
type PlaceWagerRequest struct {
	BettorAddress string          `json:"bettor_address" binding:"required,solana_address"`
	AssetSymbol   string          `json:"asset_symbol" binding:"required,asset_symbol"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
	StakeAmount   decimal.Decimal `json:"stake_amount"`
	Direction     string          `json:"direction" binding:"required,oneof=long short"`
	ClientTxRef   string          `json:"client_tx_reference" binding:"required,max=128,safe_id"`
}

// LoginRequest is the request body for operator login.
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,max=256" sanitize:"-"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// ReceiptResponse is the payout proof of a won wager.
type ReceiptResponse struct {
	TransactionRef string `json:"transaction_reference"`
	Amount         string `json:"amount"`
	Lamports       uint64 `json:"lamports"`
	ConfirmedAt    string `json:"confirmed_at"`
}

// WagerResponse is the public view of a wager.
type WagerResponse struct {
	ID              string           `json:"id"`
	BettorAddress   string           `json:"bettor_address"`
	AssetSymbol     string           `json:"asset_symbol"`
	EntryPrice      string           `json:"entry_price"`
	StakeAmount     string           `json:"stake_amount"`
	Direction       string           `json:"direction"`
	Status          string           `json:"status"`
	ClientTxRef     string           `json:"client_tx_reference,omitempty"`
	SettlementPrice *string          `json:"settlement_price,omitempty"`
	Receipt         *ReceiptResponse `json:"payout_receipt,omitempty"`
	CreatedAt       string           `json:"created_at"`
	SettledAt       *string          `json:"settled_at,omitempty"`
}

// NewWagerResponse maps a domain wager to its API representation.
func NewWagerResponse(w *domain.Wager) WagerResponse {
	resp := WagerResponse{
		ID:            w.ID.String(),
		BettorAddress: w.BettorAddress,
		AssetSymbol:   w.AssetSymbol,
		EntryPrice:    w.EntryPrice.String(),
		StakeAmount:   w.Stake.String(),
		Direction:     string(w.Direction),
		Status:        string(w.Status),
		ClientTxRef:   w.ClientTxRef,
		CreatedAt:     w.CreatedAt.UTC().Format(time.RFC3339),
	}
	if w.SettlementPrice != nil {
		s := w.SettlementPrice.String()
		resp.SettlementPrice = &s
	}
	if w.SettledAt != nil {
		s := w.SettledAt.UTC().Format(time.RFC3339)
		resp.SettledAt = &s
	}
	if w.Receipt != nil {
		resp.Receipt = &ReceiptResponse{
			TransactionRef: w.Receipt.TransactionRef,
			Amount:         w.Receipt.Amount.String(),
			Lamports:       w.Receipt.Lamports,
			ConfirmedAt:    w.Receipt.ConfirmedAt.UTC().Format(time.RFC3339),
		}
	}
	return resp
}

// NewWagerList maps a slice of wagers.
func NewWagerList(ws []domain.Wager) []WagerResponse {
	out := make([]WagerResponse, 0, len(ws))
	for i := range ws {
		out = append(out, NewWagerResponse(&ws[i]))
	}
	return out
}

// SettlementRunResponse reports what POST /admin/settlement/run did.
type SettlementRunResponse struct {
	Queued bool        `json:"queued"`
	Report interface{} `json:"report,omitempty"`
}

// ReleaseResponse reports a quarantine release.
type ReleaseResponse struct {
	WagerID  string `json:"wager_id"`
	Released bool   `json:"released"`
}
