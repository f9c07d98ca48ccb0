package handler

import (
	"strconv"

	"github.com/Jamarblack/Degen-Arena/internal/adapter/http/dto"
	"github.com/Jamarblack/Degen-Arena/internal/core/domain"
	"github.com/Jamarblack/Degen-Arena/internal/core/ports"
	"github.com/Jamarblack/Degen-Arena/pkg/apperror"
	"github.com/Jamarblack/Degen-Arena/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WagerHandler handles wager ingestion and the public read API.
type WagerHandler struct {
	wagerSvc ports.WagerService
}

// NewWagerHandler creates a new WagerHandler.
func NewWagerHandler(wagerSvc ports.WagerService) *WagerHandler {
	return &WagerHandler{wagerSvc: wagerSvc}
}

// Place handles POST /api/v1/wagers. A repeated client_tx_reference returns
// the stored wager with 200 instead of 201.
func (h *WagerHandler) Place(c *gin.Context) {
	var req dto.PlaceWagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	w, created, err := h.wagerSvc.Place(c.Request.Context(), ports.PlaceWagerRequest{
		BettorAddress: req.BettorAddress,
		AssetSymbol:   req.AssetSymbol,
		EntryPrice:    req.EntryPrice,
		Stake:         req.StakeAmount,
		Direction:     domain.Direction(req.Direction),
		ClientTxRef:   req.ClientTxRef,
		ClientIP:      c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if created {
		response.Created(c, dto.NewWagerResponse(w))
		return
	}
	response.OK(c, dto.NewWagerResponse(w))
}

// Get handles GET /api/v1/wagers/:id.
func (h *WagerHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrNotFound("Wager"))
		return
	}

	w, err := h.wagerSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewWagerResponse(w))
}

// List handles GET /api/v1/wagers?bettor=&limit=.
func (h *WagerHandler) List(c *gin.Context) {
	bettor := c.Query("bettor")
	if bettor == "" {
		response.Error(c, apperror.Validation("bettor query parameter is required"))
		return
	}
	if !dto.IsSolanaAddress(bettor) {
		response.Error(c, apperror.ErrInvalidAddress())
		return
	}

	ws, err := h.wagerSvc.ListByBettor(c.Request.Context(), bettor, queryLimit(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, dto.NewWagerList(ws))
}

// HighStakes handles GET /api/v1/wagers/high-stakes?min=&limit=.
func (h *WagerHandler) HighStakes(c *gin.Context) {
	minStake := decimal.Zero
	if raw := c.Query("min"); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			response.Error(c, apperror.Validation("min must be a decimal amount of SOL"))
			return
		}
		minStake = v
	}

	ws, err := h.wagerSvc.ListHighStakes(c.Request.Context(), minStake, queryLimit(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, dto.NewWagerList(ws))
}

// Winners handles GET /api/v1/wagers/winners?limit=.
func (h *WagerHandler) Winners(c *gin.Context) {
	ws, err := h.wagerSvc.ListWinners(c.Request.Context(), queryLimit(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, dto.NewWagerList(ws))
}

// queryLimit returns ?limit= or 0, letting the service apply its default.
func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
