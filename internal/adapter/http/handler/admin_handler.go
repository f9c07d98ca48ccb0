package handler

import (
	"context"
	"errors"

	"github.com/Jamarblack/Degen-Arena/internal/adapter/http/dto"
	"github.com/Jamarblack/Degen-Arena/internal/core/domain"
	"github.com/Jamarblack/Degen-Arena/internal/core/ports"
	"github.com/Jamarblack/Degen-Arena/pkg/apperror"
	"github.com/Jamarblack/Degen-Arena/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler handles the operator endpoints.
type AdminHandler struct {
	settlement ports.SettlementService
	wagerSvc   ports.WagerService
	quarantine ports.Quarantine
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(settlement ports.SettlementService, wagerSvc ports.WagerService, quarantine ports.Quarantine) *AdminHandler {
	return &AdminHandler{settlement: settlement, wagerSvc: wagerSvc, quarantine: quarantine}
}

// RunSettlement handles POST /api/v1/admin/settlement/run. By default it
// queues a pass for the background loop; ?wait=true runs one inline and
// returns its report. The inline pass outlives a dropped client connection.
func (h *AdminHandler) RunSettlement(c *gin.Context) {
	if c.Query("wait") != "true" {
		response.Accepted(c, dto.SettlementRunResponse{Queued: h.settlement.Trigger()})
		return
	}

	report, err := h.settlement.RunPass(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			response.Error(c, apperror.ErrSettlementBusy())
			return
		}
		response.Error(c, apperror.InternalError(err))
		return
	}
	response.OK(c, dto.SettlementRunResponse{Report: report})
}

// Stats handles GET /api/v1/admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.wagerSvc.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// ListQuarantine handles GET /api/v1/admin/quarantine.
func (h *AdminHandler) ListQuarantine(c *gin.Context) {
	entries, err := h.quarantine.List(c.Request.Context())
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	response.List(c, entries)
}

// ReleaseQuarantine handles DELETE /api/v1/admin/quarantine/:id. The wager
// becomes eligible again on the next pass.
func (h *AdminHandler) ReleaseQuarantine(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrNotFound("Quarantined wager"))
		return
	}

	released, err := h.quarantine.Release(c.Request.Context(), id)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	if !released {
		response.Error(c, apperror.ErrNotFound("Quarantined wager"))
		return
	}
	response.OK(c, dto.ReleaseResponse{WagerID: id.String(), Released: true})
}
