package handler

import (
	"github.com/Jamarblack/Degen-Arena/internal/core/ports"
	"github.com/Jamarblack/Degen-Arena/pkg/apperror"
	"github.com/Jamarblack/Degen-Arena/pkg/response"

	"github.com/gin-gonic/gin"
)

// MarketHandler serves the tradable asset pool.
type MarketHandler struct {
	markets ports.MarketLister
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(markets ports.MarketLister) *MarketHandler {
	return &MarketHandler{markets: markets}
}

// List handles GET /api/v1/markets.
func (h *MarketHandler) List(c *gin.Context) {
	tokens, err := h.markets.ListMarket(c.Request.Context())
	if err != nil {
		response.Error(c, apperror.ErrPriceUnavailable(err))
		return
	}
	response.List(c, tokens)
}
