package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coinflip-backend/internal/middleware"
	"coinflip-backend/internal/models"
	"coinflip-backend/internal/services"
)

type GameHandler struct {
	registry *services.Registry
	logger   *zap.Logger
}

func NewGameHandler(registry *services.Registry, logger *zap.Logger) *GameHandler {
	return &GameHandler{
		registry: registry,
		logger:   logger,
	}
}

func (h *GameHandler) PlaceBet(c *gin.Context) {
	var req models.BetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid bet",
			"details": err.Error(),
		})
		return
	}

	state, err := appFor(c, h.registry).PlaceBet(c.Request.Context(), req.Choice, req.Amount)
	if err != nil {
		var current *services.State
		if state.ClientID != "" {
			current = &state
		}
		respondError(c, "Failed to place bet", err, current)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result": gin.H{
			"choice":  state.Wager.UserChoice,
			"amount":  state.Wager.WagerAmount,
			"result":  state.Wager.Result,
			"outcome": state.Wager.Outcome(),
		},
		"state": state,
	})
}

func (h *GameHandler) Reset(c *gin.Context) {
	state, err := appFor(c, h.registry).Reset()
	if err != nil {
		respondError(c, "Failed to reset round", err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "state": state})
}

func (h *GameHandler) RefreshNetwork(c *gin.Context) {
	state, err := appFor(c, h.registry).RefreshNetwork(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to check network", err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "state": state})
}

// RequestFunds sends the demo self-transfer that stands in for a faucet.
func (h *GameHandler) RequestFunds(c *gin.Context) {
	tx, state, err := appFor(c, h.registry).RequestFunds(c.Request.Context())
	if err != nil {
		h.logger.Warn("free coins request failed",
			zap.String("client_id", c.GetString(middleware.ClientIDKey)),
			zap.Error(err))
		respondError(c, "Failed to get free coins", err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"transaction": tx,
		"state":       state,
	})
}

func (h *GameHandler) GetHistory(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	rounds, err := appFor(c, h.registry).History(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get round history",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"rounds":  rounds,
		"count":   len(rounds),
	})
}
