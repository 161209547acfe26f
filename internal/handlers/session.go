package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coinflip-backend/internal/services"
)

type SessionHandler struct {
	registry   *services.Registry
	jwtService *services.JWTService
	logger     *zap.Logger
}

func NewSessionHandler(registry *services.Registry, jwtService *services.JWTService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		registry:   registry,
		jwtService: jwtService,
		logger:     logger,
	}
}

// IssueToken opens a new play session and returns a token bound to it.
func (h *SessionHandler) IssueToken(c *gin.Context) {
	app, err := h.registry.Create()
	if err != nil {
		h.logger.Warn("refused to open play session", zap.Int("open", h.registry.Len()), zap.Error(err))
		respondError(c, "Failed to open play session", err, nil)
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken(app.ID())
	if err != nil {
		h.registry.Remove(app.ID())
		h.logger.Error("failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	state, err := app.State()
	if err != nil {
		respondError(c, "Failed to open play session", err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"token":      token,
		"expires_at": expiresAt,
		"client_id":  app.ID(),
		"state":      state,
	})
}

func (h *SessionHandler) GetState(c *gin.Context) {
	state, err := appFor(c, h.registry).State()
	if err != nil {
		respondError(c, "Failed to get state", err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "state": state})
}

// Connect answers once the wallet has settled; a wallet failure is reported
// in the session status rather than as an error.
func (h *SessionHandler) Connect(c *gin.Context) {
	state, err := appFor(c, h.registry).Connect(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to connect wallet", err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "state": state})
}

func (h *SessionHandler) Disconnect(c *gin.Context) {
	state, err := appFor(c, h.registry).Disconnect(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to disconnect wallet", err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "state": state})
}
