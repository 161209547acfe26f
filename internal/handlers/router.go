package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"coinflip-backend/internal/middleware"
	"coinflip-backend/internal/services"
)

type RouterConfig struct {
	Registry       *services.Registry
	Hub            *WebSocketHub
	JWTService     *services.JWTService
	RateLimiter    middleware.RateLimiter // nil disables rate limiting
	BetRateLimit   int
	TokenRateLimit int
	Metrics        http.Handler // nil serves the default prometheus registry
	Logger         *zap.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}

	// An open socket means the page is still showing its play session.
	cfg.Registry.SetKeepAlive(cfg.Hub.HasConnections)

	sessionHandler := NewSessionHandler(cfg.Registry, cfg.JWTService, logger)
	gameHandler := NewGameHandler(cfg.Registry, logger)
	wsHandler := NewWebSocketHandler(cfg.Registry, cfg.Hub, logger)

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"sessions": cfg.Registry.Len(),
		})
	})
	router.GET("/metrics", gin.WrapH(metrics))
	router.POST("/auth/token",
		middleware.TokenRateLimitMiddleware(cfg.RateLimiter, cfg.TokenRateLimit),
		sessionHandler.IssueToken)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(cfg.JWTService))
	protected.Use(middleware.RateLimitMiddleware(cfg.RateLimiter, cfg.BetRateLimit))
	{
		protected.GET("/state", sessionHandler.GetState)
		protected.GET("/network", gameHandler.RefreshNetwork)
		protected.POST("/funds", gameHandler.RequestFunds)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		session := protected.Group("/session")
		{
			session.POST("/connect", sessionHandler.Connect)
			session.POST("/disconnect", sessionHandler.Disconnect)
		}

		games := protected.Group("/games")
		{
			games.GET("/history", gameHandler.GetHistory)

			coinflip := games.Group("/coinflip")
			{
				coinflip.POST("/bet", gameHandler.PlaceBet)
				coinflip.POST("/reset", gameHandler.Reset)
			}
		}
	}

	return router
}
