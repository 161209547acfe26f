package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"coinflip-backend/internal/services"
)

const ClientIDKey = "client_id"

func AuthMiddleware(jwtService *services.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
				c.Abort()
				return
			}
			tokenString = parts[1]
		} else {
			// Browsers cannot set headers on a websocket upgrade.
			tokenString = c.Query("token")
			if tokenString == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
				c.Abort()
				return
			}
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(ClientIDKey, claims.ClientID)

		c.Next()
	}
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, clientID, action string, limit int, window time.Duration) (bool, error)
}

// RateLimitMiddleware caps the number of bets per client per minute. A nil
// limiter lets every request through.
func RateLimitMiddleware(limiter RateLimiter, betsPerMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || betsPerMinute <= 0 {
			c.Next()
			return
		}

		clientID := c.GetString(ClientIDKey)
		if clientID == "" {
			c.Next()
			return
		}

		path := c.Request.URL.Path
		if !strings.HasSuffix(path, "/coinflip/bet") {
			c.Next()
			return
		}

		window := time.Minute
		allowed, err := limiter.CheckRateLimit(c.Request.Context(), clientID, "bet", betsPerMinute, window)
		if err != nil || !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// TokenRateLimitMiddleware caps how many play sessions one client IP can
// open per minute. A nil limiter lets every request through.
func TokenRateLimitMiddleware(limiter RateLimiter, perMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || perMinute <= 0 {
			c.Next()
			return
		}

		window := time.Minute
		allowed, err := limiter.CheckRateLimit(c.Request.Context(), c.ClientIP(), "token", perMinute, window)
		if err != nil || !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
