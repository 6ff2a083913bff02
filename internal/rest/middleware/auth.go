package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/config"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

// AuthMiddleware decodes the bearer token's tenant_id/user_id claims into
// the request context every handler and repository call reads tenant
// scope from. Every admin route runs behind this except HealthHandler.
func AuthMiddleware(cfg *config.Configuration, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			c.Abort()
			return
		}

		tenantID, userID, err := parseClaims(token, cfg.Auth.JWTSecret)
		if err != nil {
			log.Debugw("rejected bearer token", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		ctx := types.WithTenantID(c.Request.Context(), tenantID)
		ctx = types.WithUserID(ctx, userID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func parseClaims(token, secret string) (tenantID, userID string, err error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", "", err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", "", fmt.Errorf("invalid token claims")
	}

	tenantID, ok = claims["tenant_id"].(string)
	if !ok || tenantID == "" {
		return "", "", fmt.Errorf("token missing tenant_id")
	}
	userID, _ = claims["user_id"].(string)

	return tenantID, userID, nil
}
