package handler

import (
	"log"
	"strings"
	"time"

	"minibank/internal/model"
	"minibank/internal/repository"
	"minibank/internal/service"
	"minibank/pkg/response"
	"minibank/pkg/token"

	"github.com/gin-gonic/gin"
)

const (
	ctxKeyAccount = "auth_account"
	ctxKeyClaims  = "auth_claims"
)

// AccountFromContext returns the authenticated account stored by
// AuthRequired, or nil outside an authenticated route.
func AccountFromContext(c *gin.Context) *model.Account {
	if v, ok := c.Get(ctxKeyAccount); ok {
		if account, ok := v.(*model.Account); ok {
			return account
		}
	}
	return nil
}

// ClaimsFromContext returns the verified token claims stored by
// AuthRequired.
func ClaimsFromContext(c *gin.Context) *token.Claims {
	if v, ok := c.Get(ctxKeyClaims); ok {
		if claims, ok := v.(*token.Claims); ok {
			return claims
		}
	}
	return nil
}

// AuthRequired verifies the bearer token, rejects revoked tokens and loads
// the acting account into the request context.
func AuthRequired(tokens *token.Manager, denylist service.TokenDenylist, accounts repository.AccountStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "missing or malformed bearer token")
			c.Abort()
			return
		}

		claims, err := tokens.Verify(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		revoked, err := denylist.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			response.ServerError(c, "failed to verify token")
			c.Abort()
			return
		}
		if revoked {
			response.Unauthorized(c, "token has been revoked")
			c.Abort()
			return
		}

		account, err := accounts.GetByUserID(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Unauthorized(c, "no account for this token")
			c.Abort()
			return
		}

		c.Set(ctxKeyClaims, claims)
		c.Set(ctxKeyAccount, account)
		c.Next()
	}
}

// LoggerMiddleware logs one line per request.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if query != "" {
			path = path + "?" + query
		}

		log.Printf("[HTTP] %d | %13v | %15s | %-7s %s",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
		)
	}
}

// RecoveryMiddleware keeps a handler panic from killing the process.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %v", err)
				c.AbortWithStatusJSON(500, gin.H{
					"code":    500,
					"message": "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// CORSMiddleware allows cross-origin API calls.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
