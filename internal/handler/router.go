package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRouter wires the endpoints. The auth middleware is injected so
// tests can run the full router against in-memory stores.
func SetupRouter(h *Handler, authRequired gin.HandlerFunc, metricsHandler http.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
			auth.POST("/logout", authRequired, h.Logout)
			auth.GET("/me", authRequired, h.Me)
		}

		account := api.Group("/account", authRequired)
		{
			account.GET("/balance", h.GetBalance)
		}

		transactions := api.Group("/transactions", authRequired)
		{
			transactions.GET("/mutation", h.GetMutation)
			transactions.POST("/topup", h.TopUp)
			transactions.POST("/withdraw", h.Withdraw)
			transactions.POST("/transfer", h.Transfer)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	return r
}
