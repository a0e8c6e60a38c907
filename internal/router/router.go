// Package router assembles the HTTP surface: middleware, public routes, the
// JWT-protected API and the API-key protected gateway.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"famledger/internal/handlers"
	"famledger/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Family      *handlers.FamilyHandler
	Account     *handlers.AccountHandler
	Transaction *handlers.TransactionHandler
	Message     *handlers.MessageHandler
	Dashboard   *handlers.DashboardHandler
}

// Options controls optional parts of the router.
type Options struct {
	// InternalAPIKey guards /api/v1/internal. Empty disables the gateway.
	InternalAPIKey string
	// Swagger mounts the documentation UI at /swagger.
	Swagger bool
}

// New builds the Gin engine.
func New(h Handlers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	if opts.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	// Gateway routes
	internal := v1.Group("/internal")
	internal.Use(middleware.InternalKeyAuth(opts.InternalAPIKey))
	internal.POST("/messages/parse", h.Message.ParseMessageInternal)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", h.Auth.GetProfile)
	protected.GET("/dashboard", h.Dashboard.GetDashboard)

	families := protected.Group("/families")
	families.POST("", h.Family.CreateFamily)
	families.GET("", h.Family.GetUserFamilies)
	families.GET("/:id/accounts", h.Account.GetFamilyAccounts)

	accounts := protected.Group("/accounts")
	accounts.GET("/:id", h.Account.GetAccountByID)
	accounts.PATCH("/:id", h.Account.UpdateAccount)
	accounts.GET("/:id/transactions", h.Transaction.GetAccountTransactions)

	transactions := protected.Group("/transactions")
	transactions.POST("", h.Transaction.CreateTransaction)
	transactions.GET("/:id", h.Transaction.GetTransactionByID)
	transactions.DELETE("/:id", h.Transaction.DeleteTransaction)

	messages := protected.Group("/messages")
	messages.POST("/parse", h.Message.ParseMessage)

	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
