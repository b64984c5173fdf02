// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/chaincert/chaincert-backend/internal/config"
	"github.com/chaincert/chaincert-backend/internal/handlers"
	"github.com/chaincert/chaincert-backend/internal/ledger"
	"github.com/chaincert/chaincert-backend/internal/middleware"
	"github.com/chaincert/chaincert-backend/internal/registry"
	"github.com/chaincert/chaincert-backend/internal/services"
	"github.com/chaincert/chaincert-backend/internal/utils"
)

func Initialize(db *gorm.DB, reg *registry.Registry, l *ledger.Ledger, cfg *config.Config) *gin.Engine {
	// Initialize services
	registryService := services.NewRegistryService(reg, db)
	authService := services.NewAuthService(db, l, cfg)
	walletService := services.NewWalletService(db, l, cfg)
	metadataService, _ := services.NewMetadataService(cfg)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(registryService)
	walletHandler := handlers.NewWalletHandler(walletService)
	metadataHandler := handlers.NewMetadataHandler(metadataService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "healthy",
			"version":        "1.0.0",
			"products_total": reg.TotalMinted(),
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Product registry routes
		products := v1.Group("/products")
		{
			products.GET("", productHandler.GetProducts)
			products.GET("/:id", productHandler.GetProduct)
			products.GET("/:id/label", productHandler.GetProductLabel)
			products.GET("/:id/events", productHandler.GetProductEvents)

			protected := products.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", middleware.AdminRequired(), middleware.MintRateLimit(), productHandler.MintProduct)
				protected.POST("/claim", productHandler.ClaimProduct)
				protected.POST("/:id/listing", productHandler.PutForSale)
				protected.POST("/:id/buy", productHandler.BuyProduct)
				protected.POST("/:id/transfer", productHandler.TransferProduct)
			}
		}

		// Ownership lookups
		accounts := v1.Group("/accounts")
		{
			accounts.GET("/:address/products", productHandler.GetProductsByOwner)
		}

		// Wallet routes
		wallet := v1.Group("/wallet")
		wallet.Use(middleware.AuthRequired())
		{
			wallet.GET("/balance", walletHandler.GetBalance)
			wallet.GET("/deposits", walletHandler.GetDeposits)
			wallet.POST("/deposit", walletHandler.CreateDeposit)
			wallet.POST("/deposit/confirm", walletHandler.ConfirmDeposit)
		}

		// Metadata upload (authority only)
		metadata := v1.Group("/metadata")
		metadata.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			metadata.POST("", metadataHandler.UploadMetadata)
		}
	}

	return r
}
