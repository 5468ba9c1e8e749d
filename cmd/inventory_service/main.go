package main

import (
	"github.com/gin-gonic/gin"
	catalogAPI "github.com/stocktrack/inventory-service/internal/catalog/api"
	catalogRepo "github.com/stocktrack/inventory-service/internal/catalog/repository"
	catalogService "github.com/stocktrack/inventory-service/internal/catalog/service"
	ledgerAPI "github.com/stocktrack/inventory-service/internal/ledger/api"
	ledgerRepo "github.com/stocktrack/inventory-service/internal/ledger/repository"
	ledgerService "github.com/stocktrack/inventory-service/internal/ledger/service"
	"github.com/stocktrack/inventory-service/internal/platform/config"
	"github.com/stocktrack/inventory-service/internal/platform/database"
	"github.com/stocktrack/inventory-service/internal/platform/logger"
	"github.com/stocktrack/inventory-service/internal/platform/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", err)
		return
	}

	logger.Info("Starting Inventory Service...")

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		logger.Error("Failed to connect to database", err)
		return
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to apply database migrations", err)
		return
	}

	productRepository := catalogRepo.NewPostgresProductRepository(db)
	productService := catalogService.NewProductService(productRepository)
	productHandler := catalogAPI.NewProductHandler(productService)

	movementRepository := ledgerRepo.NewPostgresMovementRepository(db)
	stockLedger := ledgerService.NewLedgerService(movementRepository)
	ledgerHandler := ledgerAPI.NewLedgerHandler(stockLedger)

	router := gin.Default()
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	apiV1 := router.Group("/api/v1")
	productHandler.RegisterRoutes(apiV1)
	ledgerHandler.RegisterRoutes(apiV1)

	logger.Info("Inventory Service running on port " + cfg.ServerPort)
	if err := router.Run(cfg.Addr()); err != nil {
		logger.Error("Failed to run Inventory Service server", err)
	}
}
