package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stocktrack/inventory-service/internal/ledger/domain"
	"github.com/stocktrack/inventory-service/internal/ledger/repository"
	"github.com/stocktrack/inventory-service/internal/ledger/service"
	"github.com/stocktrack/inventory-service/internal/platform/logger"
)

type LedgerHandler struct {
	ledgerService service.LedgerService
}

func NewLedgerHandler(ls service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ls}
}

func (h *LedgerHandler) RegisterRoutes(router *gin.RouterGroup) {
	movementRoutes := router.Group("/movements")
	{
		movementRoutes.POST("", h.AppendMovement)
		movementRoutes.GET("", h.ListMovements)
	}
	stockRoutes := router.Group("/products/:id")
	{
		stockRoutes.GET("/stock", h.GetCurrentStock)
		stockRoutes.GET("/valuation", h.GetValuation)
	}
}

func (h *LedgerHandler) AppendMovement(c *gin.Context) {
	var req domain.AppendMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	movement, err := h.ledgerService.AppendMovement(c.Request.Context(), req)
	if err != nil {
		var insufficientErr *service.InsufficientStockError
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.As(err, &insufficientErr):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Insufficient stock. Only %d units available for %s",
					insufficientErr.Current, insufficientErr.ProductName),
				"current_stock": insufficientErr.Current,
				"requested":     insufficientErr.Requested,
			})
		case errors.Is(err, repository.ErrTxConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "Concurrent stock update conflict, please retry"})
		case errors.Is(err, repository.ErrStorageUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage temporarily unavailable"})
		default:
			logger.Error("Hdl.AppendMovement: service error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record movement"})
		}
		return
	}
	c.JSON(http.StatusCreated, movement)
}

func (h *LedgerHandler) ListMovements(c *gin.Context) {
	movements, err := h.ledgerService.ListMovements(c.Request.Context())
	if err != nil {
		logger.Error("Hdl.ListMovements: service error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list movements"})
		return
	}
	c.JSON(http.StatusOK, movements)
}

func (h *LedgerHandler) GetCurrentStock(c *gin.Context) {
	productID, err := parseProductID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
		return
	}

	info, err := h.ledgerService.CurrentStock(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Hdl.GetCurrentStock: service error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get stock"})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *LedgerHandler) GetValuation(c *gin.Context) {
	productID, err := parseProductID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
		return
	}

	info, err := h.ledgerService.Valuation(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Hdl.GetValuation: service error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get valuation"})
		return
	}
	c.JSON(http.StatusOK, info)
}

func parseProductID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
