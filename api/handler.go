package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"barberpos/internal/sales"
)

// salesHandler holds the sales service and implements HTTP handlers for
// sales operations.
type salesHandler struct {
	salesService *sales.Service
	logger       *zap.Logger
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(salesService *sales.Service, logger *zap.Logger) *salesHandler {
	return &salesHandler{
		salesService: salesService,
		logger:       logger,
	}
}

type saleItemRequest struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (r saleItemRequest) toItem() *sales.SaleItem {
	return &sales.SaleItem{
		ID:        r.ID,
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
		UnitPrice: r.UnitPrice,
	}
}

// handleRegisterSale handles POST /sales.
func (h *salesHandler) handleRegisterSale(ctx *gin.Context) {
	var req struct {
		UserID int64             `json:"user_id"`
		Items  []saleItemRequest `json:"items"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	items := make([]*sales.SaleItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, it.toItem())
	}

	sale, err := h.salesService.RegisterSale(ctx.Request.Context(), req.UserID, items)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, sale)
}

// handleListSales handles GET /sales.
func (h *salesHandler) handleListSales(ctx *gin.Context) {
	all, err := h.salesService.ListSales(ctx.Request.Context())
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, all)
}

// handleGetSale handles GET /sales/:id.
func (h *salesHandler) handleGetSale(ctx *gin.Context) {
	id, ok := saleID(ctx)
	if !ok {
		return
	}
	sale, err := h.salesService.GetSale(ctx.Request.Context(), id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sale)
}

// handleUpdateSale handles PUT /sales/:id.
func (h *salesHandler) handleUpdateSale(ctx *gin.Context) {
	id, ok := saleID(ctx)
	if !ok {
		return
	}
	var req struct {
		UserID   int64             `json:"user_id"`
		SaleDate time.Time         `json:"sale_date"`
		Items    []saleItemRequest `json:"items"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	upd := &sales.Sale{
		UserID:   req.UserID,
		SaleDate: req.SaleDate,
	}
	for _, it := range req.Items {
		upd.Items = append(upd.Items, it.toItem())
	}

	sale, err := h.salesService.UpdateSale(ctx.Request.Context(), id, upd)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sale)
}

// handleDeactivateSale handles PUT /sales/:id/deactivate (soft delete).
func (h *salesHandler) handleDeactivateSale(ctx *gin.Context) {
	id, ok := saleID(ctx)
	if !ok {
		return
	}
	sale, err := h.salesService.Deactivate(ctx.Request.Context(), id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sale)
}

// handleActivateSale handles PUT /sales/:id/activate.
func (h *salesHandler) handleActivateSale(ctx *gin.Context) {
	id, ok := saleID(ctx)
	if !ok {
		return
	}
	sale, err := h.salesService.Activate(ctx.Request.Context(), id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sale)
}

// handleDeleteSale handles DELETE /sales/:id. The existence check lives
// here, not in the delete operation itself.
func (h *salesHandler) handleDeleteSale(ctx *gin.Context) {
	id, ok := saleID(ctx)
	if !ok {
		return
	}
	if _, err := h.salesService.GetSale(ctx.Request.Context(), id); err != nil {
		h.respondError(ctx, err)
		return
	}
	if err := h.salesService.DeleteSale(ctx.Request.Context(), id); err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusOK)
}

func saleID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid sale id"})
		return 0, false
	}
	return id, true
}

// respondError maps service errors to HTTP statuses: missing references are
// 404, redundant lifecycle transitions are 409, insufficient stock is 422,
// anything else is a 500.
func (h *salesHandler) respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, sales.ErrSaleNotFound),
		errors.Is(err, sales.ErrUserNotFound),
		errors.Is(err, sales.ErrProductNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, sales.ErrAlreadyActive), errors.Is(err, sales.ErrAlreadyInactive):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, sales.ErrInsufficientStock):
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error("internal error", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
