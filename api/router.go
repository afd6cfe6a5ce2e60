package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"barberpos/internal/sales"
)

// InitRoutes registers all sales endpoints on the given Gin engine, binding
// each HTTP method and path to the appropriate handler function.
func InitRoutes(e *gin.Engine, salesService *sales.Service, logger *zap.Logger) {
	salesHandler := NewSalesHandler(salesService, logger)

	e.Use(requestIDMiddleware(logger))

	e.GET("/sales", salesHandler.handleListSales)
	e.GET("/sales/:id", salesHandler.handleGetSale)
	e.POST("/sales", salesHandler.handleRegisterSale)
	e.PUT("/sales/:id", salesHandler.handleUpdateSale)
	e.PUT("/sales/:id/deactivate", salesHandler.handleDeactivateSale)
	e.PUT("/sales/:id/activate", salesHandler.handleActivateSale)
	e.DELETE("/sales/:id", salesHandler.handleDeleteSale)

	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
}

// requestIDMiddleware tags every request with a correlation ID, echoes it in
// the X-Request-ID response header and logs the request outcome.
func requestIDMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		logger.Info("request handled",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
