package orders

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/core/response"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/repository"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/security"
)

type OrderHandler struct {
	Repository OrderRepository
	logger     *zap.Logger
}

func NewHandler(r OrderRepository, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		Repository: r,
		logger:     logger,
	}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/orders/:id", security.Authorize("operator"), h.GetOrder)
	router.GET("/orders", security.Authorize("operator"), h.GetOrders)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID", "details": err.Error()})
		return
	}

	order, err := h.Repository.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetOrders(c *gin.Context) {
	if status := c.Query("status"); status != "" {
		if _, err := metadata.NewOrderStatus(status); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status", "details": err.Error()})
			return
		}
	}

	qb := repository.NewQueryBuilder()
	qb.AddCondition("route_number", c.Query("route_number"))
	qb.AddCondition("dock_code", c.Query("dock_code"))
	qb.AddCondition("status", c.Query("status"))

	orders, err := h.Repository.GetOrders(c.Request.Context(), qb)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}
