package handlers

import (
	"net/http"

	"food-order-service/middleware"
	"food-order-service/models"
	"food-order-service/service"
	"food-order-service/statemachine"

	"github.com/gin-gonic/gin"
)

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Note   string             `json:"note"`
	// Force applies a move the state machine rejects (admin correction).
	Force bool `json:"force"`
}

// UpdateOrderStatus moves an order through the fulfilment lifecycle (admin only)
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bindError(err))
		return
	}

	admin := middleware.CurrentUser(c)
	before, err := h.orders.GetOrder(c.Request.Context(), admin, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), admin, id, service.UpdateStatusInput{
		Status: req.Status,
		Note:   req.Note,
		Force:  req.Force,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":           "Order status updated",
		"previous_status":   before.Status,
		"current_status":    order.Status,
		"valid_next_states": statemachine.ValidTransitionsFrom(order.Status),
		"order":             order,
	})
}
