package handlers

import (
	"net/http"

	"food-order-service/apperrors"
	"food-order-service/middleware"
	"food-order-service/models"
	"food-order-service/service"
	"food-order-service/store"

	"github.com/gin-gonic/gin"
)

// AdminGetAllOrders returns all orders with full detail and a dashboard
// summary (admin only)
func (h *Handler) AdminGetAllOrders(c *gin.Context) {
	filter := store.OrderFilter{Status: models.OrderStatus(c.Query("status"))}
	if filter.Status != "" && !filter.Status.Valid() {
		h.respondError(c, apperrors.Validation("unknown order status %q", filter.Status))
		return
	}
	var err error
	if filter.UserID, err = queryID(c, "user_id"); err != nil {
		h.respondError(c, err)
		return
	}
	if filter.RestaurantID, err = queryID(c, "restaurant_id"); err != nil {
		h.respondError(c, err)
		return
	}

	orders, err := h.orders.ListAllOrders(c.Request.Context(), middleware.CurrentUser(c), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	summary := service.Summarize(orders)
	c.JSON(http.StatusOK, gin.H{
		"order_summary": summary.ByStatus,
		"total_revenue": summary.DeliveredRevenue,
		"count":         summary.Count,
		"orders":        orders,
	})
}

// AdminGetAllUsers returns all accounts, password hashes stripped (admin only)
func (h *Handler) AdminGetAllUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	views := make([]models.UserView, 0, len(users))
	for i := range users {
		views = append(views, users[i].View())
	}
	c.JSON(http.StatusOK, gin.H{"count": len(views), "users": views})
}

func (h *Handler) AdminGetUser(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	user, err := h.users.Get(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.View()})
}

type SetUserStatusRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// AdminSetUserStatus activates or deactivates an account (admin only)
func (h *Handler) AdminSetUserStatus(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req SetUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	user, err := h.users.SetActive(c.Request.Context(), middleware.CurrentUser(c), id, *req.IsActive)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User updated", "user": user.View()})
}

func (h *Handler) AdminDeleteUser(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.users.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
