package handlers

import (
	"net/http"

	"food-order-service/middleware"
	"food-order-service/service"

	"github.com/gin-gonic/gin"
)

type OrderItemRequest struct {
	MenuItemID uint     `json:"menuItemId" binding:"required"`
	Quantity   int      `json:"quantity" binding:"required,min=1"`
	Price      *float64 `json:"price"`
}

type PlaceOrderRequest struct {
	Reference       string             `json:"reference"`
	RestaurantID    uint               `json:"restaurantId" binding:"required"`
	Items           []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	TotalAmount     *float64           `json:"totalAmount"`
	DeliveryAddress string             `json:"deliveryAddress" binding:"required"`
	Phone           string             `json:"phone" binding:"required"`
}

// PlaceOrder creates a new order for the caller. Replaying a reference the
// caller already used returns the stored order with 200.
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bindError(err))
		return
	}

	in := service.CreateOrderInput{
		Reference:       req.Reference,
		RestaurantID:    req.RestaurantID,
		TotalAmount:     req.TotalAmount,
		DeliveryAddress: req.DeliveryAddress,
		Phone:           req.Phone,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.LineItemInput{
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			Price:      it.Price,
		})
	}

	order, created, err := h.orders.CreateOrder(c.Request.Context(), middleware.CurrentUser(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if !created {
		c.JSON(http.StatusOK, gin.H{"message": "Order already recorded", "order": order})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Order placed successfully", "order": order})
}

// GetMyOrders returns the caller's orders, newest first
func (h *Handler) GetMyOrders(c *gin.Context) {
	orders, err := h.orders.ListOwnOrders(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetOrderDetail returns one order to its owner or an admin
func (h *Handler) GetOrderDetail(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}
