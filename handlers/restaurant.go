package handlers

import (
	"net/http"

	"food-order-service/service"

	"github.com/gin-gonic/gin"
)

type RestaurantRequest struct {
	Name         *string  `json:"name"`
	Cuisine      *string  `json:"cuisine"`
	Rating       *float64 `json:"rating" binding:"omitempty,min=0,max=5"`
	Image        *string  `json:"image"`
	DeliveryTime *string  `json:"deliveryTime"`
	Address      *string  `json:"address"`
	Phone        *string  `json:"phone"`
}

func (r RestaurantRequest) input() service.RestaurantInput {
	return service.RestaurantInput{
		Name:         r.Name,
		Cuisine:      r.Cuisine,
		Rating:       r.Rating,
		Image:        r.Image,
		DeliveryTime: r.DeliveryTime,
		Address:      r.Address,
		Phone:        r.Phone,
	}
}

type MenuItemRequest struct {
	RestaurantID *uint    `json:"restaurantId"`
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Price        *float64 `json:"price" binding:"omitempty,min=0"`
	Image        *string  `json:"image"`
	Category     *string  `json:"category"`
	IsAvailable  *bool    `json:"isAvailable"`
}

func (r MenuItemRequest) input() service.MenuItemInput {
	return service.MenuItemInput{
		RestaurantID: r.RestaurantID,
		Name:         r.Name,
		Description:  r.Description,
		Price:        r.Price,
		Image:        r.Image,
		Category:     r.Category,
		IsAvailable:  r.IsAvailable,
	}
}

// CreateRestaurant adds a restaurant to the catalog (admin only)
func (h *Handler) CreateRestaurant(c *gin.Context) {
	var req RestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	restaurant, err := h.catalog.CreateRestaurant(c.Request.Context(), req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Restaurant created", "restaurant": restaurant})
}

// UpdateRestaurant patches the fields present in the body (admin only)
func (h *Handler) UpdateRestaurant(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req RestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	restaurant, err := h.catalog.UpdateRestaurant(c.Request.Context(), id, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant updated", "restaurant": restaurant})
}

// DeleteRestaurant removes a restaurant and its menu (admin only)
func (h *Handler) DeleteRestaurant(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.catalog.DeleteRestaurant(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant deleted"})
}

// AddMenuItem adds an item to a restaurant's menu (admin only)
func (h *Handler) AddMenuItem(c *gin.Context) {
	var req MenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	item, err := h.catalog.CreateMenuItem(c.Request.Context(), req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Menu item added", "item": item})
}

// UpdateMenuItem patches a menu item, e.g. to mark it unavailable (admin only)
func (h *Handler) UpdateMenuItem(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req MenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	item, err := h.catalog.UpdateMenuItem(c.Request.Context(), id, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item updated", "item": item})
}

func (h *Handler) DeleteMenuItem(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.catalog.DeleteMenuItem(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item deleted"})
}
