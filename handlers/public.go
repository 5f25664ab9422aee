package handlers

import (
	"context"
	"net/http"
	"time"

	"food-order-service/models"
	"food-order-service/statemachine"
	"food-order-service/store"

	"github.com/gin-gonic/gin"
)

// ListRestaurants returns the catalog (public). Filter by cuisine or search by name.
func (h *Handler) ListRestaurants(c *gin.Context) {
	restaurants, err := h.catalog.ListRestaurants(c.Request.Context(), store.RestaurantFilter{
		Cuisine: c.Query("cuisine"),
		Search:  c.Query("search"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":       len(restaurants),
		"restaurants": restaurants,
	})
}

// GetRestaurant returns a single restaurant with its full menu
func (h *Handler) GetRestaurant(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	restaurant, err := h.catalog.GetRestaurant(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurant})
}

// GetMenu returns the available items of a restaurant (public)
func (h *Handler) GetMenu(c *gin.Context) {
	id, err := parseID(c, "restaurantId")
	if err != nil {
		h.respondError(c, err)
		return
	}
	items, err := h.catalog.ListMenu(c.Request.Context(), id, c.Query("category"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(items),
		"menu":  items,
	})
}

// GetStateMachineInfo returns the order lifecycle for clients and docs
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	var terminal []models.OrderStatus
	for _, s := range []models.OrderStatus{models.StatusPending, models.StatusPreparing, models.StatusDelivered} {
		if statemachine.IsTerminal(s) {
			terminal = append(terminal, s)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"state_machine":   statemachine.GetAllTransitions(),
		"initial_state":   models.StatusPending,
		"terminal_states": terminal,
		"description":     "Food order lifecycle. Repeating the current status is a no-op; admins may force any move.",
	})
}

// Health reports whether the store answers a ping.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "Food Order Service",
	})
}
