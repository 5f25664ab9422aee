// Package store holds the persistence contracts for users, the catalog and orders,
// with an in-memory and a gorm-backed implementation.
package store

import (
	"context"

	"food-order-service/models"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetUserActive(ctx context.Context, id uint, active bool) (*models.User, error)
	DeleteUser(ctx context.Context, id uint) error
}

type RestaurantFilter struct {
	Cuisine string
	Search  string
}

type MenuFilter struct {
	Category      string
	AvailableOnly bool
}

type CatalogStore interface {
	ListRestaurants(ctx context.Context, f RestaurantFilter) ([]models.Restaurant, error)
	GetRestaurant(ctx context.Context, id uint, withMenu bool) (*models.Restaurant, error)
	CreateRestaurant(ctx context.Context, r *models.Restaurant) error
	UpdateRestaurant(ctx context.Context, r *models.Restaurant) error
	DeleteRestaurant(ctx context.Context, id uint) error

	ListMenu(ctx context.Context, restaurantID uint, f MenuFilter) ([]models.MenuItem, error)
	GetMenuItem(ctx context.Context, id uint) (*models.MenuItem, error)
	CreateMenuItem(ctx context.Context, m *models.MenuItem) error
	UpdateMenuItem(ctx context.Context, m *models.MenuItem) error
	DeleteMenuItem(ctx context.Context, id uint) error
}

// OrderFilter narrows ListOrders. Zero values match everything.
type OrderFilter struct {
	UserID       uint
	RestaurantID uint
	Status       models.OrderStatus
}

type OrderStore interface {
	// CreateOrder persists the order with its items and status history.
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	GetOrderByReference(ctx context.Context, ref string) (*models.Order, error)
	// ListOrders returns matching orders newest first with user, restaurant,
	// menu items and history expanded.
	ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error)
	// UpdateOrderStatus overwrites the status and appends h to the history.
	UpdateOrderStatus(ctx context.Context, id uint, status models.OrderStatus, h models.OrderStatusHistory) (*models.Order, error)
}

// Store is everything the services need.
type Store interface {
	UserStore
	CatalogStore
	OrderStore
	Ping(ctx context.Context) error
	Close() error
}
