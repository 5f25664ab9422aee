package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"food-order-service/apperrors"
	"food-order-service/metrics"
	"food-order-service/models"
	"food-order-service/statemachine"
	"food-order-service/store"

	"github.com/google/uuid"
)

// PriceTolerance is how far a client-supplied price or total may drift from
// the catalog before the order is rejected.
const PriceTolerance = 0.01

const (
	EventOrderCreated = "order.created"
	EventOrderStatus  = "order.status"
)

// OrderEvent is published after an order is created or its status changes.
type OrderEvent struct {
	Type  string        `json:"type"`
	Order *models.Order `json:"order"`
}

// Publisher receives order events, e.g. the realtime hub.
type Publisher interface {
	PublishOrder(ev OrderEvent)
}

type LineItemInput struct {
	MenuItemID uint
	Quantity   int
	// Price is what the client saw in its cart. Optional.
	Price *float64
}

type CreateOrderInput struct {
	// Reference lets a client replay an order it already recorded locally.
	Reference       string
	RestaurantID    uint
	Items           []LineItemInput
	TotalAmount     *float64
	DeliveryAddress string
	Phone           string
}

type UpdateStatusInput struct {
	Status models.OrderStatus
	Note   string
	// Force applies a move the transition table rejects (admin correction).
	Force bool
}

type OrderService struct {
	orders    store.OrderStore
	catalog   store.CatalogStore
	publisher Publisher
	now       func() time.Time
}

func NewOrderService(orders store.OrderStore, catalog store.CatalogStore, publisher Publisher) *OrderService {
	return &OrderService{
		orders:    orders,
		catalog:   catalog,
		publisher: publisher,
		now:       time.Now,
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// CreateOrder validates the cart against the catalog and persists a Pending
// order. The bool result is false when an existing order was returned for a
// replayed reference.
func (s *OrderService) CreateOrder(ctx context.Context, user *models.User, in CreateOrderInput) (*models.Order, bool, error) {
	if err := validateCreate(in); err != nil {
		return nil, false, err
	}

	if in.Reference != "" {
		existing, err := s.orders.GetOrderByReference(ctx, in.Reference)
		switch {
		case err == nil && existing.UserID == user.ID:
			return existing, false, nil
		case err == nil:
			return nil, false, apperrors.Validation("order reference %s already used", in.Reference)
		case !errors.Is(err, apperrors.ErrNotFound):
			return nil, false, err
		}
	} else {
		in.Reference = uuid.NewString()
	}

	if _, err := s.catalog.GetRestaurant(ctx, in.RestaurantID, false); err != nil {
		return nil, false, err
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	var total float64
	for _, line := range in.Items {
		menuItem, err := s.catalog.GetMenuItem(ctx, line.MenuItemID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, false, apperrors.Validation("menu item %d not found", line.MenuItemID)
			}
			return nil, false, err
		}
		if menuItem.RestaurantID != in.RestaurantID {
			return nil, false, apperrors.Validation("menu item %d does not belong to restaurant %d", menuItem.ID, in.RestaurantID)
		}
		if !menuItem.IsAvailable {
			return nil, false, apperrors.Validation("menu item '%s' is not available", menuItem.Name)
		}
		if line.Price != nil && math.Abs(*line.Price-menuItem.Price) > PriceTolerance {
			return nil, false, apperrors.Validation("price for '%s' changed to %.2f", menuItem.Name, menuItem.Price)
		}
		total += menuItem.Price * float64(line.Quantity)
		items = append(items, models.OrderItem{
			MenuItemID: menuItem.ID,
			Name:       menuItem.Name,
			Quantity:   line.Quantity,
			Price:      menuItem.Price,
		})
	}
	total = roundCents(total)
	if in.TotalAmount != nil && math.Abs(*in.TotalAmount-total) > PriceTolerance {
		return nil, false, apperrors.Validation("totalAmount %.2f does not match items total %.2f", *in.TotalAmount, total)
	}

	now := s.now()
	order := &models.Order{
		Reference:       in.Reference,
		UserID:          user.ID,
		RestaurantID:    in.RestaurantID,
		Items:           items,
		TotalAmount:     total,
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		Phone:           strings.TrimSpace(in.Phone),
		Status:          models.StatusPending,
		StatusHistory: []models.OrderStatusHistory{{
			ToStatus:  models.StatusPending,
			ChangedBy: user.ID,
			Note:      "order placed",
			CreatedAt: now,
		}},
		CreatedAt: now,
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, false, err
	}

	created, err := s.orders.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, false, err
	}
	metrics.RecordOrderCreated()
	s.publish(EventOrderCreated, created)
	return created, true, nil
}

func validateCreate(in CreateOrderInput) error {
	if in.RestaurantID == 0 {
		return apperrors.Validation("restaurant is required")
	}
	if len(in.Items) == 0 {
		return apperrors.Validation("items must not be empty")
	}
	for _, line := range in.Items {
		if line.MenuItemID == 0 {
			return apperrors.Validation("every item needs a menu item id")
		}
		if line.Quantity < 1 {
			return apperrors.Validation("quantity must be at least 1")
		}
		if line.Price != nil && *line.Price < 0 {
			return apperrors.Validation("price must not be negative")
		}
	}
	if strings.TrimSpace(in.DeliveryAddress) == "" {
		return apperrors.Validation("delivery address is required")
	}
	if strings.TrimSpace(in.Phone) == "" {
		return apperrors.Validation("phone is required")
	}
	return nil
}

// ListOwnOrders returns the caller's orders, newest first.
func (s *OrderService) ListOwnOrders(ctx context.Context, user *models.User) ([]models.Order, error) {
	if user == nil {
		return nil, apperrors.Unauthorized("authentication required")
	}
	return s.orders.ListOrders(ctx, store.OrderFilter{UserID: user.ID})
}

// ListAllOrders returns every order matching f. Admin only.
func (s *OrderService) ListAllOrders(ctx context.Context, admin *models.User, f store.OrderFilter) ([]models.Order, error) {
	if err := RequireAdmin(admin); err != nil {
		return nil, err
	}
	return s.orders.ListOrders(ctx, f)
}

// GetOrder returns one order to its owner or to an admin.
func (s *OrderService) GetOrder(ctx context.Context, user *models.User, id uint) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != user.ID && !user.IsAdmin {
		return nil, apperrors.Forbidden("this order does not belong to you")
	}
	return order, nil
}

// UpdateStatus moves an order to a new status. Setting the current status
// again is a no-op. Concurrent updates are last-write-wins.
func (s *OrderService) UpdateStatus(ctx context.Context, admin *models.User, id uint, in UpdateStatusInput) (*models.Order, error) {
	if err := RequireAdmin(admin); err != nil {
		return nil, err
	}
	if !in.Status.Valid() {
		return nil, apperrors.Validation("unknown order status %q", in.Status)
	}
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == in.Status {
		return order, nil
	}

	note := in.Note
	forced := false
	if err := statemachine.CanTransition(order.Status, in.Status); err != nil {
		if !in.Force {
			return nil, err
		}
		forced = true
		note = strings.TrimSpace("[ADMIN OVERRIDE] " + note)
	}

	updated, err := s.orders.UpdateOrderStatus(ctx, id, in.Status, models.OrderStatusHistory{
		FromStatus: order.Status,
		ToStatus:   in.Status,
		ChangedBy:  admin.ID,
		Note:       note,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordStatusTransition(string(order.Status), string(in.Status), forced)
	s.publish(EventOrderStatus, updated)
	return updated, nil
}

func (s *OrderService) publish(kind string, order *models.Order) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishOrder(OrderEvent{Type: kind, Order: order})
}

// OrderSummary is the admin dashboard aggregate over a list of orders.
type OrderSummary struct {
	ByStatus         map[models.OrderStatus]int `json:"byStatus"`
	DeliveredRevenue float64                    `json:"deliveredRevenue"`
	Count            int                        `json:"count"`
}

func Summarize(orders []models.Order) OrderSummary {
	sum := OrderSummary{ByStatus: map[models.OrderStatus]int{}, Count: len(orders)}
	for _, o := range orders {
		sum.ByStatus[o.Status]++
		if o.Status == models.StatusDelivered {
			sum.DeliveredRevenue += o.TotalAmount
		}
	}
	sum.DeliveredRevenue = roundCents(sum.DeliveredRevenue)
	return sum
}
