package client

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"food-order-service/apperrors"
	"food-order-service/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// API is the part of Client the order book needs.
type API interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	ListAllOrders(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, error)
}

// Result is an order as the caller should display it. Offline is set when
// the server could not be reached and the local copy was used instead.
type Result struct {
	Order   models.Order
	Offline bool
}

type View struct {
	Orders  []models.Order
	Offline bool
}

// OrderBook writes orders through to the server and keeps a local copy as a
// fallback. It prefers availability: when the server is unreachable writes
// land locally and are replayed later by Sync.
type OrderBook struct {
	api   API
	local Repository
	admin bool
	log   *logrus.Logger
	now   func() time.Time
}

// NewOrderBook returns a book that shows the caller's own orders.
func NewOrderBook(api API, local Repository, log *logrus.Logger) *OrderBook {
	return &OrderBook{api: api, local: local, log: log, now: time.Now}
}

// NewAdminOrderBook returns a book that shows every order.
func NewAdminOrderBook(api API, local Repository, log *logrus.Logger) *OrderBook {
	b := NewOrderBook(api, local, log)
	b.admin = true
	return b
}

func offline(err error) bool {
	return errors.Is(err, apperrors.ErrUpstreamUnavailable)
}

// retryLater reports whether a failed replay should be kept for the next
// Sync rather than dropped.
func retryLater(err error) bool {
	return offline(err) ||
		errors.Is(err, apperrors.ErrUnauthorized) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// PlaceOrder sends the order to the server. A server rejection is returned as
// is and nothing is cached. When the server is unreachable the order is kept
// locally as Pending and reported with Offline set.
func (b *OrderBook) PlaceOrder(ctx context.Context, req OrderRequest) (Result, error) {
	if req.Reference == "" {
		req.Reference = uuid.NewString()
	}

	created, err := b.api.CreateOrder(ctx, req)
	switch {
	case err == nil:
		if err := b.local.RecordOrder(ctx, *created); err != nil {
			return Result{}, err
		}
		return Result{Order: *created}, nil
	case offline(err):
		order := b.pendingOrder(req)
		if err := b.local.RecordPending(ctx, order, req); err != nil {
			return Result{}, err
		}
		b.log.WithError(err).WithField("reference", req.Reference).Warn("server unavailable, order kept locally")
		return Result{Order: order, Offline: true}, nil
	default:
		return Result{}, err
	}
}

// pendingOrder is the local stand-in shown until the server prices the order.
// Lines without a client price count as zero in the displayed total.
func (b *OrderBook) pendingOrder(req OrderRequest) models.Order {
	now := b.now()
	order := models.Order{
		Reference:       req.Reference,
		RestaurantID:    req.RestaurantID,
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		Phone:           strings.TrimSpace(req.Phone),
		Status:          models.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	var total float64
	for _, line := range req.Items {
		item := models.OrderItem{MenuItemID: line.MenuItemID, Quantity: line.Quantity}
		if line.Price != nil {
			item.Price = *line.Price
		}
		total += item.Price * float64(item.Quantity)
		order.Items = append(order.Items, item)
	}
	order.TotalAmount = math.Round(total*100) / 100
	if req.TotalAmount != nil {
		order.TotalAmount = *req.TotalAmount
	}
	return order
}

// UpdateStatus rewrites the local copy and then tries the server. Orders the
// server has never acknowledged (ID 0) are only updated locally.
func (b *OrderBook) UpdateStatus(ctx context.Context, order models.Order, status models.OrderStatus) (Result, error) {
	cached := true
	if err := b.local.RecordStatus(ctx, order.Reference, status); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return Result{}, err
		}
		cached = false
	}

	updated := order
	updated.Status = status
	if order.ID == 0 {
		return Result{Order: updated, Offline: true}, nil
	}

	remote, err := b.api.UpdateStatus(ctx, order.ID, status)
	switch {
	case err == nil:
		if cached {
			if err := b.local.RecordOrder(ctx, *remote); err != nil {
				return Result{}, err
			}
		}
		return Result{Order: *remote}, nil
	case offline(err):
		b.log.WithError(err).WithField("reference", order.Reference).Warn("server unavailable, status kept locally")
		return Result{Order: updated, Offline: true}, nil
	default:
		// The server refused the change; undo the local rewrite.
		if cached {
			if rerr := b.local.RecordStatus(ctx, order.Reference, order.Status); rerr != nil {
				b.log.WithError(rerr).Error("restore local order status")
			}
		}
		return Result{}, err
	}
}

// View returns the server's orders merged with the local copy, or only the
// local copy when the server is unreachable.
func (b *OrderBook) View(ctx context.Context) (View, error) {
	local, err := b.local.Orders(ctx)
	if err != nil {
		return View{}, err
	}

	var server []models.Order
	if b.admin {
		server, err = b.api.ListAllOrders(ctx)
	} else {
		server, err = b.api.ListOrders(ctx)
	}
	if err != nil {
		if offline(err) {
			return View{Orders: local, Offline: true}, nil
		}
		return View{}, err
	}
	return View{Orders: Merge(server, local)}, nil
}

// Sync replays orders the server has not acknowledged, exactly as they were
// first sent. Replays are idempotent by reference. It stops at the first
// transport or authentication failure. Orders the server rejects are removed
// from the local copy and reported in the joined error.
func (b *OrderBook) Sync(ctx context.Context) (int, error) {
	pending, err := b.local.Pending(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	var rejected []error
	for _, p := range pending {
		ref := p.Order.Reference
		created, err := b.api.CreateOrder(ctx, p.Request)
		if err != nil {
			if retryLater(err) {
				return synced, err
			}
			b.log.WithError(err).WithField("reference", ref).Warn("server rejected cached order, removing it")
			if rerr := b.local.Remove(ctx, ref); rerr != nil {
				return synced, rerr
			}
			rejected = append(rejected, fmt.Errorf("order %s: %w", ref, err))
			continue
		}
		// A status changed while offline is carried over.
		if created.Status != p.Order.Status && p.Order.Status != models.StatusPending {
			if updated, err := b.api.UpdateStatus(ctx, created.ID, p.Order.Status); err == nil {
				created = updated
			}
		}
		if err := b.local.RecordOrder(ctx, *created); err != nil {
			return synced, err
		}
		synced++
	}
	return synced, errors.Join(rejected...)
}

// Watch calls fn with a fresh View immediately and then every interval until
// ctx is cancelled.
func (b *OrderBook) Watch(ctx context.Context, interval time.Duration, fn func(View, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		fn(b.View(ctx))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
