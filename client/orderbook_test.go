package client

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"food-order-service/apperrors"
	"food-order-service/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI stores orders by reference and can be switched offline.
type fakeAPI struct {
	mu      sync.Mutex
	down    bool
	fail    error
	nextID  uint
	orders  []models.Order
	others  []models.Order // visible to ListAllOrders only
	creates int
}

var errDown = apperrors.Upstream(errors.New("connection refused"))

func (f *fakeAPI) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *fakeAPI) CreateOrder(ctx context.Context, req OrderRequest) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, errDown
	}
	if f.fail != nil {
		return nil, f.fail
	}
	f.creates++
	for _, o := range f.orders {
		if o.Reference == req.Reference {
			return &o, nil
		}
	}
	if len(req.Items) == 0 {
		return nil, apperrors.Validation("items must not be empty")
	}
	f.nextID++
	o := models.Order{ID: f.nextID, Reference: req.Reference, RestaurantID: req.RestaurantID, Status: models.StatusPending}
	if req.TotalAmount != nil {
		o.TotalAmount = *req.TotalAmount
	}
	f.orders = append(f.orders, o)
	return &o, nil
}

func (f *fakeAPI) ListOrders(ctx context.Context) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, errDown
	}
	return append([]models.Order(nil), f.orders...), nil
}

func (f *fakeAPI) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	own, err := f.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append(append([]models.Order(nil), f.others...), own...), nil
}

func (f *fakeAPI) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, errDown
	}
	for i := range f.orders {
		if f.orders[i].ID == id {
			if f.orders[i].Status == models.StatusDelivered && status == models.StatusPending {
				return nil, apperrors.FromCode("InvalidTransition", "invalid transition")
			}
			f.orders[i].Status = status
			o := f.orders[i]
			return &o, nil
		}
	}
	return nil, apperrors.NotFound("order %d not found", id)
}

func newBook(t *testing.T) (*OrderBook, *fakeAPI, Repository) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	api := &fakeAPI{}
	repo := NewMemoryRepository()
	return NewOrderBook(api, repo, log), api, repo
}

func sampleRequest() OrderRequest {
	ten, five, total := 10.0, 5.0, 25.0
	return OrderRequest{
		RestaurantID: 1,
		Items: []OrderLine{
			{MenuItemID: 1, Quantity: 2, Price: &ten},
			{MenuItemID: 2, Quantity: 1, Price: &five},
		},
		TotalAmount:     &total,
		DeliveryAddress: "1 Main St",
		Phone:           "555",
	}
}

func TestPlaceOrderOnline(t *testing.T) {
	book, _, repo := newBook(t)
	ctx := context.Background()

	res, err := book.PlaceOrder(ctx, sampleRequest())
	require.NoError(t, err)
	assert.False(t, res.Offline)
	assert.NotZero(t, res.Order.ID)
	assert.NotEmpty(t, res.Order.Reference)

	view, err := book.View(ctx)
	require.NoError(t, err)
	assert.False(t, view.Offline)
	assert.Len(t, view.Orders, 1, "the local mirror does not duplicate the server copy")

	local, err := repo.Orders(ctx)
	require.NoError(t, err)
	assert.Len(t, local, 1)
}

func TestPlaceOrderRejected(t *testing.T) {
	book, _, repo := newBook(t)
	ctx := context.Background()

	req := sampleRequest()
	req.Items = nil
	_, err := book.PlaceOrder(ctx, req)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	local, err := repo.Orders(ctx)
	require.NoError(t, err)
	assert.Empty(t, local)
}

func TestOfflineOrderIsKeptAndSynced(t *testing.T) {
	book, api, _ := newBook(t)
	ctx := context.Background()

	api.setDown(true)
	res, err := book.PlaceOrder(ctx, sampleRequest())
	require.NoError(t, err)
	assert.True(t, res.Offline)
	assert.Zero(t, res.Order.ID)
	assert.Equal(t, 25.0, res.Order.TotalAmount)
	assert.Equal(t, models.StatusPending, res.Order.Status)

	view, err := book.View(ctx)
	require.NoError(t, err)
	assert.True(t, view.Offline)
	require.Len(t, view.Orders, 1)

	n, err := book.Sync(ctx)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
	assert.Zero(t, n)

	api.setDown(false)
	n, err = book.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = book.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "acknowledged orders are not replayed")

	view, err = book.View(ctx)
	require.NoError(t, err)
	require.Len(t, view.Orders, 1)
	assert.NotZero(t, view.Orders[0].ID)
	assert.Equal(t, res.Order.Reference, view.Orders[0].Reference)
}

func TestSyncRemovesRejectedOrders(t *testing.T) {
	book, api, repo := newBook(t)
	ctx := context.Background()

	api.setDown(true)
	req := sampleRequest()
	req.Items = nil
	res, err := book.PlaceOrder(ctx, req)
	require.NoError(t, err)
	assert.True(t, res.Offline)
	_, err = book.PlaceOrder(ctx, sampleRequest())
	require.NoError(t, err)

	api.setDown(false)
	n, err := book.Sync(ctx)
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Contains(t, err.Error(), res.Order.Reference)

	local, err := repo.Orders(ctx)
	require.NoError(t, err)
	require.Len(t, local, 1, "the rejected order is no longer shown")
	assert.NotZero(t, local[0].ID)

	n, err = book.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSyncKeepsOrdersOnAuthFailure(t *testing.T) {
	book, api, repo := newBook(t)
	ctx := context.Background()

	api.setDown(true)
	_, err := book.PlaceOrder(ctx, sampleRequest())
	require.NoError(t, err)

	api.setDown(false)
	api.mu.Lock()
	api.fail = apperrors.Unauthorized("invalid or expired token")
	api.mu.Unlock()
	_, err = book.Sync(ctx)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	pending, err := repo.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "an expired session does not discard the order")
}

func TestAdminViewShowsEveryOrder(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	api := &fakeAPI{others: []models.Order{{ID: 50, Reference: "someone-else", Status: models.StatusPreparing}}}
	repo := NewMemoryRepository()
	admin := NewAdminOrderBook(api, repo, log)
	own := NewOrderBook(api, repo, log)
	ctx := context.Background()

	placed, err := admin.PlaceOrder(ctx, sampleRequest())
	require.NoError(t, err)
	api.setDown(true)
	queued, err := admin.PlaceOrder(ctx, sampleRequest())
	require.NoError(t, err)
	api.setDown(false)

	view, err := admin.View(ctx)
	require.NoError(t, err)
	assert.False(t, view.Offline)
	assert.Equal(t, []string{"someone-else", placed.Order.Reference, queued.Order.Reference}, refs(view.Orders))

	view, err = own.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{placed.Order.Reference, queued.Order.Reference}, refs(view.Orders))
}

func TestUpdateStatus(t *testing.T) {
	book, api, repo := newBook(t)
	ctx := context.Background()

	placed, err := book.PlaceOrder(ctx, sampleRequest())
	require.NoError(t, err)

	res, err := book.UpdateStatus(ctx, placed.Order, models.StatusDelivered)
	require.NoError(t, err)
	assert.False(t, res.Offline)
	assert.Equal(t, models.StatusDelivered, res.Order.Status)

	_, err = book.UpdateStatus(ctx, res.Order, models.StatusPending)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	local, err := repo.Orders(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, local[0].Status, "a refused change is undone locally")

	api.setDown(true)
	res, err = book.UpdateStatus(ctx, res.Order, models.StatusPreparing)
	require.NoError(t, err)
	assert.True(t, res.Offline)
	local, err = repo.Orders(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, local[0].Status)
}

func TestWatchStopsOnCancel(t *testing.T) {
	book, _, _ := newBook(t)
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- book.Watch(ctx, 5*time.Millisecond, func(v View, err error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 3
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Watch did not stop")
	}
}
