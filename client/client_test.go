package client_test

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"food-order-service/apperrors"
	"food-order-service/client"
	"food-order-service/handlers"
	"food-order-service/models"
	"food-order-service/realtime"
	"food-order-service/routes"
	"food-order-service/service"
	"food-order-service/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv    *httptest.Server
	items  []uint
	restID uint
}

func startServer(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)
	ctx := context.Background()

	db := store.NewMemoryStore()
	auth := service.NewAuthService(db, []byte("client-test-secret"), time.Hour)
	_, err := auth.EnsureAdmin(ctx, "Admin", "admin@example.com", "admin123")
	require.NoError(t, err)

	catalog := service.NewCatalogService(db)
	name, cuisine := "R", "Italian"
	r, err := catalog.CreateRestaurant(ctx, service.RestaurantInput{Name: &name, Cuisine: &cuisine})
	require.NoError(t, err)
	f := &fixture{restID: r.ID}
	for _, item := range []struct {
		name  string
		price float64
	}{{"item1", 10}, {"item2", 5}} {
		n, p := item.name, item.price
		m, err := catalog.CreateMenuItem(ctx, service.MenuItemInput{RestaurantID: &r.ID, Name: &n, Price: &p})
		require.NoError(t, err)
		f.items = append(f.items, m.ID)
	}

	hub := realtime.NewHub(auth, log)
	h := handlers.New(auth, service.NewOrderService(db, db, hub), catalog, service.NewUserService(db, hub), db, log)
	engine := gin.New()
	routes.SetupRoutes(engine, routes.Deps{Handler: h, Auth: auth, OrderFeed: hub.ServeWS})

	f.srv = httptest.NewServer(engine)
	t.Cleanup(func() {
		hub.Close()
		f.srv.Close()
	})
	return f
}

func (f *fixture) request() client.OrderRequest {
	ten, five := 10.0, 5.0
	return client.OrderRequest{
		RestaurantID: f.restID,
		Items: []client.OrderLine{
			{MenuItemID: f.items[0], Quantity: 2, Price: &ten},
			{MenuItemID: f.items[1], Quantity: 1, Price: &five},
		},
		DeliveryAddress: "1 Main St",
		Phone:           "555",
	}
}

func TestClientAgainstServer(t *testing.T) {
	f := startServer(t)
	ctx := context.Background()

	alice := client.New(f.srv.URL, nil)
	sess, err := alice.Register(ctx, client.RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "pw123"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", sess.User.Email)
	assert.NotEmpty(t, alice.Token())

	order, err := alice.CreateOrder(ctx, f.request())
	require.NoError(t, err)
	assert.Equal(t, 25.0, order.TotalAmount)

	_, err = alice.ListAllOrders(ctx)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = alice.UpdateStatus(ctx, order.ID, models.StatusDelivered)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	admin := client.New(f.srv.URL, nil)
	_, err = admin.AdminLogin(ctx, "alice@example.com", "pw123")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = admin.AdminLogin(ctx, "admin@example.com", "admin123")
	require.NoError(t, err)

	updated, err := admin.UpdateStatus(ctx, order.ID, models.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, updated.Status)

	_, err = admin.UpdateStatus(ctx, order.ID, models.StatusPreparing)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	own, err := alice.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, models.StatusDelivered, own[0].Status)

	all, err := admin.ListAllOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestClientUnreachableServer(t *testing.T) {
	f := startServer(t)
	ctx := context.Background()

	c := client.New(f.srv.URL, nil)
	_, err := c.Register(ctx, client.RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "pw123"})
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	repo, err := client.OpenSQLiteRepository(":memory:")
	require.NoError(t, err)
	defer repo.Close()
	book := client.NewOrderBook(c, repo, log)

	f.srv.Close()

	_, err = c.ListOrders(ctx)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)

	res, err := book.PlaceOrder(ctx, f.request())
	require.NoError(t, err)
	assert.True(t, res.Offline)

	view, err := book.View(ctx)
	require.NoError(t, err)
	assert.True(t, view.Offline)
	assert.Len(t, view.Orders, 1)
}

func TestClientSubscribe(t *testing.T) {
	f := startServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	admin := client.New(f.srv.URL, nil)
	_, err := admin.AdminLogin(ctx, "admin@example.com", "admin123")
	require.NoError(t, err)

	events := make(chan client.Event, 4)
	done := make(chan error, 1)
	go func() {
		done <- admin.Subscribe(ctx, func(ev client.Event) {
			select {
			case events <- ev:
			default:
			}
		})
	}()

	alice := client.New(f.srv.URL, nil)
	_, err = alice.Register(ctx, client.RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "pw123"})
	require.NoError(t, err)

	// The subscription may not be registered yet; keep ordering until an
	// event arrives.
	deadline := time.After(3 * time.Second)
	for {
		_, err := alice.CreateOrder(ctx, f.request())
		require.NoError(t, err)
		select {
		case ev := <-events:
			assert.Equal(t, service.EventOrderCreated, ev.Type)
			assert.Equal(t, 25.0, ev.Order.TotalAmount)
			cancel()
			select {
			case err := <-done:
				assert.ErrorIs(t, err, context.Canceled)
			case <-time.After(2 * time.Second):
				t.Fatal("Subscribe did not return after cancel")
			}
			return
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatal("no realtime event received")
		}
	}
}

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// unreachable returns the URL of a server that has already shut down.
func unreachable() string {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()
	return url
}

func TestSyncReplaysUnpricedOrder(t *testing.T) {
	f := startServer(t)
	ctx := context.Background()

	alice := client.New(f.srv.URL, nil)
	_, err := alice.Register(ctx, client.RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "pw123"})
	require.NoError(t, err)
	cut := client.New(unreachable(), nil)
	cut.SetToken(alice.Token())

	repo := client.NewMemoryRepository()
	req := f.request()
	for i := range req.Items {
		req.Items[i].Price = nil
	}
	res, err := client.NewOrderBook(cut, repo, quietLog()).PlaceOrder(ctx, req)
	require.NoError(t, err)
	require.True(t, res.Offline)

	book := client.NewOrderBook(alice, repo, quietLog())
	n, err := book.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	view, err := book.View(ctx)
	require.NoError(t, err)
	require.Len(t, view.Orders, 1)
	assert.NotZero(t, view.Orders[0].ID)
	assert.Equal(t, 25.0, view.Orders[0].TotalAmount, "the server prices the replayed order")
	assert.Equal(t, res.Order.Reference, view.Orders[0].Reference)

	n, err = book.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSyncDropsOrderTheServerRejects(t *testing.T) {
	f := startServer(t)
	ctx := context.Background()

	alice := client.New(f.srv.URL, nil)
	_, err := alice.Register(ctx, client.RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "pw123"})
	require.NoError(t, err)
	cut := client.New(unreachable(), nil)
	cut.SetToken(alice.Token())

	repo := client.NewMemoryRepository()
	req := f.request()
	req.Items[0].MenuItemID = 9999
	_, err = client.NewOrderBook(cut, repo, quietLog()).PlaceOrder(ctx, req)
	require.NoError(t, err)

	book := client.NewOrderBook(alice, repo, quietLog())
	n, err := book.Sync(ctx)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	view, err := book.View(ctx)
	require.NoError(t, err)
	assert.Empty(t, view.Orders)
}

func TestClientCancelledContext(t *testing.T) {
	f := startServer(t)
	c := client.New(f.srv.URL, nil)
	_, err := c.Register(context.Background(), client.RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "pw123"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.ListOrders(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, apperrors.ErrUpstreamUnavailable)

	repo := client.NewMemoryRepository()
	_, err = client.NewOrderBook(c, repo, quietLog()).PlaceOrder(ctx, f.request())
	assert.ErrorIs(t, err, context.Canceled)
	orders, err := repo.Orders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders, "an abandoned order is not cached")
}
