package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"food-order-service/apperrors"
	"food-order-service/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var memDBCounter atomic.Int64

func newSQLiteStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:storetest%d?mode=memory&cache=shared", memDBCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	s := NewGormStore(db)
	require.NoError(t, s.AutoMigrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// forEachStore runs the same contract against both backings.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

func seedCatalog(t *testing.T, s Store) (*models.Restaurant, *models.MenuItem, *models.MenuItem) {
	t.Helper()
	ctx := context.Background()
	r := &models.Restaurant{Name: "Spice Route", Cuisine: "Indian", Rating: 4.5}
	require.NoError(t, s.CreateRestaurant(ctx, r))
	a := &models.MenuItem{RestaurantID: r.ID, Name: "Paneer Tikka", Price: 10, Category: "Starters", IsAvailable: true}
	b := &models.MenuItem{RestaurantID: r.ID, Name: "Lassi", Price: 5, Category: "Drinks", IsAvailable: false}
	require.NoError(t, s.CreateMenuItem(ctx, a))
	require.NoError(t, s.CreateMenuItem(ctx, b))
	return r, a, b
}

func TestUsers(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		u := &models.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "x", IsActive: true}
		require.NoError(t, s.CreateUser(ctx, u))
		assert.NotZero(t, u.ID)

		err := s.CreateUser(ctx, &models.User{Name: "Again", Email: "alice@example.com", PasswordHash: "y", IsActive: true})
		assert.ErrorIs(t, err, apperrors.ErrDuplicateUser)

		got, err := s.GetUserByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.True(t, got.IsActive)

		got, err = s.SetUserActive(ctx, u.ID, false)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
		got, err = s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)

		require.NoError(t, s.DeleteUser(ctx, u.ID))
		_, err = s.GetUserByID(ctx, u.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), apperrors.ErrNotFound)
	})
}

func TestCatalog(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		r, a, b := seedCatalog(t, s)

		menu, err := s.ListMenu(ctx, r.ID, MenuFilter{AvailableOnly: true})
		require.NoError(t, err)
		require.Len(t, menu, 1)
		assert.Equal(t, a.ID, menu[0].ID)

		menu, err = s.ListMenu(ctx, r.ID, MenuFilter{Category: "drinks"})
		require.NoError(t, err)
		require.Len(t, menu, 1)
		assert.Equal(t, b.ID, menu[0].ID)
		assert.False(t, menu[0].IsAvailable)

		full, err := s.GetRestaurant(ctx, r.ID, true)
		require.NoError(t, err)
		assert.Len(t, full.MenuItems, 2)

		list, err := s.ListRestaurants(ctx, RestaurantFilter{Cuisine: "ind"})
		require.NoError(t, err)
		assert.Len(t, list, 1)
		list, err = s.ListRestaurants(ctx, RestaurantFilter{Search: "pizza"})
		require.NoError(t, err)
		assert.Empty(t, list)

		r.Rating = 3
		require.NoError(t, s.UpdateRestaurant(ctx, r))
		got, err := s.GetRestaurant(ctx, r.ID, false)
		require.NoError(t, err)
		assert.Equal(t, 3.0, got.Rating)

		require.NoError(t, s.DeleteRestaurant(ctx, r.ID))
		_, err = s.GetMenuItem(ctx, a.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.ErrorIs(t, s.DeleteRestaurant(ctx, r.ID), apperrors.ErrNotFound)
	})
}

func TestOrders(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		r, a, _ := seedCatalog(t, s)
		alice := &models.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "x", IsActive: true}
		bob := &models.User{Name: "Bob", Email: "bob@example.com", PasswordHash: "x", IsActive: true}
		require.NoError(t, s.CreateUser(ctx, alice))
		require.NoError(t, s.CreateUser(ctx, bob))

		base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		newOrder := func(ref string, user uint, at time.Time) *models.Order {
			return &models.Order{
				Reference:       ref,
				UserID:          user,
				RestaurantID:    r.ID,
				Items:           []models.OrderItem{{MenuItemID: a.ID, Name: a.Name, Quantity: 2, Price: 10}},
				TotalAmount:     20,
				DeliveryAddress: "1 Main St",
				Phone:           "555",
				Status:          models.StatusPending,
				StatusHistory:   []models.OrderStatusHistory{{ToStatus: models.StatusPending, ChangedBy: user}},
				CreatedAt:       at,
			}
		}
		first := newOrder("ref-1", alice.ID, base)
		second := newOrder("ref-2", alice.ID, base.Add(time.Minute))
		third := newOrder("ref-3", bob.ID, base.Add(2*time.Minute))
		for _, o := range []*models.Order{first, second, third} {
			require.NoError(t, s.CreateOrder(ctx, o))
		}
		assert.ErrorIs(t, s.CreateOrder(ctx, newOrder("ref-1", bob.ID, base)), apperrors.ErrValidation)

		own, err := s.ListOrders(ctx, OrderFilter{UserID: alice.ID})
		require.NoError(t, err)
		require.Len(t, own, 2)
		assert.Equal(t, second.ID, own[0].ID, "newest first")
		assert.Equal(t, first.ID, own[1].ID)
		require.NotNil(t, own[0].Restaurant)
		assert.Equal(t, "Spice Route", own[0].Restaurant.Name)
		require.Len(t, own[0].Items, 1)
		require.NotNil(t, own[0].Items[0].MenuItem)
		assert.Equal(t, "Paneer Tikka", own[0].Items[0].MenuItem.Name)

		all, err := s.ListOrders(ctx, OrderFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		updated, err := s.UpdateOrderStatus(ctx, first.ID, models.StatusPreparing,
			models.OrderStatusHistory{FromStatus: models.StatusPending, ToStatus: models.StatusPreparing, ChangedBy: bob.ID})
		require.NoError(t, err)
		assert.Equal(t, models.StatusPreparing, updated.Status)
		assert.Len(t, updated.StatusHistory, 2)
		assert.Equal(t, 20.0, updated.TotalAmount)

		preparing, err := s.ListOrders(ctx, OrderFilter{Status: models.StatusPreparing})
		require.NoError(t, err)
		assert.Len(t, preparing, 1)

		byRef, err := s.GetOrderByReference(ctx, "ref-3")
		require.NoError(t, err)
		assert.Equal(t, bob.ID, byRef.UserID)

		_, err = s.UpdateOrderStatus(ctx, 999, models.StatusDelivered, models.OrderStatusHistory{ToStatus: models.StatusDelivered})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		_, err = s.GetOrder(ctx, 999)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}
