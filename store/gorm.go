package store

import (
	"context"
	"errors"
	"strings"

	"food-order-service/apperrors"
	"food-order-service/models"

	"gorm.io/gorm"
)

// GormStore persists to any gorm dialector (sqlite by default, postgres when
// DATABASE_URL is set).
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates or updates the tables for all models.
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(
		&models.User{},
		&models.Restaurant{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
	)
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return apperrors.Upstream(err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return apperrors.Upstream(err)
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps gorm and driver errors onto the apperrors kinds.
func translate(err error, notFound func() error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil:
		return notFound()
	case isDuplicate(err):
		return apperrors.ErrDuplicateUser
	default:
		return apperrors.Upstream(err)
	}
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key")
}

// ── Users ──────────────────────────────────────────────────────────────────

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	// gorm skips zero values for columns with a default, so a false IsActive needs its own update.
	active := u.IsActive
	err := s.db.WithContext(ctx).Create(u).Error
	if err != nil {
		if isDuplicate(err) {
			return apperrors.ErrDuplicateUser
		}
		return apperrors.Upstream(err)
	}
	if !active {
		u.IsActive = false
		return translate(s.db.WithContext(ctx).Model(u).Update("is_active", false).Error, nil)
	}
	return nil
}

func (s *GormStore) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, id).Error
	if err != nil {
		return nil, translate(err, func() error { return apperrors.NotFound("user %d not found", id) })
	}
	return &u, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&u).Error
	if err != nil {
		return nil, translate(err, func() error { return apperrors.NotFound("user %s not found", email) })
	}
	return &u, nil
}

func (s *GormStore) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("id asc").Find(&users).Error; err != nil {
		return nil, apperrors.Upstream(err)
	}
	return users, nil
}

func (s *GormStore) SetUserActive(ctx context.Context, id uint, active bool) (*models.User, error) {
	u, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(u).Update("is_active", active).Error; err != nil {
		return nil, apperrors.Upstream(err)
	}
	u.IsActive = active
	return u, nil
}

func (s *GormStore) DeleteUser(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return apperrors.Upstream(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("user %d not found", id)
	}
	return nil
}

// ── Catalog ────────────────────────────────────────────────────────────────

func (s *GormStore) ListRestaurants(ctx context.Context, f RestaurantFilter) ([]models.Restaurant, error) {
	restaurants := []models.Restaurant{}
	query := s.db.WithContext(ctx)
	if f.Cuisine != "" {
		query = query.Where("LOWER(cuisine) LIKE ?", "%"+strings.ToLower(f.Cuisine)+"%")
	}
	if f.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(f.Search)+"%")
	}
	if err := query.Order("id asc").Find(&restaurants).Error; err != nil {
		return nil, apperrors.Upstream(err)
	}
	return restaurants, nil
}

func (s *GormStore) GetRestaurant(ctx context.Context, id uint, withMenu bool) (*models.Restaurant, error) {
	var r models.Restaurant
	query := s.db.WithContext(ctx)
	if withMenu {
		query = query.Preload("MenuItems", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") })
	}
	if err := query.First(&r, id).Error; err != nil {
		return nil, translate(err, func() error { return apperrors.NotFound("restaurant %d not found", id) })
	}
	return &r, nil
}

func (s *GormStore) CreateRestaurant(ctx context.Context, r *models.Restaurant) error {
	return translate(s.db.WithContext(ctx).Omit("MenuItems").Create(r).Error, nil)
}

func (s *GormStore) UpdateRestaurant(ctx context.Context, r *models.Restaurant) error {
	return translate(s.db.WithContext(ctx).Omit("MenuItems").Save(r).Error, nil)
}

func (s *GormStore) DeleteRestaurant(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("restaurant_id = ?", id).Delete(&models.MenuItem{}).Error; err != nil {
			return apperrors.Upstream(err)
		}
		res := tx.Delete(&models.Restaurant{}, id)
		if res.Error != nil {
			return apperrors.Upstream(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("restaurant %d not found", id)
		}
		return nil
	})
}

func (s *GormStore) ListMenu(ctx context.Context, restaurantID uint, f MenuFilter) ([]models.MenuItem, error) {
	items := []models.MenuItem{}
	query := s.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID)
	if f.AvailableOnly {
		query = query.Where("is_available = ?", true)
	}
	if f.Category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(f.Category))
	}
	if err := query.Order("id asc").Find(&items).Error; err != nil {
		return nil, apperrors.Upstream(err)
	}
	return items, nil
}

func (s *GormStore) GetMenuItem(ctx context.Context, id uint) (*models.MenuItem, error) {
	var m models.MenuItem
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, translate(err, func() error { return apperrors.NotFound("menu item %d not found", id) })
	}
	return &m, nil
}

func (s *GormStore) CreateMenuItem(ctx context.Context, m *models.MenuItem) error {
	available := m.IsAvailable
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return apperrors.Upstream(err)
	}
	if !available {
		m.IsAvailable = false
		return translate(s.db.WithContext(ctx).Model(m).Update("is_available", false).Error, nil)
	}
	return nil
}

func (s *GormStore) UpdateMenuItem(ctx context.Context, m *models.MenuItem) error {
	return translate(s.db.WithContext(ctx).Save(m).Error, nil)
}

func (s *GormStore) DeleteMenuItem(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.MenuItem{}, id)
	if res.Error != nil {
		return apperrors.Upstream(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("menu item %d not found", id)
	}
	return nil
}

// ── Orders ─────────────────────────────────────────────────────────────────

func (s *GormStore) expanded(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("User").
		Preload("Restaurant").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.MenuItem").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") })
}

func (s *GormStore) CreateOrder(ctx context.Context, o *models.Order) error {
	// Create saves Items and StatusHistory through their has-many associations.
	err := s.db.WithContext(ctx).Omit("User", "Restaurant").Create(o).Error
	if err != nil {
		if isDuplicate(err) {
			return apperrors.Validation("order reference %s already used", o.Reference)
		}
		return apperrors.Upstream(err)
	}
	return nil
}

func (s *GormStore) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	if err := s.expanded(ctx).First(&o, id).Error; err != nil {
		return nil, translate(err, func() error { return apperrors.NotFound("order %d not found", id) })
	}
	return &o, nil
}

func (s *GormStore) GetOrderByReference(ctx context.Context, ref string) (*models.Order, error) {
	var o models.Order
	if err := s.expanded(ctx).Where("reference = ?", ref).First(&o).Error; err != nil {
		return nil, translate(err, func() error { return apperrors.NotFound("order %s not found", ref) })
	}
	return &o, nil
}

func (s *GormStore) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	orders := []models.Order{}
	query := s.expanded(ctx)
	if f.UserID != 0 {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.RestaurantID != 0 {
		query = query.Where("restaurant_id = ?", f.RestaurantID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if err := query.Order("created_at desc, id desc").Find(&orders).Error; err != nil {
		return nil, apperrors.Upstream(err)
	}
	return orders, nil
}

func (s *GormStore) UpdateOrderStatus(ctx context.Context, id uint, status models.OrderStatus, h models.OrderStatusHistory) (*models.Order, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).Where("id = ?", id).Update("status", status)
		if res.Error != nil {
			return apperrors.Upstream(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("order %d not found", id)
		}
		h.ID = 0
		h.OrderID = id
		if err := tx.Create(&h).Error; err != nil {
			return apperrors.Upstream(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, id)
}
