package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"food-order-service/apperrors"
	"food-order-service/models"
)

// MemoryStore keeps everything in maps guarded by a single RWMutex. It is used
// when STORE_BACKEND=memory and by the service and handler tests.
type MemoryStore struct {
	mu sync.RWMutex

	users       map[uint]models.User
	restaurants map[uint]models.Restaurant
	menuItems   map[uint]models.MenuItem
	orders      map[uint]models.Order

	nextUserID       uint
	nextRestaurantID uint
	nextMenuItemID   uint
	nextOrderID      uint
	nextOrderItemID  uint
	nextHistoryID    uint

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:            make(map[uint]models.User),
		restaurants:      make(map[uint]models.Restaurant),
		menuItems:        make(map[uint]models.MenuItem),
		orders:           make(map[uint]models.Order),
		nextUserID:       1,
		nextRestaurantID: 1,
		nextMenuItemID:   1,
		nextOrderID:      1,
		nextOrderItemID:  1,
		nextHistoryID:    1,
		now:              time.Now,
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// ── Users ──────────────────────────────────────────────────────────────────

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperrors.ErrDuplicateUser
		}
	}
	now := s.now()
	u.ID = s.nextUserID
	s.nextUserID++
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user %d not found", id)
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, apperrors.NotFound("user %s not found", email)
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *MemoryStore) SetUserActive(ctx context.Context, id uint, active bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user %d not found", id)
	}
	u.IsActive = active
	u.UpdatedAt = s.now()
	s.users[id] = u
	return &u, nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return apperrors.NotFound("user %d not found", id)
	}
	delete(s.users, id)
	return nil
}

// ── Catalog ────────────────────────────────────────────────────────────────

func (s *MemoryStore) ListRestaurants(ctx context.Context, f RestaurantFilter) ([]models.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := []models.Restaurant{}
	for _, r := range s.restaurants {
		if f.Cuisine != "" && !containsFold(r.Cuisine, f.Cuisine) {
			continue
		}
		if f.Search != "" && !containsFold(r.Name, f.Search) {
			continue
		}
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *MemoryStore) GetRestaurant(ctx context.Context, id uint, withMenu bool) (*models.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.restaurants[id]
	if !ok {
		return nil, apperrors.NotFound("restaurant %d not found", id)
	}
	if withMenu {
		r.MenuItems = s.menuLocked(id, MenuFilter{})
	}
	return &r, nil
}

func (s *MemoryStore) CreateRestaurant(ctx context.Context, r *models.Restaurant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	r.ID = s.nextRestaurantID
	s.nextRestaurantID++
	r.CreatedAt, r.UpdatedAt = now, now
	stored := *r
	stored.MenuItems = nil
	s.restaurants[r.ID] = stored
	return nil
}

func (s *MemoryStore) UpdateRestaurant(ctx context.Context, r *models.Restaurant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.restaurants[r.ID]
	if !ok {
		return apperrors.NotFound("restaurant %d not found", r.ID)
	}
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = s.now()
	stored := *r
	stored.MenuItems = nil
	s.restaurants[r.ID] = stored
	return nil
}

func (s *MemoryStore) DeleteRestaurant(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.restaurants[id]; !ok {
		return apperrors.NotFound("restaurant %d not found", id)
	}
	for itemID, m := range s.menuItems {
		if m.RestaurantID == id {
			delete(s.menuItems, itemID)
		}
	}
	delete(s.restaurants, id)
	return nil
}

func (s *MemoryStore) ListMenu(ctx context.Context, restaurantID uint, f MenuFilter) ([]models.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.menuLocked(restaurantID, f), nil
}

func (s *MemoryStore) menuLocked(restaurantID uint, f MenuFilter) []models.MenuItem {
	res := []models.MenuItem{}
	for _, m := range s.menuItems {
		if m.RestaurantID != restaurantID {
			continue
		}
		if f.AvailableOnly && !m.IsAvailable {
			continue
		}
		if f.Category != "" && !strings.EqualFold(m.Category, f.Category) {
			continue
		}
		res = append(res, m)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (s *MemoryStore) GetMenuItem(ctx context.Context, id uint) (*models.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.menuItems[id]
	if !ok {
		return nil, apperrors.NotFound("menu item %d not found", id)
	}
	return &m, nil
}

func (s *MemoryStore) CreateMenuItem(ctx context.Context, m *models.MenuItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.restaurants[m.RestaurantID]; !ok {
		return apperrors.NotFound("restaurant %d not found", m.RestaurantID)
	}
	now := s.now()
	m.ID = s.nextMenuItemID
	s.nextMenuItemID++
	m.CreatedAt, m.UpdatedAt = now, now
	s.menuItems[m.ID] = *m
	return nil
}

func (s *MemoryStore) UpdateMenuItem(ctx context.Context, m *models.MenuItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.menuItems[m.ID]
	if !ok {
		return apperrors.NotFound("menu item %d not found", m.ID)
	}
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = s.now()
	s.menuItems[m.ID] = *m
	return nil
}

func (s *MemoryStore) DeleteMenuItem(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.menuItems[id]; !ok {
		return apperrors.NotFound("menu item %d not found", id)
	}
	delete(s.menuItems, id)
	return nil
}

// ── Orders ─────────────────────────────────────────────────────────────────

func (s *MemoryStore) CreateOrder(ctx context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.orders {
		if existing.Reference == o.Reference {
			return apperrors.Validation("order reference %s already used", o.Reference)
		}
	}
	now := s.now()
	o.ID = s.nextOrderID
	s.nextOrderID++
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	for i := range o.Items {
		o.Items[i].ID = s.nextOrderItemID
		s.nextOrderItemID++
		o.Items[i].OrderID = o.ID
	}
	for i := range o.StatusHistory {
		o.StatusHistory[i].ID = s.nextHistoryID
		s.nextHistoryID++
		o.StatusHistory[i].OrderID = o.ID
		if o.StatusHistory[i].CreatedAt.IsZero() {
			o.StatusHistory[i].CreatedAt = now
		}
	}
	s.orders[o.ID] = copyOrder(*o)
	return nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order %d not found", id)
	}
	expanded := s.expandLocked(o)
	return &expanded, nil
}

func (s *MemoryStore) GetOrderByReference(ctx context.Context, ref string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		if o.Reference == ref {
			expanded := s.expandLocked(o)
			return &expanded, nil
		}
	}
	return nil, apperrors.NotFound("order %s not found", ref)
}

func (s *MemoryStore) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := []models.Order{}
	for _, o := range s.orders {
		if f.UserID != 0 && o.UserID != f.UserID {
			continue
		}
		if f.RestaurantID != 0 && o.RestaurantID != f.RestaurantID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		res = append(res, s.expandLocked(o))
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return res[i].ID > res[j].ID
	})
	return res, nil
}

func (s *MemoryStore) UpdateOrderStatus(ctx context.Context, id uint, status models.OrderStatus, h models.OrderStatusHistory) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order %d not found", id)
	}
	now := s.now()
	o.Status = status
	o.UpdatedAt = now
	h.ID = s.nextHistoryID
	s.nextHistoryID++
	h.OrderID = id
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}
	o.StatusHistory = append(o.StatusHistory, h)
	s.orders[id] = o

	expanded := s.expandLocked(o)
	return &expanded, nil
}

// expandLocked fills the reference fields the way a gorm Preload would.
func (s *MemoryStore) expandLocked(o models.Order) models.Order {
	o = copyOrder(o)
	if u, ok := s.users[o.UserID]; ok {
		o.User = &u
	}
	if r, ok := s.restaurants[o.RestaurantID]; ok {
		o.Restaurant = &r
	}
	for i := range o.Items {
		if m, ok := s.menuItems[o.Items[i].MenuItemID]; ok {
			o.Items[i].MenuItem = &m
		}
	}
	return o
}

func copyOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	o.StatusHistory = append([]models.OrderStatusHistory(nil), o.StatusHistory...)
	o.User = nil
	o.Restaurant = nil
	for i := range o.Items {
		o.Items[i].MenuItem = nil
	}
	return o
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
