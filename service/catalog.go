package service

import (
	"context"
	"strings"

	"food-order-service/apperrors"
	"food-order-service/models"
	"food-order-service/store"
)

// RestaurantInput is a partial update; nil fields are left unchanged.
type RestaurantInput struct {
	Name         *string
	Cuisine      *string
	Rating       *float64
	Image        *string
	DeliveryTime *string
	Address      *string
	Phone        *string
}

type MenuItemInput struct {
	RestaurantID *uint
	Name         *string
	Description  *string
	Price        *float64
	Image        *string
	Category     *string
	IsAvailable  *bool
}

// CatalogService manages restaurants and their menus. Writes are admin-gated
// at the route level.
type CatalogService struct {
	catalog store.CatalogStore
}

func NewCatalogService(catalog store.CatalogStore) *CatalogService {
	return &CatalogService{catalog: catalog}
}

func (s *CatalogService) ListRestaurants(ctx context.Context, f store.RestaurantFilter) ([]models.Restaurant, error) {
	return s.catalog.ListRestaurants(ctx, f)
}

func (s *CatalogService) GetRestaurant(ctx context.Context, id uint) (*models.Restaurant, error) {
	return s.catalog.GetRestaurant(ctx, id, true)
}

func (s *CatalogService) CreateRestaurant(ctx context.Context, in RestaurantInput) (*models.Restaurant, error) {
	r := &models.Restaurant{}
	applyRestaurant(r, in)
	if err := validateRestaurant(r); err != nil {
		return nil, err
	}
	if err := s.catalog.CreateRestaurant(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *CatalogService) UpdateRestaurant(ctx context.Context, id uint, in RestaurantInput) (*models.Restaurant, error) {
	r, err := s.catalog.GetRestaurant(ctx, id, false)
	if err != nil {
		return nil, err
	}
	applyRestaurant(r, in)
	if err := validateRestaurant(r); err != nil {
		return nil, err
	}
	if err := s.catalog.UpdateRestaurant(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *CatalogService) DeleteRestaurant(ctx context.Context, id uint) error {
	return s.catalog.DeleteRestaurant(ctx, id)
}

func applyRestaurant(r *models.Restaurant, in RestaurantInput) {
	setString(&r.Name, in.Name)
	setString(&r.Cuisine, in.Cuisine)
	setString(&r.Image, in.Image)
	setString(&r.DeliveryTime, in.DeliveryTime)
	setString(&r.Address, in.Address)
	setString(&r.Phone, in.Phone)
	if in.Rating != nil {
		r.Rating = *in.Rating
	}
}

func validateRestaurant(r *models.Restaurant) error {
	if r.Name == "" {
		return apperrors.Validation("restaurant name is required")
	}
	if r.Cuisine == "" {
		return apperrors.Validation("cuisine is required")
	}
	if r.Rating < 0 || r.Rating > 5 {
		return apperrors.Validation("rating must be between 0 and 5")
	}
	return nil
}

// ListMenu returns the available items of a restaurant.
func (s *CatalogService) ListMenu(ctx context.Context, restaurantID uint, category string) ([]models.MenuItem, error) {
	if _, err := s.catalog.GetRestaurant(ctx, restaurantID, false); err != nil {
		return nil, err
	}
	return s.catalog.ListMenu(ctx, restaurantID, store.MenuFilter{Category: category, AvailableOnly: true})
}

func (s *CatalogService) CreateMenuItem(ctx context.Context, in MenuItemInput) (*models.MenuItem, error) {
	m := &models.MenuItem{IsAvailable: true}
	if in.RestaurantID == nil {
		return nil, apperrors.Validation("restaurant is required")
	}
	applyMenuItem(m, in)
	if err := validateMenuItem(m); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetRestaurant(ctx, m.RestaurantID, false); err != nil {
		return nil, err
	}
	if err := s.catalog.CreateMenuItem(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *CatalogService) UpdateMenuItem(ctx context.Context, id uint, in MenuItemInput) (*models.MenuItem, error) {
	m, err := s.catalog.GetMenuItem(ctx, id)
	if err != nil {
		return nil, err
	}
	moved := in.RestaurantID != nil && *in.RestaurantID != m.RestaurantID
	applyMenuItem(m, in)
	if err := validateMenuItem(m); err != nil {
		return nil, err
	}
	if moved {
		if _, err := s.catalog.GetRestaurant(ctx, m.RestaurantID, false); err != nil {
			return nil, err
		}
	}
	if err := s.catalog.UpdateMenuItem(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *CatalogService) DeleteMenuItem(ctx context.Context, id uint) error {
	return s.catalog.DeleteMenuItem(ctx, id)
}

func applyMenuItem(m *models.MenuItem, in MenuItemInput) {
	if in.RestaurantID != nil {
		m.RestaurantID = *in.RestaurantID
	}
	setString(&m.Name, in.Name)
	setString(&m.Description, in.Description)
	setString(&m.Image, in.Image)
	setString(&m.Category, in.Category)
	if in.Price != nil {
		m.Price = *in.Price
	}
	if in.IsAvailable != nil {
		m.IsAvailable = *in.IsAvailable
	}
}

func validateMenuItem(m *models.MenuItem) error {
	if m.RestaurantID == 0 {
		return apperrors.Validation("restaurant is required")
	}
	if m.Name == "" {
		return apperrors.Validation("menu item name is required")
	}
	if m.Price < 0 {
		return apperrors.Validation("price must not be negative")
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
