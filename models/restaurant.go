package models

import "time"

type Restaurant struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Name         string     `json:"name" gorm:"not null"`
	Cuisine      string     `json:"cuisine" gorm:"not null"`
	Rating       float64    `json:"rating" gorm:"default:0"`
	Image        string     `json:"image"`
	DeliveryTime string     `json:"deliveryTime"`
	Address      string     `json:"address"`
	Phone        string     `json:"phone"`
	MenuItems    []MenuItem `json:"menuItems,omitempty" gorm:"foreignKey:RestaurantID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type MenuItem struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	RestaurantID uint      `json:"restaurantId" gorm:"not null;index"`
	Name         string    `json:"name" gorm:"not null"`
	Description  string    `json:"description"`
	Price        float64   `json:"price" gorm:"not null"`
	Image        string    `json:"image"`
	Category     string    `json:"category"`
	IsAvailable  bool      `json:"isAvailable" gorm:"not null;default:true"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
