package models

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusPreparing OrderStatus = "Preparing"
	StatusDelivered OrderStatus = "Delivered"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusDelivered:
		return true
	}
	return false
}

type Order struct {
	ID              uint                 `json:"id" gorm:"primaryKey"`
	Reference       string               `json:"reference" gorm:"uniqueIndex;not null"`
	UserID          uint                 `json:"userId" gorm:"not null;index"`
	User            *User                `json:"user,omitempty" gorm:"foreignKey:UserID"`
	RestaurantID    uint                 `json:"restaurantId" gorm:"not null;index"`
	Restaurant      *Restaurant          `json:"restaurant,omitempty" gorm:"foreignKey:RestaurantID"`
	Items           []OrderItem          `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TotalAmount     float64              `json:"totalAmount" gorm:"not null"`
	DeliveryAddress string               `json:"deliveryAddress" gorm:"not null"`
	Phone           string               `json:"phone" gorm:"not null"`
	Status          OrderStatus          `json:"status" gorm:"not null;default:'Pending'"`
	StatusHistory   []OrderStatusHistory `json:"statusHistory,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time            `json:"createdAt" gorm:"index"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

type OrderItem struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	OrderID    uint      `json:"orderId" gorm:"not null;index"`
	MenuItemID uint      `json:"menuItemId" gorm:"not null"`
	MenuItem   *MenuItem `json:"menuItem,omitempty" gorm:"foreignKey:MenuItemID"`
	Name       string    `json:"name"`                  // snapshot name
	Quantity   int       `json:"quantity" gorm:"not null"`
	Price      float64   `json:"price" gorm:"not null"` // snapshot price at time of order
}

// OrderStatusHistory is the audit trail of status changes.
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"orderId" gorm:"not null;index"`
	FromStatus OrderStatus `json:"fromStatus"`
	ToStatus   OrderStatus `json:"toStatus" gorm:"not null"`
	ChangedBy  uint        `json:"changedBy"`
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Total recomputes the sum of price x quantity over the line items.
func (o *Order) Total() float64 {
	var total float64
	for _, it := range o.Items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}
