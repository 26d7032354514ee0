package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product represents a catalog item. Stock is mutated exclusively by the
// order approval step; it must never go below zero.
type Product struct {
	ID                   uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SKU                  string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name                 string         `gorm:"type:varchar(255);not null" json:"name"`
	Category             string         `gorm:"type:varchar(100);index" json:"category"`
	Description          string         `gorm:"type:text" json:"description"`
	PackSize             string         `gorm:"type:varchar(100)" json:"pack_size"`
	Price                float64        `gorm:"type:decimal(10,2);not null" json:"price"`
	WholesalePrice       float64        `gorm:"type:decimal(10,2);not null" json:"wholesale_price"`
	Stock                int            `gorm:"type:int;default:0;not null" json:"stock"`
	RequiresPrescription bool           `gorm:"default:false" json:"requires_prescription"`
	MinOrderQuantity     int            `gorm:"type:int;default:1;not null" json:"min_order_quantity"`
	ImageURL             string         `gorm:"type:text" json:"image_url"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

// MovementType constants
const (
	MovementOut = "OUT"
	MovementIn  = "IN"
)

// StockMovement records every stock change applied by the order engine.
// One row is written per line item when an order is approved.
type StockMovement struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	OrderID      *uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	MovementType string     `gorm:"type:varchar(10);not null" json:"movement_type"` // IN, OUT
	Quantity     int        `gorm:"type:int;not null" json:"quantity"`
	StockAfter   int        `gorm:"type:int;not null" json:"stock_after"`
	CreatedAt    time.Time  `json:"created_at"`
}
