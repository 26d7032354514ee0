package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod constants
const (
	PaymentOnlineCard   = "ONLINE_CARD"
	PaymentBankTransfer = "BANK_TRANSFER"
	PaymentOnDelivery   = "PAY_ON_DELIVERY"
)

// ValidPaymentMethod reports whether m is a supported payment method.
func ValidPaymentMethod(m string) bool {
	return m == PaymentOnlineCard || m == PaymentBankTransfer || m == PaymentOnDelivery
}

// Order is the aggregate owned by the lifecycle engine. Orders are never
// deleted; cancellation is a terminal status, not removal.
type Order struct {
	ID              uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code            string             `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	UserID          uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	User            *User              `gorm:"foreignKey:UserID" json:"-"`
	UserName        string             `gorm:"type:varchar(255);not null" json:"user_name"` // display snapshot at creation
	Items           []OrderItem        `gorm:"foreignKey:OrderID" json:"items"`
	TotalAmount     decimal.Decimal    `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	Status          OrderStatus        `gorm:"type:varchar(30);not null;index" json:"status"`
	ShippingAddress string             `gorm:"type:text;not null" json:"shipping_address"`
	PaymentMethod   string             `gorm:"type:varchar(30);not null" json:"payment_method"`
	PaymentProofRef string             `gorm:"type:text" json:"payment_proof_ref,omitempty"` // opaque reference, e.g. uploaded receipt location
	InvoiceRef      string             `gorm:"type:varchar(100)" json:"invoice_ref,omitempty"`
	Timeline        []OrderStatusEvent `gorm:"foreignKey:OrderID" json:"timeline"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// OrderItem is a line item. PriceAtPurchase is captured at creation and
// never recomputed, so historical orders are unaffected by catalog changes.
type OrderItem struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID         uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID       uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Product         Product   `gorm:"foreignKey:ProductID" json:"-"`
	Quantity        int       `gorm:"type:int;not null" json:"quantity"`
	PriceAtPurchase float64   `gorm:"type:decimal(10,2);not null" json:"price_at_purchase"`
}

// OrderStatusEvent is one append-only timeline entry. The last event's
// status always equals the order's current status.
type OrderStatusEvent struct {
	ID        uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Seq       int64       `gorm:"autoIncrement;uniqueIndex" json:"-"`
	OrderID   uuid.UUID   `gorm:"type:uuid;not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"type:varchar(30);not null" json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}
