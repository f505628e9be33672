package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus enum constants
const (
	OrderConfirmed = "CONFIRMED"
	OrderCancelled = "CANCELLED"
)

// Order is a one-off storefront purchase. Structurally parallel to Invoice
// but created directly in CONFIRMED status and outside the subscription
// lifecycle. The discount, when present, is applied once at document level.
type Order struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderNo        string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"order_no"`
	CustomerID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer       *User           `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Status         string          `gorm:"type:varchar(20);not null;default:'CONFIRMED'" json:"status"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"subtotal"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax_amount"`
	DiscountID     *uuid.UUID      `gorm:"type:uuid" json:"discount_id"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"discount_amount"`
	Total          decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total"`
	Lines          []OrderLine     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderLine snapshots product price/description; tax is computed per line
// on the undiscounted line base.
type OrderLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product     *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Description string          `gorm:"type:text" json:"description"`
	Quantity    int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	TaxID       *uuid.UUID      `gorm:"type:uuid" json:"tax_id"`
	TaxAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax_amount"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"subtotal"` // quantity × unit_price
	CreatedAt   time.Time       `json:"created_at"`
}

func (l *OrderLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
