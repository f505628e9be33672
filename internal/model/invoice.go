package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceStatus enum constants
const (
	InvoiceDraft     = "DRAFT"
	InvoiceConfirmed = "CONFIRMED"
	InvoicePaid      = "PAID"
	InvoiceFailed    = "FAILED"
	InvoiceCancelled = "CANCELLED"
)

// Invoice is an immutable financial snapshot generated once per billing
// event. Only status and paid_date change after creation; lines and totals
// never do.
type Invoice struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceNo      string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_no"`
	// The partial unique index is the authoritative one-open-invoice-per-
	// subscription guard; service-level checks only produce friendlier errors.
	SubscriptionID *uuid.UUID      `gorm:"type:uuid;index;uniqueIndex:uniq_invoices_open_subscription,where:status = 'DRAFT' OR status = 'CONFIRMED'" json:"subscription_id"` // nullable for non-subscription flows
	Subscription   *Subscription   `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
	CustomerID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer       *User           `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Status         string          `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"subtotal"`                  // Σ quantity × unit_price, pre-discount/tax
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax_amount"`      // Σ per-line tax
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"discount_amount"` // Σ per-line discount
	Total          decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total"`                     // subtotal − discount + tax
	DueDate        time.Time       `gorm:"type:date;not null" json:"due_date"`
	PaidDate       *time.Time      `json:"paid_date"`
	CreatedBy      *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	Lines          []InvoiceLine   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// InvoiceLine stores its computed discount and tax amounts at generation
// time. Subtotal here is the line's net contribution to the invoice total
// (quantity × unit_price − discount + tax), unlike SubscriptionLine.Subtotal
// which is the raw pre-discount base.
type InvoiceLine struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product        *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Description    string          `gorm:"type:text" json:"description"`
	Quantity       int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	DiscountID     *uuid.UUID      `gorm:"type:uuid" json:"discount_id"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"discount_amount"`
	TaxID          *uuid.UUID      `gorm:"type:uuid" json:"tax_id"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax_amount"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"subtotal"` // net line contribution
	CreatedAt      time.Time       `json:"created_at"`
}

func (l *InvoiceLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
