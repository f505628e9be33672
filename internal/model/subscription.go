package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SubscriptionStatus enum constants
const (
	SubscriptionDraft     = "DRAFT"
	SubscriptionQuotation = "QUOTATION"
	SubscriptionConfirmed = "CONFIRMED"
	SubscriptionActive    = "ACTIVE"
	SubscriptionPaused    = "PAUSED"
	SubscriptionClosed    = "CLOSED"
	SubscriptionCancelled = "CANCELLED"
)

// PaymentTerms enum constants
const (
	PaymentTermsImmediate = "IMMEDIATE"
	PaymentTermsNet15     = "NET_15"
	PaymentTermsNet30     = "NET_30"
	PaymentTermsNet60     = "NET_60"
)

// Subscription is a recurring billing agreement owned by a customer. Lines
// are owned exclusively by the subscription and replaced wholesale on edit
// while the status is still DRAFT or QUOTATION.
type Subscription struct {
	ID                 uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	SubscriptionNo     string             `gorm:"type:varchar(30);uniqueIndex;not null" json:"subscription_no"`
	CustomerID         uuid.UUID          `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer           *User              `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	PlanID             *uuid.UUID         `gorm:"type:uuid;index" json:"plan_id"`
	Plan               *RecurringPlan     `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	Status             string             `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	PaymentTerms       string             `gorm:"type:varchar(20);not null;default:'IMMEDIATE'" json:"payment_terms"`
	StartDate          time.Time          `gorm:"type:date;not null" json:"start_date"`
	ExpirationDate     *time.Time         `gorm:"type:date" json:"expiration_date"`
	PausedAt           *time.Time         `json:"paused_at"`
	ResumedAt          *time.Time         `json:"resumed_at"`
	CancelledAt        *time.Time         `json:"cancelled_at"`
	CancellationReason string             `gorm:"type:text" json:"cancellation_reason"`
	CreatedBy          *uuid.UUID         `gorm:"type:uuid" json:"created_by"`
	Lines              []SubscriptionLine `gorm:"foreignKey:SubscriptionID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SubscriptionLine snapshots the product price at the time the line was
// added. Subtotal is the pre-discount, pre-tax quantity × unit_price;
// discount and tax figures are computed on read, never stored here.
type SubscriptionLine struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SubscriptionID uuid.UUID       `gorm:"type:uuid;not null;index" json:"subscription_id"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product        *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity       int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"subtotal"` // quantity × unit_price
	DiscountID     *uuid.UUID      `gorm:"type:uuid;index" json:"discount_id"`
	Discount       *Discount       `gorm:"foreignKey:DiscountID" json:"discount,omitempty"`
	TaxID          *uuid.UUID      `gorm:"type:uuid;index" json:"tax_id"`
	Tax            *Tax            `gorm:"foreignKey:TaxID" json:"tax,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (l *SubscriptionLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
