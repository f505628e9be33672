package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentMethod enum constants
const (
	PaymentMethodCreditCard   = "CREDIT_CARD"
	PaymentMethodBankTransfer = "BANK_TRANSFER"
	PaymentMethodCash         = "CASH"
	PaymentMethodOther        = "OTHER"
)

// PaymentStatus enum constants
const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
)

// Payment is an append-only ledger entry against an invoice. An invoice may
// carry several payments (partials, retries); rows are never edited.
type Payment struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PaymentNo   string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"payment_no"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Invoice     *Invoice        `gorm:"foreignKey:InvoiceID" json:"invoice,omitempty"`
	CustomerID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Method      string          `gorm:"type:varchar(20);not null;default:'OTHER'" json:"method"` // CREDIT_CARD, BANK_TRANSFER, CASH, OTHER
	Status      string          `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	PaymentDate time.Time       `gorm:"not null" json:"payment_date"`
	Notes       string          `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
