package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DiscountType enum constants
const (
	DiscountTypePercentage = "PERCENTAGE"
	DiscountTypeFixed      = "FIXED"
)

// DiscountAppliesTo enum constants
const (
	DiscountAppliesAll     = "ALL"
	DiscountAppliesProduct = "PRODUCT"
)

// Discount is a promotional reduction. UsageCount only ever grows; once it
// reaches LimitUsage (when set) the evaluator rejects further application.
type Discount struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Code        string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Type        string          `gorm:"type:varchar(20);not null;default:'PERCENTAGE'" json:"type"` // PERCENTAGE, FIXED
	Value       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"value"`
	MinPurchase decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"min_purchase"`
	MinQuantity int             `gorm:"type:int;not null;default:0" json:"min_quantity"`
	StartDate   *time.Time      `json:"start_date"`
	EndDate     *time.Time      `json:"end_date"`
	LimitUsage  *int            `gorm:"type:int" json:"limit_usage"` // nil = unlimited
	UsageCount  int             `gorm:"type:int;not null;default:0" json:"usage_count"`
	AppliesTo   string          `gorm:"type:varchar(20);not null;default:'ALL'" json:"applies_to"` // ALL, PRODUCT
	IsActive    bool            `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (d *Discount) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
