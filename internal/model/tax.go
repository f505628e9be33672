package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TaxComputation enum constants
const (
	TaxComputationPercentage = "PERCENTAGE"
	TaxComputationFixed      = "FIXED"
)

// Tax is applied at the line level. PERCENTAGE taxes amount to
// base × amount/100; FIXED taxes amount to amount × quantity.
type Tax struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Computation string          `gorm:"type:varchar(20);not null;default:'PERCENTAGE'" json:"computation"` // PERCENTAGE, FIXED
	Amount      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`                         // percent (e.g. 18) or flat amount per unit
	IsActive    bool            `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (t *Tax) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
