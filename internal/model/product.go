package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductType enum constants
const (
	ProductTypeService    = "SERVICE"
	ProductTypeConsumable = "CONSUMABLE"
)

// Product is a sellable item. Historical lines snapshot its price and
// description at the time of sale, so editing a product never rewrites
// past documents.
type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Type        string          `gorm:"type:varchar(20);not null;default:'SERVICE'" json:"type"` // SERVICE, CONSUMABLE
	SalesPrice  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"sales_price"`
	CostPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"cost_price"`
	TaxID       *uuid.UUID      `gorm:"type:uuid;index" json:"tax_id"`
	Tax         *Tax            `gorm:"foreignKey:TaxID" json:"tax,omitempty"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
