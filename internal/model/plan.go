package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BillingPeriod enum constants
const (
	BillingPeriodDaily   = "DAILY"
	BillingPeriodWeekly  = "WEEKLY"
	BillingPeriodMonthly = "MONTHLY"
	BillingPeriodYearly  = "YEARLY"
)

// RecurringPlan defines the billing cadence and lifecycle capabilities of
// the subscriptions attached to it.
type RecurringPlan struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string         `gorm:"type:varchar(255);not null" json:"name"`
	BillingPeriod   string         `gorm:"type:varchar(20);not null;default:'MONTHLY'" json:"billing_period"` // DAILY, WEEKLY, MONTHLY, YEARLY
	BillingInterval int            `gorm:"type:int;not null;default:1" json:"billing_interval"`
	Pausable        bool           `gorm:"default:true" json:"pausable"`
	Renewable       bool           `gorm:"default:true" json:"renewable"`
	Closable        bool           `gorm:"default:true" json:"closable"`
	AutoClose       bool           `gorm:"default:false" json:"auto_close"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *RecurringPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
