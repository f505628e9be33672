package database

import (
	"log"

	"backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Tax{},
		&model.Product{},
		&model.Discount{},
		&model.RecurringPlan{},
		&model.Subscription{},
		&model.SubscriptionLine{},
		&model.Invoice{},
		&model.InvoiceLine{},
		&model.Payment{},
		&model.Order{},
		&model.OrderLine{},
		&model.DocumentSequence{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
