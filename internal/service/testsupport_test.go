package service

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv wires the full service stack against an in-memory database so
// tests exercise real repositories and transactions.
type testEnv struct {
	db            *gorm.DB
	subscriptions SubscriptionService
	invoices      InvoiceService
	payments      PaymentService
	orders        OrderService
	scheduler     SchedulerService
	discounts     DiscountService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// SQLite cannot parse SELECT ... FOR UPDATE; drop locking clauses so
	// repositories that lock rows on Postgres still run here.
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("sqlite_drop_locking", func(tx *gorm.DB) {
		delete(tx.Statement.Clauses, "FOR")
	}))

	require.NoError(t, db.AutoMigrate(
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
	))

	txManager := repository.NewTransactionManager(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	productRepo := repository.NewProductRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	taxRepo := repository.NewTaxRepository(db)
	planRepo := repository.NewPlanRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	discountService := NewDiscountService(discountRepo)
	invoiceService := NewInvoiceService(invoiceRepo, subscriptionRepo, discountRepo, paymentRepo, sequenceRepo, auditRepo, txManager, nil)

	return &testEnv{
		db:            db,
		subscriptions: NewSubscriptionService(subscriptionRepo, productRepo, discountRepo, taxRepo, planRepo, sequenceRepo, auditRepo, txManager, nil),
		invoices:      invoiceService,
		payments:      NewPaymentService(paymentRepo, invoiceRepo, sequenceRepo, auditRepo, txManager, nil),
		orders:        NewOrderService(orderRepo, productRepo, discountRepo, sequenceRepo, auditRepo, txManager, discountService, nil),
		scheduler:     NewSchedulerService(subscriptionRepo, invoiceRepo, invoiceService),
		discounts:     discountService,
	}
}

// --- Seed helpers ---

func (e *testEnv) seedUser(t *testing.T, username, role string) model.User {
	t.Helper()
	user := model.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
		Role:     role,
	}
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

func (e *testEnv) staffActor(t *testing.T) Actor {
	t.Helper()
	user := e.seedUser(t, "staff-"+uuid.NewString()[:8], model.RoleAdmin)
	return Actor{ID: user.ID, Role: user.Role}
}

func (e *testEnv) customer(t *testing.T) model.User {
	t.Helper()
	return e.seedUser(t, "customer-"+uuid.NewString()[:8], model.RolePortal)
}

func (e *testEnv) seedTax(t *testing.T, name, computation, amount string) model.Tax {
	t.Helper()
	tax := model.Tax{
		Name:        name,
		Computation: computation,
		Amount:      mustDecimal(t, amount),
		IsActive:    true,
	}
	require.NoError(t, e.db.Create(&tax).Error)
	return tax
}

func (e *testEnv) seedProduct(t *testing.T, name, price string, taxID *uuid.UUID) model.Product {
	t.Helper()
	product := model.Product{
		Name:       name,
		Type:       model.ProductTypeService,
		SalesPrice: mustDecimal(t, price),
		TaxID:      taxID,
		IsActive:   true,
	}
	require.NoError(t, e.db.Create(&product).Error)
	return product
}

func (e *testEnv) seedPlan(t *testing.T, name, period string, pausable, renewable bool) model.RecurringPlan {
	t.Helper()
	plan := model.RecurringPlan{
		Name:            name,
		BillingPeriod:   period,
		BillingInterval: 1,
		Pausable:        pausable,
		Renewable:       renewable,
		Closable:        true,
	}
	require.NoError(t, e.db.Create(&plan).Error)
	return plan
}

func (e *testEnv) seedDiscount(t *testing.T, d model.Discount) model.Discount {
	t.Helper()
	require.NoError(t, e.db.Create(&d).Error)
	return d
}

// activate drives a fresh DRAFT subscription through the lifecycle to
// ACTIVE using the real transition table.
func (e *testEnv) activate(t *testing.T, actor Actor, subscriptionID string) SubscriptionResponse {
	t.Helper()
	ctx := context.Background()
	var resp SubscriptionResponse
	var err error
	for _, status := range []string{model.SubscriptionQuotation, model.SubscriptionConfirmed, model.SubscriptionActive} {
		resp, err = e.subscriptions.UpdateStatus(ctx, actor, subscriptionID, UpdateSubscriptionStatusRequest{Status: status})
		require.NoError(t, err)
	}
	return resp
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}
