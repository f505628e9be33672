package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextInvoiceTime(t *testing.T) {
	base := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		period   string
		interval int
		want     time.Time
	}{
		{model.BillingPeriodDaily, 1, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{model.BillingPeriodWeekly, 2, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)},
		{model.BillingPeriodMonthly, 1, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)}, // Jan 31 + 1 month normalizes past Feb
		{model.BillingPeriodYearly, 1, time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC)},
		{model.BillingPeriodMonthly, 0, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)}, // interval clamps to 1
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s-%d", tc.period, tc.interval), func(t *testing.T) {
			assert.Equal(t, tc.want, nextInvoiceTime(base, tc.period, tc.interval))
		})
	}
}

var seededInvoiceSeq int

// seedInvoice inserts an invoice row directly with a controlled CreatedAt,
// which the due computation reads as the last-invoiced time.
func (e *testEnv) seedInvoice(t *testing.T, subID, customerID uuid.UUID, status string, createdAt time.Time) model.Invoice {
	t.Helper()
	seededInvoiceSeq++
	inv := model.Invoice{
		InvoiceNo:      fmt.Sprintf("INV-SEED-%04d", seededInvoiceSeq),
		SubscriptionID: &subID,
		CustomerID:     customerID,
		Status:         status,
		Subtotal:       dec("100"),
		Total:          dec("100"),
		DueDate:        createdAt,
		CreatedAt:      createdAt,
	}
	require.NoError(t, e.db.Create(&inv).Error)
	return inv
}

func planBackedActiveSubscription(t *testing.T, env *testEnv, staff Actor, customer model.User, plan model.RecurringPlan) SubscriptionResponse {
	t.Helper()
	product := env.seedProduct(t, "Plan product "+uuid.NewString()[:8], "100.00", nil)
	return activeSubscription(t, env, staff, CreateSubscriptionRequest{
		CustomerID: customer.ID.String(),
		PlanID:     plan.ID.String(),
		Lines:      []SubscriptionLineRequest{{ProductID: product.ID.String(), Quantity: 1}},
	})
}

func TestFindDueSubscriptions_NeverInvoicedIsDue(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	plan := env.seedPlan(t, "Monthly", model.BillingPeriodMonthly, true, true)

	sub := planBackedActiveSubscription(t, env, staff, customer, plan)

	due, err := env.scheduler.FindDueSubscriptions(context.Background())
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, sub.SubscriptionNo, due[0].SubscriptionNo)
	assert.Nil(t, due[0].LastInvoicedAt)
}

func TestFindDueSubscriptions_RecentInvoiceNotDue(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	plan := env.seedPlan(t, "Monthly", model.BillingPeriodMonthly, true, true)

	sub := planBackedActiveSubscription(t, env, staff, customer, plan)
	subID := uuid.MustParse(sub.ID)
	env.seedInvoice(t, subID, customer.ID, model.InvoicePaid, time.Now().AddDate(0, 0, -10))

	due, err := env.scheduler.FindDueSubscriptions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestFindDueSubscriptions_ElapsedPeriodIsDue(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	plan := env.seedPlan(t, "Monthly", model.BillingPeriodMonthly, true, true)

	sub := planBackedActiveSubscription(t, env, staff, customer, plan)
	subID := uuid.MustParse(sub.ID)
	env.seedInvoice(t, subID, customer.ID, model.InvoicePaid, time.Now().AddDate(0, 0, -40))

	due, err := env.scheduler.FindDueSubscriptions(context.Background())
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, sub.SubscriptionNo, due[0].SubscriptionNo)
	require.NotNil(t, due[0].LastInvoicedAt)
}

func TestFindDueSubscriptions_OpenInvoiceExcluded(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	plan := env.seedPlan(t, "Monthly", model.BillingPeriodMonthly, true, true)

	sub := planBackedActiveSubscription(t, env, staff, customer, plan)
	subID := uuid.MustParse(sub.ID)
	// Even a long-overdue subscription waits while an invoice is open.
	env.seedInvoice(t, subID, customer.ID, model.InvoiceConfirmed, time.Now().AddDate(0, 0, -90))

	due, err := env.scheduler.FindDueSubscriptions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestFindDueSubscriptions_OrderedLongestOverdueFirst(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	plan := env.seedPlan(t, "Monthly", model.BillingPeriodMonthly, true, true)

	fresh := planBackedActiveSubscription(t, env, staff, customer, plan)
	older := planBackedActiveSubscription(t, env, staff, customer, plan)
	newer := planBackedActiveSubscription(t, env, staff, customer, plan)

	env.seedInvoice(t, uuid.MustParse(older.ID), customer.ID, model.InvoicePaid, time.Now().AddDate(0, 0, -60))
	env.seedInvoice(t, uuid.MustParse(newer.ID), customer.ID, model.InvoicePaid, time.Now().AddDate(0, 0, -40))

	due, err := env.scheduler.FindDueSubscriptions(context.Background())
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, fresh.SubscriptionNo, due[0].SubscriptionNo) // never invoiced leads
	assert.Equal(t, older.SubscriptionNo, due[1].SubscriptionNo)
	assert.Equal(t, newer.SubscriptionNo, due[2].SubscriptionNo)
}

func TestGenerateRecurringInvoices_IsolatesFailures(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	plan := env.seedPlan(t, "Monthly", model.BillingPeriodMonthly, true, true)

	healthy := planBackedActiveSubscription(t, env, staff, customer, plan)

	// A subscription carrying an exhausted discount fails generation but
	// must not take the batch down with it.
	spent := env.seedDiscount(t, model.Discount{
		Name: "Spent", Code: "SPENT-RUN",
		Type: model.DiscountTypePercentage, Value: dec("5"),
		LimitUsage: intPtr(1), UsageCount: 1, IsActive: true,
	})
	product := env.seedProduct(t, "Discounted product", "100.00", nil)
	doomed := activeSubscription(t, env, staff, CreateSubscriptionRequest{
		CustomerID: customer.ID.String(),
		PlanID:     plan.ID.String(),
		Lines: []SubscriptionLineRequest{
			{ProductID: product.ID.String(), Quantity: 1, DiscountID: spent.ID.String()},
		},
	})

	result, err := env.scheduler.GenerateRecurringInvoices(context.Background(), staff)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Generated)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Details, 2)

	byNo := make(map[string]RecurringItemResult, len(result.Details))
	for _, item := range result.Details {
		byNo[item.SubscriptionNo] = item
	}
	assert.NotEmpty(t, byNo[healthy.SubscriptionNo].InvoiceNo)
	assert.Empty(t, byNo[healthy.SubscriptionNo].Error)
	assert.NotEmpty(t, byNo[doomed.SubscriptionNo].Error)
	assert.Empty(t, byNo[doomed.SubscriptionNo].InvoiceNo)
}

func TestGenerateRecurringInvoices_SecondRunIsIdle(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	plan := env.seedPlan(t, "Monthly", model.BillingPeriodMonthly, true, true)

	planBackedActiveSubscription(t, env, staff, customer, plan)

	first, err := env.scheduler.GenerateRecurringInvoices(context.Background(), staff)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Generated)

	// The fresh DRAFT invoice counts as open, so the next run finds nothing.
	second, err := env.scheduler.GenerateRecurringInvoices(context.Background(), staff)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Total)
}
