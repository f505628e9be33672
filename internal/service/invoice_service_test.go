package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"
	"backend/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeSubscription(t *testing.T, env *testEnv, actor Actor, req CreateSubscriptionRequest) SubscriptionResponse {
	t.Helper()
	resp, err := env.subscriptions.CreateSubscription(context.Background(), actor, req)
	require.NoError(t, err)
	return env.activate(t, actor, resp.ID)
}

func TestGenerateFromSubscription_SnapshotsLinesAndTotals(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	tax := env.seedTax(t, "VAT 18", model.TaxComputationPercentage, "18")
	product := env.seedProduct(t, "Hosting", "500.00", nil)

	sub := activeSubscription(t, env, staff, CreateSubscriptionRequest{
		CustomerID: customer.ID.String(),
		Lines: []SubscriptionLineRequest{
			{ProductID: product.ID.String(), Quantity: 2, TaxID: tax.ID.String()},
		},
	})

	inv, err := env.invoices.GenerateFromSubscription(context.Background(), staff, sub.ID)
	require.NoError(t, err)

	assert.Equal(t, "INV-000001", inv.InvoiceNo)
	assert.Equal(t, model.InvoiceDraft, inv.Status)
	assert.Equal(t, "1000.00", inv.Subtotal)
	assert.Equal(t, "180.00", inv.TaxAmount)
	assert.Equal(t, "0.00", inv.DiscountAmount)
	assert.Equal(t, "1180.00", inv.Total)
	require.Len(t, inv.Lines, 1)
	assert.Equal(t, "Hosting", inv.Lines[0].Description)
	assert.Equal(t, "1180.00", inv.Lines[0].Subtotal)
}

func TestGenerateFromSubscription_DiscountBeforeTax(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	tax := env.seedTax(t, "VAT 18", model.TaxComputationPercentage, "18")
	discount := env.seedDiscount(t, model.Discount{
		Name: "Loyalty", Code: "LOYAL10",
		Type: model.DiscountTypePercentage, Value: dec("10"), IsActive: true,
	})
	product := env.seedProduct(t, "Hosting", "1000.00", nil)

	sub := activeSubscription(t, env, staff, CreateSubscriptionRequest{
		CustomerID: customer.ID.String(),
		Lines: []SubscriptionLineRequest{
			{ProductID: product.ID.String(), Quantity: 1, DiscountID: discount.ID.String(), TaxID: tax.ID.String()},
		},
	})

	inv, err := env.invoices.GenerateFromSubscription(context.Background(), staff, sub.ID)
	require.NoError(t, err)

	// 1000 − 100 discount, then 18% tax on the remaining 900.
	assert.Equal(t, "1000.00", inv.Subtotal)
	assert.Equal(t, "100.00", inv.DiscountAmount)
	assert.Equal(t, "162.00", inv.TaxAmount)
	assert.Equal(t, "1062.00", inv.Total)
}

func TestGenerateFromSubscription_RequiresInvoiceableStatus(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	product := env.seedProduct(t, "Hosting", "100.00", nil)

	draft, err := env.subscriptions.CreateSubscription(context.Background(), staff, CreateSubscriptionRequest{
		CustomerID: customer.ID.String(),
		Lines:      []SubscriptionLineRequest{{ProductID: product.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = env.invoices.GenerateFromSubscription(context.Background(), staff, draft.ID)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))
}

func TestGenerateFromSubscription_RejectsSecondOpenInvoice(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	product := env.seedProduct(t, "Hosting", "100.00", nil)

	sub := activeSubscription(t, env, staff, CreateSubscriptionRequest{
		CustomerID: customer.ID.String(),
		Lines:      []SubscriptionLineRequest{{ProductID: product.ID.String(), Quantity: 1}},
	})

	first, err := env.invoices.GenerateFromSubscription(context.Background(), staff, sub.ID)
	require.NoError(t, err)

	_, err = env.invoices.GenerateFromSubscription(context.Background(), staff, sub.ID)
	assert.True(t, apperror.Is(err, apperror.KindDuplicateInvoice))

	// Cancelling the open invoice frees the subscription for another one.
	_, err = env.invoices.Cancel(context.Background(), staff, first.ID)
	require.NoError(t, err)
	_, err = env.invoices.GenerateFromSubscription(context.Background(), staff, sub.ID)
	require.NoError(t, err)
}

func TestGenerateFromSubscription_DueDateFollowsPaymentTerms(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	product := env.seedProduct(t, "Hosting", "100.00", nil)

	tests := []struct {
		terms string
		days  int
	}{
		{model.PaymentTermsImmediate, 0},
		{model.PaymentTermsNet15, 15},
		{model.PaymentTermsNet30, 30},
		{model.PaymentTermsNet60, 60},
	}

	for _, tc := range tests {
		t.Run(tc.terms, func(t *testing.T) {
			sub := activeSubscription(t, env, staff, CreateSubscriptionRequest{
				CustomerID:   customer.ID.String(),
				PaymentTerms: tc.terms,
				Lines:        []SubscriptionLineRequest{{ProductID: product.ID.String(), Quantity: 1}},
			})

			inv, err := env.invoices.GenerateFromSubscription(context.Background(), staff, sub.ID)
			require.NoError(t, err)
			assert.Equal(t, time.Now().AddDate(0, 0, tc.days).Format("2006-01-02"), inv.DueDate)
		})
	}
}

func TestGenerateFromSubscription_CountsSharedDiscountOnce(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	discount := env.seedDiscount(t, model.Discount{
		Name: "Bundle", Code: "BUNDLE",
		Type: model.DiscountTypePercentage, Value: dec("5"), IsActive: true,
	})
	hosting := env.seedProduct(t, "Hosting", "100.00", nil)
	backup := env.seedProduct(t, "Backup", "50.00", nil)

	sub := activeSubscription(t, env, staff, CreateSubscriptionRequest{
		CustomerID: customer.ID.String(),
		Lines: []SubscriptionLineRequest{
			{ProductID: hosting.ID.String(), Quantity: 1, DiscountID: discount.ID.String()},
			{ProductID: backup.ID.String(), Quantity: 1, DiscountID: discount.ID.String()},
		},
	})

	_, err := env.invoices.GenerateFromSubscription(context.Background(), staff, sub.ID)
	require.NoError(t, err)

	var reloaded model.Discount
	require.NoError(t, env.db.First(&reloaded, "id = ?", discount.ID).Error)
	assert.Equal(t, 1, reloaded.UsageCount)
}

func TestGenerateFromSubscription_AbortsOnExhaustedDiscount(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	discount := env.seedDiscount(t, model.Discount{
		Name: "Spent", Code: "SPENT",
		Type: model.DiscountTypePercentage, Value: dec("5"),
		LimitUsage: intPtr(1), UsageCount: 1, IsActive: true,
	})
	product := env.seedProduct(t, "Hosting", "100.00", nil)

	sub := activeSubscription(t, env, staff, CreateSubscriptionRequest{
		CustomerID: customer.ID.String(),
		Lines: []SubscriptionLineRequest{
			{ProductID: product.ID.String(), Quantity: 1, DiscountID: discount.ID.String()},
		},
	})

	_, err := env.invoices.GenerateFromSubscription(context.Background(), staff, sub.ID)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))

	// The whole generation rolled back: no invoice row survived.
	var count int64
	require.NoError(t, env.db.Model(&model.Invoice{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestConfirm_AutoRecordsCoveringPayment(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	product := env.seedProduct(t, "Hosting", "250.00", nil)

	sub := activeSubscription(t, env, staff, CreateSubscriptionRequest{
		CustomerID: customer.ID.String(),
		Lines:      []SubscriptionLineRequest{{ProductID: product.ID.String(), Quantity: 2}},
	})
	inv, err := env.invoices.GenerateFromSubscription(context.Background(), staff, sub.ID)
	require.NoError(t, err)

	confirmed, err := env.invoices.Confirm(context.Background(), staff, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePaid, confirmed.Status)
	assert.NotNil(t, confirmed.PaidDate)

	var payments []model.Payment
	require.NoError(t, env.db.Where("invoice_id = ?", inv.ID).Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, model.PaymentCompleted, payments[0].Status)
	assert.Equal(t, model.PaymentMethodOther, payments[0].Method)
	assert.True(t, payments[0].Amount.Equal(dec("500")))
	assert.Equal(t, "Auto-recorded on invoice confirmation", payments[0].Notes)
}

func TestInvoiceTransitions_TerminalStatesLocked(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	product := env.seedProduct(t, "Hosting", "100.00", nil)

	sub := activeSubscription(t, env, staff, CreateSubscriptionRequest{
		CustomerID: customer.ID.String(),
		Lines:      []SubscriptionLineRequest{{ProductID: product.ID.String(), Quantity: 1}},
	})
	inv, err := env.invoices.GenerateFromSubscription(context.Background(), staff, sub.ID)
	require.NoError(t, err)

	// DRAFT cannot fail directly; it must be confirmed first.
	_, err = env.invoices.MarkFailed(context.Background(), staff, inv.ID)
	assert.True(t, apperror.Is(err, apperror.KindInvalidTransition))

	_, err = env.invoices.Confirm(context.Background(), staff, inv.ID)
	require.NoError(t, err)

	// Confirm auto-paid it; PAID is terminal.
	_, err = env.invoices.Cancel(context.Background(), staff, inv.ID)
	assert.True(t, apperror.Is(err, apperror.KindInvalidTransition))
	_, err = env.invoices.Confirm(context.Background(), staff, inv.ID)
	assert.True(t, apperror.Is(err, apperror.KindInvalidTransition))
}

func TestGetInvoice_PortalScoping(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	stranger := env.customer(t)
	product := env.seedProduct(t, "Hosting", "100.00", nil)

	sub := activeSubscription(t, env, staff, CreateSubscriptionRequest{
		CustomerID: customer.ID.String(),
		Lines:      []SubscriptionLineRequest{{ProductID: product.ID.String(), Quantity: 1}},
	})
	inv, err := env.invoices.GenerateFromSubscription(context.Background(), staff, sub.ID)
	require.NoError(t, err)

	owner := Actor{ID: customer.ID, Role: model.RolePortal}
	_, err = env.invoices.GetInvoice(context.Background(), owner, inv.ID)
	require.NoError(t, err)

	other := Actor{ID: stranger.ID, Role: model.RolePortal}
	_, err = env.invoices.GetInvoice(context.Background(), other, inv.ID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
}
