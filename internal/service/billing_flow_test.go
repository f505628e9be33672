package service

import (
	"context"
	"testing"

	"backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionTransitionTable(t *testing.T) {
	statuses := []string{
		model.SubscriptionDraft, model.SubscriptionQuotation, model.SubscriptionConfirmed,
		model.SubscriptionActive, model.SubscriptionPaused, model.SubscriptionClosed,
		model.SubscriptionCancelled,
	}

	allowed := map[string]map[string]bool{
		model.SubscriptionDraft:     {model.SubscriptionQuotation: true},
		model.SubscriptionQuotation: {model.SubscriptionConfirmed: true, model.SubscriptionDraft: true},
		model.SubscriptionConfirmed: {model.SubscriptionActive: true},
		model.SubscriptionActive:    {model.SubscriptionClosed: true, model.SubscriptionPaused: true, model.SubscriptionCancelled: true},
		model.SubscriptionPaused:    {model.SubscriptionActive: true, model.SubscriptionCancelled: true},
	}

	for _, from := range statuses {
		for _, to := range statuses {
			got := transitionAllowed(subscriptionTransitions, from, to)
			assert.Equal(t, allowed[from][to], got, "%s -> %s", from, to)
		}
	}
}

func TestInvoiceTransitionTable(t *testing.T) {
	statuses := []string{
		model.InvoiceDraft, model.InvoiceConfirmed, model.InvoicePaid,
		model.InvoiceFailed, model.InvoiceCancelled,
	}

	allowed := map[string]map[string]bool{
		model.InvoiceDraft:     {model.InvoiceConfirmed: true, model.InvoiceCancelled: true},
		model.InvoiceConfirmed: {model.InvoicePaid: true, model.InvoiceFailed: true, model.InvoiceCancelled: true},
		model.InvoiceFailed:    {model.InvoiceConfirmed: true, model.InvoiceCancelled: true},
	}

	for _, from := range statuses {
		for _, to := range statuses {
			got := transitionAllowed(invoiceTransitions, from, to)
			assert.Equal(t, allowed[from][to], got, "%s -> %s", from, to)
		}
	}
}

// TestBillingFlow_EndToEnd walks a subscription from draft to a settled
// invoice through a failed-payment detour.
func TestBillingFlow_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	staff := env.staffActor(t)
	customer := env.customer(t)

	tax := env.seedTax(t, "VAT 18", model.TaxComputationPercentage, "18")
	discount := env.seedDiscount(t, model.Discount{
		Name: "Launch", Code: "LAUNCH10",
		Type: model.DiscountTypePercentage, Value: dec("10"), IsActive: true,
	})
	plan := env.seedPlan(t, "Monthly", model.BillingPeriodMonthly, true, true)
	product := env.seedProduct(t, "Platform seat", "1000.00", nil)

	sub, err := env.subscriptions.CreateSubscription(ctx, staff, CreateSubscriptionRequest{
		CustomerID:   customer.ID.String(),
		PlanID:       plan.ID.String(),
		PaymentTerms: model.PaymentTermsNet30,
		Lines: []SubscriptionLineRequest{
			{ProductID: product.ID.String(), Quantity: 1, DiscountID: discount.ID.String(), TaxID: tax.ID.String()},
		},
	})
	require.NoError(t, err)
	env.activate(t, staff, sub.ID)

	// The scheduler picks up the never-invoiced subscription.
	run, err := env.scheduler.GenerateRecurringInvoices(ctx, staff)
	require.NoError(t, err)
	require.Equal(t, 1, run.Generated)

	invoices, _, err := env.invoices.ListInvoices(ctx, staff, "", sub.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	inv := invoices[0]
	assert.Equal(t, "1062.00", inv.Total) // 1000 − 100 discount + 18% on 900

	// Payment bounces; ops marks it failed and retries.
	require.NoError(t, env.db.Model(&model.Invoice{}).Where("id = ?", inv.ID).
		Update("status", model.InvoiceConfirmed).Error)
	_, err = env.invoices.MarkFailed(ctx, staff, inv.ID)
	require.NoError(t, err)
	reopened, err := env.payments.RetryFailed(ctx, staff, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceConfirmed, reopened.Status)

	// Two partials settle it.
	_, err = env.payments.RecordPayment(ctx, staff, RecordPaymentRequest{InvoiceID: inv.ID, Amount: "500.00"})
	require.NoError(t, err)
	resp, err := env.payments.RecordPayment(ctx, staff, RecordPaymentRequest{InvoiceID: inv.ID, Amount: "562.00"})
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePaid, resp.InvoiceStatus)

	// Settled invoice is no longer open, so the subscription is waiting on
	// its next cycle rather than due again.
	due, err := env.scheduler.FindDueSubscriptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, due)

	// The trail recorded every step of the flow.
	var actions []string
	require.NoError(t, env.db.Model(&model.AuditLog{}).Order("created_at").Pluck("action", &actions).Error)
	assert.Contains(t, actions, model.ActionCreateSubscription)
	assert.Contains(t, actions, model.ActionGenerateInvoice)
	assert.Contains(t, actions, model.ActionRetryInvoice)
	assert.Contains(t, actions, model.ActionRecordPayment)
}
