package service

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createDraftSubscription(t *testing.T, env *testEnv, actor Actor, customer model.User, lines []SubscriptionLineRequest) SubscriptionResponse {
	t.Helper()
	resp, err := env.subscriptions.CreateSubscription(context.Background(), actor, CreateSubscriptionRequest{
		CustomerID: customer.ID.String(),
		Lines:      lines,
	})
	require.NoError(t, err)
	return resp
}

func TestCreateSubscription_SnapshotsPriceAndNumbers(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	tax := env.seedTax(t, "VAT 18", model.TaxComputationPercentage, "18")
	product := env.seedProduct(t, "Hosting", "500.00", nil)

	resp := createDraftSubscription(t, env, staff, customer, []SubscriptionLineRequest{
		{ProductID: product.ID.String(), Quantity: 2, TaxID: tax.ID.String()},
	})

	assert.Equal(t, "SUB-000001", resp.SubscriptionNo)
	assert.Equal(t, model.SubscriptionDraft, resp.Status)
	assert.Equal(t, model.PaymentTermsImmediate, resp.PaymentTerms)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "500.00", resp.Lines[0].UnitPrice)
	assert.Equal(t, "1000.00", resp.Lines[0].Subtotal)
	assert.Equal(t, "1000.00", resp.UntaxedAmount)
	assert.Equal(t, "180.00", resp.TaxAmount)
	assert.Equal(t, "1180.00", resp.TotalAmount)

	// Later price edits must not leak into the stored line.
	require.NoError(t, env.db.Model(&model.Product{}).Where("id = ?", product.ID).
		Update("sales_price", "999.00").Error)
	reloaded, err := env.subscriptions.GetSubscription(context.Background(), staff, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "500.00", reloaded.Lines[0].UnitPrice)
}

func TestCreateSubscription_PortalOnlyForSelf(t *testing.T) {
	env := newTestEnv(t)
	customer := env.customer(t)
	other := env.customer(t)
	product := env.seedProduct(t, "Hosting", "100.00", nil)

	actor := Actor{ID: other.ID, Role: model.RolePortal}
	_, err := env.subscriptions.CreateSubscription(context.Background(), actor, CreateSubscriptionRequest{
		CustomerID: customer.ID.String(),
		Lines:      []SubscriptionLineRequest{{ProductID: product.ID.String(), Quantity: 1}},
	})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
}

func TestUpdateStatus_FullLifecycle(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	product := env.seedProduct(t, "Hosting", "100.00", nil)

	sub := createDraftSubscription(t, env, staff, customer, []SubscriptionLineRequest{
		{ProductID: product.ID.String(), Quantity: 1},
	})

	resp := env.activate(t, staff, sub.ID)
	assert.Equal(t, model.SubscriptionActive, resp.Status)

	resp, err := env.subscriptions.UpdateStatus(context.Background(), staff, sub.ID, UpdateSubscriptionStatusRequest{Status: model.SubscriptionClosed})
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionClosed, resp.Status)
}

func TestUpdateStatus_RejectsIllegalTransition(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	product := env.seedProduct(t, "Hosting", "100.00", nil)

	sub := createDraftSubscription(t, env, staff, customer, []SubscriptionLineRequest{
		{ProductID: product.ID.String(), Quantity: 1},
	})

	_, err := env.subscriptions.UpdateStatus(context.Background(), staff, sub.ID, UpdateSubscriptionStatusRequest{Status: model.SubscriptionActive})
	assert.True(t, apperror.Is(err, apperror.KindInvalidTransition))
}

func TestUpdateStatus_PortalCannotConfirm(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	product := env.seedProduct(t, "Hosting", "100.00", nil)
	portal := Actor{ID: customer.ID, Role: model.RolePortal}

	sub := createDraftSubscription(t, env, staff, customer, []SubscriptionLineRequest{
		{ProductID: product.ID.String(), Quantity: 1},
	})

	// The customer may submit their own draft as a quotation...
	_, err := env.subscriptions.UpdateStatus(context.Background(), portal, sub.ID, UpdateSubscriptionStatusRequest{Status: model.SubscriptionQuotation})
	require.NoError(t, err)

	// ...but confirming requires staff.
	_, err = env.subscriptions.UpdateStatus(context.Background(), portal, sub.ID, UpdateSubscriptionStatusRequest{Status: model.SubscriptionConfirmed})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
}

func TestUpdateStatus_PauseRequiresPausablePlan(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	product := env.seedProduct(t, "Hosting", "100.00", nil)
	rigid := env.seedPlan(t, "Annual contract", model.BillingPeriodMonthly, false, true)

	resp, err := env.subscriptions.CreateSubscription(context.Background(), staff, CreateSubscriptionRequest{
		CustomerID: customer.ID.String(),
		PlanID:     rigid.ID.String(),
		Lines:      []SubscriptionLineRequest{{ProductID: product.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)
	env.activate(t, staff, resp.ID)

	_, err = env.subscriptions.UpdateStatus(context.Background(), staff, resp.ID, UpdateSubscriptionStatusRequest{Status: model.SubscriptionPaused})
	assert.True(t, apperror.Is(err, apperror.KindNotPausable))
}

func TestUpdateStatus_CloseRequiresClosablePlan(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	product := env.seedProduct(t, "Hosting", "100.00", nil)
	plan := env.seedPlan(t, "Evergreen", model.BillingPeriodMonthly, true, true)
	require.NoError(t, env.db.Model(&model.RecurringPlan{}).
		Where("id = ?", plan.ID).
		Update("closable", false).Error)

	resp, err := env.subscriptions.CreateSubscription(context.Background(), staff, CreateSubscriptionRequest{
		CustomerID: customer.ID.String(),
		PlanID:     plan.ID.String(),
		Lines:      []SubscriptionLineRequest{{ProductID: product.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)
	env.activate(t, staff, resp.ID)

	_, err = env.subscriptions.UpdateStatus(context.Background(), staff, resp.ID, UpdateSubscriptionStatusRequest{Status: model.SubscriptionClosed})
	assert.True(t, apperror.Is(err, apperror.KindNotClosable))
}

func TestUpdateStatus_ClosablePlanCloses(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	product := env.seedProduct(t, "Hosting", "100.00", nil)
	plan := env.seedPlan(t, "Standard", model.BillingPeriodMonthly, true, true)

	resp, err := env.subscriptions.CreateSubscription(context.Background(), staff, CreateSubscriptionRequest{
		CustomerID: customer.ID.String(),
		PlanID:     plan.ID.String(),
		Lines:      []SubscriptionLineRequest{{ProductID: product.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)
	env.activate(t, staff, resp.ID)

	closed, err := env.subscriptions.UpdateStatus(context.Background(), staff, resp.ID, UpdateSubscriptionStatusRequest{Status: model.SubscriptionClosed})
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionClosed, closed.Status)
}

func TestUpdateStatus_PauseAndResumeStampTimes(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	product := env.seedProduct(t, "Hosting", "100.00", nil)
	plan := env.seedPlan(t, "Flexible", model.BillingPeriodMonthly, true, true)

	resp, err := env.subscriptions.CreateSubscription(context.Background(), staff, CreateSubscriptionRequest{
		CustomerID: customer.ID.String(),
		PlanID:     plan.ID.String(),
		Lines:      []SubscriptionLineRequest{{ProductID: product.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)
	env.activate(t, staff, resp.ID)

	paused, err := env.subscriptions.UpdateStatus(context.Background(), staff, resp.ID, UpdateSubscriptionStatusRequest{Status: model.SubscriptionPaused})
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionPaused, paused.Status)
	assert.NotNil(t, paused.PausedAt)

	resumed, err := env.subscriptions.UpdateStatus(context.Background(), staff, resp.ID, UpdateSubscriptionStatusRequest{Status: model.SubscriptionActive})
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, resumed.Status)
	assert.NotNil(t, resumed.ResumedAt)
}

func TestUpdateStatus_CancelRequiresReason(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	product := env.seedProduct(t, "Hosting", "100.00", nil)

	sub := createDraftSubscription(t, env, staff, customer, []SubscriptionLineRequest{
		{ProductID: product.ID.String(), Quantity: 1},
	})
	env.activate(t, staff, sub.ID)

	_, err := env.subscriptions.UpdateStatus(context.Background(), staff, sub.ID, UpdateSubscriptionStatusRequest{Status: model.SubscriptionCancelled})
	assert.True(t, apperror.Is(err, apperror.KindReasonRequired))

	resp, err := env.subscriptions.UpdateStatus(context.Background(), staff, sub.ID, UpdateSubscriptionStatusRequest{
		Status:             model.SubscriptionCancelled,
		CancellationReason: "customer churned",
	})
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionCancelled, resp.Status)
	assert.Equal(t, "customer churned", resp.CancellationReason)
	assert.NotNil(t, resp.CancelledAt)
}

func TestUpdateLines_OnlyWhileEditable(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	product := env.seedProduct(t, "Hosting", "100.00", nil)
	addon := env.seedProduct(t, "Backup addon", "25.00", nil)

	sub := createDraftSubscription(t, env, staff, customer, []SubscriptionLineRequest{
		{ProductID: product.ID.String(), Quantity: 1},
	})

	resp, err := env.subscriptions.UpdateLines(context.Background(), staff, sub.ID, UpdateSubscriptionLinesRequest{
		Lines: []SubscriptionLineRequest{
			{ProductID: product.ID.String(), Quantity: 1},
			{ProductID: addon.ID.String(), Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Lines, 2)
	assert.Equal(t, "150.00", resp.UntaxedAmount)

	env.activate(t, staff, sub.ID)
	_, err = env.subscriptions.UpdateLines(context.Background(), staff, sub.ID, UpdateSubscriptionLinesRequest{
		Lines: []SubscriptionLineRequest{{ProductID: product.ID.String(), Quantity: 3}},
	})
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))
}

func TestRenew_CopiesLinesIntoFreshDraft(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	product := env.seedProduct(t, "Hosting", "100.00", nil)

	sub := createDraftSubscription(t, env, staff, customer, []SubscriptionLineRequest{
		{ProductID: product.ID.String(), Quantity: 2},
	})
	env.activate(t, staff, sub.ID)
	_, err := env.subscriptions.UpdateStatus(context.Background(), staff, sub.ID, UpdateSubscriptionStatusRequest{Status: model.SubscriptionClosed})
	require.NoError(t, err)

	renewed, err := env.subscriptions.Renew(context.Background(), staff, sub.ID)
	require.NoError(t, err)
	assert.NotEqual(t, sub.ID, renewed.ID)
	assert.NotEqual(t, sub.SubscriptionNo, renewed.SubscriptionNo)
	assert.Equal(t, model.SubscriptionDraft, renewed.Status)
	require.Len(t, renewed.Lines, 1)
	assert.Equal(t, 2, renewed.Lines[0].Quantity)
	assert.Equal(t, "100.00", renewed.Lines[0].UnitPrice)
}

func TestRenew_Guards(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	customer := env.customer(t)
	product := env.seedProduct(t, "Hosting", "100.00", nil)

	active := createDraftSubscription(t, env, staff, customer, []SubscriptionLineRequest{
		{ProductID: product.ID.String(), Quantity: 1},
	})
	env.activate(t, staff, active.ID)
	_, err := env.subscriptions.Renew(context.Background(), staff, active.ID)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))

	oneShot := env.seedPlan(t, "One shot", model.BillingPeriodMonthly, true, false)
	resp, err := env.subscriptions.CreateSubscription(context.Background(), staff, CreateSubscriptionRequest{
		CustomerID: customer.ID.String(),
		PlanID:     oneShot.ID.String(),
		Lines:      []SubscriptionLineRequest{{ProductID: product.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)
	env.activate(t, staff, resp.ID)
	_, err = env.subscriptions.UpdateStatus(context.Background(), staff, resp.ID, UpdateSubscriptionStatusRequest{
		Status:             model.SubscriptionCancelled,
		CancellationReason: "done",
	})
	require.NoError(t, err)

	_, err = env.subscriptions.Renew(context.Background(), staff, resp.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotRenewable))
}

func TestListSubscriptions_PortalSeesOnlyOwn(t *testing.T) {
	env := newTestEnv(t)
	staff := env.staffActor(t)
	mine := env.customer(t)
	other := env.customer(t)
	product := env.seedProduct(t, "Hosting", "100.00", nil)

	createDraftSubscription(t, env, staff, mine, []SubscriptionLineRequest{{ProductID: product.ID.String(), Quantity: 1}})
	createDraftSubscription(t, env, staff, other, []SubscriptionLineRequest{{ProductID: product.ID.String(), Quantity: 1}})

	portal := Actor{ID: mine.ID, Role: model.RolePortal}
	list, total, err := env.subscriptions.ListSubscriptions(context.Background(), portal, "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID.String(), list[0].CustomerID)

	_, staffTotal, err := env.subscriptions.ListSubscriptions(context.Background(), staff, "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, staffTotal)
}
