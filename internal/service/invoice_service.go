package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// paymentTermDays maps payment terms to the due-date offset in days.
var paymentTermDays = map[string]int{
	model.PaymentTermsImmediate: 0,
	model.PaymentTermsNet15:     15,
	model.PaymentTermsNet30:     30,
	model.PaymentTermsNet60:     60,
}

// invoiceTransitions is the invoice lifecycle table. PAID and CANCELLED
// are terminal.
var invoiceTransitions = map[string][]string{
	model.InvoiceDraft:     {model.InvoiceConfirmed, model.InvoiceCancelled},
	model.InvoiceConfirmed: {model.InvoicePaid, model.InvoiceFailed, model.InvoiceCancelled},
	model.InvoiceFailed:    {model.InvoiceConfirmed, model.InvoiceCancelled},
}

// --- DTOs ---

type InvoiceLineResponse struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	Description    string `json:"description"`
	Quantity       int    `json:"quantity"`
	UnitPrice      string `json:"unit_price"`
	DiscountAmount string `json:"discount_amount"`
	TaxAmount      string `json:"tax_amount"`
	Subtotal       string `json:"subtotal"`
}

type InvoiceResponse struct {
	ID             string                `json:"id"`
	InvoiceNo      string                `json:"invoice_no"`
	SubscriptionID *string               `json:"subscription_id"`
	CustomerID     string                `json:"customer_id"`
	Status         string                `json:"status"`
	Subtotal       string                `json:"subtotal"`
	TaxAmount      string                `json:"tax_amount"`
	DiscountAmount string                `json:"discount_amount"`
	Total          string                `json:"total"`
	DueDate        string                `json:"due_date"`
	PaidDate       *string               `json:"paid_date"`
	Lines          []InvoiceLineResponse `json:"lines"`
	CreatedAt      string                `json:"created_at"`
}

// --- Interface ---

type InvoiceService interface {
	GenerateFromSubscription(ctx context.Context, actor Actor, subscriptionID string) (InvoiceResponse, error)
	Confirm(ctx context.Context, actor Actor, id string) (InvoiceResponse, error)
	MarkFailed(ctx context.Context, actor Actor, id string) (InvoiceResponse, error)
	Cancel(ctx context.Context, actor Actor, id string) (InvoiceResponse, error)
	GetInvoice(ctx context.Context, actor Actor, id string) (InvoiceResponse, error)
	ListInvoices(ctx context.Context, actor Actor, status, subscriptionID string, page, limit int) ([]InvoiceResponse, int64, error)
}

type invoiceService struct {
	invoiceRepo      repository.InvoiceRepository
	subscriptionRepo repository.SubscriptionRepository
	discountRepo     repository.DiscountRepository
	paymentRepo      repository.PaymentRepository
	sequenceRepo     repository.SequenceRepository
	auditRepo        repository.AuditRepository
	txManager        repository.TransactionManager
	events           BillingEventPublisher
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	subscriptionRepo repository.SubscriptionRepository,
	discountRepo repository.DiscountRepository,
	paymentRepo repository.PaymentRepository,
	sequenceRepo repository.SequenceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events BillingEventPublisher,
) InvoiceService {
	return &invoiceService{
		invoiceRepo:      invoiceRepo,
		subscriptionRepo: subscriptionRepo,
		discountRepo:     discountRepo,
		paymentRepo:      paymentRepo,
		sequenceRepo:     sequenceRepo,
		auditRepo:        auditRepo,
		txManager:        txManager,
		events:           events,
	}
}

// --- Implementation ---

// GenerateFromSubscription snapshots the subscription's lines into a new
// DRAFT invoice. The whole generation (guards, line pricing, numbering,
// persistence and discount usage increments) commits as one transaction.
func (s *invoiceService) GenerateFromSubscription(ctx context.Context, actor Actor, subscriptionID string) (InvoiceResponse, error) {
	subID, err := uuid.Parse(subscriptionID)
	if err != nil {
		return InvoiceResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid subscription id")
	}

	var invoiceID uuid.UUID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sub, findErr := s.subscriptionRepo.FindByIDWithLines(txCtx, subID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.New(apperror.KindNotFound, "subscription not found")
			}
			return fmt.Errorf("failed to fetch subscription: %w", findErr)
		}

		if sub.Status != model.SubscriptionActive && sub.Status != model.SubscriptionConfirmed {
			return apperror.New(apperror.KindInvalidState, "cannot invoice a %s subscription", sub.Status)
		}

		// Pre-check so the caller gets the existing invoice number in the
		// error. Two concurrent generations can both pass this read; the
		// partial unique index on open invoices is what stops the second
		// insert from committing.
		open, openErr := s.invoiceRepo.FindOpenBySubscription(txCtx, sub.ID)
		if openErr != nil {
			return fmt.Errorf("failed to check for open invoices: %w", openErr)
		}
		if open != nil {
			return apperror.New(apperror.KindDuplicateInvoice, "subscription already has open invoice %s", open.InvoiceNo)
		}

		now := time.Now()
		subtotal := decimalFromInt(0)
		discountTotal := decimalFromInt(0)
		taxTotal := decimalFromInt(0)
		lines := make([]model.InvoiceLine, 0, len(sub.Lines))
		usedDiscounts := make(map[uuid.UUID]bool)

		for _, line := range sub.Lines {
			amounts := ComputeLine(line.Quantity, line.UnitPrice, discountSpecOf(line.Discount), taxSpecOf(line.Tax))

			description := ""
			if line.Product != nil {
				description = line.Product.Name
			}

			lines = append(lines, model.InvoiceLine{
				ProductID:      line.ProductID,
				Description:    description,
				Quantity:       line.Quantity,
				UnitPrice:      line.UnitPrice,
				DiscountID:     line.DiscountID,
				DiscountAmount: amounts.DiscountAmount,
				TaxID:          line.TaxID,
				TaxAmount:      amounts.TaxAmount,
				Subtotal:       amounts.NetTotal,
			})

			subtotal = subtotal.Add(amounts.Base)
			discountTotal = discountTotal.Add(amounts.DiscountAmount)
			taxTotal = taxTotal.Add(amounts.TaxAmount)

			if line.DiscountID != nil {
				usedDiscounts[*line.DiscountID] = true
			}
		}

		days := paymentTermDays[sub.PaymentTerms]
		actorID := actor.ID
		subRef := sub.ID
		invoice := model.Invoice{
			SubscriptionID: &subRef,
			CustomerID:     sub.CustomerID,
			Status:         model.InvoiceDraft,
			Subtotal:       subtotal,
			DiscountAmount: discountTotal,
			TaxAmount:      taxTotal,
			Total:          subtotal.Sub(discountTotal).Add(taxTotal),
			DueDate:        now.AddDate(0, 0, days),
			CreatedBy:      &actorID,
			Lines:          lines,
		}

		number, seqErr := s.sequenceRepo.Next(txCtx, model.SeqInvoice)
		if seqErr != nil {
			return fmt.Errorf("failed to generate invoice number: %w", seqErr)
		}
		invoice.InvoiceNo = number

		if createErr := s.invoiceRepo.Create(txCtx, &invoice); createErr != nil {
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return apperror.New(apperror.KindDuplicateInvoice, "subscription already has an open invoice")
			}
			return fmt.Errorf("failed to create invoice: %w", createErr)
		}

		// One usage increment per distinct discount, even when several
		// lines share it. A failed increment (limit reached) aborts the
		// whole generation.
		for discountID := range usedDiscounts {
			ok, incErr := s.discountRepo.IncrementUsage(txCtx, discountID)
			if incErr != nil {
				return fmt.Errorf("failed to increment discount usage: %w", incErr)
			}
			if !ok {
				return apperror.New(apperror.KindInvalidState, "discount %s has reached its usage limit", discountID)
			}
		}

		invoiceID = invoice.ID
		return writeAuditEntry(txCtx, s.auditRepo, actor, model.ActionGenerateInvoice, invoice.ID.String(), invoice.InvoiceNo, map[string]interface{}{
			"subscription_no": sub.SubscriptionNo,
			"total":           invoice.Total.StringFixed(2),
		})
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	resp, err := s.reload(ctx, invoiceID)
	if err != nil {
		return InvoiceResponse{}, err
	}

	if s.events != nil {
		s.events.Publish("invoice.generated", map[string]interface{}{
			"invoice_no": resp.InvoiceNo,
			"total":      resp.Total,
		})
	}

	return resp, nil
}

// Confirm moves a DRAFT invoice to CONFIRMED and, in the same transaction,
// auto-records a COMPLETED payment for the full total and reconciles it.
// Callers therefore normally observe the invoice as PAID afterwards.
func (s *invoiceService) Confirm(ctx context.Context, actor Actor, id string) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid invoice id")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Row lock: confirmation records a payment and reconciles the
		// balance, which must not interleave with other payment writes.
		invoice, findErr := s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.New(apperror.KindNotFound, "invoice not found")
			}
			return fmt.Errorf("failed to fetch invoice: %w", findErr)
		}

		if !transitionAllowed(invoiceTransitions, invoice.Status, model.InvoiceConfirmed) {
			return apperror.New(apperror.KindInvalidTransition, "cannot confirm a %s invoice", invoice.Status)
		}

		invoice.Status = model.InvoiceConfirmed
		if saveErr := s.invoiceRepo.Save(txCtx, invoice); saveErr != nil {
			return fmt.Errorf("failed to update invoice: %w", saveErr)
		}

		paymentNo, seqErr := s.sequenceRepo.Next(txCtx, model.SeqPayment)
		if seqErr != nil {
			return fmt.Errorf("failed to generate payment number: %w", seqErr)
		}

		now := time.Now()
		payment := model.Payment{
			PaymentNo:   paymentNo,
			InvoiceID:   invoice.ID,
			CustomerID:  invoice.CustomerID,
			Amount:      invoice.Total,
			Method:      model.PaymentMethodOther,
			Status:      model.PaymentCompleted,
			PaymentDate: now,
			Notes:       "Auto-recorded on invoice confirmation",
		}
		if createErr := s.paymentRepo.Create(txCtx, &payment); createErr != nil {
			return fmt.Errorf("failed to record auto payment: %w", createErr)
		}

		paid, sumErr := s.paymentRepo.SumCompletedByInvoice(txCtx, invoice.ID)
		if sumErr != nil {
			return fmt.Errorf("failed to sum payments: %w", sumErr)
		}
		if paid.GreaterThanOrEqual(invoice.Total) {
			invoice.Status = model.InvoicePaid
			invoice.PaidDate = &now
			if saveErr := s.invoiceRepo.Save(txCtx, invoice); saveErr != nil {
				return fmt.Errorf("failed to mark invoice paid: %w", saveErr)
			}
		}

		return writeAuditEntry(txCtx, s.auditRepo, actor, model.ActionInvoiceTransition, invoice.ID.String(), invoice.InvoiceNo, map[string]interface{}{
			"to":         invoice.Status,
			"payment_no": payment.PaymentNo,
		})
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	resp, err := s.reload(ctx, invoiceID)
	if err != nil {
		return InvoiceResponse{}, err
	}

	if s.events != nil && resp.Status == model.InvoicePaid {
		s.events.Publish("invoice.paid", map[string]interface{}{
			"invoice_no": resp.InvoiceNo,
			"total":      resp.Total,
		})
	}

	return resp, nil
}

func (s *invoiceService) MarkFailed(ctx context.Context, actor Actor, id string) (InvoiceResponse, error) {
	return s.transition(ctx, actor, id, model.InvoiceFailed)
}

func (s *invoiceService) Cancel(ctx context.Context, actor Actor, id string) (InvoiceResponse, error) {
	return s.transition(ctx, actor, id, model.InvoiceCancelled)
}

func (s *invoiceService) transition(ctx context.Context, actor Actor, id string, target string) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid invoice id")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, findErr := s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.New(apperror.KindNotFound, "invoice not found")
			}
			return fmt.Errorf("failed to fetch invoice: %w", findErr)
		}

		if !transitionAllowed(invoiceTransitions, invoice.Status, target) {
			return apperror.New(apperror.KindInvalidTransition, "cannot transition invoice from %s to %s", invoice.Status, target)
		}

		previous := invoice.Status
		invoice.Status = target
		if saveErr := s.invoiceRepo.Save(txCtx, invoice); saveErr != nil {
			return fmt.Errorf("failed to update invoice: %w", saveErr)
		}

		return writeAuditEntry(txCtx, s.auditRepo, actor, model.ActionInvoiceTransition, invoice.ID.String(), invoice.InvoiceNo, map[string]interface{}{
			"from": previous,
			"to":   target,
		})
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	return s.reload(ctx, invoiceID)
}

func (s *invoiceService) GetInvoice(ctx context.Context, actor Actor, id string) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid invoice id")
	}

	invoice, err := s.invoiceRepo.FindByIDWithLines(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InvoiceResponse{}, apperror.New(apperror.KindNotFound, "invoice not found")
		}
		return InvoiceResponse{}, fmt.Errorf("failed to fetch invoice: %w", err)
	}

	if !actor.IsStaff() && invoice.CustomerID != actor.ID {
		return InvoiceResponse{}, apperror.New(apperror.KindForbidden, "invoice belongs to another customer")
	}

	return toInvoiceResponse(*invoice), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, actor Actor, status, subscriptionID string, page, limit int) ([]InvoiceResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	filter := repository.InvoiceListFilter{Status: status, Page: page, Limit: limit}
	if subscriptionID != "" {
		subID, err := uuid.Parse(subscriptionID)
		if err != nil {
			return nil, 0, apperror.Wrap(apperror.KindValidation, err, "invalid subscription id")
		}
		filter.SubscriptionID = &subID
	}
	if !actor.IsStaff() {
		customerID := actor.ID
		filter.CustomerID = &customerID
	}

	invoices, total, err := s.invoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoices: %w", err)
	}

	result := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		result = append(result, toInvoiceResponse(inv))
	}
	return result, total, nil
}

// --- Helpers ---

func (s *invoiceService) reload(ctx context.Context, id uuid.UUID) (InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDWithLines(ctx, id)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("failed to reload invoice: %w", err)
	}
	return toInvoiceResponse(*invoice), nil
}

// --- Mapping ---

func toInvoiceResponse(inv model.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:             inv.ID.String(),
		InvoiceNo:      inv.InvoiceNo,
		CustomerID:     inv.CustomerID.String(),
		Status:         inv.Status,
		Subtotal:       inv.Subtotal.StringFixed(2),
		TaxAmount:      inv.TaxAmount.StringFixed(2),
		DiscountAmount: inv.DiscountAmount.StringFixed(2),
		Total:          inv.Total.StringFixed(2),
		DueDate:        inv.DueDate.Format("2006-01-02"),
		CreatedAt:      inv.CreatedAt.Format(time.RFC3339),
	}

	if inv.SubscriptionID != nil {
		v := inv.SubscriptionID.String()
		resp.SubscriptionID = &v
	}
	if inv.PaidDate != nil {
		v := inv.PaidDate.Format(time.RFC3339)
		resp.PaidDate = &v
	}

	resp.Lines = make([]InvoiceLineResponse, 0, len(inv.Lines))
	for _, line := range inv.Lines {
		resp.Lines = append(resp.Lines, InvoiceLineResponse{
			ID:             line.ID.String(),
			ProductID:      line.ProductID.String(),
			Description:    line.Description,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice.StringFixed(2),
			DiscountAmount: line.DiscountAmount.StringFixed(2),
			TaxAmount:      line.TaxAmount.StringFixed(2),
			Subtotal:       line.Subtotal.StringFixed(2),
		})
	}

	return resp
}
