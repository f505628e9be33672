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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type RecordPaymentRequest struct {
	InvoiceID string `json:"invoice_id" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
	Method    string `json:"method" binding:"omitempty,oneof=CREDIT_CARD BANK_TRANSFER CASH OTHER"`
	Notes     string `json:"notes"`
}

type PaymentResponse struct {
	ID            string `json:"id"`
	PaymentNo     string `json:"payment_no"`
	InvoiceID     string `json:"invoice_id"`
	CustomerID    string `json:"customer_id"`
	Amount        string `json:"amount"`
	Method        string `json:"method"`
	Status        string `json:"status"`
	PaymentDate   string `json:"payment_date"`
	Notes         string `json:"notes,omitempty"`
	InvoiceStatus string `json:"invoice_status"` // status after reconciliation
}

// --- Interface ---

type PaymentService interface {
	RecordPayment(ctx context.Context, actor Actor, req RecordPaymentRequest) (PaymentResponse, error)
	RetryFailed(ctx context.Context, actor Actor, invoiceID string) (InvoiceResponse, error)
	ListByInvoice(ctx context.Context, actor Actor, invoiceID string) ([]PaymentResponse, error)
	ListPayments(ctx context.Context, page, limit int) ([]PaymentResponse, int64, error)
}

type paymentService struct {
	paymentRepo  repository.PaymentRepository
	invoiceRepo  repository.InvoiceRepository
	sequenceRepo repository.SequenceRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	events       BillingEventPublisher
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	invoiceRepo repository.InvoiceRepository,
	sequenceRepo repository.SequenceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events BillingEventPublisher,
) PaymentService {
	return &paymentService{
		paymentRepo:  paymentRepo,
		invoiceRepo:  invoiceRepo,
		sequenceRepo: sequenceRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		events:       events,
	}
}

// --- Implementation ---

// RecordPayment appends a COMPLETED payment against a CONFIRMED or FAILED
// invoice and reconciles: once cumulative completed payments cover the
// total, the invoice flips to PAID. The insert and the sum-and-compare
// share one transaction so concurrent payments cannot both observe a
// partial state. Partial payments leave the invoice status untouched;
// there is no PARTIAL status.
func (s *paymentService) RecordPayment(ctx context.Context, actor Actor, req RecordPaymentRequest) (PaymentResponse, error) {
	invoiceID, err := uuid.Parse(req.InvoiceID)
	if err != nil {
		return PaymentResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid invoice id")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return PaymentResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid amount")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return PaymentResponse{}, apperror.New(apperror.KindValidation, "amount must be positive")
	}

	method := req.Method
	if method == "" {
		method = model.PaymentMethodOther
	}

	var payment model.Payment
	var invoiceStatus string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Row lock: two payments that together cover the total must
		// reconcile one after the other, or both could leave the invoice
		// CONFIRMED.
		invoice, findErr := s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.New(apperror.KindNotFound, "invoice not found")
			}
			return fmt.Errorf("failed to fetch invoice: %w", findErr)
		}

		if invoice.Status != model.InvoiceConfirmed && invoice.Status != model.InvoiceFailed {
			return apperror.New(apperror.KindInvalidState, "cannot pay a %s invoice", invoice.Status)
		}

		paymentNo, seqErr := s.sequenceRepo.Next(txCtx, model.SeqPayment)
		if seqErr != nil {
			return fmt.Errorf("failed to generate payment number: %w", seqErr)
		}

		now := time.Now()
		payment = model.Payment{
			PaymentNo:   paymentNo,
			InvoiceID:   invoice.ID,
			CustomerID:  invoice.CustomerID,
			Amount:      amount,
			Method:      method,
			Status:      model.PaymentCompleted,
			PaymentDate: now,
			Notes:       req.Notes,
		}
		if createErr := s.paymentRepo.Create(txCtx, &payment); createErr != nil {
			return fmt.Errorf("failed to create payment: %w", createErr)
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
		invoiceStatus = invoice.Status

		return writeAuditEntry(txCtx, s.auditRepo, actor, model.ActionRecordPayment, payment.ID.String(), payment.PaymentNo, map[string]interface{}{
			"invoice_no": invoice.InvoiceNo,
			"amount":     amount.StringFixed(2),
			"status":     invoice.Status,
		})
	})
	if err != nil {
		return PaymentResponse{}, err
	}

	if s.events != nil && invoiceStatus == model.InvoicePaid {
		s.events.Publish("invoice.paid", map[string]interface{}{
			"invoice_id": invoiceID.String(),
			"payment_no": payment.PaymentNo,
		})
	}

	resp := toPaymentResponse(payment)
	resp.InvoiceStatus = invoiceStatus
	return resp, nil
}

// RetryFailed makes a FAILED invoice payable again by moving it back to
// CONFIRMED. No payment row is created here.
func (s *paymentService) RetryFailed(ctx context.Context, actor Actor, invoiceID string) (InvoiceResponse, error) {
	id, err := uuid.Parse(invoiceID)
	if err != nil {
		return InvoiceResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid invoice id")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, findErr := s.invoiceRepo.FindByIDForUpdate(txCtx, id)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.New(apperror.KindNotFound, "invoice not found")
			}
			return fmt.Errorf("failed to fetch invoice: %w", findErr)
		}

		if invoice.Status != model.InvoiceFailed {
			return apperror.New(apperror.KindRetryFailed, "can only retry a FAILED invoice, not %s", invoice.Status)
		}

		invoice.Status = model.InvoiceConfirmed
		if saveErr := s.invoiceRepo.Save(txCtx, invoice); saveErr != nil {
			return fmt.Errorf("failed to update invoice: %w", saveErr)
		}

		return writeAuditEntry(txCtx, s.auditRepo, actor, model.ActionRetryInvoice, invoice.ID.String(), invoice.InvoiceNo, map[string]interface{}{
			"from": model.InvoiceFailed,
			"to":   model.InvoiceConfirmed,
		})
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	invoice, err := s.invoiceRepo.FindByIDWithLines(ctx, id)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("failed to reload invoice: %w", err)
	}
	return toInvoiceResponse(*invoice), nil
}

func (s *paymentService) ListByInvoice(ctx context.Context, actor Actor, invoiceID string) ([]PaymentResponse, error) {
	id, err := uuid.Parse(invoiceID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, err, "invalid invoice id")
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(apperror.KindNotFound, "invoice not found")
		}
		return nil, fmt.Errorf("failed to fetch invoice: %w", err)
	}
	if !actor.IsStaff() && invoice.CustomerID != actor.ID {
		return nil, apperror.New(apperror.KindForbidden, "invoice belongs to another customer")
	}

	payments, err := s.paymentRepo.ListByInvoice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payments: %w", err)
	}

	result := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		result = append(result, toPaymentResponse(p))
	}
	return result, nil
}

func (s *paymentService) ListPayments(ctx context.Context, page, limit int) ([]PaymentResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	payments, total, err := s.paymentRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch payments: %w", err)
	}

	result := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		result = append(result, toPaymentResponse(p))
	}
	return result, total, nil
}

// --- Mapping ---

func toPaymentResponse(p model.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID.String(),
		PaymentNo:   p.PaymentNo,
		InvoiceID:   p.InvoiceID.String(),
		CustomerID:  p.CustomerID.String(),
		Amount:      p.Amount.StringFixed(2),
		Method:      p.Method,
		Status:      p.Status,
		PaymentDate: p.PaymentDate.Format(time.RFC3339),
		Notes:       p.Notes,
	}
}
