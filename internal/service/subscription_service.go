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

// --- DTOs ---

type SubscriptionLineRequest struct {
	ProductID  string `json:"product_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1"`
	DiscountID string `json:"discount_id"`
	TaxID      string `json:"tax_id"`
}

type CreateSubscriptionRequest struct {
	CustomerID     string                    `json:"customer_id" binding:"required"`
	PlanID         string                    `json:"plan_id"`
	PaymentTerms   string                    `json:"payment_terms" binding:"omitempty,oneof=IMMEDIATE NET_15 NET_30 NET_60"`
	StartDate      string                    `json:"start_date"`      // YYYY-MM-DD, defaults to today
	ExpirationDate string                    `json:"expiration_date"` // YYYY-MM-DD, optional
	Lines          []SubscriptionLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type UpdateSubscriptionLinesRequest struct {
	Lines []SubscriptionLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type UpdateSubscriptionStatusRequest struct {
	Status             string `json:"status" binding:"required"`
	CancellationReason string `json:"cancellation_reason"`
}

type SubscriptionLineResponse struct {
	ID         string  `json:"id"`
	ProductID  string  `json:"product_id"`
	Quantity   int     `json:"quantity"`
	UnitPrice  string  `json:"unit_price"`
	Subtotal   string  `json:"subtotal"`
	DiscountID *string `json:"discount_id"`
	TaxID      *string `json:"tax_id"`
}

type SubscriptionResponse struct {
	ID                 string                     `json:"id"`
	SubscriptionNo     string                     `json:"subscription_no"`
	CustomerID         string                     `json:"customer_id"`
	PlanID             *string                    `json:"plan_id"`
	Status             string                     `json:"status"`
	PaymentTerms       string                     `json:"payment_terms"`
	StartDate          string                     `json:"start_date"`
	ExpirationDate     *string                    `json:"expiration_date"`
	PausedAt           *string                    `json:"paused_at"`
	ResumedAt          *string                    `json:"resumed_at"`
	CancelledAt        *string                    `json:"cancelled_at"`
	CancellationReason string                     `json:"cancellation_reason,omitempty"`
	UntaxedAmount      string                     `json:"untaxed_amount"`
	TaxAmount          string                     `json:"tax_amount"`
	TotalAmount        string                     `json:"total_amount"`
	Lines              []SubscriptionLineResponse `json:"lines"`
	CreatedAt          string                     `json:"created_at"`
}

// --- Interface ---

type SubscriptionService interface {
	CreateSubscription(ctx context.Context, actor Actor, req CreateSubscriptionRequest) (SubscriptionResponse, error)
	GetSubscription(ctx context.Context, actor Actor, id string) (SubscriptionResponse, error)
	ListSubscriptions(ctx context.Context, actor Actor, status string, page, limit int) ([]SubscriptionResponse, int64, error)
	UpdateLines(ctx context.Context, actor Actor, id string, req UpdateSubscriptionLinesRequest) (SubscriptionResponse, error)
	UpdateStatus(ctx context.Context, actor Actor, id string, req UpdateSubscriptionStatusRequest) (SubscriptionResponse, error)
	Renew(ctx context.Context, actor Actor, id string) (SubscriptionResponse, error)
}

type subscriptionService struct {
	subscriptionRepo repository.SubscriptionRepository
	productRepo      repository.ProductRepository
	discountRepo     repository.DiscountRepository
	taxRepo          repository.TaxRepository
	planRepo         repository.PlanRepository
	sequenceRepo     repository.SequenceRepository
	auditRepo        repository.AuditRepository
	txManager        repository.TransactionManager
	events           BillingEventPublisher
}

func NewSubscriptionService(
	subscriptionRepo repository.SubscriptionRepository,
	productRepo repository.ProductRepository,
	discountRepo repository.DiscountRepository,
	taxRepo repository.TaxRepository,
	planRepo repository.PlanRepository,
	sequenceRepo repository.SequenceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events BillingEventPublisher,
) SubscriptionService {
	return &subscriptionService{
		subscriptionRepo: subscriptionRepo,
		productRepo:      productRepo,
		discountRepo:     discountRepo,
		taxRepo:          taxRepo,
		planRepo:         planRepo,
		sequenceRepo:     sequenceRepo,
		auditRepo:        auditRepo,
		txManager:        txManager,
		events:           events,
	}
}

// --- Implementation ---

func (s *subscriptionService) CreateSubscription(ctx context.Context, actor Actor, req CreateSubscriptionRequest) (SubscriptionResponse, error) {
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return SubscriptionResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid customer_id")
	}

	// Portal users may only open subscriptions for themselves.
	if !actor.IsStaff() && actor.ID != customerID {
		return SubscriptionResponse{}, apperror.New(apperror.KindForbidden, "cannot create a subscription for another customer")
	}

	var planID *uuid.UUID
	if req.PlanID != "" {
		parsed, parseErr := uuid.Parse(req.PlanID)
		if parseErr != nil {
			return SubscriptionResponse{}, apperror.Wrap(apperror.KindValidation, parseErr, "invalid plan_id")
		}
		if _, findErr := s.planRepo.FindByID(ctx, parsed); findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return SubscriptionResponse{}, apperror.New(apperror.KindNotFound, "recurring plan not found")
			}
			return SubscriptionResponse{}, fmt.Errorf("failed to fetch plan: %w", findErr)
		}
		planID = &parsed
	}

	startDate := time.Now().Truncate(24 * time.Hour)
	if req.StartDate != "" {
		parsed, parseErr := time.Parse("2006-01-02", req.StartDate)
		if parseErr != nil {
			return SubscriptionResponse{}, apperror.Wrap(apperror.KindValidation, parseErr, "invalid start_date")
		}
		startDate = parsed
	}

	expirationDate, err := parseOptionalDate(req.ExpirationDate)
	if err != nil {
		return SubscriptionResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid expiration_date")
	}

	paymentTerms := req.PaymentTerms
	if paymentTerms == "" {
		paymentTerms = model.PaymentTermsImmediate
	}

	lines, err := s.buildLines(ctx, req.Lines)
	if err != nil {
		return SubscriptionResponse{}, err
	}

	actorID := actor.ID
	sub := model.Subscription{
		CustomerID:     customerID,
		PlanID:         planID,
		Status:         model.SubscriptionDraft,
		PaymentTerms:   paymentTerms,
		StartDate:      startDate,
		ExpirationDate: expirationDate,
		CreatedBy:      &actorID,
		Lines:          lines,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		number, seqErr := s.sequenceRepo.Next(txCtx, model.SeqSubscription)
		if seqErr != nil {
			return fmt.Errorf("failed to generate subscription number: %w", seqErr)
		}
		sub.SubscriptionNo = number

		if createErr := s.subscriptionRepo.Create(txCtx, &sub); createErr != nil {
			return fmt.Errorf("failed to create subscription: %w", createErr)
		}

		return s.writeAudit(txCtx, actor, model.ActionCreateSubscription, sub.ID.String(), sub.SubscriptionNo, map[string]interface{}{
			"customer_id": sub.CustomerID.String(),
			"lines":       len(sub.Lines),
		})
	})
	if err != nil {
		return SubscriptionResponse{}, err
	}

	return s.reload(ctx, sub.ID)
}

func (s *subscriptionService) GetSubscription(ctx context.Context, actor Actor, id string) (SubscriptionResponse, error) {
	sub, err := s.fetch(ctx, id)
	if err != nil {
		return SubscriptionResponse{}, err
	}
	if !actor.IsStaff() && sub.CustomerID != actor.ID {
		return SubscriptionResponse{}, apperror.New(apperror.KindForbidden, "subscription belongs to another customer")
	}
	return toSubscriptionResponse(*sub), nil
}

func (s *subscriptionService) ListSubscriptions(ctx context.Context, actor Actor, status string, page, limit int) ([]SubscriptionResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	filter := repository.SubscriptionListFilter{Status: status, Page: page, Limit: limit}
	if !actor.IsStaff() {
		customerID := actor.ID
		filter.CustomerID = &customerID
	}

	subs, total, err := s.subscriptionRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch subscriptions: %w", err)
	}

	result := make([]SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		result = append(result, toSubscriptionResponse(sub))
	}
	return result, total, nil
}

// UpdateLines replaces the subscription's lines wholesale. Permitted only
// while the subscription is still DRAFT or QUOTATION.
func (s *subscriptionService) UpdateLines(ctx context.Context, actor Actor, id string, req UpdateSubscriptionLinesRequest) (SubscriptionResponse, error) {
	sub, err := s.fetch(ctx, id)
	if err != nil {
		return SubscriptionResponse{}, err
	}
	if !actor.IsStaff() && sub.CustomerID != actor.ID {
		return SubscriptionResponse{}, apperror.New(apperror.KindForbidden, "subscription belongs to another customer")
	}
	if sub.Status != model.SubscriptionDraft && sub.Status != model.SubscriptionQuotation {
		return SubscriptionResponse{}, apperror.New(apperror.KindInvalidState, "cannot edit lines of a %s subscription", sub.Status)
	}

	lines, err := s.buildLines(ctx, req.Lines)
	if err != nil {
		return SubscriptionResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if replaceErr := s.subscriptionRepo.ReplaceLines(txCtx, sub.ID, lines); replaceErr != nil {
			return fmt.Errorf("failed to replace subscription lines: %w", replaceErr)
		}
		return s.writeAudit(txCtx, actor, model.ActionUpdateSubscription, sub.ID.String(), sub.SubscriptionNo, map[string]interface{}{
			"lines": len(lines),
		})
	})
	if err != nil {
		return SubscriptionResponse{}, err
	}

	return s.reload(ctx, sub.ID)
}

// UpdateStatus drives the subscription state machine. The full table
// applies to staff actors; the subscription's own customer gets the
// restricted portal table. Guards: pausing requires a pausable plan,
// closing requires a closable plan, cancelling requires a reason.
func (s *subscriptionService) UpdateStatus(ctx context.Context, actor Actor, id string, req UpdateSubscriptionStatusRequest) (SubscriptionResponse, error) {
	subID, err := uuid.Parse(id)
	if err != nil {
		return SubscriptionResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid subscription id")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sub, findErr := s.subscriptionRepo.FindByIDWithLines(txCtx, subID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.New(apperror.KindNotFound, "subscription not found")
			}
			return fmt.Errorf("failed to fetch subscription: %w", findErr)
		}

		if !actor.IsStaff() && sub.CustomerID != actor.ID {
			return apperror.New(apperror.KindForbidden, "subscription belongs to another customer")
		}

		target := req.Status
		if !transitionAllowed(subscriptionTransitions, sub.Status, target) {
			return apperror.New(apperror.KindInvalidTransition, "cannot transition subscription from %s to %s", sub.Status, target)
		}
		if !transitionAllowed(subscriptionTableFor(actor), sub.Status, target) {
			return apperror.New(apperror.KindForbidden, "role %s may not transition subscription from %s to %s", actor.Role, sub.Status, target)
		}

		now := time.Now()
		switch target {
		case model.SubscriptionPaused:
			if sub.Plan != nil && !sub.Plan.Pausable {
				return apperror.New(apperror.KindNotPausable, "plan %s does not allow pausing", sub.Plan.Name)
			}
			sub.PausedAt = &now
		case model.SubscriptionClosed:
			if sub.Plan != nil && !sub.Plan.Closable {
				return apperror.New(apperror.KindNotClosable, "plan %s does not allow closing", sub.Plan.Name)
			}
		case model.SubscriptionActive:
			if sub.Status == model.SubscriptionPaused {
				sub.ResumedAt = &now
			}
		case model.SubscriptionCancelled:
			if req.CancellationReason == "" {
				return apperror.New(apperror.KindReasonRequired, "cancellation requires a reason")
			}
			sub.CancellationReason = req.CancellationReason
			sub.CancelledAt = &now
		}

		previous := sub.Status
		sub.Status = target
		if saveErr := s.subscriptionRepo.Save(txCtx, sub); saveErr != nil {
			return fmt.Errorf("failed to update subscription: %w", saveErr)
		}

		return s.writeAudit(txCtx, actor, model.ActionSubscriptionTransition, sub.ID.String(), sub.SubscriptionNo, map[string]interface{}{
			"from": previous,
			"to":   target,
		})
	})
	if err != nil {
		return SubscriptionResponse{}, err
	}

	resp, err := s.reload(ctx, subID)
	if err != nil {
		return SubscriptionResponse{}, err
	}

	if s.events != nil {
		s.events.Publish("subscription.status_changed", map[string]interface{}{
			"subscription_no": resp.SubscriptionNo,
			"status":          resp.Status,
		})
	}

	return resp, nil
}

// Renew creates a fresh DRAFT subscription from a CLOSED or CANCELLED one:
// lines copied verbatim, start set to today, and the original's duration
// preserved when it had an expiration date.
func (s *subscriptionService) Renew(ctx context.Context, actor Actor, id string) (SubscriptionResponse, error) {
	sub, err := s.fetch(ctx, id)
	if err != nil {
		return SubscriptionResponse{}, err
	}
	if !actor.IsStaff() && sub.CustomerID != actor.ID {
		return SubscriptionResponse{}, apperror.New(apperror.KindForbidden, "subscription belongs to another customer")
	}
	if sub.Status != model.SubscriptionClosed && sub.Status != model.SubscriptionCancelled {
		return SubscriptionResponse{}, apperror.New(apperror.KindInvalidState, "only CLOSED or CANCELLED subscriptions can be renewed, not %s", sub.Status)
	}
	if sub.Plan != nil && !sub.Plan.Renewable {
		return SubscriptionResponse{}, apperror.New(apperror.KindNotRenewable, "plan %s does not allow renewal", sub.Plan.Name)
	}

	startDate := time.Now().Truncate(24 * time.Hour)
	var expirationDate *time.Time
	if sub.ExpirationDate != nil {
		duration := sub.ExpirationDate.Sub(sub.StartDate)
		expiry := startDate.Add(duration)
		expirationDate = &expiry
	}

	lines := make([]model.SubscriptionLine, 0, len(sub.Lines))
	for _, line := range sub.Lines {
		lines = append(lines, model.SubscriptionLine{
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			Subtotal:   line.Subtotal,
			DiscountID: line.DiscountID,
			TaxID:      line.TaxID,
		})
	}

	actorID := actor.ID
	renewed := model.Subscription{
		CustomerID:     sub.CustomerID,
		PlanID:         sub.PlanID,
		Status:         model.SubscriptionDraft,
		PaymentTerms:   sub.PaymentTerms,
		StartDate:      startDate,
		ExpirationDate: expirationDate,
		CreatedBy:      &actorID,
		Lines:          lines,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		number, seqErr := s.sequenceRepo.Next(txCtx, model.SeqSubscription)
		if seqErr != nil {
			return fmt.Errorf("failed to generate subscription number: %w", seqErr)
		}
		renewed.SubscriptionNo = number

		if createErr := s.subscriptionRepo.Create(txCtx, &renewed); createErr != nil {
			return fmt.Errorf("failed to create renewed subscription: %w", createErr)
		}

		return s.writeAudit(txCtx, actor, model.ActionRenewSubscription, renewed.ID.String(), renewed.SubscriptionNo, map[string]interface{}{
			"renewed_from": sub.SubscriptionNo,
		})
	})
	if err != nil {
		return SubscriptionResponse{}, err
	}

	return s.reload(ctx, renewed.ID)
}

// --- Helpers ---

func (s *subscriptionService) fetch(ctx context.Context, id string) (*model.Subscription, error) {
	subID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, err, "invalid subscription id")
	}
	sub, err := s.subscriptionRepo.FindByIDWithLines(ctx, subID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(apperror.KindNotFound, "subscription not found")
		}
		return nil, fmt.Errorf("failed to fetch subscription: %w", err)
	}
	return sub, nil
}

func (s *subscriptionService) reload(ctx context.Context, id uuid.UUID) (SubscriptionResponse, error) {
	sub, err := s.subscriptionRepo.FindByIDWithLines(ctx, id)
	if err != nil {
		return SubscriptionResponse{}, fmt.Errorf("failed to reload subscription: %w", err)
	}
	return toSubscriptionResponse(*sub), nil
}

// buildLines validates line requests and snapshots the product price into
// each line. Line subtotal is the pre-discount, pre-tax base.
func (s *subscriptionService) buildLines(ctx context.Context, reqs []SubscriptionLineRequest) ([]model.SubscriptionLine, error) {
	lines := make([]model.SubscriptionLine, 0, len(reqs))
	for _, lr := range reqs {
		productID, err := uuid.Parse(lr.ProductID)
		if err != nil {
			return nil, apperror.Wrap(apperror.KindValidation, err, "invalid product_id")
		}
		if lr.Quantity < 1 {
			return nil, apperror.New(apperror.KindValidation, "quantity must be at least 1")
		}

		product, err := s.productRepo.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.New(apperror.KindNotFound, "product %s not found", lr.ProductID)
			}
			return nil, fmt.Errorf("failed to fetch product: %w", err)
		}

		line := model.SubscriptionLine{
			ProductID: product.ID,
			Quantity:  lr.Quantity,
			UnitPrice: product.SalesPrice,
			Subtotal:  product.SalesPrice.Mul(decimalFromInt(lr.Quantity)),
		}

		if lr.DiscountID != "" {
			discountID, parseErr := uuid.Parse(lr.DiscountID)
			if parseErr != nil {
				return nil, apperror.Wrap(apperror.KindValidation, parseErr, "invalid discount_id")
			}
			if _, findErr := s.discountRepo.FindByID(ctx, discountID); findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return nil, apperror.New(apperror.KindNotFound, "discount %s not found", lr.DiscountID)
				}
				return nil, fmt.Errorf("failed to fetch discount: %w", findErr)
			}
			line.DiscountID = &discountID
		}

		if lr.TaxID != "" {
			taxID, parseErr := uuid.Parse(lr.TaxID)
			if parseErr != nil {
				return nil, apperror.Wrap(apperror.KindValidation, parseErr, "invalid tax_id")
			}
			if _, findErr := s.taxRepo.FindByID(ctx, taxID); findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return nil, apperror.New(apperror.KindNotFound, "tax %s not found", lr.TaxID)
				}
				return nil, fmt.Errorf("failed to fetch tax: %w", findErr)
			}
			line.TaxID = &taxID
		}

		lines = append(lines, line)
	}
	return lines, nil
}

func (s *subscriptionService) writeAudit(ctx context.Context, actor Actor, action, entityID, entityName string, details map[string]interface{}) error {
	return writeAuditEntry(ctx, s.auditRepo, actor, action, entityID, entityName, details)
}

// --- Mapping ---

func toSubscriptionResponse(sub model.Subscription) SubscriptionResponse {
	totals := ComputeSubscriptionTotals(sub.Lines)

	resp := SubscriptionResponse{
		ID:                 sub.ID.String(),
		SubscriptionNo:     sub.SubscriptionNo,
		CustomerID:         sub.CustomerID.String(),
		Status:             sub.Status,
		PaymentTerms:       sub.PaymentTerms,
		StartDate:          sub.StartDate.Format("2006-01-02"),
		CancellationReason: sub.CancellationReason,
		UntaxedAmount:      totals.UntaxedAmount.StringFixed(2),
		TaxAmount:          totals.TaxAmount.StringFixed(2),
		TotalAmount:        totals.TotalAmount.StringFixed(2),
		CreatedAt:          sub.CreatedAt.Format(time.RFC3339),
	}

	if sub.PlanID != nil {
		v := sub.PlanID.String()
		resp.PlanID = &v
	}
	if sub.ExpirationDate != nil {
		v := sub.ExpirationDate.Format("2006-01-02")
		resp.ExpirationDate = &v
	}
	if sub.PausedAt != nil {
		v := sub.PausedAt.Format(time.RFC3339)
		resp.PausedAt = &v
	}
	if sub.ResumedAt != nil {
		v := sub.ResumedAt.Format(time.RFC3339)
		resp.ResumedAt = &v
	}
	if sub.CancelledAt != nil {
		v := sub.CancelledAt.Format(time.RFC3339)
		resp.CancelledAt = &v
	}

	resp.Lines = make([]SubscriptionLineResponse, 0, len(sub.Lines))
	for _, line := range sub.Lines {
		lineResp := SubscriptionLineResponse{
			ID:        line.ID.String(),
			ProductID: line.ProductID.String(),
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
			Subtotal:  line.Subtotal.StringFixed(2),
		}
		if line.DiscountID != nil {
			v := line.DiscountID.String()
			lineResp.DiscountID = &v
		}
		if line.TaxID != nil {
			v := line.TaxID.String()
			lineResp.TaxID = &v
		}
		resp.Lines = append(resp.Lines, lineResp)
	}

	return resp
}
