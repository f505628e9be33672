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

type CreateDiscountRequest struct {
	Name        string `json:"name" binding:"required"`
	Code        string `json:"code" binding:"required"`
	Type        string `json:"type" binding:"required,oneof=PERCENTAGE FIXED"`
	Value       string `json:"value" binding:"required"`
	MinPurchase string `json:"min_purchase"`
	MinQuantity int    `json:"min_quantity"`
	StartDate   string `json:"start_date"` // YYYY-MM-DD
	EndDate     string `json:"end_date"`   // YYYY-MM-DD
	LimitUsage  *int   `json:"limit_usage"`
	AppliesTo   string `json:"applies_to"`
}

type UpdateDiscountRequest struct {
	Name        *string `json:"name"`
	MinPurchase *string `json:"min_purchase"`
	MinQuantity *int    `json:"min_quantity"`
	EndDate     *string `json:"end_date"`
	LimitUsage  *int    `json:"limit_usage"`
	IsActive    *bool   `json:"is_active"`
}

type DiscountResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	Type        string  `json:"type"`
	Value       string  `json:"value"`
	MinPurchase string  `json:"min_purchase"`
	MinQuantity int     `json:"min_quantity"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	LimitUsage  *int    `json:"limit_usage"`
	UsageCount  int     `json:"usage_count"`
	AppliesTo   string  `json:"applies_to"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
}

// Evaluation is the outcome of checking a discount against a purchase
// context. Amount is only meaningful when Valid is true.
type Evaluation struct {
	Valid  bool            `json:"valid"`
	Reason string          `json:"reason,omitempty"`
	Amount decimal.Decimal `json:"discount_amount"`
}

// --- Interface ---

type DiscountService interface {
	CreateDiscount(ctx context.Context, req CreateDiscountRequest) (DiscountResponse, error)
	UpdateDiscount(ctx context.Context, id string, req UpdateDiscountRequest) (DiscountResponse, error)
	GetDiscount(ctx context.Context, id string) (DiscountResponse, error)
	ListDiscounts(ctx context.Context, page, limit int, activeOnly bool) ([]DiscountResponse, int64, error)
	EvaluateByCode(ctx context.Context, code string, subtotal decimal.Decimal, quantity int, now time.Time) (*model.Discount, Evaluation, error)
}

type discountService struct {
	discountRepo repository.DiscountRepository
}

func NewDiscountService(discountRepo repository.DiscountRepository) DiscountService {
	return &discountService{discountRepo: discountRepo}
}

// --- Evaluation ---

// Evaluate runs the ordered applicability checks against a purchase
// context, short-circuiting on the first failure. It never mutates the
// discount; usage counters are only incremented when a document actually
// applies the discount.
func Evaluate(d *model.Discount, subtotal decimal.Decimal, quantity int, now time.Time) Evaluation {
	if d == nil || !d.IsActive {
		return Evaluation{Valid: false, Reason: "Discount is not active"}
	}
	if d.StartDate != nil && d.StartDate.After(now) {
		return Evaluation{Valid: false, Reason: "Discount has not started yet"}
	}
	if d.EndDate != nil && d.EndDate.Before(now) {
		return Evaluation{Valid: false, Reason: "Discount has expired"}
	}
	if d.LimitUsage != nil && d.UsageCount >= *d.LimitUsage {
		return Evaluation{Valid: false, Reason: "Discount usage limit reached"}
	}
	if subtotal.LessThan(d.MinPurchase) {
		return Evaluation{Valid: false, Reason: fmt.Sprintf("Minimum purchase of %s not met", d.MinPurchase.StringFixed(2))}
	}
	if quantity < d.MinQuantity {
		return Evaluation{Valid: false, Reason: fmt.Sprintf("Minimum quantity of %d not met", d.MinQuantity)}
	}

	return Evaluation{Valid: true, Amount: discountAmount(subtotal, DiscountSpec{Type: d.Type, Value: d.Value})}
}

// EvaluateByCode resolves a discount by case-insensitive code and runs
// Evaluate. A missing or inactive code reports "Invalid discount code"
// without running further checks.
func (s *discountService) EvaluateByCode(ctx context.Context, code string, subtotal decimal.Decimal, quantity int, now time.Time) (*model.Discount, Evaluation, error) {
	discount, err := s.discountRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Evaluation{Valid: false, Reason: "Invalid discount code"}, nil
		}
		return nil, Evaluation{}, fmt.Errorf("failed to look up discount code: %w", err)
	}
	if !discount.IsActive {
		return nil, Evaluation{Valid: false, Reason: "Invalid discount code"}, nil
	}

	return discount, Evaluate(discount, subtotal, quantity, now), nil
}

// --- CRUD ---

func (s *discountService) CreateDiscount(ctx context.Context, req CreateDiscountRequest) (DiscountResponse, error) {
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		return DiscountResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid value")
	}

	minPurchase := decimal.Zero
	if req.MinPurchase != "" {
		minPurchase, err = decimal.NewFromString(req.MinPurchase)
		if err != nil {
			return DiscountResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid min_purchase")
		}
	}

	startDate, err := parseOptionalDate(req.StartDate)
	if err != nil {
		return DiscountResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid start_date")
	}
	endDate, err := parseOptionalDate(req.EndDate)
	if err != nil {
		return DiscountResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid end_date")
	}

	appliesTo := req.AppliesTo
	if appliesTo == "" {
		appliesTo = model.DiscountAppliesAll
	}

	discount := model.Discount{
		Name:        req.Name,
		Code:        req.Code,
		Type:        req.Type,
		Value:       value,
		MinPurchase: minPurchase,
		MinQuantity: req.MinQuantity,
		StartDate:   startDate,
		EndDate:     endDate,
		LimitUsage:  req.LimitUsage,
		AppliesTo:   appliesTo,
		IsActive:    true,
	}

	if err := s.discountRepo.Create(ctx, &discount); err != nil {
		return DiscountResponse{}, fmt.Errorf("failed to create discount: %w", err)
	}

	return toDiscountResponse(discount), nil
}

func (s *discountService) UpdateDiscount(ctx context.Context, id string, req UpdateDiscountRequest) (DiscountResponse, error) {
	discountID, err := uuid.Parse(id)
	if err != nil {
		return DiscountResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid discount id")
	}

	discount, err := s.discountRepo.FindByID(ctx, discountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DiscountResponse{}, apperror.New(apperror.KindNotFound, "discount not found")
		}
		return DiscountResponse{}, fmt.Errorf("failed to fetch discount: %w", err)
	}

	if req.Name != nil {
		discount.Name = *req.Name
	}
	if req.MinPurchase != nil {
		minPurchase, parseErr := decimal.NewFromString(*req.MinPurchase)
		if parseErr != nil {
			return DiscountResponse{}, apperror.Wrap(apperror.KindValidation, parseErr, "invalid min_purchase")
		}
		discount.MinPurchase = minPurchase
	}
	if req.MinQuantity != nil {
		discount.MinQuantity = *req.MinQuantity
	}
	if req.EndDate != nil {
		endDate, parseErr := parseOptionalDate(*req.EndDate)
		if parseErr != nil {
			return DiscountResponse{}, apperror.Wrap(apperror.KindValidation, parseErr, "invalid end_date")
		}
		discount.EndDate = endDate
	}
	if req.LimitUsage != nil {
		discount.LimitUsage = req.LimitUsage
	}
	if req.IsActive != nil {
		discount.IsActive = *req.IsActive
	}

	if err := s.discountRepo.Update(ctx, discount); err != nil {
		return DiscountResponse{}, fmt.Errorf("failed to update discount: %w", err)
	}

	return toDiscountResponse(*discount), nil
}

func (s *discountService) GetDiscount(ctx context.Context, id string) (DiscountResponse, error) {
	discountID, err := uuid.Parse(id)
	if err != nil {
		return DiscountResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid discount id")
	}

	discount, err := s.discountRepo.FindByID(ctx, discountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DiscountResponse{}, apperror.New(apperror.KindNotFound, "discount not found")
		}
		return DiscountResponse{}, fmt.Errorf("failed to fetch discount: %w", err)
	}

	return toDiscountResponse(*discount), nil
}

func (s *discountService) ListDiscounts(ctx context.Context, page, limit int, activeOnly bool) ([]DiscountResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	discounts, total, err := s.discountRepo.List(ctx, page, limit, activeOnly)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch discounts: %w", err)
	}

	result := make([]DiscountResponse, 0, len(discounts))
	for _, d := range discounts {
		result = append(result, toDiscountResponse(d))
	}
	return result, total, nil
}

// --- Helpers ---

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func toDiscountResponse(d model.Discount) DiscountResponse {
	resp := DiscountResponse{
		ID:          d.ID.String(),
		Name:        d.Name,
		Code:        d.Code,
		Type:        d.Type,
		Value:       d.Value.StringFixed(2),
		MinPurchase: d.MinPurchase.StringFixed(2),
		MinQuantity: d.MinQuantity,
		LimitUsage:  d.LimitUsage,
		UsageCount:  d.UsageCount,
		AppliesTo:   d.AppliesTo,
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt.Format(time.RFC3339),
	}
	if d.StartDate != nil {
		s := d.StartDate.Format("2006-01-02")
		resp.StartDate = &s
	}
	if d.EndDate != nil {
		s := d.EndDate.Format("2006-01-02")
		resp.EndDate = &s
	}
	return resp
}
