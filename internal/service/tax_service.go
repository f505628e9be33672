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

type CreateTaxRequest struct {
	Name        string `json:"name" binding:"required"`
	Computation string `json:"computation" binding:"omitempty,oneof=PERCENTAGE FIXED"`
	Amount      string `json:"amount" binding:"required"`
}

type UpdateTaxRequest struct {
	Name     *string `json:"name"`
	Amount   *string `json:"amount"`
	IsActive *bool   `json:"is_active"`
}

type TaxResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Computation string `json:"computation"`
	Amount      string `json:"amount"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
}

type TaxService interface {
	CreateTax(ctx context.Context, req CreateTaxRequest) (TaxResponse, error)
	UpdateTax(ctx context.Context, id string, req UpdateTaxRequest) (TaxResponse, error)
	GetTax(ctx context.Context, id string) (TaxResponse, error)
	ListTaxes(ctx context.Context, page, limit int) ([]TaxResponse, int64, error)
}

type taxService struct {
	taxRepo repository.TaxRepository
}

func NewTaxService(taxRepo repository.TaxRepository) TaxService {
	return &taxService{taxRepo: taxRepo}
}

func (s *taxService) CreateTax(ctx context.Context, req CreateTaxRequest) (TaxResponse, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return TaxResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid amount")
	}
	if amount.IsNegative() {
		return TaxResponse{}, apperror.New(apperror.KindValidation, "amount cannot be negative")
	}

	computation := req.Computation
	if computation == "" {
		computation = model.TaxComputationPercentage
	}

	tax := model.Tax{
		Name:        req.Name,
		Computation: computation,
		Amount:      amount,
		IsActive:    true,
	}

	if err := s.taxRepo.Create(ctx, &tax); err != nil {
		return TaxResponse{}, fmt.Errorf("failed to create tax: %w", err)
	}

	return toTaxResponse(tax), nil
}

func (s *taxService) UpdateTax(ctx context.Context, id string, req UpdateTaxRequest) (TaxResponse, error) {
	taxID, err := uuid.Parse(id)
	if err != nil {
		return TaxResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid tax id")
	}

	tax, err := s.taxRepo.FindByID(ctx, taxID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TaxResponse{}, apperror.New(apperror.KindNotFound, "tax not found")
		}
		return TaxResponse{}, fmt.Errorf("failed to fetch tax: %w", err)
	}

	if req.Name != nil {
		tax.Name = *req.Name
	}
	if req.Amount != nil {
		amount, parseErr := decimal.NewFromString(*req.Amount)
		if parseErr != nil {
			return TaxResponse{}, apperror.Wrap(apperror.KindValidation, parseErr, "invalid amount")
		}
		tax.Amount = amount
	}
	if req.IsActive != nil {
		tax.IsActive = *req.IsActive
	}

	if err := s.taxRepo.Update(ctx, tax); err != nil {
		return TaxResponse{}, fmt.Errorf("failed to update tax: %w", err)
	}

	return toTaxResponse(*tax), nil
}

func (s *taxService) GetTax(ctx context.Context, id string) (TaxResponse, error) {
	taxID, err := uuid.Parse(id)
	if err != nil {
		return TaxResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid tax id")
	}

	tax, err := s.taxRepo.FindByID(ctx, taxID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TaxResponse{}, apperror.New(apperror.KindNotFound, "tax not found")
		}
		return TaxResponse{}, fmt.Errorf("failed to fetch tax: %w", err)
	}

	return toTaxResponse(*tax), nil
}

func (s *taxService) ListTaxes(ctx context.Context, page, limit int) ([]TaxResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	taxes, total, err := s.taxRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch taxes: %w", err)
	}

	result := make([]TaxResponse, 0, len(taxes))
	for _, t := range taxes {
		result = append(result, toTaxResponse(t))
	}
	return result, total, nil
}

func toTaxResponse(t model.Tax) TaxResponse {
	return TaxResponse{
		ID:          t.ID.String(),
		Name:        t.Name,
		Computation: t.Computation,
		Amount:      t.Amount.StringFixed(2),
		IsActive:    t.IsActive,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}
