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

type CreatePlanRequest struct {
	Name            string `json:"name" binding:"required"`
	BillingPeriod   string `json:"billing_period" binding:"required,oneof=DAILY WEEKLY MONTHLY YEARLY"`
	BillingInterval int    `json:"billing_interval" binding:"omitempty,min=1"`
	Pausable        *bool  `json:"pausable"`
	Renewable       *bool  `json:"renewable"`
	Closable        *bool  `json:"closable"`
	AutoClose       bool   `json:"auto_close"`
}

type UpdatePlanRequest struct {
	Name      *string `json:"name"`
	Pausable  *bool   `json:"pausable"`
	Renewable *bool   `json:"renewable"`
	Closable  *bool   `json:"closable"`
	AutoClose *bool   `json:"auto_close"`
}

type PlanResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	BillingPeriod   string `json:"billing_period"`
	BillingInterval int    `json:"billing_interval"`
	Pausable        bool   `json:"pausable"`
	Renewable       bool   `json:"renewable"`
	Closable        bool   `json:"closable"`
	AutoClose       bool   `json:"auto_close"`
	CreatedAt       string `json:"created_at"`
}

type PlanService interface {
	CreatePlan(ctx context.Context, req CreatePlanRequest) (PlanResponse, error)
	UpdatePlan(ctx context.Context, id string, req UpdatePlanRequest) (PlanResponse, error)
	GetPlan(ctx context.Context, id string) (PlanResponse, error)
	ListPlans(ctx context.Context, page, limit int) ([]PlanResponse, int64, error)
}

type planService struct {
	planRepo repository.PlanRepository
}

func NewPlanService(planRepo repository.PlanRepository) PlanService {
	return &planService{planRepo: planRepo}
}

func (s *planService) CreatePlan(ctx context.Context, req CreatePlanRequest) (PlanResponse, error) {
	interval := req.BillingInterval
	if interval <= 0 {
		interval = 1
	}

	// Lifecycle capabilities default to enabled unless explicitly turned off.
	plan := model.RecurringPlan{
		Name:            req.Name,
		BillingPeriod:   req.BillingPeriod,
		BillingInterval: interval,
		Pausable:        req.Pausable == nil || *req.Pausable,
		Renewable:       req.Renewable == nil || *req.Renewable,
		Closable:        req.Closable == nil || *req.Closable,
		AutoClose:       req.AutoClose,
	}

	if err := s.planRepo.Create(ctx, &plan); err != nil {
		return PlanResponse{}, fmt.Errorf("failed to create plan: %w", err)
	}

	return toPlanResponse(plan), nil
}

func (s *planService) UpdatePlan(ctx context.Context, id string, req UpdatePlanRequest) (PlanResponse, error) {
	planID, err := uuid.Parse(id)
	if err != nil {
		return PlanResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid plan id")
	}

	plan, err := s.planRepo.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PlanResponse{}, apperror.New(apperror.KindNotFound, "plan not found")
		}
		return PlanResponse{}, fmt.Errorf("failed to fetch plan: %w", err)
	}

	if req.Name != nil {
		plan.Name = *req.Name
	}
	if req.Pausable != nil {
		plan.Pausable = *req.Pausable
	}
	if req.Renewable != nil {
		plan.Renewable = *req.Renewable
	}
	if req.Closable != nil {
		plan.Closable = *req.Closable
	}
	if req.AutoClose != nil {
		plan.AutoClose = *req.AutoClose
	}

	if err := s.planRepo.Update(ctx, plan); err != nil {
		return PlanResponse{}, fmt.Errorf("failed to update plan: %w", err)
	}

	return toPlanResponse(*plan), nil
}

func (s *planService) GetPlan(ctx context.Context, id string) (PlanResponse, error) {
	planID, err := uuid.Parse(id)
	if err != nil {
		return PlanResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid plan id")
	}

	plan, err := s.planRepo.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PlanResponse{}, apperror.New(apperror.KindNotFound, "plan not found")
		}
		return PlanResponse{}, fmt.Errorf("failed to fetch plan: %w", err)
	}

	return toPlanResponse(*plan), nil
}

func (s *planService) ListPlans(ctx context.Context, page, limit int) ([]PlanResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	plans, total, err := s.planRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch plans: %w", err)
	}

	result := make([]PlanResponse, 0, len(plans))
	for _, p := range plans {
		result = append(result, toPlanResponse(p))
	}
	return result, total, nil
}

func toPlanResponse(p model.RecurringPlan) PlanResponse {
	return PlanResponse{
		ID:              p.ID.String(),
		Name:            p.Name,
		BillingPeriod:   p.BillingPeriod,
		BillingInterval: p.BillingInterval,
		Pausable:        p.Pausable,
		Renewable:       p.Renewable,
		Closable:        p.Closable,
		AutoClose:       p.AutoClose,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
	}
}
