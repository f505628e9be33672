package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PlanRepository interface {
	Create(ctx context.Context, plan *model.RecurringPlan) error
	Update(ctx context.Context, plan *model.RecurringPlan) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.RecurringPlan, error)
	List(ctx context.Context, page, limit int) ([]model.RecurringPlan, int64, error)
}

type planRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) Create(ctx context.Context, plan *model.RecurringPlan) error {
	return GetDB(ctx, r.db).Create(plan).Error
}

func (r *planRepository) Update(ctx context.Context, plan *model.RecurringPlan) error {
	return GetDB(ctx, r.db).Save(plan).Error
}

func (r *planRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.RecurringPlan, error) {
	var plan model.RecurringPlan
	if err := GetDB(ctx, r.db).First(&plan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) List(ctx context.Context, page, limit int) ([]model.RecurringPlan, int64, error) {
	var plans []model.RecurringPlan
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.RecurringPlan{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&plans).Error; err != nil {
		return nil, 0, err
	}

	return plans, total, nil
}
