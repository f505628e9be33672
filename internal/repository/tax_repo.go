package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaxRepository interface {
	Create(ctx context.Context, tax *model.Tax) error
	Update(ctx context.Context, tax *model.Tax) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Tax, error)
	List(ctx context.Context, page, limit int) ([]model.Tax, int64, error)
}

type taxRepository struct {
	db *gorm.DB
}

func NewTaxRepository(db *gorm.DB) TaxRepository {
	return &taxRepository{db: db}
}

func (r *taxRepository) Create(ctx context.Context, tax *model.Tax) error {
	return GetDB(ctx, r.db).Create(tax).Error
}

func (r *taxRepository) Update(ctx context.Context, tax *model.Tax) error {
	return GetDB(ctx, r.db).Save(tax).Error
}

func (r *taxRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Tax, error) {
	var tax model.Tax
	if err := GetDB(ctx, r.db).First(&tax, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tax, nil
}

func (r *taxRepository) List(ctx context.Context, page, limit int) ([]model.Tax, int64, error) {
	var taxes []model.Tax
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Tax{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&taxes).Error; err != nil {
		return nil, 0, err
	}

	return taxes, total, nil
}
