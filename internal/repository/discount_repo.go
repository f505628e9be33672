package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DiscountRepository interface {
	Create(ctx context.Context, discount *model.Discount) error
	Update(ctx context.Context, discount *model.Discount) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Discount, error)
	FindByCode(ctx context.Context, code string) (*model.Discount, error)
	List(ctx context.Context, page, limit int, activeOnly bool) ([]model.Discount, int64, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error)
}

type discountRepository struct {
	db *gorm.DB
}

func NewDiscountRepository(db *gorm.DB) DiscountRepository {
	return &discountRepository{db: db}
}

func (r *discountRepository) Create(ctx context.Context, discount *model.Discount) error {
	return GetDB(ctx, r.db).Create(discount).Error
}

func (r *discountRepository) Update(ctx context.Context, discount *model.Discount) error {
	return GetDB(ctx, r.db).Save(discount).Error
}

func (r *discountRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Discount, error) {
	var discount model.Discount
	if err := GetDB(ctx, r.db).First(&discount, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &discount, nil
}

// FindByCode resolves a discount by case-insensitive code match.
func (r *discountRepository) FindByCode(ctx context.Context, code string) (*model.Discount, error) {
	var discount model.Discount
	if err := GetDB(ctx, r.db).First(&discount, "LOWER(code) = LOWER(?)", code).Error; err != nil {
		return nil, err
	}
	return &discount, nil
}

func (r *discountRepository) List(ctx context.Context, page, limit int, activeOnly bool) ([]model.Discount, int64, error) {
	var discounts []model.Discount
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Discount{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&discounts).Error; err != nil {
		return nil, 0, err
	}

	return discounts, total, nil
}

// IncrementUsage bumps usage_count by one, with the limit check folded into
// the UPDATE itself so concurrent consumers cannot both slip past the limit.
// Returns false when the limit had already been reached.
func (r *discountRepository) IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	result := GetDB(ctx, r.db).Model(&model.Discount{}).
		Where("id = ? AND (limit_usage IS NULL OR usage_count < limit_usage)", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
