package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubscriptionListFilter struct {
	CustomerID *uuid.UUID
	Status     string
	Page       int
	Limit      int
}

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *model.Subscription) error
	Save(ctx context.Context, sub *model.Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Subscription, error)
	FindByIDWithLines(ctx context.Context, id uuid.UUID) (*model.Subscription, error)
	List(ctx context.Context, filter SubscriptionListFilter) ([]model.Subscription, int64, error)
	FindActiveWithPlan(ctx context.Context) ([]model.Subscription, error)
	ReplaceLines(ctx context.Context, subID uuid.UUID, lines []model.SubscriptionLine) error
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	return GetDB(ctx, r.db).Create(sub).Error
}

func (r *subscriptionRepository) Save(ctx context.Context, sub *model.Subscription) error {
	return GetDB(ctx, r.db).Save(sub).Error
}

func (r *subscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription
	if err := GetDB(ctx, r.db).First(&sub, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) FindByIDWithLines(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription
	if err := GetDB(ctx, r.db).
		Preload("Lines").
		Preload("Lines.Product").
		Preload("Lines.Discount").
		Preload("Lines.Tax").
		Preload("Plan").
		Preload("Customer").
		First(&sub, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) List(ctx context.Context, filter SubscriptionListFilter) ([]model.Subscription, int64, error) {
	var subs []model.Subscription
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Subscription{})
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.
		Preload("Lines").
		Preload("Lines.Discount").
		Preload("Lines.Tax").
		Preload("Plan").
		Order("created_at desc").Offset(offset).Limit(filter.Limit).Find(&subs).Error; err != nil {
		return nil, 0, err
	}

	return subs, total, nil
}

// FindActiveWithPlan returns candidates for recurring invoicing: ACTIVE
// subscriptions that carry a recurring plan, lines preloaded.
func (r *subscriptionRepository) FindActiveWithPlan(ctx context.Context) ([]model.Subscription, error) {
	var subs []model.Subscription
	if err := GetDB(ctx, r.db).
		Preload("Lines").
		Preload("Lines.Product").
		Preload("Lines.Discount").
		Preload("Lines.Tax").
		Preload("Plan").
		Where("status = ? AND plan_id IS NOT NULL", model.SubscriptionActive).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// ReplaceLines deletes the subscription's current lines and inserts the new
// set; callers wrap this in a transaction together with the header update.
func (r *subscriptionRepository) ReplaceLines(ctx context.Context, subID uuid.UUID, lines []model.SubscriptionLine) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("subscription_id = ?", subID).Delete(&model.SubscriptionLine{}).Error; err != nil {
		return err
	}
	for i := range lines {
		lines[i].SubscriptionID = subID
		if err := db.Create(&lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
