package repository

import (
	"context"
	"fmt"

	"backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenceRepository hands out document numbers (SUB-000001, INV-000001,
// ...). Next must be called inside the transaction that persists the
// document so a rolled-back operation does not burn writes visible to
// readers; gaps from rollbacks are tolerated.
type SequenceRepository interface {
	Next(ctx context.Context, docType string) (string, error)
}

type sequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

func (r *sequenceRepository) Next(ctx context.Context, docType string) (string, error) {
	db := GetDB(ctx, r.db)

	// Ensure the counter row exists, then increment atomically.
	seq := model.DocumentSequence{DocType: docType}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seq).Error; err != nil {
		return "", err
	}

	if err := db.Model(&model.DocumentSequence{}).
		Where("doc_type = ?", docType).
		UpdateColumn("current_value", gorm.Expr("current_value + 1")).Error; err != nil {
		return "", err
	}

	var updated model.DocumentSequence
	if err := db.First(&updated, "doc_type = ?", docType).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%06d", docType, updated.CurrentValue), nil
}
