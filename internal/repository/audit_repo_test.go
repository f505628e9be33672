package repository

import (
	"context"
	"testing"

	"backend/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openAuditTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.AuditLog{}))
	return db
}

func TestAuditRepository_ListFilters(t *testing.T) {
	db := openAuditTestDB(t)
	repo := NewAuditRepository(db)
	ctx := context.Background()

	entries := []model.AuditLog{
		{Action: model.ActionGenerateInvoice, EntityID: "inv-1", EntityName: "INV-000001"},
		{Action: model.ActionRecordPayment, EntityID: "pay-1", EntityName: "PAY-000001"},
		{Action: model.ActionGenerateInvoice, EntityID: "inv-2", EntityName: "INV-000002"},
	}
	for i := range entries {
		require.NoError(t, repo.Log(ctx, &entries[i]))
	}

	all, total, err := repo.List(ctx, AuditListFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, all, 3)

	invoices, total, err := repo.List(ctx, AuditListFilter{Action: model.ActionGenerateInvoice, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, invoices, 2)
	for _, entry := range invoices {
		require.Equal(t, model.ActionGenerateInvoice, entry.Action)
	}

	one, total, err := repo.List(ctx, AuditListFilter{EntityID: "pay-1", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, one, 1)
	require.Equal(t, model.ActionRecordPayment, one[0].Action)
}

func TestAuditRepository_ListPaginates(t *testing.T) {
	db := openAuditTestDB(t)
	repo := NewAuditRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Log(ctx, &model.AuditLog{
			Action:   model.ActionCreateOrder,
			EntityID: "order",
		}))
	}

	page, total, err := repo.List(ctx, AuditListFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Len(t, page, 2)
}
