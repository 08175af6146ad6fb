package repository

import (
	"context"

	"petledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// AddQuantity 持有记录 upsert：不存在则创建，存在则累加数量
func (r *InventoryRepository) AddQuantity(ctx context.Context, tx *gorm.DB, walletID, ownerID int64, sku string, qty int64) error {
	record := &model.InventoryRecord{
		WalletID: walletID,
		OwnerID:  ownerID,
		SKU:      sku,
		Quantity: qty,
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "wallet_id"}, {Name: "sku"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity": gorm.Expr("quantity + ?", qty),
			}),
		}).
		Create(record).Error
}

// ListByWallet 用户持有的全部物品
func (r *InventoryRepository) ListByWallet(ctx context.Context, walletID int64) ([]*model.InventoryRecord, error) {
	var records []*model.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("sku ASC").
		Find(&records).Error
	return records, err
}
