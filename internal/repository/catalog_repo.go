package repository

import (
	"context"
	"errors"

	"petledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrItemNotFound   = errors.New("商品不存在")
	ErrStockNotEnough = errors.New("商品库存不足或已下架")
)

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Upsert 按 SKU 创建或更新商品定义（运营接口用）
func (r *CatalogRepository) Upsert(ctx context.Context, item *model.CatalogItem) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "category", "price", "stock", "active",
			}),
		}).
		Create(item).Error
}

func (r *CatalogRepository) GetBySKU(ctx context.Context, sku string) (*model.CatalogItem, error) {
	var item model.CatalogItem
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GetBySKUs 批量解析购物篮里的 SKU，按 SKU 建索引返回
func (r *CatalogRepository) GetBySKUs(ctx context.Context, skus []string) (map[string]*model.CatalogItem, error) {
	var items []*model.CatalogItem
	err := r.db.WithContext(ctx).Where("sku IN ?", skus).Find(&items).Error
	if err != nil {
		return nil, err
	}
	result := make(map[string]*model.CatalogItem, len(items))
	for _, item := range items {
		result[item.SKU] = item
	}
	return result, nil
}

func (r *CatalogRepository) ListActive(ctx context.Context) ([]*model.CatalogItem, error) {
	var items []*model.CatalogItem
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("category ASC, sku ASC").
		Find(&items).Error
	return items, err
}

// DecrementStock 条件扣减库存
//
// 【关键点】库存校验和扣减在同一条 UPDATE 里完成：
// 只有上架且库存足够（或无限库存）才会命中；无限库存（-1）保持不变。
// RowsAffected == 0 说明提交时发现库存竞争，由调用方回滚整个事务
func (r *CatalogRepository) DecrementStock(ctx context.Context, tx *gorm.DB, sku string, qty int64) error {
	result := tx.WithContext(ctx).
		Model(&model.CatalogItem{}).
		Where("sku = ? AND active = ? AND (stock = ? OR stock >= ?)",
			sku, true, model.StockUnlimited, qty).
		Update("stock", gorm.Expr("CASE WHEN stock = ? THEN stock ELSE stock - ? END",
			model.StockUnlimited, qty))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStockNotEnough
	}
	return nil
}
