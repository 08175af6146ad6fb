package model

import (
	"time"
)

// StockUnlimited 库存无限的哨兵值
const StockUnlimited = -1

// CatalogItem 商品表
// 读多写少：只有购买会扣减库存，定义本身由运营接口维护
type CatalogItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SKU       string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"sku"`
	Name      string    `gorm:"type:varchar(64);not null" json:"name"`
	Category  string    `gorm:"type:varchar(32);index;not null" json:"category"`
	Price     int64     `gorm:"not null" json:"price"`              // 单价（>= 0）
	Stock     int64     `gorm:"not null;default:0" json:"stock"`    // 库存，-1 表示无限
	Active    bool      `gorm:"not null;default:true" json:"active"` // 下架后不可购买
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CatalogItem) TableName() string {
	return "catalog_item"
}

// HasStock 判断库存是否满足数量要求
func (i *CatalogItem) HasStock(qty int64) bool {
	return i.Stock == StockUnlimited || i.Stock >= qty
}

// InventoryRecord 用户持有表
// (wallet_id, sku) 唯一，购买时创建或累加数量
type InventoryRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	WalletID  int64     `gorm:"uniqueIndex:uk_wallet_sku;not null" json:"wallet_id"`
	OwnerID   int64     `gorm:"index;not null" json:"owner_id"`
	SKU       string    `gorm:"type:varchar(64);uniqueIndex:uk_wallet_sku;not null" json:"sku"`
	Quantity  int64     `gorm:"not null;default:0" json:"quantity"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (InventoryRecord) TableName() string {
	return "inventory_record"
}
