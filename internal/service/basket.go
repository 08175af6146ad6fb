package service

import (
	"errors"

	"petledger/internal/model"
)

// BasketLine 购物篮中的一行
type BasketLine struct {
	SKU      string `json:"sku" binding:"required"`
	Quantity int64  `json:"qty" binding:"required,gt=0"`
}

var errEmptyBasket = errors.New("购物篮不能为空")

type resolvedLine struct {
	Item     *model.CatalogItem
	Quantity int64
}

type resolvedBasket struct {
	Lines []*resolvedLine
	Total int64
}

// singleSKU 购物篮恰好只有一种商品时返回其 SKU
func (b *resolvedBasket) singleSKU() *string {
	if len(b.Lines) != 1 {
		return nil
	}
	sku := b.Lines[0].Item.SKU
	return &sku
}

func (b *resolvedBasket) metadata() *model.PurchaseMetadata {
	meta := &model.PurchaseMetadata{Total: b.Total}
	for _, line := range b.Lines {
		meta.Lines = append(meta.Lines, model.PurchaseLineMetadata{
			SKU:       line.Item.SKU,
			Name:      line.Item.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.Item.Price,
		})
	}
	return meta
}

// normalizeBasket 合并重复 SKU 的行，保持首次出现的顺序
func normalizeBasket(basket []BasketLine) []BasketLine {
	index := make(map[string]int, len(basket))
	merged := make([]BasketLine, 0, len(basket))
	for _, line := range basket {
		if i, ok := index[line.SKU]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.SKU] = len(merged)
		merged = append(merged, line)
	}
	return merged
}

// resolveBasket 校验购物篮并计算总价
//
// 【关键点】失败优先级是确定的：
// 1. 任何一个 SKU 不存在 -> ErrItemsNotFound，整篮作废
// 2. 任何一行下架或库存不足 -> ErrInsufficientStock，整篮作废
// 余额校验由调用方在这之后做 —— 即使余额同样不足，也先报库存问题
func resolveBasket(basket []BasketLine, items map[string]*model.CatalogItem) (*resolvedBasket, error) {
	if len(basket) == 0 {
		return nil, errEmptyBasket
	}

	for _, line := range basket {
		if _, ok := items[line.SKU]; !ok {
			return nil, ErrItemsNotFound
		}
	}

	result := &resolvedBasket{}
	for _, line := range basket {
		item := items[line.SKU]
		if !item.Active || !item.HasStock(line.Quantity) {
			return nil, ErrInsufficientStock
		}
		result.Lines = append(result.Lines, &resolvedLine{Item: item, Quantity: line.Quantity})
		result.Total += item.Price * line.Quantity
	}

	return result, nil
}
