package service

import (
	"testing"

	"petledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogFixture() map[string]*model.CatalogItem {
	return map[string]*model.CatalogItem{
		"food":    {SKU: "food", Name: "宠物粮", Price: 40, Stock: 20, Active: true},
		"toy":     {SKU: "toy", Name: "玩具球", Price: 25, Stock: 2, Active: true},
		"hat":     {SKU: "hat", Name: "小帽子", Price: 100, Stock: model.StockUnlimited, Active: true},
		"retired": {SKU: "retired", Name: "下架商品", Price: 10, Stock: 50, Active: false},
	}
}

func TestResolveBasketTotal(t *testing.T) {
	resolved, err := resolveBasket([]BasketLine{
		{SKU: "food", Quantity: 2},
		{SKU: "toy", Quantity: 1},
	}, catalogFixture())

	require.NoError(t, err)
	assert.Equal(t, int64(40*2+25), resolved.Total)
	assert.Len(t, resolved.Lines, 2)
	assert.Nil(t, resolved.singleSKU())
}

func TestResolveBasketSingleSKU(t *testing.T) {
	resolved, err := resolveBasket([]BasketLine{{SKU: "food", Quantity: 2}}, catalogFixture())

	require.NoError(t, err)
	require.NotNil(t, resolved.singleSKU())
	assert.Equal(t, "food", *resolved.singleSKU())
}

func TestResolveBasketUnknownSKU(t *testing.T) {
	_, err := resolveBasket([]BasketLine{
		{SKU: "food", Quantity: 1},
		{SKU: "ghost", Quantity: 1},
	}, catalogFixture())

	assert.ErrorIs(t, err, ErrItemsNotFound)
}

func TestResolveBasketInsufficientStock(t *testing.T) {
	_, err := resolveBasket([]BasketLine{{SKU: "toy", Quantity: 3}}, catalogFixture())
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestResolveBasketInactiveItem(t *testing.T) {
	_, err := resolveBasket([]BasketLine{{SKU: "retired", Quantity: 1}}, catalogFixture())
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestResolveBasketUnlimitedStock(t *testing.T) {
	resolved, err := resolveBasket([]BasketLine{{SKU: "hat", Quantity: 9999}}, catalogFixture())

	require.NoError(t, err)
	assert.Equal(t, int64(100*9999), resolved.Total)
}

// 未知商品的优先级高于库存问题：整篮作废时报 ItemsNotFound
func TestResolveBasketFailurePriorityNotFoundFirst(t *testing.T) {
	_, err := resolveBasket([]BasketLine{
		{SKU: "toy", Quantity: 999},
		{SKU: "ghost", Quantity: 1},
	}, catalogFixture())

	assert.ErrorIs(t, err, ErrItemsNotFound)
}

func TestNormalizeBasketMergesDuplicates(t *testing.T) {
	merged := normalizeBasket([]BasketLine{
		{SKU: "food", Quantity: 1},
		{SKU: "toy", Quantity: 2},
		{SKU: "food", Quantity: 3},
	})

	require.Len(t, merged, 2)
	assert.Equal(t, "food", merged[0].SKU)
	assert.Equal(t, int64(4), merged[0].Quantity)
	assert.Equal(t, "toy", merged[1].SKU)
}

func TestResolveBasketEmpty(t *testing.T) {
	_, err := resolveBasket(nil, catalogFixture())
	assert.ErrorIs(t, err, errEmptyBasket)
}

func TestBasketMetadataItemized(t *testing.T) {
	resolved, err := resolveBasket([]BasketLine{
		{SKU: "food", Quantity: 2},
		{SKU: "toy", Quantity: 1},
	}, catalogFixture())
	require.NoError(t, err)

	meta := resolved.metadata()
	assert.Equal(t, resolved.Total, meta.Total)
	require.Len(t, meta.Lines, 2)
	assert.Equal(t, int64(40), meta.Lines[0].UnitPrice)
	assert.Equal(t, int64(2), meta.Lines[0].Quantity)
}
