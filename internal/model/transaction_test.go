package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 从零重放流水必须精确还原余额
func TestReplayBalance(t *testing.T) {
	entries := []*TransactionEntry{
		{Amount: 150, Kind: TransactionKindIncome, BalanceAfter: 150},
		{Amount: -80, Kind: TransactionKindExpense, BalanceAfter: 70},
		{Amount: 50, Kind: TransactionKindIncome, BalanceAfter: 120},
		{Amount: -120, Kind: TransactionKindExpense, BalanceAfter: 0},
	}

	assert.Equal(t, int64(0), ReplayBalance(entries))
	assert.Equal(t, entries[len(entries)-1].BalanceAfter, ReplayBalance(entries))
}

func TestReplayBalanceEmpty(t *testing.T) {
	assert.Equal(t, int64(0), ReplayBalance(nil))
}

func TestMetadataEncodeDecodePurchaseVariant(t *testing.T) {
	meta := &TransactionMetadata{
		Purchase: &PurchaseMetadata{
			Lines: []PurchaseLineMetadata{
				{SKU: "food", Name: "宠物粮", Quantity: 2, UnitPrice: 40},
			},
			Total: 80,
		},
		Extra: map[string]string{"channel": "shop"},
	}

	raw, err := meta.Encode()
	require.NoError(t, err)

	decoded, err := DecodeMetadata(raw)
	require.NoError(t, err)
	require.NotNil(t, decoded.Purchase)
	assert.Equal(t, int64(80), decoded.Purchase.Total)
	assert.Equal(t, "shop", decoded.Extra["channel"])
	// 其它分类的变体保持为空
	assert.Nil(t, decoded.Donation)
	assert.Nil(t, decoded.CareReward)
	assert.Nil(t, decoded.Goal)
}

func TestMetadataEncodeNil(t *testing.T) {
	var meta *TransactionMetadata
	raw, err := meta.Encode()
	require.NoError(t, err)
	assert.Equal(t, "", raw)

	decoded, err := DecodeMetadata("")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}
