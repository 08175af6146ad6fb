package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowanceAvailableFreshWallet(t *testing.T) {
	w := &WalletAccount{}
	assert.True(t, w.AllowanceAvailable(time.Now(), 24*time.Hour))
}

func TestAllowanceAvailableWindow(t *testing.T) {
	now := time.Now()

	claimed := now.Add(-2 * time.Hour)
	w := &WalletAccount{LastAllowanceAt: &claimed}
	assert.False(t, w.AllowanceAvailable(now, 24*time.Hour))

	claimed = now.Add(-24 * time.Hour)
	assert.True(t, w.AllowanceAvailable(now, 24*time.Hour))

	claimed = now.Add(-25 * time.Hour)
	assert.True(t, w.AllowanceAvailable(now, 24*time.Hour))
}

func TestGoalRemainingAmount(t *testing.T) {
	goal := &SavingsGoal{TargetAmount: 300, CurrentAmount: 120}
	assert.Equal(t, int64(180), goal.RemainingAmount())

	// 超额存入不会出现负剩余
	goal.CurrentAmount = 350
	assert.Equal(t, int64(0), goal.RemainingAmount())
}

func TestCatalogItemHasStock(t *testing.T) {
	item := &CatalogItem{Stock: 5}
	assert.True(t, item.HasStock(5))
	assert.False(t, item.HasStock(6))

	unlimited := &CatalogItem{Stock: StockUnlimited}
	assert.True(t, unlimited.HasStock(1_000_000))
}
