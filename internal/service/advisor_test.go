package service

import (
	"testing"
	"time"

	"petledger/internal/model"

	"github.com/stretchr/testify/assert"
)

func walletWithBalance(balance int64) *model.WalletAccount {
	return &model.WalletAccount{ID: 1, OwnerID: 100, Balance: balance}
}

func expenseEntry(amount int64) *model.TransactionEntry {
	return &model.TransactionEntry{
		Amount: -amount,
		Kind:   model.TransactionKindExpense,
	}
}

func TestBuildAdviceLowBalanceWarning(t *testing.T) {
	advice := BuildAdvice(walletWithBalance(15), nil, nil, 20)

	assert.Len(t, advice.Warnings, 1)
	assert.Contains(t, advice.Warnings[0], "15")
	assert.NotEmpty(t, advice.Recommendations)
}

func TestBuildAdviceNoWarningAtThreshold(t *testing.T) {
	advice := BuildAdvice(walletWithBalance(20), nil, nil, 20)

	assert.Empty(t, advice.Warnings)
	// 没有针对性建议时必须有通用提示
	assert.NotEmpty(t, advice.Recommendations)
}

func TestBuildAdviceSpendingPaceWarning(t *testing.T) {
	expenses := []*model.TransactionEntry{
		expenseEntry(50), expenseEntry(40), expenseEntry(30),
	}

	// 最近三笔支出 120 > 余额 100
	advice := BuildAdvice(walletWithBalance(100), nil, expenses, 20)
	assert.Len(t, advice.Warnings, 1)

	// 余额足够时不预警
	advice = BuildAdvice(walletWithBalance(200), nil, expenses, 20)
	assert.Empty(t, advice.Warnings)
}

func TestBuildAdviceSpendingPaceNeedsThreeExpenses(t *testing.T) {
	expenses := []*model.TransactionEntry{expenseEntry(500), expenseEntry(500)}

	advice := BuildAdvice(walletWithBalance(100), nil, expenses, 20)
	assert.Empty(t, advice.Warnings)
}

func TestBuildAdviceGoalNearCompletion(t *testing.T) {
	goals := []*model.SavingsGoal{
		{ID: 1, Name: "新滑板", TargetAmount: 300, CurrentAmount: 260, Status: model.GoalStatusActive},
	}

	// 剩余 40 <= max(10, 300*20%)=60
	advice := BuildAdvice(walletWithBalance(100), goals, nil, 20)
	assert.Len(t, advice.Notifications, 1)
	assert.Contains(t, advice.Notifications[0], "新滑板")
}

func TestBuildAdviceSmallGoalUsesFloorThreshold(t *testing.T) {
	goals := []*model.SavingsGoal{
		{ID: 1, Name: "小目标", TargetAmount: 20, CurrentAmount: 11, Status: model.GoalStatusActive},
	}

	// 目标的20%只有4，但阈值下限是10：剩余 9 <= 10 触发提醒
	advice := BuildAdvice(walletWithBalance(100), goals, nil, 20)
	assert.Len(t, advice.Notifications, 1)
}

func TestBuildAdviceCompletedGoalNotificationRefires(t *testing.T) {
	now := time.Now()
	goals := []*model.SavingsGoal{
		{ID: 1, Name: "已完成", TargetAmount: 100, CurrentAmount: 100, Status: model.GoalStatusCompleted, CompletedAt: &now},
	}

	// 祝贺通知每次计算都会重新出现
	for i := 0; i < 2; i++ {
		advice := BuildAdvice(walletWithBalance(100), goals, nil, 20)
		assert.Len(t, advice.Notifications, 1)
		assert.Contains(t, advice.Notifications[0], "已完成")
	}
}

func TestBuildAdviceRecommendationsNeverEmpty(t *testing.T) {
	advice := BuildAdvice(walletWithBalance(1000), nil, nil, 20)

	assert.Empty(t, advice.Warnings)
	assert.Empty(t, advice.Notifications)
	assert.NotEmpty(t, advice.Recommendations)
}
