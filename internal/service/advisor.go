package service

import (
	"fmt"

	"petledger/internal/model"
)

// ============================================================================
// 预算建议（无状态，纯派生）
// ============================================================================
//
// 只读最近的账务快照产出提醒和建议，不参与任何资金安全判断。
// 已完成目标的祝贺通知每次计算摘要都会重新出现（刻意为之：
// 通知不落库，没有"已读"状态）

// Advice 预算建议输出
type Advice struct {
	Warnings        []string `json:"warnings"`
	Recommendations []string `json:"recommendations"`
	Notifications   []string `json:"notifications"`
}

// 目标接近完成的判定：剩余金额 <= max(10, 目标的20%)
func nearCompletionThreshold(target int64) int64 {
	threshold := target / 5
	if threshold < 10 {
		threshold = 10
	}
	return threshold
}

// BuildAdvice 根据钱包、目标和最近支出计算预算建议
// recentExpenses 取最近的支出流水（最多3条，新的在前）
func BuildAdvice(wallet *model.WalletAccount, goals []*model.SavingsGoal, recentExpenses []*model.TransactionEntry, lowBalanceThreshold int64) *Advice {
	advice := &Advice{
		Warnings:        []string{},
		Recommendations: []string{},
		Notifications:   []string{},
	}

	if wallet.Balance < lowBalanceThreshold {
		advice.Warnings = append(advice.Warnings,
			fmt.Sprintf("余额只剩 %d 金币了，注意节省开支", wallet.Balance))
		advice.Recommendations = append(advice.Recommendations,
			"多照顾宠物可以获得奖励金币")
	}

	// 最近三笔支出合计超过当前余额，说明花钱速度跟不上收入
	if len(recentExpenses) >= 3 {
		var recentSpent int64
		for i := 0; i < 3; i++ {
			recentSpent += -recentExpenses[i].Amount
		}
		if recentSpent > wallet.Balance {
			advice.Warnings = append(advice.Warnings,
				fmt.Sprintf("最近三笔支出共 %d 金币，已超过当前余额，放慢一点吧", recentSpent))
			advice.Recommendations = append(advice.Recommendations,
				"试试先把金币存进储蓄目标，避免冲动消费")
		}
	}

	for _, goal := range goals {
		switch {
		case goal.IsCompleted():
			advice.Notifications = append(advice.Notifications,
				fmt.Sprintf("储蓄目标「%s」已达成，太棒了！", goal.Name))
		case goal.RemainingAmount() <= nearCompletionThreshold(goal.TargetAmount):
			advice.Notifications = append(advice.Notifications,
				fmt.Sprintf("储蓄目标「%s」只差 %d 金币啦，加油！", goal.Name, goal.RemainingAmount()))
			advice.Recommendations = append(advice.Recommendations,
				fmt.Sprintf("再存 %d 金币就能完成「%s」", goal.RemainingAmount(), goal.Name))
		}
	}

	// 建议列表永远非空，没有针对性建议时给通用提示
	if len(advice.Recommendations) == 0 {
		advice.Recommendations = append(advice.Recommendations,
			"坚持每天领零花钱、照顾宠物，金币会越攒越多")
	}

	return advice
}
