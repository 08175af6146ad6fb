package model

import (
	"time"
)

const (
	GoalStatusActive    = "ACTIVE"
	GoalStatusCompleted = "COMPLETED"
)

// SavingsGoal 储蓄目标表
// 钱包下的子账户：存入只进不出，达到目标金额后进入终态
//
// 状态机：ACTIVE -> COMPLETED，只允许流转一次
// 流转时刻写入 completed_at；之后不再接受任何存入
type SavingsGoal struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	WalletID      int64      `gorm:"index;not null" json:"wallet_id"`
	OwnerID       int64      `gorm:"index;not null" json:"owner_id"`
	Name          string     `gorm:"type:varchar(64);not null" json:"name"`
	TargetAmount  int64      `gorm:"not null" json:"target_amount"`            // 目标金额（> 0）
	CurrentAmount int64      `gorm:"not null;default:0" json:"current_amount"` // 已存入金额（>= 0）
	Status        string     `gorm:"type:varchar(20);index;not null;default:ACTIVE" json:"status"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SavingsGoal) TableName() string {
	return "savings_goal"
}

// RemainingAmount 距离目标还差多少
func (g *SavingsGoal) RemainingAmount() int64 {
	remaining := g.TargetAmount - g.CurrentAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsCompleted 是否已进入终态
func (g *SavingsGoal) IsCompleted() bool {
	return g.Status == GoalStatusCompleted
}
