package model

import (
	"time"
)

// WalletAccount 用户钱包表
// 记录用户的金币余额，是整个经济系统的根实体
//
// 【核心不变式】balance == lifetime_earned - lifetime_spent
// 所有入账同时累加 lifetime_earned，所有出账同时累加 lifetime_spent，
// 两列必须在同一条 UPDATE 中修改，任何时刻都不允许破坏该等式
type WalletAccount struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID         int64      `gorm:"uniqueIndex;not null" json:"owner_id"`          // 用户ID，业务方传入
	Balance         int64      `gorm:"not null;default:0" json:"balance"`             // 可用余额（金币数，恒 >= 0）
	Currency        string     `gorm:"type:varchar(16);not null;default:coin" json:"currency"`
	LifetimeEarned  int64      `gorm:"not null;default:0" json:"lifetime_earned"`     // 累计入账
	LifetimeSpent   int64      `gorm:"not null;default:0" json:"lifetime_spent"`      // 累计出账
	DonationTotal   int64      `gorm:"not null;default:0" json:"donation_total"`      // 累计赠出
	ActiveGoalID    *int64     `gorm:"index" json:"active_goal_id,omitempty"`         // 当前展示的储蓄目标
	LastAllowanceAt *time.Time `json:"last_allowance_at,omitempty"`                   // 上次领取零花钱时间
	Version         int        `gorm:"not null;default:0" json:"version"`             // 乐观锁版本号
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WalletAccount) TableName() string {
	return "wallet_account"
}

// AllowanceAvailableAt 计算下次可领取零花钱的时间
func (w *WalletAccount) AllowanceAvailableAt(cooldown time.Duration) time.Time {
	if w.LastAllowanceAt == nil {
		return time.Time{}
	}
	return w.LastAllowanceAt.Add(cooldown)
}

// AllowanceAvailable 判断当前是否可以领取零花钱
func (w *WalletAccount) AllowanceAvailable(now time.Time, cooldown time.Duration) bool {
	if w.LastAllowanceAt == nil {
		return true
	}
	return !now.Before(w.LastAllowanceAt.Add(cooldown))
}
