package model

import (
	"encoding/json"
	"time"
)

// ============================================================================
// 交易类型/分类常量
// ============================================================================

const (
	TransactionKindIncome  = "INCOME"  // 入账（amount > 0）
	TransactionKindExpense = "EXPENSE" // 出账（amount < 0）
)

const (
	CategoryIncome           = "income"            // 通用收入（小游戏、任务奖励等）
	CategoryCareReward       = "care_reward"       // 照顾宠物奖励，喂养榜的统计口径
	CategoryAllowance        = "allowance"         // 每日零花钱
	CategoryPurchase         = "purchase"          // 商店购买
	CategoryGoalContribution = "goal_contribution" // 储蓄目标存入
	CategoryDonationOut      = "donation_out"      // 赠出金币
	CategoryDonationIn       = "donation_in"       // 收到金币
)

// ============================================================================
// 钱包流水实体
// ============================================================================

// TransactionEntry 钱包流水表
// 记录钱包的每一笔资金变动，是对账的核心依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 记录交易后余额 balance_after —— 便于校验余额一致性
// 3. 从零按创建顺序重放有符号金额，必须精确还原当前余额
type TransactionEntry struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"` // 流水号（全局唯一）
	WalletID       int64     `gorm:"index;not null" json:"wallet_id"`
	OwnerID        int64     `gorm:"index;not null" json:"owner_id"`
	Amount         int64     `gorm:"not null" json:"amount"` // 金额（正数入账，负数出账）
	Kind           string    `gorm:"type:varchar(16);not null" json:"kind"`
	Category       string    `gorm:"type:varchar(32);index;not null" json:"category"`
	Description    string    `gorm:"type:varchar(256)" json:"description"`
	Metadata       string    `gorm:"type:text" json:"metadata,omitempty"` // 结构化元数据（JSON，见 TransactionMetadata）
	BalanceAfter   int64     `gorm:"not null" json:"balance_after"`       // 本笔流水落账后的余额
	RelatedGoalID  *int64    `gorm:"index" json:"related_goal_id,omitempty"`
	RelatedItemSKU *string   `gorm:"type:varchar(64)" json:"related_item_sku,omitempty"` // 仅当购物篮恰好一种商品时填写
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (TransactionEntry) TableName() string {
	return "transaction_entry"
}

// ReplayBalance 从零重放流水，返回累计余额
// 对账接口用它校验流水与钱包余额的一致性
func ReplayBalance(entries []*TransactionEntry) int64 {
	var balance int64
	for _, e := range entries {
		balance += e.Amount
	}
	return balance
}

// ============================================================================
// 流水元数据（按分类封闭的结构化变体 + 一个扩展字段）
// ============================================================================

// TransactionMetadata 流水元数据
// 每个分类只填自己对应的变体字段，其余为 nil；
// Extra 是唯一的开放扩展位，用于向前兼容的附加信息
type TransactionMetadata struct {
	Purchase   *PurchaseMetadata   `json:"purchase,omitempty"`
	Donation   *DonationMetadata   `json:"donation,omitempty"`
	CareReward *CareRewardMetadata `json:"care_reward,omitempty"`
	Goal       *GoalMetadata       `json:"goal,omitempty"`
	Extra      map[string]string   `json:"extra,omitempty"`
}

// PurchaseMetadata 购买流水的明细（整个购物篮汇总成一条流水）
type PurchaseMetadata struct {
	Lines []PurchaseLineMetadata `json:"lines"`
	Total int64                  `json:"total"`
}

type PurchaseLineMetadata struct {
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// DonationMetadata 赠送流水的双方信息
type DonationMetadata struct {
	FromOwnerID int64  `json:"from_owner_id"`
	ToOwnerID   int64  `json:"to_owner_id"`
	Message     string `json:"message,omitempty"`
}

// CareRewardMetadata 照顾宠物奖励的得分信息
type CareRewardMetadata struct {
	CareScore int    `json:"care_score"`
	Reason    string `json:"reason,omitempty"`
}

// GoalMetadata 储蓄目标存入时的目标快照
type GoalMetadata struct {
	GoalID       int64  `json:"goal_id"`
	GoalName     string `json:"goal_name"`
	TargetAmount int64  `json:"target_amount"`
}

// Encode 序列化为流水表存储的 JSON 字符串
func (m *TransactionMetadata) Encode() (string, error) {
	if m == nil {
		return "", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeMetadata 反序列化流水元数据，空串返回 nil
func DecodeMetadata(raw string) (*TransactionMetadata, error) {
	if raw == "" {
		return nil, nil
	}
	var m TransactionMetadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return &m, nil
}
