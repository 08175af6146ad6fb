package model

import (
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// 经济事件类型：宠物、任务、小游戏等功能订阅这些事件做各自的联动
const (
	EventCoinsEarned      = "economy.coins_earned"
	EventAllowanceClaimed = "economy.allowance_claimed"
	EventItemsPurchased   = "economy.items_purchased"
	EventCoinsDonated     = "economy.coins_donated"
	EventGoalCreated      = "economy.goal_created"
	EventGoalContributed  = "economy.goal_contributed"
	EventGoalCompleted    = "economy.goal_completed"
)

// OutboxMessage 事务性发件箱
// 经济事件与账务变更写在同一个事务里，后台任务再异步投递到 Kafka，
// 保证「账落了事件一定会发，账回滚事件一定不发」
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	EventType  string    `gorm:"type:varchar(64);index;not null" json:"event_type"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}
