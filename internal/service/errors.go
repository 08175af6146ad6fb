package service

import (
	"errors"
)

// ============================================================================
// 经济系统错误分类
// ============================================================================
//
// 所有业务错误都在事务提交前被发现，或者整个事务已回滚 ——
// 任何失败路径上钱包/流水/目标状态都保持原样。
// 调用方用 errors.Is 对结果分支，而不是靠捕获异常类型

var (
	ErrInsufficientFunds       = errors.New("余额不足")
	ErrInsufficientStock       = errors.New("商品库存不足或已下架")
	ErrItemsNotFound           = errors.New("购物篮中存在未知商品")
	ErrAllowanceAlreadyClaimed = errors.New("零花钱已领取，冷却中")
	ErrInvalidDonation         = errors.New("无效的赠送请求")
	ErrGoalNotFound            = errors.New("储蓄目标不存在")
	ErrGoalCompleted           = errors.New("储蓄目标已完成，不能继续存入")
	ErrInvalidMetric           = errors.New("不支持的排行榜指标")
)
