package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"petledger/internal/model"
	"petledger/internal/repository"
)

// 摘要里附带的排行榜条数
const leaderboardSnippetSize = 5

// Summary 钱包完整摘要：经济系统对外的统一返回结构
// 所有字段都是提交后读出的不可变快照
type Summary struct {
	OwnerID            int64                      `json:"owner_id"`
	Balance            int64                      `json:"balance"`
	Currency           string                     `json:"currency"`
	LifetimeEarned     int64                      `json:"lifetime_earned"`
	LifetimeSpent      int64                      `json:"lifetime_spent"`
	DonationTotal      int64                      `json:"donation_total"`
	ActiveGoalID       *int64                     `json:"active_goal_id,omitempty"`
	AllowanceAvailable bool                       `json:"allowance_available"`
	Today              *repository.DayTotals      `json:"today"`
	Goals              []*model.SavingsGoal       `json:"goals"`
	RecentTransactions []*model.TransactionEntry  `json:"recent_transactions"`
	Inventory          []*model.InventoryRecord   `json:"inventory"`
	Leaderboard        []*LeaderboardEntry        `json:"leaderboard_snippet"`
	Warnings           []string                   `json:"warnings"`
	Recommendations    []string                   `json:"recommendations"`
	Notifications      []string                   `json:"notifications"`
}

// GetSummary 组装钱包摘要
// 读路径不持有钱包锁，也不阻塞写入；目标列表、最近流水等派生
// 视图每次按需重新读取，不做落在钱包行上的反范式缓存
func (s *EconomyService) GetSummary(ctx context.Context, ownerID int64) (*Summary, error) {
	wallet, err := s.walletRepo.GetOrCreate(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("获取钱包失败: %w", err)
	}

	goals, err := s.goalRepo.ListByWallet(ctx, wallet.ID)
	if err != nil {
		return nil, fmt.Errorf("查询目标失败: %w", err)
	}

	recent, err := s.transactionRepo.ListRecent(ctx, wallet.ID, s.cfg.Business.RecentTransactionCount)
	if err != nil {
		return nil, fmt.Errorf("查询流水失败: %w", err)
	}

	inventory, err := s.inventoryRepo.ListByWallet(ctx, wallet.ID)
	if err != nil {
		return nil, fmt.Errorf("查询持有记录失败: %w", err)
	}

	today, err := s.transactionRepo.SumToday(ctx, wallet.ID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("统计今日收支失败: %w", err)
	}

	recentExpenses, err := s.transactionRepo.ListRecentByKind(ctx, wallet.ID, model.TransactionKindExpense, 3)
	if err != nil {
		return nil, fmt.Errorf("查询最近支出失败: %w", err)
	}

	// 排行榜片段失败只降级，不影响摘要主体
	snippet, err := s.leaderboard.Rank(ctx, MetricBalance, leaderboardSnippetSize)
	if err != nil {
		log.Printf("查询排行榜片段失败: ownerID=%d, err=%v", ownerID, err)
		snippet = []*LeaderboardEntry{}
	}

	advice := BuildAdvice(wallet, goals, recentExpenses, s.cfg.Business.LowBalanceThreshold)

	return &Summary{
		OwnerID:            wallet.OwnerID,
		Balance:            wallet.Balance,
		Currency:           wallet.Currency,
		LifetimeEarned:     wallet.LifetimeEarned,
		LifetimeSpent:      wallet.LifetimeSpent,
		DonationTotal:      wallet.DonationTotal,
		ActiveGoalID:       wallet.ActiveGoalID,
		AllowanceAvailable: wallet.AllowanceAvailable(time.Now(), s.cfg.Business.AllowanceCooldown()),
		Today:              today,
		Goals:              goals,
		RecentTransactions: recent,
		Inventory:          inventory,
		Leaderboard:        snippet,
		Warnings:           advice.Warnings,
		Recommendations:    advice.Recommendations,
		Notifications:      advice.Notifications,
	}, nil
}

// ListGoals 钱包下全部储蓄目标，新的在前
func (s *EconomyService) ListGoals(ctx context.Context, ownerID int64) ([]*model.SavingsGoal, error) {
	wallet, err := s.walletRepo.GetOrCreate(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("获取钱包失败: %w", err)
	}
	return s.goalRepo.ListByWallet(ctx, wallet.ID)
}

// ============================================================
// 对账
// ============================================================

// ReconcileResult 对账结果
type ReconcileResult struct {
	OwnerID            int64 `json:"owner_id"`
	Balance            int64 `json:"balance"`
	LifetimeEarned     int64 `json:"lifetime_earned"`
	LifetimeSpent      int64 `json:"lifetime_spent"`
	EntryCount         int   `json:"entry_count"`
	ReplayedBalance    int64 `json:"replayed_balance"`
	CountersConsistent bool  `json:"counters_consistent"` // balance == lifetime_earned - lifetime_spent
	LedgerConsistent   bool  `json:"ledger_consistent"`   // 流水重放 == balance
}

// Reconcile 校验钱包与流水的一致性
// 1. balance == lifetime_earned - lifetime_spent
// 2. 从零按创建顺序重放全部流水 == 当前余额
func (s *EconomyService) Reconcile(ctx context.Context, ownerID int64) (*ReconcileResult, error) {
	wallet, err := s.walletRepo.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	entries, err := s.transactionRepo.ListAllByWallet(ctx, wallet.ID)
	if err != nil {
		return nil, fmt.Errorf("查询流水失败: %w", err)
	}

	replayed := model.ReplayBalance(entries)

	result := &ReconcileResult{
		OwnerID:            wallet.OwnerID,
		Balance:            wallet.Balance,
		LifetimeEarned:     wallet.LifetimeEarned,
		LifetimeSpent:      wallet.LifetimeSpent,
		EntryCount:         len(entries),
		ReplayedBalance:    replayed,
		CountersConsistent: wallet.Balance == wallet.LifetimeEarned-wallet.LifetimeSpent,
		LedgerConsistent:   replayed == wallet.Balance,
	}

	if !result.CountersConsistent || !result.LedgerConsistent {
		log.Printf("[Reconcile] 发现不一致: ownerID=%d, balance=%d, replayed=%d, earned=%d, spent=%d",
			ownerID, wallet.Balance, replayed, wallet.LifetimeEarned, wallet.LifetimeSpent)
	}

	return result, nil
}

// ============================================================
// 商品维护（运营接口）
// ============================================================

// UpsertCatalogItems 按 SKU 批量创建或更新商品定义
func (s *EconomyService) UpsertCatalogItems(ctx context.Context, items []*model.CatalogItem) error {
	for _, item := range items {
		if item.SKU == "" {
			return errors.New("商品 SKU 不能为空")
		}
		if item.Price < 0 {
			return fmt.Errorf("商品 %s 价格不能为负", item.SKU)
		}
		if item.Stock < model.StockUnlimited {
			return fmt.Errorf("商品 %s 库存不合法", item.SKU)
		}
		if err := s.catalogRepo.Upsert(ctx, item); err != nil {
			return fmt.Errorf("保存商品 %s 失败: %w", item.SKU, err)
		}
	}
	return nil
}

// ListCatalog 全部上架商品
func (s *EconomyService) ListCatalog(ctx context.Context) ([]*model.CatalogItem, error) {
	return s.catalogRepo.ListActive(ctx)
}
