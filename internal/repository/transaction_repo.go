package repository

import (
	"context"
	"time"

	"petledger/internal/model"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create 追加一条流水（只追加，永不更新或删除）
func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, entry *model.TransactionEntry) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(entry).Error
}

// ListRecent 最近 N 条流水，新的在前
func (r *TransactionRepository) ListRecent(ctx context.Context, walletID int64, limit int) ([]*model.TransactionEntry, error) {
	var entries []*model.TransactionEntry
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// ListRecentByKind 按类型取最近 N 条（预算提醒取最近几笔支出用）
func (r *TransactionRepository) ListRecentByKind(ctx context.Context, walletID int64, kind string, limit int) ([]*model.TransactionEntry, error) {
	var entries []*model.TransactionEntry
	err := r.db.WithContext(ctx).
		Where("wallet_id = ? AND kind = ?", walletID, kind).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// ListAllByWallet 按创建顺序取全部流水（对账重放用）
func (r *TransactionRepository) ListAllByWallet(ctx context.Context, walletID int64) ([]*model.TransactionEntry, error) {
	var entries []*model.TransactionEntry
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// DayTotals 当日（UTC）收支汇总
type DayTotals struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
}

// SumToday 按 UTC 自然日统计今日收支
func (r *TransactionRepository) SumToday(ctx context.Context, walletID int64, now time.Time) (*DayTotals, error) {
	dayStart := now.UTC().Truncate(24 * time.Hour)

	type row struct {
		Kind  string
		Total int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.TransactionEntry{}).
		Select("kind, COALESCE(SUM(amount), 0) AS total").
		Where("wallet_id = ? AND created_at >= ?", walletID, dayStart).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := &DayTotals{}
	for _, r := range rows {
		switch r.Kind {
		case model.TransactionKindIncome:
			totals.Income = r.Total
		case model.TransactionKindExpense:
			// 出账流水金额为负，对外报正数
			totals.Expense = -r.Total
		}
	}
	return totals, nil
}

// SumCareScoresByOwners 批量统计一组用户的喂养得分（余额榜补得分用）
func (r *TransactionRepository) SumCareScoresByOwners(ctx context.Context, ownerIDs []int64) (map[int64]int64, error) {
	if len(ownerIDs) == 0 {
		return map[int64]int64{}, nil
	}

	var rows []*CareScoreRow
	err := r.db.WithContext(ctx).
		Model(&model.TransactionEntry{}).
		Select("owner_id, COALESCE(SUM(amount), 0) AS score").
		Where("category = ? AND owner_id IN ?", model.CategoryCareReward, ownerIDs).
		Group("owner_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	scores := make(map[int64]int64, len(rows))
	for _, row := range rows {
		scores[row.OwnerID] = row.Score
	}
	return scores, nil
}

// CareScoreRow 喂养榜的单行统计
type CareScoreRow struct {
	OwnerID int64 `json:"owner_id"`
	Score   int64 `json:"score"`
	Balance int64 `json:"balance"`
}

// TopCareScores 喂养榜：按 care_reward 分类的流水合计降序
//
// 【关键点】截断必须在确定的全序之后：得分平手时按钱包余额降序、
// 再按用户ID升序，三个键都写进 ORDER BY 再 LIMIT——否则页边界上
// 的平手行进不进榜取决于数据库的任意行序
func (r *TransactionRepository) TopCareScores(ctx context.Context, limit int) ([]*CareScoreRow, error) {
	var rows []*CareScoreRow
	err := r.db.WithContext(ctx).
		Model(&model.TransactionEntry{}).
		Select("transaction_entry.owner_id, COALESCE(SUM(transaction_entry.amount), 0) AS score, MAX(wallet_account.balance) AS balance").
		Joins("JOIN wallet_account ON wallet_account.owner_id = transaction_entry.owner_id").
		Where("transaction_entry.category = ?", model.CategoryCareReward).
		Group("transaction_entry.owner_id").
		Order("score DESC, balance DESC, transaction_entry.owner_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
