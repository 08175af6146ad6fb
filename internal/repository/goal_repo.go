package repository

import (
	"context"
	"errors"
	"time"

	"petledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrGoalNotFound         = errors.New("储蓄目标不存在")
	ErrGoalAlreadyCompleted = errors.New("储蓄目标已完成")
)

type GoalRepository struct {
	db *gorm.DB
}

func NewGoalRepository(db *gorm.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

func (r *GoalRepository) Create(ctx context.Context, tx *gorm.DB, goal *model.SavingsGoal) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(goal).Error
}

func (r *GoalRepository) GetByID(ctx context.Context, id int64) (*model.SavingsGoal, error) {
	var goal model.SavingsGoal
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&goal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}
	return &goal, nil
}

// GetByIDForUpdate 事务内加行锁读取目标，存入路径必须走这里
func (r *GoalRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.SavingsGoal, error) {
	var goal model.SavingsGoal
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&goal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}
	return &goal, nil
}

// ListByWallet 钱包下全部目标，新的在前
func (r *GoalRepository) ListByWallet(ctx context.Context, walletID int64) ([]*model.SavingsGoal, error) {
	var goals []*model.SavingsGoal
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC, id DESC").
		Find(&goals).Error
	return goals, err
}

// AddAmount 累加已存入金额
func (r *GoalRepository) AddAmount(ctx context.Context, tx *gorm.DB, id int64, amount int64) error {
	result := tx.WithContext(ctx).
		Model(&model.SavingsGoal{}).
		Where("id = ?", id).
		Update("current_amount", gorm.Expr("current_amount + ?", amount))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrGoalNotFound
	}
	return nil
}

// MarkCompleted 目标完成状态流转
//
// 【关键点】带状态条件的 CAS 更新：只有 ACTIVE 才能流转到 COMPLETED，
// RowsAffected == 0 说明已经被别的请求流转过，保证 completed_at 只落一次
func (r *GoalRepository) MarkCompleted(ctx context.Context, tx *gorm.DB, id int64, completedAt time.Time) error {
	result := tx.WithContext(ctx).
		Model(&model.SavingsGoal{}).
		Where("id = ? AND status = ?", id, model.GoalStatusActive).
		Updates(map[string]interface{}{
			"status":       model.GoalStatusCompleted,
			"completed_at": completedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrGoalAlreadyCompleted
	}
	return nil
}
