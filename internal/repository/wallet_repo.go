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
	ErrWalletNotFound   = errors.New("钱包不存在")
	ErrBalanceNotEnough = errors.New("余额不足")
	ErrAllowanceNotDue  = errors.New("零花钱冷却中")
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) GetByOwnerID(ctx context.Context, ownerID int64) (*model.WalletAccount, error) {
	var wallet model.WalletAccount
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// GetByOwnerIDForUpdate 事务内加行锁读取钱包
// 所有针对已有钱包的写操作都必须先走这里，保证同一钱包的并发写串行化
func (r *WalletRepository) GetByOwnerIDForUpdate(ctx context.Context, tx *gorm.DB, ownerID int64) (*model.WalletAccount, error) {
	var wallet model.WalletAccount
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_id = ?", ownerID).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// GetOrCreate 首次访问时懒创建钱包
//
// 【关键点】创建是唯一允许竞争的路径：此时还没有行可以加锁。
// 先尝试插入零余额行（冲突时静默跳过），再回读——两个并发的首次请求
// 最终拿到的是同一行
func (r *WalletRepository) GetOrCreate(ctx context.Context, ownerID int64) (*model.WalletAccount, error) {
	wallet, err := r.GetByOwnerID(ctx, ownerID)
	if err == nil {
		return wallet, nil
	}

	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}

	newWallet := &model.WalletAccount{
		OwnerID:  ownerID,
		Balance:  0,
		Currency: "coin",
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}},
			DoNothing: true,
		}).
		Create(newWallet).Error

	if err != nil {
		return nil, err
	}

	return r.GetByOwnerID(ctx, ownerID)
}

// Credit 入账：余额与 lifetime_earned 同一条 UPDATE 内同增
func (r *WalletRepository) Credit(ctx context.Context, tx *gorm.DB, ownerID int64, amount int64) error {
	result := tx.WithContext(ctx).
		Model(&model.WalletAccount{}).
		Where("owner_id = ?", ownerID).
		Updates(map[string]interface{}{
			"balance":         gorm.Expr("balance + ?", amount),
			"lifetime_earned": gorm.Expr("lifetime_earned + ?", amount),
			"version":         gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// Debit 出账：带余额条件的扣减，余额不足时一行都不会改
func (r *WalletRepository) Debit(ctx context.Context, tx *gorm.DB, ownerID int64, amount int64) error {
	return r.debit(ctx, tx, ownerID, amount, false)
}

// DebitDonation 赠送出账：在普通出账之上同时累加 donation_total
func (r *WalletRepository) DebitDonation(ctx context.Context, tx *gorm.DB, ownerID int64, amount int64) error {
	return r.debit(ctx, tx, ownerID, amount, true)
}

func (r *WalletRepository) debit(ctx context.Context, tx *gorm.DB, ownerID int64, amount int64, donation bool) error {
	updates := map[string]interface{}{
		"balance":        gorm.Expr("balance - ?", amount),
		"lifetime_spent": gorm.Expr("lifetime_spent + ?", amount),
		"version":        gorm.Expr("version + 1"),
	}
	if donation {
		updates["donation_total"] = gorm.Expr("donation_total + ?", amount)
	}

	result := tx.WithContext(ctx).
		Model(&model.WalletAccount{}).
		Where("owner_id = ? AND balance >= ?", ownerID, amount).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		wallet, err := r.GetByOwnerID(ctx, ownerID)
		if err != nil {
			return err
		}
		if wallet.Balance < amount {
			return ErrBalanceNotEnough
		}
		return ErrWalletNotFound
	}

	return nil
}

// ClaimAllowance 领取零花钱
//
// 【关键点】时间戳检查和入账写在同一条带条件的 UPDATE 里：
// 只有 last_allowance_at 为空或已超过冷却期才会命中。
// RowsAffected == 0 即为冷却中 —— 即使没有外层锁，两个并发领取也只会成功一次
func (r *WalletRepository) ClaimAllowance(ctx context.Context, tx *gorm.DB, ownerID int64, amount int64, now time.Time, cooldown time.Duration) error {
	cutoff := now.Add(-cooldown)

	result := tx.WithContext(ctx).
		Model(&model.WalletAccount{}).
		Where("owner_id = ? AND (last_allowance_at IS NULL OR last_allowance_at <= ?)", ownerID, cutoff).
		Updates(map[string]interface{}{
			"balance":           gorm.Expr("balance + ?", amount),
			"lifetime_earned":   gorm.Expr("lifetime_earned + ?", amount),
			"last_allowance_at": now,
			"version":           gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAllowanceNotDue
	}
	return nil
}

// SetActiveGoal 设置钱包当前展示的储蓄目标
func (r *WalletRepository) SetActiveGoal(ctx context.Context, tx *gorm.DB, walletID int64, goalID int64) error {
	return tx.WithContext(ctx).
		Model(&model.WalletAccount{}).
		Where("id = ?", walletID).
		Update("active_goal_id", goalID).Error
}

// ClearActiveGoalIf 仅当展示位指向该目标时才清空
func (r *WalletRepository) ClearActiveGoalIf(ctx context.Context, tx *gorm.DB, walletID int64, goalID int64) error {
	return tx.WithContext(ctx).
		Model(&model.WalletAccount{}).
		Where("id = ? AND active_goal_id = ?", walletID, goalID).
		Update("active_goal_id", nil).Error
}

// ListTopByBalance 余额榜：余额降序，平手按钱包ID升序保证确定性
func (r *WalletRepository) ListTopByBalance(ctx context.Context, limit int) ([]*model.WalletAccount, error) {
	var wallets []*model.WalletAccount
	err := r.db.WithContext(ctx).
		Order("balance DESC, id ASC").
		Limit(limit).
		Find(&wallets).Error
	return wallets, err
}
