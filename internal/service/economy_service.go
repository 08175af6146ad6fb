package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"petledger/internal/config"
	"petledger/internal/infrastructure/lock"
	"petledger/internal/model"
	"petledger/internal/repository"
	"petledger/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// EconomyService 经济协调器
//
// 商店、小游戏、任务、社交等所有功能的资金变动都只能走这里——
// 协调器是钱包、流水、商品/持有、储蓄目标四张表唯一的写入方。
//
// 【并发模型】
// 每个写操作：外层按钱包加 Redis 锁 + 内层 db.Transaction 中
// SELECT ... FOR UPDATE 重读钱包行，同一钱包的并发写被完全串行化。
// 事务内的条件 UPDATE（余额/库存/冷却）在提交时再校验一次，
// 任何一步失败整个事务回滚，账面状态逐位不变。
//
// 【重试语义】
// 请求超时后结果未知，账务层不做幂等。发奖励的调用方重试前必须
// 先确认触发事件（任务、对局）是否已标记结清，在自己那一层做幂等
type EconomyService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	walletRepo      *repository.WalletRepository
	transactionRepo *repository.TransactionRepository
	goalRepo        *repository.GoalRepository
	catalogRepo     *repository.CatalogRepository
	inventoryRepo   *repository.InventoryRepository
	outboxRepo      *repository.OutboxRepository
	leaderboard     *LeaderboardService
}

func NewEconomyService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *EconomyService {
	return &EconomyService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		walletRepo:      repository.NewWalletRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		goalRepo:        repository.NewGoalRepository(db),
		catalogRepo:     repository.NewCatalogRepository(db),
		inventoryRepo:   repository.NewInventoryRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
		leaderboard:     NewLeaderboardService(db, redisClient, cfg),
	}
}

// lockWallet 获取单钱包锁，返回释放函数
func (s *EconomyService) lockWallet(ctx context.Context, ownerID int64) (func(), error) {
	walletLock := lock.NewWalletLock(s.redisClient, ownerID, idgen.GenerateLockToken())
	if err := walletLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	return func() { walletLock.Unlock(ctx) }, nil
}

// appendOutbox 在账务事务内写入经济事件
func (s *EconomyService) appendOutbox(ctx context.Context, tx *gorm.DB, eventType string, payload map[string]interface{}) error {
	payload["event_type"] = eventType
	payload["occurred_at"] = time.Now().Format(time.RFC3339)
	data, _ := json.Marshal(payload)

	return s.outboxRepo.Create(ctx, tx, &model.OutboxMessage{
		MessageKey: idgen.GenerateEventKey(),
		Topic:      s.cfg.Kafka.Topic.EconomyEvents,
		EventType:  eventType,
		Payload:    string(data),
		Status:     model.OutboxStatusPending,
	})
}

// ============================================================
// 收入
// ============================================================

// EarnRequest 入账请求
// CareScore 非空时流水分类记为 care_reward，进入喂养榜统计
type EarnRequest struct {
	OwnerID   int64  `json:"owner_id"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
	CareScore *int   `json:"care_score,omitempty"`
}

// Earn 入账：合法输入不会失败
func (s *EconomyService) Earn(ctx context.Context, req *EarnRequest) (*Summary, error) {
	if req.Amount < 0 {
		return nil, errors.New("入账金额不能为负")
	}

	if _, err := s.walletRepo.GetOrCreate(ctx, req.OwnerID); err != nil {
		return nil, fmt.Errorf("获取钱包失败: %w", err)
	}

	unlock, err := s.lockWallet(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		wallet, err := s.walletRepo.GetByOwnerIDForUpdate(ctx, tx, req.OwnerID)
		if err != nil {
			return err
		}

		if err := s.walletRepo.Credit(ctx, tx, req.OwnerID, req.Amount); err != nil {
			return fmt.Errorf("入账失败: %w", err)
		}

		category := model.CategoryIncome
		var metadata *model.TransactionMetadata
		if req.CareScore != nil {
			category = model.CategoryCareReward
			metadata = &model.TransactionMetadata{
				CareReward: &model.CareRewardMetadata{CareScore: *req.CareScore, Reason: req.Reason},
			}
		}

		entry, err := buildEntry(wallet, req.Amount, category, req.Reason, metadata)
		if err != nil {
			return err
		}
		if err := s.transactionRepo.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		return s.appendOutbox(ctx, tx, model.EventCoinsEarned, map[string]interface{}{
			"owner_id": req.OwnerID,
			"amount":   req.Amount,
			"category": category,
			"reason":   req.Reason,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("入账成功: ownerID=%d, amount=%d, reason=%s", req.OwnerID, req.Amount, req.Reason)
	return s.GetSummary(ctx, req.OwnerID)
}

// ============================================================
// 零花钱
// ============================================================

// ClaimAllowance 领取零花钱
// 两个并发领取恰好成功一次：冷却检查和入账在同一条条件 UPDATE 里
func (s *EconomyService) ClaimAllowance(ctx context.Context, ownerID int64) (*Summary, error) {
	wallet, err := s.walletRepo.GetOrCreate(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("获取钱包失败: %w", err)
	}

	cooldown := s.cfg.Business.AllowanceCooldown()
	if !wallet.AllowanceAvailable(time.Now(), cooldown) {
		return nil, ErrAllowanceAlreadyClaimed
	}

	unlock, err := s.lockWallet(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	amount := s.cfg.Business.AllowanceAmount
	err = s.db.Transaction(func(tx *gorm.DB) error {
		wallet, err := s.walletRepo.GetByOwnerIDForUpdate(ctx, tx, ownerID)
		if err != nil {
			return err
		}

		now := time.Now()
		if err := s.walletRepo.ClaimAllowance(ctx, tx, ownerID, amount, now, cooldown); err != nil {
			if errors.Is(err, repository.ErrAllowanceNotDue) {
				return ErrAllowanceAlreadyClaimed
			}
			return fmt.Errorf("领取零花钱失败: %w", err)
		}

		entry, err := buildEntry(wallet, amount, model.CategoryAllowance, "每日零花钱", nil)
		if err != nil {
			return err
		}
		if err := s.transactionRepo.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		return s.appendOutbox(ctx, tx, model.EventAllowanceClaimed, map[string]interface{}{
			"owner_id": ownerID,
			"amount":   amount,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("零花钱领取成功: ownerID=%d, amount=%d", ownerID, amount)
	return s.GetSummary(ctx, ownerID)
}

// ============================================================
// 购买
// ============================================================

// Purchase 整篮购买，全部成功或全部失败
//
// 失败优先级固定：未知商品 > 库存/下架 > 余额不足。
// 提交阶段发现的库存竞争同样回滚整个事务——不存在部分生效的购买
func (s *EconomyService) Purchase(ctx context.Context, ownerID int64, basket []BasketLine) (*Summary, error) {
	basket = normalizeBasket(basket)
	if len(basket) == 0 {
		return nil, errEmptyBasket
	}

	if _, err := s.walletRepo.GetOrCreate(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("获取钱包失败: %w", err)
	}

	unlock, err := s.lockWallet(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	skus := make([]string, 0, len(basket))
	for _, line := range basket {
		skus = append(skus, line.SKU)
	}
	items, err := s.catalogRepo.GetBySKUs(ctx, skus)
	if err != nil {
		return nil, fmt.Errorf("查询商品失败: %w", err)
	}

	resolved, err := resolveBasket(basket, items)
	if err != nil {
		return nil, err
	}

	if err := s.purchaseTx(ctx, ownerID, resolved); err != nil {
		return nil, err
	}

	log.Printf("购买成功: ownerID=%d, total=%d, lines=%d", ownerID, resolved.Total, len(resolved.Lines))
	return s.GetSummary(ctx, ownerID)
}

// purchaseTx 购买的账务事务
// 余额判定必须对事务内 FOR UPDATE 读出的行做——锁外读到的余额
// 可能已被并发入账改写，用它拒单会把本该成功的购买误判为余额不足
func (s *EconomyService) purchaseTx(ctx context.Context, ownerID int64, resolved *resolvedBasket) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		wallet, err := s.walletRepo.GetByOwnerIDForUpdate(ctx, tx, ownerID)
		if err != nil {
			return err
		}

		if resolved.Total > wallet.Balance {
			return ErrInsufficientFunds
		}

		if err := s.walletRepo.Debit(ctx, tx, ownerID, resolved.Total); err != nil {
			if errors.Is(err, repository.ErrBalanceNotEnough) {
				return ErrInsufficientFunds
			}
			return fmt.Errorf("扣款失败: %w", err)
		}

		for _, line := range resolved.Lines {
			if err := s.catalogRepo.DecrementStock(ctx, tx, line.Item.SKU, line.Quantity); err != nil {
				if errors.Is(err, repository.ErrStockNotEnough) {
					return ErrInsufficientStock
				}
				return fmt.Errorf("扣减库存失败: %w", err)
			}
			if err := s.inventoryRepo.AddQuantity(ctx, tx, wallet.ID, ownerID, line.Item.SKU, line.Quantity); err != nil {
				return fmt.Errorf("更新持有记录失败: %w", err)
			}
		}

		metadata := &model.TransactionMetadata{Purchase: resolved.metadata()}
		entry, err := buildEntry(wallet, -resolved.Total, model.CategoryPurchase,
			fmt.Sprintf("商店购买 %d 种商品", len(resolved.Lines)), metadata)
		if err != nil {
			return err
		}
		entry.RelatedItemSKU = resolved.singleSKU()
		if err := s.transactionRepo.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		return s.appendOutbox(ctx, tx, model.EventItemsPurchased, map[string]interface{}{
			"owner_id": ownerID,
			"total":    resolved.Total,
			"lines":    resolved.metadata().Lines,
		})
	})
}

// ============================================================
// 赠送
// ============================================================

// DonateRequest 赠送请求
type DonateRequest struct {
	SenderID    int64  `json:"sender_id"`
	RecipientID int64  `json:"recipient_id"`
	Amount      int64  `json:"amount"`
	Message     string `json:"message,omitempty"`
}

// Donate 用户间赠送金币
//
// 两侧在同一个事务里落账，一起提交或一起回滚；成功赠送前后
// 双方余额之和不变（金币守恒）。
//
// 【关键点】Redis 锁和行锁都按用户ID升序获取，两笔方向相反的
// 赠送不会形成死锁
func (s *EconomyService) Donate(ctx context.Context, req *DonateRequest) (*Summary, error) {
	if req.SenderID == req.RecipientID || req.Amount <= 0 {
		return nil, ErrInvalidDonation
	}

	if _, err := s.walletRepo.GetOrCreate(ctx, req.SenderID); err != nil {
		return nil, fmt.Errorf("获取钱包失败: %w", err)
	}
	// 收款方钱包懒创建：先保证行存在，事务里才有行可锁
	if _, err := s.walletRepo.GetOrCreate(ctx, req.RecipientID); err != nil {
		return nil, fmt.Errorf("获取对方钱包失败: %w", err)
	}

	token := idgen.GenerateLockToken()
	firstLock, secondLock := lock.NewWalletPairLocks(s.redisClient, req.SenderID, req.RecipientID, token)
	if err := firstLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer firstLock.Unlock(ctx)
	if err := secondLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer secondLock.Unlock(ctx)

	if err := s.donateTx(ctx, req); err != nil {
		return nil, err
	}

	log.Printf("赠送成功: sender=%d, recipient=%d, amount=%d", req.SenderID, req.RecipientID, req.Amount)
	return s.GetSummary(ctx, req.SenderID)
}

// donateTx 赠送的账务事务：两侧落账在同一个事务里一起提交或一起回滚
func (s *EconomyService) donateTx(ctx context.Context, req *DonateRequest) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		// 行锁同样按用户ID升序获取
		firstID, secondID := lock.OrderOwnerIDs(req.SenderID, req.RecipientID)
		wallets := make(map[int64]*model.WalletAccount, 2)
		for _, ownerID := range []int64{firstID, secondID} {
			w, err := s.walletRepo.GetByOwnerIDForUpdate(ctx, tx, ownerID)
			if err != nil {
				return err
			}
			wallets[ownerID] = w
		}
		sender := wallets[req.SenderID]
		recipient := wallets[req.RecipientID]

		if err := s.walletRepo.DebitDonation(ctx, tx, req.SenderID, req.Amount); err != nil {
			if errors.Is(err, repository.ErrBalanceNotEnough) {
				return ErrInsufficientFunds
			}
			return fmt.Errorf("扣款失败: %w", err)
		}
		if err := s.walletRepo.Credit(ctx, tx, req.RecipientID, req.Amount); err != nil {
			return fmt.Errorf("入账失败: %w", err)
		}

		donationMeta := &model.DonationMetadata{
			FromOwnerID: req.SenderID,
			ToOwnerID:   req.RecipientID,
			Message:     req.Message,
		}

		outEntry, err := buildEntry(sender, -req.Amount, model.CategoryDonationOut,
			fmt.Sprintf("赠送给用户 %d", req.RecipientID),
			&model.TransactionMetadata{Donation: donationMeta})
		if err != nil {
			return err
		}
		if err := s.transactionRepo.Create(ctx, tx, outEntry); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		inEntry, err := buildEntry(recipient, req.Amount, model.CategoryDonationIn,
			fmt.Sprintf("收到用户 %d 的赠送", req.SenderID),
			&model.TransactionMetadata{Donation: donationMeta})
		if err != nil {
			return err
		}
		if err := s.transactionRepo.Create(ctx, tx, inEntry); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		return s.appendOutbox(ctx, tx, model.EventCoinsDonated, map[string]interface{}{
			"sender_id":    req.SenderID,
			"recipient_id": req.RecipientID,
			"amount":       req.Amount,
		})
	})
}

// ============================================================
// 储蓄目标
// ============================================================

// CreateGoalRequest 创建储蓄目标请求
type CreateGoalRequest struct {
	OwnerID      int64      `json:"owner_id"`
	Name         string     `json:"name"`
	TargetAmount int64      `json:"target_amount"`
	Deadline     *time.Time `json:"deadline,omitempty"`
}

// CreateGoal 创建储蓄目标；钱包没有展示目标时自动设为展示位
func (s *EconomyService) CreateGoal(ctx context.Context, req *CreateGoalRequest) (*Summary, error) {
	if req.Name == "" {
		return nil, errors.New("目标名称不能为空")
	}
	if req.TargetAmount <= 0 {
		return nil, errors.New("目标金额必须大于0")
	}

	if _, err := s.walletRepo.GetOrCreate(ctx, req.OwnerID); err != nil {
		return nil, fmt.Errorf("获取钱包失败: %w", err)
	}

	unlock, err := s.lockWallet(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		wallet, err := s.walletRepo.GetByOwnerIDForUpdate(ctx, tx, req.OwnerID)
		if err != nil {
			return err
		}

		goal := &model.SavingsGoal{
			WalletID:     wallet.ID,
			OwnerID:      req.OwnerID,
			Name:         req.Name,
			TargetAmount: req.TargetAmount,
			Status:       model.GoalStatusActive,
			Deadline:     req.Deadline,
		}
		if err := s.goalRepo.Create(ctx, tx, goal); err != nil {
			return fmt.Errorf("创建目标失败: %w", err)
		}

		if wallet.ActiveGoalID == nil {
			if err := s.walletRepo.SetActiveGoal(ctx, tx, wallet.ID, goal.ID); err != nil {
				return fmt.Errorf("设置展示目标失败: %w", err)
			}
		}

		return s.appendOutbox(ctx, tx, model.EventGoalCreated, map[string]interface{}{
			"owner_id":      req.OwnerID,
			"goal_id":       goal.ID,
			"goal_name":     goal.Name,
			"target_amount": goal.TargetAmount,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.GetSummary(ctx, req.OwnerID)
}

// ContributeGoal 向储蓄目标存入金币
//
// 存入后首次达到目标金额时状态恰好流转一次：
// 写入 completed_at，并在展示位指向它时清空展示位。
// 已完成的目标拒绝继续存入（ErrGoalCompleted）
func (s *EconomyService) ContributeGoal(ctx context.Context, ownerID, goalID, amount int64) (*Summary, error) {
	if amount <= 0 {
		return nil, errors.New("存入金额必须大于0")
	}

	if _, err := s.walletRepo.GetOrCreate(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("获取钱包失败: %w", err)
	}

	unlock, err := s.lockWallet(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		wallet, err := s.walletRepo.GetByOwnerIDForUpdate(ctx, tx, ownerID)
		if err != nil {
			return err
		}

		goal, err := s.goalRepo.GetByIDForUpdate(ctx, tx, goalID)
		if err != nil {
			if errors.Is(err, repository.ErrGoalNotFound) {
				return ErrGoalNotFound
			}
			return err
		}
		// 他人的目标视同不存在
		if goal.WalletID != wallet.ID {
			return ErrGoalNotFound
		}
		if goal.IsCompleted() {
			return ErrGoalCompleted
		}

		if err := s.walletRepo.Debit(ctx, tx, ownerID, amount); err != nil {
			if errors.Is(err, repository.ErrBalanceNotEnough) {
				return ErrInsufficientFunds
			}
			return fmt.Errorf("扣款失败: %w", err)
		}

		if err := s.goalRepo.AddAmount(ctx, tx, goalID, amount); err != nil {
			return fmt.Errorf("存入目标失败: %w", err)
		}

		metadata := &model.TransactionMetadata{
			Goal: &model.GoalMetadata{
				GoalID:       goal.ID,
				GoalName:     goal.Name,
				TargetAmount: goal.TargetAmount,
			},
		}
		entry, err := buildEntry(wallet, -amount, model.CategoryGoalContribution,
			fmt.Sprintf("存入储蓄目标「%s」", goal.Name), metadata)
		if err != nil {
			return err
		}
		entry.RelatedGoalID = &goal.ID
		if err := s.transactionRepo.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		if goal.CurrentAmount+amount >= goal.TargetAmount {
			now := time.Now()
			if err := s.goalRepo.MarkCompleted(ctx, tx, goalID, now); err != nil {
				return fmt.Errorf("目标完成流转失败: %w", err)
			}
			if err := s.walletRepo.ClearActiveGoalIf(ctx, tx, wallet.ID, goalID); err != nil {
				return fmt.Errorf("清空展示目标失败: %w", err)
			}
			if err := s.appendOutbox(ctx, tx, model.EventGoalCompleted, map[string]interface{}{
				"owner_id":  ownerID,
				"goal_id":   goalID,
				"goal_name": goal.Name,
			}); err != nil {
				return err
			}
		}

		return s.appendOutbox(ctx, tx, model.EventGoalContributed, map[string]interface{}{
			"owner_id": ownerID,
			"goal_id":  goalID,
			"amount":   amount,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.GetSummary(ctx, ownerID)
}

// ============================================================
// 流水构造
// ============================================================

// buildEntry 构造一条流水
// wallet 必须是事务内 FOR UPDATE 读出的快照，balance_after 由
// 快照余额加上本笔有符号金额得出
func buildEntry(wallet *model.WalletAccount, amount int64, category, description string, metadata *model.TransactionMetadata) (*model.TransactionEntry, error) {
	kind := model.TransactionKindIncome
	if amount < 0 {
		kind = model.TransactionKindExpense
	}

	raw, err := metadata.Encode()
	if err != nil {
		return nil, fmt.Errorf("序列化流水元数据失败: %w", err)
	}

	return &model.TransactionEntry{
		TransactionNo: idgen.GenerateTransactionNo(),
		WalletID:      wallet.ID,
		OwnerID:       wallet.OwnerID,
		Amount:        amount,
		Kind:          kind,
		Category:      category,
		Description:   description,
		Metadata:      raw,
		BalanceAfter:  wallet.Balance + amount,
	}, nil
}
