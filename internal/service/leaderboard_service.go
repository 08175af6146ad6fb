package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"petledger/internal/config"
	"petledger/internal/repository"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// 排行榜指标
const (
	MetricBalance   = "balance"
	MetricCareScore = "care_score"
)

// LeaderboardEntry 排行榜条目
// Rank 是本页内的名次（从1开始），不是全局名次
type LeaderboardEntry struct {
	OwnerID   int64 `json:"owner_id"`
	Balance   int64 `json:"balance"`
	CareScore int64 `json:"care_score"`
	Rank      int   `json:"rank"`
}

// LeaderboardService 排行榜聚合（只读派生视图）
// 快照缓存在 Redis 里按 TTL 过期，由后台任务周期性重建；
// 缓存不可用时直接回源数据库，排行榜读取永远不阻塞写入
type LeaderboardService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	walletRepo      *repository.WalletRepository
	transactionRepo *repository.TransactionRepository
}

func NewLeaderboardService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *LeaderboardService {
	return &LeaderboardService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		walletRepo:      repository.NewWalletRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

func snapshotKey(metric string, limit int) string {
	return fmt.Sprintf("leaderboard:%s:%d", metric, limit)
}

// Rank 查询排行榜，优先读 Redis 快照，未命中则回源并回填
func (s *LeaderboardService) Rank(ctx context.Context, metric string, limit int) ([]*LeaderboardEntry, error) {
	if metric != MetricBalance && metric != MetricCareScore {
		return nil, ErrInvalidMetric
	}
	if limit <= 0 {
		limit = s.cfg.Business.LeaderboardSize
	}

	if entries, ok := s.readSnapshot(ctx, metric, limit); ok {
		return entries, nil
	}

	entries, err := s.compute(ctx, metric, limit)
	if err != nil {
		return nil, err
	}

	s.writeSnapshot(ctx, metric, limit, entries)
	return entries, nil
}

// RefreshSnapshots 重建默认长度的两个榜单快照（后台任务调用）
func (s *LeaderboardService) RefreshSnapshots(ctx context.Context) error {
	size := s.cfg.Business.LeaderboardSize
	for _, metric := range []string{MetricBalance, MetricCareScore} {
		entries, err := s.compute(ctx, metric, size)
		if err != nil {
			return fmt.Errorf("重建 %s 榜失败: %w", metric, err)
		}
		s.writeSnapshot(ctx, metric, size, entries)
	}
	return nil
}

func (s *LeaderboardService) readSnapshot(ctx context.Context, metric string, limit int) ([]*LeaderboardEntry, bool) {
	raw, err := s.redisClient.Get(ctx, snapshotKey(metric, limit)).Result()
	if err != nil {
		// 缓存未命中或 Redis 不可用都走回源
		return nil, false
	}
	var entries []*LeaderboardEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (s *LeaderboardService) writeSnapshot(ctx context.Context, metric string, limit int, entries []*LeaderboardEntry) {
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	ttl := time.Duration(s.cfg.Business.LeaderboardCacheSeconds) * time.Second
	if err := s.redisClient.Set(ctx, snapshotKey(metric, limit), data, ttl).Err(); err != nil {
		log.Printf("[Leaderboard] 写入快照失败: metric=%s, err=%v", metric, err)
	}
}

func (s *LeaderboardService) compute(ctx context.Context, metric string, limit int) ([]*LeaderboardEntry, error) {
	switch metric {
	case MetricBalance:
		return s.computeBalanceBoard(ctx, limit)
	case MetricCareScore:
		return s.computeCareScoreBoard(ctx, limit)
	default:
		return nil, ErrInvalidMetric
	}
}

// computeBalanceBoard 余额榜：余额降序，平手按钱包ID升序（入库顺序的确定化）
// 喂养得分对整页用户一次性补齐，不逐行查库
func (s *LeaderboardService) computeBalanceBoard(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	wallets, err := s.walletRepo.ListTopByBalance(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(wallets) == 0 {
		return []*LeaderboardEntry{}, nil
	}

	ownerIDs := make([]int64, 0, len(wallets))
	for _, w := range wallets {
		ownerIDs = append(ownerIDs, w.OwnerID)
	}
	scores, err := s.transactionRepo.SumCareScoresByOwners(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}

	entries := make([]*LeaderboardEntry, 0, len(wallets))
	for i, w := range wallets {
		entries = append(entries, &LeaderboardEntry{
			OwnerID:   w.OwnerID,
			Balance:   w.Balance,
			CareScore: scores[w.OwnerID],
			Rank:      i + 1,
		})
	}
	return entries, nil
}

// computeCareScoreBoard 喂养榜：care_reward 流水合计降序
// 平手裁决在 SQL 的 ORDER BY 里完成，这里只做页内编号
func (s *LeaderboardService) computeCareScoreBoard(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	rows, err := s.transactionRepo.TopCareScores(ctx, limit)
	if err != nil {
		return nil, err
	}
	return rankCareScores(rows), nil
}

// rankCareScores 喂养榜排序：得分降序 -> 余额降序 -> 用户ID升序
// 行序由查询保证，这里重排一遍是为了让名次不依赖底层行序
func rankCareScores(rows []*repository.CareScoreRow) []*LeaderboardEntry {
	entries := make([]*LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, &LeaderboardEntry{
			OwnerID:   row.OwnerID,
			CareScore: row.Score,
			Balance:   row.Balance,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CareScore != entries[j].CareScore {
			return entries[i].CareScore > entries[j].CareScore
		}
		if entries[i].Balance != entries[j].Balance {
			return entries[i].Balance > entries[j].Balance
		}
		return entries[i].OwnerID < entries[j].OwnerID
	})

	for i, entry := range entries {
		entry.Rank = i + 1
	}
	return entries
}
