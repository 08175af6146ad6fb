package job

import (
	"context"
	"log"
	"time"

	"petledger/internal/config"
	"petledger/internal/service"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// LeaderboardRefresher 排行榜快照重建任务
// 排行榜是纯派生视图，周期性整体重算写入 Redis，
// 读路径只消费快照，不在读请求里顺带刷新任何落库状态
type LeaderboardRefresher struct {
	leaderboard *service.LeaderboardService
	stopCh      chan struct{}
	interval    time.Duration
}

func NewLeaderboardRefresher(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *LeaderboardRefresher {
	interval := time.Duration(cfg.Business.LeaderboardCacheSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &LeaderboardRefresher{
		leaderboard: service.NewLeaderboardService(db, rdb, cfg),
		stopCh:      make(chan struct{}),
		interval:    interval,
	}
}

func (j *LeaderboardRefresher) Start(ctx context.Context) {
	log.Println("[LeaderboardRefresher] 排行榜快照任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[LeaderboardRefresher] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[LeaderboardRefresher] 任务停止")
			return
		case <-ticker.C:
			if err := j.leaderboard.RefreshSnapshots(ctx); err != nil {
				log.Printf("[LeaderboardRefresher] 重建快照失败: %v", err)
			}
		}
	}
}

func (j *LeaderboardRefresher) Stop() {
	close(j.stopCh)
}
