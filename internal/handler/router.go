package handler

import (
	"petledger/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(db, rdb, cfg)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 钱包相关
		wallet := api.Group("/wallet")
		{
			wallet.GET("/summary", h.GetSummary)
			wallet.POST("/earn", h.Earn)
			wallet.POST("/allowance/claim", h.ClaimAllowance)
			wallet.GET("/reconcile", h.Reconcile)
		}

		// 商店相关
		shop := api.Group("/shop")
		{
			shop.POST("/purchase", h.Purchase)
			shop.GET("/catalog", h.ListCatalog)
			shop.POST("/catalog/upsert", h.UpsertCatalog)
		}

		// 社交相关
		social := api.Group("/social")
		{
			social.POST("/donate", h.Donate)
		}

		// 储蓄目标相关
		goal := api.Group("/goal")
		{
			goal.POST("/create", h.CreateGoal)
			goal.POST("/contribute", h.ContributeGoal)
			goal.GET("/list", h.ListGoals)
		}

		// 排行榜
		api.GET("/leaderboard", h.Leaderboard)
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
