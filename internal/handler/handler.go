package handler

import (
	"errors"
	"strconv"
	"time"

	"petledger/internal/config"
	"petledger/internal/model"
	"petledger/internal/repository"
	"petledger/internal/service"
	"petledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	economyService     *service.EconomyService
	leaderboardService *service.LeaderboardService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		economyService:     service.NewEconomyService(db, rdb, cfg),
		leaderboardService: service.NewLeaderboardService(db, rdb, cfg),
	}
}

// writeLedgerError 把 service 层的账务错误映射为业务错误码
// 调用方按 code 分支处理，而不是解析 message
func writeLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInsufficientFunds):
		response.BusinessError(c, response.CodeInsufficientFunds, err.Error())
	case errors.Is(err, service.ErrInsufficientStock):
		response.BusinessError(c, response.CodeInsufficientStock, err.Error())
	case errors.Is(err, service.ErrItemsNotFound):
		response.BusinessError(c, response.CodeItemsNotFound, err.Error())
	case errors.Is(err, service.ErrAllowanceAlreadyClaimed):
		response.BusinessError(c, response.CodeAllowanceAlreadyClaimed, err.Error())
	case errors.Is(err, service.ErrInvalidDonation):
		response.BusinessError(c, response.CodeInvalidDonation, err.Error())
	case errors.Is(err, service.ErrGoalNotFound):
		response.BusinessError(c, response.CodeGoalNotFound, err.Error())
	case errors.Is(err, service.ErrGoalCompleted):
		response.BusinessError(c, response.CodeGoalCompleted, err.Error())
	case errors.Is(err, repository.ErrWalletNotFound):
		response.Error(c, response.CodeNotFound, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

func ownerIDFromQuery(c *gin.Context) (int64, bool) {
	ownerID, err := strconv.ParseInt(c.Query("owner_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "owner_id 参数错误")
		return 0, false
	}
	return ownerID, true
}

// ============================================================
// 钱包相关接口
// ============================================================

// GetSummary 查询钱包摘要
// GET /api/v1/wallet/summary?owner_id=xxx
func (h *Handler) GetSummary(c *gin.Context) {
	ownerID, ok := ownerIDFromQuery(c)
	if !ok {
		return
	}

	summary, err := h.economyService.GetSummary(c.Request.Context(), ownerID)
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	response.Success(c, summary)
}

// EarnRequest 入账请求
type EarnRequest struct {
	OwnerID   int64  `json:"owner_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"min=0"`
	Reason    string `json:"reason" binding:"required"`
	CareScore *int   `json:"care_score,omitempty"`
}

// Earn 入账（小游戏奖励、任务奖励、照顾宠物奖励）
// POST /api/v1/wallet/earn
func (h *Handler) Earn(c *gin.Context) {
	var req EarnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	summary, err := h.economyService.Earn(c.Request.Context(), &service.EarnRequest{
		OwnerID:   req.OwnerID,
		Amount:    req.Amount,
		Reason:    req.Reason,
		CareScore: req.CareScore,
	})
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	response.Success(c, summary)
}

// ClaimAllowance 领取每日零花钱
// POST /api/v1/wallet/allowance/claim
func (h *Handler) ClaimAllowance(c *gin.Context) {
	var req struct {
		OwnerID int64 `json:"owner_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	summary, err := h.economyService.ClaimAllowance(c.Request.Context(), req.OwnerID)
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	response.Success(c, summary)
}

// Reconcile 钱包对账
// GET /api/v1/wallet/reconcile?owner_id=xxx
func (h *Handler) Reconcile(c *gin.Context) {
	ownerID, ok := ownerIDFromQuery(c)
	if !ok {
		return
	}

	result, err := h.economyService.Reconcile(c.Request.Context(), ownerID)
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	response.Success(c, result)
}

// ============================================================
// 商店相关接口
// ============================================================

// PurchaseRequest 购买请求
type PurchaseRequest struct {
	OwnerID int64                `json:"owner_id" binding:"required"`
	Items   []service.BasketLine `json:"items" binding:"required,min=1,dive"`
}

// Purchase 整篮购买
// POST /api/v1/shop/purchase
//
// 【关键点】购买必须整篮生效或整篮作废：
// 扣款、扣库存、加持有、记流水在同一个事务里提交
func (h *Handler) Purchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	summary, err := h.economyService.Purchase(c.Request.Context(), req.OwnerID, req.Items)
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	response.Success(c, summary)
}

// ListCatalog 查询上架商品
// GET /api/v1/shop/catalog
func (h *Handler) ListCatalog(c *gin.Context) {
	items, err := h.economyService.ListCatalog(c.Request.Context())
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	response.Success(c, gin.H{"items": items})
}

// UpsertCatalogRequest 商品维护请求（运营）
type UpsertCatalogRequest struct {
	Items []*model.CatalogItem `json:"items" binding:"required,min=1"`
}

// UpsertCatalog 批量创建/更新商品定义
// POST /api/v1/shop/catalog/upsert
func (h *Handler) UpsertCatalog(c *gin.Context) {
	var req UpsertCatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.economyService.UpsertCatalogItems(c.Request.Context(), req.Items); err != nil {
		writeLedgerError(c, err)
		return
	}

	response.Success(c, gin.H{"count": len(req.Items)})
}

// ============================================================
// 社交相关接口
// ============================================================

// DonateRequest 赠送请求
type DonateRequest struct {
	OwnerID     int64  `json:"owner_id" binding:"required"`
	RecipientID int64  `json:"recipient_id" binding:"required"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Message     string `json:"message"`
}

// Donate 用户间赠送金币
// POST /api/v1/social/donate
func (h *Handler) Donate(c *gin.Context) {
	var req DonateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	summary, err := h.economyService.Donate(c.Request.Context(), &service.DonateRequest{
		SenderID:    req.OwnerID,
		RecipientID: req.RecipientID,
		Amount:      req.Amount,
		Message:     req.Message,
	})
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	response.Success(c, summary)
}

// ============================================================
// 储蓄目标相关接口
// ============================================================

// CreateGoalRequest 创建储蓄目标请求
type CreateGoalRequest struct {
	OwnerID      int64      `json:"owner_id" binding:"required"`
	Name         string     `json:"name" binding:"required"`
	TargetAmount int64      `json:"target_amount" binding:"required,gt=0"`
	Deadline     *time.Time `json:"deadline,omitempty"`
}

// CreateGoal 创建储蓄目标
// POST /api/v1/goal/create
func (h *Handler) CreateGoal(c *gin.Context) {
	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	summary, err := h.economyService.CreateGoal(c.Request.Context(), &service.CreateGoalRequest{
		OwnerID:      req.OwnerID,
		Name:         req.Name,
		TargetAmount: req.TargetAmount,
		Deadline:     req.Deadline,
	})
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	response.Success(c, summary)
}

// ContributeGoalRequest 目标存入请求
type ContributeGoalRequest struct {
	OwnerID int64 `json:"owner_id" binding:"required"`
	GoalID  int64 `json:"goal_id" binding:"required"`
	Amount  int64 `json:"amount" binding:"required,gt=0"`
}

// ContributeGoal 向储蓄目标存入金币
// POST /api/v1/goal/contribute
func (h *Handler) ContributeGoal(c *gin.Context) {
	var req ContributeGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	summary, err := h.economyService.ContributeGoal(c.Request.Context(), req.OwnerID, req.GoalID, req.Amount)
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	response.Success(c, summary)
}

// ListGoals 查询储蓄目标列表
// GET /api/v1/goal/list?owner_id=xxx
func (h *Handler) ListGoals(c *gin.Context) {
	ownerID, ok := ownerIDFromQuery(c)
	if !ok {
		return
	}

	goals, err := h.economyService.ListGoals(c.Request.Context(), ownerID)
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	response.Success(c, gin.H{"goals": goals})
}

// ============================================================
// 排行榜接口
// ============================================================

// Leaderboard 查询排行榜
// GET /api/v1/leaderboard?metric=balance&limit=10
func (h *Handler) Leaderboard(c *gin.Context) {
	metric := c.DefaultQuery("metric", service.MetricBalance)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	entries, err := h.leaderboardService.Rank(c.Request.Context(), metric, limit)
	if err != nil {
		if errors.Is(err, service.ErrInvalidMetric) {
			response.ParamError(c, err.Error())
			return
		}
		writeLedgerError(c, err)
		return
	}

	response.Success(c, gin.H{"metric": metric, "entries": entries})
}
