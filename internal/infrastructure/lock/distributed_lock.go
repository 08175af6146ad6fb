package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁实现
// ============================================================================
//
// 【为什么需要按钱包加锁？】
//
// 经济系统的所有写操作（收入、购买、赠送、零花钱、目标存入）都可能
// 从不相关的功能并发打到同一个钱包上。没有锁时：
//
//   goroutine1: 查询余额=100 -> 扣款100 -> 余额=0   OK
//   goroutine2: 查询余额=100 -> 扣款100 -> 余额=-100 超扣了！
//
// 按钱包维度加锁后，同一钱包的写操作被排队，不同钱包互不影响。
//
// 【Redis 分布式锁原理】
//
// 加锁：SET key value NX EX timeout
//   - NX: 只有 key 不存在时才设置（保证互斥）
//   - EX: 设置过期时间（防止死锁）
//   - value: 锁持有者标识（释放时验证，防止误删别人的锁）
//
// 释放锁：Lua 脚本保证「检查 + 删除」的原子性
//
// ============================================================================

var ErrLockFailed = errors.New("获取分布式锁失败")

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string
	expiration time.Duration
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁
// Lua 脚本先验证持有者再删除，防止删掉别人在锁过期后抢到的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// ============================================================================
// 便捷函数：基于用户维度的钱包锁
// ============================================================================

// NewWalletLock 创建钱包锁（按用户维度）
// 同一用户的账务操作串行，不同用户可以并发
func NewWalletLock(client *redis.Client, ownerID int64, token string) *DistributedLock {
	key := fmt.Sprintf("wallet:lock:owner:%d", ownerID)
	return NewDistributedLock(client, key, token, 30*time.Second)
}

// OrderOwnerIDs 双钱包操作的固定加锁顺序
//
// 【关键点】赠送要同时锁两个钱包。两笔方向相反的赠送如果各自先锁
// 自己一侧，就会互相等待形成死锁。所有双钱包路径必须按用户ID升序
// 依次加锁，Redis 锁和数据库行锁都遵守同一顺序
func OrderOwnerIDs(a, b int64) (int64, int64) {
	if a <= b {
		return a, b
	}
	return b, a
}

// NewWalletPairLocks 按固定顺序创建一对钱包锁，调用方依序 Lock、逆序 Unlock
func NewWalletPairLocks(client *redis.Client, ownerA, ownerB int64, token string) (*DistributedLock, *DistributedLock) {
	first, second := OrderOwnerIDs(ownerA, ownerB)
	return NewWalletLock(client, first, token), NewWalletLock(client, second, token)
}
