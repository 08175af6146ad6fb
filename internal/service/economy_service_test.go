package service

import (
	"context"
	"testing"

	"petledger/internal/config"
	"petledger/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTxTestService(t *testing.T) (*EconomyService, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return NewEconomyService(db, nil, &config.Config{}), mock
}

func testBasket(lines ...*resolvedLine) *resolvedBasket {
	b := &resolvedBasket{Lines: lines}
	for _, line := range lines {
		b.Total += line.Item.Price * line.Quantity
	}
	return b
}

// 余额判定对事务内锁定的行做：锁外读到的余额不参与拒单。
// 并发入账在拿锁前提交时，事务里重读出的余额已经是入账后的值
func TestPurchaseFundsCheckedAgainstLockedRow(t *testing.T) {
	svc, mock := newTxTestService(t)
	resolved := testBasket(&resolvedLine{
		Item:     &model.CatalogItem{SKU: "food", Price: 80, Active: true, Stock: 10},
		Quantity: 1,
	})

	// 锁定行余额充足：扣款、扣库存、加持有、流水、事件一路提交
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM `wallet_account` .+ FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "balance"}).
			AddRow(1, 42, 100))
	mock.ExpectExec("UPDATE `wallet_account` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `catalog_item` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `inventory_record`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `transaction_entry`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `outbox_message`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := svc.purchaseTx(context.Background(), 42, resolved)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseInsufficientFundsRollsBack(t *testing.T) {
	svc, mock := newTxTestService(t)
	resolved := testBasket(&resolvedLine{
		Item:     &model.CatalogItem{SKU: "food", Price: 80, Active: true, Stock: 10},
		Quantity: 1,
	})

	// 锁定行余额不足：事务里一笔写都不会发出
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM `wallet_account` .+ FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "balance"}).
			AddRow(1, 42, 30))
	mock.ExpectRollback()

	err := svc.purchaseTx(context.Background(), 42, resolved)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// 整篮购买全部生效或全部作废：第二行库存竞争时，
// 已扣的钱、已扣的库存、已加的持有全部随事务回滚
func TestPurchaseAllOrNothingOnStockConflict(t *testing.T) {
	svc, mock := newTxTestService(t)
	resolved := testBasket(
		&resolvedLine{
			Item:     &model.CatalogItem{SKU: "food", Price: 30, Active: true, Stock: 10},
			Quantity: 1,
		},
		&resolvedLine{
			Item:     &model.CatalogItem{SKU: "toy", Price: 50, Active: true, Stock: 1},
			Quantity: 1,
		},
	)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM `wallet_account` .+ FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "balance"}).
			AddRow(1, 42, 500))
	mock.ExpectExec("UPDATE `wallet_account` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// 第一行商品正常扣减入库
	mock.ExpectExec("UPDATE `catalog_item` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `inventory_record`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	// 第二行提交时库存被并发买空，条件扣减 0 行命中
	mock.ExpectExec("UPDATE `catalog_item` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := svc.purchaseTx(context.Background(), 42, resolved)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	// 回滚之后没有流水、持有或事件写入
	assert.NoError(t, mock.ExpectationsWereMet())
}

// 赠送两侧在同一个事务单元里落账：一次 Begin 覆盖
// 扣款、入账、两条流水和事件，一次 Commit 一起生效
func TestDonateCommitsBothSidesInOneUnit(t *testing.T) {
	svc, mock := newTxTestService(t)

	mock.ExpectBegin()
	// 行锁按用户ID升序获取：先 3（收款方）后 7（赠送方）
	mock.ExpectQuery("SELECT .+ FROM `wallet_account` .+ FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "balance"}).
			AddRow(1, 3, 40))
	mock.ExpectQuery("SELECT .+ FROM `wallet_account` .+ FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "balance"}).
			AddRow(2, 7, 200))
	mock.ExpectExec("UPDATE `wallet_account` SET").
		WillReturnResult(sqlmock.NewResult(0, 1)) // 赠送方扣款
	mock.ExpectExec("UPDATE `wallet_account` SET").
		WillReturnResult(sqlmock.NewResult(0, 1)) // 收款方入账
	mock.ExpectExec("INSERT INTO `transaction_entry`").
		WillReturnResult(sqlmock.NewResult(1, 1)) // donation_out
	mock.ExpectExec("INSERT INTO `transaction_entry`").
		WillReturnResult(sqlmock.NewResult(2, 1)) // donation_in
	mock.ExpectExec("INSERT INTO `outbox_message`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := svc.donateTx(context.Background(), &DonateRequest{
		SenderID:    7,
		RecipientID: 3,
		Amount:      60,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDonateRollsBackWhenSenderShort(t *testing.T) {
	svc, mock := newTxTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM `wallet_account` .+ FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "balance"}).
			AddRow(1, 3, 40))
	mock.ExpectQuery("SELECT .+ FROM `wallet_account` .+ FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "balance"}).
			AddRow(2, 7, 10))
	// 条件扣减 0 行命中，回读区分余额不足
	mock.ExpectExec("UPDATE `wallet_account` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .+ FROM `wallet_account`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "balance"}).
			AddRow(2, 7, 10))
	mock.ExpectRollback()

	err := svc.donateTx(context.Background(), &DonateRequest{
		SenderID:    7,
		RecipientID: 3,
		Amount:      60,
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	// 收款方没有任何入账或流水写入
	assert.NoError(t, mock.ExpectationsWereMet())
}

// 金币守恒：两条赠送流水的有符号金额之和为零，
// 双方 balance_after 的变化量也恰好相互抵消
func TestDonationEntriesConserveCoins(t *testing.T) {
	sender := &model.WalletAccount{ID: 2, OwnerID: 7, Balance: 200}
	recipient := &model.WalletAccount{ID: 1, OwnerID: 3, Balance: 40}
	const amount = int64(60)

	outEntry, err := buildEntry(sender, -amount, model.CategoryDonationOut, "赠送", nil)
	require.NoError(t, err)
	inEntry, err := buildEntry(recipient, amount, model.CategoryDonationIn, "收赠", nil)
	require.NoError(t, err)

	assert.Equal(t, int64(0), outEntry.Amount+inEntry.Amount)
	assert.Equal(t, sender.Balance-amount, outEntry.BalanceAfter)
	assert.Equal(t, recipient.Balance+amount, inEntry.BalanceAfter)

	senderDelta := outEntry.BalanceAfter - sender.Balance
	recipientDelta := inEntry.BalanceAfter - recipient.Balance
	assert.Equal(t, int64(0), senderDelta+recipientDelta)
}
