package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

// 目标完成流转是带状态条件的 CAS：已完成的目标不会被二次流转
func TestMarkCompletedOnlyOnce(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGoalRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `savings_goal` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.MarkCompleted(context.Background(), db, 9, time.Now())
	assert.ErrorIs(t, err, ErrGoalAlreadyCompleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkCompletedActiveGoal(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGoalRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `savings_goal` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.MarkCompleted(context.Background(), db, 9, time.Now())
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// 提交阶段发现库存竞争：条件扣减 0 行命中，由调用方回滚整个事务
func TestDecrementStockConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCatalogRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `catalog_item` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.DecrementStock(context.Background(), db, "food", 2)
	assert.ErrorIs(t, err, ErrStockNotEnough)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementStockSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCatalogRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `catalog_item` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.DecrementStock(context.Background(), db, "food", 2)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
