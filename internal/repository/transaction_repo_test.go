package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 喂养榜的截断必须在完整的三键排序之后：
// 得分降序、余额降序、用户ID升序都要出现在 ORDER BY 里，
// 页边界上的平手行才不会由数据库的任意行序决定去留
func TestTopCareScoresOrdersBeforeTruncating(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	mock.ExpectQuery("SELECT .+ FROM `transaction_entry` JOIN wallet_account .+ " +
		"ORDER BY score DESC, balance DESC, transaction_entry.owner_id ASC").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "score", "balance"}).
			AddRow(5, 100, 90).
			AddRow(3, 100, 40).
			AddRow(7, 100, 40))

	rows, err := repo.TopCareScores(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, int64(5), rows[0].OwnerID)
	assert.Equal(t, int64(90), rows[0].Balance)
	assert.Equal(t, int64(3), rows[1].OwnerID)
	assert.Equal(t, int64(7), rows[2].OwnerID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// 余额榜补喂养得分是一次分组查询，不逐用户查库
func TestSumCareScoresByOwnersSingleQuery(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	mock.ExpectQuery("SELECT .+ FROM `transaction_entry` WHERE category = .+ GROUP BY").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "score"}).
			AddRow(1, 30).
			AddRow(2, 70))

	scores, err := repo.SumCareScoresByOwners(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, int64(30), scores[1])
	assert.Equal(t, int64(70), scores[2])
	// 没有 care_reward 流水的用户不出现在结果里
	_, ok := scores[3]
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSumCareScoresByOwnersEmptyInput(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewTransactionRepository(db)

	scores, err := repo.SumCareScoresByOwners(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}
