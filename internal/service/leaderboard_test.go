package service

import (
	"testing"

	"petledger/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankCareScoresOrdering(t *testing.T) {
	rows := []*repository.CareScoreRow{
		{OwnerID: 1, Score: 50, Balance: 10},
		{OwnerID: 2, Score: 120, Balance: 5},
		{OwnerID: 3, Score: 80, Balance: 99},
	}

	entries := rankCareScores(rows)

	require.Len(t, entries, 3)
	assert.Equal(t, int64(2), entries[0].OwnerID)
	assert.Equal(t, int64(3), entries[1].OwnerID)
	assert.Equal(t, int64(1), entries[2].OwnerID)
	// 名次是页内的1起始序号
	for i, entry := range entries {
		assert.Equal(t, i+1, entry.Rank)
	}
}

// 得分平手时按余额降序，再平按用户ID升序
func TestRankCareScoresTieBreak(t *testing.T) {
	rows := []*repository.CareScoreRow{
		{OwnerID: 7, Score: 100, Balance: 40},
		{OwnerID: 3, Score: 100, Balance: 40},
		{OwnerID: 5, Score: 100, Balance: 90},
	}

	entries := rankCareScores(rows)

	require.Len(t, entries, 3)
	assert.Equal(t, int64(5), entries[0].OwnerID) // 余额最高
	assert.Equal(t, int64(3), entries[1].OwnerID) // 余额并列，ID小的在前
	assert.Equal(t, int64(7), entries[2].OwnerID)
}

func TestRankCareScoresEmpty(t *testing.T) {
	entries := rankCareScores(nil)
	assert.Empty(t, entries)
}
