package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextIDUnique(t *testing.T) {
	const n = 1000
	seen := make(map[int64]bool, n)
	for i := 0; i < n; i++ {
		id := NextID()
		assert.False(t, seen[id], "ID 重复: %d", id)
		seen[id] = true
	}
}

func TestNextIDConcurrentUnique(t *testing.T) {
	const goroutines = 8
	const perGoroutine = 500

	var mu sync.Mutex
	seen := make(map[int64]bool, goroutines*perGoroutine)
	var wg sync.WaitGroup

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				id := NextID()
				mu.Lock()
				if seen[id] {
					t.Errorf("ID 重复: %d", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}

func TestGenerateTransactionNoFormat(t *testing.T) {
	no := GenerateTransactionNo()
	assert.True(t, strings.HasPrefix(no, "TXN"))
	assert.Len(t, no, 3+14+8)
}

func TestGenerateEventKeyFormat(t *testing.T) {
	key := GenerateEventKey()
	assert.True(t, strings.HasPrefix(key, "EVT"))
}
