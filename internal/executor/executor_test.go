package executor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolRunsAllSubmittedTasks(t *testing.T) {
	p := New(4, 16)

	var mu sync.Mutex
	seen := make(map[int]bool)

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		p.Submit(func() {
			defer wg.Done()
			mu.Lock()
			seen[i] = true
			mu.Unlock()
		})
	}
	wg.Wait()
	p.Stop()

	assert.Len(t, seen, n)
}

func TestPoolStopDrainsQueue(t *testing.T) {
	p := New(1, 8)

	var mu sync.Mutex
	ran := 0
	for i := 0; i < 5; i++ {
		p.Submit(func() {
			mu.Lock()
			ran++
			mu.Unlock()
		})
	}
	p.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, ran)
}
