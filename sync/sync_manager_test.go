package sync

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionLocksHandOutOneMutexPerSession(t *testing.T) {
	locks := NewSessionLocks()

	a := locks.Get("session-a")
	b := locks.Get("session-b")
	assert.NotSame(t, a, b)
	assert.Same(t, a, locks.Get("session-a"), "same session, same mutex")

	locks.Forget("session-a")
	assert.NotSame(t, a, locks.Get("session-a"), "forgotten sessions get a fresh mutex")
}

func TestSessionLocksConcurrentGet(t *testing.T) {
	locks := NewSessionLocks()

	var wg sync.WaitGroup
	results := make([]*sync.Mutex, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = locks.Get("shared")
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestSessionLockSerializesCriticalSections(t *testing.T) {
	locks := NewSessionLocks()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock := locks.Get("session-x")
			lock.Lock()
			counter++
			lock.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, counter)
}

func TestApplyStatDeltasEmptyIsNoop(t *testing.T) {
	sm := NewSyncManager(nil)
	assert.NoError(t, sm.ApplyStatDeltas(nil))
}
