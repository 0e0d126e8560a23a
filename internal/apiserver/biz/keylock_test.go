package biz

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := newKeyedMutex()

	const workers = 20
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("conv-1")
			defer unlock()
			// Unsynchronized on purpose, the keyed lock is the only
			// thing keeping this race free.
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := newKeyedMutex()

	unlockA := km.Lock("conv-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("conv-b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestKeyedMutexDropsUnusedEntries(t *testing.T) {
	km := newKeyedMutex()

	unlock1 := km.Lock("conv-1")
	unlock2 := km.Lock("conv-2")
	unlock1()
	unlock2()

	km.mu.Lock()
	defer km.mu.Unlock()
	require.Empty(t, km.locks)
}
