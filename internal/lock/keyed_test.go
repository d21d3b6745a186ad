package lock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	const workers = 16
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := km.Lock("device-1")
			defer release()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestKeyedMutex_DistinctKeysDoNotContend(t *testing.T) {
	km := NewKeyedMutex()

	releaseA := km.Lock("a")
	defer releaseA()

	done := make(chan struct{})
	go func() {
		release := km.Lock("b")
		release()
		close(done)
	}()

	<-done
}

func TestKeyedMutex_ReleaseIsIdempotent(t *testing.T) {
	km := NewKeyedMutex()

	release := km.Lock("a")
	release()
	release()

	// Lock is free again after double release.
	release2 := km.Lock("a")
	release2()
}

func TestKeyedMutex_EvictsUnusedKeys(t *testing.T) {
	km := NewKeyedMutex()

	release := km.Lock("a")
	release()

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.locks)
}
