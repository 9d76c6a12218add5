package threadpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// E6: 4 workers, 10,000 one-increment tasks on a shared counter, graceful
// shutdown, counter equals 10,000 and the shutdown hook fires exactly once.
func TestSharedQueuePoolGracefulShutdown(t *testing.T) {
	pool := NewSharedQueuePool(4)

	var counter atomic.Int64
	const tasks = 10000
	for i := 0; i < tasks; i++ {
		pool.Spawn(func() { counter.Add(1) })
	}

	hook := pool.GracefulShutdown()

	select {
	case <-hook:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown hook never fired")
	}

	require.Equal(t, int64(tasks), counter.Load())

	// The hook channel must be closed, not merely readable once: a second
	// receive must also return immediately (closed channels never block).
	select {
	case _, open := <-hook:
		require.False(t, open)
	default:
		t.Fatal("hook channel should be closed and immediately readable")
	}
}

func TestSharedQueuePoolImmediateShutdown(t *testing.T) {
	pool := NewSharedQueuePool(2)

	started := make(chan struct{})
	release := make(chan struct{})
	pool.Spawn(func() {
		close(started)
		<-release
	})
	<-started

	hook := pool.Shutdown()
	close(release)

	select {
	case <-hook:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown hook never fired")
	}
}

func TestSharedQueuePoolRecoversFromPanickingTask(t *testing.T) {
	pool := NewSharedQueuePool(2)

	var wg sync.WaitGroup
	var ok atomic.Int64

	wg.Add(1)
	pool.Spawn(func() {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait()

	// The pool must still accept and run work after a panic; a fresh
	// worker is recruited to replace the one that died.
	var done sync.WaitGroup
	done.Add(1)
	pool.Spawn(func() {
		defer done.Done()
		ok.Add(1)
	})
	done.Wait()

	require.Equal(t, int64(1), ok.Load())
}
