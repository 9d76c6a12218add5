// Package threadpool provides the thread pool abstractions the server uses
// to dispatch request handling off the accept loop: a trivial
// goroutine-per-task pool, a master/worker shared-queue actor pool with
// graceful and immediate shutdown, and a bounded pool that caps concurrent
// tasks with a golang.org/x/sync/semaphore.
package threadpool

// ThreadPool is the common abstraction every pool kind implements: submit
// a task, it runs somewhere, eventually.
type ThreadPool interface {
	// Spawn submits task to the pool. Depending on the implementation and
	// its current state, task may run immediately, be queued, or be
	// dropped (shared_queue logs and drops submissions after shutdown
	// has begun).
	Spawn(task func())
}
