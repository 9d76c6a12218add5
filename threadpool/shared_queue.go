package threadpool

import (
	"container/list"
	"fmt"
	"os"
)

// SharedQueuePool is the master/worker actor pool from spec.md §4.6,
// ported from the original source's crossbeam_channel-based
// SharedQueueThreadPool onto goroutines and channels. A single master
// goroutine owns the waiting-task queue and the idle-worker queue and is
// the only thing that ever mutates pool state; N worker goroutines run
// tasks and report back over their own channel.
type SharedQueuePool struct {
	toMaster chan masterMessage
}

// NewSharedQueuePool starts size worker goroutines and one master
// goroutine, and returns a handle to submit work to them.
func NewSharedQueuePool(size int) *SharedQueuePool {
	toMaster := make(chan masterMessage, 1024)
	m := &master{
		toMaster:    toMaster,
		waiting:     list.New(),
		idleWorkers: list.New(),
		poolSize:    size,
		state:       stateRunning,
	}
	for i := 0; i < size; i++ {
		m.idleWorkers.PushBack(newWorkerBroker(toMaster))
	}
	go m.run()
	return &SharedQueuePool{toMaster: toMaster}
}

// Spawn submits task to the pool. If the pool is shutting down, the
// submission is logged and dropped rather than queued, matching the
// original's NewTask handling for a terminating pool.
func (p *SharedQueuePool) Spawn(task func()) {
	p.toMaster <- masterMessage{kind: msgNewTask, task: task}
}

// Shutdown begins immediate shutdown: queued tasks are dropped, running
// tasks are allowed to finish, and every worker is terminated as soon as it
// next reports idle. The returned channel is closed once every worker has
// exited.
func (p *SharedQueuePool) Shutdown() <-chan struct{} {
	hook := make(chan struct{})
	p.toMaster <- masterMessage{kind: msgTerminate, hook: hook}
	return hook
}

// GracefulShutdown stops accepting new tasks but drains the waiting queue
// first: every task submitted before this call (including ones still
// queued) runs. Once the queue is empty, idle workers are terminated and
// busy ones as they finish. The returned channel is closed once every
// worker has exited.
func (p *SharedQueuePool) GracefulShutdown() <-chan struct{} {
	hook := make(chan struct{})
	p.toMaster <- masterMessage{kind: msgGracefulShutdown, hook: hook}
	return hook
}

// --- master/worker message plumbing ---

type msgKind int

const (
	msgNewTask msgKind = iota
	msgTaskDone
	msgTerminate
	msgGracefulShutdown
	msgPanicked
)

type masterMessage struct {
	kind   msgKind
	task   func()
	worker *workerBroker
	hook   chan struct{}
}

type workerMsgKind int

const (
	workerRunTask workerMsgKind = iota
	workerTerminate
)

type workerMessage struct {
	kind workerMsgKind
	task func()
}

// workerBroker is the master's handle to one worker goroutine.
type workerBroker struct {
	ch chan workerMessage
}

func newWorkerBroker(toMaster chan<- masterMessage) *workerBroker {
	b := &workerBroker{ch: make(chan workerMessage, 1)}
	go b.run(toMaster)
	return b
}

func (b *workerBroker) run(toMaster chan<- masterMessage) {
	for msg := range b.ch {
		switch msg.kind {
		case workerRunTask:
			if b.runTask(msg.task) {
				toMaster <- masterMessage{kind: msgTaskDone, worker: b}
				continue
			}
			// The task unwound. Mirroring the original's scoped drop-guard
			// that unconditionally notifies the master on unwind, tell it
			// the worker is gone and let this goroutine exit — a goroutine
			// panic would otherwise crash the whole process (unlike a Rust
			// thread panic, which only kills that thread), so we recover
			// it here instead of letting it propagate, and the master
			// recruits a replacement rather than reusing this one.
			toMaster <- masterMessage{kind: msgPanicked}
			return
		case workerTerminate:
			return
		}
	}
}

// runTask runs task under a deferred recover, reporting ok=false if it
// panicked.
func (b *workerBroker) runTask(task func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "thread pool worker panicked: %v\n", r)
			ok = false
		}
	}()
	task()
	return true
}

func (b *workerBroker) sendTask(task func()) {
	b.ch <- workerMessage{kind: workerRunTask, task: task}
}

func (b *workerBroker) terminate() {
	b.ch <- workerMessage{kind: workerTerminate}
}

// --- master state machine ---

type poolState int

const (
	stateRunning poolState = iota
	stateGracefulShutdown
	stateTerminating
)

type master struct {
	toMaster    chan masterMessage
	waiting     *list.List // of func()
	idleWorkers *list.List // of *workerBroker

	poolSize int
	state    poolState

	endedWorkers  int
	terminateHook chan struct{}
}

func (m *master) run() {
	for msg := range m.toMaster {
		if !m.handle(msg) {
			return
		}
	}
}

// handle processes one message and returns false once the master should
// stop its loop (every worker has been told to terminate).
func (m *master) handle(msg masterMessage) bool {
	switch msg.kind {
	case msgNewTask:
		if m.state != stateRunning {
			fmt.Fprintln(os.Stderr, "thread pool: dropping task submitted to a shutting-down pool")
			return true
		}
		m.dispatch(msg.task)

	case msgTaskDone:
		switch m.state {
		case stateRunning:
			m.reclaimWorker(msg.worker)
		case stateGracefulShutdown:
			m.reclaimWorker(msg.worker)
			if m.waiting.Len() == 0 {
				return m.beginTerminating()
			}
		case stateTerminating:
			msg.worker.terminate()
			m.endedWorkers++
			if m.endedWorkers == m.poolSize {
				m.fireHook()
				return false
			}
		}

	case msgTerminate:
		// Idempotent: a pool already terminating ignores a second
		// Terminate request rather than restarting the count.
		if m.state == stateTerminating {
			return true
		}
		m.terminateHook = msg.hook
		return m.beginTerminating()

	case msgGracefulShutdown:
		if m.state == stateTerminating {
			return true
		}
		m.state = stateGracefulShutdown
		m.terminateHook = msg.hook
		if m.waiting.Len() == 0 {
			return m.beginTerminating()
		}

	case msgPanicked:
		return m.handlePanic()
	}
	return true
}

func (m *master) dispatch(task func()) {
	if e := m.idleWorkers.Front(); e != nil {
		m.idleWorkers.Remove(e)
		e.Value.(*workerBroker).sendTask(task)
		return
	}
	m.waiting.PushBack(task)
}

func (m *master) reclaimWorker(b *workerBroker) {
	if e := m.waiting.Front(); e != nil {
		m.waiting.Remove(e)
		b.sendTask(e.Value.(func()))
		return
	}
	m.idleWorkers.PushBack(b)
}

// beginTerminating switches to immediate-termination mode: every currently
// idle worker is told to terminate right away; workers still mid-task will
// be terminated as their TaskDone arrives. Assumes m.terminateHook is
// already set. Returns false if that alone finished the pool (pool size
// zero, or every worker already idle).
func (m *master) beginTerminating() bool {
	m.state = stateTerminating
	m.endedWorkers = 0
	for e := m.idleWorkers.Front(); e != nil; e = m.idleWorkers.Front() {
		m.idleWorkers.Remove(e)
		e.Value.(*workerBroker).terminate()
		m.endedWorkers++
	}
	if m.endedWorkers == m.poolSize {
		m.fireHook()
		return false
	}
	return true
}

func (m *master) fireHook() {
	if m.terminateHook != nil {
		close(m.terminateHook)
		m.terminateHook = nil
	}
}

// handlePanic reacts to a worker's drop-guard notification: in Running and
// in GracefulShutdown (which may still have queued tasks to drain), a
// replacement is recruited immediately; in Terminating, the loss is booked
// against the termination count instead of being replaced.
func (m *master) handlePanic() bool {
	switch m.state {
	case stateRunning:
		m.reclaimWorker(newWorkerBroker(m.toMaster))
	case stateGracefulShutdown:
		m.reclaimWorker(newWorkerBroker(m.toMaster))
		if m.waiting.Len() == 0 {
			return m.beginTerminating()
		}
	case stateTerminating:
		m.endedWorkers++
		if m.endedWorkers == m.poolSize {
			m.fireHook()
			return false
		}
	}
	return true
}
