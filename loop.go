package hxmodal

import (
	"context"
	"sync"
)

// Scheduler delivers callbacks onto the single thread that owns the page.
//
// Transports do their I/O elsewhere and Post the result back; the Modal posts
// its opened/closed emissions. Every DOM mutation therefore happens on the
// scheduler's thread.
type Scheduler interface {
	Post(task func())
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(task func())

// Post calls f(task).
func (f SchedulerFunc) Post(task func()) {
	f(task)
}

// Immediate runs every task inline on the posting goroutine.
//
// Ordering still holds for the Modal (Success runs before opened is posted),
// but callers that post from several goroutines must serialise themselves.
var Immediate Scheduler = SchedulerFunc(func(task func()) { task() })

// Loop is a FIFO task queue executed on one goroutine.
//
// Drive it with Run in production, or with Drain in tests to execute the
// queued tasks deterministically on the test goroutine:
//
//	loop := hxmodal.NewLoop()
//	go loop.Run(ctx)
//	loop.Post(func() { page.GetCreateUserForm(ctx) })
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

// NewLoop creates an empty loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post enqueues task. Safe to call from any goroutine.
func (l *Loop) Post(task func()) {
	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Drain runs queued tasks, including tasks posted while draining, until the
// queue is empty. It returns the number of tasks run.
func (l *Loop) Drain() int {
	n := 0
	for {
		task, ok := l.next()
		if !ok {
			return n
		}
		task()
		n++
	}
}

// Run executes tasks as they are posted until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task, true
}
