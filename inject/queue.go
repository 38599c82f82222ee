// Package inject activates scripts in an execution environment one at a time,
// in the order they were queued.
package inject

import (
	"context"
	"sync"

	"github.com/agentuity/scriptcache/logger"
)

// Environment is the page scripts are activated in.
type Environment interface {
	// Inline executes text immediately.
	Inline(text string) error
	// Reference adds a script loaded from url. The environment calls loaded
	// exactly once, when the script has finished loading or has failed.
	Reference(url string, loaded func(error)) error
}

// Task is one pending activation. When ViaReference is true Content is a URL,
// otherwise it is script text. Done, if set, receives the activation result.
type Task struct {
	Content      string
	ViaReference bool
	Done         func(error)
}

// Inline returns a literal-text task.
func Inline(text string, done func(error)) Task {
	return Task{Content: text, Done: done}
}

// Reference returns a by-reference task.
func Reference(url string, done func(error)) Task {
	return Task{Content: url, ViaReference: true, Done: done}
}

type item struct {
	task     Task
	complete func() // set on completion markers only
}

// Queue is a FIFO of tasks with a single consumer.
type Queue struct {
	ctx      context.Context
	cancel   context.CancelFunc
	env      Environment
	logger   logger.Logger
	mu       sync.Mutex
	items    []item
	draining bool
	wg       sync.WaitGroup
}

// NewQueue returns an empty queue feeding env. Cancelling ctx or calling Close
// stops the consumer.
func NewQueue(ctx context.Context, log logger.Logger, env Environment) *Queue {
	ctx, cancel := context.WithCancel(ctx)
	return &Queue{
		ctx:    ctx,
		cancel: cancel,
		env:    env,
		logger: log.WithPrefix("[queue]"),
	}
}

// Enqueue appends tasks to the tail as one contiguous run.
func (q *Queue) Enqueue(tasks ...Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range tasks {
		q.items = append(q.items, item{task: t})
	}
}

// Drain processes the queue and calls onComplete once every task queued before
// this call has run. It returns immediately; a consumer is started only if one
// is not already running, so concurrent calls neither reorder tasks nor
// duplicate completions.
func (q *Queue) Drain(onComplete func()) {
	if onComplete == nil {
		onComplete = func() {}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item{complete: onComplete})
	if q.draining {
		return
	}
	q.draining = true
	q.wg.Add(1)
	go q.run()
}

// Len is the number of pending tasks, completion markers excluded.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	var n int
	for _, it := range q.items {
		if it.complete == nil {
			n++
		}
	}
	return n
}

// Close stops the consumer. A reference task waiting for its load signal is
// abandoned and completions still queued are not invoked.
func (q *Queue) Close() {
	q.cancel()
	q.wg.Wait()
}

func (q *Queue) next() (item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 || q.ctx.Err() != nil {
		q.draining = false
		return item{}, false
	}
	it := q.items[0]
	q.items[0] = item{}
	q.items = q.items[1:]
	return it, true
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		it, ok := q.next()
		if !ok {
			return
		}
		if it.complete != nil {
			it.complete()
			continue
		}
		err := q.activate(it.task)
		if q.ctx.Err() != nil {
			// the load signal never arrived
			q.mu.Lock()
			q.draining = false
			q.mu.Unlock()
			return
		}
		if err != nil {
			q.logger.Debug("activation failed: %s", err)
		}
		if it.task.Done != nil {
			it.task.Done(err)
		}
	}
}

func (q *Queue) activate(t Task) error {
	if !t.ViaReference {
		return q.env.Inline(t.Content)
	}
	loaded := make(chan error, 1)
	var once sync.Once
	if err := q.env.Reference(t.Content, func(err error) {
		once.Do(func() { loaded <- err })
	}); err != nil {
		return err
	}
	select {
	case err := <-loaded:
		return err
	case <-q.ctx.Done():
		return q.ctx.Err()
	}
}
