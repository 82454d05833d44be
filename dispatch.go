package tcpclient

import (
	"sync"

	"go.uber.org/zap"
)

// dispatcher runs submitted units of work on a single goroutine, strictly
// in submission order. A Registry owns two of them: one serializing all
// outbound work and one serializing all inbound work, across every
// connection.
type dispatcher struct {
	name   string
	logger *zap.Logger
	tasks  chan func()
	quit   chan struct{}
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

func newDispatcher(name string, depth int, logger *zap.Logger) *dispatcher {
	d := &dispatcher{
		name:   name,
		logger: logger,
		tasks:  make(chan func(), depth),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case <-d.quit:
			d.drain()
			return
		case fn := <-d.tasks:
			fn()
		}
	}
}

// drain runs whatever was queued before close was observed. Nothing can
// enter the queue afterwards: submit enqueues under the same lock that
// close uses to set the closed flag.
func (d *dispatcher) drain() {
	for {
		select {
		case fn := <-d.tasks:
			fn()
		default:
			return
		}
	}
}

// submit enqueues fn behind all previously submitted work. It blocks
// while the queue is full. Work submitted after close is dropped with a
// debug log; work accepted before close is guaranteed to run.
func (d *dispatcher) submit(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.logger.Debug("dropping work submitted after close", zap.String("queue", d.name))
		return
	}
	d.tasks <- fn
}

// close stops the worker after it finishes the already-queued work.
// Safe to call more than once.
func (d *dispatcher) close() {
	d.mu.Lock()
	alreadyClosed := d.closed
	d.closed = true
	d.mu.Unlock()

	if !alreadyClosed {
		close(d.quit)
	}
	<-d.done
}
