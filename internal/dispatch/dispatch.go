// Package dispatch serializes events per conversation while running
// different conversations in parallel under a global ceiling.
package dispatch

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/docbot/docbot/internal/chat"
	"github.com/docbot/docbot/pkg/logger"
	"github.com/docbot/docbot/pkg/metrics"
)

// ErrClosed is returned by Submit after Shutdown.
var ErrClosed = errors.New("dispatcher closed")

// Handler processes one event.
type Handler func(ctx context.Context, ev chat.Event)

type item struct {
	ctx context.Context
	ev  chat.Event
}

// lane is the FIFO of pending events for one conversation. A lane exists only
// while it has work; its goroutine exits when the queue drains.
type lane struct {
	pending []item
}

// Dispatcher runs a Handler with one worker per conversation.
type Dispatcher struct {
	handle Handler
	sem    *semaphore.Weighted
	log    *logger.Logger

	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
	wg     sync.WaitGroup
}

// New creates a dispatcher running at most limit handlers at once.
func New(handle Handler, limit int, log *logger.Logger) *Dispatcher {
	if limit < 1 {
		limit = 1
	}
	return &Dispatcher{
		handle: handle,
		sem:    semaphore.NewWeighted(int64(limit)),
		log:    log,
		lanes:  make(map[string]*lane),
	}
}

// Submit queues ev behind earlier events of the same conversation. It never
// blocks on handler work.
func (d *Dispatcher) Submit(ctx context.Context, ev chat.Event) error {
	id := ev.Key.String()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}

	if l, ok := d.lanes[id]; ok {
		l.pending = append(l.pending, item{ctx: ctx, ev: ev})
		return nil
	}

	l := &lane{pending: []item{{ctx: ctx, ev: ev}}}
	d.lanes[id] = l
	d.wg.Add(1)
	metrics.IncrementLanes()
	go d.run(id, l)
	return nil
}

func (d *Dispatcher) run(id string, l *lane) {
	defer d.wg.Done()
	defer metrics.DecrementLanes()

	for {
		d.mu.Lock()
		if len(l.pending) == 0 {
			delete(d.lanes, id)
			d.mu.Unlock()
			return
		}
		next := l.pending[0]
		l.pending[0] = item{}
		l.pending = l.pending[1:]
		d.mu.Unlock()

		d.process(next)
	}
}

func (d *Dispatcher) process(it item) {
	if err := d.sem.Acquire(it.ctx, 1); err != nil {
		d.log.Warn("Dropping event, context done before a worker was free",
			zap.String("conversation", it.ev.Key.String()),
			zap.Error(err),
		)
		return
	}
	defer d.sem.Release(1)

	d.handle(it.ctx, it.ev)
}

// Active returns the number of conversations with pending or running work.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lanes)
}

// Shutdown stops accepting events and waits for queued work to finish or
// ctx to end.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
