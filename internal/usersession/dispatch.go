package usersession

import (
	"context"
	"sync"
)

type delivery struct {
	ctx       context.Context
	snapshot  Snapshot
	listeners []Listener
}

// dispatcher delivers snapshots to listeners on its own goroutine, in the
// order they were pushed. Listeners therefore run without any facade or
// synchronizer lock held and may call back into the Facade.
type dispatcher struct {
	mu     sync.Mutex
	queue  []delivery
	closed bool

	wake chan struct{}
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		wake: make(chan struct{}, 1),
	}
}

// push enqueues s for listeners. It never blocks and is a no-op once closed.
func (d *dispatcher) push(ctx context.Context, s Snapshot, listeners []Listener) {
	if len(listeners) == 0 {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, delivery{
		ctx:       context.WithoutCancel(ctx),
		snapshot:  s,
		listeners: listeners,
	})
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// run delivers queued snapshots until close. Snapshots queued before close
// are still delivered.
func (d *dispatcher) run() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			closed := d.closed
			d.mu.Unlock()
			if closed {
				return
			}
			<-d.wake
			continue
		}
		next := d.queue[0]
		d.queue[0] = delivery{}
		d.queue = d.queue[1:]
		d.mu.Unlock()

		for _, l := range next.listeners {
			l(next.ctx, next.snapshot)
		}
	}
}

// close stops accepting snapshots. It does not wait for run to return, so a
// listener may trigger it.
func (d *dispatcher) close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true

	select {
	case d.wake <- struct{}{}:
	default:
	}
}
