// Package notify delivers ledger events to agents and admins after the ledger
// transaction has committed. Delivery failures are logged and never reach the
// operation that produced the event.
package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"neelgund-backend/internal/event"
)

// Sink delivers one rendered message somewhere.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, m Message) error
}

// Dispatcher is an event.Publisher backed by a buffered queue and one worker.
type Dispatcher struct {
	queue   chan event.Event
	sinks   []Sink
	timeout time.Duration
	wg      sync.WaitGroup
	once    sync.Once

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(buffer int, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Dispatcher{
		queue:   make(chan event.Event, buffer),
		sinks:   sinks,
		timeout: 15 * time.Second,
	}
}

// Start launches the worker. Call Close to drain and stop it.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for e := range d.queue {
			d.deliver(e)
		}
	}()
}

// Publish enqueues events without blocking; events that do not fit are dropped.
func (d *Dispatcher) Publish(events ...event.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		for _, e := range events {
			log.Printf("notify: dispatcher closed, dropping %s event for agent %s", e.Kind, e.AgentID)
		}
		return
	}
	for _, e := range events {
		select {
		case d.queue <- e:
		default:
			log.Printf("notify: queue full, dropping %s event for agent %s", e.Kind, e.AgentID)
		}
	}
}

// Close stops accepting events and waits for the queue to drain. Events
// published afterwards are dropped.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	d.wg.Wait()
}

func (d *Dispatcher) deliver(e event.Event) {
	m := Render(e)
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		func() {
			defer cancel()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("notify: %s sink panicked on %s: %v", sink.Name(), e.Kind, r)
				}
			}()
			if err := sink.Deliver(ctx, m); err != nil {
				log.Printf("notify: %s sink failed on %s for agent %s: %v", sink.Name(), e.Kind, e.AgentID, err)
			}
		}()
	}
}
