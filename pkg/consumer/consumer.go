// Package consumer implements EventConsumer (spec §5, C7 in the module
// map): a background worker that periodically drains the queues it's
// bound to and invokes the registered slot for each item, recovering
// from any panic a handler raises so one bad callback can't stop the
// worker. Grounded on the original's EventConsumer::run_imp 200ms
// wake/timeout loop, expressed with a channel-based wake flag instead of
// a mutex+condition variable — Go's idiomatic equivalent of the same
// wait-for-wake-or-timeout pattern.
package consumer

import (
	"sync"
	"sync/atomic"
	"time"

	"eventwire/pkg/conn"
	"eventwire/pkg/errs"
	"eventwire/pkg/event"
	"eventwire/pkg/metrics"
	"eventwire/pkg/queue"
	"eventwire/pkg/slot"
)

// pollInterval matches the original's 200ms consumer wake period.
const pollInterval = 200 * time.Millisecond

type boundQueue struct {
	q        *queue.Queue[queue.Item]
	dispatch func(queue.Item)
}

// Consumer drains one or more event links and invokes the handler bound
// to each. A Consumer must be fully bound (Bind/OnDisconnect/OnEvent/
// OnServerDisconnect) before it is attached to a listener; binding after
// Run has started returns errs.ErrConsumerRunning.
type Consumer struct {
	mu                   sync.Mutex
	wantedNamed          map[string]func(*conn.Connection, event.Event)
	wantDisconnect       func(*conn.Connection)
	wantServerDisconnect func()
	wantCatchAll         func(*conn.Connection, event.Event)

	queueCapacity int
	queues        []boundQueue

	running atomic.Bool
	wake    chan struct{}
	stop    chan struct{}
	wg      sync.WaitGroup
}

// New returns an unbound, unattached consumer. Its per-link queue
// capacity defaults to whatever the listener it's attached to provides
// (spec §6's listener-level max_queue setting) unless overridden with
// SetQueueCapacity.
func New() *Consumer {
	return &Consumer{
		wantedNamed: make(map[string]func(*conn.Connection, event.Event)),
		wake:        make(chan struct{}, 1),
	}
}

// SetQueueCapacity overrides the per-link queue capacity used at Attach
// time, taking precedence over the listener's max_queue. Must be called
// before Attach.
func (c *Consumer) SetQueueCapacity(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > 0 {
		c.queueCapacity = n
	}
}

// Bind registers handler to be invoked for every event named name that
// arrives on a connection this consumer's listener owns.
func (c *Consumer) Bind(name string, handler func(*conn.Connection, event.Event)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running.Load() {
		return errs.ErrConsumerRunning
	}
	c.wantedNamed[name] = handler
	return nil
}

// OnDisconnect registers the handler invoked when a connection this
// consumer's listener owns is closed.
func (c *Consumer) OnDisconnect(handler func(*conn.Connection)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running.Load() {
		return errs.ErrConsumerRunning
	}
	c.wantDisconnect = handler
	return nil
}

// OnServerDisconnect registers the handler invoked when the owning
// listener itself shuts down.
func (c *Consumer) OnServerDisconnect(handler func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running.Load() {
		return errs.ErrConsumerRunning
	}
	c.wantServerDisconnect = handler
	return nil
}

// OnEvent registers the catch-all handler invoked for any event name
// with no consumer specifically bound to it, across the whole listener.
func (c *Consumer) OnEvent(handler func(*conn.Connection, event.Event)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running.Load() {
		return errs.ErrConsumerRunning
	}
	c.wantCatchAll = handler
	return nil
}

// Attach links every binding this consumer holds into lt, allocating one
// queue.Queue per link with capacity effectiveCapacity(listenerMaxQueue).
// Called once by the listener during startup, before any connection is
// accepted; returns errs.ErrEventCollision if another consumer already
// owns one of the requested links.
func (c *Consumer) Attach(lt *queue.LinkTable, listenerMaxQueue int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	capacity := c.effectiveCapacity(listenerMaxQueue)

	for name, handler := range c.wantedNamed {
		handler := handler
		q := queue.New[queue.Item](name, capacity)
		if err := lt.Link(name, q); err != nil {
			return err
		}
		c.queues = append(c.queues, boundQueue{q: q, dispatch: func(it queue.Item) {
			slot.Call2(asSlot(handler), it.Conn, it.Event, "event:"+name)
		}})
	}

	if c.wantDisconnect != nil {
		handler := c.wantDisconnect
		q := queue.New[queue.Item](queue.OnDisconnect, capacity)
		if err := lt.Link(queue.OnDisconnect, q); err != nil {
			return err
		}
		c.queues = append(c.queues, boundQueue{q: q, dispatch: func(it queue.Item) {
			var s slot.Slot[func(*conn.Connection)]
			s.Set(handler)
			slot.Call1(&s, it.Conn, "on_disconnect")
		}})
	}

	if c.wantServerDisconnect != nil {
		handler := c.wantServerDisconnect
		q := queue.New[queue.Item](queue.OnServerDisconnect, capacity)
		if err := lt.Link(queue.OnServerDisconnect, q); err != nil {
			return err
		}
		c.queues = append(c.queues, boundQueue{q: q, dispatch: func(queue.Item) {
			var s slot.Slot[func()]
			s.Set(handler)
			slot.Call0(&s, "on_server_disconnect")
		}})
	}

	if c.wantCatchAll != nil {
		handler := c.wantCatchAll
		q := queue.New[queue.Item](queue.OnEvent, capacity)
		if err := lt.Link(queue.OnEvent, q); err != nil {
			return err
		}
		c.queues = append(c.queues, boundQueue{q: q, dispatch: func(it queue.Item) {
			slot.Call2(asSlot(handler), it.Conn, it.Event, "on_event")
		}})
	}

	return nil
}

// effectiveCapacity resolves the per-link queue size for this Attach
// call: an explicit SetQueueCapacity override wins, otherwise the
// owning listener's max_queue, otherwise queue.DefaultCapacity.
func (c *Consumer) effectiveCapacity(listenerMaxQueue int) int {
	if c.queueCapacity > 0 {
		return c.queueCapacity
	}
	if listenerMaxQueue > 0 {
		return listenerMaxQueue
	}
	return queue.DefaultCapacity
}

// Queues returns the queues Attach created for this consumer, so the
// listener can build its push-then-notify wake routing table.
func (c *Consumer) Queues() []*queue.Queue[queue.Item] {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*queue.Queue[queue.Item], len(c.queues))
	for i, bq := range c.queues {
		out[i] = bq.q
	}
	return out
}

func asSlot(fn func(*conn.Connection, event.Event)) *slot.Slot[func(*conn.Connection, event.Event)] {
	var s slot.Slot[func(*conn.Connection, event.Event)]
	s.Set(fn)
	return &s
}

// Run starts the consumer's background worker. Returns
// errs.ErrConsumerRunning if already running.
func (c *Consumer) Run() error {
	if !c.running.CompareAndSwap(false, true) {
		return errs.ErrConsumerRunning
	}
	c.stop = make(chan struct{})
	c.wg.Add(1)
	go c.loop()
	return nil
}

// Stop signals the worker to finish its current drain pass and exit.
// Call Join afterward to wait for it.
func (c *Consumer) Stop() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}
	close(c.stop)
	c.nudge()
}

// Join blocks until the worker goroutine started by Run has exited.
func (c *Consumer) Join() {
	c.wg.Wait()
}

// nudge wakes the worker immediately instead of waiting out the rest of
// its 200ms poll interval; used when the listener pushes into a queue
// this consumer owns.
func (c *Consumer) nudge() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Notify is called by the listener after a successful push into one of
// this consumer's queues, so it doesn't have to wait a full poll
// interval to see newly arrived work.
func (c *Consumer) Notify() {
	c.nudge()
}

func (c *Consumer) loop() {
	defer c.wg.Done()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			c.drainAll()
			return
		case <-ticker.C:
		case <-c.wake:
		}
		c.drainAll()
	}
}

func (c *Consumer) drainAll() {
	for _, bq := range c.queues {
		metrics.ConsumerWakeups.WithLabelValues(bq.q.Name()).Inc()
	drain:
		for {
			select {
			case it := <-bq.q.C():
				bq.dispatch(it)
			default:
				break drain
			}
		}
	}
}
