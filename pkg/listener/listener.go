// Package listener implements EventListener (spec §4, C5 in the module
// map): the accept/read event loop that owns a set of connections and
// consumers, decodes frames off the wire, and routes them onto the
// queues the attached consumers are bound to. Grounded on the original's
// EventListener run loop (poll, accept, read, decode, dispatch) and on
// the teacher's internal/app wiring style for start/stop/Join lifecycle
// methods.
package listener

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"

	"eventwire/internal/ring"
	"eventwire/pkg/conn"
	"eventwire/pkg/consumer"
	"eventwire/pkg/errs"
	"eventwire/pkg/event"
	"eventwire/pkg/logging"
	"eventwire/pkg/metrics"
	"eventwire/pkg/netaddr"
	"eventwire/pkg/netpoll"
	"eventwire/pkg/queue"
	"eventwire/pkg/slot"
)

// waitTimeoutMS bounds each poller.Wait call so the loop can still
// observe a Close request promptly even with no socket activity.
const waitTimeoutMS = 250

// Config controls per-listener tuning knobs.
type Config struct {
	RingCapacity        int
	StrictDecodeDefault bool
	AcceptRatePerSecond float64 // 0 disables accept-rate limiting
	AcceptBurst         int

	// MaxQueue is the default per-link queue capacity handed to every
	// attached consumer at Run time (spec §6's EventListener(max_queue=1000)).
	// A consumer's own SetQueueCapacity, if set, takes precedence. <= 0
	// falls back to queue.DefaultCapacity.
	MaxQueue int
}

// Listener owns a listening socket (optional — a client-only listener
// has none), a set of client connections, and the consumers bound to
// them. AddConsumer, SetOnConnect and Listen fail with ErrListenerRunning
// once Run has started; Connect may be called before or after Run.
type Listener struct {
	cfg Config

	mu        sync.Mutex
	consumers []*consumer.Consumer
	running   atomic.Bool

	linkTable   *queue.LinkTable
	queueOwners map[*queue.Queue[queue.Item]]*consumer.Consumer

	poller   netpoll.Poller
	listenFd int

	connsMu sync.Mutex
	conns   map[int]*conn.Connection

	acceptLimiter *rate.Limiter

	onConnect slot.Slot[func(*conn.Connection)]

	stop chan struct{}
	wg   sync.WaitGroup
}

// New constructs an unattached, unstarted listener.
func New(cfg Config) (*Listener, error) {
	p, err := netpoll.New()
	if err != nil {
		return nil, fmt.Errorf("listener: %w: %v", errs.ErrPollerCreate, err)
	}
	l := &Listener{
		cfg:         cfg,
		linkTable:   queue.NewLinkTable(),
		queueOwners: make(map[*queue.Queue[queue.Item]]*consumer.Consumer),
		poller:      p,
		listenFd:    -1,
		conns:       make(map[int]*conn.Connection),
	}
	if cfg.AcceptRatePerSecond > 0 {
		burst := cfg.AcceptBurst
		if burst <= 0 {
			burst = 1
		}
		l.acceptLimiter = rate.NewLimiter(rate.Limit(cfg.AcceptRatePerSecond), burst)
	}
	return l, nil
}

// SetOnConnect registers the listener's on_connect slot (spec §4.4/§5):
// invoked synchronously for every connection this listener adopts,
// before the connection is registered with the poller or any event can
// be dispatched from it. For accepted connections it runs on the
// listener's own goroutine; for dialed ones it runs on the goroutine
// that called Connect. A panic inside fn is recovered and logged, the
// same as any other slot invocation, so one bad callback can't take
// down the accept loop. Must be called before Run.
func (l *Listener) SetOnConnect(fn func(*conn.Connection)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running.Load() {
		return errs.ErrListenerRunning
	}
	l.onConnect.Set(fn)
	return nil
}

// AddConsumer registers c with the listener. Must be called before Run.
func (l *Listener) AddConsumer(c *consumer.Consumer) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running.Load() {
		return errs.ErrListenerRunning
	}
	l.consumers = append(l.consumers, c)
	return nil
}

// Listen opens a listening socket bound to addr (TCPServer mode).
func (l *Listener) Listen(addr netaddr.Address) error {
	if l.running.Load() {
		return errs.ErrListenerRunning
	}
	family := unix.AF_INET
	if addr.IP.To4() == nil {
		family = unix.AF_INET6
	}
	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return fmt.Errorf("listener: %w: %v", errs.ErrBindFailed, err)
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)

	sa, aerr := sockaddrFor(addr, family)
	if aerr != nil {
		unix.Close(fd)
		return aerr
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return fmt.Errorf("listener: %w: %v", errs.ErrBindFailed, err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return fmt.Errorf("listener: %w: %v", errs.ErrListenFailed, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return fmt.Errorf("listener: %w: %v", errs.ErrCantSetNonblocking, err)
	}
	l.listenFd = fd
	return nil
}

// Addr returns the address the listening socket is actually bound to,
// useful after Listen was called with port 0.
func (l *Listener) Addr() (netaddr.Address, error) {
	if l.listenFd < 0 {
		return netaddr.Address{}, errs.ErrInvalidSocketAddress
	}
	sa, err := unix.Getsockname(l.listenFd)
	if err != nil {
		return netaddr.Address{}, err
	}
	return remoteFromSockaddr(sa), nil
}

// closeListenSocket closes this listener's listening fd, if any, leaving
// it able to Listen again. Used by TCPServer.Detach.
func (l *Listener) closeListenSocket() {
	if l.listenFd >= 0 {
		unix.Close(l.listenFd)
		l.listenFd = -1
	}
}

func sockaddrFor(addr netaddr.Address, family int) (unix.Sockaddr, error) {
	if family == unix.AF_INET {
		var sa unix.SockaddrInet4
		sa.Port = addr.Port
		copy(sa.Addr[:], addr.IP.To4())
		return &sa, nil
	}
	var sa unix.SockaddrInet6
	sa.Port = addr.Port
	copy(sa.Addr[:], addr.IP.To16())
	return &sa, nil
}

// Connect dials addr and adopts the resulting connection (TCPClient
// mode). The connection is registered with this listener's poller and
// routed through the same link table as accepted connections.
func (l *Listener) Connect(addr netaddr.Address, timeout time.Duration) (*conn.Connection, error) {
	fd, err := netaddr.DialTimeout(addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("listener: %w: %v", errs.ErrConnectFailed, err)
	}
	return l.adopt(fd, addr), nil
}

func (l *Listener) adopt(fd int, remote netaddr.Address) *conn.Connection {
	c := conn.New(fd, remote, l, l.cfg.RingCapacity)
	c.StrictDecode = l.cfg.StrictDecodeDefault

	l.connsMu.Lock()
	l.conns[fd] = c
	l.connsMu.Unlock()

	// on_connect runs inline, before the fd is handed to the poller, so
	// it strictly precedes any event delivered from this connection.
	slot.Call1(&l.onConnect, c, "on_connect")

	if !l.poller.Add(fd) {
		logging.Warn("poller_add_failed", "fd", fd)
	}
	metrics.ConnectionsAccepted.Inc()
	metrics.ConnectionsActive.Inc()
	return c
}

// Run builds the link table from every added consumer (detecting
// EventCollision across them) and starts the background event loop.
// Returns errs.ErrListenerRunning if already running.
func (l *Listener) Run() error {
	if !l.running.CompareAndSwap(false, true) {
		return errs.ErrListenerRunning
	}

	l.mu.Lock()
	for _, c := range l.consumers {
		if err := c.Attach(l.linkTable, l.cfg.MaxQueue); err != nil {
			l.linkTable.Clear()
			for q := range l.queueOwners {
				delete(l.queueOwners, q)
			}
			l.mu.Unlock()
			l.running.Store(false)
			return err
		}
		for _, q := range c.Queues() {
			l.queueOwners[q] = c
		}
	}
	// Consumers are started only once every link is in place, so a
	// collision leaves no consumer goroutine running.
	for _, c := range l.consumers {
		if err := c.Run(); err != nil {
			l.mu.Unlock()
			l.running.Store(false)
			return err
		}
	}
	l.mu.Unlock()

	if l.listenFd >= 0 {
		if !l.poller.Add(l.listenFd) {
			l.running.Store(false)
			return fmt.Errorf("listener: %w", errs.ErrPollerAdd)
		}
	}

	l.stop = make(chan struct{})
	l.wg.Add(1)
	go l.loop()
	return nil
}

// Join blocks until the event loop and every attached consumer have
// stopped.
func (l *Listener) Join() {
	l.wg.Wait()
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.consumers {
		c.Join()
	}
}

// Close stops the event loop, closes every open connection (routing a
// final on_server_disconnect to whichever consumer bound one), and stops
// every attached consumer. Safe to call more than once.
func (l *Listener) Close() {
	if !l.running.CompareAndSwap(true, false) {
		return
	}
	close(l.stop)

	l.connsMu.Lock()
	conns := make([]*conn.Connection, 0, len(l.conns))
	for _, c := range l.conns {
		conns = append(conns, c)
	}
	l.connsMu.Unlock()
	for _, c := range conns {
		c.Disconnect()
	}

	if l.listenFd >= 0 {
		unix.Close(l.listenFd)
	}
	l.poller.Close()

	if q, ok := l.linkTable.Lookup(queue.OnServerDisconnect); ok {
		if q.TryPush(queue.Item{}) {
			l.notifyOwner(q)
		}
	}

	l.mu.Lock()
	for _, c := range l.consumers {
		c.Stop()
	}
	l.mu.Unlock()
}

// NotifyDisconnect implements conn.Owner. Invoked by Connection.Disconnect
// exactly once per connection.
func (l *Listener) NotifyDisconnect(c *conn.Connection) {
	l.connsMu.Lock()
	delete(l.conns, c.Fd())
	l.connsMu.Unlock()
	l.poller.Remove(c.Fd())
	metrics.ConnectionsActive.Dec()

	if q, ok := l.linkTable.Lookup(queue.OnDisconnect); ok {
		if q.TryPush(queue.Item{Conn: c}) {
			l.notifyOwner(q)
		}
	}
}

func (l *Listener) notifyOwner(q *queue.Queue[queue.Item]) {
	l.mu.Lock()
	owner := l.queueOwners[q]
	l.mu.Unlock()
	if owner != nil {
		owner.Notify()
	}
}

func (l *Listener) loop() {
	defer l.wg.Done()
	readBuf := make([]byte, 64*1024)

	for {
		select {
		case <-l.stop:
			return
		default:
		}

		n := l.poller.Wait(waitTimeoutMS)
		if n < 0 {
			continue
		}
		for {
			ev, ok := l.poller.NextEvent()
			if !ok {
				break
			}
			if ev.Fd == l.listenFd {
				l.acceptLoop()
				continue
			}
			l.connsMu.Lock()
			c := l.conns[ev.Fd]
			l.connsMu.Unlock()
			if c == nil {
				continue
			}
			if ev.Closed {
				c.Disconnect()
				continue
			}
			l.readAndDispatch(c, readBuf)
		}
	}
}

func (l *Listener) acceptLoop() {
	for {
		if l.acceptLimiter != nil && !l.acceptLimiter.Allow() {
			return
		}
		fd, sa, err := unix.Accept(l.listenFd)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			if err == unix.EINTR {
				continue
			}
			logging.Warn("accept_failed", "err", err)
			return
		}
		_ = unix.SetNonblock(fd, true)
		l.adopt(fd, remoteFromSockaddr(sa))
	}
}

func remoteFromSockaddr(sa unix.Sockaddr) netaddr.Address {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return netaddr.Address{IP: append([]byte(nil), a.Addr[:]...), Port: a.Port}
	case *unix.SockaddrInet6:
		return netaddr.Address{IP: append([]byte(nil), a.Addr[:]...), Port: a.Port}
	default:
		return netaddr.Address{}
	}
}

func (l *Listener) readAndDispatch(c *conn.Connection, buf []byte) {
	n, err := unix.Read(c.Fd(), buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
			return
		}
		c.Disconnect()
		return
	}
	if n == 0 {
		c.Disconnect()
		return
	}
	if !c.Feed(buf[:n]) {
		logging.Warn("ring_full_dropping_connection", "fd", c.Fd())
		c.Disconnect()
		return
	}

	for {
		ev, res := c.TryDecode()
		switch res {
		case ring.DecodeNone:
			return
		case ring.DecodeCorrupt:
			metrics.FramesCorrupt.Inc()
			continue
		case ring.DecodeOK:
			metrics.FramesDecoded.WithLabelValues(ev.Name).Inc()
			l.route(c, ev)
		}
	}
}

func (l *Listener) route(c *conn.Connection, ev event.Event) {
	item := queue.Item{Conn: c, Event: ev}
	if q, ok := l.linkTable.Lookup(ev.Name); ok {
		if q.TryPush(item) {
			l.notifyOwner(q)
			return
		}
		logging.Warn("queue_full", "event", ev.Name)
		ev.Release()
		return
	}
	if q, ok := l.linkTable.Lookup(queue.OnEvent); ok {
		if q.TryPush(item) {
			l.notifyOwner(q)
		} else {
			logging.Warn("queue_full", "event", ev.Name)
			ev.Release()
		}
		return
	}
	// No consumer wants this event at all: drop it. Release only returns
	// pooled buffers; a packet decoded off the wire wraps its own copy
	// (packet.FromBytes), so for those it is a no-op.
	ev.Release()
}

// TCPServer is an externally-owned listening socket a caller attaches
// to (and may later detach from) a Listener (spec §3/§4.4's "list of
// attached externally-owned servers", attach(server)/detach(server)).
// Unlike Listener.Listen, which opens and owns the socket directly,
// a TCPServer tracks which single Listener it's currently attached to
// so a second Attach or a Detach from the wrong Listener is rejected.
type TCPServer struct {
	mu       sync.Mutex
	addr     netaddr.Address
	listener *Listener
}

// NewTCPServer returns a server bound to addr, not yet attached to any
// listener.
func NewTCPServer(addr netaddr.Address) *TCPServer {
	return &TCPServer{addr: addr}
}

// Attach binds and starts listening on s's address through l. Fails
// with ErrListenerRunning if l is already running, or ErrAlreadyListened
// if s is already attached to a listener (this one or another).
func (s *TCPServer) Attach(l *Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errs.ErrAlreadyListened
	}
	if l.running.Load() {
		return errs.ErrListenerRunning
	}
	if err := l.Listen(s.addr); err != nil {
		return err
	}
	s.listener = l
	return nil
}

// Detach closes s's listening socket on l. Fails with
// ErrWrongParentListener if s isn't currently attached to l, or
// ErrListenerRunning if l is running (attach/detach are only legal
// while the listener is stopped, same as attach).
func (s *TCPServer) Detach(l *Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != l {
		return errs.ErrWrongParentListener
	}
	if l.running.Load() {
		return errs.ErrListenerRunning
	}
	l.closeListenSocket()
	s.listener = nil
	return nil
}

// TCPClient is an externally-owned client connection a caller attaches
// to (and may later detach from) a Listener (spec §3/§4.4's "list of
// attached externally-owned client connections", attach(client)/
// detach(client)). Attach dials the target and registers the resulting
// Connection with the listener, same as Listener.Connect, but tracks
// single-listener ownership the way TCPServer does.
type TCPClient struct {
	mu       sync.Mutex
	addr     netaddr.Address
	timeout  time.Duration
	listener *Listener
	conn     *conn.Connection
}

// NewTCPClient returns a client that will dial addr (with the given
// connect timeout) once attached.
func NewTCPClient(addr netaddr.Address, timeout time.Duration) *TCPClient {
	return &TCPClient{addr: addr, timeout: timeout}
}

// Attach dials c's target through l and registers the resulting
// connection. Fails with ErrAlreadyListened if c is already attached.
func (c *TCPClient) Attach(l *Listener) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listener != nil {
		return errs.ErrAlreadyListened
	}
	cn, err := l.Connect(c.addr, c.timeout)
	if err != nil {
		return err
	}
	c.listener = l
	c.conn = cn
	return nil
}

// Detach disconnects c's connection. Fails with ErrWrongParentListener
// if c isn't currently attached to l.
func (c *TCPClient) Detach(l *Listener) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listener != l {
		return errs.ErrWrongParentListener
	}
	if c.conn != nil {
		c.conn.Disconnect()
	}
	c.listener = nil
	c.conn = nil
	return nil
}

// Connection returns the live connection once Attach has succeeded, nil
// otherwise.
func (c *TCPClient) Connection() *conn.Connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}
