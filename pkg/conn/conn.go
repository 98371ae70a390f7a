// Package conn implements the per-socket Connection object (spec §3, C3
// in the module map): a raw file descriptor, its receive ring, a send
// lock, and the tagged user-data slot callers attach their own state to.
package conn

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"eventwire/internal/ring"
	"eventwire/pkg/errs"
	"eventwire/pkg/event"
	"eventwire/pkg/netaddr"
	"eventwire/pkg/wire"
)

// State is the connection's lifecycle stage.
type State int32

const (
	StateUnconnected State = iota
	StateConnected
	StateClosed
)

// Owner is the connection's non-owning back-pointer to whatever accepted
// or dialed it (the listener). Defined here, implemented there, so conn
// never imports listener and no import cycle can form.
type Owner interface {
	// NotifyDisconnect is called exactly once, from Disconnect, so the
	// owner can route an on_disconnect/on_server_disconnect event and
	// drop its own reference to the connection.
	NotifyDisconnect(c *Connection)
}

// Connection wraps one accepted or dialed TCP socket. Put/TryDecode on
// its Ring are only ever called from the listener goroutine that owns
// it, so Ring itself carries no locking; Send is the one operation other
// goroutines (consumer callbacks, user code) may call concurrently,
// hence the dedicated sendMu.
type Connection struct {
	fd     int
	state  atomic.Int32
	ring   *ring.Ring
	sendMu sync.Mutex

	owner  Owner
	remote netaddr.Address

	userDataMu sync.Mutex
	userData   UserData

	// StrictDecode opts this connection's frames into packet.IsValid
	// validation (SPEC_FULL §4, resolving the lazy-vs-strict decode
	// Open Question in favor of an opt-in).
	StrictDecode bool

	closeOnce sync.Once
}

// New wraps an already-connected fd. ringCapacity <= 0 uses
// ring.DefaultCapacity.
func New(fd int, remote netaddr.Address, owner Owner, ringCapacity int) *Connection {
	c := &Connection{
		fd:     fd,
		ring:   ring.New(ringCapacity),
		owner:  owner,
		remote: remote,
	}
	c.state.Store(int32(StateConnected))
	return c
}

// Fd returns the raw file descriptor, for registration with a Poller.
func (c *Connection) Fd() int { return c.fd }

// Remote returns the peer address captured at accept/dial time.
func (c *Connection) Remote() netaddr.Address { return c.remote }

// State reports the connection's current lifecycle stage.
func (c *Connection) State() State { return State(c.state.Load()) }

// UserData returns the connection's tagged user-data slot. Callers
// mutating it concurrently with reads from other goroutines should treat
// the returned pointer's methods as safe (guarded internally); Get/Set
// calls are short, so a coarse mutex per-connection is sufficient rather
// than building lock-free access for a user-facing convenience field.
func (c *Connection) UserData() *lockedUserData {
	return &lockedUserData{mu: &c.userDataMu, data: &c.userData}
}

// lockedUserData adapts UserData's plain methods to be safe for
// concurrent use from consumer callbacks running on different goroutines
// than the listener.
type lockedUserData struct {
	mu   *sync.Mutex
	data *UserData
}

func (l *lockedUserData) Kind() DataKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data.Kind()
}

func (l *lockedUserData) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data.Reset()
}

func (l *lockedUserData) SetI8(v int8) error { l.mu.Lock(); defer l.mu.Unlock(); return l.data.SetI8(v) }
func (l *lockedUserData) SetI32(v int32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data.SetI32(v)
}
func (l *lockedUserData) SetI64(v int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data.SetI64(v)
}
func (l *lockedUserData) SetF32(v float32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data.SetF32(v)
}
func (l *lockedUserData) SetF64(v float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data.SetF64(v)
}
func (l *lockedUserData) SetStr(v string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data.SetStr(v)
}
func (l *lockedUserData) SetPtr(v interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data.SetPtr(v)
}

func (l *lockedUserData) GetI8() (int8, error) { l.mu.Lock(); defer l.mu.Unlock(); return l.data.GetI8() }
func (l *lockedUserData) GetI32() (int32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data.GetI32()
}
func (l *lockedUserData) GetI64() (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data.GetI64()
}
func (l *lockedUserData) GetF32() (float32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data.GetF32()
}
func (l *lockedUserData) GetF64() (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data.GetF64()
}
func (l *lockedUserData) GetStr() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data.GetStr()
}
func (l *lockedUserData) GetPtr() (interface{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data.GetPtr()
}

// Feed appends freshly read bytes into the connection's ring. Only the
// listener goroutine that owns this connection may call it.
func (c *Connection) Feed(b []byte) bool {
	return c.ring.Put(b)
}

// TryDecode attempts to pull one event out of the connection's ring,
// applying StrictDecode. Only the owning listener goroutine may call it.
func (c *Connection) TryDecode() (event.Event, ring.DecodeResult) {
	return c.ring.TryDecode(c.StrictDecode)
}

// Send writes one event as a length-prefixed frame. Safe to call from
// any goroutine; concurrent Sends are serialized by sendMu so frames
// from different callers never interleave on the wire.
func (c *Connection) Send(ev event.Event) error {
	if c.State() != StateConnected {
		return errs.ErrSendFailed
	}
	if ev.Name == "" {
		return errs.ErrEmptySend
	}

	var body []byte
	if ev.Packet != nil {
		body = ev.Packet.Bytes()
	}
	frame := wire.Encode(nil, ev.Name, body)

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	for written := 0; written < len(frame); {
		n, err := unix.Write(c.fd, frame[written:])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err == unix.EAGAIN {
				continue
			}
			return errs.ErrSendFailed
		}
		written += n
	}
	return nil
}

// Disconnect closes the underlying socket and notifies the owner exactly
// once, even if called concurrently from multiple goroutines (e.g. a
// read-loop error path racing a user-initiated close).
func (c *Connection) Disconnect() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		unix.Close(c.fd)
		if c.owner != nil {
			c.owner.NotifyDisconnect(c)
		}
	})
}
