package queue

import (
	"eventwire/pkg/conn"
	"eventwire/pkg/errs"
	"eventwire/pkg/event"
)

// Reserved link keys for the three lifecycle callbacks every consumer may
// bind in addition to named events (spec §5). They share the same
// EventCollision rule as named events: at most one consumer queue may be
// linked to each.
const (
	OnDisconnect       = "on_disconnect"
	OnServerDisconnect = "on_server_disconnect"
	OnEvent            = "on_event"
)

// Item is what flows through an event link: the connection an event
// arrived on, paired with the event itself. Lifecycle items set only the
// field(s) that apply: OnDisconnect items carry Conn with a zero Event;
// OnServerDisconnect items carry neither.
type Item struct {
	Conn  *conn.Connection
	Event event.Event
}

// LinkTable maps a link name (an event name, or one of the reserved
// lifecycle keys) to the single queue authorized to receive it. It is
// built once, at listener startup, before any connection is accepted,
// and is read-only for the rest of the listener's life — so no locking
// is needed once Listener.Run has built it.
type LinkTable struct {
	links map[string]*Queue[Item]
}

// NewLinkTable returns an empty table.
func NewLinkTable() *LinkTable {
	return &LinkTable{links: make(map[string]*Queue[Item])}
}

// Link binds name to q. It fails with errs.ErrEventCollision if name is
// already bound to a different queue: SEDNL's "can't bind two consumers
// to the same event" invariant, so dispatch is always unambiguous.
func (lt *LinkTable) Link(name string, q *Queue[Item]) error {
	if existing, ok := lt.links[name]; ok && existing != q {
		return errs.ErrEventCollision
	}
	lt.links[name] = q
	return nil
}

// Lookup returns the queue bound to name, if any.
func (lt *LinkTable) Lookup(name string) (*Queue[Item], bool) {
	q, ok := lt.links[name]
	return q, ok
}

// Clear empties the table. Used when building the table at listener
// startup fails partway through (an EventCollision from a later
// consumer must not leave the earlier consumers' links behind) so a
// retry after fixing the bindings starts from a clean table.
func (lt *LinkTable) Clear() {
	lt.links = make(map[string]*Queue[Item])
}

// Queues returns every distinct queue registered in the table, for
// consumer workers that need to enumerate what they're draining.
func (lt *LinkTable) Queues() []*Queue[Item] {
	seen := make(map[*Queue[Item]]bool, len(lt.links))
	out := make([]*Queue[Item], 0, len(lt.links))
	for _, q := range lt.links {
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	return out
}
