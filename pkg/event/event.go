// Package event defines the Event value exchanged between the wire codec,
// the listener and consumers (spec §3, GLOSSARY).
package event

import "eventwire/pkg/packet"

// Event is a named payload: (name, packet). Name is NUL-terminated on the
// wire; an empty name is rejected at decode time.
type Event struct {
	Name   string
	Packet *packet.Packet
}

// Make builds an Event from a name and a set of packet fields, the Go
// equivalent of SEDNL's make_event(name, args...) helper.
func Make(name string, fields ...packet.Field) (Event, error) {
	p, err := packet.Make(fields...)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: name, Packet: p}, nil
}

// Release returns the event's packet buffer to its pool, if owned.
func (e Event) Release() {
	if e.Packet != nil {
		e.Packet.Release()
	}
}
