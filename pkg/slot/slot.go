// Package slot implements the bound-callback holder used throughout the
// engine to let a consumer register a handler without the caller having
// to commit to a fixed function signature (spec §5, GLOSSARY "Slot").
// Go has no type-erased member-function pointer the way the original
// C++ does, so a closure plays that role here: there is no separate
// SetBound; a closure that captures the receiver is passed to Set
// instead of storing a (pointer, method) pair.
package slot

import "eventwire/pkg/logging"

// Slot holds at most one callback of type F. The zero value is empty.
type Slot[F any] struct {
	fn F
	set bool
}

// Set installs fn as the slot's callback.
func (s *Slot[F]) Set(fn F) {
	s.fn = fn
	s.set = true
}

// Reset empties the slot.
func (s *Slot[F]) Reset() {
	var zero F
	s.fn = zero
	s.set = false
}

// Empty reports whether the slot currently holds no callback.
func (s *Slot[F]) Empty() bool { return !s.set }

// Get returns the held callback and whether one is set.
func (s *Slot[F]) Get() (F, bool) { return s.fn, s.set }

// Call0 invokes a zero-argument slot, recovering and logging any panic
// raised by the callback so one misbehaving handler cannot take down the
// consumer worker that's running it.
func Call0(s *Slot[func()], context string) {
	fn, ok := s.Get()
	if !ok {
		return
	}
	defer recoverAndLog(context)
	fn()
}

// Call1 invokes a one-argument slot under the same panic guard as Call0.
func Call1[A any](s *Slot[func(A)], arg A, context string) {
	fn, ok := s.Get()
	if !ok {
		return
	}
	defer recoverAndLog(context)
	fn(arg)
}

// Call2 invokes a two-argument slot under the same panic guard as Call0.
func Call2[A, B any](s *Slot[func(A, B)], a A, b B, context string) {
	fn, ok := s.Get()
	if !ok {
		return
	}
	defer recoverAndLog(context)
	fn(a, b)
}

func recoverAndLog(context string) {
	if r := recover(); r != nil {
		logging.Error("slot_panic_recovered", "context", context, "panic", r)
	}
}
