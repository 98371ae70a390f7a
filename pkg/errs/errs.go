// Package errs holds the sentinel errors surfaced to callers, grouped by
// the categories spec'd in §7: Network, Packet, Type (user-data) and
// Event. Callers compare with errors.Is; internal code wraps these with
// fmt.Errorf("...: %w", ...) to add context, the same idiom the rest of
// the codebase uses for error propagation.
package errs

import "errors"

// Network errors.
var (
	ErrInvalidSocketAddress = errors.New("invalid socket address")
	ErrCantRetrieveHost     = errors.New("cannot retrieve host")
	ErrConnectFailed        = errors.New("connect failed")
	ErrTimedOut             = errors.New("timed out")
	ErrBindFailed           = errors.New("bind failed")
	ErrListenFailed         = errors.New("listen failed")
	ErrCantSetNonblocking   = errors.New("cannot set socket non-blocking")
	ErrSendFailed           = errors.New("send failed")
	ErrEmptySend            = errors.New("empty send")
)

// Packet errors.
var (
	ErrInt8Expected     = errors.New("Int8 expected")
	ErrInt16Expected    = errors.New("Int16 expected")
	ErrInt32Expected    = errors.New("Int32 expected")
	ErrInt64Expected    = errors.New("Int64 expected")
	ErrUInt8Expected    = errors.New("UInt8 expected")
	ErrUInt16Expected   = errors.New("UInt16 expected")
	ErrUInt32Expected   = errors.New("UInt32 expected")
	ErrUInt64Expected   = errors.New("UInt64 expected")
	ErrFloat32Expected  = errors.New("Float32 expected")
	ErrFloat64Expected  = errors.New("Float64 expected")
	ErrStringExpected   = errors.New("String expected")
	ErrObjectExpected   = errors.New("Object expected")
	ErrArrayExpected    = errors.New("array expected")
	ErrEmptyObject      = errors.New("empty object")
	ErrObjectTooLarge   = errors.New("object too large")
	ErrWrongSizedObject = errors.New("wrong sized object")
	ErrArrayTooBig      = errors.New("array too big")
	ErrUnknownTag       = errors.New("unknown tag")
	ErrEndOfStream      = errors.New("end of packet stream")
)

// Type (user-data) errors.
var (
	ErrUserDataWrongTypeAsked = errors.New("user data wrong type asked")
	ErrUserDataWrongTypeGiven = errors.New("user data wrong type given")
)

// Event/listener errors.
var (
	ErrListenerRunning     = errors.New("listener running")
	ErrConsumerRunning     = errors.New("consumer running")
	ErrEventCollision      = errors.New("event collision")
	ErrAlreadyListened     = errors.New("already listened")
	ErrWrongParentListener = errors.New("wrong parent listener")
	ErrPollerCreate        = errors.New("poller create failed")
	ErrPollerAdd           = errors.New("poller add failed")
)
