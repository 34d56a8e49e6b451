package resource

import (
	"context"
	"fmt"
)

// ID identifies a handle in a Registry: the slot generation in the high 32
// bits and the slot number plus one in the low 32 bits. A slot reused after
// release gets a new generation, so a stale ID never aliases a live handle.
// ID 0 is always invalid.
type ID uint64

func makeID(slot, gen uint32) ID {
	return ID(uint64(gen)<<32 | uint64(slot+1))
}

func (id ID) slot() (uint32, bool) {
	low := uint32(id)
	if low == 0 {
		return 0, false
	}
	return low - 1, true
}

func (id ID) generation() uint32 {
	return uint32(id >> 32)
}

func (id ID) String() string {
	return fmt.Sprintf("%d@%d", uint32(id), id.generation())
}

// State is the lifecycle state of a handle. The only transition is
// Valid to Released.
type State uint8

const (
	StateUnknown State = iota
	StateValid
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateReleased:
		return "released"
	}
	return "unknown"
}

// DropFunc destroys the native resource behind a released handle. It is
// called once per native resource, after its last handle is released and
// its last borrow returns.
type DropFunc func(ctx context.Context, typeName string, native uint64) error

// Event types for handle lifecycle notifications.
type EventType uint8

const (
	EventBound EventType = iota
	EventReleased
	EventDropped
	EventBorrowed
	EventBorrowReturned
)

var eventNames = [...]string{
	EventBound:          "bound",
	EventReleased:       "released",
	EventDropped:        "dropped",
	EventBorrowed:       "borrowed",
	EventBorrowReturned: "borrow_returned",
}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Event represents a handle lifecycle event.
type Event struct {
	Err      error
	TypeName string
	Native   uint64
	ID       ID
	Borrows  int
	Type     EventType
}

// Observer receives notifications about handle lifecycle events. Observers
// are called outside the registry lock.
type Observer interface {
	OnHandleEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnHandleEvent(e Event) { f(e) }

// Dropper is optionally implemented by values stored in an Objects table
// that need cleanup when dropped.
type Dropper interface {
	Drop()
}
