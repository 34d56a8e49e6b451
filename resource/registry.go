package resource

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/wippyai/bindgen/errors"
)

type nativeKey struct {
	typeName string
	native   uint64
}

type entry struct {
	typeName string
	native   uint64
	borrows  int
	gen      uint32
	state    State
}

// Registry tracks the caller-side lifecycle of native resource handles.
// Every state transition happens under one mutex; native disposal runs
// outside it, after the last outstanding borrow has returned.
type Registry struct {
	drop      DropFunc
	byNative  map[nativeKey]ID
	held      map[nativeKey]int
	pending   map[nativeKey]ID
	entries   []entry
	freeList  []uint32
	observers []observerEntry
	nextObs   int
	live      int
	mu        sync.Mutex
	obsMu     sync.RWMutex
	closed    bool
}

type observerEntry struct {
	o  Observer
	id int
}

// NewRegistry creates a registry that disposes native resources through drop.
// A nil drop only tracks state.
func NewRegistry(drop DropFunc) *Registry {
	return &Registry{
		drop:     drop,
		byNative: make(map[nativeKey]ID),
		held:     make(map[nativeKey]int),
		pending:  make(map[nativeKey]ID),
		entries:  make([]entry, 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

// Bind registers a native resource returned by the native core. A native
// identity that is already bound and valid maps to the same ID; created
// reports whether a new handle was made. Binding an identity whose handle was
// released but is still borrowed cancels that handle's pending drop.
func (r *Registry) Bind(typeName string, native uint64) (id ID, created bool, err error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, false, errors.Closed(errors.PhaseDecode, "handle registry")
	}
	key := nativeKey{typeName: typeName, native: native}
	if existing, ok := r.byNative[key]; ok {
		r.mu.Unlock()
		return existing, false, nil
	}
	delete(r.pending, key)

	e := entry{typeName: typeName, native: native, state: StateValid}
	var slot uint32
	if n := len(r.freeList); n > 0 {
		slot = r.freeList[n-1]
		r.freeList = r.freeList[:n-1]
		e.gen = r.entries[slot].gen + 1
		r.entries[slot] = e
	} else {
		slot = uint32(len(r.entries))
		r.entries = append(r.entries, e)
	}
	id = makeID(slot, e.gen)
	r.byNative[key] = id
	r.live++
	r.mu.Unlock()

	r.notify(Event{Type: EventBound, ID: id, TypeName: typeName, Native: native})
	return id, true, nil
}

// lookupLocked returns the entry for id if the ID is current. An ID whose
// slot was reused or whose entry is released reports StateReleased.
func (r *Registry) lookupLocked(id ID) (*entry, State) {
	slot, ok := id.slot()
	if !ok || int(slot) >= len(r.entries) {
		return nil, StateUnknown
	}
	e := &r.entries[slot]
	if e.gen != id.generation() || e.state != StateValid {
		return e, StateReleased
	}
	return e, StateValid
}

func (r *Registry) typeNameLocked(e *entry, id ID) string {
	if e != nil && e.gen == id.generation() {
		return e.typeName
	}
	return ""
}

// State reports the lifecycle state of id.
func (r *Registry) State(id ID) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, st := r.lookupLocked(id)
	return st
}

// Lookup returns the type and native identity of a valid handle.
func (r *Registry) Lookup(id ID) (typeName string, native uint64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, st := r.lookupLocked(id)
	switch st {
	case StateValid:
		return e.typeName, e.native, nil
	case StateReleased:
		return "", 0, errors.UseAfterRelease(errors.PhaseCall, r.typeNameLocked(e, id), uint64(id))
	}
	return "", 0, errors.NotFound(errors.PhaseCall, "handle", id.String())
}

// Acquire borrows a valid handle for the duration of a call and returns its
// native identity. Each successful Acquire must be paired with Return.
func (r *Registry) Acquire(id ID, typeName string) (uint64, error) {
	r.mu.Lock()
	e, st := r.lookupLocked(id)
	switch st {
	case StateReleased:
		r.mu.Unlock()
		return 0, errors.UseAfterRelease(errors.PhaseCall, r.typeNameOr(e, id, typeName), uint64(id))
	case StateUnknown:
		r.mu.Unlock()
		return 0, errors.NotFound(errors.PhaseCall, "handle", id.String())
	}
	if typeName != "" && e.typeName != typeName {
		r.mu.Unlock()
		return 0, errors.TypeMismatch(errors.PhaseCall, nil, "handle<"+e.typeName+">", "handle<"+typeName+">")
	}
	e.borrows++
	r.held[nativeKey{typeName: e.typeName, native: e.native}]++
	native, borrows := e.native, e.borrows
	name := e.typeName
	r.mu.Unlock()

	r.notify(Event{Type: EventBorrowed, ID: id, TypeName: name, Native: native, Borrows: borrows})
	return native, nil
}

func (r *Registry) typeNameOr(e *entry, id ID, fallback string) string {
	if n := r.typeNameLocked(e, id); n != "" {
		return n
	}
	return fallback
}

// Return ends a borrow taken by Acquire. If the native resource was released
// while borrowed and this was its last borrow, it is dropped now.
func (r *Registry) Return(ctx context.Context, id ID) error {
	r.mu.Lock()
	slot, ok := id.slot()
	if !ok || int(slot) >= len(r.entries) {
		r.mu.Unlock()
		return nil
	}
	e := &r.entries[slot]
	if e.gen != id.generation() || e.borrows == 0 {
		r.mu.Unlock()
		return nil
	}
	e.borrows--
	key := nativeKey{typeName: e.typeName, native: e.native}
	r.held[key]--
	if r.held[key] <= 0 {
		delete(r.held, key)
	}
	ev := Event{Type: EventBorrowReturned, ID: id, TypeName: e.typeName, Native: e.native, Borrows: e.borrows}
	if e.state == StateReleased && e.borrows == 0 {
		r.freeSlotLocked(slot)
	}
	dropID, dropNow := r.pending[key]
	dropNow = dropNow && r.held[key] == 0
	if dropNow {
		delete(r.pending, key)
	}
	r.mu.Unlock()

	r.notify(ev)
	if dropNow {
		return r.dropNative(ctx, dropID, ev.TypeName, ev.Native)
	}
	return nil
}

// Release moves a handle from Valid to Released. Releasing twice fails with
// a double-release error. Native disposal happens immediately when no call
// borrows the native resource, otherwise when the last borrow returns. A
// resource bound again before then stays alive under its new handle.
func (r *Registry) Release(ctx context.Context, id ID) error {
	r.mu.Lock()
	e, st := r.lookupLocked(id)
	switch st {
	case StateReleased:
		name := r.typeNameLocked(e, id)
		r.mu.Unlock()
		return errors.DoubleRelease(name, uint64(id))
	case StateUnknown:
		r.mu.Unlock()
		return errors.NotFound(errors.PhaseRelease, "handle", id.String())
	}

	slot, _ := id.slot()
	key := nativeKey{typeName: e.typeName, native: e.native}
	e.state = StateReleased
	delete(r.byNative, key)
	r.live--
	typeName, native, borrows := e.typeName, e.native, e.borrows
	if borrows == 0 {
		r.freeSlotLocked(slot)
	}
	dropNow := r.held[key] == 0
	if !dropNow {
		r.pending[key] = id
	}
	r.mu.Unlock()

	r.notify(Event{Type: EventReleased, ID: id, TypeName: typeName, Native: native, Borrows: borrows})
	if !dropNow {
		return nil
	}
	return r.dropNative(ctx, id, typeName, native)
}

func (r *Registry) freeSlotLocked(slot uint32) {
	r.entries[slot].borrows = 0
	r.freeList = append(r.freeList, slot)
}

func (r *Registry) dropNative(ctx context.Context, id ID, typeName string, native uint64) error {
	var err error
	if r.drop != nil {
		if derr := r.drop(ctx, typeName, native); derr != nil {
			err = errors.New(errors.PhaseRelease, errors.KindNative).
				Type(typeName).Value(uint64(id)).Cause(derr).
				Detail("dropping native resource %d", native).Build()
		}
	}
	r.notify(Event{Type: EventDropped, ID: id, TypeName: typeName, Native: native, Err: err})
	return err
}

// Live returns the number of valid handles.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

// Each calls fn for every valid handle until fn returns false.
func (r *Registry) Each(fn func(id ID, typeName string, native uint64) bool) {
	type item struct {
		name   string
		native uint64
		id     ID
	}
	r.mu.Lock()
	items := make([]item, 0, r.live)
	for i, e := range r.entries {
		if e.state == StateValid {
			items = append(items, item{id: makeID(uint32(i), e.gen), name: e.typeName, native: e.native})
		}
	}
	r.mu.Unlock()

	for _, it := range items {
		if !fn(it.id, it.name, it.native) {
			return
		}
	}
}

// Close releases every valid handle and rejects further binds. Handles
// still borrowed are dropped when their calls return.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	var errs []error
	r.Each(func(id ID, _ string, _ uint64) bool {
		if err := r.Release(ctx, id); err != nil && !stderrors.Is(err, errors.ErrDoubleRelease) {
			errs = append(errs, err)
		}
		return true
	})
	return stderrors.Join(errs...)
}

// Subscribe adds an observer and returns a function that removes it.
func (r *Registry) Subscribe(o Observer) (unsubscribe func()) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.nextObs++
	id := r.nextObs
	r.observers = append(r.observers, observerEntry{id: id, o: o})
	return func() {
		r.obsMu.Lock()
		defer r.obsMu.Unlock()
		for i, oe := range r.observers {
			if oe.id == id {
				r.observers = append(r.observers[:i], r.observers[i+1:]...)
				return
			}
		}
	}
}

func (r *Registry) notify(e Event) {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	for _, oe := range r.observers {
		oe.o.OnHandleEvent(e)
	}
}
