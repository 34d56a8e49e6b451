package resource

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("object table closed")

// Objects is the native-side object table: it owns the values behind
// handles and gives each one a uint64 identity. Identity 0 is never used.
// A freed identity may be handed out again; the caller-side Registry keeps
// its own generations.
type Objects struct {
	entries  []object
	freeList []uint64
	mu       sync.RWMutex
	closed   bool
}

type object struct {
	value    any
	typeName string
	valid    bool
}

func NewObjects() *Objects {
	return &Objects{
		entries:  make([]object, 0, 64),
		freeList: make([]uint64, 0, 16),
	}
}

// Insert stores a value of the named resource type and returns its identity.
func (o *Objects) Insert(typeName string, value any) (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return 0, ErrClosed
	}

	e := object{typeName: typeName, value: value, valid: true}
	if n := len(o.freeList); n > 0 {
		id := o.freeList[n-1]
		o.freeList = o.freeList[:n-1]
		o.entries[id-1] = e
		return id, nil
	}
	o.entries = append(o.entries, e)
	return uint64(len(o.entries)), nil
}

// Get returns the value for id if it is live and of the named type.
func (o *Objects) Get(id uint64, typeName string) (any, bool) {
	if id == 0 {
		return nil, false
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	if id > uint64(len(o.entries)) {
		return nil, false
	}
	e := o.entries[id-1]
	if !e.valid || e.typeName != typeName {
		return nil, false
	}
	return e.value, true
}

// Drop removes the value for id, calling its Drop method if it has one.
func (o *Objects) Drop(id uint64, typeName string) (any, bool) {
	if id == 0 {
		return nil, false
	}

	o.mu.Lock()
	if id > uint64(len(o.entries)) {
		o.mu.Unlock()
		return nil, false
	}
	e := &o.entries[id-1]
	if !e.valid || e.typeName != typeName {
		o.mu.Unlock()
		return nil, false
	}
	value := e.value
	e.valid = false
	e.value = nil
	o.freeList = append(o.freeList, id)
	o.mu.Unlock()

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}
	return value, true
}

// Len returns the number of live objects.
func (o *Objects) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()

	count := 0
	for _, e := range o.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// Each iterates over live objects until fn returns false.
func (o *Objects) Each(fn func(id uint64, typeName string, value any) bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for i, e := range o.entries {
		if e.valid {
			if !fn(uint64(i+1), e.typeName, e.value) {
				break
			}
		}
	}
}

// Close drops every live object.
func (o *Objects) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	var droppers []Dropper
	for i := range o.entries {
		if o.entries[i].valid {
			if d, ok := o.entries[i].value.(Dropper); ok {
				droppers = append(droppers, d)
			}
		}
	}
	o.entries = nil
	o.freeList = nil
	o.mu.Unlock()

	for _, d := range droppers {
		d.Drop()
	}
	return nil
}

// Lookup returns the live value for id as a T.
func Lookup[T any](o *Objects, id uint64, typeName string) (T, bool) {
	var zero T
	v, ok := o.Get(id, typeName)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
