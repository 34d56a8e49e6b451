package schema

import (
	"fmt"
	"sync"

	"github.com/wippyai/bindgen/errors"
)

// Catalog holds the named types and function signatures shared by a caller
// and a native library. It is safe for concurrent use.
type Catalog struct {
	types  map[string]*Type
	funcs  map[string]*Func
	torder []string
	forder []string
	mu     sync.RWMutex
}

func NewCatalog() *Catalog {
	return &Catalog{
		types: make(map[string]*Type),
		funcs: make(map[string]*Func),
	}
}

// Define validates t and registers it together with every named type it
// references. Redefining a name with a different descriptor fails.
func (c *Catalog) Define(t *Type) error {
	if err := Validate(t); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defineLocked(t, make(map[*Type]bool))
}

func (c *Catalog) defineLocked(t *Type, seen map[*Type]bool) error {
	if t == nil || seen[t] {
		return nil
	}
	seen[t] = true

	switch t.Kind {
	case KindList:
		return c.defineLocked(t.Elem, seen)
	case KindStruct, KindEnum, KindDataEnum, KindHandle:
	default:
		return nil
	}

	if existing, ok := c.types[t.Name]; ok {
		if existing != t && !sameHandle(existing, t) {
			return errors.InvalidDefinition(t.Name, "already defined with a different descriptor")
		}
	} else {
		c.types[t.Name] = t
		c.torder = append(c.torder, t.Name)
	}

	for _, f := range t.Fields {
		if err := c.defineLocked(f.Type, seen); err != nil {
			return err
		}
	}
	for _, v := range t.Variants {
		for _, f := range v.Fields {
			if err := c.defineLocked(f.Type, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

// Handle descriptors carry nothing but a name, so two of them with the same
// name are interchangeable.
func sameHandle(a, b *Type) bool {
	return a.Kind == KindHandle && b.Kind == KindHandle && a.Name == b.Name
}

// Declare registers a function signature and the types it references.
// Functions bound to a handle type must name an Owner that is a handle.
func (c *Catalog) Declare(f *Func) error {
	if f.Name == "" {
		return errors.InvalidDefinition("", "function without name")
	}
	switch f.Receiver {
	case ReceiverNone:
		if f.Owner != "" {
			return errors.InvalidDefinition(f.Symbol(), "free function with owner")
		}
	case ReceiverStatic, ReceiverHandle:
		if f.Owner == "" {
			return errors.InvalidDefinition(f.Name, fmt.Sprintf("%s function without owner", f.Receiver))
		}
	default:
		return errors.InvalidDefinition(f.Name, "unknown receiver")
	}

	for _, p := range f.Params {
		if p.Type == nil {
			return errors.InvalidDefinition(f.Symbol(), fmt.Sprintf("parameter %q without type", p.Name))
		}
		if err := c.Define(p.Type); err != nil {
			return err
		}
	}
	if f.Result != nil {
		if err := c.Define(f.Result); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if f.Owner != "" {
		owner, ok := c.types[f.Owner]
		if !ok {
			owner = Handle(f.Owner)
			c.types[f.Owner] = owner
			c.torder = append(c.torder, f.Owner)
		}
		if owner.Kind != KindHandle {
			return errors.InvalidDefinition(f.Symbol(), fmt.Sprintf("owner %q is a %s, not a handle", f.Owner, owner.Kind))
		}
	}
	sym := f.Symbol()
	if _, dup := c.funcs[sym]; dup {
		return errors.InvalidDefinition(sym, "function already declared")
	}
	c.funcs[sym] = f
	c.forder = append(c.forder, sym)
	return nil
}

// Type returns the named type.
func (c *Catalog) Type(name string) (*Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.types[name]
	return t, ok
}

// Lookup adapts the catalog to ParseType.
func (c *Catalog) Lookup() Lookup {
	return c.Type
}

// Types returns the named types in definition order.
func (c *Catalog) Types() []*Type {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Type, len(c.torder))
	for i, n := range c.torder {
		out[i] = c.types[n]
	}
	return out
}

// Func returns the function with the given entry point symbol.
func (c *Catalog) Func(symbol string) (*Func, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.funcs[symbol]
	return f, ok
}

// Method returns the function named name bound to the handle type owner.
func (c *Catalog) Method(owner, name string) (*Func, bool) {
	return c.Func(owner + "__" + name)
}

// Funcs returns the declared functions in declaration order.
func (c *Catalog) Funcs() []*Func {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Func, len(c.forder))
	for i, s := range c.forder {
		out[i] = c.funcs[s]
	}
	return out
}

// Handles returns the names of all handle types.
func (c *Catalog) Handles() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for _, n := range c.torder {
		if c.types[n].Kind == KindHandle {
			out = append(out, n)
		}
	}
	return out
}
