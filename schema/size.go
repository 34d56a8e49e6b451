package schema

import "sync"

// TagSize returns the byte width of a data-enum tag for n variants.
func TagSize(n int) int {
	switch {
	case n <= 1<<8:
		return 1
	case n <= 1<<16:
		return 2
	default:
		return 4
	}
}

// Info is the packed wire layout of a descriptor.
type Info struct {
	MinSize int  // smallest possible encoding
	Size    int  // exact encoding size when Fixed
	Fixed   bool // every value encodes to Size bytes
}

// Calculator computes and caches wire layout for compound descriptors.
// It is safe for concurrent use.
type Calculator struct {
	cache map[*Type]Info
	mu    sync.RWMutex
}

func NewCalculator() *Calculator {
	return &Calculator{cache: make(map[*Type]Info)}
}

var defaultCalc = NewCalculator()

// Layout returns the wire layout of t using a shared calculator.
func Layout(t *Type) Info {
	return defaultCalc.Calculate(t)
}

// MinSize is the smallest number of bytes any value of t encodes to.
// The collection decoder uses it to reject counts the input cannot hold.
func (t *Type) MinSize() int {
	return Layout(t).MinSize
}

func (c *Calculator) Calculate(t *Type) Info {
	switch {
	case t.Kind.IsPrimitive():
		w := t.Kind.Width()
		return Info{MinSize: w, Size: w, Fixed: true}
	case t.Kind == KindString, t.Kind == KindList:
		return Info{MinSize: 4}
	case t.Kind == KindHandle:
		return Info{MinSize: 8, Size: 8, Fixed: true}
	case t.Kind == KindEnum:
		w := t.Repr.Width()
		return Info{MinSize: w, Size: w, Fixed: true}
	}

	c.mu.RLock()
	cached, ok := c.cache[t]
	c.mu.RUnlock()
	if ok {
		return cached
	}

	info := c.calculate(t, make(map[*Type]bool))

	c.mu.Lock()
	c.cache[t] = info
	c.mu.Unlock()
	return info
}

func (c *Calculator) calculate(t *Type, visiting map[*Type]bool) Info {
	switch t.Kind {
	case KindStruct, KindDataEnum:
	default:
		return c.Calculate(t)
	}
	if visiting[t] {
		// A recursive reference contributes nothing certain.
		return Info{}
	}
	visiting[t] = true
	defer delete(visiting, t)

	if t.Kind == KindStruct {
		return c.fields(t.Fields, visiting)
	}

	tag := TagSize(len(t.Variants))
	info := Info{Fixed: true}
	for i, v := range t.Variants {
		p := c.fields(v.Fields, visiting)
		if i == 0 || p.MinSize < info.MinSize {
			info.MinSize = p.MinSize
		}
		if !p.Fixed || (i > 0 && p.Size != info.Size) {
			info.Fixed = false
		}
		info.Size = p.Size
	}
	info.MinSize += tag
	if info.Fixed {
		info.Size += tag
	} else {
		info.Size = 0
	}
	return info
}

func (c *Calculator) fields(fields []Field, visiting map[*Type]bool) Info {
	info := Info{Fixed: true}
	for _, f := range fields {
		fi := c.calculate(f.Type, visiting)
		info.MinSize += fi.MinSize
		if fi.Fixed {
			info.Size += fi.Size
		} else {
			info.Fixed = false
		}
	}
	if !info.Fixed {
		info.Size = 0
	}
	return info
}

// FlatCount is the number of uint64 slots a value of t occupies at the call
// boundary.
func (t *Type) FlatCount() int {
	return t.Kind.FlatCount()
}
