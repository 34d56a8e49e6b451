package schema

import (
	"fmt"
	"regexp"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/bindgen/errors"
)

// Receiver says how a function is bound.
type Receiver uint8

const (
	ReceiverNone   Receiver = iota // free function
	ReceiverStatic                 // associated function of a handle type
	ReceiverHandle                 // method on a live handle instance
)

var receiverNames = [...]string{
	ReceiverNone:   "none",
	ReceiverStatic: "static",
	ReceiverHandle: "handle",
}

func (r Receiver) String() string {
	if int(r) < len(receiverNames) {
		return receiverNames[r]
	}
	return "unknown"
}

// ParseReceiver parses a receiver name; the empty string means none.
func ParseReceiver(s string) (Receiver, error) {
	switch s {
	case "", "none":
		return ReceiverNone, nil
	case "static":
		return ReceiverStatic, nil
	case "handle", "method":
		return ReceiverHandle, nil
	}
	return 0, errors.InvalidInput(errors.PhaseParse, fmt.Sprintf("unknown receiver %q", s))
}

type Param struct {
	Type *Type
	Name string
}

// Func is the declared signature of a native entry point. Result is nil for
// functions returning nothing. Methods take the receiver handle as an implicit
// first slot that is not listed in Params.
type Func struct {
	Result   *Type
	Name     string
	Owner    string
	Params   []Param
	Receiver Receiver
}

// Symbol returns the native entry point name: the bare name for free
// functions, Owner__name for functions bound to a handle type.
func (f *Func) Symbol() string {
	if f.Owner == "" {
		return f.Name
	}
	return f.Owner + "__" + f.Name
}

// FlatParams returns the number of uint64 slots the arguments occupy,
// including the receiver slot of methods.
func (f *Func) FlatParams() int {
	n := 0
	if f.Receiver == ReceiverHandle {
		n++
	}
	for _, p := range f.Params {
		n += p.Type.FlatCount()
	}
	return n
}

// FlatResults returns the number of uint64 result slots.
func (f *Func) FlatResults() int {
	if f.Result == nil {
		return 0
	}
	return f.Result.FlatCount()
}

// String renders the signature in the text form accepted by ParseFunc.
func (f *Func) String() string {
	var b strings.Builder
	b.WriteString(f.Name)
	b.WriteString(": ")
	switch f.Receiver {
	case ReceiverStatic:
		b.WriteString("static ")
	case ReceiverHandle:
		b.WriteString("method ")
	}
	b.WriteString("func(")
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		b.WriteString(": ")
		b.WriteString(p.Type.String())
	}
	b.WriteByte(')')
	if f.Result != nil {
		b.WriteString(" -> ")
		b.WriteString(f.Result.String())
	}
	return b.String()
}

// Lookup resolves a named type.
type Lookup func(name string) (*Type, bool)

var (
	funcRe = regexp.MustCompile(`^\s*([\w-]+)\s*:\s*(?:(static|method)\s+)?func\s*\((.*)\)\s*(?:->\s*(.+?))?\s*;?\s*$`)
	listRe = regexp.MustCompile(`^list\s*<(.+)>$`)
	handRe = regexp.MustCompile(`^(?:handle|own|borrow)\s*<\s*([\w-]+)\s*>$`)
)

// ParseFunc parses a signature line such as
//
//	greet-a-number: func(num: s32) -> string
//	name: method func() -> string
//
// Named types are resolved through lookup. The owner of static functions and
// methods is set by the caller.
func ParseFunc(line string, lookup Lookup) (*Func, error) {
	m := funcRe.FindStringSubmatch(line)
	if m == nil {
		return nil, errors.ParseFailed("signature", fmt.Errorf("malformed signature %q", line))
	}
	f := &Func{Name: m[1]}
	switch m[2] {
	case "static":
		f.Receiver = ReceiverStatic
	case "method":
		f.Receiver = ReceiverHandle
	}
	for _, p := range splitParams(m[3]) {
		name, typ, ok := strings.Cut(p, ":")
		if !ok {
			return nil, errors.ParseFailed("signature", fmt.Errorf("parameter %q has no type", p))
		}
		t, err := ParseType(typ, lookup)
		if err != nil {
			return nil, err
		}
		f.Params = append(f.Params, Param{Name: strings.TrimSpace(name), Type: t})
	}
	if m[4] != "" {
		t, err := ParseType(m[4], lookup)
		if err != nil {
			return nil, err
		}
		f.Result = t
	}
	return f, nil
}

// ParseType parses a type expression: a builtin name, list<T>, handle<R>
// or a named type resolved through lookup.
func ParseType(s string, lookup Lookup) (*Type, error) {
	s = strings.TrimSpace(s)
	if m := listRe.FindStringSubmatch(s); m != nil {
		elem, err := ParseType(m[1], lookup)
		if err != nil {
			return nil, err
		}
		return List(elem), nil
	}
	if m := handRe.FindStringSubmatch(s); m != nil {
		if lookup != nil {
			if t, ok := lookup(m[1]); ok && t.Kind == KindHandle {
				return t, nil
			}
		}
		return Handle(m[1]), nil
	}
	if wt, err := wit.ParseType(s); err == nil {
		return FromWIT(wt)
	}
	if lookup != nil {
		if t, ok := lookup(s); ok {
			return t, nil
		}
	}
	return nil, errors.NotFound(errors.PhaseParse, "type", s)
}

// splitParams splits a parameter list on top-level commas.
func splitParams(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	for _, ch := range s {
		switch ch {
		case '<', '(':
			depth++
			current.WriteRune(ch)
		case '>', ')':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				if str := strings.TrimSpace(current.String()); str != "" {
					result = append(result, str)
				}
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}

	if str := strings.TrimSpace(current.String()); str != "" {
		result = append(result, str)
	}

	return result
}
