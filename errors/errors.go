package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDefine  Phase = "define"  // type and function definition
	PhaseEncode  Phase = "encode"  // Go to native
	PhaseDecode  Phase = "decode"  // native to Go
	PhaseCall    Phase = "call"    // boundary crossing
	PhaseRelease Phase = "release" // handle disposal
	PhaseLoad    Phase = "load"    // native library loading
	PhaseParse   Phase = "parse"   // declaration and signature parsing
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidEncoding     Kind = "invalid_encoding"
	KindUnknownDiscriminant Kind = "unknown_discriminant"
	KindUnknownVariant      Kind = "unknown_variant"
	KindTruncatedInput      Kind = "truncated_input"
	KindUseAfterRelease     Kind = "use_after_release"
	KindDoubleRelease       Kind = "double_release"
	KindTypeMismatch        Kind = "type_mismatch"
	KindOverflow            Kind = "overflow"
	KindInvalidDefinition   Kind = "invalid_definition"
	KindAllocation          Kind = "allocation"
	KindNotFound            Kind = "not_found"
	KindInvalidInput        Kind = "invalid_input"
	KindNative              Kind = "native"
	KindClosed              Kind = "closed"
)

// Sentinels match any error of the same kind regardless of phase:
//
//	if errors.Is(err, errors.ErrUseAfterRelease) { ... }
var (
	ErrInvalidEncoding     = &Error{Kind: KindInvalidEncoding}
	ErrUnknownDiscriminant = &Error{Kind: KindUnknownDiscriminant}
	ErrUnknownVariant      = &Error{Kind: KindUnknownVariant}
	ErrTruncatedInput      = &Error{Kind: KindTruncatedInput}
	ErrUseAfterRelease     = &Error{Kind: KindUseAfterRelease}
	ErrDoubleRelease       = &Error{Kind: KindDoubleRelease}
	ErrTypeMismatch        = &Error{Kind: KindTypeMismatch}
	ErrNotFound            = &Error{Kind: KindNotFound}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Type   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(FormatPath(e.Path))
	}

	if e.GoType != "" || e.Type != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.Type != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", type ")
			b.WriteString(e.Type)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("type ")
			b.WriteString(e.Type)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.Type != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a phase
// matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the value path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Type sets the descriptor name
func (b *Builder) Type(t string) *Builder {
	b.err.Type = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, typ string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		GoType: goType,
		Type:   typ,
	}
}

// InvalidUTF8 creates an invalid encoding error for malformed string bytes
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidEncoding,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// InvalidEncoding creates an invalid encoding error
func InvalidEncoding(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidEncoding,
		Path:   path,
		Detail: detail,
	}
}

// UnknownDiscriminant creates an error for a discriminant outside an enum's case set
func UnknownDiscriminant(phase Phase, path []string, disc int64, enumType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownDiscriminant,
		Path:   path,
		Type:   enumType,
		Detail: fmt.Sprintf("discriminant %d is not declared", disc),
		Value:  disc,
	}
}

// UnknownVariant creates an error for a tag outside a data enum's variant set
func UnknownVariant(phase Phase, path []string, tag uint32, count int, enumType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownVariant,
		Path:   path,
		Type:   enumType,
		Detail: fmt.Sprintf("tag %d out of range (%d variants)", tag, count),
		Value:  tag,
	}
}

// Truncated creates a truncated input error
func Truncated(phase Phase, path []string, need, have int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTruncatedInput,
		Path:   path,
		Detail: fmt.Sprintf("need %d bytes, %d available", need, have),
	}
}

// UseAfterRelease creates a handle lifecycle error for access to a released handle
func UseAfterRelease(phase Phase, handleType string, id uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUseAfterRelease,
		Type:   handleType,
		Detail: fmt.Sprintf("handle %#x used after release", id),
		Value:  id,
	}
}

// DoubleRelease creates a handle lifecycle error for a second disposal
func DoubleRelease(handleType string, id uint64) *Error {
	return &Error{
		Phase:  PhaseRelease,
		Kind:   KindDoubleRelease,
		Type:   handleType,
		Detail: fmt.Sprintf("handle %#x already released", id),
		Value:  id,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		Type:   targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// InvalidDefinition creates a definition-time validation error
func InvalidDefinition(typeName, detail string) *Error {
	return &Error{
		Phase:  PhaseDefine,
		Kind:   KindInvalidDefinition,
		Type:   typeName,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Native wraps a failure reported by a native entry point
func Native(entry string, cause error) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindNative,
		Detail: fmt.Sprintf("native entry %q failed", entry),
		Cause:  cause,
	}
}

// Closed creates an error for operations on a closed runtime or registry
func Closed(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s closed", component),
	}
}

// Load creates a library loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidInput,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// AsError finds the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// FormatPath joins path elements with dots. Index elements such as "[3]"
// attach to the element before them.
func FormatPath(path []string) string {
	var b strings.Builder
	for i, elem := range path {
		if i > 0 && !strings.HasPrefix(elem, "[") {
			b.WriteByte('.')
		}
		b.WriteString(elem)
	}
	return b.String()
}

// Prefix returns a copy of path with elem appended, never sharing the
// backing array of path.
func Prefix(path []string, elem string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = elem
	return out
}
