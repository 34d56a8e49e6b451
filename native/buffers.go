package native

import (
	"context"
	"unicode/utf8"

	"github.com/wippyai/bindgen"
	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/schema"
	"github.com/wippyai/bindgen/transcoder"
	"github.com/wippyai/bindgen/value"
)

// Buffers gives Go-implemented entry points access to argument buffers and
// lets them hand owned buffers back to the caller. Inside a library, handle
// values carry native identities in their ID.
type Buffers struct {
	mem   bindgen.Memory
	alloc bindgen.Allocator
}

func NewBuffers(mem bindgen.Memory, alloc bindgen.Allocator) Buffers {
	return Buffers{mem: mem, alloc: alloc}
}

// ReadBytes copies an argument buffer out of memory.
func (b Buffers) ReadBytes(ptr, length uint64) ([]byte, error) {
	if ptr > 1<<32-1 || length > 1<<32-1 {
		return nil, errors.InvalidInput(errors.PhaseDecode, "buffer slot out of range")
	}
	return transcoder.ReadBuffer(b.mem, uint32(ptr), uint32(length))
}

// ReadString reads a UTF-8 string argument.
func (b Buffers) ReadString(ptr, length uint64) (string, error) {
	if length > transcoder.MaxStringSize {
		return "", errors.InvalidEncoding(errors.PhaseDecode, nil, "string length exceeds maximum")
	}
	data, err := b.ReadBytes(ptr, length)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.InvalidUTF8(errors.PhaseDecode, nil, data)
	}
	return string(data), nil
}

// ReadValue decodes a compound argument of type t.
func (b Buffers) ReadValue(t *schema.Type, ptr, length uint64) (value.Value, error) {
	data, err := b.ReadBytes(ptr, length)
	if err != nil {
		return nil, err
	}
	dec := transcoder.NewDecoder()
	dec.SetHandles(identities{})
	return dec.Decode(t, data)
}

// ReturnBytes copies data into a fresh allocation and returns its
// (pointer, length) slots. The caller frees it through FreeBuffer.
func (b Buffers) ReturnBytes(data []byte) ([]uint64, error) {
	ptr, err := transcoder.WriteBuffer(b.mem, b.alloc, data, nil)
	if err != nil {
		return nil, err
	}
	return []uint64{uint64(ptr), uint64(len(data))}, nil
}

// ReturnString returns s as an owned string. The caller frees it through
// DropString.
func (b Buffers) ReturnString(s string) ([]uint64, error) {
	return b.ReturnBytes([]byte(s))
}

// ReturnValue encodes v and returns it as an owned buffer.
func (b Buffers) ReturnValue(t *schema.Type, v value.Value) ([]uint64, error) {
	enc := transcoder.AcquireEncoder()
	defer transcoder.ReleaseEncoder(enc)
	enc.SetHandles(identities{})
	if err := enc.Encode(t, v); err != nil {
		return nil, err
	}
	return b.ReturnBytes(enc.Bytes())
}

// Release frees a buffer previously returned by ReturnBytes. It backs the
// DropString and FreeBuffer entry points.
func (b Buffers) Release(ptr, length uint64) {
	if ptr == 0 {
		return
	}
	b.alloc.Free(uint32(ptr), uint32(length), 1)
}

func (b Buffers) releaseFunc() Func {
	return func(_ context.Context, params []uint64) ([]uint64, error) {
		if len(params) != 2 {
			return nil, errors.InvalidInput(errors.PhaseCall, "release takes (ptr, len)")
		}
		b.Release(params[0], params[1])
		return nil, nil
	}
}

// identities encodes handles as the native identity they already carry.
type identities struct{}

func (identities) ResolveHandle(_ *schema.Type, h value.Handle) (uint64, error) {
	return h.ID, nil
}

func (identities) BindHandle(t *schema.Type, native uint64) (value.Handle, error) {
	return value.Handle{Type: t.Name, ID: native}, nil
}
