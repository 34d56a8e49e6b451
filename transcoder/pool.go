package transcoder

import "sync"

const (
	// Pool limits to prevent memory bloat
	poolMaxCap64  = 1024 // max uint64 elements
	poolInitCap64 = 16
	poolMaxBytes  = 64 << 10
)

// uint64 buffer pool for call slots
var buf64Pool = sync.Pool{
	New: func() any {
		buf := make([]uint64, 0, poolInitCap64)
		return &buf
	},
}

// GetSlots returns an empty pooled slot buffer.
func GetSlots() *[]uint64 {
	return buf64Pool.Get().(*[]uint64)
}

// PutSlots returns a slot buffer to the pool.
func PutSlots(buf *[]uint64) {
	if buf == nil || cap(*buf) > poolMaxCap64 {
		return // reject oversized
	}
	*buf = (*buf)[:0]
	buf64Pool.Put(buf)
}

var encoderPool = sync.Pool{
	New: func() any {
		return NewEncoder()
	},
}

// AcquireEncoder returns a reset encoder from the pool.
func AcquireEncoder() *Encoder {
	return encoderPool.Get().(*Encoder)
}

// ReleaseEncoder resets e and returns it to the pool.
func ReleaseEncoder(e *Encoder) {
	if e == nil || cap(e.buf) > poolMaxBytes {
		return // reject oversized
	}
	e.Reset()
	encoderPool.Put(e)
}
