// Package transcoder converts values to and from the packed wire format
// used at the native boundary.
//
// # Wire Format
//
// Values are written field after field with no padding. Multi-byte integers
// are little-endian.
//
//	Type            Encoding
//	──────────────────────────────────────────────
//	bool            1 byte, 0 or 1
//	u8..s64         1/2/4/8 bytes, two's complement
//	f32/f64         raw IEEE-754 bits (NaN payloads kept)
//	char            u32 scalar value
//	string          u32 byte length, UTF-8 bytes
//	struct          fields in declared order
//	enum            discriminant at the repr width
//	data enum       tag (1/2/4 bytes by variant count), payload
//	list<T>         u32 count, elements
//	handle<R>       u64 native identity
//
// # Key Types
//
//	Encoder         - Appends values to a byte buffer
//	Decoder         - Reads values, rejecting anything outside the schema
//	AllocationList  - Tracks native buffers borrowed for one call
//
// # Call Slots
//
// Scalars, enums and handles travel in a single uint64 slot at the call
// boundary. Lower and Lift convert between values and slots; strings and
// compound values are passed as a (pointer, length) pair of a buffer
// written with WriteBuffer.
//
// # Safety
//
// Declared lengths are checked against the remaining input before any
// allocation. A list of count elements must have at least count times the
// element's minimum encoded size left to read.
package transcoder
