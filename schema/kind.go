package schema

type Kind uint8

const (
	KindBool Kind = iota
	KindU8
	KindS8
	KindU16
	KindS16
	KindU32
	KindS32
	KindU64
	KindS64
	KindF32
	KindF64
	KindChar
	KindString
	KindStruct
	KindEnum
	KindDataEnum
	KindList
	KindHandle
)

var kindNames = [...]string{
	KindBool:     "bool",
	KindU8:       "u8",
	KindS8:       "s8",
	KindU16:      "u16",
	KindS16:      "s16",
	KindU32:      "u32",
	KindS32:      "s32",
	KindU64:      "u64",
	KindS64:      "s64",
	KindF32:      "f32",
	KindF64:      "f64",
	KindChar:     "char",
	KindString:   "string",
	KindStruct:   "struct",
	KindEnum:     "enum",
	KindDataEnum: "data-enum",
	KindList:     "list",
	KindHandle:   "handle",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsPrimitive reports whether k is a fixed-width scalar (bool, integers, floats, char).
func (k Kind) IsPrimitive() bool {
	return k <= KindChar
}

// IsInteger reports whether k is one of the fixed-width integer kinds.
func (k Kind) IsInteger() bool {
	return k >= KindU8 && k <= KindS64
}

// IsSigned reports whether k is a signed integer kind.
func (k Kind) IsSigned() bool {
	switch k {
	case KindS8, KindS16, KindS32, KindS64:
		return true
	}
	return false
}

// IsNamed reports whether types of this kind carry a declared name.
func (k Kind) IsNamed() bool {
	switch k {
	case KindStruct, KindEnum, KindDataEnum, KindHandle:
		return true
	}
	return false
}

// Width returns the encoded byte width of a primitive kind, or 0.
func (k Kind) Width() int {
	switch k {
	case KindBool, KindU8, KindS8:
		return 1
	case KindU16, KindS16:
		return 2
	case KindU32, KindS32, KindF32, KindChar:
		return 4
	case KindU64, KindS64, KindF64:
		return 8
	}
	return 0
}

// FlatCount returns the number of uint64 slots a value of this kind occupies
// when crossing the call boundary. Scalars, enums and handles travel in one
// slot; everything else travels as a (ptr, len) pair.
func (k Kind) FlatCount() int {
	switch {
	case k.IsPrimitive(), k == KindEnum, k == KindHandle:
		return 1
	default:
		return 2
	}
}

// IntRange returns the inclusive value range of an integer kind.
func (k Kind) IntRange() (lo int64, hi uint64) {
	switch k {
	case KindU8:
		return 0, 1<<8 - 1
	case KindS8:
		return -1 << 7, 1<<7 - 1
	case KindU16:
		return 0, 1<<16 - 1
	case KindS16:
		return -1 << 15, 1<<15 - 1
	case KindU32:
		return 0, 1<<32 - 1
	case KindS32:
		return -1 << 31, 1<<31 - 1
	case KindU64:
		return 0, 1<<64 - 1
	case KindS64:
		return -1 << 63, 1<<63 - 1
	}
	return 0, 0
}
