package abi

import (
	"math"
	"testing"
)

func TestSafeMulU32(t *testing.T) {
	tests := []struct {
		name   string
		a, b   uint32
		want   uint32
		wantOK bool
	}{
		{"zero count", 0, math.MaxUint32, 0, true},
		{"list of u64", 1000, 8, 8000, true},
		{"largest fit", 65536, 65535, 65536 * 65535, true},
		{"count times width overflows", 1 << 30, 8, 0, false},
		{"max times two", math.MaxUint32, 2, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SafeMulU32(tt.a, tt.b)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("SafeMulU32(%d, %d) = %d, %v; want %d, %v", tt.a, tt.b, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestTypeName(t *testing.T) {
	if got := TypeName(nil); got != "nil" {
		t.Errorf("TypeName(nil) = %q", got)
	}
	if got := TypeName(int32(1)); got != "int32" {
		t.Errorf("TypeName(int32) = %q", got)
	}
}

func TestValidateChar(t *testing.T) {
	valid := []rune{0, 'A', 0xD7FF, 0xE000, 0x1F600, 0x10FFFF}
	invalid := []rune{0xD800, 0xDBFF, 0xDC00, 0xDFFF, 0x110000, -1}

	for _, r := range valid {
		if !ValidateChar(r) {
			t.Errorf("ValidateChar(%#x) = false", r)
		}
	}
	for _, r := range invalid {
		if ValidateChar(r) {
			t.Errorf("ValidateChar(%#x) = true", r)
		}
	}
}

func TestPutUint(t *testing.T) {
	tests := []struct {
		want  []byte
		v     uint64
		width int
	}{
		{width: 1, v: 0x1ff, want: []byte{0xff}},
		{width: 2, v: 0xbeef, want: []byte{0xef, 0xbe}},
		{width: 4, v: 0xfffffff4, want: []byte{0xf4, 0xff, 0xff, 0xff}},
		{width: 8, v: 1, want: []byte{1, 0, 0, 0, 0, 0, 0, 0}},
	}

	for _, tt := range tests {
		got := PutUint(nil, tt.width, tt.v)
		if string(got) != string(tt.want) {
			t.Errorf("PutUint(%d, %#x) = %x, want %x", tt.width, tt.v, got, tt.want)
		}
		mask := uint64(math.MaxUint64)
		if tt.width < 8 {
			mask = uint64(1)<<(8*tt.width) - 1
		}
		if back := Uint(got); back != tt.v&mask {
			t.Errorf("Uint(%x) = %#x", got, back)
		}
	}
}

func TestSignExtend(t *testing.T) {
	tests := []struct {
		v     uint64
		width int
		want  int64
	}{
		{v: 0xf4, width: 1, want: -12},
		{v: 0x7f, width: 1, want: 127},
		{v: 0xfffffff4, width: 4, want: -12},
		{v: 0x8000, width: 2, want: math.MinInt16},
		{v: math.MaxUint64, width: 8, want: -1},
	}

	for _, tt := range tests {
		if got := SignExtend(tt.v, tt.width); got != tt.want {
			t.Errorf("SignExtend(%#x, %d) = %d, want %d", tt.v, tt.width, got, tt.want)
		}
	}
}
