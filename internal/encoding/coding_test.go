package encoding

import (
	"bytes"
	"testing"
)

// -----------------------------------------------------------------------------
// Fixed-width encoding tests
// -----------------------------------------------------------------------------

func TestFixed16(t *testing.T) {
	tests := []struct {
		name  string
		value uint16
		want  []byte
	}{
		{"zero", 0, []byte{0x00, 0x00}},
		{"one", 1, []byte{0x01, 0x00}},
		{"max", 0xFFFF, []byte{0xFF, 0xFF}},
		{"0x1234", 0x1234, []byte{0x34, 0x12}}, // little-endian
		{"256", 256, []byte{0x00, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 2)
			EncodeFixed16(buf, tt.value)
			if !bytes.Equal(buf, tt.want) {
				t.Errorf("EncodeFixed16(%d) = %v, want %v", tt.value, buf, tt.want)
			}

			got := DecodeFixed16(tt.want)
			if got != tt.value {
				t.Errorf("DecodeFixed16(%v) = %d, want %d", tt.want, got, tt.value)
			}
		})
	}
}

func TestFixed32(t *testing.T) {
	tests := []struct {
		name  string
		value uint32
		want  []byte
	}{
		{"zero", 0, []byte{0x00, 0x00, 0x00, 0x00}},
		{"one", 1, []byte{0x01, 0x00, 0x00, 0x00}},
		{"max", 0xFFFFFFFF, []byte{0xFF, 0xFF, 0xFF, 0xFF}},
		{"0x12345678", 0x12345678, []byte{0x78, 0x56, 0x34, 0x12}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 4)
			EncodeFixed32(buf, tt.value)
			if !bytes.Equal(buf, tt.want) {
				t.Errorf("EncodeFixed32(%d) = %v, want %v", tt.value, buf, tt.want)
			}

			got := DecodeFixed32(tt.want)
			if got != tt.value {
				t.Errorf("DecodeFixed32(%v) = %d, want %d", tt.want, got, tt.value)
			}
		})
	}
}

func TestFixed64(t *testing.T) {
	tests := []struct {
		name  string
		value uint64
		want  []byte
	}{
		{"zero", 0, []byte{0, 0, 0, 0, 0, 0, 0, 0}},
		{"max", 0xFFFFFFFFFFFFFFFF, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}},
		{"0x0123456789ABCDEF", 0x0123456789ABCDEF, []byte{0xEF, 0xCD, 0xAB, 0x89, 0x67, 0x45, 0x23, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 8)
			EncodeFixed64(buf, tt.value)
			if !bytes.Equal(buf, tt.want) {
				t.Errorf("EncodeFixed64(%d) = %v, want %v", tt.value, buf, tt.want)
			}

			got := DecodeFixed64(tt.want)
			if got != tt.value {
				t.Errorf("DecodeFixed64(%v) = %d, want %d", tt.want, got, tt.value)
			}
		})
	}
}

func TestFloat32RoundTrip(t *testing.T) {
	values := []float32{0, 1, -1, 3.14159, -123.456, 1e30}
	for _, v := range values {
		buf := make([]byte, 4)
		EncodeFloat32(buf, v)
		got := DecodeFloat32(buf)
		if got != v {
			t.Errorf("EncodeFloat32/DecodeFloat32(%v) = %v", v, got)
		}
	}
}

func TestAppendFixed(t *testing.T) {
	var buf []byte
	buf = AppendFixed16(buf, 0x1234)
	buf = AppendFixed32(buf, 0x56789ABC)
	buf = AppendFixed64(buf, 0xDEF0123456789ABC)

	want := []byte{
		0x34, 0x12,
		0xBC, 0x9A, 0x78, 0x56,
		0xBC, 0x9A, 0x78, 0x56, 0x34, 0x12, 0xF0, 0xDE,
	}
	if !bytes.Equal(buf, want) {
		t.Errorf("AppendFixed* = %x, want %x", buf, want)
	}
}

// -----------------------------------------------------------------------------
// Slice helper tests
// -----------------------------------------------------------------------------

func TestSlice(t *testing.T) {
	var buf []byte
	buf = AppendFixed16(buf, 0x1234)
	buf = AppendFixed32(buf, 0x56789ABC)
	buf = AppendFixed64(buf, 0xDEF0123456789ABC)
	buf = append(buf, "test"...)

	s := NewSlice(buf)

	v16, ok := s.GetFixed16()
	if !ok || v16 != 0x1234 {
		t.Errorf("GetFixed16() = %x, %v; want 0x1234, true", v16, ok)
	}

	v32, ok := s.GetFixed32()
	if !ok || v32 != 0x56789ABC {
		t.Errorf("GetFixed32() = %x, %v; want 0x56789ABC, true", v32, ok)
	}

	v64, ok := s.GetFixed64()
	if !ok || v64 != 0xDEF0123456789ABC {
		t.Errorf("GetFixed64() = %x, %v; want 0xDEF0123456789ABC, true", v64, ok)
	}

	rest, ok := s.GetBytes(4)
	if !ok || string(rest) != "test" {
		t.Errorf("GetBytes(4) = %q, %v; want \"test\", true", rest, ok)
	}

	if s.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", s.Remaining())
	}
}

func TestSliceShortRead(t *testing.T) {
	s := NewSlice([]byte{0x01, 0x02})
	if _, ok := s.GetFixed32(); ok {
		t.Errorf("GetFixed32() on short slice should fail")
	}
	if _, ok := s.GetFixed16(); !ok {
		t.Errorf("GetFixed16() on exact-size slice should succeed")
	}
}
