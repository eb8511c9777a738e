package objfile_test

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/wasmkit/aotlink/errors"
	"github.com/wasmkit/aotlink/objfile"
)

func TestEncoderUint(t *testing.T) {
	tests := []struct {
		encoded []byte
		value   uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xff, 0x01}, 255},
		{[]byte{0xff, 0x7f}, 16383},
		{[]byte{0x80, 0x80, 0x01}, 16384},
		{[]byte{0xe5, 0x8e, 0x26}, 624485},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x07}, 0x7FFFFFFF},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xFFFFFFFF},
	}

	for _, tt := range tests {
		buf := make([]byte, len(tt.encoded))
		e := objfile.NewEncoder(buf)
		e.Uint(tt.value)
		if !bytes.Equal(buf, tt.encoded) {
			t.Errorf("Uint(%d): got %v, want %v", tt.value, buf, tt.encoded)
		}

		m := objfile.NewMeasurer()
		m.Uint(tt.value)
		if m.Len() != len(tt.encoded) {
			t.Errorf("measure Uint(%d): got %d bytes, want %d", tt.value, m.Len(), len(tt.encoded))
		}
	}
}

func TestEncoderInt(t *testing.T) {
	tests := []struct {
		encoded []byte
		value   int32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, -1},
		{[]byte{0x3f}, 63},
		{[]byte{0xc0, 0x00}, 64},
		{[]byte{0x40}, -64},
		{[]byte{0xff, 0x00}, 127},
		{[]byte{0x80, 0x7f}, -128},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x07}, 0x7FFFFFFF},
		{[]byte{0x80, 0x80, 0x80, 0x80, 0x78}, -0x80000000},
	}

	for _, tt := range tests {
		buf := make([]byte, len(tt.encoded))
		e := objfile.NewEncoder(buf)
		e.Int(tt.value)
		if !bytes.Equal(buf, tt.encoded) {
			t.Errorf("Int(%d): got %v, want %v", tt.value, buf, tt.encoded)
		}

		m := objfile.NewMeasurer()
		m.Int(tt.value)
		if m.Len() != len(tt.encoded) {
			t.Errorf("measure Int(%d): got %d bytes, want %d", tt.value, m.Len(), len(tt.encoded))
		}
	}
}

func TestEncoderInt64(t *testing.T) {
	values := []int64{0, 1, -1, 63, 64, -64, -65, 127, -128, 1 << 40, -(1 << 40), 0x7FFFFFFFFFFFFFFF, -0x8000000000000000}
	for _, v := range values {
		m := objfile.NewMeasurer()
		m.Int64(v)
		buf := make([]byte, m.Len())
		e := objfile.NewEncoder(buf)
		e.Int64(v)
		if e.Short() || e.Len() != m.Len() {
			t.Errorf("Int64(%d): wrote %d bytes, measured %d", v, e.Len(), m.Len())
		}
	}
}

func TestEncoderName(t *testing.T) {
	buf := make([]byte, 4)
	e := objfile.NewEncoder(buf)
	e.Name("env")
	want := []byte{0x03, 'e', 'n', 'v'}
	if !bytes.Equal(buf, want) {
		t.Errorf("Name: got %v, want %v", buf, want)
	}
}

func TestEncoderShortBuffer(t *testing.T) {
	buf := make([]byte, 2)
	e := objfile.NewEncoder(buf)
	e.Uint(624485) // needs 3 bytes
	if !e.Short() {
		t.Error("expected Short() after writing past the buffer")
	}
	if e.Len() != 3 {
		t.Errorf("Len() = %d, want 3 (cursor keeps counting)", e.Len())
	}
}

type encodableFunc func(e *objfile.Encoder)

func (f encodableFunc) EncodeTo(e *objfile.Encoder) { f(e) }

func TestSizeEncodeAgree(t *testing.T) {
	v := encodableFunc(func(e *objfile.Encoder) {
		e.Byte(0x60)
		e.Uint(300)
		e.Int(-300)
		e.Uint64(1 << 50)
		e.Int64(-(1 << 50))
		e.Name("probe_assembly")
		e.Bytes([]byte{1, 2, 3})
	})

	size := objfile.Size(v)
	out := objfile.Encode(v)
	if len(out) != size {
		t.Fatalf("Encode produced %d bytes, Size measured %d", len(out), size)
	}
	if again := objfile.Size(v); again != size {
		t.Errorf("repeated Size: got %d, want %d", again, size)
	}
}

func TestEncodeInto(t *testing.T) {
	v := encodableFunc(func(e *objfile.Encoder) {
		e.Uint(128)
	})

	buf := make([]byte, objfile.Size(v))
	n, err := objfile.EncodeInto(v, buf)
	if err != nil {
		t.Fatalf("EncodeInto: %v", err)
	}
	if n != 2 {
		t.Errorf("EncodeInto wrote %d bytes, want 2", n)
	}

	_, err = objfile.EncodeInto(v, make([]byte, 1))
	if err == nil {
		t.Fatal("expected error for short buffer")
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseEncode, Kind: errors.KindInvalidInput}) {
		t.Errorf("expected encode/invalid_input error, got %v", err)
	}
}
