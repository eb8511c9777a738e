package objfile

// Encoder is a cursor over an optional backing buffer. With a buffer it
// writes bytes at the cursor; without one it only advances the cursor,
// which measures the encoding without allocating. Every multi-byte codec
// is built on Byte, so the two modes share identical control flow and a
// measure pass always agrees with a write pass over the same value.
//
// An Encoder holds no state beyond its own cursor; distinct instances
// may be used concurrently.
type Encoder struct {
	buf   []byte
	pos   int
	short bool
}

// NewMeasurer returns an encoder that counts bytes without writing.
func NewMeasurer() *Encoder {
	return &Encoder{}
}

// NewEncoder returns an encoder writing into buf.
func NewEncoder(buf []byte) *Encoder {
	return &Encoder{buf: buf}
}

// Len returns the number of bytes emitted (or counted) so far.
func (e *Encoder) Len() int {
	return e.pos
}

// Short reports whether a write ran past the end of the backing buffer.
// Always false in measuring mode.
func (e *Encoder) Short() bool {
	return e.short
}

// Byte emits a single byte.
func (e *Encoder) Byte(b byte) {
	if e.buf != nil {
		if e.pos < len(e.buf) {
			e.buf[e.pos] = b
		} else {
			e.short = true
		}
	}
	e.pos++
}

// Bytes emits a raw byte sequence.
func (e *Encoder) Bytes(p []byte) {
	if e.buf != nil && !e.short {
		if e.pos+len(p) <= len(e.buf) {
			copy(e.buf[e.pos:], p)
			e.pos += len(p)
			return
		}
		e.short = true
	}
	e.pos += len(p)
}

// Uint emits an unsigned 32-bit value in LEB128 format.
func (e *Encoder) Uint(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		e.Byte(b)
		if v == 0 {
			break
		}
	}
}

// Uint64 emits an unsigned 64-bit value in LEB128 format.
func (e *Encoder) Uint64(v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		e.Byte(b)
		if v == 0 {
			break
		}
	}
}

// Int emits a signed 32-bit value in LEB128 format.
func (e *Encoder) Int(v int32) {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		e.Byte(b)
	}
}

// Int64 emits a signed 64-bit value in LEB128 format.
func (e *Encoder) Int64(v int64) {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		e.Byte(b)
	}
}

// Name emits a length-prefixed UTF-8 string.
func (e *Encoder) Name(s string) {
	e.Uint(uint32(len(s)))
	e.Bytes([]byte(s))
}
