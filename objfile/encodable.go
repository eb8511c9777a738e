package objfile

import (
	"fmt"

	"github.com/wasmkit/aotlink/errors"
)

// Encodable is anything that can serialize itself through an Encoder.
// An implementation must emit the same byte sequence whether the encoder
// is measuring or writing.
type Encodable interface {
	EncodeTo(e *Encoder)
}

// Size returns the encoded size of v in bytes by running a measuring pass.
func Size(v Encodable) int {
	e := NewMeasurer()
	v.EncodeTo(e)
	return e.Len()
}

// Encode measures v, allocates an exactly sized buffer, and writes into it.
func Encode(v Encodable) []byte {
	buf := make([]byte, Size(v))
	e := NewEncoder(buf)
	v.EncodeTo(e)
	if e.Short() || e.Len() != len(buf) {
		// Measure and write disagreed; an EncodeTo is non-deterministic.
		panic(fmt.Sprintf("objfile: encode of %T wrote %d bytes, measured %d", v, e.Len(), len(buf)))
	}
	return buf
}

// EncodeInto writes v into buf and returns the number of bytes written.
// It fails if buf is too small; no partial trailing write is reported as
// success.
func EncodeInto(v Encodable, buf []byte) (int, error) {
	e := NewEncoder(buf)
	v.EncodeTo(e)
	if e.Short() {
		return 0, errors.InvalidInput(errors.PhaseEncode,
			fmt.Sprintf("buffer too small: need %d bytes, have %d", e.Len(), len(buf)))
	}
	return e.Len(), nil
}
