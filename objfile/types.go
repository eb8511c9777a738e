package objfile

import (
	"fmt"
	"hash/fnv"

	"github.com/wasmkit/aotlink/errors"
)

// ValueType represents a WebAssembly value type.
type ValueType byte

// Value type encodings as defined in the WebAssembly binary format.
const (
	ValI32 ValueType = 0x7F // 32-bit integer
	ValI64 ValueType = 0x7E // 64-bit integer
	ValF32 ValueType = 0x7D // 32-bit float
	ValF64 ValueType = 0x7C // 64-bit float
)

func (v ValueType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	default:
		return "unknown"
	}
}

// EncodeTo emits the single tag byte.
func (v ValueType) EncodeTo(e *Encoder) {
	e.Byte(byte(v))
}

// ResultType is an ordered sequence of value types. Equality and hashing
// are structural.
type ResultType []ValueType

// EncodeTo emits a length-prefixed list of tag bytes.
func (r ResultType) EncodeTo(e *Encoder) {
	e.Uint(uint32(len(r)))
	for _, v := range r {
		e.Byte(byte(v))
	}
}

// Equal reports whether two result types hold the same sequence.
func (r ResultType) Equal(o ResultType) bool {
	if len(r) != len(o) {
		return false
	}
	for i := range r {
		if r[i] != o[i] {
			return false
		}
	}
	return true
}

// Hash returns a structural hash of the sequence.
func (r ResultType) Hash() uint32 {
	h := fnv.New32a()
	for _, v := range r {
		h.Write([]byte{byte(v)})
	}
	return h.Sum32()
}

// FuncType represents a function signature.
type FuncType struct {
	Params  ResultType
	Results ResultType
}

// EncodeTo emits the func tag byte followed by both lists.
func (f FuncType) EncodeTo(e *Encoder) {
	e.Byte(FuncTypeByte)
	f.Params.EncodeTo(e)
	f.Results.EncodeTo(e)
}

// Equal reports structural equality of the two signatures.
func (f FuncType) Equal(o FuncType) bool {
	return f.Params.Equal(o.Params) && f.Results.Equal(o.Results)
}

// Hash returns a structural hash derived from both member lists.
func (f FuncType) Hash() uint32 {
	h := fnv.New32a()
	h.Write([]byte{FuncTypeByte})
	for _, v := range f.Params {
		h.Write([]byte{byte(v)})
	}
	h.Write([]byte{0}) // separates params from results
	for _, v := range f.Results {
		h.Write([]byte{byte(v)})
	}
	return h.Sum32()
}

func (f FuncType) String() string {
	return fmt.Sprintf("func%v -> %v", []ValueType(f.Params), []ValueType(f.Results))
}

// ImportType is the payload of an import descriptor. It is a closed sum:
// the only implementations are GlobalType and MemoryType.
type ImportType interface {
	Encodable
	Kind() ExternalKind
	importType()
}

// GlobalType describes an imported global's value type and mutability.
type GlobalType struct {
	Value   ValueType
	Mutable bool
}

func (GlobalType) importType() {}

// Kind returns KindGlobal.
func (GlobalType) Kind() ExternalKind { return KindGlobal }

// EncodeTo emits the value type byte then the mutability byte.
func (g GlobalType) EncodeTo(e *Encoder) {
	e.Byte(byte(g.Value))
	if g.Mutable {
		e.Byte(GlobalMutable)
	} else {
		e.Byte(GlobalImmutable)
	}
}

// Limits describes size constraints for memories.
type Limits struct {
	Min    uint32
	Max    uint32
	HasMax bool
}

// EncodeTo emits the flag byte, the minimum, and the maximum when present.
func (l Limits) EncodeTo(e *Encoder) {
	if l.HasMax {
		e.Byte(LimitsHasMax)
		e.Uint(l.Min)
		e.Uint(l.Max)
	} else {
		e.Byte(LimitsNoMax)
		e.Uint(l.Min)
	}
}

// MemoryType describes an imported linear memory.
type MemoryType struct {
	Limits Limits
}

func (MemoryType) importType() {}

// Kind returns KindMemory.
func (MemoryType) Kind() ExternalKind { return KindMemory }

// EncodeTo emits the limits payload.
func (m MemoryType) EncodeTo(e *Encoder) {
	m.Limits.EncodeTo(e)
}

// NewMemoryType builds a memory descriptor from a limits flag byte. A
// flag of LimitsHasMax requires a present max; construction fails
// otherwise.
func NewMemoryType(flags byte, min uint32, max *uint32) (MemoryType, error) {
	switch flags {
	case LimitsNoMax:
		return MemoryType{Limits: Limits{Min: min}}, nil
	case LimitsHasMax:
		if max == nil {
			return MemoryType{}, errors.InvalidInput(errors.PhaseEncode,
				"memory limits declare a maximum but none was supplied")
		}
		return MemoryType{Limits: Limits{Min: min, Max: *max, HasMax: true}}, nil
	default:
		return MemoryType{}, errors.InvalidInput(errors.PhaseEncode,
			fmt.Sprintf("unsupported limits flag 0x%02x", flags))
	}
}

// Import is one entry of the import section: a (module, field) name pair,
// an external kind, and the kind's concrete payload. Index is the
// resolved numeric index within the kind's index space, or -1 while
// unresolved. An Import is owned by the producer until serialized and
// read-only thereafter.
type Import struct {
	Module string
	Field  string
	Type   ImportType
	Index  int
}

// NewImport builds an import whose external kind is taken from the
// payload. Index starts unresolved.
func NewImport(module, field string, typ ImportType) Import {
	return Import{
		Module: module,
		Field:  field,
		Type:   typ,
		Index:  -1,
	}
}

// Kind returns the external kind of the import payload.
func (i Import) Kind() ExternalKind {
	return i.Type.Kind()
}

// EncodeTo emits both names, the kind byte, and the payload.
func (i Import) EncodeTo(e *Encoder) {
	e.Name(i.Module)
	e.Name(i.Field)
	e.Byte(byte(i.Kind()))
	i.Type.EncodeTo(e)
}
