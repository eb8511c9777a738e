package objfile

import (
	"fmt"
	"math"

	"github.com/wasmkit/aotlink/errors"
)

// ExprKind tags the instructions allowed in a relocatable initializer
// expression. The set is closed and partitioned by three mutually
// exclusive predicates: IsConst, IsBinaryOp, IsGlobalRead.
type ExprKind byte

const (
	ExprI32Const  ExprKind = ExprKind(OpI32Const)
	ExprI64Const  ExprKind = ExprKind(OpI64Const)
	ExprGlobalGet ExprKind = ExprKind(OpGlobalGet)
	ExprI32Add    ExprKind = ExprKind(OpI32Add)
)

// IsConst reports whether the kind pushes a literal constant.
func (k ExprKind) IsConst() bool {
	return k == ExprI32Const || k == ExprI64Const
}

// IsBinaryOp reports whether the kind combines two operands.
func (k ExprKind) IsBinaryOp() bool {
	return k == ExprI32Add
}

// IsGlobalRead reports whether the kind reads an imported global.
func (k ExprKind) IsGlobalRead() bool {
	return k == ExprGlobalGet
}

func (k ExprKind) String() string {
	switch k {
	case ExprI32Const:
		return "i32.const"
	case ExprI64Const:
		return "i64.const"
	case ExprGlobalGet:
		return "global.get"
	case ExprI32Add:
		return "i32.add"
	default:
		return fmt.Sprintf("expr(0x%02x)", byte(k))
	}
}

// Expr is one instruction of an initializer expression. The sum is
// closed: ConstExpr, GlobalVarExpr, and BinaryExpr are the only
// implementations.
type Expr interface {
	Encodable
	Kind() ExprKind
	expr()
}

// ConstExpr pushes a literal constant.
type ConstExpr struct {
	ExprKind ExprKind
	Value    int64
}

// NewI32Const builds a 32-bit constant. The value must fit a signed
// 32-bit integer.
func NewI32Const(v int64) (ConstExpr, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return ConstExpr{}, errors.Overflow([]string{"const"}, v, "i32")
	}
	return ConstExpr{ExprKind: ExprI32Const, Value: v}, nil
}

// NewI64Const builds a 64-bit constant.
func NewI64Const(v int64) ConstExpr {
	return ConstExpr{ExprKind: ExprI64Const, Value: v}
}

func (ConstExpr) expr() {}

// Kind returns the constant's tag.
func (c ConstExpr) Kind() ExprKind { return c.ExprKind }

// EncodeTo emits the opcode then the value as a signed varint.
func (c ConstExpr) EncodeTo(e *Encoder) {
	e.Byte(byte(c.ExprKind))
	if c.ExprKind == ExprI32Const {
		e.Int(int32(c.Value))
	} else {
		e.Int64(c.Value)
	}
}

// GlobalVarExpr reads an imported global. Its kind is always
// ExprGlobalGet.
type GlobalVarExpr struct {
	Index uint32
}

// NewGlobalGet builds a read of imported global index. The index must be
// non-negative.
func NewGlobalGet(index int64) (GlobalVarExpr, error) {
	if index < 0 {
		return GlobalVarExpr{}, errors.InvalidInput(errors.PhaseEncode,
			fmt.Sprintf("global index %d is negative", index))
	}
	return GlobalVarExpr{Index: uint32(index)}, nil
}

func (GlobalVarExpr) expr() {}

// Kind returns ExprGlobalGet.
func (GlobalVarExpr) Kind() ExprKind { return ExprGlobalGet }

// EncodeTo emits the opcode then the index as an unsigned varint.
func (g GlobalVarExpr) EncodeTo(e *Encoder) {
	e.Byte(OpGlobalGet)
	e.Uint(g.Index)
}

// BinaryExpr combines the two values on top of the stack. The opcode is
// the entire instruction.
type BinaryExpr struct {
	ExprKind ExprKind
}

// NewBinary builds a binary operator instruction. The kind must satisfy
// IsBinaryOp.
func NewBinary(kind ExprKind) (BinaryExpr, error) {
	if !kind.IsBinaryOp() {
		return BinaryExpr{}, errors.InvalidInput(errors.PhaseEncode,
			fmt.Sprintf("%s is not a binary operator", kind))
	}
	return BinaryExpr{ExprKind: kind}, nil
}

// NewI32Add builds a 32-bit add.
func NewI32Add() BinaryExpr {
	return BinaryExpr{ExprKind: ExprI32Add}
}

func (BinaryExpr) expr() {}

// Kind returns the operator's tag.
func (b BinaryExpr) Kind() ExprKind { return b.ExprKind }

// EncodeTo emits the opcode alone.
func (b BinaryExpr) EncodeTo(e *Encoder) {
	e.Byte(byte(b.ExprKind))
}

// InstructionGroup is one complete initializer expression: an ordered
// sequence of instructions followed by the end marker. It represents the
// address of a data segment, computed once at instantiation time from
// constants and/or an imported global, e.g. "(global.get 0) + 8":
//
//	objfile.InstructionGroup{gget, c8, objfile.NewI32Add()}
type InstructionGroup []Expr

// EncodeTo emits each member in order, then the terminating end opcode.
func (g InstructionGroup) EncodeTo(e *Encoder) {
	for _, x := range g {
		x.EncodeTo(e)
	}
	e.Byte(OpEnd)
}
